package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/sports-class-booking/internal/model"
)

// UserRepo persists accounts.  It is also the Role Store consulted by the
// authorization middleware.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,photo_url,password_hash,role,created_at"

// Create inserts an account after checking the email is free.  The UNIQUE
// index on users.email closes the race between the lookup and the insert.
func (r *UserRepo) Create(ctx context.Context, a *model.Account) error {
	a.Email = model.NormalizeEmail(a.Email)
	if _, err := r.GetByEmail(ctx, a.Email); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, photo_url, password_hash, role) VALUES (?,?,?,?,?)",
		a.Email, a.Name, a.PhotoURL, a.PasswordHash, a.Role.String())
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", model.NormalizeEmail(email))
	return scanAccount(row)
}

// RoleOf returns the stored role for an email.  It satisfies
// middleware.RoleStore.
func (r *UserRepo) RoleOf(ctx context.Context, email string) (model.Role, error) {
	var name string
	err := r.DB.QueryRowContext(ctx,
		"SELECT role FROM users WHERE email=? LIMIT 1", model.NormalizeEmail(email)).Scan(&name)
	if err != nil {
		return model.RoleUnassigned, notFound(err)
	}
	role, ok := model.ParseRole(name)
	if !ok {
		// an unrecognised role grants nothing
		return model.RoleUnassigned, nil
	}
	return role, nil
}

// List returns every account ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.Account, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetRole overwrites an account's role.  The DSN sets clientFoundRows so
// an unchanged row still counts as affected.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role model.Role) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role.String(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an account.  It reports whether a row was removed.
func (r *UserRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanAccount(s scanner) (model.Account, error) {
	var (
		a        model.Account
		roleName string
		photo    sql.NullString
		hash     sql.NullString
	)
	if err := s.Scan(&a.ID, &a.Email, &a.Name, &photo, &hash, &roleName, &a.CreatedAt); err != nil {
		return model.Account{}, notFound(err)
	}
	a.PhotoURL = photo.String
	a.PasswordHash = hash.String
	a.Role, _ = model.ParseRole(roleName)
	return a, nil
}
