package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/model"
    "github.com/iliyamo/sports-class-booking/internal/repository"
    "github.com/iliyamo/sports-class-booking/internal/utils"
)

// UserHandler serves account registration and the admin user screens.
type UserHandler struct {
    Users      AccountStore
    BcryptCost int
    Timeout    time.Duration
}

func NewUserHandler(users AccountStore, bcryptCost int, timeout time.Duration) *UserHandler {
    return &UserHandler{Users: users, BcryptCost: bcryptCost, Timeout: timeout}
}

type registerReq struct {
    Email    string `json:"email"`
    Name     string `json:"name"`
    PhotoURL string `json:"photo_url"`
    Password string `json:"password"`
}

// Register handles POST /users.  New accounts start as students; only an
// admin can change a role.  Registering an email twice is not an error so
// clients can call it on every login.
func (h *UserHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    acct := model.Account{
        Email:    model.NormalizeEmail(req.Email),
        Name:     strings.TrimSpace(req.Name),
        PhotoURL: strings.TrimSpace(req.PhotoURL),
        Role:     model.RoleStudent,
    }
    if acct.Email == "" || !strings.Contains(acct.Email, "@") {
        return badRequest(c, "email required")
    }
    if req.Password != "" {
        hash, err := utils.HashPassword(req.Password, h.BcryptCost)
        if err != nil {
            return badRequest(c, "unusable password")
        }
        acct.PasswordHash = hash
    }

    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()

    err := h.Users.Create(ctx, &acct)
    if errors.Is(err, repository.ErrEmailExists) {
        return c.JSON(http.StatusOK, echo.Map{"message": "user already exists"})
    }
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusCreated, acct)
}

// List handles GET /users (admin).
func (h *UserHandler) List(c echo.Context) error {
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    users, err := h.Users.List(ctx)
    if err != nil {
        return fail(c, err)
    }
    if users == nil {
        users = []model.Account{}
    }
    return c.JSON(http.StatusOK, users)
}

// SetRole handles PATCH /users/:role/:id (admin).
func (h *UserHandler) SetRole(c echo.Context) error {
    role, ok := model.ParseRole(c.Param("role"))
    if !ok || role == model.RoleUnassigned {
        return badRequest(c, "unknown role")
    }
    return h.setRole(c, role)
}

// SetRoleTo is SetRole for routes that fix the role in the path, such as
// PATCH /users/admin/:id.
func (h *UserHandler) SetRoleTo(role model.Role) echo.HandlerFunc {
    return func(c echo.Context) error { return h.setRole(c, role) }
}

func (h *UserHandler) setRole(c echo.Context, role model.Role) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid user id")
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    if err := h.Users.SetRole(ctx, id, role); err != nil {
        return fail(c, err)
    }
    c.Logger().Infof("user %d is now %s (by %s)", id, role, callerEmail(c))
    return c.JSON(http.StatusOK, echo.Map{"id": id, "role": role})
}

// Delete handles DELETE /users/:id (admin).  Deleting an unknown id is a
// no-op reported as deleted=false.
func (h *UserHandler) Delete(c echo.Context) error {
    id, ok := idParam(c, "id")
    if !ok {
        return badRequest(c, "invalid user id")
    }
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    deleted, err := h.Users.Delete(ctx, id)
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}

// IsAdmin handles GET /users/admin/:email (self only).
func (h *UserHandler) IsAdmin(c echo.Context) error {
    return h.hasRole(c, model.RoleAdmin, "admin")
}

// IsInstructor handles GET /users/instructor/:email (self only).
func (h *UserHandler) IsInstructor(c echo.Context) error {
    return h.hasRole(c, model.RoleInstructor, "instructor")
}

func (h *UserHandler) hasRole(c echo.Context, want model.Role, key string) error {
    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()
    role, err := h.Users.RoleOf(ctx, callerEmail(c))
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusOK, echo.Map{key: false})
    }
    if err != nil {
        return fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{key: role == want})
}
