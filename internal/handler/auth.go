package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/sports-class-booking/internal/model"
    "github.com/iliyamo/sports-class-booking/internal/repository"
    "github.com/iliyamo/sports-class-booking/internal/utils"
)

// AccountStore is the slice of repository.UserRepo the auth and user
// handlers need.
type AccountStore interface {
    Create(ctx context.Context, a *model.Account) error
    GetByEmail(ctx context.Context, email string) (model.Account, error)
    List(ctx context.Context) ([]model.Account, error)
    SetRole(ctx context.Context, id uint64, role model.Role) error
    Delete(ctx context.Context, id uint64) (bool, error)
    RoleOf(ctx context.Context, email string) (model.Role, error)
}

// AuthHandler issues access tokens.
type AuthHandler struct {
    Secret  string
    TTL     time.Duration
    Users   AccountStore
    Timeout time.Duration
}

func NewAuthHandler(secret string, ttl time.Duration, users AccountStore, timeout time.Duration) *AuthHandler {
    return &AuthHandler{Secret: secret, TTL: ttl, Users: users, Timeout: timeout}
}

type tokenReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

// Token handles POST /jwt.  Identity is established upstream by the login
// provider, so an email is enough to get a token.  Accounts registered with
// a password must present it.
func (h *AuthHandler) Token(c echo.Context) error {
    var req tokenReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    req.Email = model.NormalizeEmail(req.Email)
    if req.Email == "" || !strings.Contains(req.Email, "@") {
        return badRequest(c, "email required")
    }

    ctx, cancel := withTimeout(c, h.Timeout)
    defer cancel()

    acct, err := h.Users.GetByEmail(ctx, req.Email)
    switch {
    case err == nil:
        if acct.PasswordHash != "" && !utils.VerifyPassword(acct.PasswordHash, req.Password) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": true, "message": "invalid credentials"})
        }
    case !errors.Is(err, repository.ErrNotFound):
        return fail(c, err)
    }

    tok, err := utils.NewAccessToken(h.Secret, req.Email, h.TTL)
    if err != nil {
        c.Logger().Errorf("issue token: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": true, "message": "issue token failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"token": tok.Token, "expires": tok.Exp})
}
