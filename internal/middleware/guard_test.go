package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/sports-class-booking/internal/config"
    "github.com/iliyamo/sports-class-booking/internal/model"
    "github.com/iliyamo/sports-class-booking/internal/repository"
    "github.com/iliyamo/sports-class-booking/internal/utils"
)

const testSecret = "guard-secret"

type roleMap map[string]model.Role

func (m roleMap) RoleOf(_ context.Context, email string) (model.Role, error) {
    if email == "broken@example.com" {
        return 0, errors.New("db down")
    }
    r, ok := m[email]
    if !ok {
        return 0, repository.ErrNotFound
    }
    return r, nil
}

var roles = roleMap{
    "stu@example.com":   model.RoleStudent,
    "coach@example.com": model.RoleInstructor,
    "boss@example.com":  model.RoleAdmin,
}

func newGuardedServer(t *testing.T) (*echo.Echo, *bool) {
    t.Helper()
    e := echo.New()
    reached := new(bool)
    ok := func(c echo.Context) error {
        *reached = true
        return c.JSON(http.StatusOK, echo.Map{"email": Email(c), "role": Role(c)})
    }
    auth := JWTAuth(testSecret)
    e.POST("/classes", ok, auth, RequireRole(roles, model.RoleInstructor))
    e.GET("/users", ok, auth, RequireRole(roles, model.RoleAdmin))
    e.GET("/users/admin/:email", ok, auth, RequireSelf("email"))
    e.GET("/selectedClass", ok, auth, RequireSelf("email"))
    return e, reached
}

func bearer(t *testing.T, email string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, email, 0)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, target, auth string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, target, nil)
    if auth != "" {
        req.Header.Set(echo.HeaderAuthorization, auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
    e, reached := newGuardedServer(t)

    for _, auth := range []string{"", "Bearer", "Bearer not-a-jwt", "Basic abc", bearer(t, "stu@example.com")[:20]} {
        rec := do(e, http.MethodPost, "/classes", auth)
        assert.Equal(t, http.StatusUnauthorized, rec.Code, "auth=%q", auth)
        assert.JSONEq(t, `{"error":true,"message":"unauthorized access"}`, rec.Body.String())
    }
    assert.False(t, *reached)
}

func TestRequireRole(t *testing.T) {
    e, reached := newGuardedServer(t)

    rec := do(e, http.MethodPost, "/classes", bearer(t, "stu@example.com"))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.JSONEq(t, `{"error":true,"message":"forbidden access"}`, rec.Body.String())
    assert.False(t, *reached)

    rec = do(e, http.MethodPost, "/classes", bearer(t, "ghost@example.com"))
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = do(e, http.MethodGet, "/users", bearer(t, "broken@example.com"))
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
    assert.False(t, *reached)

    rec = do(e, http.MethodPost, "/classes", bearer(t, "Coach@Example.com"))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"email":"coach@example.com","role":"Instructor"}`, rec.Body.String())
    assert.True(t, *reached)
}

func TestRequireSelf(t *testing.T) {
    e, _ := newGuardedServer(t)
    tok := bearer(t, "boss@example.com")

    assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/users/admin/boss@example.com", tok).Code)
    assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/users/admin/stu@example.com", tok).Code)

    assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/selectedClass?email=BOSS@example.com", tok).Code)
    assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/selectedClass?email=stu@example.com", tok).Code)
    assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/selectedClass", tok).Code)
}

func TestRateLimitAndCacheWithoutRedisPassThrough(t *testing.T) {
    e := echo.New()
    rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
    e.GET("/classes", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
        RateLimit(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil), rc.Middleware())

    for i := 0; i < 3; i++ {
        rec := do(e, http.MethodGet, "/classes", "")
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.Empty(t, rec.Header().Get("X-Cache"))
    }
    assert.NoError(t, rc.Purge(context.Background()))
}

func TestCachePayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`[1,2]`))
    require.NoError(t, err)

    status, got, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", got.Get("Content-Type"))
    assert.Equal(t, `[1,2]`, string(body))

    _, _, _, ok = decodePayload(bs[:5])
    assert.False(t, ok)
}
