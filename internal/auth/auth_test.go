package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/repository/memory"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

func TestAccessAndRefreshTokensAreNotInterchangeable(t *testing.T) {
	tm := NewTokenManager("access", "refresh", time.Hour, 2*time.Hour)

	access, _, err := tm.GenerateAccessToken("jdoe", true)
	require.NoError(t, err)
	refresh, refreshExp, err := tm.GenerateRefreshToken("jdoe")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), refreshExp, 5*time.Second)

	claims, err := tm.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", claims.UserID)
	assert.True(t, claims.IsAdmin)

	_, err = tm.ParseAccessToken(refresh)
	assert.Error(t, err)
	_, err = tm.ParseRefreshToken(access)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("access", "refresh", time.Minute, time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := tm.GenerateAccessToken("jdoe", false)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestHashTokenIsStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hashed, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hashed, "s3cret"))
	assert.ErrorIs(t, h.Compare(hashed, "wrong"), ErrPasswordMismatch)
}

func newGuardedApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "admin", Email: "admin@example.com", IsAdmin: true}))
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "jdoe", Email: "jdoe@example.com"}))

	tm := NewTokenManager("access", "refresh", time.Hour, time.Hour)
	mw := NewAuthMiddleware(tm, store.Users())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.UserID())
	})
	app.Get("/admin", mw.Handle, Require(CapabilityAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tm
}

func TestAuthMiddleware(t *testing.T) {
	app, tm := newGuardedApp(t)
	userToken, _, err := tm.GenerateAccessToken("jdoe", false)
	require.NoError(t, err)
	// A forged admin claim must not grant admin when the stored user is not one.
	forged, _, err := tm.GenerateAccessToken("jdoe", true)
	require.NoError(t, err)
	adminToken, _, err := tm.GenerateAccessToken("admin", true)
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateAccessToken("ghost", false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		status int
	}{
		{name: "missing token", path: "/me", status: http.StatusUnauthorized},
		{name: "malformed header", path: "/me", header: "Token abc", status: http.StatusUnauthorized},
		{name: "garbage token", path: "/me", header: "Bearer abc", status: http.StatusUnauthorized},
		{name: "unknown user", path: "/me", header: "Bearer " + ghostToken, status: http.StatusUnauthorized},
		{name: "bearer", path: "/me", header: "Bearer " + userToken, status: http.StatusOK},
		{name: "cookie", path: "/me", cookie: userToken, status: http.StatusOK},
		{name: "non admin", path: "/admin", header: "Bearer " + forged, status: http.StatusForbidden},
		{name: "admin", path: "/admin", header: "Bearer " + adminToken, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestCan(t *testing.T) {
	assert.False(t, Can(nil, CapabilityAuthenticated))
	user := &Principal{User: &domain.User{ID: "jdoe"}}
	assert.True(t, Can(user, CapabilityAuthenticated))
	assert.False(t, Can(user, CapabilityAdmin))
	assert.True(t, Can(&Principal{User: &domain.User{ID: "a"}, IsAdmin: true}, CapabilityAdmin))
}
