package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-labs/issue-tracker/internal/auth"
)

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.department(t, "Library", "Regular")
	f.user(t, "reader", "Library", false)
	ctx := context.Background()

	_, _, err := f.auth.Login(ctx, "reader", "wrong")
	domainErr := requireDomainError(t, err, "UNAUTHORIZED")
	assert.Equal(t, "Invalid user credentials", domainErr.Message)

	_, _, err = f.auth.Login(ctx, "ghost", "password-reader")
	domainErr = requireDomainError(t, err, "UNAUTHORIZED")
	assert.Equal(t, "Invalid user credentials", domainErr.Message)

	_, _, err = f.auth.Login(ctx, "", "")
	requireDomainError(t, err, "VALIDATION_FAILED")
	assert.Empty(t, f.redis.Keys())
}

func TestLoginIssuesTokens(t *testing.T) {
	f := newFixture(t)
	f.department(t, "Library", "Regular")
	f.user(t, "reader", "Library", false)

	user, pair, err := f.auth.Login(context.Background(), "  READER ", "password-reader")
	require.NoError(t, err)
	assert.Equal(t, "reader", user.ID)

	claims, err := f.tokens.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "reader", claims.UserID)
	assert.False(t, claims.IsAdmin)

	owner, err := f.sessions.Lookup(context.Background(), auth.HashToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, "reader", owner)
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newFixture(t)
	f.user(t, "admin", "", true)
	ctx := context.Background()

	_, first, err := f.auth.Login(ctx, "admin", "password-admin")
	require.NoError(t, err)

	user, second, err := f.auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.ID)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, _, err = f.auth.Refresh(ctx, first.RefreshToken)
	requireDomainError(t, err, "UNAUTHORIZED")

	_, _, err = f.auth.Refresh(ctx, second.AccessToken)
	requireDomainError(t, err, "UNAUTHORIZED")

	require.NoError(t, f.auth.Logout(ctx, second.RefreshToken))
	_, _, err = f.auth.Refresh(ctx, second.RefreshToken)
	requireDomainError(t, err, "UNAUTHORIZED")
}

func TestConcurrentRefreshRedeemsTokenOnce(t *testing.T) {
	f := newFixture(t)
	f.user(t, "admin", "", true)
	ctx := context.Background()

	_, pair, err := f.auth.Login(ctx, "admin", "password-admin")
	require.NoError(t, err)

	const callers = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := f.auth.Refresh(ctx, pair.RefreshToken); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	f.department(t, "Library", "Regular")
	ctx := context.Background()

	user, err := f.auth.Register(ctx, AccountInput{
		FullName:    "Jane Reader",
		Email:       "jane@example.com",
		Username:    "Jane",
		Password:    "secret",
		Department:  "Library",
		PhoneNumber: strPtr("+1 (555) 010-2030"),
	})
	require.NoError(t, err)
	assert.Equal(t, "jane", user.ID)
	assert.NotEqual(t, "secret", user.PasswordHash)
	require.NotNil(t, user.DepartmentID)

	_, err = f.auth.Register(ctx, AccountInput{FullName: "J", Email: "other@example.com", Username: "jane", Password: "x", Department: "Library"})
	domainErr := requireDomainError(t, err, "CONFLICT")
	assert.Equal(t, "Username already exists", domainErr.Message)

	_, err = f.auth.Register(ctx, AccountInput{FullName: "J", Email: "jane@example.com", Username: "jane2", Password: "x", Department: "Library"})
	domainErr = requireDomainError(t, err, "CONFLICT")
	assert.Equal(t, "Email already exists", domainErr.Message)

	_, err = f.auth.Register(ctx, AccountInput{FullName: "J", Email: "not-an-email", Username: "j3", Password: "x", Department: "Library"})
	requireDomainError(t, err, "VALIDATION_FAILED")

	_, err = f.auth.Register(ctx, AccountInput{FullName: "J", Email: "j4@example.com", Username: "j4", Password: "x", Department: "Library", PhoneNumber: strPtr("123")})
	requireDomainError(t, err, "VALIDATION_FAILED")

	_, err = f.auth.Register(ctx, AccountInput{FullName: "J", Email: "j5@example.com", Username: "j5", Password: "x"})
	requireDomainError(t, err, "VALIDATION_FAILED")

	_, err = f.auth.Register(ctx, AccountInput{FullName: "J", Email: "j6@example.com", Username: "j6", Password: "x", Department: "Nowhere"})
	requireDomainError(t, err, "NOT_FOUND")
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.user(t, "admin", "", true)
	ctx := context.Background()

	err := f.auth.ChangePassword(ctx, "admin", "nope", "fresh")
	domainErr := requireDomainError(t, err, "VALIDATION_FAILED")
	assert.Equal(t, "Invalid old password", domainErr.Message)

	require.NoError(t, f.auth.ChangePassword(ctx, "admin", "password-admin", "fresh"))
	_, _, err = f.auth.Login(ctx, "admin", "password-admin")
	requireDomainError(t, err, "UNAUTHORIZED")
	_, _, err = f.auth.Login(ctx, "admin", "fresh")
	assert.NoError(t, err)
}

func TestUpdateAccount(t *testing.T) {
	f := newFixture(t)
	f.user(t, "admin", "", true)
	f.user(t, "other", "", true)
	ctx := context.Background()

	updated, err := f.auth.UpdateAccount(ctx, "admin", "Head Admin", "head@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Head Admin", updated.FullName)

	_, err = f.auth.UpdateAccount(ctx, "admin", "Head Admin", "head@example.com")
	assert.NoError(t, err)

	_, err = f.auth.UpdateAccount(ctx, "admin", "Head Admin", "other@example.com")
	requireDomainError(t, err, "CONFLICT")

	_, err = f.auth.UpdateAccount(ctx, "admin", "", "x@example.com")
	requireDomainError(t, err, "VALIDATION_FAILED")
}

func TestCurrentDepartment(t *testing.T) {
	f := newFixture(t)
	f.department(t, "Library", "Regular")
	reader := f.user(t, "reader", "Library", false)
	admin := f.user(t, "admin", "", true)
	ctx := context.Background()

	dept, err := f.auth.CurrentDepartment(ctx, reader)
	require.NoError(t, err)
	require.NotNil(t, dept)
	assert.Equal(t, "Library", dept.Name)

	dept, err = f.auth.CurrentDepartment(ctx, admin)
	require.NoError(t, err)
	assert.Nil(t, dept)
}
