package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/repository"
	"github.com/helpdesk-labs/issue-tracker/internal/session"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

const invalidCredentials = "Invalid user credentials"

// SessionStore persists refresh-token sessions.
type SessionStore interface {
	Save(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	Consume(ctx context.Context, tokenHash string) (string, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// AuthService coordinates login, token refresh and account self-service.
type AuthService struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
	sessions    SessionStore
	tokens      *auth.TokenManager
	hasher      *auth.PasswordHasher
	accounts    accountCreator
	logger      *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo       repository.UserRepository
	DepartmentRepo repository.DepartmentRepository
	Sessions       SessionStore
	Tokens         *auth.TokenManager
	Hasher         *auth.PasswordHasher
	Logger         *zap.Logger
	Clock          Clock
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		departments: deps.DepartmentRepo,
		sessions:    deps.Sessions,
		tokens:      deps.Tokens,
		hasher:      deps.Hasher,
		accounts: accountCreator{
			users:       deps.UserRepo,
			departments: deps.DepartmentRepo,
			hasher:      deps.Hasher,
			now:         clockOrDefault(deps.Clock),
		},
		logger: logger,
	}
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *domain.TokenPair, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, nil, apperrors.NewValidationError("Username and password are required", nil)
	}

	user, err := s.users.GetByID(ctx, username)
	if err != nil {
		if isNoRows(err) {
			return nil, nil, apperrors.NewUnauthorized(invalidCredentials)
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unusable", zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a live refresh token for a new pair, revoking the old session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, nil, apperrors.NewUnauthorized("unauthorized request")
	}
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid refresh token")
	}

	owner, err := s.sessions.Consume(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, nil, apperrors.NewUnauthorized("refresh token is expired or used")
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	if owner != claims.UserID {
		return nil, nil, apperrors.NewUnauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil, apperrors.NewUnauthorized("invalid refresh token")
		}
		return nil, nil, apperrors.MapError(err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout revokes the presented refresh session, if any.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, auth.HashToken(refreshToken)); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Register creates an account on behalf of an administrator.
func (s *AuthService) Register(ctx context.Context, input AccountInput) (*domain.User, error) {
	user, _, err := s.accounts.create(ctx, input)
	return user, err
}

// CurrentUser reloads the caller.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"id": userID})
	}
	return user, nil
}

// CurrentDepartment returns the caller's department, nil when unassigned.
func (s *AuthService) CurrentDepartment(ctx context.Context, user *domain.User) (*domain.Department, error) {
	if user.DepartmentID == nil {
		return nil, nil
	}
	dept, err := s.departments.GetByID(ctx, *user.DepartmentID)
	if err != nil {
		return nil, notFoundOr(err, "department", map[string]any{"id": *user.DepartmentID})
	}
	return dept, nil
}

// ChangePassword replaces the caller's password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.NewValidationError("Old and new passwords are required", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "user", map[string]any{"id": userID})
	}
	if err := s.hasher.Compare(user.PasswordHash, oldPassword); err != nil {
		return apperrors.NewValidationError("Invalid old password", nil)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return notFoundOr(err, "user", map[string]any{"id": userID})
	}
	return nil
}

// UpdateAccount changes the caller's name and email.
func (s *AuthService) UpdateAccount(ctx context.Context, userID, fullName, email string) (*domain.User, error) {
	if missing := requireFields([2]string{"fullName", fullName}, [2]string{"email", email}); len(missing) > 0 {
		return nil, apperrors.NewValidationError("All fields are required", nil, missing...)
	}
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return nil, apperrors.NewValidationError("Please provide a valid email address", map[string]any{"email": email})
	}
	if err := s.accounts.ensureAvailable(ctx, "", email, userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"id": userID})
	}
	user.FullName = strings.TrimSpace(fullName)
	user.Email = email
	if err := s.users.Update(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("Email already exists", map[string]any{"email": email})
		}
		return nil, notFoundOr(err, "user", map[string]any{"id": userID})
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, accessExp, err := s.tokens.GenerateAccessToken(user.ID, user.IsAdmin)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, refreshExp, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), user.ID, refreshExp); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
