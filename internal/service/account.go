package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/repository"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigits    = regexp.MustCompile(`[^\d]`)
)

// AccountInput describes a new user account.
type AccountInput struct {
	FullName    string
	Email       string
	Username    string
	Password    string
	Department  string
	PhoneNumber *string
	IsAdmin     bool
}

// accountCreator holds the account rules shared by self-service
// registration and the admin user screens.
type accountCreator struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
	hasher      *auth.PasswordHasher
	now         Clock
}

func (a accountCreator) create(ctx context.Context, in AccountInput) (*domain.User, *domain.Department, error) {
	if missing := requireFields(
		[2]string{"fullName", in.FullName},
		[2]string{"email", in.Email},
		[2]string{"username", in.Username},
		[2]string{"password", in.Password},
	); len(missing) > 0 {
		return nil, nil, apperrors.NewValidationError("All required fields must be provided", nil, missing...)
	}

	email := strings.TrimSpace(in.Email)
	if !validEmail(email) {
		return nil, nil, apperrors.NewValidationError("Please provide a valid email address", map[string]any{"email": email})
	}
	phone := optionalString(in.PhoneNumber)
	if phone != nil && !validPhone(*phone) {
		return nil, nil, apperrors.NewValidationError("Please provide a valid phone number", map[string]any{"phoneNumber": *phone})
	}

	username := strings.ToLower(strings.TrimSpace(in.Username))
	if err := a.ensureAvailable(ctx, username, email, ""); err != nil {
		return nil, nil, err
	}

	var dept *domain.Department
	deptName := strings.TrimSpace(in.Department)
	switch {
	case deptName != "":
		found, err := a.departments.GetByName(ctx, deptName)
		if err != nil {
			return nil, nil, notFoundOr(err, "department", map[string]any{"name": deptName})
		}
		dept = found
	case !in.IsAdmin:
		return nil, nil, apperrors.NewValidationError("Department is required for regular users", nil, "department is required")
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           username,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
		CreatedAt:    a.now(),
	}
	if dept != nil {
		user.DepartmentID = &dept.ID
	}
	if err := a.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, nil, apperrors.NewConflict("User with email or username already exists", nil)
		}
		return nil, nil, apperrors.MapError(err)
	}
	return user, dept, nil
}

// ensureAvailable reports which identifier is taken. selfID excludes the
// account being edited.
func (a accountCreator) ensureAvailable(ctx context.Context, username, email, selfID string) error {
	existing, err := a.users.FindByIDOrEmail(ctx, username, email)
	if err != nil {
		return apperrors.MapError(err)
	}
	for _, u := range existing {
		if u.ID == selfID {
			continue
		}
		if u.ID == username {
			return apperrors.NewConflict("Username already exists", map[string]any{"username": username})
		}
		if strings.EqualFold(u.Email, email) {
			return apperrors.NewConflict("Email already exists", map[string]any{"email": email})
		}
	}
	return nil
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validPhone(phone string) bool {
	digits := nonDigits.ReplaceAllString(phone, "")
	return len(digits) >= 10 && len(digits) <= 15
}
