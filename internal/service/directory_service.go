package service

import (
	"context"
	"errors"
	"strings"

	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/repository"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

// DirectoryService manages departments and, for admins, user accounts.
type DirectoryService struct {
	departments repository.DepartmentRepository
	users       repository.UserRepository
	accounts    accountCreator
}

// DirectoryDependencies bundles repositories for the directory service.
type DirectoryDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	UserRepo       repository.UserRepository
	Hasher         *auth.PasswordHasher
	Clock          Clock
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		departments: deps.DepartmentRepo,
		users:       deps.UserRepo,
		accounts: accountCreator{
			users:       deps.UserRepo,
			departments: deps.DepartmentRepo,
			hasher:      deps.Hasher,
			now:         clockOrDefault(deps.Clock),
		},
	}
}

// CreateDepartment adds a department with a unique name.
func (s *DirectoryService) CreateDepartment(ctx context.Context, name, deptType string) (*domain.Department, error) {
	if missing := requireFields([2]string{"name", name}, [2]string{"type", deptType}); len(missing) > 0 {
		return nil, apperrors.NewValidationError("Department name and type are required", nil, missing...)
	}
	dept := &domain.Department{Name: strings.TrimSpace(name), Type: strings.TrimSpace(deptType)}

	if _, err := s.departments.GetByName(ctx, dept.Name); err == nil {
		return nil, apperrors.NewConflict("Department already exists", map[string]any{"name": dept.Name})
	} else if !isNoRows(err) {
		return nil, apperrors.MapError(err)
	}

	if err := s.departments.Create(ctx, dept); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("Department already exists", map[string]any{"name": dept.Name})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// ListDepartments returns all departments by name.
func (s *DirectoryService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// UpdateDepartmentType changes a department's category label.
func (s *DirectoryService) UpdateDepartmentType(ctx context.Context, rawID, deptType string) (*domain.Department, error) {
	id, err := parseID(rawID, "departmentId")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(deptType) == "" {
		return nil, apperrors.NewValidationError("Department type is required", nil, "type is required")
	}
	if err := s.departments.UpdateType(ctx, id, strings.TrimSpace(deptType)); err != nil {
		return nil, notFoundOr(err, "department", map[string]any{"id": id})
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "department", map[string]any{"id": id})
	}
	return dept, nil
}

// DepartmentType returns the type of the named department.
func (s *DirectoryService) DepartmentType(ctx context.Context, name string) (*domain.Department, error) {
	name = strings.TrimSpace(name)
	dept, err := s.departments.GetByName(ctx, name)
	if err != nil {
		return nil, notFoundOr(err, "department", map[string]any{"name": name})
	}
	return dept, nil
}

// DeleteDepartment removes a department nobody references.
func (s *DirectoryService) DeleteDepartment(ctx context.Context, rawID string) error {
	id, err := parseID(rawID, "departmentId")
	if err != nil {
		return err
	}
	if _, err := s.departments.GetByID(ctx, id); err != nil {
		return notFoundOr(err, "department", map[string]any{"id": id})
	}

	deps, err := s.departments.CountDependents(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !deps.Empty() {
		return apperrors.NewConflict("Department is still in use", map[string]any{
			"id":       id,
			"users":    deps.Users,
			"issues":   deps.Issues,
			"licenses": deps.Licenses,
		})
	}

	// A user, issue or license may still slip in between the count and the delete;
	// the foreign keys turn that into a conflict as well.
	if err := s.departments.Delete(ctx, id); err != nil {
		return notFoundOr(err, "department", map[string]any{"id": id})
	}
	return nil
}

// CreateUser creates an account from the admin screen.
func (s *DirectoryService) CreateUser(ctx context.Context, input AccountInput) (*domain.User, *domain.Department, error) {
	return s.accounts.create(ctx, input)
}

// EnsureAdmin creates the given admin account unless the username is taken.
// It reports whether an account was created.
func (s *DirectoryService) EnsureAdmin(ctx context.Context, input AccountInput) (bool, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if _, err := s.users.GetByID(ctx, username); err == nil {
		return false, nil
	} else if !isNoRows(err) {
		return false, apperrors.MapError(err)
	}

	input.IsAdmin = true
	input.Department = ""
	if _, _, err := s.accounts.create(ctx, input); err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "CONFLICT" && domainErr.Details["username"] != nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListUsers returns all accounts with their department names, newest first.
func (s *DirectoryService) ListUsers(ctx context.Context) ([]domain.UserListing, error) {
	users, err := s.users.ListWithDepartment(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// UserUpdateInput is a partial account update. Nil fields are left alone.
type UserUpdateInput struct {
	FullName    *string
	Email       *string
	PhoneNumber *string
	Department  *string
	IsAdmin     *bool
}

// UpdateUser applies a partial update, enforcing the admin/department rules:
// promoting without a department clears it, demoting requires one.
func (s *DirectoryService) UpdateUser(ctx context.Context, userID string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"id": userID})
	}

	changed := false
	if v := optionalString(input.FullName); v != nil {
		user.FullName = *v
		changed = true
	}
	if v := optionalString(input.Email); v != nil {
		if !validEmail(*v) {
			return nil, apperrors.NewValidationError("Please provide a valid email address", map[string]any{"email": *v})
		}
		if err := s.accounts.ensureAvailable(ctx, "", *v, user.ID); err != nil {
			return nil, err
		}
		user.Email = *v
		changed = true
	}
	if v := optionalString(input.PhoneNumber); v != nil {
		if !validPhone(*v) {
			return nil, apperrors.NewValidationError("Please provide a valid phone number", map[string]any{"phoneNumber": *v})
		}
		user.PhoneNumber = v
		changed = true
	}

	toAdmin := input.IsAdmin != nil && *input.IsAdmin && !user.IsAdmin
	fromAdmin := input.IsAdmin != nil && !*input.IsAdmin && user.IsAdmin

	if deptName := optionalString(input.Department); deptName != nil {
		dept, err := s.departments.GetByName(ctx, *deptName)
		if err != nil {
			return nil, notFoundOr(err, "department", map[string]any{"name": *deptName})
		}
		user.DepartmentID = &dept.ID
		changed = true
	} else if toAdmin {
		user.DepartmentID = nil
	} else if fromAdmin {
		return nil, apperrors.NewValidationError("Department is required when changing from admin to regular user", nil, "department is required")
	}

	if input.IsAdmin != nil {
		user.IsAdmin = *input.IsAdmin
		changed = true
	}
	if !changed {
		return nil, apperrors.NewValidationError("No fields provided for update", nil)
	}

	if err := s.users.Update(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("Email already exists", nil)
		}
		return nil, notFoundOr(err, "user", map[string]any{"id": userID})
	}
	return user, nil
}

// DeleteUser removes an account that has not reported any issues.
func (s *DirectoryService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return apperrors.NewConflict("You cannot delete your own account", map[string]any{"id": userID})
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return notFoundOr(err, "user", map[string]any{"id": userID})
	}

	reported, err := s.users.CountIssues(ctx, userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if reported > 0 {
		return apperrors.NewConflict("User still has reported issues", map[string]any{"id": userID, "issues": reported})
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return notFoundOr(err, "user", map[string]any{"id": userID})
	}
	return nil
}
