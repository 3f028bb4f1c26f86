// Package memory provides in-process repository implementations. They back the
// service when no POSTGRES_DSN is configured and are used throughout the tests.
// Errors mirror the pgx ones (pgx.ErrNoRows, unique/foreign-key PgErrors) so
// callers cannot tell the two apart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/repository"
)

// Store holds all tables behind one lock so joins stay consistent.
type Store struct {
	mu          sync.RWMutex
	departments map[int64]domain.Department
	users       map[string]domain.User
	issues      map[int64]domain.Issue
	licenses    map[int64]domain.License
	seq         int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		departments: make(map[int64]domain.Department),
		users:       make(map[string]domain.User),
		issues:      make(map[int64]domain.Issue),
		licenses:    make(map[int64]domain.License),
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
}

// Departments returns a DepartmentRepository view of the store.
func (s *Store) Departments() repository.DepartmentRepository { return departmentRepo{s} }

// Users returns a UserRepository view of the store.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Issues returns an IssueRepository view of the store.
func (s *Store) Issues() repository.IssueRepository { return issueRepo{s} }

// Licenses returns a LicenseRepository view of the store.
func (s *Store) Licenses() repository.LicenseRepository { return licenseRepo{s} }

type departmentRepo struct{ s *Store }

func (r departmentRepo) Create(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.departments {
		if existing.Name == dept.Name {
			return uniqueViolation("departments_name_key")
		}
	}
	dept.ID = r.s.nextID()
	r.s.departments[dept.ID] = *dept
	return nil
}

func (r departmentRepo) GetByID(_ context.Context, id int64) (*domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	dept, ok := r.s.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &dept, nil
}

func (r departmentRepo) GetByName(_ context.Context, name string) (*domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, dept := range r.s.departments {
		if dept.Name == name {
			return &dept, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r departmentRepo) List(_ context.Context) ([]domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Department, 0, len(r.s.departments))
	for _, dept := range r.s.departments {
		out = append(out, dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r departmentRepo) UpdateType(_ context.Context, id int64, deptType string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	dept, ok := r.s.departments[id]
	if !ok {
		return pgx.ErrNoRows
	}
	dept.Type = deptType
	r.s.departments[id] = dept
	return nil
}

func (r departmentRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, user := range r.s.users {
		if user.DepartmentID != nil && *user.DepartmentID == id {
			return foreignKeyViolation("users_department_id_fkey")
		}
	}
	for _, issue := range r.s.issues {
		if issue.RequiredDepartmentID == id {
			return foreignKeyViolation("issues_require_department_id_fkey")
		}
	}
	for _, license := range r.s.licenses {
		if license.DepartmentID == id {
			return foreignKeyViolation("licenses_department_id_fkey")
		}
	}
	delete(r.s.departments, id)
	return nil
}

func (r departmentRepo) CountDependents(_ context.Context, id int64) (domain.DepartmentDependents, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var deps domain.DepartmentDependents
	for _, user := range r.s.users {
		if user.DepartmentID != nil && *user.DepartmentID == id {
			deps.Users++
		}
	}
	for _, issue := range r.s.issues {
		if issue.RequiredDepartmentID == id {
			deps.Issues++
		}
	}
	for _, license := range r.s.licenses {
		if license.DepartmentID == id {
			deps.Licenses++
		}
	}
	return deps, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return uniqueViolation("users_pkey")
	}
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return uniqueViolation("users_email_key")
		}
	}
	if user.DepartmentID != nil {
		if _, ok := r.s.departments[*user.DepartmentID]; !ok {
			return foreignKeyViolation("users_department_id_fkey")
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range r.s.users {
		if id != user.ID && existing.Email == user.Email {
			return uniqueViolation("users_email_key")
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.users, id)
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) FindByIDOrEmail(_ context.Context, id, email string) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.User
	for _, user := range r.s.users {
		if user.ID == id || user.Email == email {
			out = append(out, user)
		}
	}
	return out, nil
}

func (r userRepo) ListByDepartment(_ context.Context, departmentID int64) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.User
	for _, user := range r.s.users {
		if user.DepartmentID != nil && *user.DepartmentID == departmentID {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r userRepo) ListWithDepartment(_ context.Context) ([]domain.UserListing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.UserListing, 0, len(r.s.users))
	for _, user := range r.s.users {
		item := domain.UserListing{User: user}
		if user.DepartmentID != nil {
			if dept, ok := r.s.departments[*user.DepartmentID]; ok {
				name := dept.Name
				item.DepartmentName = &name
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r userRepo) CountIssues(_ context.Context, id string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, issue := range r.s.issues {
		if issue.ReporterID == id {
			count++
		}
	}
	return count, nil
}

type issueRepo struct{ s *Store }

func (r issueRepo) Create(_ context.Context, issue *domain.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[issue.RequiredDepartmentID]; !ok {
		return foreignKeyViolation("issues_require_department_id_fkey")
	}
	if _, ok := r.s.users[issue.ReporterID]; !ok {
		return foreignKeyViolation("issues_user_id_fkey")
	}
	issue.ID = r.s.nextID()
	r.s.issues[issue.ID] = *issue
	return nil
}

func (r issueRepo) GetByID(_ context.Context, id int64) (*domain.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	issue, ok := r.s.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &issue, nil
}

func (r issueRepo) ListOpenByDepartment(_ context.Context, departmentID int64) ([]domain.Issue, error) {
	return r.filter(func(i domain.Issue) bool { return i.RequiredDepartmentID == departmentID && !i.Complete }), nil
}

func (r issueRepo) ListOpenByReporter(_ context.Context, userID string) ([]domain.Issue, error) {
	return r.filter(func(i domain.Issue) bool { return i.ReporterID == userID && !i.Complete }), nil
}

func (r issueRepo) Acknowledge(_ context.Context, id int64, at time.Time) (*domain.Issue, error) {
	return r.transition(id, false, func(i *domain.Issue) {
		i.AcknowledgeAt = &at
	})
}

func (r issueRepo) Complete(_ context.Context, id int64, at time.Time) (*domain.Issue, error) {
	return r.transition(id, false, func(i *domain.Issue) {
		i.Complete = true
		i.UpdatedAt = &at
	})
}

func (r issueRepo) Reopen(_ context.Context, id int64, at time.Time) (*domain.Issue, error) {
	return r.transition(id, true, func(i *domain.Issue) {
		i.Complete = false
		i.AcknowledgeAt = &at
		i.UpdatedAt = &at
	})
}

func (r issueRepo) ListReport(_ context.Context, filter domain.ReportFilter) ([]domain.ReportRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.ReportRow
	for _, issue := range r.s.issues {
		required, ok := r.s.departments[issue.RequiredDepartmentID]
		if !ok {
			continue
		}
		reporter, ok := r.s.users[issue.ReporterID]
		if !ok {
			continue
		}
		row := domain.ReportRow{
			Issue:                  issue,
			RequiredDepartmentName: required.Name,
			UserName:               reporter.FullName,
		}
		if reporter.DepartmentID != nil {
			if dept, ok := r.s.departments[*reporter.DepartmentID]; ok {
				name := dept.Name
				row.UserDepartmentName = &name
			}
		}
		if !matchesReportFilter(row, filter) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchesReportFilter(row domain.ReportRow, filter domain.ReportFilter) bool {
	if filter.CreatedFrom != nil && row.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && !row.CreatedAt.Before(*filter.CreatedTo) {
		return false
	}
	if filter.ReportedDepartment != "" && (row.UserDepartmentName == nil || *row.UserDepartmentName != filter.ReportedDepartment) {
		return false
	}
	if filter.RequiredDepartment != "" && row.RequiredDepartmentName != filter.RequiredDepartment {
		return false
	}
	return true
}

func (r issueRepo) transition(id int64, wantComplete bool, apply func(*domain.Issue)) (*domain.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issue, ok := r.s.issues[id]
	if !ok || issue.Complete != wantComplete {
		return nil, pgx.ErrNoRows
	}
	apply(&issue)
	r.s.issues[id] = issue
	return &issue, nil
}

func (r issueRepo) filter(keep func(domain.Issue) bool) []domain.Issue {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Issue
	for _, issue := range r.s.issues {
		if keep(issue) {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type licenseRepo struct{ s *Store }

func (r licenseRepo) Create(_ context.Context, license *domain.License) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	dept, ok := r.s.departments[license.DepartmentID]
	if !ok {
		return foreignKeyViolation("licenses_department_id_fkey")
	}
	license.ID = r.s.nextID()
	license.DepartmentName = dept.Name
	r.s.licenses[license.ID] = *license
	return nil
}

func (r licenseRepo) Update(_ context.Context, license *domain.License) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.licenses[license.ID]; !ok {
		return pgx.ErrNoRows
	}
	dept, ok := r.s.departments[license.DepartmentID]
	if !ok {
		return foreignKeyViolation("licenses_department_id_fkey")
	}
	license.DepartmentName = dept.Name
	r.s.licenses[license.ID] = *license
	return nil
}

func (r licenseRepo) GetByID(_ context.Context, id int64) (*domain.License, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	license, ok := r.s.licenses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if dept, ok := r.s.departments[license.DepartmentID]; ok {
		license.DepartmentName = dept.Name
	}
	return &license, nil
}

func (r licenseRepo) List(_ context.Context) ([]domain.License, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.License, 0, len(r.s.licenses))
	for _, license := range r.s.licenses {
		if dept, ok := r.s.departments[license.DepartmentID]; ok {
			license.DepartmentName = dept.Name
		}
		out = append(out, license)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiryDate.Before(out[j].ExpiryDate)
	})
	return out, nil
}

func (r licenseRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.licenses[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.licenses, id)
	return nil
}
