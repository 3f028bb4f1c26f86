package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/events"
	"github.com/helpdesk-labs/issue-tracker/internal/observability"
	"github.com/helpdesk-labs/issue-tracker/internal/repository"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

// NoAssigneeWarning is attached to issues routed to a department without users.
const NoAssigneeWarning = "Issue recorded, but the required department has no users to notify"

// IssueService coordinates the issue lifecycle.
type IssueService struct {
	issues      repository.IssueRepository
	departments repository.DepartmentRepository
	users       repository.UserRepository
	publisher   events.Publisher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         Clock
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo      repository.IssueRepository
	DepartmentRepo repository.DepartmentRepository
	UserRepo       repository.UserRepository
	Publisher      events.Publisher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Clock          Clock
}

// IssueCreateInput describes an issue submission.
type IssueCreateInput struct {
	Issue             string
	Description       *string
	Address           string
	RequireDepartment string
}

// IssueCreateResult is the stored issue plus routing outcome.
type IssueCreateResult struct {
	Issue          *domain.Issue
	DepartmentName string
	Warning        *string
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		issues:      deps.IssueRepo,
		departments: deps.DepartmentRepo,
		users:       deps.UserRepo,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         clockOrDefault(deps.Clock),
	}
}

// CreateIssue validates and stores an issue, then notifies the first member
// of the required department. The issue is kept even when nobody can be
// notified.
func (s *IssueService) CreateIssue(ctx context.Context, reporterID string, input IssueCreateInput) (*IssueCreateResult, error) {
	if missing := requireFields(
		[2]string{"issue", input.Issue},
		[2]string{"address", input.Address},
		[2]string{"requireDepartment", input.RequireDepartment},
	); len(missing) > 0 {
		return nil, apperrors.NewValidationError("All fields are required", nil, missing...)
	}

	deptName := strings.TrimSpace(input.RequireDepartment)
	dept, err := s.departments.GetByName(ctx, deptName)
	if err != nil {
		return nil, notFoundOr(err, "department", map[string]any{"name": deptName})
	}

	candidates, err := s.users.ListByDepartment(ctx, dept.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	issue := &domain.Issue{
		Summary:              strings.TrimSpace(input.Issue),
		Description:          optionalString(input.Description),
		Address:              strings.TrimSpace(input.Address),
		RequiredDepartmentID: dept.ID,
		ReporterID:           reporterID,
		CreatedAt:            s.now(),
	}
	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &IssueCreateResult{Issue: issue, DepartmentName: dept.Name}
	if len(candidates) == 0 {
		warning := NoAssigneeWarning
		result.Warning = &warning
		s.logger.Warn("issue routed to department without users",
			zap.Int64("issue_id", issue.ID),
			zap.String("department", dept.Name))
		return result, nil
	}

	s.notifyAssignee(ctx, issue, dept, candidates[0])
	return result, nil
}

func (s *IssueService) notifyAssignee(ctx context.Context, issue *domain.Issue, dept *domain.Department, assignee domain.User) {
	if strings.TrimSpace(assignee.Email) == "" {
		s.logger.Warn("email not available for user", zap.String("user_id", assignee.ID), zap.Int64("issue_id", issue.ID))
		return
	}
	if s.publisher == nil {
		return
	}

	event := events.NewEvent(events.EventIssueCreated, issue.ID, issue.ReporterID, issue.CreatedAt, events.IssueCreatedPayload{
		Issue:          issue.Summary,
		Description:    issue.Description,
		Address:        issue.Address,
		DepartmentName: dept.Name,
		RecipientID:    assignee.ID,
		RecipientName:  assignee.FullName,
		RecipientEmail: assignee.Email,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("issue notification not queued", zap.Int64("issue_id", issue.ID), zap.Error(err))
		return
	}
	s.metrics.RecordNotification("queued")
}

// ListDepartmentIssues returns open issues routed to the caller's department.
func (s *IssueService) ListDepartmentIssues(ctx context.Context, principal *auth.Principal) ([]domain.Issue, error) {
	deptID := principal.DepartmentID()
	if deptID == nil {
		return nil, apperrors.NewValidationError("user is not assigned to a department", nil)
	}
	issues, err := s.issues.ListOpenByDepartment(ctx, *deptID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return issues, nil
}

// ListReporterIssues returns the caller's open issues.
func (s *IssueService) ListReporterIssues(ctx context.Context, principal *auth.Principal) ([]domain.Issue, error) {
	issues, err := s.issues.ListOpenByReporter(ctx, principal.UserID())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return issues, nil
}

// GetIssue returns a single issue visible to the caller.
func (s *IssueService) GetIssue(ctx context.Context, principal *auth.Principal, id int64) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "issue", map[string]any{"id": id})
	}
	if !canTouch(principal, issue) {
		return nil, apperrors.NewForbidden("issue belongs to another department")
	}
	return issue, nil
}

// Acknowledge stamps acknowledge_at on an open or acknowledged issue.
func (s *IssueService) Acknowledge(ctx context.Context, principal *auth.Principal, id int64) (*domain.Issue, error) {
	return s.transition(ctx, principal, id, events.EventIssueAcknowledged, s.issues.Acknowledge,
		"resolved issues must be reopened before they can be acknowledged")
}

// Complete resolves an open or acknowledged issue.
func (s *IssueService) Complete(ctx context.Context, principal *auth.Principal, id int64) (*domain.Issue, error) {
	return s.transition(ctx, principal, id, events.EventIssueCompleted, s.issues.Complete,
		"issue is already resolved")
}

// Reopen moves a resolved issue back to acknowledged.
func (s *IssueService) Reopen(ctx context.Context, principal *auth.Principal, id int64) (*domain.Issue, error) {
	return s.transition(ctx, principal, id, events.EventIssueReopened, s.issues.Reopen,
		"only resolved issues can be reopened")
}

type transitionFunc func(ctx context.Context, id int64, at time.Time) (*domain.Issue, error)

func (s *IssueService) transition(ctx context.Context, principal *auth.Principal, id int64, eventType events.EventType, apply transitionFunc, conflict string) (*domain.Issue, error) {
	current, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "issue", map[string]any{"id": id})
	}
	if !canTouch(principal, current) {
		return nil, apperrors.NewForbidden("issue belongs to another department")
	}

	at := s.now()
	updated, err := apply(ctx, id, at)
	if err != nil {
		if !isNoRows(err) {
			return nil, apperrors.MapError(err)
		}
		// The conditional update matched nothing: either the row vanished or
		// its completion state is not the one this transition starts from.
		latest, getErr := s.issues.GetByID(ctx, id)
		if getErr != nil {
			return nil, notFoundOr(getErr, "issue", map[string]any{"id": id})
		}
		return nil, apperrors.NewConflict(conflict, map[string]any{"id": id, "status": latest.Status()})
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewEvent(eventType, id, principal.UserID(), at, nil)); err != nil {
			s.logger.Debug("transition event not queued", zap.Int64("issue_id", id), zap.Error(err))
		}
	}
	return updated, nil
}

// canTouch allows admins, the reporter and members of the required department.
func canTouch(principal *auth.Principal, issue *domain.Issue) bool {
	if auth.Can(principal, auth.CapabilityAdmin) {
		return true
	}
	if principal.UserID() == issue.ReporterID {
		return true
	}
	deptID := principal.DepartmentID()
	return deptID != nil && *deptID == issue.RequiredDepartmentID
}
