package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/issue-tracker/internal/api/dto"
	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/service"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

// IssuesHandler manages issue reporting and the department work queue.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// CreateIssue POST /issue-form.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateIssueRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.service.CreateIssue(c.UserContext(), p.UserID(), service.IssueCreateInput{
		Issue:             req.Issue,
		Description:       req.Description,
		Address:           req.Address,
		RequireDepartment: req.RequireDepartment,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.IssueCreatedResponse{
		Issue:             dto.NewIssueResponse(result.Issue),
		RequireDepartment: result.DepartmentName,
		Warning:           result.Warning,
	}, "Issue created successfully")
}

// ListDepartmentIssues GET /issues.
func (h *IssuesHandler) ListDepartmentIssues(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	issues, err := h.service.ListDepartmentIssues(c.UserContext(), p)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewIssueList(issues), "Issues fetched successfully")
}

// ListReporterIssues GET /user-issues.
func (h *IssuesHandler) ListReporterIssues(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	issues, err := h.service.ListReporterIssues(c.UserContext(), p)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewIssueList(issues), "Issues fetched successfully for the user")
}

// GetIssue GET /issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, ok := dto.IssueRef(c.Params("id")).Int64()
	if !ok {
		return apperrors.NewValidationError("id must be a positive integer", map[string]any{"id": c.Params("id")})
	}
	issue, err := h.service.GetIssue(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewIssueResponse(issue), "Issue fetched successfully")
}

// Complete POST /complete-issue.
func (h *IssuesHandler) Complete(c *fiber.Ctx) error {
	return h.transition(c, h.service.Complete, "Issue marked as complete successfully")
}

// Acknowledge POST /acknowledge-response.
func (h *IssuesHandler) Acknowledge(c *fiber.Ctx) error {
	return h.transition(c, h.service.Acknowledge, "Response acknowledged successfully")
}

// Reopen POST /reopen-issue.
func (h *IssuesHandler) Reopen(c *fiber.Ctx) error {
	return h.transition(c, h.service.Reopen, "Issue reopened successfully")
}

type issueTransition func(ctx context.Context, p *auth.Principal, id int64) (*domain.Issue, error)

func (h *IssuesHandler) transition(c *fiber.Ctx, apply issueTransition, message string) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.IssueActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ref := req.Ref()
	id, ok := ref.Int64()
	if !ok {
		return apperrors.NewValidationError("issueId is required", map[string]any{"issueId": string(ref)}, "issueId must be a positive integer")
	}
	issue, err := apply(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewIssueResponse(issue), message)
}
