package dto

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
)

// CreateIssueRequest payload for POST /issue-form.
type CreateIssueRequest struct {
	Issue             string  `json:"issue"`
	Description       *string `json:"description"`
	Address           string  `json:"address"`
	RequireDepartment string  `json:"requireDepartment"`
}

// IssueRef accepts an issue id sent either as a JSON number or a string.
type IssueRef string

// UnmarshalJSON implements json.Unmarshaler.
func (r *IssueRef) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*r = IssueRef(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = IssueRef(s)
	return nil
}

// Int64 parses the reference; ok is false when it is not a positive integer.
func (r IssueRef) Int64() (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(r)), 10, 64)
	return id, err == nil && id > 0
}

// IssueActionRequest targets one issue. responseId is the legacy name used by
// the acknowledge endpoint.
type IssueActionRequest struct {
	IssueID    IssueRef `json:"issueId"`
	ResponseID IssueRef `json:"responseId"`
}

// Ref returns whichever identifier was supplied, preferring issueId.
func (r IssueActionRequest) Ref() IssueRef {
	if strings.TrimSpace(string(r.IssueID)) != "" {
		return r.IssueID
	}
	return r.ResponseID
}

// IssueResponse mirrors the issues table.
type IssueResponse struct {
	ID                  int64              `json:"id"`
	Issue               string             `json:"issue"`
	Description         *string            `json:"description"`
	Address             string             `json:"address"`
	RequireDepartmentID int64              `json:"require_department_id"`
	UserID              string             `json:"user_id"`
	Complete            bool               `json:"complete"`
	Status              domain.IssueStatus `json:"status"`
	AcknowledgeAt       *time.Time         `json:"acknowledge_at"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           *time.Time         `json:"updated_at"`
}

// IssueCreatedResponse is returned by POST /issue-form.
type IssueCreatedResponse struct {
	Issue             IssueResponse `json:"issue"`
	RequireDepartment string        `json:"requireDepartment"`
	Warning           *string       `json:"warning"`
}

// NewIssueResponse maps a domain issue.
func NewIssueResponse(i *domain.Issue) IssueResponse {
	return IssueResponse{
		ID:                  i.ID,
		Issue:               i.Summary,
		Description:         i.Description,
		Address:             i.Address,
		RequireDepartmentID: i.RequiredDepartmentID,
		UserID:              i.ReporterID,
		Complete:            i.Complete,
		Status:              i.Status(),
		AcknowledgeAt:       i.AcknowledgeAt,
		CreatedAt:           i.CreatedAt,
		UpdatedAt:           i.UpdatedAt,
	}
}

// NewIssueList maps a slice; the result is never nil.
func NewIssueList(issues []domain.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		out = append(out, NewIssueResponse(&issues[i]))
	}
	return out
}
