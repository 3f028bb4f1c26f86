package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated      EventType = "issue.created"
	EventIssueAcknowledged EventType = "issue.acknowledged"
	EventIssueCompleted    EventType = "issue.completed"
	EventIssueReopened     EventType = "issue.reopened"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   int64       `json:"issue_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, issueID int64, actorID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		IssueID:   issueID,
		ActorID:   actorID,
		Timestamp: at,
		Payload:   payload,
	}
}

// IssueCreatedPayload carries what the assignment mail needs.
type IssueCreatedPayload struct {
	Issue          string  `json:"issue"`
	Description    *string `json:"description,omitempty"`
	Address        string  `json:"address"`
	DepartmentName string  `json:"department_name"`
	RecipientID    string  `json:"recipient_id"`
	RecipientName  string  `json:"recipient_name"`
	RecipientEmail string  `json:"recipient_email"`
}
