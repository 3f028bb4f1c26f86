package domain

import "time"

// IssueStatus is derived from the completion flag and acknowledge timestamp.
type IssueStatus string

const (
	IssueStatusOpen         IssueStatus = "OPEN"
	IssueStatusAcknowledged IssueStatus = "ACKNOWLEDGED"
	IssueStatusResolved     IssueStatus = "RESOLVED"
)

// Issue is a reported facility problem routed to a department.
type Issue struct {
	ID                   int64
	Summary              string
	Description          *string
	Address              string
	RequiredDepartmentID int64
	ReporterID           string
	Complete             bool
	AcknowledgeAt        *time.Time
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// LocalizeTimestamps moves timestamps scanned from TIMESTAMP columns into time.Local.
func (i *Issue) LocalizeTimestamps() {
	i.CreatedAt = InLocalWallClock(i.CreatedAt)
	i.AcknowledgeAt = inLocalWallClockPtr(i.AcknowledgeAt)
	i.UpdatedAt = inLocalWallClockPtr(i.UpdatedAt)
}

// Status maps the stored columns onto the lifecycle.
func (i *Issue) Status() IssueStatus {
	switch {
	case i.Complete:
		return IssueStatusResolved
	case i.AcknowledgeAt != nil:
		return IssueStatusAcknowledged
	default:
		return IssueStatusOpen
	}
}
