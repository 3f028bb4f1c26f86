package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/repository"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

const reportSheet = "Report"

// ReportService builds the admin issue report.
type ReportService struct {
	issues repository.IssueRepository
}

// NewReportService constructs the service.
func NewReportService(issues repository.IssueRepository) *ReportService {
	return &ReportService{issues: issues}
}

// ReportQuery holds the raw report filters. From and To are YYYY-MM-DD and
// inclusive.
type ReportQuery struct {
	From               string
	To                 string
	ReportedDepartment string
	RequiredDepartment string
}

// ReportEntry is a report row with display-formatted timestamps.
type ReportEntry struct {
	ID                     int64
	Issue                  string
	Description            *string
	Address                string
	RequireDepartmentID    int64
	Complete               bool
	UserID                 string
	AcknowledgeAt          *string
	CreatedAt              string
	UpdatedAt              *string
	RequiredDepartmentName string
	UserName               string
	UserDepartmentName     *string
}

// Build returns one entry per matching issue, ordered by id.
func (s *ReportService) Build(ctx context.Context, query ReportQuery) ([]ReportEntry, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, err
	}

	rows, err := s.issues.ListReport(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	entries := make([]ReportEntry, 0, len(rows))
	for _, row := range rows {
		created := row.CreatedAt
		entries = append(entries, ReportEntry{
			ID:                     row.ID,
			Issue:                  row.Summary,
			Description:            row.Description,
			Address:                row.Address,
			RequireDepartmentID:    row.RequiredDepartmentID,
			Complete:               row.Complete,
			UserID:                 row.ReporterID,
			AcknowledgeAt:          domain.FormatDisplayTime(row.AcknowledgeAt),
			CreatedAt:              *domain.FormatDisplayTime(&created),
			UpdatedAt:              domain.FormatDisplayTime(row.UpdatedAt),
			RequiredDepartmentName: row.RequiredDepartmentName,
			UserName:               row.UserName,
			UserDepartmentName:     row.UserDepartmentName,
		})
	}
	return entries, nil
}

var reportHeaders = []interface{}{
	"ID", "Issue", "Description", "Address", "Required Department", "Reported By",
	"Reporter Department", "Status", "Created At", "Acknowledged At", "Updated At",
}

// Export renders the report as an XLSX workbook.
func (s *ReportService) Export(ctx context.Context, query ReportQuery) ([]byte, error) {
	entries, err := s.Build(ctx, query)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeaders); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(reportHeaders))
	if err := f.SetCellStyle(reportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := f.SetColWidth(reportSheet, "A", lastCol, 20); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	for i, entry := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		values := []interface{}{
			entry.ID,
			entry.Issue,
			deref(entry.Description),
			entry.Address,
			entry.RequiredDepartmentName,
			entry.UserName,
			deref(entry.UserDepartmentName),
			entryStatus(entry),
			entry.CreatedAt,
			deref(entry.AcknowledgeAt),
			deref(entry.UpdatedAt),
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("write workbook: %w", err))
	}
	return buf.Bytes(), nil
}

// ExportFileName names the workbook after the filtered range.
func (q ReportQuery) ExportFileName() string {
	name := "issue-report"
	if q.From != "" {
		name += "-from-" + q.From
	}
	if q.To != "" {
		name += "-to-" + q.To
	}
	return name + ".xlsx"
}

func (q ReportQuery) filter() (domain.ReportFilter, error) {
	filter := domain.ReportFilter{
		ReportedDepartment: strings.TrimSpace(q.ReportedDepartment),
		RequiredDepartment: strings.TrimSpace(q.RequiredDepartment),
	}
	var fieldErrors []string

	if q.From != "" {
		from, err := time.ParseInLocation(domain.DateLayout, q.From, time.Local)
		if err != nil {
			fieldErrors = append(fieldErrors, "from must be formatted YYYY-MM-DD")
		} else {
			filter.CreatedFrom = &from
		}
	}
	if q.To != "" {
		to, err := time.ParseInLocation(domain.DateLayout, q.To, time.Local)
		if err != nil {
			fieldErrors = append(fieldErrors, "to must be formatted YYYY-MM-DD")
		} else {
			end := to.AddDate(0, 0, 1)
			filter.CreatedTo = &end
		}
	}
	if len(fieldErrors) > 0 {
		return filter, apperrors.NewValidationError("invalid report filter", nil, fieldErrors...)
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && !filter.CreatedFrom.Before(*filter.CreatedTo) {
		return filter, apperrors.NewValidationError("invalid report filter", nil, "from must not be after to")
	}
	return filter, nil
}

func entryStatus(e ReportEntry) string {
	switch {
	case e.Complete:
		return string(domain.IssueStatusResolved)
	case e.AcknowledgeAt != nil:
		return string(domain.IssueStatusAcknowledged)
	default:
		return string(domain.IssueStatusOpen)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
