package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
)

// IssueRepository encapsulates issue persistence.
//
// The transition methods are conditional updates: they return pgx.ErrNoRows
// when the issue is missing or not in the expected completion state, so
// concurrent transitions cannot silently overwrite each other.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id int64) (*domain.Issue, error)
	ListOpenByDepartment(ctx context.Context, departmentID int64) ([]domain.Issue, error)
	ListOpenByReporter(ctx context.Context, userID string) ([]domain.Issue, error)
	Acknowledge(ctx context.Context, id int64, at time.Time) (*domain.Issue, error)
	Complete(ctx context.Context, id int64, at time.Time) (*domain.Issue, error)
	Reopen(ctx context.Context, id int64, at time.Time) (*domain.Issue, error)
	ListReport(ctx context.Context, filter domain.ReportFilter) ([]domain.ReportRow, error)
}

type issueRepository struct {
	pool *pgxpool.Pool
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(pool *pgxpool.Pool) IssueRepository {
	return &issueRepository{pool: pool}
}

const issueColumns = `id, issue, description, address, require_department_id, user_id, complete, acknowledge_at, created_at, updated_at`

func scanIssue(row pgx.Row, issue *domain.Issue) error {
	err := row.Scan(
		&issue.ID,
		&issue.Summary,
		&issue.Description,
		&issue.Address,
		&issue.RequiredDepartmentID,
		&issue.ReporterID,
		&issue.Complete,
		&issue.AcknowledgeAt,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)
	issue.LocalizeTimestamps()
	return err
}

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	const query = `
        INSERT INTO issues (issue, description, address, require_department_id, user_id, complete, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		issue.Summary,
		issue.Description,
		issue.Address,
		issue.RequiredDepartmentID,
		issue.ReporterID,
		issue.Complete,
		issue.CreatedAt,
	).Scan(&issue.ID)
}

func (r *issueRepository) GetByID(ctx context.Context, id int64) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id=$1`
	var issue domain.Issue
	if err := scanIssue(r.pool.QueryRow(ctx, query, id), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) ListOpenByDepartment(ctx context.Context, departmentID int64) ([]domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE require_department_id=$1 AND complete=FALSE ORDER BY created_at DESC`
	return r.list(ctx, query, departmentID)
}

func (r *issueRepository) ListOpenByReporter(ctx context.Context, userID string) ([]domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE user_id=$1 AND complete=FALSE ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *issueRepository) Acknowledge(ctx context.Context, id int64, at time.Time) (*domain.Issue, error) {
	query := `UPDATE issues SET acknowledge_at=$2 WHERE id=$1 AND complete=FALSE RETURNING ` + issueColumns
	return r.transition(ctx, query, id, at)
}

func (r *issueRepository) Complete(ctx context.Context, id int64, at time.Time) (*domain.Issue, error) {
	query := `UPDATE issues SET complete=TRUE, updated_at=$2 WHERE id=$1 AND complete=FALSE RETURNING ` + issueColumns
	return r.transition(ctx, query, id, at)
}

func (r *issueRepository) Reopen(ctx context.Context, id int64, at time.Time) (*domain.Issue, error) {
	query := `UPDATE issues SET complete=FALSE, acknowledge_at=$2, updated_at=$2 WHERE id=$1 AND complete=TRUE RETURNING ` + issueColumns
	return r.transition(ctx, query, id, at)
}

func (r *issueRepository) ListReport(ctx context.Context, filter domain.ReportFilter) ([]domain.ReportRow, error) {
	query := `
        SELECT i.id, i.issue, i.description, i.address, i.require_department_id, i.user_id, i.complete,
               i.acknowledge_at, i.created_at, i.updated_at,
               rd.name, u.full_name, ud.name
        FROM issues i
        JOIN departments rd ON rd.department_id = i.require_department_id
        JOIN users u ON u.id = i.user_id
        LEFT JOIN departments ud ON ud.department_id = u.department_id`
	args := []any{}
	clauses := []string{}

	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("i.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("i.created_at < $%d", len(args)))
	}
	if filter.ReportedDepartment != "" {
		args = append(args, filter.ReportedDepartment)
		clauses = append(clauses, fmt.Sprintf("ud.name = $%d", len(args)))
	}
	if filter.RequiredDepartment != "" {
		args = append(args, filter.RequiredDepartment)
		clauses = append(clauses, fmt.Sprintf("rd.name = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY i.id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReportRow
	for rows.Next() {
		var row domain.ReportRow
		if err := rows.Scan(
			&row.ID,
			&row.Summary,
			&row.Description,
			&row.Address,
			&row.RequiredDepartmentID,
			&row.ReporterID,
			&row.Complete,
			&row.AcknowledgeAt,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.RequiredDepartmentName,
			&row.UserName,
			&row.UserDepartmentName,
		); err != nil {
			return nil, err
		}
		row.LocalizeTimestamps()
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *issueRepository) transition(ctx context.Context, query string, id int64, at time.Time) (*domain.Issue, error) {
	var issue domain.Issue
	if err := scanIssue(r.pool.QueryRow(ctx, query, id, at), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) list(ctx context.Context, query string, args ...any) ([]domain.Issue, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := scanIssue(rows, &issue); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}
