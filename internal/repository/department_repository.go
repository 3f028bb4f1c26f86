package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
	GetByName(ctx context.Context, name string) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
	UpdateType(ctx context.Context, id int64, deptType string) error
	Delete(ctx context.Context, id int64) error
	CountDependents(ctx context.Context, id int64) (domain.DepartmentDependents, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (name, type)
        VALUES ($1,$2)
        RETURNING department_id`
	return r.pool.QueryRow(ctx, query, dept.Name, dept.Type).Scan(&dept.ID)
}

func (r *departmentRepository) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	const query = `
        SELECT department_id, name, type
        FROM departments WHERE department_id=$1`
	var dept domain.Department
	if err := r.pool.QueryRow(ctx, query, id).Scan(&dept.ID, &dept.Name, &dept.Type); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	const query = `
        SELECT department_id, name, type
        FROM departments WHERE name=$1`
	var dept domain.Department
	if err := r.pool.QueryRow(ctx, query, name).Scan(&dept.ID, &dept.Name, &dept.Type); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	const query = `
        SELECT department_id, name, type
        FROM departments ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.Type); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}

func (r *departmentRepository) UpdateType(ctx context.Context, id int64, deptType string) error {
	const query = `UPDATE departments SET type=$1 WHERE department_id=$2`
	cmd, err := r.pool.Exec(ctx, query, deptType, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *departmentRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE department_id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *departmentRepository) CountDependents(ctx context.Context, id int64) (domain.DepartmentDependents, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM users WHERE department_id=$1),
            (SELECT COUNT(*) FROM issues WHERE require_department_id=$1),
            (SELECT COUNT(*) FROM licenses WHERE department_id=$1)`
	var deps domain.DepartmentDependents
	err := r.pool.QueryRow(ctx, query, id).Scan(&deps.Users, &deps.Issues, &deps.Licenses)
	return deps, err
}
