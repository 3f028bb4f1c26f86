package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindByIDOrEmail(ctx context.Context, id, email string) ([]domain.User, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]domain.User, error)
	ListWithDepartment(ctx context.Context) ([]domain.UserListing, error)
	CountIssues(ctx context.Context, id string) (int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, full_name, email, phone_number, department_id, password, is_admin, created_at`

func scanUser(row pgx.Row, user *domain.User) error {
	err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PhoneNumber,
		&user.DepartmentID,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	user.CreatedAt = domain.InLocalWallClock(user.CreatedAt)
	return err
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, full_name, email, phone_number, department_id, password, is_admin, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.FullName,
		user.Email,
		user.PhoneNumber,
		user.DepartmentID,
		user.PasswordHash,
		user.IsAdmin,
		user.CreatedAt,
	)
	return err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET full_name=$1, email=$2, phone_number=$3, department_id=$4, password=$5, is_admin=$6
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		user.FullName,
		user.Email,
		user.PhoneNumber,
		user.DepartmentID,
		user.PasswordHash,
		user.IsAdmin,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDOrEmail(ctx context.Context, id, email string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1 OR email=$2`
	return r.list(ctx, query, id, email)
}

func (r *userRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE department_id=$1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, departmentID)
}

func (r *userRepository) ListWithDepartment(ctx context.Context) ([]domain.UserListing, error) {
	const query = `
        SELECT u.id, u.full_name, u.email, u.phone_number, u.department_id, u.password, u.is_admin, u.created_at,
               d.name
        FROM users u
        LEFT JOIN departments d ON u.department_id = d.department_id
        ORDER BY u.created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserListing
	for rows.Next() {
		var item domain.UserListing
		if err := rows.Scan(
			&item.ID,
			&item.FullName,
			&item.Email,
			&item.PhoneNumber,
			&item.DepartmentID,
			&item.PasswordHash,
			&item.IsAdmin,
			&item.CreatedAt,
			&item.DepartmentName,
		); err != nil {
			return nil, err
		}
		item.CreatedAt = domain.InLocalWallClock(item.CreatedAt)
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *userRepository) CountIssues(ctx context.Context, id string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues WHERE user_id=$1`, id).Scan(&count)
	return count, err
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
