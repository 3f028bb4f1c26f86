package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
)

// LicenseRepository manages license metadata. File contents live in blob storage.
type LicenseRepository interface {
	Create(ctx context.Context, license *domain.License) error
	Update(ctx context.Context, license *domain.License) error
	GetByID(ctx context.Context, id int64) (*domain.License, error)
	List(ctx context.Context) ([]domain.License, error)
	Delete(ctx context.Context, id int64) error
}

type licenseRepository struct {
	pool *pgxpool.Pool
}

// NewLicenseRepository instantiates repository.
func NewLicenseRepository(pool *pgxpool.Pool) LicenseRepository {
	return &licenseRepository{pool: pool}
}

const licenseSelect = `
        SELECT l.id, l.file_name, l.object_key, l.content_type, l.size_bytes, l.expiry_date,
               l.department_id, d.name, l.created_at
        FROM licenses l
        JOIN departments d ON d.department_id = l.department_id`

func scanLicense(row pgx.Row, license *domain.License) error {
	err := row.Scan(
		&license.ID,
		&license.FileName,
		&license.ObjectKey,
		&license.ContentType,
		&license.SizeBytes,
		&license.ExpiryDate,
		&license.DepartmentID,
		&license.DepartmentName,
		&license.CreatedAt,
	)
	license.CreatedAt = domain.InLocalWallClock(license.CreatedAt)
	return err
}

func (r *licenseRepository) Create(ctx context.Context, license *domain.License) error {
	const query = `
        INSERT INTO licenses (file_name, object_key, content_type, size_bytes, expiry_date, department_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		license.FileName,
		license.ObjectKey,
		license.ContentType,
		license.SizeBytes,
		license.ExpiryDate,
		license.DepartmentID,
		license.CreatedAt,
	).Scan(&license.ID)
}

func (r *licenseRepository) Update(ctx context.Context, license *domain.License) error {
	const query = `
        UPDATE licenses SET file_name=$1, object_key=$2, content_type=$3, size_bytes=$4, expiry_date=$5, department_id=$6
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		license.FileName,
		license.ObjectKey,
		license.ContentType,
		license.SizeBytes,
		license.ExpiryDate,
		license.DepartmentID,
		license.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *licenseRepository) GetByID(ctx context.Context, id int64) (*domain.License, error) {
	var license domain.License
	if err := scanLicense(r.pool.QueryRow(ctx, licenseSelect+` WHERE l.id=$1`, id), &license); err != nil {
		return nil, err
	}
	return &license, nil
}

func (r *licenseRepository) List(ctx context.Context) ([]domain.License, error) {
	rows, err := r.pool.Query(ctx, licenseSelect+` ORDER BY l.expiry_date ASC, l.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.License
	for rows.Next() {
		var license domain.License
		if err := scanLicense(rows, &license); err != nil {
			return nil, err
		}
		result = append(result, license)
	}
	return result, rows.Err()
}

func (r *licenseRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM licenses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
