package service

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/persistence"
	"github.com/helpdesk-labs/issue-tracker/internal/repository"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

// BlobStore holds license file contents.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*persistence.Object, error)
	Remove(ctx context.Context, key string) error
}

// LicenseService manages license documents and their metadata.
type LicenseService struct {
	licenses    repository.LicenseRepository
	departments repository.DepartmentRepository
	blobs       BlobStore
	logger      *zap.Logger
	now         Clock
}

// LicenseDependencies bundles collaborators for the license service.
type LicenseDependencies struct {
	LicenseRepo    repository.LicenseRepository
	DepartmentRepo repository.DepartmentRepository
	Blobs          BlobStore
	Logger         *zap.Logger
	Clock          Clock
}

// NewLicenseService constructs the service.
func NewLicenseService(deps LicenseDependencies) *LicenseService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LicenseService{
		licenses:    deps.LicenseRepo,
		departments: deps.DepartmentRepo,
		blobs:       deps.Blobs,
		logger:      logger,
		now:         clockOrDefault(deps.Clock),
	}
}

// LicenseFile is an uploaded document.
type LicenseFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// LicenseUploadInput describes a new license.
type LicenseUploadInput struct {
	File         *LicenseFile
	ExpiryDate   string
	DepartmentID string
}

// LicenseUpdateInput is a partial license update. Empty fields are left alone.
type LicenseUpdateInput struct {
	File         *LicenseFile
	ExpiryDate   string
	DepartmentID string
}

// Upload stores the file and records the license.
func (s *LicenseService) Upload(ctx context.Context, input LicenseUploadInput) (*domain.License, error) {
	var fieldErrors []string
	if input.File == nil || input.File.Size == 0 {
		fieldErrors = append(fieldErrors, "file is required")
	}
	fieldErrors = append(fieldErrors, requireFields(
		[2]string{"expiry_date", input.ExpiryDate},
		[2]string{"department_id", input.DepartmentID},
	)...)
	if len(fieldErrors) > 0 {
		return nil, apperrors.NewValidationError("File, expiry date and department are required", nil, fieldErrors...)
	}

	expiry, err := parseExpiry(input.ExpiryDate)
	if err != nil {
		return nil, err
	}
	dept, err := s.department(ctx, input.DepartmentID)
	if err != nil {
		return nil, err
	}

	license := &domain.License{
		ExpiryDate:   expiry,
		DepartmentID: dept.ID,
		CreatedAt:    s.now(),
	}
	if err := s.storeFile(ctx, license, input.File); err != nil {
		return nil, err
	}
	if err := s.licenses.Create(ctx, license); err != nil {
		s.discard(ctx, license.ObjectKey)
		return nil, apperrors.MapError(err)
	}
	license.DepartmentName = dept.Name
	return license, nil
}

// List returns all licenses ordered by expiry.
func (s *LicenseService) List(ctx context.Context) ([]domain.License, error) {
	licenses, err := s.licenses.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return licenses, nil
}

// Get returns a license's metadata.
func (s *LicenseService) Get(ctx context.Context, rawID string) (*domain.License, error) {
	id, err := parseID(rawID, "id")
	if err != nil {
		return nil, err
	}
	license, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "license", map[string]any{"id": id})
	}
	return license, nil
}

// Open returns the license and a reader over its file.
func (s *LicenseService) Open(ctx context.Context, rawID string) (*domain.License, *persistence.Object, error) {
	license, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.blobs.Get(ctx, license.ObjectKey)
	if err != nil {
		if errors.Is(err, persistence.ErrObjectNotFound) {
			return nil, nil, apperrors.NewNotFound("license file", map[string]any{"id": license.ID})
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	return license, obj, nil
}

// Update changes expiry, department or file of a license.
func (s *LicenseService) Update(ctx context.Context, rawID string, input LicenseUpdateInput) (*domain.License, error) {
	license, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}

	hasFile := input.File != nil && input.File.Size > 0
	if strings.TrimSpace(input.ExpiryDate) == "" && strings.TrimSpace(input.DepartmentID) == "" && !hasFile {
		return nil, apperrors.NewValidationError("No fields provided for update", nil)
	}

	if strings.TrimSpace(input.ExpiryDate) != "" {
		expiry, err := parseExpiry(input.ExpiryDate)
		if err != nil {
			return nil, err
		}
		license.ExpiryDate = expiry
	}
	if strings.TrimSpace(input.DepartmentID) != "" {
		dept, err := s.department(ctx, input.DepartmentID)
		if err != nil {
			return nil, err
		}
		license.DepartmentID = dept.ID
	}

	oldKey := license.ObjectKey
	if hasFile {
		if err := s.storeFile(ctx, license, input.File); err != nil {
			return nil, err
		}
	}
	if err := s.licenses.Update(ctx, license); err != nil {
		if hasFile {
			s.discard(ctx, license.ObjectKey)
		}
		return nil, notFoundOr(err, "license", map[string]any{"id": license.ID})
	}
	if hasFile {
		s.discard(ctx, oldKey)
	}

	updated, err := s.licenses.GetByID(ctx, license.ID)
	if err != nil {
		return nil, notFoundOr(err, "license", map[string]any{"id": license.ID})
	}
	return updated, nil
}

// Delete removes the license row and its file.
func (s *LicenseService) Delete(ctx context.Context, rawID string) error {
	license, err := s.Get(ctx, rawID)
	if err != nil {
		return err
	}
	if err := s.licenses.Delete(ctx, license.ID); err != nil {
		return notFoundOr(err, "license", map[string]any{"id": license.ID})
	}
	s.discard(ctx, license.ObjectKey)
	return nil
}

func (s *LicenseService) storeFile(ctx context.Context, license *domain.License, file *LicenseFile) error {
	name := cleanFileName(file.Name)
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := "licenses/" + uuid.NewString() + "/" + name
	if err := s.blobs.Put(ctx, key, file.Content, file.Size, contentType); err != nil {
		return apperrors.NewInternalError(err)
	}
	license.FileName = name
	license.ObjectKey = key
	license.ContentType = contentType
	license.SizeBytes = file.Size
	return nil
}

// discard removes an orphaned object; failures only leave garbage behind.
func (s *LicenseService) discard(ctx context.Context, key string) {
	if err := s.blobs.Remove(ctx, key); err != nil {
		s.logger.Warn("failed to remove license object", zap.String("key", key), zap.Error(err))
	}
}

func (s *LicenseService) department(ctx context.Context, rawID string) (*domain.Department, error) {
	id, err := parseID(rawID, "department_id")
	if err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "department", map[string]any{"id": id})
	}
	return dept, nil
}

func parseExpiry(raw string) (time.Time, error) {
	expiry, err := time.Parse(domain.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("expiry_date must be formatted YYYY-MM-DD", map[string]any{"expiry_date": raw})
	}
	return expiry, nil
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "license"
	}
	return name
}
