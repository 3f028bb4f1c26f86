package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-labs/issue-tracker/internal/persistence"
)

func licenseFile(name, body string) *LicenseFile {
	return &LicenseFile{
		Name:        name,
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Content:     strings.NewReader(body),
	}
}

func TestLicenseLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	library := f.department(t, "Library", "Regular")
	electrical := f.department(t, "Electrical", "Maintenance")
	blobs := persistence.NewMemoryBlobs()
	svc := NewLicenseService(LicenseDependencies{
		LicenseRepo:    f.store.Licenses(),
		DepartmentRepo: f.store.Departments(),
		Blobs:          blobs,
		Clock:          f.clock.Now,
	})

	license, err := svc.Upload(ctx, LicenseUploadInput{
		File:         licenseFile("../../etc/fire-safety.pdf", "v1"),
		ExpiryDate:   "2025-01-31",
		DepartmentID: strconv.FormatInt(library.ID, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, "fire-safety.pdf", license.FileName)
	assert.Equal(t, "Library", license.DepartmentName)
	assert.True(t, strings.HasPrefix(license.ObjectKey, "licenses/"))
	assert.Equal(t, 1, blobs.Len())

	id := strconv.FormatInt(license.ID, 10)
	_, obj, err := svc.Open(ctx, id)
	require.NoError(t, err)
	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, "v1", string(body))

	updated, err := svc.Update(ctx, id, LicenseUpdateInput{
		File:         licenseFile("fire-safety-2025.pdf", "v2"),
		DepartmentID: strconv.FormatInt(electrical.ID, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, "fire-safety-2025.pdf", updated.FileName)
	assert.Equal(t, electrical.ID, updated.DepartmentID)
	assert.Equal(t, "2025-01-31", updated.ExpiryDate.Format("2006-01-02"))
	assert.Equal(t, 1, blobs.Len())

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.Delete(ctx, id))
	assert.Equal(t, 0, blobs.Len())
	_, err = svc.Get(ctx, id)
	requireDomainError(t, err, "NOT_FOUND")
}

func TestLicenseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	library := f.department(t, "Library", "Regular")
	blobs := persistence.NewMemoryBlobs()
	svc := NewLicenseService(LicenseDependencies{
		LicenseRepo:    f.store.Licenses(),
		DepartmentRepo: f.store.Departments(),
		Blobs:          blobs,
	})
	deptID := strconv.FormatInt(library.ID, 10)

	_, err := svc.Upload(ctx, LicenseUploadInput{ExpiryDate: "2025-01-31", DepartmentID: deptID})
	domainErr := requireDomainError(t, err, "VALIDATION_FAILED")
	assert.Contains(t, domainErr.Errors, "file is required")

	_, err = svc.Upload(ctx, LicenseUploadInput{File: licenseFile("a.pdf", "x"), ExpiryDate: "31/01/2025", DepartmentID: deptID})
	requireDomainError(t, err, "VALIDATION_FAILED")

	_, err = svc.Upload(ctx, LicenseUploadInput{File: licenseFile("a.pdf", "x"), ExpiryDate: "2025-01-31", DepartmentID: "999"})
	requireDomainError(t, err, "NOT_FOUND")
	assert.Equal(t, 0, blobs.Len())

	_, err = svc.Update(ctx, "1", LicenseUpdateInput{ExpiryDate: "2025-01-31"})
	requireDomainError(t, err, "NOT_FOUND")
	_, _, err = svc.Open(ctx, "zero")
	requireDomainError(t, err, "VALIDATION_FAILED")
}
