package dto

import (
	"time"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/service"
)

// DepartmentRequest payload for department create and type updates.
type DepartmentRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DepartmentResponse mirrors the departments table.
type DepartmentResponse struct {
	DepartmentID int64  `json:"department_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
}

// DepartmentIDResponse acknowledges a delete.
type DepartmentIDResponse struct {
	DepartmentID int64 `json:"departmentId"`
}

// NewDepartmentResponse maps a department.
func NewDepartmentResponse(d *domain.Department) DepartmentResponse {
	return DepartmentResponse{DepartmentID: d.ID, Name: d.Name, Type: d.Type}
}

// NewDepartmentList maps a slice; the result is never nil.
func NewDepartmentList(depts []domain.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(depts))
	for i := range depts {
		out = append(out, NewDepartmentResponse(&depts[i]))
	}
	return out
}

// LicenseResponse is license metadata; the file is served separately.
type LicenseResponse struct {
	ID             int64     `json:"id"`
	FileName       string    `json:"file_name"`
	ContentType    string    `json:"content_type"`
	SizeBytes      int64     `json:"size_bytes"`
	ExpiryDate     string    `json:"expiry_date"`
	DepartmentID   int64     `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewLicenseResponse maps a license.
func NewLicenseResponse(l *domain.License) LicenseResponse {
	return LicenseResponse{
		ID:             l.ID,
		FileName:       l.FileName,
		ContentType:    l.ContentType,
		SizeBytes:      l.SizeBytes,
		ExpiryDate:     l.ExpiryDate.Format(domain.DateLayout),
		DepartmentID:   l.DepartmentID,
		DepartmentName: l.DepartmentName,
		CreatedAt:      l.CreatedAt,
	}
}

// NewLicenseList maps a slice; the result is never nil.
func NewLicenseList(licenses []domain.License) []LicenseResponse {
	out := make([]LicenseResponse, 0, len(licenses))
	for i := range licenses {
		out = append(out, NewLicenseResponse(&licenses[i]))
	}
	return out
}

// ReportRowResponse is one row of GET /fetch-report.
type ReportRowResponse struct {
	ID                     int64   `json:"id"`
	Issue                  string  `json:"issue"`
	Description            *string `json:"description"`
	Address                string  `json:"address"`
	RequireDepartmentID    int64   `json:"require_department_id"`
	Complete               bool    `json:"complete"`
	UserID                 string  `json:"user_id"`
	AcknowledgeAt          *string `json:"acknowledge_at"`
	CreatedAt              string  `json:"created_at"`
	UpdatedAt              *string `json:"updated_at"`
	RequiredDepartmentName string  `json:"required_department_name"`
	UserName               string  `json:"user_name"`
	UserDepartmentName     *string `json:"user_department_name"`
}

// NewReport maps report entries; the result is never nil.
func NewReport(entries []service.ReportEntry) []ReportRowResponse {
	out := make([]ReportRowResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ReportRowResponse{
			ID:                     e.ID,
			Issue:                  e.Issue,
			Description:            e.Description,
			Address:                e.Address,
			RequireDepartmentID:    e.RequireDepartmentID,
			Complete:               e.Complete,
			UserID:                 e.UserID,
			AcknowledgeAt:          e.AcknowledgeAt,
			CreatedAt:              e.CreatedAt,
			UpdatedAt:              e.UpdatedAt,
			RequiredDepartmentName: e.RequiredDepartmentName,
			UserName:               e.UserName,
			UserDepartmentName:     e.UserDepartmentName,
		})
	}
	return out
}
