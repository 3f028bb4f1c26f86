package domain

import "time"

// ReportRow is an issue denormalized with department and reporter names.
type ReportRow struct {
	Issue
	RequiredDepartmentName string
	UserName               string
	UserDepartmentName     *string
}

// ReportFilter narrows the report. Zero values mean no constraint.
type ReportFilter struct {
	CreatedFrom        *time.Time
	CreatedTo          *time.Time // exclusive
	ReportedDepartment string
	RequiredDepartment string
}
