package domain

import "time"

// License is an uploaded document with an expiry date, owned by a department.
type License struct {
	ID             int64
	FileName       string
	ObjectKey      string
	ContentType    string
	SizeBytes      int64
	ExpiryDate     time.Time
	DepartmentID   int64
	DepartmentName string
	CreatedAt      time.Time
}
