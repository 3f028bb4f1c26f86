package domain

import "time"

// User is an employee or administrator account. ID is the login name.
type User struct {
	ID           string
	FullName     string
	Email        string
	PhoneNumber  *string
	DepartmentID *int64
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// UserListing is a user row joined with its department name.
type UserListing struct {
	User
	DepartmentName *string
}
