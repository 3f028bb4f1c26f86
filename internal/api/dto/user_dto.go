package dto

import (
	"time"

	"github.com/helpdesk-labs/issue-tracker/internal/domain"
)

// LoginRequest payload for POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries the refresh token when it is not sent as a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterRequest payload for account creation, both self-service and admin.
type RegisterRequest struct {
	FullName    string  `json:"fullName"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	Department  string  `json:"department"`
	PhoneNumber *string `json:"phoneNumber"`
	IsAdmin     bool    `json:"is_admin"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateAccountRequest payload.
type UpdateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// AdminUpdateUserRequest is a partial update; absent fields stay untouched.
type AdminUpdateUserRequest struct {
	FullName    *string `json:"fullName"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
	Department  *string `json:"department"`
	IsAdmin     *bool   `json:"is_admin"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FullName    string  `json:"fullName"`
	PhoneNumber *string `json:"phoneNumber"`
	Department  *int64  `json:"department"`
	IsAdmin     bool    `json:"is_admin"`
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	User                  *UserResponse `json:"user,omitempty"`
	AccessToken           string        `json:"accessToken"`
	AccessTokenExpiresAt  time.Time     `json:"accessTokenExpiresAt"`
	RefreshToken          string        `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time     `json:"refreshTokenExpiresAt"`
}

// CreatedUserResponse echoes a newly created account.
type CreatedUserResponse struct {
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	IsAdmin    bool    `json:"isAdmin"`
	Department *string `json:"department"`
}

// UserListItem is one row of the admin user listing.
type UserListItem struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	PhoneNumber    *string   `json:"phone_number"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
	DepartmentName *string   `json:"department_name"`
}

// UserListResponse wraps the admin listing.
type UserListResponse struct {
	Users []UserListItem `json:"users"`
}

// UserIDResponse acknowledges an update or delete.
type UserIDResponse struct {
	UserID string `json:"userId"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Department:  u.DepartmentID,
		IsAdmin:     u.IsAdmin,
	}
}

// NewAuthResponse maps a token pair, with the user when known.
func NewAuthResponse(u *domain.User, pair *domain.TokenPair) AuthResponse {
	resp := AuthResponse{
		AccessToken:           pair.AccessToken,
		AccessTokenExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresAt: pair.RefreshExpiresAt,
	}
	if u != nil {
		resp.User = NewUserResponse(u)
	}
	return resp
}

// NewUserListResponse maps the admin listing.
func NewUserListResponse(users []domain.UserListing) UserListResponse {
	items := make([]UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, UserListItem{
			ID:             u.ID,
			FullName:       u.FullName,
			Email:          u.Email,
			PhoneNumber:    u.PhoneNumber,
			IsAdmin:        u.IsAdmin,
			CreatedAt:      u.CreatedAt,
			DepartmentName: u.DepartmentName,
		})
	}
	return UserListResponse{Users: items}
}
