package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/issue-tracker/internal/api/dto"
	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/domain"
	"github.com/helpdesk-labs/issue-tracker/internal/service"
)

// AuthHandler exposes login, token refresh and account self-service.
type AuthHandler struct {
	auth          *service.AuthService
	secureCookies bool
}

// NewAuthHandler constructs handler. secureCookies marks the token cookies
// Secure and SameSite=None, which browsers require for cross-site use.
func NewAuthHandler(authService *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: authService, secureCookies: secureCookies}
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, pair, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	h.setTokenCookies(c, pair)

	message := "User logged in successfully"
	if user.IsAdmin {
		message = "Admin logged in successfully"
	}
	return respond(c, http.StatusOK, dto.NewAuthResponse(user, pair), message)
}

// Refresh handles POST /refresh-token. The cookie wins over the body.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(auth.RefreshTokenCookie)
	if token == "" {
		var req dto.RefreshRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		token = req.RefreshToken
	}

	_, pair, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		return err
	}
	h.setTokenCookies(c, pair)
	return respond(c, http.StatusOK, dto.NewAuthResponse(nil, pair), "Access token refreshed successfully")
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(auth.RefreshTokenCookie)
	if token == "" {
		var req dto.RefreshRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		token = req.RefreshToken
	}
	if err := h.auth.Logout(c.UserContext(), token); err != nil {
		return err
	}
	h.clearTokenCookies(c)
	return respond(c, http.StatusOK, fiber.Map{}, "User logged out successfully")
}

// Register handles POST /users/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Register(c.UserContext(), registerInput(req))
	if err != nil {
		return err
	}

	message := "User registered successfully"
	if user.IsAdmin {
		message = "Admin registered successfully"
	}
	return respond(c, http.StatusCreated, dto.NewUserResponse(user), message)
}

// CurrentUser handles GET /current-user.
func (h *AuthHandler) CurrentUser(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserResponse(p.User), "User fetched successfully")
}

// ChangePassword handles POST /change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), p.UserID(), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{}, "Password changed successfully")
}

// UpdateAccount handles PATCH /update-account.
func (h *AuthHandler) UpdateAccount(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAccountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.UpdateAccount(c.UserContext(), p.UserID(), req.FullName, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserResponse(user), "Account details updated successfully")
}

// AdminDepartment handles GET /admin-department. Data is null for callers
// without a department.
func (h *AuthHandler) AdminDepartment(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	dept, err := h.auth.CurrentDepartment(c.UserContext(), p.User)
	if err != nil {
		return err
	}
	var data *dto.DepartmentResponse
	if dept != nil {
		resp := dto.NewDepartmentResponse(dept)
		data = &resp
	}
	return respond(c, http.StatusOK, data, "Department fetched successfully for the user")
}

func (h *AuthHandler) setTokenCookies(c *fiber.Ctx, pair *domain.TokenPair) {
	c.Cookie(h.cookie(auth.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	c.Cookie(h.cookie(auth.RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func (h *AuthHandler) clearTokenCookies(c *fiber.Ctx) {
	expired := time.Unix(0, 0)
	c.Cookie(h.cookie(auth.AccessTokenCookie, "", expired))
	c.Cookie(h.cookie(auth.RefreshTokenCookie, "", expired))
}

func (h *AuthHandler) cookie(name, value string, expires time.Time) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if h.secureCookies {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: sameSite,
	}
}

func registerInput(req dto.RegisterRequest) service.AccountInput {
	return service.AccountInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		Department:  req.Department,
		PhoneNumber: req.PhoneNumber,
		IsAdmin:     req.IsAdmin,
	}
}
