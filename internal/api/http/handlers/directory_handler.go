package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/issue-tracker/internal/api/dto"
	"github.com/helpdesk-labs/issue-tracker/internal/service"
)

// DirectoryHandler exposes departments and the admin user screens.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListDepartments GET /departments.
func (h *DirectoryHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.directory.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDepartmentList(depts), "Departments fetched successfully")
}

// CreateDepartment POST /departments.
func (h *DirectoryHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.DepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dept, err := h.directory.CreateDepartment(c.UserContext(), req.Name, req.Type)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewDepartmentResponse(dept), "Department added successfully")
}

// UpdateDepartmentType PATCH /departments/:departmentId.
func (h *DirectoryHandler) UpdateDepartmentType(c *fiber.Ctx) error {
	var req dto.DepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dept, err := h.directory.UpdateDepartmentType(c.UserContext(), c.Params("departmentId"), req.Type)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDepartmentResponse(dept), "Department type updated successfully")
}

// DeleteDepartment DELETE /departments/:departmentId.
func (h *DirectoryHandler) DeleteDepartment(c *fiber.Ctx) error {
	if err := h.directory.DeleteDepartment(c.UserContext(), c.Params("departmentId")); err != nil {
		return err
	}
	id, _ := c.ParamsInt("departmentId")
	return respond(c, http.StatusOK, dto.DepartmentIDResponse{DepartmentID: int64(id)}, "Department deleted successfully")
}

// DepartmentType GET /departments/:name/type.
func (h *DirectoryHandler) DepartmentType(c *fiber.Ctx) error {
	dept, err := h.directory.DepartmentType(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDepartmentResponse(dept), "Department type fetched successfully")
}

// ListUsers GET /admin/users.
func (h *DirectoryHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.directory.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserListResponse(users), "Users fetched successfully")
}

// CreateUser POST /admin/users.
func (h *DirectoryHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, dept, err := h.directory.CreateUser(c.UserContext(), registerInput(req))
	if err != nil {
		return err
	}

	resp := dto.CreatedUserResponse{Username: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}
	if dept != nil {
		resp.Department = &dept.Name
	}
	message := "User created successfully"
	if user.IsAdmin {
		message = "Admin user created successfully"
	}
	return respond(c, http.StatusCreated, resp, message)
}

// UpdateUser PUT /admin/users/:userId.
func (h *DirectoryHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.AdminUpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.directory.UpdateUser(c.UserContext(), c.Params("userId"), service.UserUpdateInput{
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Department:  req.Department,
		IsAdmin:     req.IsAdmin,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.UserIDResponse{UserID: user.ID}, "User updated successfully")
}

// DeleteUser DELETE /admin/users/:userId.
func (h *DirectoryHandler) DeleteUser(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	userID := c.Params("userId")
	if err := h.directory.DeleteUser(c.UserContext(), p.UserID(), userID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.UserIDResponse{UserID: userID}, "User deleted successfully")
}
