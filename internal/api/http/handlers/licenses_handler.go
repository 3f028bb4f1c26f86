package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/issue-tracker/internal/api/dto"
	"github.com/helpdesk-labs/issue-tracker/internal/service"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

// LicensesHandler manages license documents.
type LicensesHandler struct {
	licenses *service.LicenseService
}

// NewLicensesHandler constructs handler.
func NewLicensesHandler(licenses *service.LicenseService) *LicensesHandler {
	return &LicensesHandler{licenses: licenses}
}

// List GET /licenses.
func (h *LicensesHandler) List(c *fiber.Ctx) error {
	licenses, err := h.licenses.List(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewLicenseList(licenses), "Licenses fetched successfully")
}

// Upload POST /licenses (multipart: file, expiry_date, department_id).
func (h *LicensesHandler) Upload(c *fiber.Ctx) error {
	file, closeFile, err := formFile(c)
	if err != nil {
		return err
	}
	defer closeFile()

	license, err := h.licenses.Upload(c.UserContext(), service.LicenseUploadInput{
		File:         file,
		ExpiryDate:   c.FormValue("expiry_date"),
		DepartmentID: c.FormValue("department_id"),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewLicenseResponse(license), "License uploaded successfully")
}

// Get GET /licenses/:id.
func (h *LicensesHandler) Get(c *fiber.Ctx) error {
	license, err := h.licenses.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewLicenseResponse(license), "License fetched successfully")
}

// Download GET /licenses/:id/file.
func (h *LicensesHandler) Download(c *fiber.Ctx) error {
	license, obj, err := h.licenses.Open(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = license.ContentType
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", license.FileName))
	// fasthttp closes the body once it has been written.
	return c.Status(http.StatusOK).SendStream(obj.Body, int(obj.Size))
}

// Update PUT /licenses/:id (multipart, every part optional).
func (h *LicensesHandler) Update(c *fiber.Ctx) error {
	file, closeFile, err := formFile(c)
	if err != nil {
		return err
	}
	defer closeFile()

	license, err := h.licenses.Update(c.UserContext(), c.Params("id"), service.LicenseUpdateInput{
		File:         file,
		ExpiryDate:   c.FormValue("expiry_date"),
		DepartmentID: c.FormValue("department_id"),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewLicenseResponse(license), "License updated successfully")
}

// Delete DELETE /licenses/:id.
func (h *LicensesHandler) Delete(c *fiber.Ctx) error {
	if err := h.licenses.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"id": c.Params("id")}, "License deleted successfully")
}

// formFile returns the uploaded "file" part, or nil when none was sent.
func formFile(c *fiber.Ctx) (*service.LicenseFile, func(), error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, func() {}, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, apperrors.NewValidationError("unreadable file upload", nil)
	}
	return &service.LicenseFile{
		Name:        header.Filename,
		ContentType: partContentType(header),
		Size:        header.Size,
		Content:     f,
	}, func() { _ = f.Close() }, nil
}

func partContentType(header *multipart.FileHeader) string {
	return header.Header.Get(fiber.HeaderContentType)
}
