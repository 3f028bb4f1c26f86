package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/issue-tracker/internal/api/dto"
	"github.com/helpdesk-labs/issue-tracker/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler serves the admin issue report.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// FetchReport GET /fetch-report.
func (h *ReportsHandler) FetchReport(c *fiber.Ctx) error {
	entries, err := h.reports.Build(c.UserContext(), reportQuery(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewReport(entries), "Completed problems and responses fetched successfully")
}

// Export GET /fetch-report/export.
func (h *ReportsHandler) Export(c *fiber.Ctx) error {
	query := reportQuery(c)
	data, err := h.reports.Export(c.UserContext(), query)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", query.ExportFileName()))
	return c.Status(http.StatusOK).Send(data)
}

func reportQuery(c *fiber.Ctx) service.ReportQuery {
	return service.ReportQuery{
		From:               c.Query("from"),
		To:                 c.Query("to"),
		ReportedDepartment: c.Query("reported_department"),
		RequiredDepartment: c.Query("required_department"),
	}
}
