package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/issue-tracker/internal/api/dto"
	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	apperrors "github.com/helpdesk-labs/issue-tracker/pkg/util"
)

func respond[T any](c *fiber.Ctx, status int, data T, message string) error {
	return c.Status(status).JSON(dto.NewResponse(status, data, message))
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok || p.User == nil {
		return nil, apperrors.NewUnauthorized("unauthorized request")
	}
	return p, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}
