package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/cabinetlabs/seanced/internal/errs"
)

// fail maps an internal error kind onto an HTTP status and the structured
// {ok:false, message} shape every endpoint shares.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrConfig):
		status = fiber.StatusBadRequest
	case errors.Is(err, errs.ErrAccessDenied):
		status = fiber.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, errs.ErrStyleViolation):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrUpstreamTimeout):
		status = fiber.StatusGatewayTimeout
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"ok": false, "message": err.Error()})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "message": message})
}
