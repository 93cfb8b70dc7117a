package controller

import (
	"errors"

	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/pkg/serverutils"
	"chemviz-dashboard/internal/service"
	"chemviz-dashboard/pkg/chemapi"

	"github.com/gofiber/fiber/v2"
)

// failure renders err with the message the affected widget shows.
func failure(ctx *fiber.Ctx, err error, message string) error {
	code := fiber.StatusInternalServerError

	var vErr *dashboard.ValidationError
	var fErr *service.FormError
	var reqErr *chemapi.RequestError
	switch {
	case errors.As(err, &vErr):
		code = fiber.StatusBadRequest
		message = vErr.Message
	case errors.As(err, &fErr):
		code = fiber.StatusBadRequest
		message = fErr.Error()
	case errors.As(err, &reqErr):
		code = backendStatus(reqErr.Status)
	}
	return ctx.Status(code).JSON(serverutils.ErrorResponse(code, message))
}

// backendStatus maps a backend status onto ours. Backend client errors pass
// through; anything else means the backend itself failed.
func backendStatus(status int) int {
	if status >= 400 && status < 500 {
		return status
	}
	return fiber.StatusBadGateway
}
