package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Comprobantes-api/internal/application/dto"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
)

// errorStatus traduce el tipo de error de dominio a (HTTP status, código).
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrPreconditionFailed):
		return fiber.StatusPreconditionFailed, "PRECONDITION_FAILED"
	case errors.Is(err, domain.ErrAuthorityRejected):
		return fiber.StatusUnprocessableEntity, "AUTHORITY_REJECTED"
	case errors.Is(err, domain.ErrContention):
		return fiber.StatusConflict, "CONTENTION"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return fiber.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// respondError escribe el ErrorResponse. Los errores internos se registran y no exponen detalle.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, code := errorStatus(err)
	body := dto.ErrorResponse{
		Code:      code,
		Message:   err.Error(),
		Retryable: domain.IsRetryable(err),
		Errors:    domain.AuthorityErrorsOf(err),
	}
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("tenant_id", GetTenantID(c)).Msg("error interno")
		body.Message = "error interno"
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: message})
}
