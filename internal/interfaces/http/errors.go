package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// Mensajes genéricos de facturación: no exponen detalles internos.
const (
	msgBillingRetry   = "no pudimos procesar el pago en este momento, intenta más tarde"
	msgBillingSupport = "no pudimos completar la operación, contacta a soporte"
	msgBillingInvalid = "solicitud de pago inválida"
)

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// statusFor traduce la clase de error de dominio a status y código.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return fiber.StatusBadRequest, "INVALID_SIGNATURE"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrOrganizationInactive):
		return fiber.StatusForbidden, "ORGANIZATION_INACTIVE"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return fiber.StatusBadGateway, "GATEWAY_UNAVAILABLE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// writeError responde con el status de la clase de error. Los errores internos se registran
// y se responden sin detalle.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		requestLogger(c, log).Error().Err(err).Str("path", c.Path()).Msg("error interno")
		msg = "error interno del servidor"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// writeBillingError igual que writeError pero con uno de los tres mensajes genéricos.
func writeBillingError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code := statusFor(err)
	var msg string
	switch status {
	case fiber.StatusBadRequest, fiber.StatusNotFound, fiber.StatusConflict:
		msg = msgBillingInvalid
	case fiber.StatusBadGateway:
		msg = msgBillingRetry
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		msg = err.Error()
	default:
		msg = msgBillingSupport
	}
	if status >= fiber.StatusInternalServerError {
		requestLogger(c, log).Error().Err(err).Str("path", c.Path()).Msg("error de facturación")
	}
	if errors.Is(err, domain.ErrSubscriptionActive) {
		msg = domain.ErrSubscriptionActive.Error()
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
