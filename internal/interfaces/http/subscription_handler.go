package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/subscription"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/pkg/logger"
	"github.com/jhoicas/taskvault-api/pkg/validator"
)

// Cabeceras del webhook de Razorpay.
const (
	HeaderRazorpaySignature = "X-Razorpay-Signature"
	HeaderRazorpayEventID   = "X-Razorpay-Event-Id"
)

// SubscriptionHandler compra del plan, callbacks del checkout, webhook y auditoría.
type SubscriptionHandler struct {
	svc *subscription.Service
	val *validator.Validator
	log *logger.Logger
}

// NewSubscriptionHandler construye el handler.
func NewSubscriptionHandler(svc *subscription.Service, val *validator.Validator, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, val: val, log: log.Named("billing")}
}

// CreateOrder godoc
// @Summary      Crear orden de pago del plan vitalicio
// @Tags         subscriptions
// @Security     Bearer
// @Produce      json
// @Success      201  {object}  dto.CreateOrderResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/subscriptions/orders [post]
func (h *SubscriptionHandler) CreateOrder(c *fiber.Ctx) error {
	out, err := h.svc.CreateOrder(c.UserContext(), actor(c))
	if err != nil {
		return writeBillingError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Callback godoc
// @Summary      Confirmar pago desde el checkout
// @Tags         subscriptions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PaymentCallbackRequest  true  "Datos firmados del checkout"
// @Success      200   {object}  dto.SubscriptionStatusResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/subscriptions/callback [post]
func (h *SubscriptionHandler) Callback(c *fiber.Ctx) error {
	var in dto.PaymentCallbackRequest
	if err := bindBody(c, h.val, &in); err != nil {
		return writeBillingError(c, h.log, err)
	}
	out, err := h.svc.ConfirmPayment(c.UserContext(), actor(c), in)
	if err != nil {
		return writeBillingError(c, h.log, err)
	}
	return c.JSON(out)
}

// CallbackFailure godoc
// @Summary      Informar pago fallido desde el checkout
// @Tags         subscriptions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PaymentFailureRequest  true  "Orden y motivo"
// @Success      200   {object}  dto.SubscriptionStatusResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/subscriptions/callback/failure [post]
func (h *SubscriptionHandler) CallbackFailure(c *fiber.Ctx) error {
	var in dto.PaymentFailureRequest
	if err := bindBody(c, h.val, &in); err != nil {
		return writeBillingError(c, h.log, err)
	}
	out, err := h.svc.ReportPaymentFailure(c.UserContext(), actor(c), in)
	if err != nil {
		return writeBillingError(c, h.log, err)
	}
	return c.JSON(out)
}

// Status godoc
// @Summary      Estado de la suscripción de una orden
// @Tags         subscriptions
// @Security     Bearer
// @Produce      json
// @Param        order_id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.SubscriptionStatusResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/subscriptions/status/{order_id} [get]
func (h *SubscriptionHandler) Status(c *fiber.Ctx) error {
	out, err := h.svc.Status(c.UserContext(), actor(c), c.Params("order_id"))
	if err != nil {
		return writeBillingError(c, h.log, err)
	}
	return c.JSON(out)
}

// Receipt godoc
// @Summary      Descargar comprobante PDF de la suscripción activa
// @Tags         subscriptions
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/subscriptions/receipt [get]
func (h *SubscriptionHandler) Receipt(c *fiber.Ctx) error {
	pdf, filename, err := h.svc.Receipt(c.UserContext(), actor(c))
	if err != nil {
		return writeBillingError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

// Webhook godoc
// @Summary      Webhook de Razorpay
// @Description  Verifica la firma sobre el cuerpo crudo, registra el evento una sola vez y lo encola.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Razorpay-Signature  header  string  true   "Firma HMAC del cuerpo"
// @Param        X-Razorpay-Event-Id   header  string  false  "ID del evento"
// @Success      200  {object}  dto.WebhookAckResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/webhooks/razorpay [post]
func (h *SubscriptionHandler) Webhook(c *fiber.Ctx) error {
	signature := c.Get(HeaderRazorpaySignature)
	if signature == "" {
		return badRequest(c, "MISSING_SIGNATURE", "falta la cabecera "+HeaderRazorpaySignature)
	}
	// fasthttp reutiliza el buffer del cuerpo: se copia antes de guardarlo.
	body := append([]byte(nil), c.Body()...)

	receipt, err := h.svc.ProcessWebhookEvent(c.UserContext(), body, signature, c.Get(HeaderRazorpayEventID))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidSignature):
		return badRequest(c, "INVALID_SIGNATURE", msgBillingInvalid)
	case errors.Is(err, domain.ErrInvalidInput):
		return badRequest(c, "INVALID_PAYLOAD", msgBillingInvalid)
	default:
		// No quedó registrado: un 5xx hace que la pasarela reintente la entrega.
		requestLogger(c, h.log).Error().Err(err).Msg("no se pudo registrar el webhook")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: msgBillingRetry})
	}

	status := subscription.WebhookAccepted
	if receipt.Duplicate {
		status = subscription.WebhookDuplicate
	}
	return c.JSON(dto.WebhookAckResponse{Status: status, EventID: receipt.EventID})
}

// ListSubscriptions godoc
// @Summary      Auditoría de suscripciones
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.SubscriptionListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/admin/subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, h.val, &page); err != nil {
		return writeError(c, h.log, err)
	}
	items, err := h.svc.ListSubscriptions(c.UserContext(), actor(c), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SubscriptionListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// ListPayments godoc
// @Summary      Auditoría de pagos
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.PaymentListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/admin/payments [get]
func (h *SubscriptionHandler) ListPayments(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, h.val, &page); err != nil {
		return writeError(c, h.log, err)
	}
	items, err := h.svc.ListPayments(c.UserContext(), actor(c), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PaymentListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// ListWebhookEvents godoc
// @Summary      Auditoría de eventos de webhook
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.WebhookEventListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/admin/webhook-events [get]
func (h *SubscriptionHandler) ListWebhookEvents(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, h.val, &page); err != nil {
		return writeError(c, h.log, err)
	}
	items, err := h.svc.ListWebhookEvents(c.UserContext(), actor(c), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.WebhookEventListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}
