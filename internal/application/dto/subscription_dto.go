package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderResponse datos para abrir el checkout de la pasarela.
type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
}

// PaymentCallbackRequest datos que el checkout devuelve tras el pago.
type PaymentCallbackRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// PaymentFailureRequest aviso de pago fallido desde el checkout.
type PaymentFailureRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

// SubscriptionStatusResponse estado de la suscripción de una orden.
type SubscriptionStatusResponse struct {
	OrderID            string     `json:"order_id"`
	SubscriptionStatus string     `json:"subscription_status"`
	IsPremium          bool       `json:"is_premium"`
	ActivatedAt        *time.Time `json:"activated_at,omitempty"`
}

// SubscriptionResponse fila de auditoría.
type SubscriptionResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	PlanType       string          `json:"plan_type"`
	Status         string          `json:"status"`
	OrderID        string          `json:"order_id"`
	PaymentID      string          `json:"payment_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ActivatedAt    *time.Time      `json:"activated_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PaymentResponse fila de auditoría de pagos.
type PaymentResponse struct {
	ID               string          `json:"id"`
	SubscriptionID   string          `json:"subscription_id"`
	OrderID          string          `json:"order_id"`
	PaymentID        string          `json:"payment_id,omitempty"`
	Status           string          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	ErrorDescription string          `json:"error_description,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// WebhookEventResponse fila de auditoría de eventos (sin payload).
type WebhookEventResponse struct {
	EventID         string     `json:"event_id"`
	EventType       string     `json:"event_type"`
	IsVerified      bool       `json:"is_verified"`
	Processed       bool       `json:"processed"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `json:"processing_error,omitempty"`
	Attempts        int        `json:"attempts"`
	CreatedAt       time.Time  `json:"created_at"`
}

// WebhookAckResponse acuse al webhook de la pasarela.
type WebhookAckResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// ReconcileReport resultado de un barrido de conciliación.
type ReconcileReport struct {
	Checked   int `json:"checked"`
	Activated int `json:"activated"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
}

// SubscriptionListResponse página de auditoría de suscripciones.
type SubscriptionListResponse struct {
	Items []SubscriptionResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

// PaymentListResponse página de auditoría de pagos.
type PaymentListResponse struct {
	Items []PaymentResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// WebhookEventListResponse página de auditoría de eventos.
type WebhookEventListResponse struct {
	Items []WebhookEventResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}
