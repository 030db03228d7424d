package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus estado de un intento de pago.
type PaymentStatus string

const (
	PaymentCreated    PaymentStatus = "CREATED"
	PaymentAuthorized PaymentStatus = "AUTHORIZED"
	PaymentCaptured   PaymentStatus = "CAPTURED"
	PaymentFailed     PaymentStatus = "FAILED"
)

// Payment registro por orden/intento, ligado a la suscripción para auditoría.
type Payment struct {
	ID               string
	SubscriptionID   string
	OrderID          string
	PaymentID        string
	Status           PaymentStatus
	Amount           decimal.Decimal
	Currency         string
	ErrorDescription string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
