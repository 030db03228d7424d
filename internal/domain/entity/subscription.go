package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus estado de la máquina de suscripción.
type SubscriptionStatus string

const (
	SubscriptionPendingPayment SubscriptionStatus = "PENDING_PAYMENT"
	SubscriptionActive         SubscriptionStatus = "ACTIVE"
	SubscriptionFailed         SubscriptionStatus = "FAILED"
)

// PlanLifetime único plan ofrecido.
const PlanLifetime = "LIFETIME"

// Subscription una por organización; OrderID es la orden vigente en la pasarela (única).
type Subscription struct {
	ID             string
	OrganizationID string
	PlanType       string
	Status         SubscriptionStatus
	OrderID        string
	PaymentID      string
	Signature      string
	Amount         decimal.Decimal // unidad mayor (rupias)
	Currency       string
	ActivatedAt    *time.Time
	OrderCreatedAt time.Time // momento de la orden vigente; base de la conciliación
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive indica si la suscripción ya fue activada.
func (s *Subscription) IsActive() bool { return s.Status == SubscriptionActive }
