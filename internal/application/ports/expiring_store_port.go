package ports

import (
	"context"
	"time"
)

// Purpose separa los espacios de registros temporales para que no colisionen entre features.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposeOrderCooldown     Purpose = "order_cooldown"
)

// ExpiringRecord registro tipado con vencimiento (OTP, enfriamiento de órdenes, ...).
type ExpiringRecord struct {
	Purpose   Purpose   `json:"purpose"`
	SubjectID string    `json:"subject_id"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiringStore guarda un registro por (propósito, sujeto) hasta su ExpiresAt.
type ExpiringStore interface {
	Put(ctx context.Context, rec ExpiringRecord) error
	// Get devuelve nil, nil si no existe o ya venció.
	Get(ctx context.Context, purpose Purpose, subjectID string) (*ExpiringRecord, error)
	Delete(ctx context.Context, purpose Purpose, subjectID string) error
}
