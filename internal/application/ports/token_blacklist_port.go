package ports

import (
	"context"
	"time"
)

// TokenBlacklist revocación de tokens por jti.
type TokenBlacklist interface {
	// Add revoca el jti hasta expiresAt (TTL = valididad restante del token).
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}
