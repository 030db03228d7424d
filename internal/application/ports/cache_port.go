package ports

import (
	"context"
	"time"
)

// CacheStore almacén clave/valor de mejor esfuerzo (Redis en producción).
// Nunca participa en transacciones; un fallo solo implica un miss adicional.
type CacheStore interface {
	// Get devuelve found=false si la clave no existe o expiró.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX escribe solo si la clave no existe; ok=false si ya existía.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (ok bool, err error)
	// Incr incrementa atómicamente; una clave ausente se toma como 0.
	Incr(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}
