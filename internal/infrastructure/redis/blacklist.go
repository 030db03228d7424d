package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
)

var _ ports.TokenBlacklist = (*TokenBlacklist)(nil)

// TokenBlacklist jti revocados; cada clave vive lo que le quedaba al token.
type TokenBlacklist struct {
	rdb *goredis.Client
}

// NewTokenBlacklist construye la blacklist.
func NewTokenBlacklist(rdb *goredis.Client) *TokenBlacklist {
	return &TokenBlacklist{rdb: rdb}
}

func blacklistKey(jti string) string { return "blacklist:jti:" + jti }

// Add revoca el jti hasta expiresAt. Un token ya vencido no necesita entrada.
func (b *TokenBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.rdb.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist add: %w", err)
	}
	return nil
}

func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist check: %w", err)
	}
	return n > 0, nil
}
