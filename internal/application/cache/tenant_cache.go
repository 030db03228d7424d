// Package cache implementa la caché por tenant con invalidación por generación.
//
// Cada organización tiene un contador de generación que forma parte de la clave;
// incrementarlo invalida en O(1) todas las entradas previas del tenant sin enumerarlas.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

const generationKeyPrefix = "cache_generation:"

// KeyParams identidad de una vista cacheable.
type KeyParams struct {
	OrganizationID string
	UserID         string
	View           string
	Query          map[string]string
}

// TenantCache caché de mejor esfuerzo: los errores del store se registran y se tratan como miss.
type TenantCache struct {
	store ports.CacheStore
	ttl   time.Duration
	log   *logger.Logger
}

// NewTenantCache construye la caché; ttl acota la vida de cada entrada aunque la generación no cambie.
func NewTenantCache(store ports.CacheStore, ttl time.Duration, log *logger.Logger) *TenantCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TenantCache{store: store, ttl: ttl, log: log}
}

// GenerationKey clave del contador de generación de la organización.
func GenerationKey(organizationID string) string {
	return generationKeyPrefix + organizationID
}

// Generation devuelve la generación vigente; un contador ausente vale 1.
func (c *TenantCache) Generation(ctx context.Context, organizationID string) (int64, error) {
	raw, found, err := c.store.Get(ctx, GenerationKey(organizationID))
	if err != nil {
		return 0, fmt.Errorf("cache: leer generación: %w", err)
	}
	if !found {
		if _, err := c.store.SetNX(ctx, GenerationKey(organizationID), "1", 0); err != nil {
			return 0, fmt.Errorf("cache: inicializar generación: %w", err)
		}
		return 1, nil
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache: generación corrupta %q: %w", raw, err)
	}
	return gen, nil
}

// Invalidate incrementa la generación de la organización.
func (c *TenantCache) Invalidate(ctx context.Context, organizationID string) error {
	gen, err := c.store.Incr(ctx, GenerationKey(organizationID))
	if err != nil {
		return fmt.Errorf("cache: incrementar generación: %w", err)
	}
	// Contador ausente: los lectores usaban la generación implícita 1.
	if gen == 1 {
		if _, err := c.store.Incr(ctx, GenerationKey(organizationID)); err != nil {
			return fmt.Errorf("cache: incrementar generación: %w", err)
		}
	}
	return nil
}

// InvalidateQuietly como Invalidate pero solo registra el error.
func (c *TenantCache) InvalidateQuietly(ctx context.Context, organizationID string) {
	if err := c.Invalidate(ctx, organizationID); err != nil {
		c.log.Warn().Err(err).Str("organization_id", organizationID).Msg("no se pudo invalidar la caché del tenant")
	}
}

// Key construye la clave de la vista con la generación vigente.
func (c *TenantCache) Key(ctx context.Context, p KeyParams) (string, error) {
	gen, err := c.Generation(ctx, p.OrganizationID)
	if err != nil {
		return "", err
	}
	return BuildKey(p.OrganizationID, gen, p.UserID, p.View, p.Query), nil
}

// BuildKey función pura de generación de claves.
func BuildKey(organizationID string, generation int64, userID, view string, query map[string]string) string {
	return fmt.Sprintf("cache:tenant:%s:gen:%d:user:%s:view:%s:params:%s",
		organizationID, generation, userID, view, HashQuery(query))
}

// HashQuery hash independiente del orden: los pares se ordenan por clave antes de hashear.
func HashQuery(query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(query[k]))
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// Fetch lee y decodifica la entrada; false ante miss o cualquier error.
func (c *TenantCache) Fetch(ctx context.Context, key string, dest any) bool {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("cache_key", key).Msg("lectura de caché fallida")
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.log.Warn().Err(err).Str("cache_key", key).Msg("entrada de caché ilegible")
		return false
	}
	return true
}

// Store guarda la entrada con el TTL configurado.
func (c *TenantCache) Store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("cache_key", key).Msg("no se pudo serializar la entrada de caché")
		return
	}
	if err := c.store.Set(ctx, key, string(raw), c.ttl); err != nil {
		c.log.Warn().Err(err).Str("cache_key", key).Msg("escritura de caché fallida")
	}
}
