package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/redis"
	"github.com/jhoicas/taskvault-api/pkg/config"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

// newRedis levanta un Redis en memoria y conecta con el mismo constructor que producción.
func newRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// ──────────────────────────────────────────────────────────────────────────────
// CacheStore
// ──────────────────────────────────────────────────────────────────────────────

func TestCacheStore_IncrArrancaEnUnoYEsMonotono(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	store := redis.NewCacheStore(rdb)

	n, err := store.Incr(ctx, "gen:org-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Incr(ctx, "gen:org-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Otra organización tiene su propio contador
	n, err = store.Incr(ctx, "gen:org-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCacheStore_SetExpiraConTTL(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	store := redis.NewCacheStore(rdb)

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	v, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)

	mr.FastForward(time.Minute + time.Second)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheStore_SetNXYDelete(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	store := redis.NewCacheStore(rdb)

	ok, err := store.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "lock"))
	require.NoError(t, store.Delete(ctx))
	_, found, err := store.Get(ctx, "lock")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheStore_ErrorDeConexion(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	store := redis.NewCacheStore(rdb)
	mr.SetError("ERR simulado")

	_, _, err := store.Get(ctx, "k")
	assert.Error(t, err)
	_, err = store.Incr(ctx, "gen")
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// TokenBlacklist
// ──────────────────────────────────────────────────────────────────────────────

func TestTokenBlacklist_TTLIgualAValidezRestante(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	bl := redis.NewTokenBlacklist(rdb)

	require.NoError(t, bl.Add(ctx, "jti-1", time.Now().Add(10*time.Minute)))

	revoked, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.InDelta(t, (10 * time.Minute).Seconds(), mr.TTL("blacklist:jti:jti-1").Seconds(), 5)

	revoked, err = bl.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Cuando el token habría vencido, la entrada desaparece sola
	mr.FastForward(11 * time.Minute)
	revoked, err = bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenBlacklist_TokenVencidoNoCreaClave(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	bl := redis.NewTokenBlacklist(rdb)

	require.NoError(t, bl.Add(ctx, "viejo", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("blacklist:jti:viejo"))
}

// ──────────────────────────────────────────────────────────────────────────────
// ExpiringStore
// ──────────────────────────────────────────────────────────────────────────────

func TestExpiringStore_PropositosNoColisionan(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	store := redis.NewExpiringStore(rdb)
	exp := time.Now().Add(5 * time.Minute)

	require.NoError(t, store.Put(ctx, ports.ExpiringRecord{
		Purpose: ports.PurposeEmailVerification, SubjectID: "u1", Value: "123456", ExpiresAt: exp,
	}))
	require.NoError(t, store.Put(ctx, ports.ExpiringRecord{
		Purpose: ports.PurposeOrderCooldown, SubjectID: "u1", Value: "order_1", ExpiresAt: exp,
	}))

	rec, err := store.Get(ctx, ports.PurposeEmailVerification, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "123456", rec.Value)

	rec, err = store.Get(ctx, ports.PurposeOrderCooldown, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "order_1", rec.Value)

	require.NoError(t, store.Delete(ctx, ports.PurposeEmailVerification, "u1"))
	rec, err = store.Get(ctx, ports.PurposeEmailVerification, "u1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestExpiringStore_VencimientoYRegistroYaVencido(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	store := redis.NewExpiringStore(rdb)

	err := store.Put(ctx, ports.ExpiringRecord{
		Purpose: ports.PurposeEmailVerification, SubjectID: "u1", Value: "1", ExpiresAt: time.Now().Add(-time.Second),
	})
	assert.Error(t, err)

	require.NoError(t, store.Put(ctx, ports.ExpiringRecord{
		Purpose: ports.PurposeEmailVerification, SubjectID: "u1", Value: "1", ExpiresAt: time.Now().Add(time.Minute),
	}))
	mr.FastForward(2 * time.Minute)
	rec, err := store.Get(ctx, ports.PurposeEmailVerification, "u1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

// ──────────────────────────────────────────────────────────────────────────────
// WebhookQueue
// ──────────────────────────────────────────────────────────────────────────────

func TestWebhookQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	q := redis.NewWebhookQueue(rdb)

	require.NoError(t, q.Enqueue(ctx, ports.WebhookJob{EventID: "evt_1", Attempt: 1}))
	require.NoError(t, q.Enqueue(ctx, ports.WebhookJob{EventID: "evt_2", Attempt: 1}))

	for _, want := range []string{"evt_1", "evt_2"} {
		job, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, want, job.EventID)
		assert.Equal(t, 1, job.Attempt)
	}
}

func TestWebhookQueue_DiferidoSePromueveAlVencer(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	q := redis.NewWebhookQueue(rdb)

	require.NoError(t, q.EnqueueAfter(ctx, ports.WebhookJob{EventID: "evt_tarde", Attempt: 3}, time.Hour))
	require.NoError(t, q.EnqueueAfter(ctx, ports.WebhookJob{EventID: "evt_vencido", Attempt: 2}, -time.Second))

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "evt_vencido", job.EventID)
	assert.Equal(t, 2, job.Attempt)

	// El que vence en una hora sigue en el sorted set
	n, err := rdb.ZCard(ctx, "queue:webhooks:delayed").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, job, "sin trabajos listos Dequeue devuelve nil al agotar el timeout")
}
