package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
)

var _ ports.WebhookQueue = (*WebhookQueue)(nil)

const (
	readyKey   = "queue:webhooks:ready"
	delayedKey = "queue:webhooks:delayed"
)

// promoteDue mueve a la lista los trabajos diferidos ya vencidos (score = epoch ms).
var promoteDue = goredis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, job in ipairs(due) do
	redis.call('ZREM', KEYS[1], job)
	redis.call('RPUSH', KEYS[2], job)
end
return #due
`)

// WebhookQueue lista FIFO para trabajos listos y un sorted set para reintentos diferidos.
type WebhookQueue struct {
	rdb *goredis.Client
}

// NewWebhookQueue construye la cola.
func NewWebhookQueue(rdb *goredis.Client) *WebhookQueue {
	return &WebhookQueue{rdb: rdb}
}

func (q *WebhookQueue) Enqueue(ctx context.Context, job ports.WebhookJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.RPush(ctx, readyKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

func (q *WebhookQueue) EnqueueAfter(ctx context.Context, job ports.WebhookJob, delay time.Duration) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	due := float64(time.Now().Add(delay).UnixMilli())
	if err := q.rdb.ZAdd(ctx, delayedKey, goredis.Z{Score: due, Member: raw}).Err(); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	return nil
}

// Dequeue promueve los diferidos vencidos y espera hasta timeout por un trabajo listo.
func (q *WebhookQueue) Dequeue(ctx context.Context, timeout time.Duration) (*ports.WebhookJob, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := promoteDue.Run(ctx, q.rdb, []string{delayedKey, readyKey}, now).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("promote delayed jobs: %w", err)
	}
	res, err := q.rdb.BLPop(ctx, timeout, readyKey).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}
	// res = [clave, valor]
	var job ports.WebhookJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}
