package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
)

var _ ports.ExpiringStore = (*ExpiringStore)(nil)

// ExpiringStore registros tipados con vencimiento; la clave separa propósito y sujeto.
type ExpiringStore struct {
	rdb *goredis.Client
}

// NewExpiringStore construye el store.
func NewExpiringStore(rdb *goredis.Client) *ExpiringStore {
	return &ExpiringStore{rdb: rdb}
}

func expiringKey(p ports.Purpose, subjectID string) string {
	return fmt.Sprintf("expiring:%s:%s", p, subjectID)
}

func (s *ExpiringStore) Put(ctx context.Context, rec ports.ExpiringRecord) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("registro %s ya vencido", rec.Purpose)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.rdb.Set(ctx, expiringKey(rec.Purpose, rec.SubjectID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func (s *ExpiringStore) Get(ctx context.Context, p ports.Purpose, subjectID string) (*ports.ExpiringRecord, error) {
	raw, err := s.rdb.Get(ctx, expiringKey(p, subjectID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	var rec ports.ExpiringRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, nil
	}
	return &rec, nil
}

func (s *ExpiringStore) Delete(ctx context.Context, p ports.Purpose, subjectID string) error {
	if err := s.rdb.Del(ctx, expiringKey(p, subjectID)).Err(); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
