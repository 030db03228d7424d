package testutil

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
)

// ── Caché ─────────────────────────────────────────────────────────────────────

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache implementa ports.CacheStore en memoria.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	// LastTTL último TTL recibido por Set.
	LastTTL time.Duration
	// Err si no es nil, todas las operaciones fallan.
	Err error
}

// NewMemoryCache crea la caché vacía.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]cacheEntry{}}
}

func (c *MemoryCache) live(key string) (cacheEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return e, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return e, false
	}
	return e, true
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return "", false, c.Err
	}
	e, ok := c.live(key)
	return e.value, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.LastTTL = ttl
	c.entries[key] = cacheEntry{value: value, expiresAt: expiry(ttl)}
	return nil
}

func (c *MemoryCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	if _, ok := c.live(key); ok {
		return false, nil
	}
	c.entries[key] = cacheEntry{value: value, expiresAt: expiry(ttl)}
	return true, nil
}

func (c *MemoryCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	e, _ := c.live(key)
	n := int64(0)
	if e.value != "" {
		var err error
		if n, err = strconv.ParseInt(e.value, 10, 64); err != nil {
			return 0, err
		}
	}
	n++
	c.entries[key] = cacheEntry{value: strconv.FormatInt(n, 10), expiresAt: e.expiresAt}
	return n, nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// Len número de entradas vivas.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ── Registros con vencimiento ─────────────────────────────────────────────────

// MemoryExpiringStore implementa ports.ExpiringStore.
type MemoryExpiringStore struct {
	mu      sync.Mutex
	records map[string]ports.ExpiringRecord
}

// NewMemoryExpiringStore crea el store vacío.
func NewMemoryExpiringStore() *MemoryExpiringStore {
	return &MemoryExpiringStore{records: map[string]ports.ExpiringRecord{}}
}

func recordKey(p ports.Purpose, subject string) string { return string(p) + "/" + subject }

func (s *MemoryExpiringStore) Put(_ context.Context, rec ports.ExpiringRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey(rec.Purpose, rec.SubjectID)] = rec
	return nil
}

func (s *MemoryExpiringStore) Get(_ context.Context, p ports.Purpose, subject string) (*ports.ExpiringRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordKey(p, subject)]
	if !ok || time.Now().After(rec.ExpiresAt) {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryExpiringStore) Delete(_ context.Context, p ports.Purpose, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordKey(p, subject))
	return nil
}

// ── Blacklist ─────────────────────────────────────────────────────────────────

// MemoryBlacklist implementa ports.TokenBlacklist.
type MemoryBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Time
}

// NewMemoryBlacklist crea la blacklist vacía.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{jtis: map[string]time.Time{}}
}

func (b *MemoryBlacklist) Add(_ context.Context, jti string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if time.Until(expiresAt) <= 0 {
		return nil
	}
	b.jtis[jti] = expiresAt
	return nil
}

func (b *MemoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.jtis[jti]
	return ok && time.Now().Before(exp), nil
}

// ── Cola de webhooks ──────────────────────────────────────────────────────────

// ScheduledJob trabajo con su retraso solicitado.
type ScheduledJob struct {
	Job   ports.WebhookJob
	Delay time.Duration
}

// MemoryQueue implementa ports.WebhookQueue registrando lo encolado.
type MemoryQueue struct {
	mu        sync.Mutex
	Ready     []ports.WebhookJob
	Scheduled []ScheduledJob
	Err       error
}

func (q *MemoryQueue) Enqueue(_ context.Context, job ports.WebhookJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Ready = append(q.Ready, job)
	return nil
}

func (q *MemoryQueue) EnqueueAfter(_ context.Context, job ports.WebhookJob, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Scheduled = append(q.Scheduled, ScheduledJob{Job: job, Delay: delay})
	return nil
}

func (q *MemoryQueue) Dequeue(_ context.Context, _ time.Duration) (*ports.WebhookJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.Ready) == 0 {
		return nil, nil
	}
	job := q.Ready[0]
	q.Ready = q.Ready[1:]
	return &job, nil
}

// ReadyIDs ids de evento en la cola inmediata.
func (q *MemoryQueue) ReadyIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.Ready))
	for _, j := range q.Ready {
		out = append(out, j.EventID)
	}
	return out
}

// ── Notificaciones ────────────────────────────────────────────────────────────

// RecordingNotifier implementa ports.Notifier guardando lo encolado.
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []ports.Notification
}

func (n *RecordingNotifier) Enqueue(_ context.Context, msg ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, msg)
	return nil
}

// Templates plantillas encoladas en orden.
func (n *RecordingNotifier) Templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.Sent))
	for _, m := range n.Sent {
		out = append(out, m.Template)
	}
	return out
}

// ── Pasarela ──────────────────────────────────────────────────────────────────

// FakeGateway implementa ports.PaymentGateway con firmas HMAC-SHA256 reales.
type FakeGateway struct {
	mu            sync.Mutex
	KeySecret     string
	WebhookSecret string

	Orders   map[string]*ports.GatewayOrder
	Payments map[string][]ports.GatewayPayment

	// CreateErr / FetchErr simulan fallas de red (por orden en FetchErr).
	CreateErr error
	FetchErr  map[string]error
	Created   int
	seq       int
}

// NewFakeGateway crea la pasarela con secretos de prueba.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		KeySecret:     "key-secret",
		WebhookSecret: "webhook-secret",
		Orders:        map[string]*ports.GatewayOrder{},
		Payments:      map[string][]ports.GatewayPayment{},
		FetchErr:      map[string]error{},
	}
}

// Sign firma HMAC-SHA256 en hex, igual que la pasarela.
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature firma que el checkout entrega tras un pago.
func (g *FakeGateway) PaymentSignature(orderID, paymentID string) string {
	return Sign(g.KeySecret, orderID+"|"+paymentID)
}

// WebhookSignature firma del cuerpo de un webhook.
func (g *FakeGateway) WebhookSignature(body []byte) string {
	return Sign(g.WebhookSecret, string(body))
}

// SetOrderStatus fija el estado autoritativo de una orden.
func (g *FakeGateway) SetOrderStatus(orderID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if o, ok := g.Orders[orderID]; ok {
		o.Status = status
		return
	}
	g.Orders[orderID] = &ports.GatewayOrder{ID: orderID, Status: status}
}

// AddPayment agrega un pago a la orden (el más reciente queda primero).
func (g *FakeGateway) AddPayment(orderID, paymentID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := ports.GatewayPayment{ID: paymentID, OrderID: orderID, Status: status, CreatedAt: time.Now().Unix()}
	g.Payments[orderID] = append([]ports.GatewayPayment{p}, g.Payments[orderID]...)
}

func (g *FakeGateway) CreateOrder(_ context.Context, amountMinor int64, currency string, _ map[string]string) (*ports.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, g.CreateErr)
	}
	g.seq++
	g.Created++
	o := &ports.GatewayOrder{
		ID:          fmt.Sprintf("order_%04d", g.seq),
		Status:      ports.GatewayOrderCreated,
		AmountMinor: amountMinor,
		Currency:    currency,
	}
	g.Orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (g *FakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if !hmac.Equal([]byte(g.PaymentSignature(orderID, paymentID)), []byte(signature)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (g *FakeGateway) VerifyWebhookSignature(body []byte, signature string) error {
	if !hmac.Equal([]byte(g.WebhookSignature(body)), []byte(signature)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (g *FakeGateway) FetchOrder(_ context.Context, orderID string) (*ports.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.FetchErr[orderID]; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	o, ok := g.Orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: orden %s desconocida", domain.ErrGatewayUnavailable, orderID)
	}
	cp := *o
	return &cp, nil
}

func (g *FakeGateway) ListPayments(_ context.Context, orderID string) ([]ports.GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.FetchErr[orderID]; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	return append([]ports.GatewayPayment(nil), g.Payments[orderID]...), nil
}
