// Package testutil provee dobles en memoria de los puertos para los tests de aplicación y HTTP.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// Store base de datos en memoria. Las transacciones se serializan (equivalente a un
// bloqueo de fila global) y se revierten si el callback devuelve error.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	orgs     map[string]entity.Organization
	users    map[string]entity.User
	tasks    map[string]entity.Task
	comments map[string]entity.Comment
	history  []entity.TaskHistory
	subs     map[string]entity.Subscription
	payments []entity.Payment
	events   map[string]entity.WebhookEvent

	failures map[string]error
	seq      int
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		orgs:     map[string]entity.Organization{},
		users:    map[string]entity.User{},
		tasks:    map[string]entity.Task{},
		comments: map[string]entity.Comment{},
		subs:     map[string]entity.Subscription{},
		events:   map[string]entity.WebhookEvent{},
		failures: map[string]error{},
	}
}

// FailOn hace que la operación indicada (p. ej. "subscriptions.update") devuelva err; nil la restablece.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// ── Transacciones ─────────────────────────────────────────────────────────────

type snapshot struct {
	orgs     map[string]entity.Organization
	users    map[string]entity.User
	tasks    map[string]entity.Task
	comments map[string]entity.Comment
	history  []entity.TaskHistory
	subs     map[string]entity.Subscription
	payments []entity.Payment
	events   map[string]entity.WebhookEvent
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		orgs:     copyMap(s.orgs),
		users:    copyMap(s.users),
		tasks:    copyMap(s.tasks),
		comments: copyMap(s.comments),
		history:  append([]entity.TaskHistory(nil), s.history...),
		subs:     copyMap(s.subs),
		payments: append([]entity.Payment(nil), s.payments...),
		events:   copyMap(s.events),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs, s.users, s.tasks, s.comments = snap.orgs, snap.users, snap.tasks, snap.comments
	s.history, s.subs, s.payments, s.events = snap.history, snap.subs, snap.payments, snap.events
}

func (s *Store) inTx(fn func() error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// RunTasks transacción del dominio de tareas.
func (s *Store) RunTasks(_ context.Context, fn func(tasks repository.TaskRepository, history repository.TaskHistoryRepository) error) error {
	return s.inTx(func() error { return fn(s.Tasks(), s.History()) })
}

// RunIdentity transacción de identidad (borrado y restauración en cascada).
func (s *Store) RunIdentity(_ context.Context, fn func(users repository.UserRepository, tasks repository.TaskRepository, comments repository.CommentRepository) error) error {
	return s.inTx(func() error { return fn(s.Users(), s.Tasks(), s.Comments()) })
}

// RunBilling transacción de facturación.
func (s *Store) RunBilling(_ context.Context, fn func(subs repository.SubscriptionRepository, payments repository.PaymentRepository, orgs repository.OrganizationRepository) error) error {
	return s.inTx(func() error { return fn(s.Subscriptions(), s.Payments(), s.Organizations()) })
}

// ── Acceso a repositorios ─────────────────────────────────────────────────────

func (s *Store) Organizations() repository.OrganizationRepository { return orgRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Tasks() repository.TaskRepository                 { return taskRepo{s} }
func (s *Store) Comments() repository.CommentRepository           { return commentRepo{s} }
func (s *Store) History() repository.TaskHistoryRepository        { return historyRepo{s} }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return subRepo{s} }
func (s *Store) Payments() repository.PaymentRepository           { return paymentRepo{s} }
func (s *Store) WebhookEvents() repository.WebhookEventRepository { return eventRepo{s} }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ── Organizaciones ────────────────────────────────────────────────────────────

type orgRepo struct{ s *Store }

func (r orgRepo) Create(_ context.Context, org *entity.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if org.ID == "" {
		org.ID = r.s.nextID("org")
	}
	r.s.orgs[org.ID] = *org
	return nil
}

func (r orgRepo) GetByID(_ context.Context, id string) (*entity.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orgs[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r orgRepo) List(_ context.Context, limit, offset int) ([]*entity.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Organization
	for _, o := range r.s.orgs {
		if o.DeletedAt == nil {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r orgRepo) Update(_ context.Context, org *entity.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("organizations.update"); err != nil {
		return err
	}
	r.s.orgs[org.ID] = *org
	return nil
}

func (r orgRepo) SetPremium(_ context.Context, id string, premium bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("organizations.set_premium"); err != nil {
		return err
	}
	o, ok := r.s.orgs[id]
	if !ok {
		return domain.ErrOrganizationNotFound
	}
	o.IsPremium = premium
	r.s.orgs[id] = o
	return nil
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = r.s.nextID("user")
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r userRepo) Update(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) List(_ context.Context, f repository.UserFilter) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.User
	for _, u := range r.s.users {
		if f.OrganizationID != "" && u.OrganizationID != f.OrganizationID {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if (u.DeletedAt != nil) != f.OnlyDeleted {
			continue
		}
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (r userRepo) ExistsSuperAdmin(_ context.Context) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Role == entity.RoleSuperAdmin && u.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r userRepo) SoftDelete(_ context.Context, id string, at time.Time, by, batchID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.soft_delete"); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.DeletedAt, u.DeletedBy, u.DeletionBatchID = &at, by, batchID
	r.s.users[id] = u
	return nil
}

func (r userRepo) Restore(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.DeletedAt, u.DeletedBy, u.DeletionBatchID = nil, "", ""
	r.s.users[id] = u
	return nil
}

// ── Tareas ────────────────────────────────────────────────────────────────────

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, t *entity.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.tasks {
		if other.DeletedAt == nil && other.OrganizationID == t.OrganizationID &&
			other.AssigneeID == t.AssigneeID && other.TitleKey == t.TitleKey {
			return domain.ErrDuplicateTitle
		}
	}
	if t.ID == "" {
		t.ID = r.s.nextID("task")
	}
	r.s.tasks[t.ID] = *t
	return nil
}

func (r taskRepo) GetByID(_ context.Context, id string) (*entity.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r taskRepo) GetForUpdate(ctx context.Context, id string) (*entity.Task, error) {
	return r.GetByID(ctx, id)
}

func (r taskRepo) List(_ context.Context, f entity.TaskFilter) ([]*entity.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Task
	for _, t := range r.s.tasks {
		if t.DeletedAt != nil || t.OrganizationID != f.OrganizationID {
			continue
		}
		if f.VisibleTo != "" && t.OwnerID != f.VisibleTo && t.AssigneeID != f.VisibleTo {
			continue
		}
		if f.ParentTaskID != "" && t.ParentTaskID != f.ParentTaskID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (r taskRepo) Update(_ context.Context, t *entity.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("tasks.update"); err != nil {
		return err
	}
	r.s.tasks[t.ID] = *t
	return nil
}

func (r taskRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	t.DeletedAt = &at
	r.s.tasks[id] = t
	return nil
}

func (r taskRepo) ExistsTitle(_ context.Context, orgID, assigneeID, titleKey string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tasks {
		if t.DeletedAt == nil && t.OrganizationID == orgID && t.AssigneeID == assigneeID && t.TitleKey == titleKey {
			return true, nil
		}
	}
	return false, nil
}

func (r taskRepo) SubtaskStats(_ context.Context, parentID string) (repository.SubtaskStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var st repository.SubtaskStats
	for _, t := range r.s.tasks {
		if t.DeletedAt != nil || t.ParentTaskID != parentID {
			continue
		}
		st.Active++
		if t.Status != entity.TaskCompleted {
			st.Incomplete++
		}
	}
	return st, nil
}

func (r taskRepo) SoftDeleteByUser(_ context.Context, userID string, at time.Time, batchID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	parents := map[string]bool{}
	for id, t := range r.s.tasks {
		if t.DeletedAt == nil && (t.OwnerID == userID || t.AssigneeID == userID) {
			t.DeletedAt, t.DeletionBatchID = &at, batchID
			r.s.tasks[id] = t
			parents[id] = true
			n++
		}
	}
	// Subtareas vivas de padres que acaban de caer.
	for id, t := range r.s.tasks {
		if t.DeletedAt == nil && parents[t.ParentTaskID] {
			t.DeletedAt, t.DeletionBatchID = &at, batchID
			r.s.tasks[id] = t
			n++
		}
	}
	return n, nil
}

func (r taskRepo) RestoreBatch(_ context.Context, batchID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// Mismo índice parcial que en Postgres: (organización, asignado, título) entre filas vivas.
	taken := map[string]bool{}
	for _, t := range r.s.tasks {
		if t.DeletedAt == nil {
			taken[titleIndexKey(t)] = true
		}
	}
	for _, t := range r.s.tasks {
		if t.DeletedAt == nil || t.DeletionBatchID != batchID {
			continue
		}
		k := titleIndexKey(t)
		if taken[k] {
			return 0, domain.ErrDuplicateTitle
		}
		taken[k] = true
	}
	var n int64
	for id, t := range r.s.tasks {
		if t.DeletedAt != nil && t.DeletionBatchID == batchID {
			t.DeletedAt, t.DeletionBatchID = nil, ""
			r.s.tasks[id] = t
			n++
		}
	}
	return n, nil
}

func titleIndexKey(t entity.Task) string {
	return t.OrganizationID + "|" + t.AssigneeID + "|" + t.TitleKey
}

// ── Comentarios ───────────────────────────────────────────────────────────────

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *entity.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == "" {
		c.ID = r.s.nextID("comment")
	}
	r.s.comments[c.ID] = *c
	return nil
}

func (r commentRepo) GetByID(_ context.Context, id string) (*entity.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r commentRepo) ListByTask(_ context.Context, taskID string, limit, offset int) ([]*entity.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Comment
	for _, c := range r.s.comments {
		if c.TaskID == taskID && c.DeletedAt == nil {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (r commentRepo) Update(_ context.Context, c *entity.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.comments[c.ID] = *c
	return nil
}

func (r commentRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return domain.ErrCommentNotFound
	}
	c.DeletedAt = &at
	r.s.comments[id] = c
	return nil
}

func (r commentRepo) SoftDeleteByUser(_ context.Context, userID string, at time.Time, batchID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.comments {
		if c.DeletedAt == nil && c.UserID == userID {
			c.DeletedAt, c.DeletionBatchID = &at, batchID
			r.s.comments[id] = c
			n++
		}
	}
	return n, nil
}

func (r commentRepo) RestoreBatch(_ context.Context, batchID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.comments {
		if c.DeletedAt != nil && c.DeletionBatchID == batchID {
			c.DeletedAt, c.DeletionBatchID = nil, ""
			r.s.comments[id] = c
			n++
		}
	}
	return n, nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

type historyRepo struct{ s *Store }

func (r historyRepo) Append(_ context.Context, h *entity.TaskHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if h.ID == "" {
		h.ID = r.s.nextID("history")
	}
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r historyRepo) ListByTask(_ context.Context, taskID string, limit, offset int) ([]*entity.TaskHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.TaskHistory
	for i := len(r.s.history) - 1; i >= 0; i-- {
		if h := r.s.history[i]; h.TaskID == taskID {
			out = append(out, &h)
		}
	}
	return page(out, limit, offset), nil
}

// ── Suscripciones ─────────────────────────────────────────────────────────────

type subRepo struct{ s *Store }

func (r subRepo) find(match func(entity.Subscription) bool) *entity.Subscription {
	for _, sub := range r.s.subs {
		if match(sub) {
			return &sub
		}
	}
	return nil
}

func (r subRepo) GetByOrganization(_ context.Context, orgID string) (*entity.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(s entity.Subscription) bool { return s.OrganizationID == orgID }), nil
}

func (r subRepo) GetByOrderID(_ context.Context, orderID string) (*entity.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("subscriptions.get_by_order"); err != nil {
		return nil, err
	}
	return r.find(func(s entity.Subscription) bool { return s.OrderID == orderID }), nil
}

func (r subRepo) GetForUpdate(_ context.Context, id string) (*entity.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r subRepo) GetForUpdateByOrderID(ctx context.Context, orderID string) (*entity.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(func(s entity.Subscription) bool { return s.OrderID == orderID }), nil
}

func (r subRepo) UpsertPending(_ context.Context, sub *entity.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.subs {
		if other.OrderID == sub.OrderID && other.OrganizationID != sub.OrganizationID {
			return fmt.Errorf("%w: order_id duplicado", domain.ErrConflict)
		}
	}
	existing := r.find(func(s entity.Subscription) bool { return s.OrganizationID == sub.OrganizationID })
	if existing == nil {
		if sub.ID == "" {
			sub.ID = r.s.nextID("sub")
		}
		r.s.subs[sub.ID] = *sub
		return nil
	}
	if existing.Status == entity.SubscriptionActive {
		return domain.ErrSubscriptionActive
	}
	sub.ID = existing.ID
	sub.CreatedAt = existing.CreatedAt
	r.s.subs[sub.ID] = *sub
	return nil
}

func (r subRepo) Update(_ context.Context, sub *entity.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("subscriptions.update"); err != nil {
		return err
	}
	r.s.subs[sub.ID] = *sub
	return nil
}

func (r subRepo) ListPendingBefore(_ context.Context, before time.Time, limit int) ([]*entity.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Subscription
	for _, sub := range r.s.subs {
		if sub.Status == entity.SubscriptionPendingPayment && sub.OrderCreatedAt.Before(before) {
			sub := sub
			out = append(out, &sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderCreatedAt.Before(out[j].OrderCreatedAt) })
	return page(out, limit, 0), nil
}

func (r subRepo) List(_ context.Context, limit, offset int) ([]*entity.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Subscription
	for _, sub := range r.s.subs {
		sub := sub
		out = append(out, &sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

// ── Pagos ─────────────────────────────────────────────────────────────────────

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(_ context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("payments.create"); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = r.s.nextID("payment")
	}
	r.s.payments = append(r.s.payments, *p)
	return nil
}

func (r paymentRepo) GetBySubscriptionAndOrder(_ context.Context, subID, orderID string) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.payments) - 1; i >= 0; i-- {
		if p := r.s.payments[i]; p.SubscriptionID == subID && p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r paymentRepo) Update(_ context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.payments {
		if r.s.payments[i].ID == p.ID {
			r.s.payments[i] = *p
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r paymentRepo) ListBySubscription(_ context.Context, subID string) ([]*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Payment
	for _, p := range r.s.payments {
		if p.SubscriptionID == subID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r paymentRepo) List(_ context.Context, limit, offset int) ([]*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Payment, 0, len(r.s.payments))
	for i := len(r.s.payments) - 1; i >= 0; i-- {
		p := r.s.payments[i]
		out = append(out, &p)
	}
	return page(out, limit, offset), nil
}

// ── Eventos de webhook ────────────────────────────────────────────────────────

type eventRepo struct{ s *Store }

func (r eventRepo) InsertIfAbsent(_ context.Context, e *entity.WebhookEvent) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("webhook_events.insert"); err != nil {
		return false, err
	}
	if _, ok := r.s.events[e.EventID]; ok {
		return false, nil
	}
	if e.ID == "" {
		e.ID = r.s.nextID("event")
	}
	r.s.events[e.EventID] = *e
	return true, nil
}

func (r eventRepo) GetByEventID(_ context.Context, eventID string) (*entity.WebhookEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[eventID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r eventRepo) MarkProcessed(_ context.Context, eventID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[eventID]
	if !ok {
		return domain.ErrWebhookEventNotFound
	}
	e.Processed, e.ProcessedAt, e.ProcessingError = true, &at, ""
	r.s.events[eventID] = e
	return nil
}

func (r eventRepo) RecordFailure(_ context.Context, eventID, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[eventID]
	if !ok {
		return domain.ErrWebhookEventNotFound
	}
	e.ProcessingError = message
	e.Attempts++
	r.s.events[eventID] = e
	return nil
}

func (r eventRepo) ListUnprocessed(_ context.Context, before time.Time, limit int) ([]*entity.WebhookEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.WebhookEvent
	for _, e := range r.s.events {
		if e.IsVerified && !e.Processed && e.CreatedAt.Before(before) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, 0), nil
}

func (r eventRepo) List(_ context.Context, limit, offset int) ([]*entity.WebhookEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.WebhookEvent
	for _, e := range r.s.events {
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}
