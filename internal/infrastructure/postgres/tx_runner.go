package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/taskvault-api/internal/application/identity"
	"github.com/jhoicas/taskvault-api/internal/application/subscription"
	"github.com/jhoicas/taskvault-api/internal/application/task"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

var _ task.TxRunner = (*TxRunner)(nil)
var _ identity.TxRunner = (*TxRunner)(nil)
var _ subscription.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// run abre la tx, ejecuta fn y hace Commit; cualquier error deja la tx en Rollback.
func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunTasks transacción para actualizar una tarea y su historial (fila de la tarea bloqueada).
func (r *TxRunner) RunTasks(ctx context.Context, fn func(
	tasks repository.TaskRepository,
	history repository.TaskHistoryRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewTaskRepository(tx), NewTaskHistoryRepository(tx))
	})
}

// RunIdentity transacción para el borrado en cascada y la restauración de usuarios.
func (r *TxRunner) RunIdentity(ctx context.Context, fn func(
	users repository.UserRepository,
	tasks repository.TaskRepository,
	comments repository.CommentRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewUserRepository(tx), NewTaskRepository(tx), NewCommentRepository(tx))
	})
}

// RunBilling transacción de la máquina de suscripción: suscripción, pagos y flag premium juntos.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	subs repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	orgs repository.OrganizationRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewSubscriptionRepository(tx), NewPaymentRepository(tx), NewOrganizationRepository(tx))
	})
}
