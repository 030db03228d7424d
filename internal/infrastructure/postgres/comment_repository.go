package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

var _ repository.CommentRepository = (*CommentRepo)(nil)

// CommentRepo implementación de CommentRepository (usable con pool o tx).
type CommentRepo struct {
	q Querier
}

// NewCommentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCommentRepository(q Querier) *CommentRepo {
	return &CommentRepo{q: q}
}

const commentColumns = `id, task_id, user_id, message, deleted_at, deletion_batch_id, created_at, updated_at`

func scanComment(row pgx.Row) (*entity.Comment, error) {
	var (
		c     entity.Comment
		batch *string
	)
	if err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Message, &c.DeletedAt, &batch, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.DeletionBatchID = deref(batch)
	return &c, nil
}

func (r *CommentRepo) Create(ctx context.Context, c *entity.Comment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO comments (id, task_id, user_id, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, c.ID, c.TaskID, c.UserID, c.Message, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id string) (*entity.Comment, error) {
	c, err := scanComment(r.q.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// ListByTask comentarios vivos, más recientes primero.
func (r *CommentRepo) ListByTask(ctx context.Context, taskID string, limit, offset int) ([]*entity.Comment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+commentColumns+` FROM comments
		WHERE task_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC LIMIT $2 OFFSET $3`, taskID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	var list []*entity.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *CommentRepo) Update(ctx context.Context, c *entity.Comment) error {
	tag, err := r.q.Exec(ctx, `UPDATE comments SET message = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		c.ID, c.Message, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (r *CommentRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE comments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

// SoftDeleteByUser borra los comentarios vivos del usuario dentro del lote.
func (r *CommentRepo) SoftDeleteByUser(ctx context.Context, userID string, at time.Time, batchID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE comments SET deleted_at = $2, deletion_batch_id = $3, updated_at = $2
		WHERE user_id = $1 AND deleted_at IS NULL`, userID, at, batchID)
	if err != nil {
		return 0, fmt.Errorf("soft delete comments by user: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *CommentRepo) RestoreBatch(ctx context.Context, batchID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE comments SET deleted_at = NULL, deletion_batch_id = NULL, updated_at = now()
		WHERE deletion_batch_id = $1 AND deleted_at IS NOT NULL`, batchID)
	if err != nil {
		return 0, fmt.Errorf("restore comments: %w", err)
	}
	return tag.RowsAffected(), nil
}
