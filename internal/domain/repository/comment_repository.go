package repository

import (
	"context"
	"time"

	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// CommentRepository define el puerto de persistencia para Comment.
type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	GetByID(ctx context.Context, id string) (*entity.Comment, error)
	// ListByTask devuelve los comentarios vivos, más recientes primero.
	ListByTask(ctx context.Context, taskID string, limit, offset int) ([]*entity.Comment, error)
	Update(ctx context.Context, comment *entity.Comment) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	SoftDeleteByUser(ctx context.Context, userID string, at time.Time, batchID string) (int64, error)
	RestoreBatch(ctx context.Context, batchID string) (int64, error)
}
