package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

// CommentUseCase comentarios sobre tareas.
type CommentUseCase struct {
	tasks    repository.TaskRepository
	comments repository.CommentRepository
}

// NewCommentUseCase construye el caso de uso.
func NewCommentUseCase(tasks repository.TaskRepository, comments repository.CommentRepository) *CommentUseCase {
	return &CommentUseCase{tasks: tasks, comments: comments}
}

// List comentarios vivos de la tarea, más recientes primero.
func (uc *CommentUseCase) List(ctx context.Context, actor policy.Actor, taskID string, page dto.PageRequest) (*dto.CommentListResponse, error) {
	if _, err := loadTask(ctx, uc.tasks, actor, taskID, policy.CommentList); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.comments.ListByTask(ctx, taskID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar comentarios: %w", err)
	}
	resp := &dto.CommentListResponse{
		Items: make([]dto.CommentResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, c := range list {
		resp.Items = append(resp.Items, toCommentResponse(c))
	}
	return resp, nil
}

// Create agrega un comentario del actor.
func (uc *CommentUseCase) Create(ctx context.Context, actor policy.Actor, taskID string, in dto.CommentRequest) (*dto.CommentResponse, error) {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, fmt.Errorf("%w: el mensaje es obligatorio", domain.ErrInvalidInput)
	}
	if _, err := loadTask(ctx, uc.tasks, actor, taskID, policy.CommentCreate); err != nil {
		return nil, err
	}
	now := time.Now()
	c := &entity.Comment{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    actor.UserID,
		Message:   msg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("crear comentario: %w", err)
	}
	resp := toCommentResponse(c)
	return &resp, nil
}

// Update cambia el mensaje; debe ser distinto del actual.
func (uc *CommentUseCase) Update(ctx context.Context, actor policy.Actor, taskID, commentID string, in dto.CommentRequest) (*dto.CommentResponse, error) {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, fmt.Errorf("%w: el mensaje es obligatorio", domain.ErrInvalidInput)
	}
	c, err := uc.loadComment(ctx, actor, taskID, commentID, policy.CommentUpdate)
	if err != nil {
		return nil, err
	}
	if c.Message == msg {
		return nil, domain.ErrNoChanges
	}
	c.Message = msg
	c.UpdatedAt = time.Now()
	if err := uc.comments.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("actualizar comentario: %w", err)
	}
	resp := toCommentResponse(c)
	return &resp, nil
}

// Delete borra lógicamente el comentario.
func (uc *CommentUseCase) Delete(ctx context.Context, actor policy.Actor, taskID, commentID string) error {
	c, err := uc.loadComment(ctx, actor, taskID, commentID, policy.CommentDelete)
	if err != nil {
		return err
	}
	return uc.comments.SoftDelete(ctx, c.ID, time.Now())
}

func (uc *CommentUseCase) loadComment(ctx context.Context, actor policy.Actor, taskID, commentID string, action policy.Action) (*entity.Comment, error) {
	t, err := loadTask(ctx, uc.tasks, actor, taskID, policy.CommentList)
	if err != nil {
		return nil, err
	}
	c, err := uc.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("cargar comentario: %w", err)
	}
	if c == nil || c.DeletedAt != nil || c.TaskID != t.ID {
		return nil, domain.ErrCommentNotFound
	}
	if !policy.Can(actor, action, policy.OnComment(t, c)) {
		return nil, policy.Denied(actor)
	}
	return c, nil
}
