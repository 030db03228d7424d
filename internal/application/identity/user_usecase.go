package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// UserUseCase alta, consulta, edición, borrado en cascada y restauración de cuentas.
type UserUseCase struct {
	tx    TxRunner
	users repository.UserRepository
	orgs  repository.OrganizationRepository
	cache CacheInvalidator
	log   *logger.Logger
}

// NewUserUseCase construye el caso de uso.
func NewUserUseCase(tx TxRunner, users repository.UserRepository, orgs repository.OrganizationRepository, cache CacheInvalidator, log *logger.Logger) *UserUseCase {
	return &UserUseCase{tx: tx, users: users, orgs: orgs, cache: cache, log: log.Named("users")}
}

// Create: el super-admin crea TENANT_ADMIN en una organización activa; el tenant-admin crea USER en la suya.
func (uc *UserUseCase) Create(ctx context.Context, actor policy.Actor, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	orgID, role := actor.OrganizationID, entity.RoleUser
	if actor.Role == entity.RoleSuperAdmin {
		orgID, role = strings.TrimSpace(in.OrganizationID), entity.RoleTenantAdmin
		if orgID == "" {
			return nil, fmt.Errorf("%w: organization_id es obligatorio", domain.ErrInvalidInput)
		}
	}
	orgActive := false
	if orgID != "" {
		org, err := uc.orgs.GetByID(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("cargar organización: %w", err)
		}
		if org == nil || org.IsDeleted() {
			return nil, domain.ErrOrganizationNotFound
		}
		orgActive = org.IsActive
	}
	if !policy.Can(actor, policy.UserCreate, policy.NewAccount(orgID, role, orgActive)) {
		if actor.Role == entity.RoleSuperAdmin && !orgActive {
			return nil, domain.ErrOrganizationInactive
		}
		return nil, policy.Denied(actor)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, fmt.Errorf("%w: email y nombre son obligatorios", domain.ErrInvalidInput)
	}
	if len(in.Password) > entity.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password admite hasta %d bytes", domain.ErrInvalidInput, entity.MaxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now()
	u := &entity.User{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Email:          email,
		PasswordHash:   string(hash),
		Name:           name,
		Role:           role,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return nil, domain.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("crear usuario: %w", err)
	}
	uc.log.Info().Str("user_id", u.ID).Str("organization_id", orgID).Str("role", string(role)).Msg("usuario creado")
	resp := ToUserResponse(u)
	return &resp, nil
}

// List: el super-admin ve tenant-admins (opcionalmente de una organización); el tenant-admin, los USER de la suya.
func (uc *UserUseCase) List(ctx context.Context, actor policy.Actor, in dto.ListUsersRequest) (*dto.UserListResponse, error) {
	in.DefaultPage()
	filter := repository.UserFilter{OnlyDeleted: in.Deleted, Limit: in.Limit, Offset: in.Offset}
	switch policy.ListScope(actor, policy.UserList) {
	case policy.ScopeSystem:
		filter.OrganizationID = in.OrganizationID
		filter.Role = entity.RoleTenantAdmin
	case policy.ScopeOrganization:
		filter.OrganizationID = actor.OrganizationID
		filter.Role = entity.RoleUser
	default:
		return nil, policy.Denied(actor)
	}
	list, err := uc.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listar usuarios: %w", err)
	}
	resp := &dto.UserListResponse{
		Items: make([]dto.UserResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}
	for _, u := range list {
		resp.Items = append(resp.Items, ToUserResponse(u))
	}
	return resp, nil
}

// Get devuelve un usuario visible para el actor.
func (uc *UserUseCase) Get(ctx context.Context, actor policy.Actor, id string) (*dto.UserResponse, error) {
	u, err := uc.loadUser(ctx, actor, id, policy.UserView, false)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(u)
	return &resp, nil
}

// Update cambia nombre o estado. Nadie puede desactivarse a sí mismo.
func (uc *UserUseCase) Update(ctx context.Context, actor policy.Actor, id string, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if in.Name == nil && in.IsActive == nil {
		return nil, fmt.Errorf("%w: debe indicar al menos un campo", domain.ErrInvalidInput)
	}
	u, err := uc.loadUser(ctx, actor, id, policy.UserUpdate, false)
	if err != nil {
		return nil, err
	}
	changed := false
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: el nombre es obligatorio", domain.ErrInvalidInput)
		}
		if name != u.Name {
			u.Name = name
			changed = true
		}
	}
	if in.IsActive != nil && *in.IsActive != u.IsActive {
		if u.ID == actor.UserID {
			return nil, fmt.Errorf("%w: no puede cambiar su propio estado", domain.ErrInvalidInput)
		}
		u.IsActive = *in.IsActive
		changed = true
	}
	if !changed {
		return nil, domain.ErrNoChanges
	}
	u.UpdatedAt = time.Now()
	if err := uc.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("actualizar usuario: %w", err)
	}
	resp := ToUserResponse(u)
	return &resp, nil
}

// Delete borra lógicamente la cuenta junto con sus tareas (dueño o asignado), las subtareas
// de esas tareas y sus comentarios, todo bajo un mismo lote para poder restaurarlo.
func (uc *UserUseCase) Delete(ctx context.Context, actor policy.Actor, id string) (*dto.DeleteUserResponse, error) {
	u, err := uc.loadUser(ctx, actor, id, policy.UserDelete, false)
	if err != nil {
		return nil, err
	}
	if u.Role == entity.RoleSuperAdmin {
		return nil, domain.ErrForbidden
	}
	deletedBy := entity.DeletedByAdmin
	if u.ID == actor.UserID {
		deletedBy = entity.DeletedBySelf
	}
	batchID := uuid.NewString()
	now := time.Now()
	resp := &dto.DeleteUserResponse{UserID: u.ID}
	err = uc.tx.RunIdentity(ctx, func(users repository.UserRepository, tasks repository.TaskRepository, comments repository.CommentRepository) error {
		var err error
		if resp.TasksDeleted, err = tasks.SoftDeleteByUser(ctx, u.ID, now, batchID); err != nil {
			return fmt.Errorf("borrar tareas: %w", err)
		}
		if resp.CommentsDeleted, err = comments.SoftDeleteByUser(ctx, u.ID, now, batchID); err != nil {
			return fmt.Errorf("borrar comentarios: %w", err)
		}
		return users.SoftDelete(ctx, u.ID, now, deletedBy, batchID)
	})
	if err != nil {
		return nil, fmt.Errorf("borrar usuario: %w", err)
	}
	uc.cache.InvalidateQuietly(ctx, u.OrganizationID)
	uc.log.Info().
		Str("user_id", u.ID).
		Str("deleted_by", deletedBy).
		Int64("tasks", resp.TasksDeleted).
		Int64("comments", resp.CommentsDeleted).
		Msg("usuario borrado")
	return resp, nil
}

// Restore revierte el borrado del usuario y de todo lo que cayó en el mismo lote.
// Si otra tarea viva ocupó el título de una del lote, no restaura nada (ErrDuplicateTitle).
func (uc *UserUseCase) Restore(ctx context.Context, actor policy.Actor, id string) (*dto.UserResponse, error) {
	u, err := uc.loadUser(ctx, actor, id, policy.UserRestore, true)
	if err != nil {
		return nil, err
	}
	if !u.IsDeleted() {
		return nil, fmt.Errorf("%w: el usuario no está borrado", domain.ErrConflict)
	}
	batchID := u.DeletionBatchID
	err = uc.tx.RunIdentity(ctx, func(users repository.UserRepository, tasks repository.TaskRepository, comments repository.CommentRepository) error {
		if batchID != "" {
			if _, err := tasks.RestoreBatch(ctx, batchID); err != nil {
				if errors.Is(err, domain.ErrDuplicateTitle) {
					return fmt.Errorf("%w: una tarea del lote choca con otra viva; renómbrela antes de restaurar", err)
				}
				return fmt.Errorf("restaurar tareas: %w", err)
			}
			if _, err := comments.RestoreBatch(ctx, batchID); err != nil {
				return fmt.Errorf("restaurar comentarios: %w", err)
			}
		}
		return users.Restore(ctx, u.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("restaurar usuario: %w", err)
	}
	uc.cache.InvalidateQuietly(ctx, u.OrganizationID)
	u.DeletedAt, u.DeletedBy, u.DeletionBatchID = nil, "", ""
	resp := ToUserResponse(u)
	return &resp, nil
}

// loadUser aplica aislamiento de tenant (otra organización = no encontrado) y luego la regla de pares.
func (uc *UserUseCase) loadUser(ctx context.Context, actor policy.Actor, id string, action policy.Action, includeDeleted bool) (*entity.User, error) {
	u, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cargar usuario: %w", err)
	}
	if u == nil || (u.IsDeleted() && !includeDeleted) {
		return nil, domain.ErrUserNotFound
	}
	if actor.Role != entity.RoleSuperAdmin && u.OrganizationID != actor.OrganizationID {
		return nil, domain.ErrUserNotFound
	}
	orgActive := false
	if u.OrganizationID != "" {
		org, err := uc.orgs.GetByID(ctx, u.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("cargar organización: %w", err)
		}
		orgActive = org != nil && org.IsActive && !org.IsDeleted()
	}
	if !policy.Can(actor, action, policy.OnUser(u, orgActive)) {
		return nil, policy.Denied(actor)
	}
	return u, nil
}
