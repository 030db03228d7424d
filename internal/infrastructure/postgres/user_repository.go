package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo implementación del puerto UserRepository sobre PostgreSQL (usable con pool o tx).
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

const userColumns = `id, organization_id, email, password_hash, name, role, is_active, is_email_verified,
	deleted_at, deleted_by, deletion_batch_id, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u                       entity.User
		orgID, deletedBy, batch *string
	)
	err := row.Scan(&u.ID, &orgID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsActive, &u.IsEmailVerified,
		&u.DeletedAt, &deletedBy, &batch, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.OrganizationID, u.DeletedBy, u.DeletionBatchID = deref(orgID), deref(deletedBy), deref(batch)
	return &u, nil
}

func (r *UserRepo) queryOne(ctx context.Context, what, where string, args ...any) (*entity.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by %s: %w", what, err)
	}
	return u, nil
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, organization_id, email, password_hash, name, role, is_active, is_email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		user.ID, nullable(user.OrganizationID), user.Email, user.PasswordHash, user.Name, user.Role,
		user.IsActive, user.IsEmailVerified, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if violatedConstraint(err) == "users_single_super_admin" {
				return domain.ErrSuperAdminExists
			}
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID obtiene un usuario por ID (incluidos los borrados).
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.queryOne(ctx, "id", `id = $1`, id)
}

// GetByEmail obtiene un usuario vivo por email, sin distinguir mayúsculas.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.queryOne(ctx, "email", `lower(email) = $1 AND deleted_at IS NULL`, strings.ToLower(email))
}

// Update actualiza los campos editables de un usuario.
func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET name = $2, password_hash = $3, is_active = $4, is_email_verified = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		user.ID, user.Name, user.PasswordHash, user.IsActive, user.IsEmailVerified, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List lista usuarios según el filtro, más recientes primero.
func (r *UserRepo) List(ctx context.Context, f repository.UserFilter) ([]*entity.User, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.OrganizationID != "" {
		add("organization_id = $%d", f.OrganizationID)
	}
	if f.Role != "" {
		add("role = $%d", f.Role)
	}
	if f.OnlyDeleted {
		conds = append(conds, "deleted_at IS NOT NULL")
	} else {
		conds = append(conds, "deleted_at IS NULL")
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var list []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// ExistsSuperAdmin indica si hay un super-admin vivo.
func (r *UserRepo) ExistsSuperAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE role = 'SUPER_ADMIN' AND deleted_at IS NULL)`,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists super admin: %w", err)
	}
	return exists, nil
}

// SoftDelete marca el usuario como borrado dentro del lote indicado.
func (r *UserRepo) SoftDelete(ctx context.Context, id string, at time.Time, deletedBy, batchID string) error {
	query := `
		UPDATE users SET deleted_at = $2, deleted_by = $3, deletion_batch_id = $4, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query, id, at, deletedBy, batchID)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Restore revierte el borrado lógico.
func (r *UserRepo) Restore(ctx context.Context, id string) error {
	query := `
		UPDATE users SET deleted_at = NULL, deleted_by = NULL, deletion_batch_id = NULL, updated_at = now()
		WHERE id = $1 AND deleted_at IS NOT NULL`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("restore user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
