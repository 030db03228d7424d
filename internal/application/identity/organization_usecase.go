package identity

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
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// OrganizationUseCase gestión de tenants (super-admin).
type OrganizationUseCase struct {
	orgs  repository.OrganizationRepository
	cache CacheInvalidator
	log   *logger.Logger
}

// NewOrganizationUseCase construye el caso de uso.
func NewOrganizationUseCase(orgs repository.OrganizationRepository, cache CacheInvalidator, log *logger.Logger) *OrganizationUseCase {
	return &OrganizationUseCase{orgs: orgs, cache: cache, log: log.Named("organizations")}
}

// Create crea una organización activa.
func (uc *OrganizationUseCase) Create(ctx context.Context, actor policy.Actor, in dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error) {
	if !policy.Can(actor, policy.OrganizationCreate, policy.Target{}) {
		return nil, policy.Denied(actor)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre es obligatorio", domain.ErrInvalidInput)
	}
	now := time.Now()
	org := &entity.Organization{
		ID:        uuid.NewString(),
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.orgs.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("crear organización: %w", err)
	}
	uc.log.Info().Str("organization_id", org.ID).Msg("organización creada")
	resp := toOrganizationResponse(org)
	return &resp, nil
}

// List organizaciones vivas (super-admin).
func (uc *OrganizationUseCase) List(ctx context.Context, actor policy.Actor, page dto.PageRequest) (*dto.OrganizationListResponse, error) {
	if !policy.Can(actor, policy.OrganizationList, policy.Target{}) {
		return nil, policy.Denied(actor)
	}
	page.DefaultPage()
	list, err := uc.orgs.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar organizaciones: %w", err)
	}
	resp := &dto.OrganizationListResponse{
		Items: make([]dto.OrganizationResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, o := range list {
		resp.Items = append(resp.Items, toOrganizationResponse(o))
	}
	return resp, nil
}

// Get devuelve la organización; los miembros solo ven la propia.
func (uc *OrganizationUseCase) Get(ctx context.Context, actor policy.Actor, id string) (*dto.OrganizationResponse, error) {
	org, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Can(actor, policy.OrganizationView, policy.InOrganization(org.ID)) {
		if actor.Role != entity.RoleSuperAdmin && actor.OrganizationID != org.ID {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, policy.Denied(actor)
	}
	resp := toOrganizationResponse(org)
	return &resp, nil
}

// Update renombra o activa/desactiva la organización.
func (uc *OrganizationUseCase) Update(ctx context.Context, actor policy.Actor, id string, in dto.UpdateOrganizationRequest) (*dto.OrganizationResponse, error) {
	if !policy.Can(actor, policy.OrganizationManage, policy.Target{}) {
		return nil, policy.Denied(actor)
	}
	if in.Name == nil && in.IsActive == nil {
		return nil, fmt.Errorf("%w: debe indicar al menos un campo", domain.ErrInvalidInput)
	}
	org, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	changed := false
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: el nombre es obligatorio", domain.ErrInvalidInput)
		}
		if name != org.Name {
			org.Name = name
			changed = true
		}
	}
	if in.IsActive != nil && *in.IsActive != org.IsActive {
		org.IsActive = *in.IsActive
		changed = true
	}
	if !changed {
		return nil, domain.ErrNoChanges
	}
	org.UpdatedAt = time.Now()
	if err := uc.orgs.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("actualizar organización: %w", err)
	}
	uc.cache.InvalidateQuietly(ctx, org.ID)
	uc.log.Info().Str("organization_id", org.ID).Bool("is_active", org.IsActive).Msg("organización actualizada")
	resp := toOrganizationResponse(org)
	return &resp, nil
}

// Delete borra lógicamente la organización y la desactiva.
func (uc *OrganizationUseCase) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if !policy.Can(actor, policy.OrganizationManage, policy.Target{}) {
		return policy.Denied(actor)
	}
	org, err := uc.load(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	org.IsActive = false
	org.DeletedAt = &now
	org.UpdatedAt = now
	if err := uc.orgs.Update(ctx, org); err != nil {
		return fmt.Errorf("borrar organización: %w", err)
	}
	uc.cache.InvalidateQuietly(ctx, org.ID)
	return nil
}

func (uc *OrganizationUseCase) load(ctx context.Context, id string) (*entity.Organization, error) {
	org, err := uc.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cargar organización: %w", err)
	}
	if org == nil || org.IsDeleted() {
		return nil, domain.ErrOrganizationNotFound
	}
	return org, nil
}
