package identity

import (
	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// ToUserResponse mapea la entidad a su DTO (sin hash de password).
func ToUserResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:              u.ID,
		OrganizationID:  u.OrganizationID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            string(u.Role),
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		DeletedAt:       u.DeletedAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func toOrganizationResponse(o *entity.Organization) dto.OrganizationResponse {
	return dto.OrganizationResponse{
		ID:        o.ID,
		Name:      o.Name,
		IsActive:  o.IsActive,
		IsPremium: o.IsPremium,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}
