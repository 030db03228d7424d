package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/identity"
	"github.com/jhoicas/taskvault-api/internal/application/ports"
	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/internal/domain/repository"
	"github.com/jhoicas/taskvault-api/pkg/jwt"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// OTPTTL vigencia del código de verificación de email.
const OTPTTL = 5 * time.Minute

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: login, logout, verificación de email y seed del super-admin.
type AuthUseCase struct {
	users     repository.UserRepository
	orgs      repository.OrganizationRepository
	blacklist ports.TokenBlacklist
	expiring  ports.ExpiringStore
	notifier  ports.Notifier
	jwtCfg    JWTConfig
	log       *logger.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(
	users repository.UserRepository,
	orgs repository.OrganizationRepository,
	blacklist ports.TokenBlacklist,
	expiring ports.ExpiringStore,
	notifier ports.Notifier,
	jwtCfg JWTConfig,
	log *logger.Logger,
) *AuthUseCase {
	return &AuthUseCase{
		users:     users,
		orgs:      orgs,
		blacklist: blacklist,
		expiring:  expiring,
		notifier:  notifier,
		jwtCfg:    jwtCfg,
		log:       log.Named("auth"),
	}
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Usuarios borrados no se encuentran; inactivos o de organización desactivada se rechazan.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, fmt.Errorf("buscar usuario: %w", err)
	}
	if user == nil || user.IsDeleted() {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: usuario inactivo", domain.ErrForbidden)
	}
	if user.Role != entity.RoleSuperAdmin {
		org, err := uc.orgs.GetByID(ctx, user.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("cargar organización: %w", err)
		}
		if org == nil || org.IsDeleted() || !org.IsActive {
			return nil, domain.ErrOrganizationInactive
		}
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.OrganizationID, string(user.Role), uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", user.ID).Str("organization_id", user.OrganizationID).Msg("login")
	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: uc.jwtCfg.ExpMinutes * 60,
		User:      identity.ToUserResponse(user),
	}, nil
}

// Authenticate valida el token, rechaza jti revocados y reconstruye el actor con el estado actual del usuario.
func (uc *AuthUseCase) Authenticate(ctx context.Context, raw string) (policy.Actor, *jwt.Token, error) {
	tok, err := jwt.Parse(uc.jwtCfg.Secret, raw)
	if err != nil {
		return policy.Actor{}, nil, fmt.Errorf("%w: token inválido", domain.ErrUnauthorized)
	}
	revoked, err := uc.blacklist.IsBlacklisted(ctx, tok.JTI)
	if err != nil {
		return policy.Actor{}, nil, fmt.Errorf("consultar blacklist: %w", err)
	}
	if revoked {
		return policy.Actor{}, nil, fmt.Errorf("%w: token revocado", domain.ErrUnauthorized)
	}
	user, err := uc.users.GetByID(ctx, tok.UserID)
	if err != nil {
		return policy.Actor{}, nil, fmt.Errorf("cargar usuario: %w", err)
	}
	if user == nil || user.IsDeleted() {
		return policy.Actor{}, nil, fmt.Errorf("%w: usuario inexistente", domain.ErrUnauthorized)
	}
	var org *entity.Organization
	if user.OrganizationID != "" {
		if org, err = uc.orgs.GetByID(ctx, user.OrganizationID); err != nil {
			return policy.Actor{}, nil, fmt.Errorf("cargar organización: %w", err)
		}
	}
	return policy.NewActor(user, org), tok, nil
}

// Logout revoca el jti por lo que le resta de vida al token.
func (uc *AuthUseCase) Logout(ctx context.Context, tok *jwt.Token) error {
	if tok == nil || tok.JTI == "" {
		return domain.ErrUnauthorized
	}
	if err := uc.blacklist.Add(ctx, tok.JTI, tok.ExpiresAt); err != nil {
		return fmt.Errorf("revocar token: %w", err)
	}
	return nil
}

// Me devuelve el usuario autenticado.
func (uc *AuthUseCase) Me(ctx context.Context, actor policy.Actor) (*dto.UserResponse, error) {
	user, err := uc.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("cargar usuario: %w", err)
	}
	if user == nil || user.IsDeleted() {
		return nil, domain.ErrUserNotFound
	}
	resp := identity.ToUserResponse(user)
	return &resp, nil
}

// RequestEmailVerification genera un código de 6 dígitos, lo guarda por OTPTTL y lo envía por correo.
// Un nuevo pedido reemplaza al código anterior.
func (uc *AuthUseCase) RequestEmailVerification(ctx context.Context, actor policy.Actor) error {
	user, err := uc.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return fmt.Errorf("cargar usuario: %w", err)
	}
	if user == nil || user.IsDeleted() {
		return domain.ErrUserNotFound
	}
	if user.IsEmailVerified {
		return fmt.Errorf("%w: el email ya está verificado", domain.ErrConflict)
	}
	code, err := newOTP()
	if err != nil {
		return err
	}
	rec := ports.ExpiringRecord{
		Purpose:   ports.PurposeEmailVerification,
		SubjectID: user.ID,
		Value:     code,
		ExpiresAt: time.Now().Add(OTPTTL),
	}
	if err := uc.expiring.Put(ctx, rec); err != nil {
		return fmt.Errorf("guardar código: %w", err)
	}
	err = uc.notifier.Enqueue(ctx, ports.Notification{
		Template: ports.TemplateEmailVerification,
		To:       user.Email,
		Data:     map[string]string{"name": user.Name, "code": code, "minutes": "5"},
	})
	if err != nil {
		return fmt.Errorf("enviar código: %w", err)
	}
	return nil
}

// VerifyEmail valida el código y marca el email como verificado. El código es de un solo uso.
func (uc *AuthUseCase) VerifyEmail(ctx context.Context, actor policy.Actor, in dto.VerifyEmailRequest) error {
	rec, err := uc.expiring.Get(ctx, ports.PurposeEmailVerification, actor.UserID)
	if err != nil {
		return fmt.Errorf("leer código: %w", err)
	}
	if rec == nil || subtle.ConstantTimeCompare([]byte(rec.Value), []byte(in.Code)) != 1 {
		return domain.ErrInvalidOTP
	}
	user, err := uc.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return fmt.Errorf("cargar usuario: %w", err)
	}
	if user == nil || user.IsDeleted() {
		return domain.ErrUserNotFound
	}
	user.IsEmailVerified = true
	user.UpdatedAt = time.Now()
	if err := uc.users.Update(ctx, user); err != nil {
		return fmt.Errorf("actualizar usuario: %w", err)
	}
	if err := uc.expiring.Delete(ctx, ports.PurposeEmailVerification, user.ID); err != nil {
		uc.log.Warn().Err(err).Str("user_id", user.ID).Msg("no se pudo borrar el código usado")
	}
	return nil
}

// SeedSuperAdmin crea el super-admin si no existe uno vivo. created=false si ya había.
func (uc *AuthUseCase) SeedSuperAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 || len(password) > entity.MaxPasswordBytes {
		return false, fmt.Errorf("%w: email y password (8 a %d bytes) son obligatorios", domain.ErrInvalidInput, entity.MaxPasswordBytes)
	}
	exists, err := uc.users.ExistsSuperAdmin(ctx)
	if err != nil {
		return false, fmt.Errorf("consultar super-admin: %w", err)
	}
	if exists {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = "Super Admin"
	}
	now := time.Now()
	user := &entity.User{
		ID:              uuid.NewString(),
		Email:           email,
		PasswordHash:    string(hash),
		Name:            strings.TrimSpace(name),
		Role:            entity.RoleSuperAdmin,
		IsActive:        true,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("crear super-admin: %w", err)
	}
	uc.log.Info().Str("user_id", user.ID).Msg("super-admin creado")
	return true, nil
}

func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generar código: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
