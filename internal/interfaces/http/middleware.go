package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/pkg/jwt"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

// Locals keys del contexto de Fiber.
const (
	LocalRequestID = "request_id"
	LocalActor     = "actor"
	LocalToken     = "token"
)

// HeaderRequestID cabecera de correlación.
const HeaderRequestID = "X-Request-ID"

// Authenticator valida un token crudo y resuelve el actor.
// Lo implementa *auth.AuthUseCase.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (policy.Actor, *jwt.Token, error)
}

// RequestLogger asigna request_id y registra método, ruta, status y latencia de cada petición.
// No registra cabeceras (Authorization y firmas quedan fuera).
func RequestLogger(log *logger.Logger) fiber.Handler {
	log = log.Named("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := c.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Locals(LocalRequestID, reqID)
		c.Set(HeaderRequestID, reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		ev := requestLogger(c, log).Info()
		if status >= fiber.StatusInternalServerError {
			ev = requestLogger(c, log).Error()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}

// requestLogger sublogger con request_id y, si hay sesión, user_id y organization_id.
func requestLogger(c *fiber.Ctx, log *logger.Logger) *logger.Logger {
	fields := map[string]string{}
	if id, ok := c.Locals(LocalRequestID).(string); ok {
		fields["request_id"] = id
	}
	if a, ok := GetActor(c); ok {
		fields["user_id"] = a.UserID
		fields["organization_id"] = a.OrganizationID
	}
	return log.WithFields(fields)
}

// AuthMiddleware valida el Bearer Token (firma, expiración, revocación y estado del usuario)
// y deja el actor y el token en c.Locals.
func AuthMiddleware(authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		actor, tok, err := authn.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalActor, actor)
		c.Locals(LocalToken, tok)
		return c.Next()
	}
}

// RequireRole corta con 403 si el rol del actor no está entre los permitidos.
// Debe usarse después de AuthMiddleware.
func RequireRole(roles ...entity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "sesión requerida"})
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permisos para este recurso"})
	}
}

// GetActor devuelve el actor autenticado.
func GetActor(c *fiber.Ctx) (policy.Actor, bool) {
	a, ok := c.Locals(LocalActor).(policy.Actor)
	return a, ok
}

// GetToken devuelve el token ya validado de la petición.
func GetToken(c *fiber.Ctx) *jwt.Token {
	t, _ := c.Locals(LocalToken).(*jwt.Token)
	return t
}

// GetRole rol del actor autenticado, vacío si no hay sesión.
func GetRole(c *fiber.Ctx) string {
	a, ok := GetActor(c)
	if !ok {
		return ""
	}
	return string(a.Role)
}
