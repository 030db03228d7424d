package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taskvault-api/internal/domain"
	"github.com/jhoicas/taskvault-api/internal/domain/policy"
	"github.com/jhoicas/taskvault-api/pkg/validator"
)

type pager interface{ DefaultPage() }

// bindBody parsea el JSON del cuerpo y lo valida.
func bindBody(c *fiber.Ctx, v *validator.Validator, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: cuerpo inválido", domain.ErrInvalidInput)
	}
	if err := v.Validate(out); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error())
	}
	return nil
}

// bindQuery parsea la query string, aplica la paginación por defecto y valida.
func bindQuery(c *fiber.Ctx, v *validator.Validator, out any) error {
	if err := c.QueryParser(out); err != nil {
		return fmt.Errorf("%w: parámetros de consulta inválidos", domain.ErrInvalidInput)
	}
	if p, ok := out.(pager); ok {
		p.DefaultPage()
	}
	if err := v.Validate(out); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error())
	}
	return nil
}

// actor del contexto; AuthMiddleware garantiza su presencia en rutas protegidas.
func actor(c *fiber.Ctx) policy.Actor {
	a, _ := GetActor(c)
	return a
}
