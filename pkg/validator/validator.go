// Package validator envuelve go-playground/validator usando los nombres JSON de los campos.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator valida DTOs de entrada.
type Validator struct {
	validate *validator.Validate
}

// New construye el validador con nombres de campo tomados del tag json.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate devuelve un único error legible con todas las violaciones.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}
	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		field := err.Field()
		var msg string
		switch err.Tag() {
		case "required":
			msg = fmt.Sprintf("%s es requerido", field)
		case "email":
			msg = fmt.Sprintf("%s debe ser un email válido", field)
		case "min":
			msg = fmt.Sprintf("%s debe tener al menos %s caracteres", field, err.Param())
		case "max":
			msg = fmt.Sprintf("%s debe tener como máximo %s caracteres", field, err.Param())
		case "uuid":
			msg = fmt.Sprintf("%s debe ser un UUID válido", field)
		case "oneof":
			msg = fmt.Sprintf("%s debe ser uno de: %s", field, err.Param())
		case "len":
			msg = fmt.Sprintf("%s debe tener %s caracteres", field, err.Param())
		case "numeric":
			msg = fmt.Sprintf("%s debe ser numérico", field)
		default:
			msg = fmt.Sprintf("%s no cumple la regla %s", field, err.Tag())
		}
		messages = append(messages, msg)
	}
	return errors.New(strings.Join(messages, "; "))
}
