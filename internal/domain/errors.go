package domain

import "errors"

// Clases de error de dominio. Los casos de uso envuelven con fmt.Errorf("%w: ...")
// y la capa HTTP decide el status con errors.Is contra estas clases.
var (
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInvalidSignature   = errors.New("firma inválida")
	ErrGatewayUnavailable = errors.New("pasarela de pagos no disponible")
)

// Errores específicos; cada uno pertenece a una de las clases anteriores.
var (
	ErrUserNotFound         = newClassified(ErrNotFound, "usuario no encontrado")
	ErrOrganizationNotFound = newClassified(ErrNotFound, "organización no encontrada")
	ErrTaskNotFound         = newClassified(ErrNotFound, "tarea no encontrada")
	ErrCommentNotFound      = newClassified(ErrNotFound, "comentario no encontrado")
	ErrSubscriptionNotFound = newClassified(ErrNotFound, "suscripción no encontrada")
	ErrWebhookEventNotFound = newClassified(ErrNotFound, "evento de webhook no encontrado")

	ErrEmailAlreadyExists = newClassified(ErrConflict, "el email ya está registrado")
	ErrSubscriptionActive = newClassified(ErrConflict, "la organización ya tiene una suscripción activa")
	ErrActiveSubtasks     = newClassified(ErrConflict, "la tarea tiene subtareas activas")
	ErrDuplicateTitle     = newClassified(ErrConflict, "ya existe una tarea con ese título para el asignado")
	ErrSuperAdminExists   = newClassified(ErrConflict, "ya existe un super-admin")

	ErrIncompleteSubtasks = newClassified(ErrInvalidInput, "no se puede completar: hay subtareas sin completar")
	ErrNoChanges          = newClassified(ErrInvalidInput, "no hay cambios para aplicar")
	ErrDeadlineInPast     = newClassified(ErrInvalidInput, "la fecha límite debe ser futura")
	ErrInvalidOTP         = newClassified(ErrInvalidInput, "código de verificación inválido o expirado")

	ErrOrganizationInactive = newClassified(ErrForbidden, "la organización está desactivada")
	ErrInvalidCredentials   = newClassified(ErrUnauthorized, "credenciales inválidas")
)

// classified es un error con mensaje propio que además responde a errors.Is con su clase.
type classified struct {
	class error
	msg   string
}

func newClassified(class error, msg string) error {
	return &classified{class: class, msg: msg}
}

func (e *classified) Error() string { return e.msg }

func (e *classified) Unwrap() error { return e.class }
