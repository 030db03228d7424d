package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/application/task"
	"github.com/jhoicas/taskvault-api/pkg/logger"
	"github.com/jhoicas/taskvault-api/pkg/validator"
)

// TaskHandler tareas, subtareas, comentarios e historial.
type TaskHandler struct {
	tasks    *task.TaskUseCase
	comments *task.CommentUseCase
	history  *task.HistoryUseCase
	val      *validator.Validator
	log      *logger.Logger
}

// NewTaskHandler construye el handler.
func NewTaskHandler(tasks *task.TaskUseCase, comments *task.CommentUseCase, history *task.HistoryUseCase, val *validator.Validator, log *logger.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, comments: comments, history: history, val: val, log: log}
}

// Create godoc
// @Summary      Crear tarea o subtarea
// @Tags         tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTaskRequest  true  "Datos de la tarea (parent_task_id para subtarea)"
// @Success      201   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/tasks [post]
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTaskRequest
	if err := bindBody(c, h.val, &in); err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.tasks.Create(c.UserContext(), actor(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar tareas visibles para el actor
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Param        limit           query  int     false  "Límite"
// @Param        offset          query  int     false  "Desplazamiento"
// @Param        status          query  string  false  "PENDING, IN_PROGRESS o COMPLETED"
// @Param        priority        query  string  false  "HIGH, MEDIUM o LOW"
// @Param        parent_task_id  query  string  false  "Subtareas de una tarea"
// @Success      200  {object}  dto.TaskListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c *fiber.Ctx) error {
	var in dto.ListTasksRequest
	if err := bindQuery(c, h.val, &in); err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.tasks.List(c.UserContext(), actor(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener tarea por ID
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la tarea"
// @Success      200  {object}  dto.TaskResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	out, err := h.tasks.Get(c.UserContext(), actor(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Cambiar estado, prioridad o fecha límite
// @Tags         tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la tarea"
// @Param        body  body  dto.UpdateTaskRequest  true  "Al menos un campo"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/tasks/{id} [patch]
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateTaskRequest
	if err := bindBody(c, h.val, &in); err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.tasks.Update(c.UserContext(), actor(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar tarea (borrado lógico)
// @Tags         tasks
// @Security     Bearer
// @Param        id   path  string  true  "ID de la tarea"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	if err := h.tasks.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListComments godoc
// @Summary      Comentarios de una tarea (más recientes primero)
// @Tags         comments
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la tarea"
// @Param        limit   query  int     false  "Límite"
// @Param        offset  query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.CommentListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id}/comments [get]
func (h *TaskHandler) ListComments(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, h.val, &page); err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.comments.List(c.UserContext(), actor(c), c.Params("id"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// CreateComment godoc
// @Summary      Comentar una tarea
// @Tags         comments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID de la tarea"
// @Param        body  body  dto.CommentRequest  true  "Mensaje"
// @Success      201   {object}  dto.CommentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/tasks/{id}/comments [post]
func (h *TaskHandler) CreateComment(c *fiber.Ctx) error {
	var in dto.CommentRequest
	if err := bindBody(c, h.val, &in); err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.comments.Create(c.UserContext(), actor(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateComment godoc
// @Summary      Editar comentario propio
// @Tags         comments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id          path  string              true  "ID de la tarea"
// @Param        comment_id  path  string              true  "ID del comentario"
// @Param        body        body  dto.CommentRequest  true  "Nuevo mensaje"
// @Success      200  {object}  dto.CommentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id}/comments/{comment_id} [patch]
func (h *TaskHandler) UpdateComment(c *fiber.Ctx) error {
	var in dto.CommentRequest
	if err := bindBody(c, h.val, &in); err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.comments.Update(c.UserContext(), actor(c), c.Params("id"), c.Params("comment_id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// DeleteComment godoc
// @Summary      Eliminar comentario
// @Tags         comments
// @Security     Bearer
// @Param        id          path  string  true  "ID de la tarea"
// @Param        comment_id  path  string  true  "ID del comentario"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id}/comments/{comment_id} [delete]
func (h *TaskHandler) DeleteComment(c *fiber.Ctx) error {
	if err := h.comments.Delete(c.UserContext(), actor(c), c.Params("id"), c.Params("comment_id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListHistory godoc
// @Summary      Historial de cambios de estado y prioridad
// @Tags         history
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la tarea"
// @Param        limit   query  int     false  "Límite"
// @Param        offset  query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.TaskHistoryListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id}/history [get]
func (h *TaskHandler) ListHistory(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, h.val, &page); err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.history.List(c.UserContext(), actor(c), c.Params("id"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
