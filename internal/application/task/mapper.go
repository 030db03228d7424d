package task

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/jhoicas/taskvault-api/internal/application/dto"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// TitleKey clave de unicidad del título: recortado y con plegado Unicode de mayúsculas.
func TitleKey(title string) string {
	return cases.Fold().String(strings.Join(strings.Fields(title), " "))
}

// ToTaskResponse mapea la entidad a su DTO.
func ToTaskResponse(t *entity.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		OwnerID:        t.OwnerID,
		AssigneeID:     t.AssigneeID,
		ParentTaskID:   t.ParentTaskID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		Deadline:       t.Deadline,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func toCommentResponse(c *entity.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        c.ID,
		TaskID:    c.TaskID,
		UserID:    c.UserID,
		Message:   c.Message,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toHistoryResponse(h *entity.TaskHistory) dto.TaskHistoryResponse {
	return dto.TaskHistoryResponse{
		ID:          h.ID,
		TaskID:      h.TaskID,
		ActorID:     h.ActorID,
		OldStatus:   string(h.OldStatus),
		NewStatus:   string(h.NewStatus),
		OldPriority: string(h.OldPriority),
		NewPriority: string(h.NewPriority),
		CreatedAt:   h.CreatedAt,
	}
}
