package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
)

// TaskAPI is the task service as used by TaskHandler.
type TaskAPI interface {
	CRUD[domain.Task]
	Detail(ctx context.Context, id int64) (*domain.TaskDetail, error)
	Stats(ctx context.Context) (*domain.TaskStats, error)
}

// TaskHandler serves /api/tasks.
type TaskHandler struct {
	*ResourceHandler[domain.Task]
	tasks TaskAPI
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks TaskAPI, schema listing.Schema, pageSize int, log *slog.Logger) *TaskHandler {
	h := &TaskHandler{
		ResourceHandler: NewResourceHandler[domain.Task](tasks, schema, pageSize, log),
		tasks:           tasks,
	}
	h.get = h.Detail
	return h
}

// Routes registers the task routes on r.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Get("/stats", h.Stats)
	h.ResourceHandler.Routes(r)
}

// Detail handles GET /api/tasks/{id}; sub-tasks are nested.
func (h *TaskHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	detail, err := h.tasks.Detail(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, detail)
}

// Stats handles GET /api/tasks/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tasks.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// SubTaskAPI is the sub-task service as used by SubTaskHandler.
type SubTaskAPI interface {
	CRUD[domain.SubTask]
	Statuses() []domain.TaskStatus
	ByWeekday(ctx context.Context, day string, q listing.Query) ([]domain.SubTask, int, error)
}

// SubTaskHandler serves /api/subtasks. Lists use page-number pagination.
type SubTaskHandler struct {
	*ResourceHandler[domain.SubTask]
	subtasks SubTaskAPI
}

// NewSubTaskHandler creates a SubTaskHandler.
func NewSubTaskHandler(subtasks SubTaskAPI, schema listing.Schema, pageSize int, log *slog.Logger) *SubTaskHandler {
	return &SubTaskHandler{
		ResourceHandler: NewResourceHandler[domain.SubTask](subtasks, schema, pageSize, log).
			WithMode(listing.PageMode),
		subtasks: subtasks,
	}
}

// Routes registers the authenticated sub-task routes on r. Statuses is
// public and registered separately.
func (h *SubTaskHandler) Routes(r chi.Router) {
	r.Get("/day/{day}", h.ByWeekday)
	h.ResourceHandler.Routes(r)
}

// Statuses handles GET /api/subtasks/statuses.
func (h *SubTaskHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	statuses := h.subtasks.Statuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StatusesResponse{AvailableStatuses: out})
}

// ByWeekday handles GET /api/subtasks/day/{day}.
func (h *SubTaskHandler) ByWeekday(w http.ResponseWriter, r *http.Request) {
	day, err := url.PathUnescape(chi.URLParam(r, "day"))
	if err != nil {
		day = chi.URLParam(r, "day")
	}
	q, err := h.Query(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	rows, total, err := h.subtasks.ByWeekday(r.Context(), day, q)
	if errors.Is(err, domain.ErrInvalidWeekday) {
		shared.RespondWithJSON(w, r, http.StatusBadRequest, InvalidDayResponse{
			Detail:        fmt.Sprintf("Invalid day of week: %s", day),
			AllowedValues: domain.WeekdayNames(),
		})
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	respondPage(w, r, q, rows, total)
}
