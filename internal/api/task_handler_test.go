package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/api"
	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/mocks"
	"github.com/phrazzld/taskhub/internal/service"
)

var taskSchema = listing.Schema{
	Fields: []listing.Field{
		{Name: "id", Column: "t.id", Type: listing.Int},
		{Name: "status", Column: "t.status"},
		{Name: "created_at", Column: "t.created_at", Type: listing.Time},
	},
	Ordering: []string{"id", "created_at"},
	Default:  "created_at",
	Exact:    []string{"status"},
}

type taskFixture struct {
	tasks    *mocks.MockTaskStore
	subtasks *mocks.MockSubTaskStore
}

func newTaskFixture() *taskFixture {
	return &taskFixture{
		tasks: mocks.NewMockTaskStore(domain.Task{
			Title:     "Write the quarterly report",
			Status:    domain.StatusNew,
			Priority:  domain.PriorityMedium,
			ProjectID: 1,
			OwnerID:   alice.UserID,
		}),
		subtasks: mocks.NewMockSubTaskStore(
			domain.SubTask{Title: "Collect numbers", TaskID: 1, Status: domain.StatusNew, OwnerID: alice.UserID},
			domain.SubTask{Title: "Draft summary", TaskID: 1, Status: domain.StatusPending, OwnerID: alice.UserID},
			domain.SubTask{Title: "Unrelated", TaskID: 2, Status: domain.StatusNew, OwnerID: bob.UserID},
		),
	}
}

func (f *taskFixture) taskServer(p *shared.Principal) http.Handler {
	svc := service.NewTaskService(f.tasks, f.subtasks, nil, nil)
	return mount("/api/tasks", p, api.NewTaskHandler(svc, taskSchema, 5, nil).Routes)
}

func (f *taskFixture) subtaskServer(p *shared.Principal) http.Handler {
	h := api.NewSubTaskHandler(service.NewSubTaskService(f.subtasks, nil), taskSchema, 5, nil)
	r := chi.NewRouter()
	r.Get("/api/subtasks/statuses", h.Statuses)
	r.Group(func(r chi.Router) {
		r.Use(asUser(p))
		r.Route("/api/subtasks", h.Routes)
	})
	return r
}

func TestTaskHandler_CreateAssignsOwner(t *testing.T) {
	f := newTaskFixture()
	srv := f.taskServer(bob)

	rec := do(t, srv, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "Prepare the release notes",
		"project":  1,
		"owner_id": alice.UserID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[domain.Task](t, rec)
	assert.Equal(t, bob.UserID, got.OwnerID)
	assert.Equal(t, domain.StatusNew, got.Status)
	assert.Equal(t, domain.PriorityMedium, got.Priority)
}

func TestTaskHandler_CreateValidation(t *testing.T) {
	f := newTaskFixture()
	srv := f.taskServer(alice)
	past := time.Now().Add(-48 * time.Hour)

	rec := do(t, srv, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "short",
		"project":  1,
		"due_date": past,
		"status":   "Sleeping",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[shared.ErrorResponse](t, rec)
	assert.Equal(t, "Validation error", body.Error)
	assert.Contains(t, body.Fields, "title")
	assert.Contains(t, body.Fields, "status")
	assert.Equal(t, []string{"Due date cannot be in the past."}, body.Fields["due_date"])
}

func TestTaskHandler_OwnerOnlyWrites(t *testing.T) {
	tests := []struct {
		name      string
		principal *shared.Principal
		want      int
	}{
		{"owner", alice, http.StatusOK},
		{"other user", bob, http.StatusForbidden},
		{"superuser", root, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTaskFixture().taskServer(tt.principal)
			rec := do(t, srv, http.MethodPatch, "/api/tasks/1", map[string]any{"status": "In_progress"})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == http.StatusForbidden {
				assert.Equal(t, "You do not have permission to perform this action.",
					decode[shared.ErrorResponse](t, rec).Error)
			}
		})
	}
}

func TestTaskHandler_DeleteByOtherUserForbidden(t *testing.T) {
	f := newTaskFixture()
	rec := do(t, f.taskServer(bob), http.MethodDelete, "/api/tasks/1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, f.tasks.Len())
}

func TestTaskHandler_DetailNestsSubtasks(t *testing.T) {
	srv := newTaskFixture().taskServer(alice)

	rec := do(t, srv, http.MethodGet, "/api/tasks/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[domain.TaskDetail](t, rec)
	assert.Equal(t, "Write the quarterly report", detail.Title)
	require.Len(t, detail.SubTasks, 2)
	assert.Equal(t, "Collect numbers", detail.SubTasks[0].Title)

	rec = do(t, srv, http.MethodGet, "/api/tasks/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decode[shared.ErrorResponse](t, rec).Error)
}

func TestTaskHandler_Stats(t *testing.T) {
	f := newTaskFixture()
	f.tasks.StatsFn = func(context.Context, time.Time) (*domain.TaskStats, error) {
		return &domain.TaskStats{
			TotalTasks:    3,
			TasksByStatus: []domain.StatusCount{{Status: domain.StatusNew, Count: 2}, {Status: domain.StatusClosed, Count: 1}},
			OverdueTasks:  1,
		}, nil
	}

	rec := do(t, f.taskServer(alice), http.MethodGet, "/api/tasks/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"total_tasks": 3,
		"tasks_by_status": [{"status": "New", "count": 2}, {"status": "Closed", "count": 1}],
		"overdue_tasks": 1
	}`, rec.Body.String())
}

func TestSubTaskHandler_StatusesIsPublic(t *testing.T) {
	rec := do(t, newTaskFixture().subtaskServer(nil), http.MethodGet, "/api/subtasks/statuses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"available_statuses": ["New", "In_progress", "Completed", "Closed", "Pending", "Blocked"]}`,
		rec.Body.String())
}

func TestSubTaskHandler_PageNumberPagination(t *testing.T) {
	f := newTaskFixture()
	for i := range 4 {
		require.NoError(t, f.subtasks.Create(context.Background(), &domain.SubTask{
			Title: fmt.Sprintf("Step %d", i), TaskID: 1, Status: domain.StatusNew, OwnerID: alice.UserID,
		}))
	}
	srv := f.subtaskServer(alice)

	rec := do(t, srv, http.MethodGet, "/api/subtasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[listing.Page[domain.SubTask]](t, rec)
	require.NotNil(t, page.Count)
	assert.Equal(t, 7, *page.Count)
	assert.Len(t, page.Results, 5)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	rec = do(t, srv, http.MethodGet, "/api/subtasks?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[listing.Page[domain.SubTask]](t, rec)
	assert.Len(t, page.Results, 2)
	assert.Nil(t, page.Next)
	assert.NotNil(t, page.Previous)

	rec = do(t, srv, http.MethodGet, "/api/subtasks?page=9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid page.", decode[shared.ErrorResponse](t, rec).Error)
}

func TestSubTaskHandler_ByWeekday(t *testing.T) {
	f := newTaskFixture()
	var gotDay time.Weekday
	f.subtasks.ListByDueWeekdayFn = func(_ context.Context, day time.Weekday, q listing.Query) ([]domain.SubTask, int, error) {
		gotDay = day
		assert.Equal(t, listing.PageMode, q.Mode)
		return []domain.SubTask{{Title: "Collect numbers", TaskID: 1}}, 1, nil
	}
	srv := f.subtaskServer(alice)

	for _, day := range []string{"friday", "Friday", "пятница"} {
		rec := do(t, srv, http.MethodGet, "/api/subtasks/day/"+url.PathEscape(day), nil)
		require.Equal(t, http.StatusOK, rec.Code, day)
		page := decode[listing.Page[domain.SubTask]](t, rec)
		assert.Len(t, page.Results, 1)
		assert.Equal(t, time.Friday, gotDay)
	}

	rec := do(t, srv, http.MethodGet, "/api/subtasks/day/someday", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[api.InvalidDayResponse](t, rec)
	assert.Equal(t, "Invalid day of week: someday", body.Detail)
	assert.Equal(t, domain.WeekdayNames(), body.AllowedValues)
}

func TestSubTaskHandler_RequiresAuthentication(t *testing.T) {
	srv := newTaskFixture().subtaskServer(nil)
	rec := do(t, srv, http.MethodPost, "/api/subtasks", map[string]any{"title": "x", "task": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
