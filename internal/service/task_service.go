package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// TaskService implements the task use cases.
type TaskService struct {
	*Resource[domain.Task, *domain.Task]
	tasks    store.TaskStore
	subtasks store.SubTaskStore
	emitter  events.Emitter
	now      func() time.Time
	logger   *slog.Logger
}

// NewTaskService creates a TaskService. Status changes are published on
// emitter, which may be nil.
func NewTaskService(tasks store.TaskStore, subtasks store.SubTaskStore, emitter events.Emitter, log *slog.Logger) *TaskService {
	if log == nil {
		log = slog.Default()
	}
	s := &TaskService{
		tasks:    tasks,
		subtasks: subtasks,
		emitter:  emitter,
		now:      time.Now,
		logger:   log.With("component", "task_service"),
	}
	s.Resource = NewResource[domain.Task](tasks, log, s.checkDueDate)
	s.OnUpdate(s.publishStatusChange)
	return s
}

// checkDueDate applies the due date rule on create, and on update only when
// the due date changes.
func (s *TaskService) checkDueDate(ctx context.Context, v, prev *domain.Task) error {
	if prev != nil && sameInstant(v.DueDate, prev.DueDate) {
		return nil
	}
	return v.ValidateDueDate(s.now())
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (s *TaskService) publishStatusChange(ctx context.Context, v, prev *domain.Task) {
	if v.Status == prev.Status || s.emitter == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(events.TypeTaskStatusChanged, domain.StatusChange{
		TaskID:    v.ID,
		Title:     v.Title,
		OwnerID:   v.OwnerID,
		OldStatus: prev.Status,
		NewStatus: v.Status,
	})
	if err != nil {
		log.Error("failed to build status change event", "task_id", v.ID, "error", err)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("status change notification failed",
			"task_id", v.ID,
			"event_id", event.ID,
			"error", err)
	}
}

// Detail returns the task with its sub-tasks.
func (s *TaskService) Detail(ctx context.Context, id int64) (*domain.TaskDetail, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subtasks, err := s.subtasks.ListByTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.TaskDetail{Task: *t, SubTasks: subtasks}, nil
}

// Stats summarizes live tasks.
func (s *TaskService) Stats(ctx context.Context) (*domain.TaskStats, error) {
	return s.tasks.Stats(ctx, s.now())
}

// SubTaskService implements the sub-task use cases.
type SubTaskService struct {
	*Resource[domain.SubTask, *domain.SubTask]
	subtasks store.SubTaskStore
}

// NewSubTaskService creates a SubTaskService.
func NewSubTaskService(subtasks store.SubTaskStore, log *slog.Logger) *SubTaskService {
	return &SubTaskService{
		Resource: NewResource[domain.SubTask](subtasks, log),
		subtasks: subtasks,
	}
}

// Statuses lists the statuses a sub-task may take.
func (s *SubTaskService) Statuses() []domain.TaskStatus {
	return domain.TaskStatuses
}

// ByWeekday lists sub-tasks whose task is due on the named day. The name is
// English or Russian in any case; anything else is domain.ErrInvalidWeekday.
func (s *SubTaskService) ByWeekday(ctx context.Context, day string, q listing.Query) ([]domain.SubTask, int, error) {
	wd, err := domain.ParseWeekday(day)
	if err != nil {
		return nil, 0, err
	}
	return s.subtasks.ListByDueWeekday(ctx, wd, q)
}
