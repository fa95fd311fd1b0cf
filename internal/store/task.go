package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
)

// TaskStore persists tasks. Deleted tasks keep their row with deleted_at
// set and are invisible to every read method.
type TaskStore interface {
	Repository[domain.Task]

	// Stats summarizes live tasks; overdue means due_date before now.
	Stats(ctx context.Context, now time.Time) (*domain.TaskStats, error)

	// SetField sets status or priority on the given live tasks and returns
	// the number of updated rows.
	SetField(ctx context.Context, column string, value any, ids []int64) (int64, error)

	// WithTx returns a TaskStore that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// SubTaskStore persists sub-tasks.
type SubTaskStore interface {
	Repository[domain.SubTask]

	// ListByTask returns the sub-tasks of a task, newest first.
	ListByTask(ctx context.Context, taskID int64) ([]domain.SubTask, error)

	// ListByDueWeekday returns sub-tasks whose parent task is due on day.
	ListByDueWeekday(ctx context.Context, day time.Weekday, q listing.Query) ([]domain.SubTask, int, error)

	// SetStatus sets the status of the given sub-tasks.
	SetStatus(ctx context.Context, status domain.TaskStatus, ids []int64) (int64, error)

	// WithTx returns a SubTaskStore that uses the provided transaction.
	WithTx(tx *sql.Tx) SubTaskStore
}
