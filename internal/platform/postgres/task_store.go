package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

const ownerNameExpr = "COALESCE((SELECT u.username FROM users u WHERE u.id = t.owner_id), '')"

// TaskTable describes how tasks are stored. Deleted tasks keep their row
// with deleted_at set.
func TaskTable() TableDef[domain.Task] {
	type T = domain.Task
	return TableDef[T]{
		Entity: "task",
		Table:  "tasks",
		Columns: []Column[T]{
			col("title", func(t *T) *string { return &t.Title }),
			col("description", func(t *T) **string { return &t.Description }),
			col("status", func(t *T) *domain.TaskStatus { return &t.Status }),
			col("priority", func(t *T) *domain.Priority { return &t.Priority }),
			col("project_id", func(t *T) *int64 { return &t.ProjectID }),
			col("assignee_id", func(t *T) **int64 { return &t.AssigneeID }),
			col("owner_id", func(t *T) *int64 { return &t.OwnerID }),
			computed("owner", ownerNameExpr, func(t *T) *string { return &t.OwnerName }),
			readOnly("created_at", func(t *T) *time.Time { return &t.CreatedAt }),
			{Name: "updated_at", SQL: "NOW()", Dest: func(t *T) any { return &t.UpdatedAt }},
			readOnly("deleted_at", func(t *T) **time.Time { return &t.DeletedAt }),
			col("due_date", func(t *T) **time.Time { return &t.DueDate }),
		},
		ManyToMany: []ManyToMany[T]{
			{Table: "task_categories", OwnerCol: "task_id", TargetCol: "category_id",
				IDs: func(t *T) *[]int64 { return &t.CategoryIDs }},
			{Table: "task_tags", OwnerCol: "task_id", TargetCol: "tag_id",
				IDs: func(t *T) *[]int64 { return &t.TagIDs }},
		},
		SoftDelete: StampDeleted("deleted_at"),
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "title", Column: "t.title"},
				{Name: "description", Column: "t.description"},
				{Name: "status", Column: "t.status", Choices: choices(domain.TaskStatuses)},
				{Name: "priority", Column: "t.priority", Choices: choices(domain.Priorities)},
				{Name: "project", Column: "t.project_id", Type: listing.Int},
				{Name: "assignee", Column: "t.assignee_id", Type: listing.Int},
				{Name: "owner", Column: "t.owner_id", Type: listing.Int},
				{Name: "due_date", Column: "t.due_date", Type: listing.Time},
				{Name: "created_at", Column: "t.created_at", Type: listing.Time},
				{Name: "updated_at", Column: "t.updated_at", Type: listing.Time},
			},
			Search:   []string{"title", "description"},
			Ordering: []string{"id", "created_at", "due_date", "priority", "title"},
			Default:  "created_at",
			Exact:    []string{"status", "due_date", "priority", "project"},
		},
	}
}

// PostgresTaskStore implements store.TaskStore.
type PostgresTaskStore struct {
	*Table[domain.Task, *domain.Task]
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store bound to db.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	return &PostgresTaskStore{Table: NewTable[domain.Task](db, TaskTable(), logger)}
}

// WithTx implements store.TaskStore.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{Table: s.Table.WithTx(tx)}
}

// Get implements store.Repository with the task-specific not found error.
func (s *PostgresTaskStore) Get(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := s.Table.Get(ctx, id)
	if store.IsNotFoundError(err) {
		return nil, store.ErrTaskNotFound
	}
	return t, err
}

// Stats implements store.TaskStore.
func (s *PostgresTaskStore) Stats(ctx context.Context, now time.Time) (*domain.TaskStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	stats := &domain.TaskStats{TasksByStatus: []domain.StatusCount{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE due_date < $1)
		FROM tasks
		WHERE deleted_at IS NULL`, now).Scan(&stats.TotalTasks, &stats.OverdueTasks)
	if err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE deleted_at IS NULL
		GROUP BY status
		ORDER BY status`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.TasksByStatus = append(stats.TasksByStatus, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return stats, nil
}

// SetField implements store.TaskStore. Only status and priority may be set.
func (s *PostgresTaskStore) SetField(ctx context.Context, column string, value any, ids []int64) (int64, error) {
	if column != "status" && column != "priority" {
		return 0, fmt.Errorf("%w: column %q cannot be bulk updated", store.ErrInvalidEntity, column)
	}
	query := fmt.Sprintf(
		"UPDATE tasks SET %s = $1, updated_at = NOW() WHERE id = ANY($2) AND deleted_at IS NULL", column)
	return execCount(ctx, s.db, query, value, ids)
}

// SubTaskTable describes how sub-tasks are stored.
func SubTaskTable() TableDef[domain.SubTask] {
	type S = domain.SubTask
	return TableDef[S]{
		Entity: "subtask",
		Table:  "subtasks",
		Columns: []Column[S]{
			col("title", func(s *S) *string { return &s.Title }),
			col("description", func(s *S) **string { return &s.Description }),
			col("task_id", func(s *S) *int64 { return &s.TaskID }),
			col("status", func(s *S) *domain.TaskStatus { return &s.Status }),
			col("owner_id", func(s *S) *int64 { return &s.OwnerID }),
			computed("owner", ownerNameExpr, func(s *S) *string { return &s.OwnerName }),
			col("deadline", func(s *S) **time.Time { return &s.Deadline }),
			readOnly("created_at", func(s *S) *time.Time { return &s.CreatedAt }),
		},
		Schema: listing.Schema{
			Fields: []listing.Field{
				{Name: "id", Column: "t.id", Type: listing.Int},
				{Name: "title", Column: "t.title"},
				{Name: "description", Column: "t.description"},
				{Name: "status", Column: "t.status", Choices: choices(domain.TaskStatuses)},
				{Name: "task", Column: "t.task_id", Type: listing.Int},
				{Name: "owner", Column: "t.owner_id", Type: listing.Int},
				{Name: "deadline", Column: "t.deadline", Type: listing.Time},
				{Name: "created_at", Column: "t.created_at", Type: listing.Time},
			},
			Search:   []string{"title", "description"},
			Ordering: []string{"id", "created_at", "deadline"},
			Default:  "-created_at",
			Exact:    []string{"status", "deadline", "task"},
		},
	}
}

// PostgresSubTaskStore implements store.SubTaskStore.
type PostgresSubTaskStore struct {
	*Table[domain.SubTask, *domain.SubTask]
}

var _ store.SubTaskStore = (*PostgresSubTaskStore)(nil)

// NewPostgresSubTaskStore creates a sub-task store bound to db.
func NewPostgresSubTaskStore(db store.DBTX, logger *slog.Logger) *PostgresSubTaskStore {
	return &PostgresSubTaskStore{Table: NewTable[domain.SubTask](db, SubTaskTable(), logger)}
}

// WithTx implements store.SubTaskStore.
func (s *PostgresSubTaskStore) WithTx(tx *sql.Tx) store.SubTaskStore {
	return &PostgresSubTaskStore{Table: s.Table.WithTx(tx)}
}

// Get implements store.Repository with the sub-task not found error.
func (s *PostgresSubTaskStore) Get(ctx context.Context, id int64) (*domain.SubTask, error) {
	st, err := s.Table.Get(ctx, id)
	if store.IsNotFoundError(err) {
		return nil, store.ErrSubTaskNotFound
	}
	return st, err
}

// ListByTask implements store.SubTaskStore.
func (s *PostgresSubTaskStore) ListByTask(ctx context.Context, taskID int64) ([]domain.SubTask, error) {
	created, _ := s.def.Schema.Field("created_at")
	q := listing.Query{
		Mode:  listing.Unpaged,
		Order: []listing.Order{{Field: created, Desc: true}},
	}
	subtasks, _, err := s.ListWhere(ctx, q, "t.task_id = ?", taskID)
	return subtasks, err
}

// ListByDueWeekday implements store.SubTaskStore. PostgreSQL numbers days
// from Sunday = 0 like time.Weekday.
func (s *PostgresSubTaskStore) ListByDueWeekday(ctx context.Context, day time.Weekday, q listing.Query) ([]domain.SubTask, int, error) {
	return s.ListWhere(ctx, q, `EXISTS (
		SELECT 1 FROM tasks p
		WHERE p.id = t.task_id AND p.deleted_at IS NULL AND EXTRACT(DOW FROM p.due_date) = ?)`, int(day))
}

// SetStatus implements store.SubTaskStore.
func (s *PostgresSubTaskStore) SetStatus(ctx context.Context, status domain.TaskStatus, ids []int64) (int64, error) {
	return execCount(ctx, s.db, "UPDATE subtasks SET status = $1 WHERE id = ANY($2)", string(status), ids)
}

// execCount runs an update and returns the number of affected rows.
func execCount(ctx context.Context, db store.DBTX, query string, args ...any) (int64, error) {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
