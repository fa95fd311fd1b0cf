package domain

import (
	"fmt"
	"slices"
	"time"
)

// TaskStatus is the workflow state shared by tasks and sub-tasks.
type TaskStatus string

// Task statuses.
const (
	StatusNew        TaskStatus = "New"
	StatusInProgress TaskStatus = "In_progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusClosed     TaskStatus = "Closed"
	StatusPending    TaskStatus = "Pending"
	StatusBlocked    TaskStatus = "Blocked"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []TaskStatus{
	StatusNew, StatusInProgress, StatusCompleted, StatusClosed, StatusPending, StatusBlocked,
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return slices.Contains(TaskStatuses, s)
}

// Priority ranks tasks.
type Priority string

// Task priorities.
const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityVeryHigh Priority = "Very High"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityVeryHigh}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// Task title length limits.
const (
	MinTaskTitleLength = 10
	MaxTaskTitleLength = 255
)

// Task is a unit of work inside a project. Title is unique per project.
type Task struct {
	Model
	Title       string     `json:"title"       validate:"required,min=10,max=255"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	ProjectID   int64      `json:"project"     validate:"required,gt=0"`
	AssigneeID  *int64     `json:"assignee"`
	OwnerID     int64      `json:"owner_id"`
	OwnerName   string     `json:"owner"`
	CategoryIDs []int64    `json:"categories"`
	TagIDs      []int64    `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
	DueDate     *time.Time `json:"due_date"`
}

// NewTask returns a task with the default status and priority.
func NewTask(title string, projectID int64) *Task {
	return &Task{
		Title:     title,
		ProjectID: projectID,
		Status:    StatusNew,
		Priority:  PriorityMedium,
	}
}

// SetDefaults prepares a fresh task before client data is applied.
func (t *Task) SetDefaults() {
	t.Status = StatusNew
	t.Priority = PriorityMedium
}

// Validate checks the task's fields. The due date rule depends on the
// current time and lives in ValidateDueDate.
func (t *Task) Validate() error {
	fe := validateStruct(t)
	if !t.Status.Valid() {
		fe.Add("status", fmt.Sprintf("%q is not a valid choice.", t.Status))
	}
	if !t.Priority.Valid() {
		fe.Add("priority", fmt.Sprintf("%q is not a valid choice.", t.Priority))
	}
	if t.AssigneeID != nil && *t.AssigneeID <= 0 {
		fe.Add("assignee", "Invalid pk.")
	}
	return fe.Err()
}

// ValidateDueDate rejects due dates in the past relative to now.
func (t *Task) ValidateDueDate(now time.Time) error {
	if t.DueDate != nil && t.DueDate.Before(now) {
		return NewValidationError("due_date", "Due date cannot be in the past.", nil)
	}
	return nil
}

// CopyReadOnly copies server-managed fields from prev.
func (t *Task) CopyReadOnly(prev *Task) {
	t.OwnerID = prev.OwnerID
	t.OwnerName = prev.OwnerName
	t.CreatedAt = prev.CreatedAt
	t.UpdatedAt = prev.UpdatedAt
	t.DeletedAt = prev.DeletedAt
}

// Owner implements Owned.
func (t *Task) Owner() int64 { return t.OwnerID }

// AssignOwner implements Owned.
func (t *Task) AssignOwner(userID int64) { t.OwnerID = userID }

// IsSoftDeleted implements SoftDeletable.
func (t *Task) IsSoftDeleted() bool { return t.DeletedAt != nil }

// TaskDetail is a task with its sub-tasks.
type TaskDetail struct {
	Task
	SubTasks []SubTask `json:"subtasks"`
}

// StatusCount is the number of tasks in one status.
type StatusCount struct {
	Status TaskStatus `json:"status"`
	Count  int        `json:"count"`
}

// TaskStats summarizes live tasks.
type TaskStats struct {
	TotalTasks    int           `json:"total_tasks"`
	TasksByStatus []StatusCount `json:"tasks_by_status"`
	OverdueTasks  int           `json:"overdue_tasks"`
}

// StatusChange records a task moving from one status to another.
type StatusChange struct {
	TaskID    int64      `json:"task_id"`
	Title     string     `json:"title"`
	OwnerID   int64      `json:"owner_id"`
	OldStatus TaskStatus `json:"old_status"`
	NewStatus TaskStatus `json:"new_status"`
}
