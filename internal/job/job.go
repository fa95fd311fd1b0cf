package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	// ErrQueueFull is returned by Submit when the in-memory queue has no room.
	// The job is already persisted and will be picked up on the next start.
	ErrQueueFull = errors.New("job queue is full, try again later")

	// ErrNoFactory means a recovered record has a type nobody registered.
	ErrNoFactory = errors.New("no factory registered for job type")
)

// Job is a unit of background work.
type Job interface {
	ID() uuid.UUID
	Type() string
	Payload() []byte
	Status() Status
	Execute(ctx context.Context) error
}

// Record is a job as the store keeps it.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists jobs and their status.
type Store interface {
	// Save inserts a new job in its current status.
	Save(ctx context.Context, job Job) error

	// UpdateStatus moves a job to status. An unknown id is not an error.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error

	// ListByStatus returns jobs in status, oldest first. A positive olderThan
	// keeps only jobs whose last update is at least that old.
	ListByStatus(ctx context.Context, status Status, olderThan time.Duration) ([]Record, error)

	WithTx(tx *sql.Tx) Store
}

// Factory rebuilds a runnable job from its stored record.
type Factory func(rec Record) (Job, error)

// Func is a Job backed by a function. It is what most factories return.
type Func struct {
	JobID      uuid.UUID
	JobType    string
	JobPayload []byte
	Run        func(ctx context.Context, payload []byte) error
}

// New creates a pending Func job with payload encoded as JSON.
func New(jobType string, payload any, run func(ctx context.Context, payload []byte) error) (*Func, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Func{JobID: uuid.New(), JobType: jobType, JobPayload: data, Run: run}, nil
}

func (f *Func) ID() uuid.UUID   { return f.JobID }
func (f *Func) Type() string    { return f.JobType }
func (f *Func) Payload() []byte { return f.JobPayload }
func (f *Func) Status() Status  { return StatusPending }

// Execute runs the job function.
func (f *Func) Execute(ctx context.Context) error {
	return f.Run(ctx, f.JobPayload)
}

// FuncFactory returns a Factory that rebuilds records as Func jobs using run.
func FuncFactory(run func(ctx context.Context, payload []byte) error) Factory {
	return func(rec Record) (Job, error) {
		return &Func{JobID: rec.ID, JobType: rec.Type, JobPayload: rec.Payload, Run: run}, nil
	}
}
