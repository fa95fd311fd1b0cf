// Package notify emails task owners when their task changes status.
//
// The event handler only looks up the owner and queues a background job;
// the email is sent by the job, so a slow or failing relay never delays the
// update that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/job"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/platform/mail"
	"github.com/phrazzld/taskhub/internal/store"
)

// JobTypeStatusEmail is the job type of status change emails.
const JobTypeStatusEmail = "task_status_email"

// noStatus is shown when a task had no previous status.
const noStatus = "—"

// UserGetter loads task owners.
type UserGetter interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Submitter queues background jobs.
type Submitter interface {
	Submit(ctx context.Context, j job.Job) error
}

// JobRegistry accepts job factories for recovery.
type JobRegistry interface {
	Register(jobType string, f job.Factory)
}

// StatusEmail is the payload of a status change email job.
type StatusEmail struct {
	To        string `json:"to"`
	Username  string `json:"username"`
	TaskID    int64  `json:"task_id"`
	Title     string `json:"title"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// Message renders the email.
func (e StatusEmail) Message() mail.Message {
	old := e.OldStatus
	if old == "" {
		old = noStatus
	}
	return mail.Message{
		To:      e.To,
		Subject: fmt.Sprintf("Status of your task «%s» changed", e.Title),
		Body: fmt.Sprintf("Hello, %s!\n\nThe status of your task «%s» has changed.\nOld status: %s\nNew status: %s\n",
			e.Username, e.Title, old, e.NewStatus),
	}
}

// Notifier handles task.status_changed events.
type Notifier struct {
	users  UserGetter
	jobs   Submitter
	sender mail.Sender
	logger *slog.Logger
}

// New creates a Notifier.
func New(users UserGetter, jobs Submitter, sender mail.Sender, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		users:  users,
		jobs:   jobs,
		sender: sender,
		logger: log.With("component", "notify"),
	}
}

// Register installs the notifier on emitter and its job factory on runner.
func (n *Notifier) Register(emitter *events.InMemoryEmitter, runner JobRegistry) {
	emitter.RegisterHandler(n)
	runner.Register(JobTypeStatusEmail, job.FuncFactory(n.send))
}

// HandleEvent queues an email for status change events. Other events and
// owners without an email address are ignored.
func (n *Notifier) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeTaskStatusChanged {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, n.logger)

	var change domain.StatusChange
	if err := event.UnmarshalPayload(&change); err != nil {
		return fmt.Errorf("failed to decode status change: %w", err)
	}

	owner, err := n.users.GetByID(ctx, change.OwnerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("task owner not found, skipping notification",
				"task_id", change.TaskID,
				"owner_id", change.OwnerID)
			return nil
		}
		return fmt.Errorf("failed to load task owner: %w", err)
	}
	if owner.Email == "" {
		log.Debug("task owner has no email, skipping notification", "task_id", change.TaskID)
		return nil
	}

	j, err := job.New(JobTypeStatusEmail, StatusEmail{
		To:        owner.Email,
		Username:  owner.Username,
		TaskID:    change.TaskID,
		Title:     change.Title,
		OldStatus: string(change.OldStatus),
		NewStatus: string(change.NewStatus),
	}, n.send)
	if err != nil {
		return err
	}
	if err := n.jobs.Submit(ctx, j); err != nil {
		return fmt.Errorf("failed to queue status email: %w", err)
	}

	log.Info("status email queued",
		"task_id", change.TaskID,
		"job_id", j.ID())
	return nil
}

// send is the body of a status email job.
func (n *Notifier) send(ctx context.Context, payload []byte) error {
	var email StatusEmail
	if err := json.Unmarshal(payload, &email); err != nil {
		return fmt.Errorf("invalid status email payload: %w", err)
	}
	return n.sender.Send(ctx, email.Message())
}
