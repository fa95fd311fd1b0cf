package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskhub/internal/job"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// PostgresJobStore implements job.Store on the jobs table.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ job.Store = (*PostgresJobStore)(nil)

// NewPostgresJobStore creates a job store bound to db.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{db: db, logger: logger.With("component", "job_store")}
}

// WithTx implements job.Store.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) job.Store {
	return &PostgresJobStore{db: tx, logger: s.logger}
}

// Save implements job.Store.
func (s *PostgresJobStore) Save(ctx context.Context, j job.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	payload := j.Payload()
	if len(payload) == 0 {
		payload = []byte("null")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		j.ID(), j.Type(), payload, string(j.Status()), now, now)
	if err != nil {
		log.Error("failed to save job",
			"job_id", j.ID(),
			"job_type", j.Type(),
			"error", err)
		return fmt.Errorf("failed to save job: %w", MapError(err))
	}
	return nil
}

// UpdateStatus implements job.Store.
func (s *PostgresJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status job.Status, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4`,
		string(status), errorMsg, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update job status",
			"job_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update job status: %w", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		log.Warn("no job found to update", "job_id", id)
	}
	return nil
}

// ListByStatus implements job.Store.
func (s *PostgresJobStore) ListByStatus(ctx context.Context, status job.Status, olderThan time.Duration) ([]job.Record, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM jobs
		WHERE status = $1`
	args := []any{string(status)}
	if olderThan > 0 {
		query += " AND updated_at < $2"
		args = append(args, time.Now().UTC().Add(-olderThan))
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query jobs: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []job.Record
	for rows.Next() {
		var rec job.Record
		var st string
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Payload, &st, &rec.ErrorMessage,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		rec.Status = job.Status(st)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return out, nil
}
