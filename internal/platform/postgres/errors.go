package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// constraintErrors turns named constraints into the field messages clients see.
var constraintErrors = map[string]struct{ field, message string }{
	"users_username_key":                  {"username", "A user with that username already exists."},
	"users_email_lower_key":               {"email", "A user with that email already exists."},
	"projects_name_key":                   {"name", "project with this name already exists."},
	"projects_name_description_key":       {"non_field_errors", "The fields name, description must make a unique set."},
	"tags_name_key":                       {"name", "tag with this name already exists."},
	"categories_name_lower_key":           {"name", "Category with this name already exists."},
	"tasks_title_project_key":             {"non_field_errors", "The fields title, project must make a unique set."},
	"genres_name_lower_key":               {"name", "Genre with this name already exists."},
	"members_email_key":                   {"email", "member with this email already exists."},
	"author_details_author_key":           {"author", "author detail with this author already exists."},
	"posts_title_created_at_key":          {"non_field_errors", "The fields title, created_at must make a unique set."},
	"event_participants_event_member_key": {"non_field_errors", "The fields event, member must make a unique set."},
}

// MapError maps a database error to an appropriate store error.
// Unique and foreign key violations on known constraints additionally wrap
// a domain.FieldErrors so the HTTP layer can report the offending field.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			if c, ok := constraintErrors[pgErr.ConstraintName]; ok {
				return fmt.Errorf("%w: %w", store.ErrDuplicate, domain.FieldErrors{c.field: {c.message}})
			}
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case foreignKeyViolationCode:
			return fmt.Errorf("%w: foreign key violation (%s): %w",
				store.ErrInvalidEntity,
				pgErr.ConstraintName,
				domain.FieldErrors{"non_field_errors": {"Invalid pk - object does not exist."}})
		case checkViolationCode:
			return fmt.Errorf("%w: check constraint violation (%s): %v",
				store.ErrInvalidEntity, pgErr.ConstraintName, err)
		case notNullViolationCode:
			return fmt.Errorf("%w: not null violation (%s): %v",
				store.ErrInvalidEntity, pgErr.ColumnName, err)
		}
	}

	return err
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation checks if the given error is a PostgreSQL foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected returns an ErrNotFound naming entity when result
// touched no rows.
func CheckRowsAffected(result sql.Result, entity string) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		if entity == "" {
			return store.ErrNotFound
		}
		return store.NotFound(entity)
	}
	return nil
}

// notFound maps sql.ErrNoRows to the entity-specific sentinel and every
// other error through MapError.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return MapError(err)
}
