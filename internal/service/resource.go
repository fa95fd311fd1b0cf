package service

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// Actor is the authenticated user a request acts for.
type Actor struct {
	UserID    int64
	Username  string
	Superuser bool
	Staff     bool
}

// Model constrains the pointer type of entities served by Resource.
type Model[T any] interface {
	*T
	domain.Entity
	CopyReadOnly(prev *T)
}

type defaulter interface {
	SetDefaults()
}

// Check is an extra validation run before a write. prev is nil on create.
type Check[T any] func(ctx context.Context, v, prev *T) error

// Resource implements the CRUD use cases shared by every model: defaults,
// read-only fields, ownership and validation.
type Resource[T any, PT Model[T]] struct {
	repo    store.Repository[T]
	checks  []Check[T]
	updated []func(ctx context.Context, v, prev *T)
	logger  *slog.Logger
}

// NewResource creates a Resource over repo.
func NewResource[T any, PT Model[T]](repo store.Repository[T], log *slog.Logger, checks ...Check[T]) *Resource[T, PT] {
	if log == nil {
		log = slog.Default()
	}
	return &Resource[T, PT]{
		repo:   repo,
		checks: checks,
		logger: log.With("component", strings.ToLower(reflect.TypeFor[T]().Name())+"_service"),
	}
}

// OnUpdate registers fn to run after a successful update.
func (s *Resource[T, PT]) OnUpdate(fn func(ctx context.Context, v, prev *T)) {
	s.updated = append(s.updated, fn)
}

// New returns a fresh value with its defaults applied.
func (s *Resource[T, PT]) New() *T {
	v := new(T)
	if d, ok := any(v).(defaulter); ok {
		d.SetDefaults()
	}
	return v
}

// List implements the list use case.
func (s *Resource[T, PT]) List(ctx context.Context, q listing.Query) ([]T, int, error) {
	return s.repo.List(ctx, q)
}

// Get implements the retrieve use case.
func (s *Resource[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	return s.repo.Get(ctx, id)
}

// Create validates v and stores it. Owned models are assigned to actor.
func (s *Resource[T, PT]) Create(ctx context.Context, actor Actor, v *T) error {
	if o, ok := any(v).(domain.Owned); ok {
		o.AssignOwner(actor.UserID)
	}
	if err := s.validate(ctx, v, nil); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("created",
		"id", PT(v).GetID(),
		"user_id", actor.UserID)
	return nil
}

// Update replaces the entity id with the result of decode. With partial set
// decode starts from the stored entity (PATCH), otherwise from defaults
// (PUT). Read-only fields always keep their stored values.
func (s *Resource[T, PT]) Update(ctx context.Context, actor Actor, id int64, partial bool, decode func(dst *T) error) (*T, error) {
	prev, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(actor, prev); err != nil {
		return nil, err
	}

	var v *T
	if partial {
		cp := *prev
		v = &cp
	} else {
		v = s.New()
	}
	if err := decode(v); err != nil {
		return nil, err
	}
	PT(v).SetID(id)
	PT(v).CopyReadOnly(prev)

	if err := s.validate(ctx, v, prev); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	for _, fn := range s.updated {
		fn(ctx, v, prev)
	}
	return v, nil
}

// Delete removes (or soft-deletes) the entity id.
func (s *Resource[T, PT]) Delete(ctx context.Context, actor Actor, id int64) error {
	prev, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := checkOwner(actor, prev); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("deleted",
		"id", id,
		"user_id", actor.UserID)
	return nil
}

func (s *Resource[T, PT]) validate(ctx context.Context, v, prev *T) error {
	fe := domain.FieldErrors{}
	if err := PT(v).Validate(); err != nil {
		if !merge(fe, err) {
			return err
		}
	}
	for _, check := range s.checks {
		if err := check(ctx, v, prev); err != nil {
			if !merge(fe, err) {
				return err
			}
		}
	}
	return fe.Err()
}

// merge adds the field messages of a validation error to fe. It reports
// false for any other error.
func merge(fe domain.FieldErrors, err error) bool {
	got, ok := domain.AsFieldErrors(err)
	if !ok {
		return false
	}
	for field, msgs := range got {
		for _, m := range msgs {
			fe.Add(field, m)
		}
	}
	return true
}

// checkOwner allows writes on owned entities only to the owner or a superuser.
func checkOwner(actor Actor, v any) error {
	o, ok := v.(domain.Owned)
	if !ok || actor.Superuser || o.Owner() == actor.UserID {
		return nil
	}
	return ErrNotOwned
}

// UniqueName rejects names already used by another row, ignoring case.
func UniqueName[T any, PT Model[T]](names store.NameChecker, name func(*T) string, message string) Check[T] {
	return func(ctx context.Context, v, prev *T) error {
		n := strings.TrimSpace(name(v))
		if n == "" {
			return nil
		}
		taken, err := names.NameTaken(ctx, n, PT(v).GetID())
		if err != nil {
			return fmt.Errorf("failed to check name: %w", err)
		}
		if taken {
			return domain.NewValidationError("name", message, nil)
		}
		return nil
	}
}
