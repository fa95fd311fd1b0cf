package authz

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

//go:embed model.conf
var modelConf string

// Subject is the user an authorization decision is made for.
type Subject struct {
	UserID    int64
	Superuser bool
}

// Authorizer checks model permissions.
type Authorizer interface {
	Allowed(ctx context.Context, sub Subject, object, action string) (bool, error)
}

// Enforcer is the casbin-backed Authorizer.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	groups   store.GroupStore
	logger   *slog.Logger
}

// NewEnforcer creates an Enforcer with no policies. Call Load to read the
// stored groups.
func NewEnforcer(groups store.GroupStore, log *slog.Logger) (*Enforcer, error) {
	if log == nil {
		log = slog.Default()
	}
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authz model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	return &Enforcer{
		enforcer: e,
		groups:   groups,
		logger:   log.With("component", "authz"),
	}, nil
}

// Load replaces the enforcer policies with the stored group permissions.
func (e *Enforcer) Load(ctx context.Context) error {
	groups, err := e.groups.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	e.enforcer.ClearPolicy()
	if err := e.addGroups(groups); err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, e.logger).Info("authz policies loaded", "groups", len(groups))
	return nil
}

func (e *Enforcer) addGroups(groups []domain.Group) error {
	var rules [][]string
	for _, g := range groups {
		for _, p := range g.Permissions {
			rules = append(rules, []string{groupSubject(g.Name), p.Object, p.Action})
		}
	}
	if len(rules) == 0 {
		return nil
	}
	if _, err := e.enforcer.AddPolicies(rules); err != nil {
		return fmt.Errorf("failed to add policies: %w", err)
	}
	return nil
}

// Allowed reports whether sub may perform action on object. Group
// memberships are read on every call so changes apply immediately.
func (e *Enforcer) Allowed(ctx context.Context, sub Subject, object, action string) (bool, error) {
	if sub.Superuser {
		return true, nil
	}
	names, err := e.groups.UserGroups(ctx, sub.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to read user groups: %w", err)
	}

	for _, name := range names {
		ok, err := e.enforcer.Enforce(groupSubject(name), object, action)
		if err != nil {
			return false, fmt.Errorf("failed to enforce: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	logger.FromContextOrDefault(ctx, e.logger).Debug("permission denied",
		"user_id", sub.UserID,
		"object", object,
		"action", action)
	return false, nil
}

// SeedRoles stores the built-in groups, replacing their permissions.
func SeedRoles(ctx context.Context, groups store.GroupStore) ([]domain.Group, error) {
	roles, err := DefaultRoles()
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if err := groups.Save(ctx, &roles[i]); err != nil {
			return nil, fmt.Errorf("failed to save group %s: %w", roles[i].Name, err)
		}
	}
	return roles, nil
}

func groupSubject(name string) string { return "group:" + name }
