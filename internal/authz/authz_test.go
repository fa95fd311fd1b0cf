package authz

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

type memoryGroups struct {
	groups  map[string]domain.Group
	members map[int64][]string
	err     error
}

func newMemoryGroups() *memoryGroups {
	return &memoryGroups{groups: map[string]domain.Group{}, members: map[int64][]string{}}
}

func (m *memoryGroups) Save(_ context.Context, g *domain.Group) error {
	m.groups[g.Name] = *g
	return nil
}

func (m *memoryGroups) List(context.Context) ([]domain.Group, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	return out, nil
}

func (m *memoryGroups) AddUser(_ context.Context, userID int64, group string) error {
	if _, ok := m.groups[group]; !ok {
		return store.ErrGroupNotFound
	}
	m.members[userID] = append(m.members[userID], group)
	return nil
}

func (m *memoryGroups) UserGroups(_ context.Context, userID int64) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.members[userID], nil
}

func (m *memoryGroups) WithTx(*sql.Tx) store.GroupStore { return m }

func seeded(t *testing.T) (*Enforcer, *memoryGroups) {
	t.Helper()
	ctx := context.Background()
	groups := newMemoryGroups()
	_, err := SeedRoles(ctx, groups)
	require.NoError(t, err)

	e, err := NewEnforcer(groups, nil)
	require.NoError(t, err)
	require.NoError(t, e.Load(ctx))
	return e, groups
}

func TestEnforcer_Allowed(t *testing.T) {
	ctx := context.Background()
	e, groups := seeded(t)
	require.NoError(t, groups.AddUser(ctx, 1, "Manager"))
	require.NoError(t, groups.AddUser(ctx, 2, "Client"))
	require.NoError(t, groups.AddUser(ctx, 3, "Developer"))
	require.NoError(t, groups.AddUser(ctx, 4, "Manager"))
	require.NoError(t, groups.AddUser(ctx, 4, "Client"))

	tests := []struct {
		name   string
		sub    Subject
		object string
		action string
		want   bool
	}{
		{"manager changes task", Subject{UserID: 1}, "task", "change", true},
		{"manager cannot delete task", Subject{UserID: 1}, "task", "delete", false},
		{"manager deletes project", Subject{UserID: 1}, "project", "delete", true},
		{"manager cannot view books", Subject{UserID: 1}, "book", "view", false},
		{"client deletes task", Subject{UserID: 2}, "task", "delete", true},
		{"client cannot delete project file", Subject{UserID: 2}, "projectfile", "delete", false},
		{"developer deletes book", Subject{UserID: 3}, "book", "delete", true},
		{"developer changes user", Subject{UserID: 3}, "user", "change", true},
		{"union of groups", Subject{UserID: 4}, "task", "delete", true},
		{"no groups", Subject{UserID: 9}, "task", "view", false},
		{"superuser", Subject{UserID: 9, Superuser: true}, "book", "delete", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Allowed(ctx, tt.sub, tt.object, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnforcer_Errors(t *testing.T) {
	ctx := context.Background()
	e, groups := seeded(t)
	groups.err = errors.New("connection refused")

	_, err := e.Allowed(ctx, Subject{UserID: 1}, "task", "view")
	assert.Error(t, err)
	assert.Error(t, e.Load(ctx))

	ok, err := e.Allowed(ctx, Subject{Superuser: true}, "task", "view")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnforcer_LoadReplacesPolicies(t *testing.T) {
	ctx := context.Background()
	e, groups := seeded(t)
	require.NoError(t, groups.AddUser(ctx, 1, "Manager"))

	groups.groups["Manager"] = domain.Group{Name: "Manager"}
	require.NoError(t, e.Load(ctx))

	ok, err := e.Allowed(ctx, Subject{UserID: 1}, "task", "view")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultRoles(t *testing.T) {
	roles, err := DefaultRoles()
	require.NoError(t, err)
	require.Len(t, roles, 3)

	byName := map[string]domain.Group{}
	for _, r := range roles {
		byName[r.Name] = r
	}
	assert.Contains(t, byName["Manager"].Permissions, domain.Permission{Object: "permission", Action: "add"})
	assert.NotContains(t, byName["Manager"].Permissions, domain.Permission{Object: "task", Action: "delete"})
	assert.Len(t, byName["Developer"].Permissions, 4*len(domain.Models()))
}

func TestParseRoles_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "groups: ["},
		{"unknown model", "groups:\n  - name: X\n    permissions:\n      - {object: spaceship, actions: [view]}\n"},
		{"unknown action", "groups:\n  - name: X\n    permissions:\n      - {object: task, actions: [launch]}\n"},
		{"missing name", "groups:\n  - permissions: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoles([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
