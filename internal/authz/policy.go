package authz

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/taskhub/internal/domain"
)

//go:embed roles.yaml
var rolesYAML []byte

// actionCRUD expands to every model action.
const actionCRUD = "crud"

// objectAll expands to every registered model.
const objectAll = "*"

type policyFile struct {
	Groups []struct {
		Name        string `yaml:"name"`
		Permissions []struct {
			Object  string   `yaml:"object"`
			Actions []string `yaml:"actions"`
		} `yaml:"permissions"`
	} `yaml:"groups"`
}

// DefaultRoles returns the built-in groups with their permissions expanded.
func DefaultRoles() ([]domain.Group, error) {
	return ParseRoles(rolesYAML)
}

// ParseRoles decodes a role policy document.
func ParseRoles(data []byte) ([]domain.Group, error) {
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse role policy: %w", err)
	}

	groups := make([]domain.Group, 0, len(pf.Groups))
	for _, g := range pf.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("role policy: group without a name")
		}
		group := domain.Group{Name: g.Name}
		for _, p := range g.Permissions {
			objects := []string{p.Object}
			if p.Object == objectAll {
				objects = objects[:0]
				for _, m := range domain.Models() {
					objects = append(objects, m.Name)
				}
			} else if _, ok := domain.LookupModel(p.Object); !ok {
				return nil, fmt.Errorf("role policy: group %s: unknown model %q", g.Name, p.Object)
			}

			actions, err := expandActions(p.Actions)
			if err != nil {
				return nil, fmt.Errorf("role policy: group %s: %w", g.Name, err)
			}
			for _, obj := range objects {
				for _, act := range actions {
					perm := domain.Permission{Object: obj, Action: act}
					if !slices.Contains(group.Permissions, perm) {
						group.Permissions = append(group.Permissions, perm)
					}
				}
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func expandActions(in []string) ([]string, error) {
	var out []string
	for _, a := range in {
		switch {
		case a == actionCRUD:
			out = append(out, domain.AllActions...)
		case slices.Contains(domain.AllActions, a):
			out = append(out, a)
		default:
			return nil, fmt.Errorf("unknown action %q", a)
		}
	}
	return out, nil
}
