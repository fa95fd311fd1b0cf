package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/taskhub/internal/authz"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/postgres"
	"github.com/phrazzld/taskhub/internal/store"
)

// createRoles stores the built-in permission groups in one transaction.
// Running it again replaces the permissions of those groups.
func createRoles(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	groups := postgres.NewPostgresGroupStore(db)
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		seeded, err := authz.SeedRoles(ctx, groups.WithTx(tx))
		if err != nil {
			return err
		}
		for _, g := range seeded {
			log.Info("group created", "group", g.Name, "permissions", len(g.Permissions))
		}
		return nil
	})
}

type modelListing struct {
	Name      string            `yaml:"name"`
	Plural    string            `yaml:"plural"`
	Table     string            `yaml:"table"`
	Fields    []string          `yaml:"fields"`
	Relations []relationListing `yaml:"relations,omitempty"`
}

type relationListing struct {
	Field    string `yaml:"field"`
	Model    string `yaml:"model"`
	Kind     string `yaml:"kind"`
	OnDelete string `yaml:"on_delete,omitempty"`
}

// showModels writes the model registry as YAML.
func showModels(w io.Writer) error {
	models := domain.Models()
	out := make([]modelListing, 0, len(models))
	for _, m := range models {
		l := modelListing{Name: m.Name, Plural: m.Plural, Table: m.Table}
		for _, f := range m.Fields() {
			l.Fields = append(l.Fields, f.Name)
		}
		for _, r := range m.Relations {
			l.Relations = append(l.Relations, relationListing{
				Field:    r.Field,
				Model:    r.Model,
				Kind:     string(r.Kind),
				OnDelete: r.OnDelete,
			})
		}
		out = append(out, l)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write models: %w", err)
	}
	return enc.Close()
}
