// Package main implements the entry point of the TaskHub API server. Besides
// serving HTTP it runs database migrations, seeds the permission groups and
// prints the model registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/taskhub/internal/config"
	"github.com/phrazzld/taskhub/internal/platform/logger"
)

// options are the command line flags.
type options struct {
	migrate     string
	name        string
	createRoles bool
	showModels  bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&o.migrate, "migrate", "", "run a migration command: up, down, status, create or version")
	fs.StringVar(&o.name, "name", "", "migration name for -migrate create")
	fs.BoolVar(&o.createRoles, "create-roles", false, "create the built-in permission groups")
	fs.BoolVar(&o.showModels, "show-models", false, "print the registered models and their relations")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.migrate == "create" && o.name == "" {
		return o, fmt.Errorf("-migrate create requires -name")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// show-models needs neither configuration nor a database.
	if opts.showModels {
		return showModels(os.Stdout)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	if opts.migrate != "" {
		return runMigrations(cfg, opts.migrate, opts.name)
	}

	db, err := setupAppDatabase(cfg, log)
	if err != nil {
		return err
	}

	if opts.createRoles {
		defer db.Close()
		return createRoles(ctx, db, log)
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
