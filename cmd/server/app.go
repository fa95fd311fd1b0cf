package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskhub/internal/api"
	"github.com/phrazzld/taskhub/internal/authz"
	"github.com/phrazzld/taskhub/internal/config"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/job"
	"github.com/phrazzld/taskhub/internal/notify"
	"github.com/phrazzld/taskhub/internal/platform/mail"
	"github.com/phrazzld/taskhub/internal/platform/media"
	"github.com/phrazzld/taskhub/internal/platform/metrics"
	"github.com/phrazzld/taskhub/internal/platform/postgres"
	"github.com/phrazzld/taskhub/internal/platform/ratelimit"
	"github.com/phrazzld/taskhub/internal/platform/tracing"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/service/auth"
)

// limiterIdleTTL is how long an idle client keeps its rate limit bucket.
const limiterIdleTTL = 10 * time.Minute

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
	media   *media.Store

	users  *postgres.PostgresUserStore
	tokens *postgres.PostgresTokenStore
	groups *postgres.PostgresGroupStore

	tasks      *postgres.PostgresTaskStore
	subtasks   *postgres.PostgresSubTaskStore
	categories *postgres.PostgresCategoryStore
	genres     *postgres.PostgresGenreStore
	books      *postgres.PostgresBookStore
	projects   *postgres.Table[domain.Project, *domain.Project]

	jwtService    auth.JWTService
	authenticator *auth.Authenticator
	enforcer      *authz.Enforcer

	userService    *service.UserService
	taskService    *service.TaskService
	subtaskService *service.SubTaskService
	adminService   *service.AdminService

	emitter *events.InMemoryEmitter
	runner  *job.Runner

	// adminModels is filled while the API routes are registered.
	adminModels []api.AdminModel

	stopTracing func(context.Context) error
}

// newApplication creates the stores, services and background workers.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
		media:   media.New(cfg.Media.Root),
	}
	if cfg.RateLimit.Enabled {
		app.limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, limiterIdleTTL)
	}

	var err error
	app.stopTracing, err = tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.users = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	app.tokens = postgres.NewPostgresTokenStore(db)
	app.groups = postgres.NewPostgresGroupStore(db)
	app.tasks = postgres.NewPostgresTaskStore(db, logger)
	app.subtasks = postgres.NewPostgresSubTaskStore(db, logger)
	app.categories = postgres.NewPostgresCategoryStore(db, logger)
	app.genres = postgres.NewPostgresGenreStore(db, logger)
	app.books = postgres.NewPostgresBookStore(db, logger)
	app.projects = postgres.NewTable[domain.Project](db, postgres.ProjectTable(), logger)

	app.authenticator = auth.NewAuthenticator(app.users, auth.NewBcryptVerifier())

	app.enforcer, err = authz.NewEnforcer(app.groups, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer: %w", err)
	}
	if err := app.enforcer.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	app.emitter = events.NewInMemoryEmitter(logger)
	app.runner = job.NewRunner(postgres.NewPostgresJobStore(db, logger), job.ConfigFrom(cfg.Jobs), app.metrics, logger)

	sender, err := mail.New(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up mail: %w", err)
	}
	notify.New(app.users, app.runner, sender, logger).Register(app.emitter, app.runner)

	if err := app.runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start job runner: %w", err)
	}

	app.userService = service.NewUserService(app.users, app.tokens, db, logger)
	app.taskService = service.NewTaskService(app.tasks, app.subtasks, app.emitter, logger)
	app.subtaskService = service.NewSubTaskService(app.subtasks, logger)
	app.adminService = service.NewAdminService(postgres.NewPostgresBulkStore(db), app.projects, logger)

	logger.Info("application initialized")
	return app, nil
}

// Run serves HTTP until shutdown.
func (app *application) Run(ctx context.Context) error {
	router, err := app.setupRouter()
	if err != nil {
		app.cleanup(ctx)
		return err
	}
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the background workers and closes the database.
func (app *application) cleanup(ctx context.Context) {
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.stopTracing != nil {
		if err := app.stopTracing(ctx); err != nil {
			app.logger.Error("failed to flush traces", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
