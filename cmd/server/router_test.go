package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/authz"
	"github.com/phrazzld/taskhub/internal/config"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/platform/media"
	"github.com/phrazzld/taskhub/internal/platform/metrics"
	"github.com/phrazzld/taskhub/internal/platform/postgres"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/service/auth"
)

// newTestApplication wires the application over sqlmock without starting
// the background workers.
func newTestApplication(t *testing.T) *application {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:                   strings.Repeat("k", 32),
			BCryptCost:                  4,
			TokenLifetimeMinutes:        60,
			RefreshTokenLifetimeMinutes: 1440,
		},
		Pagination: config.PaginationConfig{PageSize: 10},
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
		media:   media.New(t.TempDir()),
	}
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	require.NoError(t, err)

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
	require.NoError(t, err)
	app.emitter = events.NewInMemoryEmitter(logger)

	app.userService = service.NewUserService(app.users, app.tokens, db, logger)
	app.taskService = service.NewTaskService(app.tasks, app.subtasks, app.emitter, logger)
	app.subtaskService = service.NewSubTaskService(app.subtasks, logger)
	app.adminService = service.NewAdminService(postgres.NewPostgresBulkStore(db), app.projects, logger)
	return app
}

func routeSet(t *testing.T, routes chi.Routes) map[string]bool {
	t.Helper()
	out := map[string]bool{}
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out[method+" "+strings.ReplaceAll(route, "/*/", "/")] = true
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestSetupRouter(t *testing.T) {
	app := newTestApplication(t)
	handler, err := app.setupRouter()
	require.NoError(t, err)

	t.Run("registers routes", func(t *testing.T) {
		routes := routeSet(t, handler.(chi.Routes))
		for _, want := range []string{
			"POST /api-token-auth",
			"POST /api/auth/register",
			"POST /api/auth/token",
			"POST /api/auth/token/refresh",
			"GET /api/protected",
			"GET /api/subtasks/statuses",
			"GET /api/subtasks/day/{day}",
			"GET /api/tasks/stats",
			"GET /api/categories/count-tasks",
			"GET /api/genres/statistic",
			"PATCH /api/books/{id}",
			"POST /api/project-files/",
			"DELETE /api/event-participants/{id}",
			"GET /admin/api/",
			"GET /health",
			"GET /swagger.json",
		} {
			assert.True(t, routes[want], "route %q registered", want)
		}
	})

	t.Run("admin models", func(t *testing.T) {
		plurals := map[string]bool{}
		for _, m := range app.adminModels {
			plurals[m.Info.Plural] = true
		}
		for _, want := range []string{"tasks", "subtasks", "projects", "books", "tags", "event-participants"} {
			assert.True(t, plurals[want], "admin model %q", want)
		}
		assert.False(t, plurals["users"])
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("statuses are public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/subtasks/statuses", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			AvailableStatuses []string `json:"available_statuses"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.NotEmpty(t, body.AvailableStatuses)
	})

	t.Run("model endpoints require authentication", func(t *testing.T) {
		for _, path := range []string{"/api/tasks/", "/api/books/", "/admin/api/"} {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		}
	})

	t.Run("api document", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger.json", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var doc struct {
			Paths map[string]map[string]json.RawMessage `json:"paths"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
		assert.Contains(t, doc.Paths, "/api/tasks")
		assert.Contains(t, doc.Paths, "/api/tasks/{id}")
		assert.NotContains(t, doc.Paths, "/metrics")
	})
}
