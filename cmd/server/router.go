package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskhub/internal/api"
	"github.com/phrazzld/taskhub/internal/api/apidocs"
	apiMiddleware "github.com/phrazzld/taskhub/internal/api/middleware"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/platform/postgres"
	"github.com/phrazzld/taskhub/internal/service"
)

// publicRoutes are documented without a security requirement.
var publicRoutes = map[string]bool{
	"/health":                 true,
	"/api-token-auth":         true,
	"/api/auth/register":      true,
	"/api/auth/token":         true,
	"/api/auth/token/refresh": true,
	"/api/subtasks/statuses":  true,
}

// setupRouter registers every route and middleware.
func (app *application) setupRouter() (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Tracing)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Metrics(app.metrics))

	ps := app.config.Pagination.PageSize
	authHandler := api.NewAuthHandler(app.userService, app.authenticator, app.jwtService, app.logger)
	authn := apiMiddleware.NewAuthMiddleware(app.jwtService, app.users, app.tokens, app.authenticator)
	limit := apiMiddleware.RateLimit(app.limiter, app.metrics)
	subtasks := api.NewSubTaskHandler(app.subtaskService, app.subtasks.Schema(), ps, app.logger)

	r.With(limit).Post("/api-token-auth", authHandler.APITokenAuth)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/token", authHandler.Token)
			r.Post("/auth/token/refresh", authHandler.Refresh)
		})
		r.Get("/subtasks/statuses", subtasks.Statuses)

		r.Group(func(r chi.Router) {
			r.Use(authn.Authenticate)
			r.Get("/protected", authHandler.Protected)
			r.Route("/subtasks", subtasks.Routes)
			app.registerAdmin("subtasks", app.subtasks.Schema(), api.AdminLister[domain.SubTask](app.subtasks),
				"id", "title", "status", "task", "deadline")
			app.mountAPI(r)
		})
	})

	admin := api.NewAdminHandler(app.adminService, app.enforcer, ps, app.logger, app.adminModels...)
	r.With(authn.Authenticate, apiMiddleware.RequireStaff).Route("/admin/api", admin.Routes)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})
	r.Handle("/metrics", app.metrics.Handler())

	doc, err := apidocs.Build(r, apidocs.Options{
		Info: apidocs.Info{
			Title:       "TaskHub API",
			Version:     "v1",
			Description: "Task tracking and library catalogue API.",
		},
		Public: publicRoutes,
		Skip:   []string{"/metrics"},
	})
	if err != nil {
		return nil, err
	}
	docs, err := apidocs.NewHandler(doc)
	if err != nil {
		return nil, err
	}
	docs.Routes(r)

	return r, nil
}

// mountAPI registers the authenticated model endpoints below /api.
func (app *application) mountAPI(r chi.Router) {
	ps, log := app.config.Pagination.PageSize, app.logger

	tasks := api.NewTaskHandler(app.taskService, app.tasks.Schema(), ps, log)
	r.Route("/tasks", tasks.Routes)
	app.registerAdmin("tasks", app.tasks.Schema(), api.AdminLister[domain.Task](app.tasks),
		"id", "title", "status", "priority", "project", "assignee", "due_date")

	projects := service.NewResource[domain.Project](app.projects, log)
	r.Route("/projects", api.NewResourceHandler[domain.Project](projects, app.projects.Schema(), ps, log).Routes)
	app.registerAdmin("projects", app.projects.Schema(), api.AdminLister[domain.Project](app.projects),
		"id", "name", "created_at", "files_count")

	fileTable := postgres.NewTable[domain.ProjectFile](app.db, postgres.ProjectFileTable(), log)
	files := api.NewFileHandler(service.NewResource[domain.ProjectFile](fileTable, log), app.media, fileTable.Schema(), ps, log)
	r.Route("/project-files", files.Routes)
	app.registerAdmin("project-files", fileTable.Schema(), api.AdminLister[domain.ProjectFile](fileTable),
		"id", "name", "file", "size", "created_at")

	categories := api.NewCategoryHandler(service.NewCategoryService(app.categories, log), app.categories.Schema(), ps, log)
	r.Route("/categories", categories.Routes)
	app.registerAdmin("categories", app.categories.Schema(), api.AdminLister[domain.Category](app.categories),
		"id", "name", "is_deleted")

	genres := api.NewGenreHandler(service.NewGenreService(app.genres, log), app.genres.Schema(), ps, log)
	r.Route("/genres", genres.Routes)
	app.registerAdmin("genres", app.genres.Schema(), api.AdminLister[domain.Genre](app.genres), "id", "name")

	books := api.NewBookHandler(service.NewBookService(app.books, log), app.books.Schema(), ps, log)
	r.Route("/books", books.Routes)
	app.registerAdmin("books", app.books.Schema(), api.AdminLister[domain.Book](app.books),
		"id", "name", "price", "discounted_price", "is_bestseller", "rating")

	mountCRUD[domain.Tag](app, r, "tags", postgres.TagTable(), "id", "name")
	mountCRUD[domain.Author](app, r, "authors", postgres.AuthorTable(), "id", "first_name", "last_name", "rating", "is_deleted")
	mountCRUD[domain.AuthorDetail](app, r, "author-details", postgres.AuthorDetailTable())
	mountCRUD[domain.Publisher](app, r, "publishers", postgres.PublisherTable(), "id", "name", "established_date")
	mountCRUD[domain.Library](app, r, "libraries", postgres.LibraryTable(), "id", "name", "location")
	mountCRUD[domain.Member](app, r, "members", postgres.MemberTable(), "id", "first_name", "last_name", "email", "role", "active")
	mountCRUD[domain.Post](app, r, "posts", postgres.PostTable(), "id", "title", "author", "is_moderated", "created_at")
	mountCRUD[domain.Borrow](app, r, "borrows", postgres.BorrowTable(), "id", "member", "book", "return_date", "is_returned", "is_overdue")
	mountCRUD[domain.Review](app, r, "reviews", postgres.ReviewTable(), "id", "book", "reviewer", "rating", "created_at")
	mountCRUD[domain.Event](app, r, "events", postgres.EventTable(), "id", "title", "event_date", "library")
	mountCRUD[domain.EventParticipant](app, r, "event-participants", postgres.EventParticipantTable())
}

// mountCRUD serves a table-backed model with the generic endpoints and
// registers it on the admin API.
func mountCRUD[T any, PT service.Model[T]](app *application, r chi.Router, plural string, def postgres.TableDef[T], display ...string) {
	table := postgres.NewTable[T, PT](app.db, def, app.logger)
	svc := service.NewResource[T, PT](table, app.logger)
	r.Route("/"+plural, api.NewResourceHandler[T](svc, table.Schema(), app.config.Pagination.PageSize, app.logger).Routes)
	app.registerAdmin(plural, table.Schema(), api.AdminLister[T](table), display...)
}

// registerAdmin adds the model with the given plural to the admin API.
func (app *application) registerAdmin(
	plural string,
	schema listing.Schema,
	list func(ctx context.Context, q listing.Query) ([]any, int, error),
	display ...string,
) {
	info, ok := domain.LookupModel(plural)
	if !ok {
		app.logger.Error("admin model is not registered", "model", plural)
		return
	}
	app.adminModels = append(app.adminModels, api.AdminModel{
		Info:    info,
		Display: display,
		Schema:  schema,
		List:    list,
	})
}
