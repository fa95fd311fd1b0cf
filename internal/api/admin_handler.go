package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskhub/internal/api/middleware"
	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/authz"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/store"
)

// AdminModel registers a model on the admin API.
type AdminModel struct {
	Info    domain.ModelInfo
	Display []string
	Schema  listing.Schema
	List    func(ctx context.Context, q listing.Query) ([]any, int, error)
}

// AdminLister adapts a typed List method to AdminModel.List.
func AdminLister[T any](repo interface {
	List(ctx context.Context, q listing.Query) ([]T, int, error)
}) func(ctx context.Context, q listing.Query) ([]any, int, error) {
	return func(ctx context.Context, q listing.Query) ([]any, int, error) {
		rows, total, err := repo.List(ctx, q)
		if err != nil {
			return nil, 0, err
		}
		out := make([]any, len(rows))
		for i := range rows {
			out[i] = rows[i]
		}
		return out, total, nil
	}
}

// AdminActions runs admin bulk actions.
type AdminActions interface {
	Actions(model domain.ModelInfo) []service.Action
	Run(ctx context.Context, model domain.ModelInfo, name string, req service.ActionRequest) (service.ActionResult, error)
}

// AdminModelSummary is one entry of the admin index.
type AdminModelSummary struct {
	Name        string           `json:"name"`
	Plural      string           `json:"plural"`
	Verbose     string           `json:"verbose_name"`
	ListDisplay []string         `json:"list_display"`
	Actions     []service.Action `json:"actions"`
}

// AdminHandler serves /admin/api. Routes must be mounted behind
// authentication and middleware.RequireStaff.
type AdminHandler struct {
	models   []AdminModel
	byName   map[string]int
	actions  AdminActions
	authz    authz.Authorizer
	pageSize int
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler for models.
func NewAdminHandler(actions AdminActions, az authz.Authorizer, pageSize int, log *slog.Logger, models ...AdminModel) *AdminHandler {
	if log == nil {
		log = slog.Default()
	}
	h := &AdminHandler{
		models:   models,
		byName:   make(map[string]int, 2*len(models)),
		actions:  actions,
		authz:    az,
		pageSize: pageSize,
		logger:   log.With("component", "admin_handler"),
	}
	for i, m := range models {
		h.byName[m.Info.Name] = i
		h.byName[m.Info.Plural] = i
	}
	return h
}

// Routes registers the admin routes on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/{model}", h.List)
	r.Post("/{model}/actions/{action}", h.RunAction)
}

func (h *AdminHandler) model(r *http.Request) (AdminModel, error) {
	name := chi.URLParam(r, "model")
	i, ok := h.byName[name]
	if !ok {
		return AdminModel{}, fmt.Errorf("%w: admin model %q", store.ErrNotFound, name)
	}
	return h.models[i], nil
}

// Index handles GET /admin/api/ and lists the models the user may view.
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.GetPrincipal(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}
	sub := authz.Subject{UserID: p.UserID, Superuser: p.Superuser}

	out := make([]AdminModelSummary, 0, len(h.models))
	for _, m := range h.models {
		allowed, err := h.authz.Allowed(r.Context(), sub, m.Info.Name, domain.ActionView)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		if !allowed {
			continue
		}
		actions := h.actions.Actions(m.Info)
		if actions == nil {
			actions = []service.Action{}
		}
		out = append(out, AdminModelSummary{
			Name:        m.Info.Name,
			Plural:      m.Info.Plural,
			Verbose:     m.Info.Verbose,
			ListDisplay: m.Display,
			Actions:     actions,
		})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// List handles GET /admin/api/{model}.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	m, err := h.model(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if !middleware.Allowed(w, r, h.authz, m.Info.Name, domain.ActionView) {
		return
	}

	q, err := listing.Parse(r.URL.Query(), m.Schema, listing.PageMode, h.pageSize)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	rows, total, err := m.List(r.Context(), q)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	projected := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		pr, err := project(row, m.Display)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		projected = append(projected, pr)
	}
	respondPage(w, r, q, projected, total)
}

// project keeps the display fields of row's JSON form.
func project(row any, fields []string) (map[string]any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to encode admin row: %w", err)
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("failed to decode admin row: %w", err)
	}
	if len(fields) == 0 {
		return all, nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = all[f]
	}
	return out, nil
}

// RunAction handles POST /admin/api/{model}/actions/{action}.
func (h *AdminHandler) RunAction(w http.ResponseWriter, r *http.Request) {
	m, err := h.model(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if !middleware.Allowed(w, r, h.authz, m.Info.Name, domain.ActionChange) {
		return
	}

	var req service.ActionRequest
	if err := decodeBody(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	res, err := h.actions.Run(r.Context(), m.Info, chi.URLParam(r, "action"), req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, res)
}
