package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// ActionRequest selects the rows an admin action applies to. Old and New
// are only used by replace_characters.
type ActionRequest struct {
	IDs []int64 `json:"ids"`
	Old string  `json:"old"`
	New string  `json:"new"`
}

// ActionResult reports what an admin action changed.
type ActionResult struct {
	Updated int64  `json:"updated"`
	Message string `json:"message"`
}

// Action is a bulk operation offered on a model's admin list.
type Action struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	run func(ctx context.Context, s *AdminService, model domain.ModelInfo, req ActionRequest) (ActionResult, error)
}

// setColumn builds an action that sets one column on the selected rows.
func setColumn(name, description, column string, value any, noun string) Action {
	return Action{
		Name:        name,
		Description: description,
		run: func(ctx context.Context, s *AdminService, model domain.ModelInfo, req ActionRequest) (ActionResult, error) {
			n, err := s.bulk.SetColumn(ctx, model, column, value, req.IDs)
			if err != nil {
				return ActionResult{}, err
			}
			return ActionResult{Updated: n, Message: fmt.Sprintf("%s set on %d %s.", noun, n, model.Plural)}, nil
		},
	}
}

var adminActions = map[string][]Action{
	"tasks": {
		setColumn("set_status_closed", "Status: Closed", "status", string(domain.StatusClosed), "Status 'Closed'"),
		setColumn("set_status_new", "Status: New", "status", string(domain.StatusNew), "Status 'New'"),
		setColumn("set_priority_low", "Priority: Low", "priority", string(domain.PriorityLow), "Priority 'Low'"),
		setColumn("set_priority_medium", "Priority: Medium", "priority", string(domain.PriorityMedium), "Priority 'Medium'"),
		setColumn("set_priority_high", "Priority: High", "priority", string(domain.PriorityHigh), "Priority 'High'"),
		setColumn("set_priority_very_high", "Priority: Very High", "priority", string(domain.PriorityVeryHigh), "Priority 'Very High'"),
	},
	"subtasks": {
		setColumn("set_status_new", "Status: New", "status", string(domain.StatusNew), "Status 'New'"),
		setColumn("set_status_pending", "Status: Pending", "status", string(domain.StatusPending), "Status 'Pending'"),
		setColumn("set_status_in_progress", "Status: In progress", "status", string(domain.StatusInProgress), "Status 'In_progress'"),
		setColumn("set_status_closed", "Status: Closed", "status", string(domain.StatusClosed), "Status 'Closed'"),
	},
	"authors": {
		setColumn("soft_delete", "Mark as deleted", "is_deleted", true, "Deleted flag"),
		setColumn("restore", "Restore", "is_deleted", false, "Restored flag"),
	},
	"projects": {
		{
			Name:        "replace_characters",
			Description: "Replace characters in the name",
			run: func(ctx context.Context, s *AdminService, _ domain.ModelInfo, req ActionRequest) (ActionResult, error) {
				return s.replaceCharacters(ctx, req)
			},
		},
	},
}

// AdminService runs admin bulk actions.
type AdminService struct {
	bulk     store.BulkStore
	projects store.Repository[domain.Project]
	logger   *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(bulk store.BulkStore, projects store.Repository[domain.Project], log *slog.Logger) *AdminService {
	if log == nil {
		log = slog.Default()
	}
	return &AdminService{
		bulk:     bulk,
		projects: projects,
		logger:   log.With("component", "admin_service"),
	}
}

// Actions lists the actions offered on model.
func (s *AdminService) Actions(model domain.ModelInfo) []Action {
	return adminActions[model.Plural]
}

// Run applies the named action to the rows selected by req.
func (s *AdminService) Run(ctx context.Context, model domain.ModelInfo, name string, req ActionRequest) (ActionResult, error) {
	for _, a := range adminActions[model.Plural] {
		if a.Name != name {
			continue
		}
		if len(req.IDs) == 0 {
			return ActionResult{}, domain.NewValidationError("ids", "Select at least one item.", nil)
		}
		res, err := a.run(ctx, s, model, req)
		if err != nil {
			return ActionResult{}, err
		}
		logger.FromContextOrDefault(ctx, s.logger).Info("admin action applied",
			"model", model.Name,
			"action", name,
			"updated", res.Updated)
		return res, nil
	}
	return ActionResult{}, fmt.Errorf("%w: %s on %s", ErrUnknownAction, name, model.Plural)
}

// replaceCharacters rewrites each selected project name and saves the
// projects one by one so the unique constraints still apply.
func (s *AdminService) replaceCharacters(ctx context.Context, req ActionRequest) (ActionResult, error) {
	if req.Old == "" {
		return ActionResult{}, domain.NewValidationError("old", "This field is required.", nil)
	}

	var n int64
	for _, id := range req.IDs {
		p, err := s.projects.Get(ctx, id)
		if err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			return ActionResult{}, err
		}
		renamed := strings.ReplaceAll(p.Name, req.Old, req.New)
		if renamed == p.Name {
			continue
		}
		p.Name = renamed
		if err := p.Validate(); err != nil {
			return ActionResult{}, err
		}
		if err := s.projects.Update(ctx, p); err != nil {
			return ActionResult{}, err
		}
		n++
	}
	return ActionResult{Updated: n, Message: "Characters in names replaced successfully."}, nil
}
