package api_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/api"
	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/mocks"
	"github.com/phrazzld/taskhub/internal/service"
)

func tagServer(p *shared.Principal, tags ...domain.Tag) (http.Handler, *mocks.MockRepository[domain.Tag, *domain.Tag]) {
	repo := mocks.NewMockRepository[domain.Tag]("tag", tags...)
	h := api.NewResourceHandler[domain.Tag](service.NewResource[domain.Tag](repo, nil), nameSchema, 5, nil)
	return mount("/api/tags", p, h.Routes), repo
}

func manyTags(n int) []domain.Tag {
	tags := make([]domain.Tag, n)
	for i := range tags {
		tags[i].Name = fmt.Sprintf("tag-%d", i+1)
	}
	return tags
}

func TestResourceHandler_CursorPagination(t *testing.T) {
	srv, _ := tagServer(alice, manyTags(7)...)

	rec := do(t, srv, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[listing.Page[domain.Tag]](t, rec)
	assert.Len(t, first.Results, 5)
	assert.Nil(t, first.Count)
	assert.Nil(t, first.Previous)
	require.NotNil(t, first.Next)

	next, err := url.Parse(*first.Next)
	require.NoError(t, err)
	rec = do(t, srv, http.MethodGet, next.RequestURI(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[listing.Page[domain.Tag]](t, rec)
	assert.Len(t, second.Results, 2)
	assert.Nil(t, second.Next)
	assert.NotNil(t, second.Previous)

	// A cursor issued for one ordering is rejected under another.
	q := next.Query()
	q.Set("ordering", "name")
	rec = do(t, srv, http.MethodGet, "/api/tags?"+q.Encode(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid cursor", decode[shared.ErrorResponse](t, rec).Error)
}

func TestResourceHandler_ListErrors(t *testing.T) {
	srv, _ := tagServer(alice)

	tests := []struct {
		name  string
		query string
		msg   string
	}{
		{"tampered cursor", "?cursor=abc", "Invalid cursor"},
		{"unknown ordering", "?ordering=bogus", "Invalid ordering"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/tags"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, decode[shared.ErrorResponse](t, rec).Error)
		})
	}
}

func TestResourceHandler_Create(t *testing.T) {
	srv, repo := tagServer(alice)

	rec := do(t, srv, http.MethodPost, "/api/tags", map[string]any{"name": "urgent"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[domain.Tag](t, rec)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "urgent", got.Name)
	assert.Equal(t, 1, repo.Len())

	tests := []struct {
		name   string
		body   any
		status int
		msg    string
		field  string
	}{
		{"blank name", map[string]any{"name": ""}, http.StatusBadRequest, "Validation error", "name"},
		{"too long", map[string]any{"name": "a name that is far too long"}, http.StatusBadRequest, "Validation error", "name"},
		{"wrong type", `{"name": 5}`, http.StatusBadRequest, "Validation error", "name"},
		{"malformed", `{"name":`, http.StatusBadRequest, "Invalid request format", ""},
		{"empty body", "", http.StatusBadRequest, "Request body is required", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/tags", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[shared.ErrorResponse](t, rec)
			assert.Equal(t, tt.msg, body.Error)
			if tt.field != "" {
				assert.Contains(t, body.Fields, tt.field)
			}
		})
	}
	assert.Equal(t, 1, repo.Len())
}

func TestResourceHandler_CreateRequiresAuthentication(t *testing.T) {
	srv, repo := tagServer(nil)
	rec := do(t, srv, http.MethodPost, "/api/tags", map[string]any{"name": "urgent"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, repo.Len())
}

func TestResourceHandler_ItemRoutes(t *testing.T) {
	srv, _ := tagServer(alice, domain.Tag{Name: "backend"})

	rec := do(t, srv, http.MethodGet, "/api/tags/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "backend", decode[domain.Tag](t, rec).Name)

	rec = do(t, srv, http.MethodGet, "/api/tags/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found.", decode[shared.ErrorResponse](t, rec).Error)

	rec = do(t, srv, http.MethodGet, "/api/tags/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid ID", decode[shared.ErrorResponse](t, rec).Error)

	rec = do(t, srv, http.MethodPatch, "/api/tags/1", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "backend", decode[domain.Tag](t, rec).Name)

	rec = do(t, srv, http.MethodPut, "/api/tags/1", map[string]any{"name": "frontend"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.Tag](t, rec)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "frontend", got.Name)

	// PUT starts from defaults, so a missing name fails validation.
	rec = do(t, srv, http.MethodPut, "/api/tags/1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/tags/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/tags/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResourceHandler_StoreFailure(t *testing.T) {
	srv, repo := tagServer(alice, domain.Tag{Name: "backend"})
	repo.Err = fmt.Errorf("connection reset by peer")

	rec := do(t, srv, http.MethodGet, "/api/tags/1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An unexpected error occurred", decode[shared.ErrorResponse](t, rec).Error)
}

