package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	assert.Len(t, GetTraceID(traced), 2*TraceIDLength)
	assert.NotEqual(t, GetTraceID(traced), GetTraceID(SetTraceID(ctx)))
}

func TestPrincipal(t *testing.T) {
	_, ok := GetPrincipal(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), &Principal{UserID: 3, Username: "carol"})
	p, ok := GetPrincipal(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), p.UserID)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "x", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.ErrorIs(t, DecodeJSON(r, &v), ErrEmptyBody)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.Error(t, DecodeJSON(r, &v))
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Username string `json:"username" validate:"required"`
	}
	err := ValidateRequest(req{})
	fe, ok := domain.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{"This field is required."}, fe["username"])
	assert.NoError(t, ValidateRequest(req{Username: "a"}))
}

func TestRespondWithError(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/tasks/1", nil)
	r = r.WithContext(context.WithValue(r.Context(), TraceIDKey, "abc"))
	w := httptest.NewRecorder()

	RespondWithError(w, r, http.StatusNotFound, "Not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found","trace_id":"abc"}`, w.Body.String())
}

func TestRespondWithValidationErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
	w := httptest.NewRecorder()

	RespondWithValidationErrors(w, r, map[string][]string{"title": {"This field is required."}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Validation error","fields":{"title":["This field is required."]}}`, w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name   string
		status int
		opts   []ResponseOption
		level  string
	}{
		{"server error", http.StatusInternalServerError, nil, "ERROR"},
		{"rate limited", http.StatusTooManyRequests, nil, "WARN"},
		{"client error", http.StatusBadRequest, nil, "DEBUG"},
		{"elevated client error", http.StatusUnauthorized, []ResponseOption{WithElevatedLogLevel()}, "WARN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := logger.NewCapture()
			r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			r = r.WithContext(logger.WithLogger(r.Context(), log))
			w := httptest.NewRecorder()

			RespondWithErrorAndLog(w, r, tt.status, "Something failed",
				errors.New("dial postgres://app:pw@db:5432/taskhub"), tt.opts...)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Something failed", body.Error)

			entries, err := buf.Entries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0]["level"])
			assert.NotContains(t, entries[0]["error"], "pw@")
		})
	}
}
