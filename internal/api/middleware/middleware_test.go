package middleware_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/api/middleware"
	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/mocks"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/platform/metrics"
	"github.com/phrazzld/taskhub/internal/platform/ratelimit"
	"github.com/phrazzld/taskhub/internal/service/auth"
)

func newAuthMiddleware(t *testing.T) (*middleware.AuthMiddleware, *mocks.MockTokenStore) {
	t.Helper()
	users := mocks.NewMockUserStore(
		&domain.User{ID: 1, Username: "alice", Email: "alice@example.com", IsActive: true, IsStaff: true},
		&domain.User{ID: 2, Username: "bob", IsActive: false},
	)
	tokens := mocks.NewMockTokenStore()
	_, err := tokens.GetOrCreate(t.Context(), 1)
	require.NoError(t, err)

	jwtSvc := &mocks.MockJWTService{
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			switch token {
			case "good":
				return &auth.Claims{UserID: 1}, nil
			case "inactive":
				return &auth.Claims{UserID: 2}, nil
			case "expired":
				return nil, auth.ErrExpiredToken
			default:
				return nil, auth.ErrInvalidToken
			}
		},
	}
	verifier := &mocks.MockPasswordVerifier{
		CompareFn: func(_, password string) error {
			if password == "s3cret-pass" {
				return nil
			}
			return mocks.ErrPasswordMismatch
		},
	}
	creds := auth.NewAuthenticator(users, verifier)
	return middleware.NewAuthMiddleware(jwtSvc, users, tokens, creds), tokens
}

func principalEcho(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.GetPrincipal(r.Context())
	if !ok {
		_, _ = io.WriteString(w, "anonymous")
		return
	}
	_, _ = io.WriteString(w, p.Username+" "+string(p.Scheme))
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	m, _ := newAuthMiddleware(t)
	handler := m.Authenticate(http.HandlerFunc(principalEcho))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"bearer", "Bearer good", http.StatusOK, "alice Bearer"},
		{"api token", "Token " + strings.Repeat("0", 39) + "1", http.StatusOK, "alice Token"},
		{"basic", basicHeader("alice", "s3cret-pass"), http.StatusOK, "alice Basic"},
		{"missing", "", http.StatusUnauthorized, "Authentication credentials were not provided."},
		{"unknown scheme", "Digest abc", http.StatusUnauthorized, "Invalid authorization header"},
		{"no credential", "Bearer", http.StatusUnauthorized, "Invalid authorization header"},
		{"expired", "Bearer expired", http.StatusUnauthorized, "Token expired"},
		{"invalid jwt", "Bearer junk", http.StatusUnauthorized, "Invalid token"},
		{"inactive user", "Bearer inactive", http.StatusUnauthorized, "User inactive or deleted."},
		{"unknown api token", "Token nope", http.StatusUnauthorized, "Invalid token"},
		{"wrong password", basicHeader("alice", "wrong"), http.StatusUnauthorized, "Invalid username/password."},
		{"malformed basic", "Basic %%%", http.StatusUnauthorized, "Invalid authorization header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthMiddleware_Optional(t *testing.T) {
	m, _ := newAuthMiddleware(t)
	handler := m.Optional(http.HandlerFunc(principalEcho))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_LookupFailure(t *testing.T) {
	m, tokens := newAuthMiddleware(t)
	tokens.GetByKeyFn = func(_ context.Context, _ string) (*domain.APIToken, error) {
		return nil, errors.New("connection refused")
	}
	handler := m.Authenticate(http.HandlerFunc(principalEcho))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.NewCapture()
	var traceID string
	handler := middleware.NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, traceID)
	assert.Equal(t, traceID, rec.Header().Get("X-Trace-ID"))
	entries, err := buf.Entries()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, "inside", last["msg"])
	assert.Equal(t, traceID, last["trace_id"])
}

func TestRateLimit(t *testing.T) {
	m := metrics.New()
	limiter := ratelimit.New(0.001, 2, time.Minute)
	handler := middleware.RateLimit(limiter, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))

	var body shared.ErrorResponse
	require.NoError(t, json.NewDecoder(last.Body).Decode(&body))
	assert.Equal(t, "Request was throttled.", body.Error)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
	req.RemoteAddr = "198.51.100.1:1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimit_NilLimiterAllows(t *testing.T) {
	handler := middleware.RateLimit(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for range 10 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(middleware.Metrics(m))
	r.Get("/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(),
		`taskhub_http_requests_total{code="418",method="GET",route="/api/tasks/{id}"} 1`)
}

func withPrincipal(r *http.Request, p *shared.Principal) *http.Request {
	return r.WithContext(shared.WithPrincipal(r.Context(), p))
}

func TestRequireStaff(t *testing.T) {
	handler := middleware.RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name      string
		principal *shared.Principal
		want      int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"regular user", &shared.Principal{UserID: 3}, http.StatusForbidden},
		{"staff", &shared.Principal{UserID: 1, Staff: true}, http.StatusOK},
		{"superuser", &shared.Principal{UserID: 2, Superuser: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/api/", nil)
			if tt.principal != nil {
				req = withPrincipal(req, tt.principal)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	az := &mocks.MockAuthorizer{Grants: map[string]bool{"task:view": true}}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), &shared.Principal{UserID: 5})
	rec := httptest.NewRecorder()
	middleware.RequirePermission(az, "task", "view")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	middleware.RequirePermission(az, "task", "delete")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	az.Err = errors.New("policy store down")
	rec = httptest.NewRecorder()
	middleware.RequirePermission(az, "task", "view")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
