package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/listing"
)

var (
	alice = &shared.Principal{UserID: 1, Username: "alice", Scheme: shared.SchemeBearer}
	bob   = &shared.Principal{UserID: 2, Username: "bob", Scheme: shared.SchemeToken}
	root  = &shared.Principal{UserID: 9, Username: "root", Superuser: true, Staff: true, Scheme: shared.SchemeBasic}
)

var nameSchema = listing.Schema{
	Fields: []listing.Field{
		{Name: "id", Column: "t.id", Type: listing.Int},
		{Name: "name", Column: "t.name"},
	},
	Search:   []string{"name"},
	Ordering: []string{"id", "name"},
	Default:  "-id",
	Exact:    []string{"name"},
}

// asUser injects the principal the way the auth middleware does.
func asUser(p *shared.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(shared.WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// mount serves routes under prefix for principal p, which may be nil.
func mount(prefix string, p *shared.Principal, routes func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(p))
	r.Route(prefix, routes)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
