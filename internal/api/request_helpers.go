package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/service"
)

// pathID parses the integer URL parameter name.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, domain.NewValidationError(name, "This field is required.", nil)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidID, raw)
	}
	return id, nil
}

// actorFrom converts the authenticated principal to a service actor.
func actorFrom(r *http.Request) (service.Actor, error) {
	p, ok := shared.GetPrincipal(r.Context())
	if !ok {
		return service.Actor{}, domain.ErrUnauthorized
	}
	return service.Actor{
		UserID:    p.UserID,
		Username:  p.Username,
		Superuser: p.Superuser,
		Staff:     p.Staff,
	}, nil
}

// decodeBody decodes the JSON body into dst. A value of the wrong JSON type
// is reported as a field error, other syntax errors as a bad request.
func decodeBody(r *http.Request, dst any) error {
	err := shared.DecodeJSON(r, dst)
	if err == nil || errors.Is(err, shared.ErrEmptyBody) {
		return err
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return domain.NewValidationError(typeErr.Field,
			fmt.Sprintf("Incorrect type. Expected %s.", typeErr.Type), nil)
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

// selfURL is the absolute URL of the request, used for next/previous links.
func selfURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	return &u
}
