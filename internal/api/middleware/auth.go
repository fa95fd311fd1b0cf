package middleware

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/redact"
	"github.com/phrazzld/taskhub/internal/service/auth"
	"github.com/phrazzld/taskhub/internal/store"
)

// UserGetter loads the user a credential belongs to.
type UserGetter interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// TokenLookup resolves API token keys.
type TokenLookup interface {
	GetByKey(ctx context.Context, key string) (*domain.APIToken, error)
}

// CredentialChecker verifies a username and password.
type CredentialChecker interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

var (
	errNoCredentials = errors.New("authentication credentials were not provided")
	errBadHeader     = errors.New("invalid authorization header")
	errInactiveUser  = errors.New("user inactive or deleted")
)

// AuthMiddleware authenticates requests with the Bearer (JWT), Token (API
// key) and Basic schemes.
type AuthMiddleware struct {
	jwtService  auth.JWTService
	users       UserGetter
	tokens      TokenLookup
	credentials CredentialChecker
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(
	jwtService auth.JWTService,
	users UserGetter,
	tokens TokenLookup,
	credentials CredentialChecker,
) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		users:       users,
		tokens:      tokens,
		credentials: credentials,
	}
}

// Authenticate rejects requests without valid credentials and stores the
// principal in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.handler(next, true)
}

// Optional authenticates requests that carry credentials and lets anonymous
// requests through. Invalid credentials are still rejected.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return m.handler(next, false)
}

func (m *AuthMiddleware) handler(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			if required {
				respondUnauthorized(w, r, errNoCredentials)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		p, err := m.principal(r.Context(), header)
		if err != nil {
			respondUnauthorized(w, r, err)
			return
		}

		ctx := shared.WithPrincipal(r.Context(), p)
		log := logger.FromContextOrDefault(ctx, slog.Default()).With("user_id", p.UserID)
		ctx = logger.WithLogger(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) principal(ctx context.Context, header string) (*shared.Principal, error) {
	scheme, credential, ok := strings.Cut(strings.TrimSpace(header), " ")
	credential = strings.TrimSpace(credential)
	if !ok || credential == "" {
		return nil, errBadHeader
	}

	var (
		user *domain.User
		err  error
	)
	switch shared.Scheme(scheme) {
	case shared.SchemeBearer:
		user, err = m.bearer(ctx, credential)
	case shared.SchemeToken:
		user, err = m.token(ctx, credential)
	case shared.SchemeBasic:
		user, err = m.basic(ctx, credential)
	default:
		return nil, errBadHeader
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errInactiveUser
	}
	return &shared.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Staff:     user.IsStaff,
		Superuser: user.IsSuperuser,
		Scheme:    shared.Scheme(scheme),
	}, nil
}

func (m *AuthMiddleware) bearer(ctx context.Context, token string) (*domain.User, error) {
	claims, err := m.jwtService.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := m.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, errInactiveUser
	}
	return user, err
}

func (m *AuthMiddleware) token(ctx context.Context, key string) (*domain.User, error) {
	t, err := m.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	user, err := m.users.GetByID(ctx, t.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, errInactiveUser
	}
	return user, err
}

func (m *AuthMiddleware) basic(ctx context.Context, encoded string) (*domain.User, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errBadHeader
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, errBadHeader
	}
	return m.credentials.Authenticate(ctx, username, password)
}

func respondUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	var msg string
	switch {
	case errors.Is(err, errNoCredentials):
		msg = "Authentication credentials were not provided."
	case errors.Is(err, errBadHeader):
		msg = "Invalid authorization header"
	case errors.Is(err, errInactiveUser):
		msg = "User inactive or deleted."
	case errors.Is(err, auth.ErrExpiredToken):
		msg = "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		msg = "Invalid token"
	case errors.Is(err, auth.ErrInvalidCredentials):
		msg = "Invalid username/password."
	default:
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Error("failed to authenticate request", "error", redact.Error(err))
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, msg, err, shared.WithElevatedLogLevel())
}
