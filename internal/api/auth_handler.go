package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/service/auth"
)

// Accounts is the account use cases the auth endpoints need.
type Accounts interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.Registration, error)
	APIToken(ctx context.Context, userID int64) (*domain.APIToken, error)
}

// Credentials verifies a username and password.
type Credentials interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// AuthHandler handles registration and token issuing.
type AuthHandler struct {
	accounts    Accounts
	credentials Credentials
	jwtService  auth.JWTService
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(accounts Accounts, credentials Credentials, jwtService auth.JWTService, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		accounts:    accounts,
		credentials: credentials,
		jwtService:  jwtService,
		logger:      log.With("component", "auth_handler"),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	reg, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, RegisterResponse{
		ID:       reg.User.ID,
		Username: reg.User.Username,
		Email:    reg.User.Email,
		Token:    reg.Token.Key,
	})
}

// credentialsUser decodes a CredentialsRequest and authenticates it.
func (h *AuthHandler) credentialsUser(r *http.Request) (*domain.User, error) {
	var req CredentialsRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := shared.ValidateRequest(req); err != nil {
		return nil, err
	}
	return h.credentials.Authenticate(r.Context(), req.Username, req.Password)
}

// Token handles POST /api/auth/token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	user, err := h.credentialsUser(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	access, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	refresh, err := h.jwtService.GenerateRefreshToken(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate refresh token")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("token pair issued", "user_id", user.ID)
	shared.RespondWithJSON(w, r, http.StatusOK, TokenPairResponse{Access: access, Refresh: refresh})
}

// Refresh handles POST /api/auth/token/refresh. The refresh token itself is
// not rotated.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.Refresh)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	access, err := h.jwtService.GenerateToken(r.Context(), claims.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AccessResponse{Access: access})
}

// APITokenAuth handles POST /api-token-auth.
func (h *AuthHandler) APITokenAuth(w http.ResponseWriter, r *http.Request) {
	user, err := h.credentialsUser(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	token, err := h.accounts.APIToken(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, APITokenResponse{Token: token.Key})
}

// Protected handles GET /api/protected.
func (h *AuthHandler) Protected(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.GetPrincipal(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ProtectedResponse{
		Message: "Hello, authenticated user!",
		User:    p.Username,
	})
}
