package api

// CredentialsRequest is the payload of the token endpoints.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPairResponse is returned by POST /api/auth/token.
type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RefreshRequest is the payload of POST /api/auth/token/refresh.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// AccessResponse is returned by POST /api/auth/token/refresh.
type AccessResponse struct {
	Access string `json:"access"`
}

// APITokenResponse is returned by POST /api-token-auth.
type APITokenResponse struct {
	Token string `json:"token"`
}

// RegisterResponse is returned by POST /api/auth/register.
type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// ProtectedResponse is returned by GET /api/protected.
type ProtectedResponse struct {
	Message string `json:"message"`
	User    string `json:"user"`
}

// StatusesResponse lists the statuses a sub-task may take.
type StatusesResponse struct {
	AvailableStatuses []string `json:"available_statuses"`
}

// InvalidDayResponse is the 400 body of the weekday endpoint.
type InvalidDayResponse struct {
	Detail        string   `json:"detail"`
	AllowedValues []string `json:"allowed_values"`
}
