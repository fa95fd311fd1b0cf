package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/platform/media"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/service/auth"
	"github.com/phrazzld/taskhub/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing their messages.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotOwned),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, listing.ErrInvalidPage),
		errors.Is(err, service.ErrUnknownAction):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, store.ErrDeleteFailed),
		errors.Is(err, listing.ErrInvalidQuery),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, media.ErrInvalidPath),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return "Authentication credentials were not provided."
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "No active account found with the given credentials"

	case errors.Is(err, service.ErrNotOwned),
		errors.Is(err, domain.ErrForbidden):
		return "You do not have permission to perform this action."

	case errors.Is(err, store.ErrBookNotFound):
		return "Book not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, listing.ErrInvalidPage):
		return "Invalid page."
	case errors.Is(err, service.ErrUnknownAction):
		return "Unknown action"
	case errors.Is(err, store.ErrNotFound):
		return "Not found."

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	case errors.Is(err, store.ErrDeleteFailed):
		return "The entity is still referenced and cannot be deleted"
	case errors.Is(err, listing.ErrInvalidCursor):
		return "Invalid cursor"
	case errors.Is(err, listing.ErrInvalidOrdering):
		return "Invalid ordering"
	case errors.Is(err, listing.ErrInvalidFilter):
		return "Invalid filter"
	case errors.Is(err, listing.ErrInvalidQuery):
		return "Invalid query parameters"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, media.ErrInvalidPath):
		return "Invalid file path"
	case errors.Is(err, errBadRequest):
		return "Invalid request format"

	default:
		return "An unexpected error occurred"
	}
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("malformed request")

// duplicateFields names the field a unique violation belongs to.
func duplicateFields(err error) map[string][]string {
	switch {
	case errors.Is(err, store.ErrUsernameExists):
		return map[string][]string{"username": {"A user with that username already exists."}}
	case errors.Is(err, store.ErrEmailExists):
		return map[string][]string{"email": {"A user with that email already exists."}}
	default:
		return map[string][]string{"non_field_errors": {"An entry with these values already exists."}}
	}
}

// HandleAPIError writes the response for err. Validation and unique
// violations produce field errors; anything else is logged and answered
// with a safe message, or customMsg when given.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, customMsg string) {
	if fe, ok := domain.AsFieldErrors(err); ok && !errors.Is(err, domain.ErrInvalidWeekday) {
		shared.RespondWithValidationErrors(w, r, fe)
		return
	}
	if errors.Is(err, store.ErrDuplicate) {
		shared.RespondWithValidationErrors(w, r, duplicateFields(err))
		return
	}

	status := MapErrorToStatusCode(err)
	msg := customMsg
	if msg == "" {
		msg = GetSafeErrorMessage(err)
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
