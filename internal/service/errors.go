package service

import "errors"

// Service errors. The API layer maps them to status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the
	// one making the request. Maps to 403.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrUnknownAction is returned for an admin action the model does not offer.
	ErrUnknownAction = errors.New("unknown admin action")
)
