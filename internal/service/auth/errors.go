package auth

import "errors"

// Authentication errors.
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInvalidRefreshToken covers every refresh token failure except expiry.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrExpiredRefreshToken indicates the refresh token has expired.
	ErrExpiredRefreshToken = errors.New("refresh token has expired")

	// ErrWrongTokenType is returned when an access token is used as a
	// refresh token or the other way round.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrInvalidCredentials is returned for an unknown username, a wrong
	// password or an inactive account. The three are not distinguished.
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
)
