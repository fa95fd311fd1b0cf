// Package mocks provides function-field test doubles for the interfaces the
// HTTP layer depends on.
//
// Each mock has one XxxFn field per method. When a field is nil the mock
// falls back to simple in-memory or fixed-value behavior, so tests only set
// what they assert on:
//
//	jwt := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return &auth.Claims{UserID: 1}, nil
//	    },
//	}
package mocks
