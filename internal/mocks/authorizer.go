package mocks

import (
	"context"

	"github.com/phrazzld/taskhub/internal/authz"
)

// MockAuthorizer implements authz.Authorizer. With AllowedFn nil it allows
// superusers and the pairs listed in Grants ("task:view").
type MockAuthorizer struct {
	AllowedFn func(ctx context.Context, sub authz.Subject, object, action string) (bool, error)
	Grants    map[string]bool
	Err       error
}

var _ authz.Authorizer = (*MockAuthorizer)(nil)

func (m *MockAuthorizer) Allowed(ctx context.Context, sub authz.Subject, object, action string) (bool, error) {
	if m.AllowedFn != nil {
		return m.AllowedFn(ctx, sub, object, action)
	}
	if m.Err != nil {
		return false, m.Err
	}
	return sub.Superuser || m.Grants[object+":"+action], nil
}
