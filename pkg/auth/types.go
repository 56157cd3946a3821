// Package auth carries the signed-in back-office user through request and
// navigation contexts and answers role checks for page factories.
package auth

import (
	"context"
	"errors"
	"slices"

	"github.com/vango-dev/backoffice/pkg/apperr"
)

// Well-known roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ErrUnauthorized is returned when no principal is present.
var ErrUnauthorized = errors.New("auth: authentication required")

// Principal represents the signed-in user.
// Intentionally minimal; pages only need a name and roles.
type Principal struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether p has role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// IsZero reports whether p is the empty principal.
func (p Principal) IsZero() bool {
	return p.ID == "" && p.Name == "" && len(p.Roles) == 0
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal carried by ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Require returns the principal carried by ctx or ErrUnauthorized.
func Require(ctx context.Context) (Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthorized
	}
	return p, nil
}

// RequireRole returns an apperr authorization error unless the principal in
// ctx has role. A missing principal is also an authorization error so the
// navigation boundary treats it as recoverable.
func RequireRole(ctx context.Context, role string) error {
	p, ok := FromContext(ctx)
	if !ok {
		return apperr.Forbidden("sign-in required for role %q", role)
	}
	if !p.HasRole(role) {
		return apperr.Forbidden("%s lacks role %q", p.Name, role)
	}
	return nil
}

// RequireAny passes when the principal has at least one of roles.
func RequireAny(ctx context.Context, roles ...string) error {
	p, ok := FromContext(ctx)
	if !ok {
		return apperr.Forbidden("sign-in required")
	}
	for _, role := range roles {
		if p.HasRole(role) {
			return nil
		}
	}
	return apperr.Forbidden("%s lacks any of roles %v", p.Name, roles)
}
