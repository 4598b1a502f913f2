package auth

import (
	"context"
	"slices"
)

type contextKey struct{}

// Principal is the resolved identity for a request. The session resolver
// produces it once per request; downstream handlers read it from the request
// context and never mutate it.
type Principal struct {
	UserID    string
	Email     string
	Name      string
	IsAdmin   bool
	Roles     []string
	SessionID int64
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

func UserID(ctx context.Context) string {
	p, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return p.UserID
}

func IsAdmin(ctx context.Context) bool {
	p, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return p.IsAdmin
}
