// internal/auth/context.go
//
// Signed-in user carried in the request context.
//
// Usage
// -----
//     // RequireSession attaches the user after verifying the cookie.
//     ctx = auth.WithUser(ctx, u)
//
//     // Handlers downstream read it back.
//     u, ok := auth.CurrentUser(ctx)
//
// Notes
// -----
// • The key type is unexported to avoid collisions.

package auth

import (
	"context"

	"github.com/franciscocoimbra11-prog/colegio-elizangela-filomena/internal/school"
)

// User is the authenticated back-office principal.
type User struct {
	ID    string
	Email string
}

// Name is the greeting shown in the dashboard header.
func (u User) Name() string { return school.DisplayName(u.Email) }

type userKey struct{}

// WithUser returns a new context carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// CurrentUser extracts the user from ctx.  ok is false outside
// RequireSession.
func CurrentUser(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}
