package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// UserContextKey is the fiber Locals key under which the guard stores the
// authenticated user.
const UserContextKey = "user"

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// CurrentUser returns the authenticated user the guard attached to the
// request, if any.
func CurrentUser(c *fiber.Ctx) (*User, bool) {
	raw, ok := c.Locals(UserContextKey).(*User)
	return raw, ok
}
