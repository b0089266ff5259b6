package auth

import (
	"context"

	"github.com/dukerupert/clausedesk/internal/usage"
)

type contextKey struct{}

// AuthContext is attached to every authenticated request.
type AuthContext struct {
	UserID  string
	Email   string
	Token   string
	Session *usage.Session
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

// Session returns the request's usage session, or nil.
func Session(ctx context.Context) *usage.Session {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return ac.Session
}
