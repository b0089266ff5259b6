package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/usage"
)

const SessionCookieName = "clausedesk_session"

// Resolver maps a session token to its user and live usage session.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*model.User, *usage.Session, error)
}

// TokenParser extracts the session token from a bearer JWT.
type TokenParser interface {
	Parse(tokenString string) (string, error)
}

// SessionToken returns the session token carried by the request, from the
// session cookie or else from an Authorization bearer JWT.
func SessionToken(r *http.Request, parser TokenParser) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	h := r.Header.Get("Authorization")
	bearer, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || parser == nil {
		return ""
	}
	sid, err := parser.Parse(strings.TrimSpace(bearer))
	if err != nil {
		return ""
	}
	return sid
}

// Authenticate attaches an AuthContext when the request carries a valid
// session. Anonymous requests pass through unchanged.
func Authenticate(resolver Resolver, parser TokenParser, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r, parser)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, sess, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				logger.Error("resolve session", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if user == nil || sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			noteUser(r.Context(), user.ID)
			ctx := auth.WithAuth(r.Context(), auth.AuthContext{
				UserID:  user.ID,
				Email:   user.Email,
				Token:   token,
				Session: sess,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without an AuthContext.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserID(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
