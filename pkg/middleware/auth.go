package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/response"
)

// TokenCookie is the cookie carrying the session token.
const TokenCookie = "token"

// IdentityResolver loads the current state of the user named by a token.
// It returns (nil, nil) when the user no longer exists.
type IdentityResolver func(ctx context.Context, userID string) (*auth.Identity, error)

// Protect requires a valid token from the Authorization header or the token
// cookie and attaches the resolved identity to the request context.
func Protect(resolve IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				response.Unauthorized(w, "Not authorized to access this route")
				return
			}

			claims, err := auth.ValidateToken(token)
			if err != nil {
				response.Unauthorized(w, "Not authorized to access this route")
				return
			}

			id, err := resolve(r.Context(), claims.UserID)
			if err != nil {
				logger.WithCtx(r.Context()).Error("resolve identity", "error", err, "user_id", claims.UserID)
				response.Error(w, http.StatusInternalServerError, "Server Error")
				return
			}
			if id == nil {
				response.Unauthorized(w, "Not authorized to access this route")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), *id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}
