package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/pkg/util"
)

type contextKey string

const actorKey contextKey = "actor"

// Auth is a middleware factory that validates the bearer token and places the
// acting administrator into the request context.
func Auth(secretKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				logger.Warn("missing authorization header", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: bearer token required", http.StatusUnauthorized)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "Unauthorized: bearer token required", http.StatusUnauthorized)
				return
			}

			claims, err := util.ValidateToken(token, secretKey)
			if err != nil {
				logger.Warn("invalid actor token", "remote_addr", r.RemoteAddr, "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			actor := domain.ActorContext{ID: claims.ActorID, Role: claims.Role}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the authenticated actor stored by Auth. The second return
// is false on routes that bypassed the middleware.
func ActorFrom(ctx context.Context) (domain.ActorContext, bool) {
	actor, ok := ctx.Value(actorKey).(domain.ActorContext)
	return actor, ok
}
