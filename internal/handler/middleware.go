package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const sessionKey contextKey = "session"

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SessionMiddleware resolves the Bearer token to a live session and
// forwards the backend token on the request context.
func SessionMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("auth: missing or malformed token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			sess, err := authSvc.Session(token)
			if err != nil {
				logger.Warn("auth: unknown or expired session",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			ctx = domain.WithAccessToken(ctx, sess.Token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManager lets only owners and admins through.
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		if sess == nil || !sess.CanManage() {
			writeError(w, http.StatusForbidden, "only owners and admins can do this")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionFromContext returns the session stored by SessionMiddleware.
func sessionFromContext(ctx context.Context) *service.Session {
	v, _ := ctx.Value(sessionKey).(*service.Session)
	return v
}
