package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/orders-dashboard-go/internal/service"

	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RequireSession rejects requests when no session token is held or the held
// token has expired. Backend 1 still validates the token itself.
func RequireSession(session *service.SessionStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !session.Authenticated() {
				logger.Warn("session: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, service.MsgSessionRequired)
				return
			}

			if exp, ok := session.ExpiresAt(); ok && !exp.After(time.Now()) {
				logger.Warn("session: token expired",
					zap.String("path", r.URL.Path),
					zap.Time("expired_at", exp),
				)
				writeError(w, http.StatusUnauthorized, service.MsgSessionRequired)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithCORS lets a browser-hosted renderer on one of origins call the API.
// Preflight requests are answered before routing.
func WithCORS(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return next
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(next)
}
