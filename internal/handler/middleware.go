package handler

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"volunteerhub/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity reads the caller asserted by the identity provider in front
// of this service (X-User-Id, X-User-Email, X-User-Role headers) and
// attaches it to the request context. Requests without an id pass
// through anonymous; handlers that need a caller reject them.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-Id")
		if id != "" {
			user := model.UserIdentity{
				ID:    id,
				Email: r.Header.Get("X-User-Email"),
				Role:  r.Header.Get("X-User-Role"),
			}
			r = r.WithContext(context.WithValue(r.Context(), identityKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

// identityFrom returns the authenticated caller, if any.
func identityFrom(ctx context.Context) (model.UserIdentity, bool) {
	user, ok := ctx.Value(identityKey).(model.UserIdentity)
	return user, ok
}

// requireAdmin writes a 401/403 and returns false unless the caller is
// an authenticated administrator.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if !user.IsAdmin() {
		writeError(w, http.StatusForbidden, "administrator role required")
		return false
	}
	return true
}

// Logger is a structured access log middleware.
func Logger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

// CORS is a permissive CORS policy for browser clients.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-Id, X-User-Email, X-User-Role")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
