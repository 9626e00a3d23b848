// Package middleware holds the HTTP middleware chain shared by all routes.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"recordvault/internal/identity"
	"recordvault/internal/platform/metrics"
	"recordvault/pkg/requestcontext"
)

// Verifier validates a bearer token and returns the caller identity.
type Verifier interface {
	Verify(tokenString string) (identity.Identity, error)
}

// Identity resolves the caller principal for every request.
//
// A missing Authorization header yields the anonymous identity (published
// records are world-readable, so anonymous requests are legitimate). A
// present but invalid token is rejected with 401 rather than downgraded to
// anonymous.
func Identity(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "

			if token, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				ident, err := verifier.Verify(token)
				if err != nil {
					logger.WarnContext(ctx, "rejected invalid bearer token",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"error":"unauthorized","message":"invalid or expired token"}`))
					return
				}
				ctx = requestcontext.WithIdentity(ctx, ident)
			} else {
				ctx = requestcontext.WithIdentity(ctx, identity.Anonymous())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestTime captures one "now" per request so every timestamp written
// during the request agrees.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID assigns a request id when the caller did not supply one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Metrics records one observation per completed request, labeled by the chi
// route pattern rather than the raw path so ids do not explode cardinality.
func Metrics(m *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.Observe(route, r.Method, strconv.Itoa(ww.Status()), start)
		})
	}
}
