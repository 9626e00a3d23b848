// Package httpapi assembles the HTTP surface: middleware chain, health and
// metrics endpoints, and the record and attachment routes.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recordvault/internal/attachment"
	"recordvault/internal/identity"
	"recordvault/internal/platform/metrics"
	"recordvault/internal/platform/middleware"
	"recordvault/internal/record/handler"
	"recordvault/pkg/platform/httputil"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
)

// Deps carries everything the router wires together.
type Deps struct {
	Records     *handler.Handler
	Attachments *attachment.Handler
	Tokens      *identity.TokenService
	HTTPMetrics *metrics.HTTP
	Logger      *slog.Logger
}

// NewRouter builds the full route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Metrics(d.HTTPMetrics))
	r.Use(middleware.Identity(d.Tokens, d.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Development-grade token minting; production shares the signing key with
	// the real identity provider instead.
	r.Post("/auth/token", issueToken(d.Tokens))

	d.Records.Routes(r)
	d.Attachments.Routes(r)

	return r
}

type tokenRequest struct {
	OwnerID string `json:"owner_id"`
}

func issueToken(tokens *identity.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := httputil.DecodeJSON(r.Body, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}

		ownerID, err := id.ParseOwnerID(req.OwnerID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		token, err := tokens.Issue(ownerID, time.Hour)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "token signing failed"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"access_token": token,
			"token_type":   "Bearer",
		})
	}
}
