// Package handler exposes the ledger and session store over a local
// HTTP facade for the view layer. The facade holds no state of its own:
// every route reads published ledger state or forwards a mutation.
package handler

import (
	"net/http"

	"github.com/Clive-Nyaga/Fund-Connect/internal/infra/observability"
	"github.com/Clive-Nyaga/Fund-Connect/internal/ledger"
	"github.com/Clive-Nyaga/Fund-Connect/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(led *ledger.Ledger, sess *session.Store, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(led))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Session
		r.Post("/session/login", loginHandler(sess, logger))
		r.Post("/session/register", registerHandler(sess, logger))
		r.Post("/session/logout", logoutHandler(sess, logger))
		r.Get("/session", currentSessionHandler(sess))

		// Campaigns
		r.Get("/campaigns", listCampaignsHandler(led))
		r.Post("/campaigns", createCampaignHandler(led, logger))
		r.Post("/campaigns/refresh", refreshHandler(led, logger))
		r.Get("/campaigns/{campaignId}", campaignDetailHandler(led, logger))
		r.Delete("/campaigns/{campaignId}", deleteCampaignHandler(led, logger))
		r.Post("/campaigns/{campaignId}/donations", donateHandler(led, logger))

		// Reference data
		r.Get("/categories", categoriesHandler())

		// Metrics snapshot for the dashboard
		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler reports ready once the ledger has loaded at least one
// snapshot or is not mid-refresh with an empty cache.
func readyzHandler(led *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := led.Snapshot()
		if len(snap.Campaigns) == 0 && snap.Loading {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetLedgerSnapshot())
	}
}
