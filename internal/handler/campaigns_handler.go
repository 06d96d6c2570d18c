package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Clive-Nyaga/Fund-Connect/internal/domain"
	"github.com/Clive-Nyaga/Fund-Connect/internal/ledger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// listCampaignsHandler serves the ledger's published snapshot. The
// ?owner= and ?exclude_owner= filters back the dashboard's "my
// campaigns" vs "featured campaigns" partition.
func listCampaignsHandler(led *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if owner := r.URL.Query().Get("owner"); owner != "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"campaigns": led.GetByOwner(owner),
			})
			return
		}
		if exclude := r.URL.Query().Get("exclude_owner"); exclude != "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"campaigns": led.NotOwnedBy(exclude),
			})
			return
		}
		writeJSON(w, http.StatusOK, led.Snapshot())
	}
}

func refreshHandler(led *ledger.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := led.Refresh(r.Context()); err != nil {
			// Fail-soft: the stale snapshot is still served, with the
			// error recorded on it.
			logger.Warn("manual refresh failed", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, led.Snapshot())
	}
}

func createCampaignHandler(led *ledger.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input domain.CampaignInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		campaign, err := led.CreateCampaign(r.Context(), input)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, campaign)
	}
}

func campaignDetailHandler(led *ledger.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "campaignId")

		detail, err := led.CampaignDetail(r.Context(), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func deleteCampaignHandler(led *ledger.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "campaignId")

		if err := led.DeleteCampaign(r.Context(), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type donateRequest struct {
	Amount float64          `json:"amount"`
	Donor  domain.DonorInfo `json:"donor"`
}

func donateHandler(led *ledger.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "campaignId")

		var req donateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		receipt, err := led.Donate(r.Context(), id, req.Amount, req.Donor)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, receipt)
	}
}

func categoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"categories": domain.Categories()})
	}
}
