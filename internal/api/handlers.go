package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/gateway"
	"github.com/leeaandrob/fusecast/internal/models"
	"github.com/leeaandrob/fusecast/internal/predictor"
	"github.com/leeaandrob/fusecast/internal/report"
)

// Forecaster is the predictor surface the API needs.
type Forecaster interface {
	Predict(ctx context.Context, ref models.EventReference, requesterID string) (*models.Prediction, error)
}

// History serves stored predictions; nil when no sink is configured.
type History interface {
	RecentPredictions(ctx context.Context, limit int) ([]models.Prediction, error)
	PredictionsForSlug(ctx context.Context, slug string, limit int) ([]models.Prediction, error)
}

// Handlers holds the API handlers.
type Handlers struct {
	forecaster Forecaster
	history    History
}

// NewHandlers creates new API handlers.
func NewHandlers(forecaster Forecaster, history History) *Handlers {
	return &Handlers{forecaster: forecaster, history: history}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func getLimit(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// predictRequest is the inbound body for POST /predict.
type predictRequest struct {
	Reference   string `json:"reference"`
	RequesterID string `json:"requester_id,omitempty"`
}

// predictResponse wraps the envelope with the rendered text report.
type predictResponse struct {
	Prediction *models.Prediction `json:"prediction"`
	Report     string             `json:"report"`
}

// Predict runs the pipeline for one event reference.
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ref, err := gateway.ParseReference(req.Reference)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unparseable event reference")
		return
	}

	pred, err := h.forecaster.Predict(r.Context(), ref, req.RequesterID)
	if err != nil {
		switch {
		case errors.Is(err, predictor.ErrLowProbability):
			var lpe *predictor.LowProbabilityError
			if errors.As(err, &lpe) {
				respondJSON(w, http.StatusOK, map[string]interface{}{
					"low_probability": lpe.Info,
					"message":         lpe.Error(),
				})
				return
			}
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, gateway.ErrMarketNotFound), errors.Is(err, gateway.ErrAllSourcesFailed):
			respondError(w, http.StatusNotFound, "market could not be resolved")
		default:
			log.Error().Err(err).Str("reference", req.Reference).Msg("Prediction failed")
			respondError(w, http.StatusInternalServerError, "prediction failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, predictResponse{
		Prediction: pred,
		Report:     report.Format(pred),
	})
}

// GetPredictions returns the stored prediction history.
func (h *Handlers) GetPredictions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotImplemented, "prediction history not configured")
		return
	}

	limit := getLimit(r, 20)
	slug := r.URL.Query().Get("slug")

	var (
		preds []models.Prediction
		err   error
	)
	if slug != "" {
		preds, err = h.history.PredictionsForSlug(r.Context(), slug, limit)
	} else {
		preds, err = h.history.RecentPredictions(r.Context(), limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch predictions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": preds,
		"count":       len(preds),
	})
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
