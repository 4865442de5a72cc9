package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"churn-detection/internal/artifact"
	"churn-detection/internal/common"
	"churn-detection/internal/customer"
	"churn-detection/internal/inference"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

type healthResponse struct {
	Status   string    `json:"status"`
	AppName  string    `json:"app_name"`
	Version  string    `json:"version"`
	Models   []string  `json:"models"`
	Aliases  []string  `json:"aliases,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

type modelInfoResponse struct {
	AppName string `json:"app_name"`
	Version string `json:"version"`
	artifact.Info
}

// fieldDetail mirrors one entry of a 422 "detail" array.
type fieldDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to " + s.appName + " API v" + s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := s.svc.Store()
	resp := healthResponse{
		Status:   "healthy",
		AppName:  s.appName,
		Version:  s.version,
		Models:   store.ModelIDs(),
		LoadedAt: store.Info().LoadedAt,
	}
	for _, id := range resp.Models {
		if m, ok := store.Model(id); ok && m.Aliased() {
			resp.Aliases = append(resp.Aliases, id+"->"+m.ServedBy)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, modelInfoResponse{
		AppName: s.appName,
		Version: s.version,
		Info:    s.svc.Store().Info(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "model")
	if _, ok := s.svc.Store().Model(modelID); !ok {
		respondDetail(w, http.StatusNotFound, "Model '"+modelID+"' not found")
		return
	}

	rec, err := customer.Decode(http.MaxBytesReader(w, r.Body, common.MaxRequestBodySize))
	if err != nil {
		if ve, ok := customer.AsValidationError(err); ok {
			if s.metrics != nil {
				s.metrics.ValidationFailures.Inc()
			}
			respondValidation(w, ve)
			return
		}
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.svc.Predict(r.Context(), modelID, rec)
	if err != nil {
		switch {
		case errors.Is(err, inference.ErrUnknownModel):
			respondDetail(w, http.StatusNotFound, "Model '"+modelID+"' not found")
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			respondDetail(w, http.StatusGatewayTimeout, "Request timed out")
		default:
			hlog.FromRequest(r).Error().Err(err).Str("model", modelID).Msg("prediction failed")
			respondDetail(w, http.StatusInternalServerError, "Prediction failed: "+err.Error())
		}
		return
	}

	w.Header().Set(common.ModelServedHeader, out.ServedBy)
	respondJSON(w, http.StatusOK, out.Result)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func respondValidation(w http.ResponseWriter, ve *customer.ValidationError) {
	details := make([]fieldDetail, 0, len(ve.Fields))
	for _, fe := range ve.Fields {
		loc := []string{"body"}
		if fe.Field != "" {
			loc = append(loc, fe.Field)
		}
		details = append(details, fieldDetail{Loc: loc, Msg: fe.Message, Type: fe.Type})
	}
	respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": details})
}
