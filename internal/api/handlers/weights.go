package handlers

import (
	"net/http"

	"github.com/nyayatech/nyaya/internal/api"
)

type WeightSource interface {
	Snapshot() map[string]float64
}

// WeightsHandler exposes the current agent trust weights for inspection.
type WeightsHandler struct {
	state WeightSource
}

func NewWeightsHandler(state WeightSource) *WeightsHandler {
	return &WeightsHandler{state: state}
}

type WeightsResponse struct {
	Weights map[string]float64 `json:"weights"`
}

func (h *WeightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, WeightsResponse{Weights: h.state.Snapshot()})
}
