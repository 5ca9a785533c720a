package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nahuel893/bank-reconciliation-arg/internal/usecase"
)

type Handlers struct {
	getCorrelationUC *usecase.GetCorrelation
	listUnresolvedUC *usecase.ListUnresolved
	getStatsUC       *usecase.GetStats
}

func NewHandlers(getCorrelationUC *usecase.GetCorrelation, listUnresolvedUC *usecase.ListUnresolved, getStatsUC *usecase.GetStats) *Handlers {
	return &Handlers{
		getCorrelationUC: getCorrelationUC,
		listUnresolvedUC: listUnresolvedUC,
		getStatsUC:       getStatsUC,
	}
}

func (h *Handlers) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")
	if mediaID == "" {
		http.Error(w, "missing media id", http.StatusBadRequest)
		return
	}

	dto, err := h.getCorrelationUC.Execute(r.Context(), mediaID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, dto)
}

func (h *Handlers) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	dtos, err := h.listUnresolvedUC.Execute(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"count":   len(dtos),
		"results": dtos,
	})
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.getStatsUC.Execute(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
