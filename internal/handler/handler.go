// Package handler provides HTTP request handlers for the catalog API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/model"
)

// Version is the application version.
const Version = "1.0.0"

// LegacyHealthPath serves the health check under the unversioned item path
// used by earlier clients.
const LegacyHealthPath = "/api/items/health"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
}

// ItemCounter reports the number of stored items.
type ItemCounter interface {
	Count() int
}

// ProbeHandler serves liveness and readiness probes.
type ProbeHandler struct {
	items  ItemCounter
	logger *zap.Logger
}

// NewProbeHandler creates a new ProbeHandler instance.
func NewProbeHandler(items ItemCounter, logger *zap.Logger) *ProbeHandler {
	return &ProbeHandler{
		items:  items,
		logger: logger,
	}
}

// RegisterRoutes registers the probe routes with the router.
func (h *ProbeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc(LegacyHealthPath, h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
}

// HealthCheck handles GET /health requests.
func (h *ProbeHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse("Item API is running", response))
}

// ReadyCheck handles GET /ready requests.
func (h *ProbeHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	response := ReadyResponse{
		Status: "ready",
		Items:  h.items.Count(),
	}
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse("Item API is ready", response))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
