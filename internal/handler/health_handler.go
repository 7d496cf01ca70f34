package handler

import (
	"context"
	"net/http"
	"time"

	"WardMonitorAPI/internal/cache"
	"WardMonitorAPI/internal/database"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/mqtt"

	"github.com/gorilla/mux"
)

type HealthHandler struct {
	db         *database.Database
	cache      *cache.VitalsCache
	mqttClient *mqtt.Client
	log        *logger.Logger
}

// NewHealthHandler takes a nil mqttClient when the deployment runs
// without a broker; the health report then omits MQTT from readiness.
func NewHealthHandler(db *database.Database, vitalsCache *cache.VitalsCache, mqttClient *mqtt.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:         db,
		cache:      vitalsCache,
		mqttClient: mqttClient,
		log:        log,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	response.Services.Database = h.db.Health(ctx) == nil

	response.Services.Redis = h.cache != nil && h.cache.Health(ctx) == nil

	response.Services.MQTT = h.mqttClient != nil && h.mqttClient.IsConnected()

	if !response.Services.Database {
		response.Status = "degraded"
		h.log.Warn("Health check degraded - DB: %v, Redis: %v, MQTT: %v",
			response.Services.Database, response.Services.Redis, response.Services.MQTT)
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	respondJSON(w, statusCode, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// Readiness gates on Postgres and, when configured, the broker. Redis is
// a cache and never blocks traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.db.Health(ctx)
	mqttOK := h.mqttClient == nil || h.mqttClient.IsConnected()

	if dbErr != nil || !mqttOK {
		h.log.Warn("Readiness check failed - DB error: %v, MQTT connected: %v", dbErr, mqttOK)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
