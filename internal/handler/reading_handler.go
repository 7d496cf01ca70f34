package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type ReadingHandler struct {
	readingService *service.ReadingService
	log            *logger.Logger
}

func NewReadingHandler(readingService *service.ReadingService, log *logger.Logger) *ReadingHandler {
	return &ReadingHandler{
		readingService: readingService,
		log:            log,
	}
}

func (h *ReadingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/readings", h.Ingest).Methods("POST")
	r.HandleFunc("/readings", h.Query).Methods("GET")
	r.HandleFunc("/readings/{subject_id}/latest", h.GetLatest).Methods("GET")
}

// Ingest accepts a reading over HTTP. Same pipeline as the MQTT path,
// used by gateways on networks where the broker is unreachable and by
// manual spot checks.
func (h *ReadingHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var reading models.VitalsReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if reading.SubjectID <= 0 {
		respondError(w, http.StatusBadRequest, "subject_id is required")
		return
	}

	if reading.Source == "" {
		reading.Source = "http"
	}

	if err := h.readingService.Ingest(r.Context(), &reading); err != nil {
		h.log.Error("Failed to ingest reading for subject %d: %v", reading.SubjectID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, reading)
}

func (h *ReadingHandler) Query(w http.ResponseWriter, r *http.Request) {
	req := &models.ReadingQueryRequest{
		SubjectID: queryInt(r, "subject_id", 0),
		Limit:     queryInt(r, "limit", 100),
		Offset:    queryInt(r, "offset", 0),
	}

	if v := r.URL.Query().Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start_time must be RFC3339")
			return
		}
		req.StartTime = &t
	}
	if v := r.URL.Query().Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "end_time must be RFC3339")
			return
		}
		req.EndTime = &t
	}

	if req.Limit < 1 || req.Limit > 1000 {
		req.Limit = 100
	}

	resp, err := h.readingService.GetReadings(r.Context(), req)
	if err != nil {
		h.log.Error("Failed to query readings: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *ReadingHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := subjectIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	reading, err := h.readingService.GetLatest(r.Context(), subjectID)
	if err != nil {
		h.log.Error("Failed to get latest reading for subject %d: %v", subjectID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reading == nil {
		respondError(w, http.StatusNotFound, "No readings for subject")
		return
	}

	respondJSON(w, http.StatusOK, reading)
}
