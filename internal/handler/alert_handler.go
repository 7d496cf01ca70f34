package handler

import (
	"net/http"
	"strconv"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type AlertHandler struct {
	alertService service.IAlertService
	log          *logger.Logger
}

func NewAlertHandler(alertService service.IAlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		log:          log,
	}
}

func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/alerts/active", h.GetActive).Methods("GET")
	r.HandleFunc("/alerts/active/{subject_id}", h.GetActiveBySubject).Methods("GET")
	r.HandleFunc("/alerts/active/{subject_id}", h.ClearActive).Methods("DELETE")
	r.HandleFunc("/alerts/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/alerts/history/{subject_id}", h.GetSubjectHistory).Methods("GET")
	r.HandleFunc("/alerts/acknowledge/{id}", h.Acknowledge).Methods("PUT")
}

func (h *AlertHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.alertService.GetActive(r.Context()))
}

func (h *AlertHandler) GetActiveBySubject(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := subjectIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	alerts := h.alertService.GetActiveBySubject(r.Context(), subjectID)
	if alerts == nil {
		alerts = []models.Alert{}
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ClearActive(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := subjectIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	if err := h.alertService.ClearActive(r.Context(), subjectID); err != nil {
		h.log.Error("Failed to clear alerts for subject %d: %v", subjectID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "alerts cleared"})
}

func (h *AlertHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	alerts, err := h.alertService.GetHistory(r.Context(), limit, offset)
	if err != nil {
		h.log.Error("Failed to get alert history: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) GetSubjectHistory(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := subjectIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	alerts, err := h.alertService.GetSubjectHistory(r.Context(), subjectID, queryInt(r, "limit", 50))
	if err != nil {
		h.log.Error("Failed to get alert history for subject %d: %v", subjectID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}

	if err := h.alertService.Acknowledge(r.Context(), id); err != nil {
		h.log.Error("Failed to acknowledge alert %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "alert acknowledged"})
}
