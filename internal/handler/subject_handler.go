package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
	"WardMonitorAPI/internal/service"

	"github.com/gorilla/mux"
)

type SubjectHandler struct {
	subjectService *service.SubjectService
	log            *logger.Logger
}

func NewSubjectHandler(subjectService *service.SubjectService, log *logger.Logger) *SubjectHandler {
	return &SubjectHandler{
		subjectService: subjectService,
		log:            log,
	}
}

func (h *SubjectHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/subjects", h.Register).Methods("POST")
	r.HandleFunc("/subjects", h.List).Methods("GET")
	r.HandleFunc("/subjects/{subject_id}", h.Get).Methods("GET")
	r.HandleFunc("/subjects/{subject_id}", h.Update).Methods("PUT")
	r.HandleFunc("/subjects/{subject_id}", h.Discharge).Methods("DELETE")
}

func (h *SubjectHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	subject, err := h.subjectService.Register(r.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		if strings.Contains(err.Error(), "required") {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("Failed to register subject: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, subject)
}

func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.subjectService.List(r.Context())
	if err != nil {
		h.log.Error("Failed to list subjects: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if subjects == nil {
		subjects = []models.Subject{}
	}

	respondJSON(w, http.StatusOK, subjects)
}

func (h *SubjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := subjectIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	subject, err := h.subjectService.Get(r.Context(), subjectID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("Failed to get subject %d: %v", subjectID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, subject)
}

func (h *SubjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := subjectIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	var req models.UpdateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	subject, err := h.subjectService.Update(r.Context(), subjectID, &req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("Failed to update subject %d: %v", subjectID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, subject)
}

func (h *SubjectHandler) Discharge(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := subjectIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	if err := h.subjectService.Discharge(r.Context(), subjectID); err != nil {
		h.log.Error("Failed to discharge subject %d: %v", subjectID, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
