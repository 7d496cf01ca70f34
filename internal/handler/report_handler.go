package handler

import (
	"fmt"
	"net/http"
	"strings"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/report"

	"github.com/gorilla/mux"
)

type ReportHandler struct {
	generator *report.Generator
	log       *logger.Logger
}

func NewReportHandler(generator *report.Generator, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		generator: generator,
		log:       log,
	}
}

func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/reports/{subject_id}/vitals.pdf", h.VitalsReport).Methods("GET")
}

func (h *ReportHandler) VitalsReport(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := subjectIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid subject ID")
		return
	}

	pdf, err := h.generator.VitalsReport(r.Context(), subjectID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("Failed to generate report for subject %d: %v", subjectID, err)
		respondError(w, http.StatusInternalServerError, "Report generation failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="subject-%d-vitals.pdf"`, subjectID))
	w.Write(pdf)
}
