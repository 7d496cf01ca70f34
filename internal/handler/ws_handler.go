package handler

import (
	"net/http"
	"strconv"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/websocket"

	"github.com/gorilla/mux"
)

type WSHandler struct {
	hub *websocket.Hub
	log *logger.Logger
}

func NewWSHandler(hub *websocket.Hub, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log,
	}
}

func (h *WSHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.Serve).Methods("GET")
}

// Serve upgrades the connection. A subject_id query parameter narrows
// the stream to that subject's topic; without it the client gets the
// ward-wide feed.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	subjectID := 0
	if v := r.URL.Query().Get("subject_id"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid subject_id")
			return
		}
		subjectID = parsed
	}

	websocket.ServeWs(h.hub, w, r, subjectID, h.log)
}
