package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/orcakit/core/internal/mission"
	"github.com/orcakit/core/internal/notifications"
	"github.com/orcakit/core/internal/registry"
)

// Server bundles the HTTP router and WebSocket hub serving the
// Submission API.
type Server struct {
	Router *mux.Router
	Hub    *Hub
}

// NewServer wires the agent and mission handlers, the WebSocket feed,
// and the banner-state endpoint into a single router.
func NewServer(reg *registry.Registry, queue *mission.Queue, notifier *notifications.Manager) *Server {
	router := mux.NewRouter()
	router.Use(SecurityHeadersMiddleware)

	agentHandler := NewAgentHandler(reg)
	agentHandler.RegisterRoutes(router)

	missionHandler := NewMissionHandler(queue)
	missionHandler.RegisterRoutes(router)

	hub := NewHub()
	router.HandleFunc("/ws", hub.HandleWebSocket)

	router.HandleFunc("/notifications/banner", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, notifier.BannerState())
	}).Methods("GET")

	return &Server{Router: router, Hub: hub}
}

// ServeHTTP makes Server usable directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
