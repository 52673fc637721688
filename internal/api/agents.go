package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/orcakit/core/internal/registry"
)

// AgentHandler exposes the agent.{spawn,spawn_pool,kill,restart,health,
// health_all,status} operations over HTTP.
type AgentHandler struct {
	registry *registry.Registry
}

// NewAgentHandler builds a handler over a live registry.
func NewAgentHandler(reg *registry.Registry) *AgentHandler {
	return &AgentHandler{registry: reg}
}

// RegisterRoutes attaches every agent route to router under /agent.
func (h *AgentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/agent/spawn", h.HandleSpawn).Methods("POST")
	router.HandleFunc("/agent/spawn_pool", h.HandleSpawnPool).Methods("POST")
	router.HandleFunc("/agent/{id}/kill", h.HandleKill).Methods("POST")
	router.HandleFunc("/agent/{id}/restart", h.HandleRestart).Methods("POST")
	router.HandleFunc("/agent/{id}/health", h.HandleHealth).Methods("GET")
	router.HandleFunc("/agent/health_all", h.HandleHealthAll).Methods("GET")
	router.HandleFunc("/agent/{id}/status", h.HandleStatus).Methods("GET")
}

func parseAgentID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

// HandleSpawn spawns a single agent from a config payload.
func (h *AgentHandler) HandleSpawn(w http.ResponseWriter, r *http.Request) {
	limitRequestSize(r)

	var cfg registry.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	agent, err := h.registry.SpawnAgent(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "spawn_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, agent)
}

// HandleSpawnPool spawns n agents from a shared config, returning whatever
// succeeded even if a later spawn in the pool failed.
func (h *AgentHandler) HandleSpawnPool(w http.ResponseWriter, r *http.Request) {
	limitRequestSize(r)

	var req struct {
		N   int             `json:"n"`
		Cfg registry.Config `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}
	if req.N <= 0 {
		respondError(w, http.StatusBadRequest, "validation", "n must be positive")
		return
	}

	agents, err := h.registry.SpawnPool(req.N, req.Cfg)
	if err != nil {
		respondJSON(w, http.StatusMultiStatus, map[string]interface{}{
			"agents": agents,
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"agents": agents})
}

// HandleKill terminates an agent's PTY handle.
func (h *AgentHandler) HandleKill(w http.ResponseWriter, r *http.Request) {
	id, err := parseAgentID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid agent id")
		return
	}
	if err := h.registry.Kill(id); err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "killed"})
}

// HandleRestart kills and re-spawns an agent under the same configuration.
func (h *AgentHandler) HandleRestart(w http.ResponseWriter, r *http.Request) {
	id, err := parseAgentID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid agent id")
		return
	}
	agent, err := h.registry.Restart(id)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

// HandleHealth probes liveness for a single agent.
func (h *AgentHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	id, err := parseAgentID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid agent id")
		return
	}
	status, err := h.registry.HealthCheck(id)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// HandleHealthAll probes liveness for every tracked agent.
func (h *AgentHandler) HandleHealthAll(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string)
	for _, agent := range h.registry.All() {
		status, err := h.registry.HealthCheck(agent.ID)
		if err != nil {
			continue
		}
		results[strconv.Itoa(agent.ID)] = string(status)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"agents": results})
}

// HandleStatus returns the current snapshot of a single agent.
func (h *AgentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseAgentID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid agent id")
		return
	}
	agent, err := h.registry.GetByID(id)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func respondAgentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, registry.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, registry.ErrNoneAvailable):
		respondError(w, http.StatusConflict, "none_available", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
