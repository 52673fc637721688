package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/orcakit/core/internal/mission"
)

// MissionHandler exposes the mission.{distribute,complete,fail,status}
// operations over HTTP.
type MissionHandler struct {
	queue *mission.Queue
}

// NewMissionHandler builds a handler over a live mission queue.
func NewMissionHandler(queue *mission.Queue) *MissionHandler {
	return &MissionHandler{queue: queue}
}

// RegisterRoutes attaches every mission route to router under /mission.
func (h *MissionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/mission/distribute", h.HandleDistribute).Methods("POST")
	router.HandleFunc("/mission/{id}/complete", h.HandleComplete).Methods("POST")
	router.HandleFunc("/mission/{id}/fail", h.HandleFail).Methods("POST")
	router.HandleFunc("/mission/{id}/status", h.HandleStatus).Methods("GET")
}

type distributeRequest struct {
	Prompt        string   `json:"prompt"`
	Context       string   `json:"context"`
	Priority      string   `json:"priority"`
	Type          string   `json:"type"`
	TimeoutMs     int64    `json:"timeoutMs"`
	MaxRetries    int      `json:"maxRetries"`
	RetryDelayMs  int64    `json:"retryDelayMs"`
	DependsOn     []string `json:"dependsOn"`
	ParentID      string   `json:"parentMissionId"`
	RequirementID string   `json:"businessRequirementId"`
}

const defaultTimeoutMs = 5 * 60 * 1000

// HandleDistribute enqueues a new mission, validating and defaulting
// fields the way mission.Mission.Validate expects them shaped.
func (h *MissionHandler) HandleDistribute(w http.ResponseWriter, r *http.Request) {
	limitRequestSize(r)

	var req distributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	priority, err := mission.ParsePriority(req.Priority)
	if err != nil {
		if req.Priority == "" {
			priority = mission.PriorityNormal
		} else {
			respondError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
	}
	missionType, err := mission.ParseType(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	timeoutMs := req.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultTimeoutMs
	}

	m := &mission.Mission{
		ID:            uuid.New().String(),
		Prompt:        req.Prompt,
		Context:       req.Context,
		Priority:      priority,
		Type:          missionType,
		TimeoutMs:     timeoutMs,
		MaxRetries:    req.MaxRetries,
		RetryDelayMs:  req.RetryDelayMs,
		DependsOn:     req.DependsOn,
		ParentID:      req.ParentID,
		RequirementID: req.RequirementID,
		CreatedAt:     time.Now(),
	}

	if err := h.queue.Enqueue(m); err != nil {
		respondMissionError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

// HandleComplete records a mission's successful result.
func (h *MissionHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	limitRequestSize(r)
	id := mux.Vars(r)["id"]

	var result mission.Result
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	if err := h.queue.Complete(id, &result); err != nil {
		respondMissionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.queue.GetByID(id))
}

// HandleFail records a mission failure, retrying it under the backoff
// policy when the failure kind is recoverable and budget remains.
func (h *MissionHandler) HandleFail(w http.ResponseWriter, r *http.Request) {
	limitRequestSize(r)
	id := mux.Vars(r)["id"]

	var req struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	kind := mission.FailureKind(req.Kind)
	missionErr := &mission.MissionError{
		Kind:        kind,
		Message:     req.Message,
		Recoverable: kind.Recoverable(),
		OccurredAt:  time.Now(),
	}

	retried, err := h.queue.Fail(id, missionErr)
	if err != nil {
		respondMissionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"retried": retried,
		"mission": h.queue.GetByID(id),
	})
}

// HandleStatus returns the current snapshot of a single mission.
func (h *MissionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m := h.queue.GetByID(id)
	if m == nil {
		respondError(w, http.StatusNotFound, "not_found", "mission not found")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func respondMissionError(w http.ResponseWriter, err error) {
	var full *mission.QueueFullError
	switch {
	case errors.As(err, &full):
		respondError(w, http.StatusServiceUnavailable, "queue_full", err.Error())
	case errors.Is(err, mission.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, mission.ErrDependencyCycle):
		respondError(w, http.StatusBadRequest, "dependency_cycle", err.Error())
	case errors.Is(err, mission.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, mission.ErrAlreadyClaimed):
		respondError(w, http.StatusConflict, "already_claimed", err.Error())
	case errors.Is(err, mission.ErrTerminalState):
		respondError(w, http.StatusConflict, "terminal_state", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
