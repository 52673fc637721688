package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"

	"github.com/orcakit/core/internal/registry"
)

type fakeSubstrate struct {
	nextPID int
}

func (f *fakeSubstrate) Spawn(cfg registry.Config) (int, registry.Handle, error) {
	f.nextPID++
	return f.nextPID, registry.Handle{}, nil
}

func (f *fakeSubstrate) IsAlive(pid int) bool       { return true }
func (f *fakeSubstrate) Kill(h registry.Handle) error { return nil }

func newTestRegistry() *registry.Registry {
	return registry.New(&fakeSubstrate{}, nil)
}

func withVars(r *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(r, vars)
}

func TestAgentHandlerSpawnCreatesAgent(t *testing.T) {
	handler := NewAgentHandler(newTestRegistry())

	body := bytes.NewBufferString(`{"name":"a1","role":"coder","model":"sonnet"}`)
	req := httptest.NewRequest("POST", "/agent/spawn", body)
	w := httptest.NewRecorder()

	handler.HandleSpawn(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var agent registry.Agent
	if err := json.NewDecoder(w.Body).Decode(&agent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agent.Name != "a1" {
		t.Errorf("expected name a1, got %s", agent.Name)
	}
}

func TestAgentHandlerSpawnRejectsInvalidBody(t *testing.T) {
	handler := NewAgentHandler(newTestRegistry())

	req := httptest.NewRequest("POST", "/agent/spawn", bytes.NewBufferString(`not json`))
	w := httptest.NewRecorder()

	handler.HandleSpawn(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAgentHandlerStatusReturnsNotFoundForUnknownID(t *testing.T) {
	handler := NewAgentHandler(newTestRegistry())

	req := httptest.NewRequest("GET", "/agent/999/status", nil)
	req = withVars(req, map[string]string{"id": "999"})
	w := httptest.NewRecorder()

	handler.HandleStatus(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAgentHandlerKillReturnsOK(t *testing.T) {
	reg := newTestRegistry()
	handler := NewAgentHandler(reg)

	agent, err := reg.SpawnAgent(registry.Config{Name: "a1", Role: registry.RoleCoder, Model: registry.TierSonnet})
	if err != nil {
		t.Fatalf("SpawnAgent: %v", err)
	}

	req := httptest.NewRequest("POST", "/agent/1/kill", nil)
	req = withVars(req, map[string]string{"id": strconv.Itoa(agent.ID)})
	w := httptest.NewRecorder()

	handler.HandleKill(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAgentHandlerHealthAllSkipsNothingOnEmptyRegistry(t *testing.T) {
	handler := NewAgentHandler(newTestRegistry())

	req := httptest.NewRequest("GET", "/agent/health_all", nil)
	w := httptest.NewRecorder()

	handler.HandleHealthAll(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
