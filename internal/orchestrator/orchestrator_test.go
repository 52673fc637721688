package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orcakit/core/internal/mission"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = ":memory:"
	cfg.AgentBinary = "/bin/true"
	cfg.Addr = "127.0.0.1:0"
	cfg.Notifications.EnableTerminal = false
	cfg.Notifications.EnableBanner = true
	return cfg
}

func TestNewWiresComponentsOverEmptyStore(t *testing.T) {
	orch, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer orch.db.Close()

	if orch.registry == nil || orch.queue == nil || orch.oracle == nil {
		t.Fatal("expected every component to be constructed")
	}
	if orch.queue.Len() != 0 {
		t.Errorf("expected an empty queue on first boot, got %d", orch.queue.Len())
	}
}

func TestOrchestratorServerRoutesAgentStatus(t *testing.T) {
	orch, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer orch.db.Close()

	ts := httptest.NewServer(orch.server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/agent/999/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown agent, got %d", resp.StatusCode)
	}
}

func TestDispatchOnceDecomposesBundledMission(t *testing.T) {
	orch, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer orch.db.Close()

	m := &mission.Mission{
		ID:         "m-bundle",
		Prompt:     "implement the parser, test it, then document it",
		TimeoutMs:  60000,
		MaxRetries: 1,
		CreatedAt:  time.Now(),
	}
	if err := orch.queue.Enqueue(m); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	orch.dispatchOnce()

	got := orch.queue.GetByID("m-bundle")
	if got == nil || got.Status != mission.StatusCompleted {
		t.Fatalf("expected the bundled mission to be marked completed by decomposition, got %+v", got)
	}

	var subtasks []*mission.Mission
	for _, other := range orch.queue.All() {
		if other.ParentID == "m-bundle" {
			subtasks = append(subtasks, other)
		}
	}
	if len(subtasks) != 3 {
		t.Fatalf("expected 3 subtasks enqueued from the bundled prompt, got %d", len(subtasks))
	}
}

func TestHarvestOnceIndexesInsightFromCompletedMission(t *testing.T) {
	orch, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer orch.db.Close()

	m := &mission.Mission{
		ID:         "m-done",
		Prompt:     "investigate the flaky test",
		TimeoutMs:  60000,
		MaxRetries: 1,
		CreatedAt:  time.Now(),
	}
	if err := orch.queue.Enqueue(m); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if claimed := orch.queue.Claim("exec-done"); claimed == nil {
		t.Fatal("expected to claim the mission")
	}
	if err := orch.queue.Complete("m-done", &mission.Result{
		Output: "discovered that the retry timer races with the test harness shutdown",
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	orch.harvestOnce()

	if !orch.harvested["m-done"] {
		t.Fatal("expected m-done to be marked harvested")
	}

	results, err := orch.knowledge.SearchKnowledge("retry timer races", "", 5)
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected the harvested insight to be indexed and searchable")
	}

	orch.harvestOnce()
	results2, err := orch.knowledge.SearchKnowledge("retry timer races", "", 5)
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(results2) != len(results) {
		t.Fatalf("expected a second harvest pass to be a no-op, got %d vs %d results", len(results2), len(results))
	}
}

func TestOrchestratorShutdownStopsLoopsAndClosesStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.OptimizeInterval = 10 * time.Millisecond
	cfg.TimeoutInterval = 10 * time.Millisecond

	orch, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := orch.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
