package store

import (
	"errors"
	"testing"
	"time"

	"github.com/orcakit/core/internal/mission"
	"github.com/orcakit/core/internal/registry"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestMission(id string) *mission.Mission {
	return &mission.Mission{
		ID:         id,
		Prompt:     "do the thing",
		Priority:   mission.PriorityNormal,
		Type:       mission.TypeGeneral,
		Status:     mission.StatusQueued,
		TimeoutMs:  5000,
		MaxRetries: 2,
		CreatedAt:  time.Now(),
	}
}

func TestSaveAndLoadPendingMissions(t *testing.T) {
	db := openTestDB(t)
	m := newTestMission("m-1")
	if err := db.SaveMission(m); err != nil {
		t.Fatalf("SaveMission: %v", err)
	}

	pending, err := db.LoadPendingMissions()
	if err != nil {
		t.Fatalf("LoadPendingMissions: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "m-1" {
		t.Fatalf("expected 1 pending mission m-1, got %+v", pending)
	}
	if pending[0].Status != mission.StatusQueued {
		t.Fatalf("expected status queued, got %s", pending[0].Status)
	}
}

func TestSaveMissionRoundTripsDependsOnAndResult(t *testing.T) {
	db := openTestDB(t)
	m := newTestMission("m-2")
	m.DependsOn = []string{"m-0"}
	m.Status = mission.StatusCompleted
	m.Result = &mission.Result{Output: "done", DurationMs: 42}

	if err := db.SaveMission(m); err != nil {
		t.Fatalf("SaveMission: %v", err)
	}

	rows, err := db.LoadPendingMissions()
	if err != nil {
		t.Fatalf("LoadPendingMissions: %v", err)
	}
	for _, r := range rows {
		if r.ID == "m-2" {
			t.Fatalf("completed mission should not be in pending set: %+v", r)
		}
	}
}

func TestAtomicClaimOnlySucceedsOnce(t *testing.T) {
	db := openTestDB(t)
	m := newTestMission("m-3")
	if err := db.SaveMission(m); err != nil {
		t.Fatalf("SaveMission: %v", err)
	}

	ok1, err := db.AtomicClaim("m-3", "7", "exec-1")
	if err != nil {
		t.Fatalf("AtomicClaim first: %v", err)
	}
	if !ok1 {
		t.Fatalf("expected first claim to succeed")
	}

	ok2, err := db.AtomicClaim("m-3", "8", "exec-2")
	if err != nil {
		t.Fatalf("AtomicClaim second: %v", err)
	}
	if ok2 {
		t.Fatalf("expected second claim on an already-running mission to fail")
	}
}

func TestUpdateMissionStatusNotFound(t *testing.T) {
	db := openTestDB(t)
	err := db.UpdateMissionStatus("does-not-exist", mission.StatusFailed, 0, "", "")
	if err == nil {
		t.Fatalf("expected not-found error")
	}
	if !isNotFound(err) {
		t.Fatalf("expected a notfound-kind error, got %v", err)
	}
}

func TestSaveAndGetAgent(t *testing.T) {
	db := openTestDB(t)
	a := &registry.Agent{
		ID:        1,
		Name:      "agent-1",
		Status:    registry.StatusIdle,
		Role:      registry.RoleCoder,
		Model:     registry.TierSonnet,
		PID:       1234,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.SaveAgent(a); err != nil {
		t.Fatalf("SaveAgent: %v", err)
	}

	got, err := db.GetAgent(1)
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.Name != "agent-1" || got.PID != 1234 {
		t.Fatalf("unexpected agent round-trip: %+v", got)
	}
}

func TestUpdateBusinessRequirementStatus(t *testing.T) {
	db := openTestDB(t)
	r := &mission.Requirement{
		ID:        "req-1",
		Title:     "ship feature",
		Status:    mission.RequirementOpen,
		Priority:  mission.PriorityHigh,
		Domain:    mission.DomainProject,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.SaveRequirement(r); err != nil {
		t.Fatalf("SaveRequirement: %v", err)
	}

	if err := db.UpdateBusinessRequirementStatus("req-1", mission.RequirementDone); err != nil {
		t.Fatalf("UpdateBusinessRequirementStatus: %v", err)
	}

	got, err := db.GetRequirement("req-1")
	if err != nil {
		t.Fatalf("GetRequirement: %v", err)
	}
	if got.Status != mission.RequirementDone {
		t.Fatalf("expected status done, got %s", got.Status)
	}
}

func TestValidateLearningIncrementsCount(t *testing.T) {
	db := openTestDB(t)
	l := &Learning{
		ID:         "learn-1",
		Category:   "pattern",
		Title:      "retry on timeout",
		Confidence: "medium",
		CreatedAt:  time.Now(),
	}
	if err := db.CreateLearning(l); err != nil {
		t.Fatalf("CreateLearning: %v", err)
	}
	if err := db.ValidateLearning("learn-1"); err != nil {
		t.Fatalf("ValidateLearning: %v", err)
	}

	got, err := db.GetLearningByID("learn-1")
	if err != nil {
		t.Fatalf("GetLearningByID: %v", err)
	}
	if got.ValidationCount != 1 {
		t.Fatalf("expected validation count 1, got %d", got.ValidationCount)
	}
}

func TestSearchFeedbackRoundTrip(t *testing.T) {
	db := openTestDB(t)
	f := &SearchFeedback{
		ID:               "fb-1",
		Query:            "retry backoff",
		SearchType:       "semantic",
		ResultsShown:     `["k-1","k-2"]`,
		PositionShown:    0,
		PositionExpected: -1,
		LatencyMs:        12,
		Feedback:         "helpful",
		CreatedAt:        time.Now(),
	}
	if err := db.SaveSearchFeedback(f); err != nil {
		t.Fatalf("SaveSearchFeedback: %v", err)
	}

	rows, err := db.ListSearchFeedback("semantic", 10)
	if err != nil {
		t.Fatalf("ListSearchFeedback: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "fb-1" {
		t.Fatalf("expected 1 feedback row fb-1, got %+v", rows)
	}
}

func TestMigrationVersionGating(t *testing.T) {
	db := openTestDB(t)
	var version int
	if err := db.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected schema at version 3, got %d", version)
	}
}

func isNotFound(err error) bool {
	var se *StorageError
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == KindNotFound
}
