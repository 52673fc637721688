package mission

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakePersister struct {
	saved   map[string]*Mission
	updated int
}

func newFakePersister() *fakePersister {
	return &fakePersister{saved: make(map[string]*Mission)}
}

func (f *fakePersister) SaveMission(m *Mission) error {
	f.saved[m.ID] = m.Clone()
	return nil
}

func (f *fakePersister) UpdateMissionStatus(id string, status Status, retryCount int, assignedTo string, executionID string) error {
	f.updated++
	if m, ok := f.saved[id]; ok {
		m.Status = status
		m.RetryCount = retryCount
		m.AssignedTo = assignedTo
		m.ExecutionID = executionID
	}
	return nil
}

func TestEnqueueRejectsPastMaxQueueSize(t *testing.T) {
	q := NewQueue()
	for i := 0; i < MaxQueueSize; i++ {
		if err := q.Enqueue(newTestMission(idFor(i), PriorityNormal)); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}

	err := q.Enqueue(newTestMission("overflow", PriorityNormal))
	var full *QueueFullError
	if !errors.As(err, &full) {
		t.Fatalf("expected QueueFullError, got %v", err)
	}
	if full.Size != MaxQueueSize {
		t.Fatalf("expected reported size %d, got %d", MaxQueueSize, full.Size)
	}
}

func idFor(i int) string {
	return fmt.Sprintf("m-%d", i)
}

func TestEnqueueRejectsDependencyCycle(t *testing.T) {
	q := NewQueue()

	a := newTestMission("m-a", PriorityNormal)
	a.DependsOn = []string{"m-b"}
	if err := q.Enqueue(a); err != nil {
		t.Fatalf("Enqueue a: %v", err)
	}

	b := newTestMission("m-b", PriorityNormal)
	b.DependsOn = []string{"m-a"}
	err := q.Enqueue(b)
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("expected ErrDependencyCycle, got %v", err)
	}
}

func TestAddDependencyRejectsCycleAndRollsBack(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-a", PriorityNormal))
	_ = q.Enqueue(newTestMission("m-b", PriorityNormal))

	if err := q.AddDependency("m-a", "m-b"); err != nil {
		t.Fatalf("AddDependency a->b: %v", err)
	}

	err := q.AddDependency("m-b", "m-a")
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("expected ErrDependencyCycle, got %v", err)
	}

	b := q.GetByID("m-b")
	for _, d := range b.DependsOn {
		if d == "m-a" {
			t.Fatalf("expected rejected dependency to be rolled back, got %v", b.DependsOn)
		}
	}
}

func TestRemoveDependencyUnblocksMission(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-dep", PriorityNormal))

	dependent := newTestMission("m-dependent", PriorityNormal)
	dependent.DependsOn = []string{"m-dep"}
	_ = q.Enqueue(dependent)

	if got := q.GetByID("m-dependent").Status; got != StatusBlocked {
		t.Fatalf("expected blocked, got %s", got)
	}

	if err := q.RemoveDependency("m-dependent", "m-dep"); err != nil {
		t.Fatalf("RemoveDependency: %v", err)
	}

	if got := q.GetByID("m-dependent").Status; got != StatusQueued {
		t.Fatalf("expected queued after removing last dependency, got %s", got)
	}
}

func TestPeekDoesNotClaim(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-1", PriorityNormal))

	peeked := q.Peek()
	if peeked == nil || peeked.ID != "m-1" {
		t.Fatalf("expected to peek m-1, got %+v", peeked)
	}
	if got := q.GetByID("m-1").Status; got != StatusQueued {
		t.Fatalf("expected peek to leave mission queued, got %s", got)
	}

	claimed := q.Claim("exec-1")
	if claimed == nil || claimed.ID != "m-1" {
		t.Fatalf("expected m-1 still claimable after peek, got %+v", claimed)
	}
}

func TestIsReady(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-dep", PriorityNormal))
	dependent := newTestMission("m-dependent", PriorityNormal)
	dependent.DependsOn = []string{"m-dep"}
	_ = q.Enqueue(dependent)

	ready, err := q.IsReady("m-dep")
	if err != nil || !ready {
		t.Fatalf("expected m-dep ready, got %v %v", ready, err)
	}
	ready, err = q.IsReady("m-dependent")
	if err != nil || ready {
		t.Fatalf("expected m-dependent not ready, got %v %v", ready, err)
	}

	if _, err := q.IsReady("does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetBlockedAndGetByPriority(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-dep", PriorityNormal))
	dependent := newTestMission("m-dependent", PriorityCritical)
	dependent.DependsOn = []string{"m-dep"}
	_ = q.Enqueue(dependent)
	_ = q.Enqueue(newTestMission("m-low", PriorityLow))

	blocked := q.GetBlocked()
	if len(blocked) != 1 || blocked[0].ID != "m-dependent" {
		t.Fatalf("expected only m-dependent blocked, got %+v", blocked)
	}

	lows := q.GetByPriority(PriorityLow)
	if len(lows) != 1 || lows[0].ID != "m-low" {
		t.Fatalf("expected only m-low in priority band, got %+v", lows)
	}
}

func TestUpdateStatusValidatesTransition(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-1", PriorityNormal))

	if err := q.UpdateStatus("m-1", StatusCompleted); err == nil {
		t.Fatal("expected invalid transition from queued to completed to fail")
	}

	_ = q.Claim("exec-1")
	if err := q.UpdateStatus("m-1", StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus running->completed: %v", err)
	}
	if got := q.GetByID("m-1").Status; got != StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestSetRetryDelayAndGetRetryCount(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-1", PriorityNormal))

	if err := q.SetRetryDelay("m-1", 5000); err != nil {
		t.Fatalf("SetRetryDelay: %v", err)
	}
	if got := q.GetByID("m-1").RetryDelayMs; got != 5000 {
		t.Fatalf("expected retry delay 5000, got %d", got)
	}

	count, err := q.GetRetryCount("m-1")
	if err != nil {
		t.Fatalf("GetRetryCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected retry count 0, got %d", count)
	}
}

func TestRequeueReleasesRunningReservation(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-1", PriorityNormal))
	claimed := q.Claim("exec-1")
	if claimed == nil {
		t.Fatal("expected claim to succeed")
	}

	if err := q.Requeue("m-1"); err != nil {
		t.Fatalf("Requeue: %v", err)
	}

	restored := q.GetByID("m-1")
	if restored.Status != StatusQueued {
		t.Fatalf("expected queued after requeue, got %s", restored.Status)
	}
	if restored.ExecutionID != "" || restored.AssignedTo != "" {
		t.Fatalf("expected execution/assignment cleared, got %+v", restored)
	}

	again := q.Claim("exec-2")
	if again == nil || again.ID != "m-1" {
		t.Fatalf("expected m-1 claimable again, got %+v", again)
	}
}

func TestMarkAssignedRecordsAgent(t *testing.T) {
	q := NewQueue()
	_ = q.Enqueue(newTestMission("m-1", PriorityNormal))
	_ = q.Claim("exec-1")

	if err := q.MarkAssigned("m-1", "7"); err != nil {
		t.Fatalf("MarkAssigned: %v", err)
	}
	if got := q.GetByID("m-1").AssignedTo; got != "7" {
		t.Fatalf("expected assigned agent 7, got %q", got)
	}
}

func TestCleanupRemovesOnlyOldTerminalMissions(t *testing.T) {
	q := NewQueue()
	old := newTestMission("m-old", PriorityNormal)
	_ = q.Enqueue(old)
	claimed := q.Claim("exec-1")
	_ = q.Complete(claimed.ID, &Result{Output: "ok"})

	done := q.GetByID("m-old")
	past := done.CompletedAt.Add(-2 * time.Hour)
	q.mu.Lock()
	q.index["m-old"].CompletedAt = &past
	q.mu.Unlock()

	_ = q.Enqueue(newTestMission("m-fresh", PriorityNormal))

	removed := q.Cleanup(time.Hour, time.Now())
	if len(removed) != 1 || removed[0] != "m-old" {
		t.Fatalf("expected only m-old cleaned up, got %v", removed)
	}
	if q.GetByID("m-old") != nil {
		t.Fatal("expected m-old to be gone")
	}
	if q.GetByID("m-fresh") == nil {
		t.Fatal("expected m-fresh to survive cleanup")
	}
}

func TestEnforceTimeoutsExtendsOnRecentCheckpoint(t *testing.T) {
	q := NewQueue()
	m := newTestMission("m-long", PriorityNormal)
	m.TimeoutMs = 60_000
	_ = q.Enqueue(m)
	claimed := q.Claim("exec-1")

	start := claimed.StartedAt
	now := start.Add(59500 * time.Millisecond)

	checkpoint := now.Add(-10 * time.Second)
	if err := q.RecordCheckpoint("m-long", checkpoint); err != nil {
		t.Fatalf("RecordCheckpoint: %v", err)
	}

	expired := q.EnforceTimeouts(now)
	if len(expired) != 0 {
		t.Fatalf("expected no expirations with a recent checkpoint, got %v", expired)
	}

	extended := q.GetByID("m-long")
	if extended.Status != StatusRunning {
		t.Fatalf("expected mission to remain running after extension, got %s", extended.Status)
	}
	if extended.TimeoutMs != 60_000+60_000 {
		t.Fatalf("expected timeout extended by 60s, got %d", extended.TimeoutMs)
	}
}

func TestEnforceTimeoutsFailsWithoutRecentCheckpoint(t *testing.T) {
	q := NewQueue()
	m := newTestMission("m-stale", PriorityNormal)
	m.TimeoutMs = 1
	_ = q.Enqueue(m)
	_ = q.Claim("exec-1")

	time.Sleep(5 * time.Millisecond)
	expired := q.EnforceTimeouts(time.Now())
	if len(expired) != 1 || expired[0] != "m-stale" {
		t.Fatalf("expected m-stale to fail without a checkpoint, got %v", expired)
	}
}

func TestPersisterReceivesEnqueueClaimAndComplete(t *testing.T) {
	q := NewQueue()
	fp := newFakePersister()
	q.SetPersister(fp)

	m := newTestMission("m-1", PriorityNormal)
	if err := q.Enqueue(m); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, ok := fp.saved["m-1"]; !ok {
		t.Fatal("expected Enqueue to persist the mission")
	}

	claimed := q.Claim("exec-1")
	if claimed == nil {
		t.Fatal("expected claim to succeed")
	}
	if fp.saved["m-1"].Status != StatusRunning {
		t.Fatalf("expected persisted status running after claim, got %s", fp.saved["m-1"].Status)
	}

	if err := q.Complete("m-1", &Result{Output: "done"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if fp.saved["m-1"].Status != StatusCompleted {
		t.Fatalf("expected persisted status completed, got %s", fp.saved["m-1"].Status)
	}
}
