package store

import (
	"testing"
	"time"
)

func TestSetLearningConfidenceOverwritesTier(t *testing.T) {
	db := openTestDB(t)
	l := &Learning{ID: "l-1", Category: "pattern", Title: "t", Confidence: "low", CreatedAt: time.Now()}
	if err := db.CreateLearning(l); err != nil {
		t.Fatalf("CreateLearning: %v", err)
	}
	if err := db.SetLearningConfidence("l-1", "high"); err != nil {
		t.Fatalf("SetLearningConfidence: %v", err)
	}
	got, err := db.GetLearningByID("l-1")
	if err != nil {
		t.Fatalf("GetLearningByID: %v", err)
	}
	if got.Confidence != "high" {
		t.Fatalf("expected confidence high, got %s", got.Confidence)
	}
}

func TestGetStaleLearningsOnlyReturnsUnvalidatedOlderRows(t *testing.T) {
	db := openTestDB(t)
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	if err := db.CreateLearning(&Learning{ID: "l-old", Category: "pattern", Title: "old", Confidence: "medium", CreatedAt: old}); err != nil {
		t.Fatalf("CreateLearning l-old: %v", err)
	}
	if err := db.CreateLearning(&Learning{ID: "l-recent", Category: "pattern", Title: "recent", Confidence: "medium", CreatedAt: recent}); err != nil {
		t.Fatalf("CreateLearning l-recent: %v", err)
	}
	if err := db.CreateLearning(&Learning{ID: "l-validated", Category: "pattern", Title: "validated", Confidence: "medium", CreatedAt: old}); err != nil {
		t.Fatalf("CreateLearning l-validated: %v", err)
	}
	if err := db.ValidateLearning("l-validated"); err != nil {
		t.Fatalf("ValidateLearning: %v", err)
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	stale, err := db.GetStaleLearnings(cutoff)
	if err != nil {
		t.Fatalf("GetStaleLearnings: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "l-old" {
		t.Fatalf("expected only l-old to be stale, got %+v", stale)
	}
}
