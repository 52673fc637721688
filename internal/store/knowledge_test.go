package store

import "testing"

func TestSearchKnowledgeRanksMoreRelevantDocHigher(t *testing.T) {
	db := openTestDB(t)

	if err := db.StoreKnowledge(&Knowledge{
		ID:       "k-1",
		Category: "pattern",
		Title:    "retry backoff",
		Content:  "retry with exponential backoff on transient failures, retry retry retry",
	}); err != nil {
		t.Fatalf("StoreKnowledge k-1: %v", err)
	}
	if err := db.StoreKnowledge(&Knowledge{
		ID:       "k-2",
		Category: "pattern",
		Title:    "logging conventions",
		Content:  "structured logging with levels and correlation ids",
	}); err != nil {
		t.Fatalf("StoreKnowledge k-2: %v", err)
	}

	results, err := db.SearchKnowledge("retry backoff", "", 5)
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(results) == 0 || results[0].ID != "k-1" {
		t.Fatalf("expected k-1 to rank first, got %+v", results)
	}
}

func TestSearchKnowledgeFiltersByCategory(t *testing.T) {
	db := openTestDB(t)
	if err := db.StoreKnowledge(&Knowledge{ID: "k-1", Category: "gotcha", Title: "retry", Content: "retry pitfalls"}); err != nil {
		t.Fatalf("StoreKnowledge: %v", err)
	}
	results, err := db.SearchKnowledge("retry", "best_practice", 5)
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for mismatched category, got %+v", results)
	}
}

func TestIncrementUseCountTracksRetrieval(t *testing.T) {
	db := openTestDB(t)
	if err := db.StoreKnowledge(&Knowledge{ID: "k-1", Category: "pattern", Title: "t", Content: "c"}); err != nil {
		t.Fatalf("StoreKnowledge: %v", err)
	}
	if err := db.IncrementUseCount("k-1"); err != nil {
		t.Fatalf("IncrementUseCount: %v", err)
	}
	got, err := db.GetKnowledge("k-1")
	if err != nil {
		t.Fatalf("GetKnowledge: %v", err)
	}
	if got.UseCount != 1 {
		t.Fatalf("expected use count 1, got %d", got.UseCount)
	}
}

func TestGetKnowledgeStatsAggregatesByCategory(t *testing.T) {
	db := openTestDB(t)
	if err := db.StoreKnowledge(&Knowledge{ID: "k-1", Category: "pattern", Title: "t1", Content: "c1"}); err != nil {
		t.Fatalf("StoreKnowledge k-1: %v", err)
	}
	if err := db.StoreKnowledge(&Knowledge{ID: "k-2", Category: "gotcha", Title: "t2", Content: "c2"}); err != nil {
		t.Fatalf("StoreKnowledge k-2: %v", err)
	}

	stats, err := db.GetKnowledgeStats()
	if err != nil {
		t.Fatalf("GetKnowledgeStats: %v", err)
	}
	if stats.TotalKnowledge != 2 {
		t.Fatalf("expected 2 total knowledge rows, got %d", stats.TotalKnowledge)
	}
	if stats.ByCategory["pattern"] != 1 || stats.ByCategory["gotcha"] != 1 {
		t.Fatalf("expected one row per category, got %+v", stats.ByCategory)
	}
}
