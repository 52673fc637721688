package learning

import (
	"testing"

	"github.com/orcakit/core/internal/mission"
)

func TestHarvestFromMissionExtractsTaggedInsights(t *testing.T) {
	m := &mission.Mission{
		Type: mission.TypeAnalysis,
		Result: &mission.Result{
			Output: "We discovered that retrying idempotent writes avoids duplicate side effects. " +
				"You must always validate input before writing to the store.",
		},
	}

	insights := HarvestFromMission(m)
	if len(insights) == 0 {
		t.Fatalf("expected at least one harvested insight")
	}
	var sawPattern, sawBestPractice bool
	for _, ins := range insights {
		if ins.Category == "pattern" {
			sawPattern = true
		}
		if ins.Category == "best_practice" {
			sawBestPractice = true
		}
		if len(ins.Description) < 20 || len(ins.Description) > 300 {
			t.Fatalf("insight description out of bounds: %q", ins.Description)
		}
	}
	if !sawPattern || !sawBestPractice {
		t.Fatalf("expected both pattern and best_practice categories, got %+v", insights)
	}
}

func TestHarvestFromMissionDeduplicatesRepeatedInsights(t *testing.T) {
	m := &mission.Mission{
		Result: &mission.Result{
			Output: "You should always check the error kind. You should always check the error kind.",
		},
	}
	insights := HarvestFromMission(m)
	if len(insights) != 1 {
		t.Fatalf("expected deduplication to 1 insight, got %d: %+v", len(insights), insights)
	}
}

func TestHarvestFromMissionNoResultYieldsNothing(t *testing.T) {
	m := &mission.Mission{}
	if insights := HarvestFromMission(m); insights != nil {
		t.Fatalf("expected nil insights for missing result, got %+v", insights)
	}
}

func TestAnalyzeFailureMapsTimeoutKind(t *testing.T) {
	m := &mission.Mission{
		Error: &mission.MissionError{Kind: mission.FailureTimeout, Message: "deadline exceeded"},
	}
	analysis := AnalyzeFailure(m, nil)
	if analysis.Category != FailureCatTimeout {
		t.Fatalf("expected timeout category, got %s", analysis.Category)
	}
	if analysis.Suggestion == "" {
		t.Fatalf("expected a non-empty suggestion")
	}
}

func TestAnalyzeFailureDetectsDependencyFromMessage(t *testing.T) {
	m := &mission.Mission{
		Error: &mission.MissionError{Kind: mission.FailureUnknown, Message: "upstream dependency m-1 failed"},
	}
	analysis := AnalyzeFailure(m, nil)
	if analysis.Category != FailureCatDependency {
		t.Fatalf("expected dependency category, got %s", analysis.Category)
	}
}

func TestAnalyzeFailureUsesSimilarFailuresCallback(t *testing.T) {
	m := &mission.Mission{
		Error: &mission.MissionError{Kind: mission.FailureResource, Message: "out of memory"},
	}
	analysis := AnalyzeFailure(m, func(query string, limit int) []string {
		return []string{"m-old-1"}
	})
	if len(analysis.SimilarFailures) != 1 || analysis.SimilarFailures[0] != "m-old-1" {
		t.Fatalf("expected similar-failures callback result to be threaded through, got %+v", analysis.SimilarFailures)
	}
}
