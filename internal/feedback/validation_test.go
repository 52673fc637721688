package feedback

import "testing"

func TestRunValidationTestsReportsRankAndPassFail(t *testing.T) {
	index := map[string][]string{
		"retry backoff": {"k-9", "k-1", "k-2"},
		"missing topic": {"k-9"},
	}
	cases := []TestCase{
		{Query: "retry backoff", ExpectedID: "k-1"},
		{Query: "missing topic", ExpectedID: "k-404"},
	}

	summary := RunValidationTests(cases, func(query string) []string {
		return index[query]
	})

	if summary.Total != 2 || summary.Passed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Outcomes[0].Rank != 1 {
		t.Fatalf("expected rank 1 for the passing case, got %d", summary.Outcomes[0].Rank)
	}
	if summary.Outcomes[1].Rank != -1 {
		t.Fatalf("expected rank -1 for the failing case, got %d", summary.Outcomes[1].Rank)
	}
}
