package feedback

// TestCase is one property-based retrieval check: a query that should
// surface a known expected result somewhere in its top results.
type TestCase struct {
	Query      string
	ExpectedID string
}

// ValidationOutcome is the per-case result of running a TestCase.
type ValidationOutcome struct {
	Query   string
	Passed  bool
	Rank    int // -1 when the expected id was not found
	Results []string
}

// ValidationSummary aggregates a RunValidationTests pass.
type ValidationSummary struct {
	Total     int
	Passed    int
	Failed    int
	Outcomes  []ValidationOutcome
}

// RunValidationTests drives searchFn with each test case's query and
// checks whether ExpectedID appears anywhere in the returned result IDs.
func RunValidationTests(cases []TestCase, searchFn func(query string) []string) ValidationSummary {
	summary := ValidationSummary{Total: len(cases)}

	for _, tc := range cases {
		results := searchFn(tc.Query)
		rank := -1
		for i, id := range results {
			if id == tc.ExpectedID {
				rank = i
				break
			}
		}

		outcome := ValidationOutcome{Query: tc.Query, Passed: rank >= 0, Rank: rank, Results: results}
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}
