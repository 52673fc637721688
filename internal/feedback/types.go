// Package feedback implements the search-feedback loop: per-query
// relevance records, aggregate precision/recall/MRR metrics, and a
// hybrid vector/keyword weight recommendation, grounded on the
// orchestration core's metrics collector idiom.
package feedback

import "time"

// SearchType classifies which retrieval path produced a result set.
type SearchType string

const (
	SearchVector SearchType = "vector"
	SearchFTS    SearchType = "fts"
	SearchHybrid SearchType = "hybrid"
)

// Label is the closed taxonomy a submitter tags a search result with.
type Label string

const (
	LabelRelevant   Label = "relevant"
	LabelIrrelevant Label = "irrelevant"
	LabelMiss       Label = "miss"
	LabelUnknown    Label = "unknown"
)

// unsetPosition marks PositionShown/PositionExpected as not provided,
// distinct from position 0 (the top result).
const unsetPosition = -1

// Record is one recorded interaction with a search result set.
type Record struct {
	ID               string
	Query            string
	SearchType       SearchType
	ResultsShown     []string
	ResultSelected   string
	ResultExpected   string
	PositionShown    int
	PositionExpected int
	LatencyMs        int64
	Feedback         Label
	CreatedAt        time.Time
}
