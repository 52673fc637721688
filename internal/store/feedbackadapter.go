package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orcakit/core/internal/feedback"
)

// SaveFeedback adapts feedback.Record to the durable search_feedback row.
func (d *DB) SaveFeedback(r feedback.Record) error {
	id := r.ID
	if id == "" {
		id = uuid.New().String()
	}
	resultsShown, err := json.Marshal(r.ResultsShown)
	if err != nil {
		return err
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return d.SaveSearchFeedback(&SearchFeedback{
		ID:               id,
		Query:            r.Query,
		SearchType:       string(r.SearchType),
		ResultsShown:     string(resultsShown),
		ResultSelected:   r.ResultSelected,
		ResultExpected:   r.ResultExpected,
		PositionShown:    r.PositionShown,
		PositionExpected: r.PositionExpected,
		LatencyMs:        r.LatencyMs,
		Feedback:         string(r.Feedback),
		CreatedAt:        createdAt,
	})
}

// ListFeedback adapts ListSearchFeedback to plain feedback.Record values.
func (d *DB) ListFeedback(searchType feedback.SearchType, limit int) ([]feedback.Record, error) {
	rows, err := d.ListSearchFeedback(string(searchType), limit)
	if err != nil {
		return nil, err
	}

	out := make([]feedback.Record, 0, len(rows))
	for _, f := range rows {
		var resultsShown []string
		_ = json.Unmarshal([]byte(f.ResultsShown), &resultsShown)

		out = append(out, feedback.Record{
			ID:               f.ID,
			Query:            f.Query,
			SearchType:       feedback.SearchType(f.SearchType),
			ResultsShown:     resultsShown,
			ResultSelected:   f.ResultSelected,
			ResultExpected:   f.ResultExpected,
			PositionShown:    f.PositionShown,
			PositionExpected: f.PositionExpected,
			LatencyMs:        f.LatencyMs,
			Feedback:         feedback.Label(f.Feedback),
			CreatedAt:        f.CreatedAt,
		})
	}
	return out, nil
}
