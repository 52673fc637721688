package store

import (
	"database/sql"
	"time"
)

// SearchFeedback is one recorded interaction with a search result set,
// the raw material internal/feedback aggregates into precision/recall
// estimates and hybrid-weight recommendations.
type SearchFeedback struct {
	ID               string
	Query            string
	SearchType       string
	ResultsShown     string
	ResultSelected   string
	ResultExpected   string
	PositionShown    int
	PositionExpected int
	LatencyMs        int64
	Feedback         string
	CreatedAt        time.Time
}

// SaveSearchFeedback inserts one feedback row.
func (d *DB) SaveSearchFeedback(f *SearchFeedback) error {
	_, err := d.conn.Exec(`
		INSERT INTO search_feedback (
			id, query, search_type, results_shown, result_selected, result_expected,
			position_shown, position_expected, latency_ms, feedback, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.Query, f.SearchType, f.ResultsShown, nullString(f.ResultSelected), nullString(f.ResultExpected),
		nullIntPos(f.PositionShown), nullIntPos(f.PositionExpected), nullInt64Pos(f.LatencyMs), f.Feedback, f.CreatedAt)
	if err != nil {
		return wrapIO("SaveSearchFeedback", err)
	}
	return nil
}

// ListSearchFeedback returns feedback rows for a search type, most recent
// first, bounded by limit.
func (d *DB) ListSearchFeedback(searchType string, limit int) ([]*SearchFeedback, error) {
	rows, err := d.conn.Query(`
		SELECT id, query, search_type, results_shown, result_selected, result_expected,
		       position_shown, position_expected, latency_ms, feedback, created_at
		FROM search_feedback WHERE search_type = ? ORDER BY created_at DESC LIMIT ?
	`, searchType, limit)
	if err != nil {
		return nil, wrapIO("ListSearchFeedback", err)
	}
	defer rows.Close()

	var result []*SearchFeedback
	for rows.Next() {
		var f SearchFeedback
		var resultSelected, resultExpected sql.NullString
		var positionShown, positionExpected sql.NullInt64
		var latencyMs sql.NullInt64

		if err := rows.Scan(&f.ID, &f.Query, &f.SearchType, &f.ResultsShown, &resultSelected, &resultExpected,
			&positionShown, &positionExpected, &latencyMs, &f.Feedback, &f.CreatedAt); err != nil {
			return nil, wrapIO("ListSearchFeedback.scan", err)
		}
		f.ResultSelected = resultSelected.String
		f.ResultExpected = resultExpected.String
		if positionShown.Valid {
			f.PositionShown = int(positionShown.Int64)
		} else {
			f.PositionShown = -1
		}
		if positionExpected.Valid {
			f.PositionExpected = int(positionExpected.Int64)
		} else {
			f.PositionExpected = -1
		}
		f.LatencyMs = latencyMs.Int64
		result = append(result, &f)
	}
	return result, rows.Err()
}

func nullIntPos(i int) sql.NullInt64 {
	if i < 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}

func nullInt64Pos(i int64) sql.NullInt64 {
	if i < 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}
