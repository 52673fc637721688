package store

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/orcakit/core/internal/learning"
)

// Lesson captures a concrete problem/solution/outcome triple harvested
// from mission execution, deduplicated by its problem text.
type Lesson struct {
	ID             string
	Problem        string
	Solution       string
	Outcome        string
	UseCount       int
	LastUsed       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	RelevanceScore float64
}

// AddLesson inserts a new lesson, or updates the solution/outcome of an
// existing one sharing the same problem text, then rebuilds its TF-IDF
// index inside a single transaction.
func (d *DB) AddLesson(l *Lesson) error {
	now := time.Now()

	return d.withTx(func(tx *sql.Tx) error {
		var existingID string
		err := tx.QueryRow(`SELECT id FROM lessons WHERE problem = ?`, l.Problem).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(`
				INSERT INTO lessons (id, problem, solution, outcome, use_count, created_at, updated_at)
				VALUES (?, ?, ?, ?, 0, ?, ?)
			`, l.ID, l.Problem, l.Solution, nullString(l.Outcome), now, now); err != nil {
				return wrapIO("AddLesson.insert", err)
			}
		case err != nil:
			return wrapIO("AddLesson.lookup", err)
		default:
			l.ID = existingID
			if _, err := tx.Exec(`
				UPDATE lessons SET solution = ?, outcome = ?, updated_at = ? WHERE id = ?
			`, l.Solution, nullString(l.Outcome), now, l.ID); err != nil {
				return wrapIO("AddLesson.update", err)
			}
			if _, err := tx.Exec(`DELETE FROM lesson_terms WHERE lesson_id = ?`, l.ID); err != nil {
				return wrapIO("AddLesson.clearTerms", err)
			}
		}

		terms := learning.Tokenize(l.Problem + " " + l.Solution)
		tf := learning.ComputeTermFrequency(terms)
		for term, freq := range tf {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO lesson_terms (lesson_id, term, tf) VALUES (?, ?, ?)
			`, l.ID, term, freq); err != nil {
				return wrapIO("AddLesson.term", err)
			}
			if _, err := tx.Exec(`
				INSERT INTO lesson_term_stats (term, doc_count) VALUES (?, 1)
				ON CONFLICT(term) DO UPDATE SET doc_count = doc_count + 1
			`, term); err != nil {
				return wrapIO("AddLesson.termStats", err)
			}
		}
		return nil
	})
}

// SearchLessons scores lessons by Σ tf·idf over the query terms, using
// the same scheme as SearchKnowledge but against the lesson_terms index.
func (d *DB) SearchLessons(query string, limit int) ([]*Lesson, error) {
	if limit <= 0 {
		limit = 5
	}

	queryTerms := learning.Tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	var totalDocs int
	if err := d.conn.QueryRow("SELECT COUNT(*) FROM lessons").Scan(&totalDocs); err != nil {
		return nil, wrapIO("SearchLessons.count", err)
	}
	if totalDocs == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(queryTerms))
	args := make([]interface{}, len(queryTerms))
	for i, term := range queryTerms {
		placeholders[i] = "?"
		args[i] = term
	}
	inClause := strings.Join(placeholders, ",")

	termDocFreq := make(map[string]int)
	rows, err := d.conn.Query(fmt.Sprintf(`SELECT term, doc_count FROM lesson_term_stats WHERE term IN (%s)`, inClause), args...)
	if err != nil {
		return nil, wrapIO("SearchLessons.termStats", err)
	}
	for rows.Next() {
		var term string
		var count int
		if err := rows.Scan(&term, &count); err != nil {
			rows.Close()
			return nil, wrapIO("SearchLessons.termStats.scan", err)
		}
		termDocFreq[term] = count
	}
	rows.Close()

	idf := make(map[string]float64, len(queryTerms))
	for _, term := range queryTerms {
		df := termDocFreq[term]
		if df == 0 {
			df = 1
		}
		idf[term] = math.Log(float64(totalDocs+1) / float64(df+1))
	}

	docRows, err := d.conn.Query(fmt.Sprintf(`SELECT DISTINCT lesson_id FROM lesson_terms WHERE term IN (%s)`, inClause), args...)
	if err != nil {
		return nil, wrapIO("SearchLessons.docs", err)
	}
	var docIDs []string
	for docRows.Next() {
		var id string
		if err := docRows.Scan(&id); err != nil {
			docRows.Close()
			return nil, wrapIO("SearchLessons.docs.scan", err)
		}
		docIDs = append(docIDs, id)
	}
	docRows.Close()

	type scored struct {
		id    string
		score float64
	}
	var results []scored
	for _, docID := range docIDs {
		termRows, err := d.conn.Query(`SELECT term, tf FROM lesson_terms WHERE lesson_id = ?`, docID)
		if err != nil {
			continue
		}
		docTF := make(map[string]float64)
		for termRows.Next() {
			var term string
			var tf float64
			if err := termRows.Scan(&term, &tf); err == nil {
				docTF[term] = tf
			}
		}
		termRows.Close()

		var score float64
		for _, term := range queryTerms {
			if tf, ok := docTF[term]; ok {
				score += tf * idf[term]
			}
		}
		// Every candidate holds at least one query term, so it is kept even
		// when its score is 0 (a term that appears in every document).
		results = append(results, scored{id: docID, score: score})
	}

	for i := range results {
		for j := i + 1; j < len(results); j++ {
			if results[j].score > results[i].score {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]*Lesson, 0, len(results))
	for _, s := range results {
		l, err := d.GetLesson(s.id)
		if err != nil {
			continue
		}
		l.RelevanceScore = s.score
		out = append(out, l)
	}
	return out, nil
}

// GetLesson fetches a single lesson row.
func (d *DB) GetLesson(id string) (*Lesson, error) {
	var l Lesson
	var outcome sql.NullString
	var lastUsed sql.NullTime

	err := d.conn.QueryRow(`
		SELECT id, problem, solution, outcome, use_count, last_used, created_at, updated_at
		FROM lessons WHERE id = ?
	`, id).Scan(&l.ID, &l.Problem, &l.Solution, &outcome, &l.UseCount, &lastUsed, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, newNotFound("GetLesson", fmt.Sprintf("lesson %s not found", id))
	}
	if err != nil {
		return nil, wrapIO("GetLesson", err)
	}

	if outcome.Valid {
		l.Outcome = outcome.String
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		l.LastUsed = &t
	}
	return &l, nil
}

// IncrementLessonUseCount tracks a lesson retrieval.
func (d *DB) IncrementLessonUseCount(id string) error {
	_, err := d.conn.Exec(`UPDATE lessons SET use_count = use_count + 1, last_used = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return wrapIO("IncrementLessonUseCount", err)
	}
	return nil
}
