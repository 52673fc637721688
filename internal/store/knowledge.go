package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/orcakit/core/internal/learning"
)

// Knowledge is a searchable piece of learned information, indexed by a
// TF-IDF scheme over its title and content.
type Knowledge struct {
	ID             string
	Category       string
	Title          string
	Content        string
	Tags           []string
	Source         string
	UseCount       int
	LastUsed       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	RelevanceScore float64
}

// StoreKnowledge inserts a knowledge row and builds its TF-IDF index
// inside a single transaction.
func (d *DB) StoreKnowledge(k *Knowledge) error {
	now := time.Now()
	tagsJSON, err := json.Marshal(k.Tags)
	if err != nil {
		return fmt.Errorf("store: marshal tags: %w", err)
	}

	return d.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO knowledge (id, category, title, content, tags, source, use_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		`, k.ID, k.Category, k.Title, k.Content, string(tagsJSON), nullString(k.Source), now, now)
		if err != nil {
			return wrapIO("StoreKnowledge.insert", err)
		}

		terms := learning.Tokenize(k.Title + " " + k.Content)
		tf := learning.ComputeTermFrequency(terms)
		for term, freq := range tf {
			if _, err := tx.Exec(`
				INSERT OR REPLACE INTO knowledge_terms (knowledge_id, term, tf) VALUES (?, ?, ?)
			`, k.ID, term, freq); err != nil {
				return wrapIO("StoreKnowledge.term", err)
			}
			if _, err := tx.Exec(`
				INSERT INTO term_stats (term, doc_count) VALUES (?, 1)
				ON CONFLICT(term) DO UPDATE SET doc_count = doc_count + 1
			`, term); err != nil {
				return wrapIO("StoreKnowledge.termStats", err)
			}
		}
		return nil
	})
}

// SearchKnowledge scores every document containing at least one query
// term by Σ tf·idf and returns the top `limit` matches, optionally
// filtered to a single category.
func (d *DB) SearchKnowledge(query, category string, limit int) ([]*Knowledge, error) {
	if limit <= 0 {
		limit = 5
	}

	queryTerms := learning.Tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	var totalDocs int
	if err := d.conn.QueryRow("SELECT COUNT(*) FROM knowledge").Scan(&totalDocs); err != nil {
		return nil, wrapIO("SearchKnowledge.count", err)
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
	rows, err := d.conn.Query(fmt.Sprintf(`SELECT term, doc_count FROM term_stats WHERE term IN (%s)`, inClause), args...)
	if err != nil {
		return nil, wrapIO("SearchKnowledge.termStats", err)
	}
	for rows.Next() {
		var term string
		var count int
		if err := rows.Scan(&term, &count); err != nil {
			rows.Close()
			return nil, wrapIO("SearchKnowledge.termStats.scan", err)
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

	docRows, err := d.conn.Query(fmt.Sprintf(`SELECT DISTINCT knowledge_id FROM knowledge_terms WHERE term IN (%s)`, inClause), args...)
	if err != nil {
		return nil, wrapIO("SearchKnowledge.docs", err)
	}
	var docIDs []string
	for docRows.Next() {
		var id string
		if err := docRows.Scan(&id); err != nil {
			docRows.Close()
			return nil, wrapIO("SearchKnowledge.docs.scan", err)
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
		termRows, err := d.conn.Query(`SELECT term, tf FROM knowledge_terms WHERE knowledge_id = ?`, docID)
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

	out := make([]*Knowledge, 0, len(results))
	for _, s := range results {
		k, err := d.GetKnowledge(s.id)
		if err != nil {
			continue
		}
		if category != "" && k.Category != category {
			continue
		}
		k.RelevanceScore = s.score
		out = append(out, k)
	}
	return out, nil
}

// GetKnowledge fetches a single knowledge row.
func (d *DB) GetKnowledge(id string) (*Knowledge, error) {
	var k Knowledge
	var tagsJSON, source sql.NullString
	var lastUsed sql.NullTime

	err := d.conn.QueryRow(`
		SELECT id, category, title, content, tags, source, use_count, last_used, created_at, updated_at
		FROM knowledge WHERE id = ?
	`, id).Scan(&k.ID, &k.Category, &k.Title, &k.Content, &tagsJSON, &source, &k.UseCount, &lastUsed, &k.CreatedAt, &k.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, newNotFound("GetKnowledge", fmt.Sprintf("knowledge %s not found", id))
	}
	if err != nil {
		return nil, wrapIO("GetKnowledge", err)
	}

	if tagsJSON.Valid {
		_ = json.Unmarshal([]byte(tagsJSON.String), &k.Tags)
	}
	if source.Valid {
		k.Source = source.String
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		k.LastUsed = &t
	}
	return &k, nil
}

// IncrementUseCount tracks a knowledge retrieval.
func (d *DB) IncrementUseCount(id string) error {
	_, err := d.conn.Exec(`UPDATE knowledge SET use_count = use_count + 1, last_used = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return wrapIO("IncrementUseCount", err)
	}
	return nil
}

// KnowledgeStats summarizes the knowledge base.
type KnowledgeStats struct {
	TotalKnowledge int
	ByCategory     map[string]int
	TotalTerms     int
	MostUsed       []*Knowledge
}

// GetKnowledgeStats aggregates knowledge-base statistics.
func (d *DB) GetKnowledgeStats() (*KnowledgeStats, error) {
	stats := &KnowledgeStats{ByCategory: make(map[string]int)}

	if err := d.conn.QueryRow("SELECT COUNT(*) FROM knowledge").Scan(&stats.TotalKnowledge); err != nil {
		return nil, wrapIO("GetKnowledgeStats.total", err)
	}
	if err := d.conn.QueryRow("SELECT COUNT(*) FROM term_stats").Scan(&stats.TotalTerms); err != nil {
		return nil, wrapIO("GetKnowledgeStats.terms", err)
	}

	rows, err := d.conn.Query("SELECT category, COUNT(*) FROM knowledge GROUP BY category")
	if err != nil {
		return nil, wrapIO("GetKnowledgeStats.byCategory", err)
	}
	for rows.Next() {
		var cat string
		var count int
		if err := rows.Scan(&cat, &count); err == nil {
			stats.ByCategory[cat] = count
		}
	}
	rows.Close()

	mostUsed, err := d.conn.Query(`
		SELECT id, category, title, content, use_count, created_at, updated_at
		FROM knowledge ORDER BY use_count DESC LIMIT 5
	`)
	if err != nil {
		return nil, wrapIO("GetKnowledgeStats.mostUsed", err)
	}
	for mostUsed.Next() {
		var k Knowledge
		if err := mostUsed.Scan(&k.ID, &k.Category, &k.Title, &k.Content, &k.UseCount, &k.CreatedAt, &k.UpdatedAt); err == nil {
			stats.MostUsed = append(stats.MostUsed, &k)
		}
	}
	mostUsed.Close()

	return stats, nil
}
