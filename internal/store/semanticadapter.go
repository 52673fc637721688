package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/orcakit/core/internal/learning"
)

// The methods below adapt DB's concrete Knowledge/Lesson persistence to
// the narrow learning.KnowledgeStore interface, so internal/learning
// can depend on storage without importing this package's types back.

// StoreKnowledgeRow indexes a new piece of knowledge under a fresh ID.
func (d *DB) StoreKnowledgeRow(id, category, title, content string, tags []string, source string) error {
	if id == "" {
		id = uuid.New().String()
	}
	return d.StoreKnowledge(&Knowledge{
		ID:       id,
		Category: category,
		Title:    title,
		Content:  content,
		Tags:     tags,
		Source:   source,
	})
}

// SearchKnowledgeRows runs the TF-IDF search and returns plain learning.Knowledge values.
func (d *DB) SearchKnowledgeRows(query, category string, limit int) ([]learning.Knowledge, error) {
	rows, err := d.SearchKnowledge(query, category, limit)
	if err != nil {
		return nil, err
	}
	out := make([]learning.Knowledge, 0, len(rows))
	for _, k := range rows {
		out = append(out, learning.Knowledge{
			ID:             k.ID,
			Category:       k.Category,
			Title:          k.Title,
			Content:        k.Content,
			Tags:           k.Tags,
			Source:         k.Source,
			UseCount:       k.UseCount,
			RelevanceScore: k.RelevanceScore,
		})
	}
	return out, nil
}

// IncrementKnowledgeUse tracks a knowledge retrieval.
func (d *DB) IncrementKnowledgeUse(id string) error {
	return d.IncrementUseCount(id)
}

// AddLessonRow records a problem/solution/outcome triple under a fresh
// ID (or reuses the row matching an identical problem) and returns the
// ID actually stored under.
func (d *DB) AddLessonRow(id, problem, solution, outcome string) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	l := &Lesson{ID: id, Problem: problem, Solution: solution, Outcome: outcome}
	if err := d.AddLesson(l); err != nil {
		return "", err
	}
	return l.ID, nil
}

// SearchLessonRows runs the TF-IDF search and returns plain learning.Lesson values.
func (d *DB) SearchLessonRows(query string, limit int) ([]learning.Lesson, error) {
	rows, err := d.SearchLessons(query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]learning.Lesson, 0, len(rows))
	for _, l := range rows {
		out = append(out, learning.Lesson{
			ID:             l.ID,
			Problem:        l.Problem,
			Solution:       l.Solution,
			Outcome:        l.Outcome,
			UseCount:       l.UseCount,
			RelevanceScore: l.RelevanceScore,
		})
	}
	return out, nil
}

// IncrementLessonUse tracks a lesson retrieval.
func (d *DB) IncrementLessonUse(id string) error {
	return d.IncrementLessonUseCount(id)
}

// ListStaleLearnings adapts GetStaleLearnings to the learning package's
// narrow LearningRecord shape.
func (d *DB) ListStaleLearnings(cutoff time.Time) ([]learning.LearningRecord, error) {
	rows, err := d.GetStaleLearnings(cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]learning.LearningRecord, 0, len(rows))
	for _, l := range rows {
		out = append(out, learning.LearningRecord{
			ID:         l.ID,
			Title:      l.Title,
			Confidence: learning.Confidence(l.Confidence),
		})
	}
	return out, nil
}
