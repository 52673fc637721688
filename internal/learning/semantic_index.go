package learning

// Knowledge mirrors the persisted knowledge record shape the store
// layer returns, kept narrow so this package never imports store types.
type Knowledge struct {
	ID             string
	Category       string
	Title          string
	Content        string
	Tags           []string
	Source         string
	UseCount       int
	RelevanceScore float64
}

// Lesson mirrors the persisted lesson record shape.
type Lesson struct {
	ID             string
	Problem        string
	Solution       string
	Outcome        string
	UseCount       int
	RelevanceScore float64
}

// KnowledgeStore is the narrow persistence surface the semantic index
// needs. store.DB satisfies it structurally without this package
// importing store.
type KnowledgeStore interface {
	StoreKnowledgeRow(id, category, title, content string, tags []string, source string) error
	SearchKnowledgeRows(query, category string, limit int) ([]Knowledge, error)
	IncrementKnowledgeUse(id string) error

	AddLessonRow(id, problem, solution, outcome string) (string, error)
	SearchLessonRows(query string, limit int) ([]Lesson, error)
	IncrementLessonUse(id string) error
}

// SemanticIndex wraps a KnowledgeStore with the TF-IDF search surface
// the rest of the learning loop depends on.
type SemanticIndex struct {
	store KnowledgeStore
}

// NewSemanticIndex builds a semantic index over the given store.
func NewSemanticIndex(s KnowledgeStore) *SemanticIndex {
	return &SemanticIndex{store: s}
}

// AddKnowledge indexes a new piece of knowledge.
func (s *SemanticIndex) AddKnowledge(id, category, title, content string, tags []string, source string) error {
	return s.store.StoreKnowledgeRow(id, category, title, content, tags, source)
}

// SearchKnowledge returns the top-scoring knowledge entries for query,
// optionally restricted to category, and bumps each result's use count.
func (s *SemanticIndex) SearchKnowledge(query, category string, limit int) ([]Knowledge, error) {
	results, err := s.store.SearchKnowledgeRows(query, category, limit)
	if err != nil {
		return nil, err
	}
	for _, k := range results {
		_ = s.store.IncrementKnowledgeUse(k.ID)
	}
	return results, nil
}

// AddLesson records a problem/solution/outcome triple, deduplicated by
// problem text at the store layer.
func (s *SemanticIndex) AddLesson(problem, solution, outcome string) (string, error) {
	return s.store.AddLessonRow("", problem, solution, outcome)
}

// SearchLessons returns the top-scoring lessons for query.
func (s *SemanticIndex) SearchLessons(query string, limit int) ([]Lesson, error) {
	results, err := s.store.SearchLessonRows(query, limit)
	if err != nil {
		return nil, err
	}
	for _, l := range results {
		_ = s.store.IncrementLessonUse(l.ID)
	}
	return results, nil
}
