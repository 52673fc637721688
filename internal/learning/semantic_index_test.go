package learning

import "testing"

type fakeKnowledgeStore struct {
	knowledge     []Knowledge
	lessons       []Lesson
	useIncrements []string
}

func (f *fakeKnowledgeStore) StoreKnowledgeRow(id, category, title, content string, tags []string, source string) error {
	f.knowledge = append(f.knowledge, Knowledge{ID: id, Category: category, Title: title, Content: content, Tags: tags, Source: source})
	return nil
}

func (f *fakeKnowledgeStore) SearchKnowledgeRows(query, category string, limit int) ([]Knowledge, error) {
	return f.knowledge, nil
}

func (f *fakeKnowledgeStore) IncrementKnowledgeUse(id string) error {
	f.useIncrements = append(f.useIncrements, id)
	return nil
}

func (f *fakeKnowledgeStore) AddLessonRow(id, problem, solution, outcome string) (string, error) {
	if id == "" {
		id = "lesson-1"
	}
	f.lessons = append(f.lessons, Lesson{ID: id, Problem: problem, Solution: solution, Outcome: outcome})
	return id, nil
}

func (f *fakeKnowledgeStore) SearchLessonRows(query string, limit int) ([]Lesson, error) {
	return f.lessons, nil
}

func (f *fakeKnowledgeStore) IncrementLessonUse(id string) error {
	f.useIncrements = append(f.useIncrements, id)
	return nil
}

func TestSemanticIndexSearchKnowledgeBumpsUseCount(t *testing.T) {
	fs := &fakeKnowledgeStore{knowledge: []Knowledge{{ID: "k-1", Title: "retry pattern"}}}
	idx := NewSemanticIndex(fs)

	results, err := idx.SearchKnowledge("retry", "", 5)
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if len(fs.useIncrements) != 1 || fs.useIncrements[0] != "k-1" {
		t.Fatalf("expected use count bump for k-1, got %+v", fs.useIncrements)
	}
}

func TestSemanticIndexAddLessonDelegatesToStore(t *testing.T) {
	fs := &fakeKnowledgeStore{}
	idx := NewSemanticIndex(fs)

	id, err := idx.AddLesson("builds fail under load", "add retry with backoff", "resolved")
	if err != nil {
		t.Fatalf("AddLesson: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a non-empty lesson id")
	}
	if len(fs.lessons) != 1 || fs.lessons[0].Problem != "builds fail under load" {
		t.Fatalf("expected lesson to be recorded, got %+v", fs.lessons)
	}
}
