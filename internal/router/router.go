// Package router classifies an incoming task prompt into a routing
// decision: which agent role and model tier should handle it, whether a
// new agent needs spawning, and whether the task should be decomposed
// before dispatch.
package router

import (
	"strings"

	"github.com/orcakit/core/internal/registry"
)

// Decision is the router's output for a single prompt.
type Decision struct {
	RecommendedRole   registry.Role
	RecommendedModel  registry.ModelTier
	ShouldSpawn       bool
	SpawnReason       string
	ShouldDecompose   bool
	DecompositionHint string
	Confidence        float64
	Reasoning         string
}

// QueueState is the subset of live scheduler state the router needs to
// decide shouldSpawn: whether an idle agent of the recommended role
// already exists, and how deep the queue currently runs.
type QueueState struct {
	IdleAgentsByRole map[registry.Role]int
	QueueDepth       int
}

// ComplexityAnalyzer is the narrow capability the router borrows from
// the oracle package to pick a model tier; kept as an interface here to
// avoid router importing oracle directly.
type ComplexityAnalyzer interface {
	AnalyzeComplexity(prompt, context string) (tier string, model registry.ModelTier)
}

// Router classifies prompts via keyword heuristics, with an optional LLM
// client for a richer classification that falls back to the heuristic
// path on any failure.
type Router struct {
	complexity ComplexityAnalyzer
	llm        LLMClassifier
}

// LLMClassifier is an optional capability: given a prompt and context
// summary, return a routing decision. Any error or schema-invalid
// response causes the caller to fall back to heuristic mode.
type LLMClassifier interface {
	Classify(prompt, agentsSummary string, queueDepth int, learnings []string) (*Decision, error)
}

// New constructs a Router. llm may be nil, in which case only the
// heuristic path is used.
func New(complexity ComplexityAnalyzer, llm LLMClassifier) *Router {
	return &Router{complexity: complexity, llm: llm}
}

type rolePattern struct {
	role     registry.Role
	keywords []string
}

// rolePatterns is checked in order; the first matching role wins, so
// the most specific categories (architecture, debugging) are listed
// ahead of the more general ones.
var rolePatterns = []rolePattern{
	{registry.RoleArchitect, []string{"architecture", "design the system", "design doc", "system design"}},
	{registry.RoleDebugger, []string{"debug", "investigate bug", "root cause", "stack trace", "crash"}},
	{registry.RoleTester, []string{"test", "write tests", "unit test", "coverage", "verify behavior"}},
	{registry.RoleReviewer, []string{"review", "code review", "pull request", "pr feedback", "critique"}},
	{registry.RoleResearcher, []string{"research", "investigate options", "survey", "compare approaches"}},
	{registry.RoleScribe, []string{"document", "write docs", "readme", "changelog", "documentation"}},
	{registry.RoleAnalyst, []string{"analyze", "analysis", "report on", "summarize findings"}},
	{registry.RoleCoder, []string{"implement", "write code", "fix", "build", "add feature", "refactor"}},
}

var actionVerbs = []string{
	"implement", "write", "fix", "build", "add", "refactor", "test",
	"review", "design", "debug", "investigate", "research", "document",
	"analyze", "deploy", "migrate", "optimize",
}

var connectiveWords = []string{"and", "then", "with"}

const heuristicConfidence = 0.7

// Route classifies a prompt. If the router has an LLM classifier
// configured, it is tried first; an error, a nil decision, or a decision
// whose role or model tier is not a known enum value falls back silently
// to the heuristic path.
func (r *Router) Route(prompt, context string, qs QueueState, agentsSummary string, learnings []string) *Decision {
	if r.llm != nil {
		if d, err := r.llm.Classify(prompt, agentsSummary, qs.QueueDepth, learnings); err == nil && d != nil {
			_, roleErr := registry.ParseRole(string(d.RecommendedRole))
			_, tierErr := registry.ParseModelTier(string(d.RecommendedModel))
			if roleErr == nil && tierErr == nil {
				return d
			}
		}
	}
	return r.classifyHeuristic(prompt, context, qs)
}

func (r *Router) classifyHeuristic(prompt, context string, qs QueueState) *Decision {
	text := strings.ToLower(prompt + " " + context)

	role := registry.RoleGeneralist
	for _, rp := range rolePatterns {
		matched := false
		for _, p := range rp.keywords {
			if strings.Contains(text, p) {
				matched = true
				break
			}
		}
		if matched {
			role = rp.role
			break
		}
	}

	model := registry.TierSonnet
	tier := ""
	if r.complexity != nil {
		t, m := r.complexity.AnalyzeComplexity(prompt, context)
		tier, model = t, m
	}

	shouldSpawn := qs.IdleAgentsByRole[role] == 0 && qs.QueueDepth >= 3
	spawnReason := ""
	if shouldSpawn {
		spawnReason = "no idle agent of the recommended role and queue depth at or above threshold"
	}

	shouldDecompose, hint := decomposeSignal(text)
	if !shouldDecompose && tier == "complex" {
		for _, c := range connectiveWords {
			if containsWord(text, c) {
				shouldDecompose, hint = true, "complex-tier prompt with a connective word"
				break
			}
		}
	}

	reasoning := "heuristic keyword match recommended role " + string(role) + " and model " + string(model)

	return &Decision{
		RecommendedRole:   role,
		RecommendedModel:  model,
		ShouldSpawn:       shouldSpawn,
		SpawnReason:       spawnReason,
		ShouldDecompose:   shouldDecompose,
		DecompositionHint: hint,
		Confidence:        heuristicConfidence,
		Reasoning:         reasoning,
	}
}

// decomposeSignal reports whether text looks like it bundles multiple
// distinct tasks: two-or-more distinct action verbs, a connective word
// paired with two distinct task categories, or numbered-list structure.
// The fourth signal, a complex-tier prompt paired with a connective, needs
// the complexity tier and is checked by classifyHeuristic.
func decomposeSignal(text string) (bool, string) {
	verbCount := 0
	for _, v := range actionVerbs {
		if strings.Contains(text, v) {
			verbCount++
		}
	}
	if verbCount >= 2 {
		return true, "multiple distinct action verbs detected"
	}

	hasConnective := false
	for _, c := range connectiveWords {
		if containsWord(text, c) {
			hasConnective = true
			break
		}
	}

	categoriesHit := 0
	for _, rp := range rolePatterns {
		for _, p := range rp.keywords {
			if strings.Contains(text, p) {
				categoriesHit++
				break
			}
		}
	}
	if hasConnective && categoriesHit >= 2 {
		return true, "connective word combined with two distinct task categories"
	}

	if looksNumberedList(text) {
		return true, "numbered list structure detected"
	}

	return false, ""
}

func containsWord(text, word string) bool {
	for _, tok := range strings.Fields(text) {
		if strings.Trim(tok, ".,;:!?") == word {
			return true
		}
	}
	return false
}

func looksNumberedList(text string) bool {
	markers := 0
	for i := 1; i <= 9; i++ {
		if strings.Contains(text, string(rune('0'+i))+".") || strings.Contains(text, string(rune('0'+i))+")") {
			markers++
		}
	}
	return markers >= 2
}
