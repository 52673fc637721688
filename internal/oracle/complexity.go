package oracle

import (
	"regexp"
	"strings"

	"github.com/orcakit/core/internal/registry"
)

// Tier is a task's estimated complexity band.
type Tier string

const (
	TierSimple   Tier = "simple"
	TierModerate Tier = "moderate"
	TierComplex  Tier = "complex"
)

// ComplexityResult is analyzeTaskComplexity's output.
type ComplexityResult struct {
	Tier             Tier
	RecommendedModel registry.ModelTier
	Reasoning        string
	Signals          []string
}

type signalPattern struct {
	name string
	re   *regexp.Regexp
}

// complexSignals, moderateSignals, and simpleSignals are compiled once
// at package init so the hot dispatch path never pays regexp-compile cost.
var (
	complexSignals = compileSignals([]string{
		"architecture", "multi-file refactor", "greenfield implementation",
		"algorithm optimization", "security analysis", "complex debugging",
		"design decision",
	})
	moderateSignals = compileSignals([]string{
		"feature implementation", "bug fix", "testing", "code review", "modification",
	})
	simpleSignals = compileSignals([]string{
		"file-read", "search", "formatting", "simple-refactor", "summarization",
	})
)

func compileSignals(names []string) []signalPattern {
	patterns := make([]signalPattern, 0, len(names))
	for _, n := range names {
		escaped := regexp.QuoteMeta(n)
		patterns = append(patterns, signalPattern{name: n, re: regexp.MustCompile(escaped)})
	}
	return patterns
}

// AnalyzeComplexity implements the regex-based tier selection spec.md
// §4.7 calls analyzeTaskComplexity. It satisfies router.ComplexityAnalyzer
// and decompose.ComplexityAnalyzer via the narrower two-value method below.
func AnalyzeComplexity(prompt, context string) ComplexityResult {
	text := strings.ToLower(prompt + " " + context)

	if signals := matchSignals(text, complexSignals); len(signals) > 0 {
		return ComplexityResult{
			Tier:             TierComplex,
			RecommendedModel: registry.TierOpus,
			Reasoning:        "matched complex-tier signal(s)",
			Signals:          signals,
		}
	}
	if signals := matchSignals(text, moderateSignals); len(signals) > 0 {
		return ComplexityResult{
			Tier:             TierModerate,
			RecommendedModel: registry.TierSonnet,
			Reasoning:        "matched moderate-tier signal(s)",
			Signals:          signals,
		}
	}
	if signals := matchSignals(text, simpleSignals); len(signals) > 0 {
		return ComplexityResult{
			Tier:             TierSimple,
			RecommendedModel: registry.TierHaiku,
			Reasoning:        "matched simple-tier signal(s)",
			Signals:          signals,
		}
	}

	return ComplexityResult{
		Tier:             TierModerate,
		RecommendedModel: registry.TierSonnet,
		Reasoning:        "no signal matched, defaulting to moderate/sonnet",
	}
}

func matchSignals(text string, patterns []signalPattern) []string {
	var hits []string
	for _, p := range patterns {
		if p.re.MatchString(text) {
			hits = append(hits, p.name)
		}
	}
	return hits
}

// Analyzer adapts the package-level AnalyzeComplexity function to the
// two-value ComplexityAnalyzer interface router and decompose depend on.
type Analyzer struct{}

func (Analyzer) AnalyzeComplexity(prompt, context string) (string, registry.ModelTier) {
	r := AnalyzeComplexity(prompt, context)
	return string(r.Tier), r.RecommendedModel
}
