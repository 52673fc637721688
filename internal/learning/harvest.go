package learning

import (
	"regexp"
	"strings"

	"github.com/orcakit/core/internal/mission"
)

// insightPattern pairs a trigger phrase with the regex that captures the
// insight text following it.
type insightPattern struct {
	category string
	re       *regexp.Regexp
}

// insightPatterns scans mission output for sentences introduced by one of
// these trigger phrases. Every pattern runs over the whole output, in this
// order, and matches are deduplicated by their captured text: an earlier
// pattern wins only over an identical capture, so a sentence that matches
// several triggers can yield one insight per distinct capture.
var insightPatterns = []insightPattern{
	{category: "gotcha", re: regexp.MustCompile(`(?i)(?:never|must not|don't)\s+([^.\n]{20,300})`)},
	{category: "best_practice", re: regexp.MustCompile(`(?i)(?:must|should|always)\s+([^.\n]{20,300})`)},
	{category: "pattern", re: regexp.MustCompile(`(?i)(?:discovered|learned)(?: that)?\s+([^.\n]{20,300})`)},
	{category: "best_practice", re: regexp.MustCompile(`(?i)best practice(?: is to)?\s*:?\s*([^.\n]{20,300})`)},
}

// HarvestedInsight is a single low-confidence candidate learning extracted
// from a mission's result output.
type HarvestedInsight struct {
	Category    string
	Title       string
	Description string
	SourceType  mission.Type
}

// HarvestFromMission scans a completed mission's result output for
// learned/discovered/best-practice/should/must/never phrasing and
// extracts deduplicated, categorized insight candidates.
func HarvestFromMission(m *mission.Mission) []HarvestedInsight {
	if m.Result == nil || m.Result.Output == "" {
		return nil
	}

	seen := make(map[string]bool)
	var insights []HarvestedInsight

	for _, p := range insightPatterns {
		for _, match := range p.re.FindAllStringSubmatch(m.Result.Output, -1) {
			if len(match) < 2 {
				continue
			}
			text := strings.TrimSpace(match[1])
			if len(text) < 20 || len(text) > 300 {
				continue
			}
			key := strings.ToLower(text)
			if seen[key] {
				continue
			}
			seen[key] = true

			insights = append(insights, HarvestedInsight{
				Category:    p.category,
				Title:       truncateTitle(text),
				Description: text,
				SourceType:  m.Type,
			})
		}
	}
	return insights
}

func truncateTitle(text string) string {
	const maxTitleLen = 80
	if len(text) <= maxTitleLen {
		return text
	}
	return text[:maxTitleLen] + "..."
}

// FailureCategory is the closed taxonomy analyzeFailure sorts a failed
// mission into, distinct from (but derived from) its FailureKind.
type FailureCategory string

const (
	FailureCatTimeout    FailureCategory = "timeout"
	FailureCatLogic      FailureCategory = "logic"
	FailureCatResource   FailureCategory = "resource"
	FailureCatExternal   FailureCategory = "external"
	FailureCatDependency FailureCategory = "dependency"
	FailureCatUnknown    FailureCategory = "unknown"
)

// FailureAnalysis is the result of analyzing a single failed mission.
type FailureAnalysis struct {
	RootCause       string
	Category        FailureCategory
	Suggestion      string
	SimilarFailures []string
}

// canned maps a failure kind to its root cause and suggested remediation.
var canned = map[mission.FailureKind]struct {
	category   FailureCategory
	rootCause  string
	suggestion string
}{
	mission.FailureTimeout:    {FailureCatTimeout, "execution exceeded its allotted budget", "increase timeoutMs or break the mission into smaller subtasks"},
	mission.FailureRateLimit:  {FailureCatExternal, "upstream provider throttled the request", "back off and retry, or shift to a less contended model tier"},
	mission.FailureResource:   {FailureCatResource, "the agent ran out of a required resource", "reduce concurrent load on the agent or raise its resource ceiling"},
	mission.FailureAuth:       {FailureCatExternal, "the upstream call was rejected for lacking valid credentials", "refresh or rotate the credential used by the assigned agent"},
	mission.FailureCrash:      {FailureCatLogic, "the agent process terminated unexpectedly", "inspect the agent's last output for a stack trace or panic"},
	mission.FailureValidation: {FailureCatLogic, "the mission's input failed a validation check", "review the mission's prompt and context for malformed input"},
}

// AnalyzeFailure classifies a failed mission's error and, when a
// semantic index is available, looks for similar past failures.
func AnalyzeFailure(m *mission.Mission, findSimilar func(query string, limit int) []string) FailureAnalysis {
	if m.Error == nil {
		return FailureAnalysis{Category: FailureCatUnknown, RootCause: "mission has no recorded error", Suggestion: "no action: mission has no failure to analyze"}
	}

	if strings.Contains(strings.ToLower(m.Error.Message), "depend") {
		analysis := FailureAnalysis{
			Category:   FailureCatDependency,
			RootCause:  "a dependency of this mission did not complete successfully",
			Suggestion: "inspect the dependsOn chain for an upstream failure",
		}
		if findSimilar != nil {
			analysis.SimilarFailures = findSimilar(m.Error.Message, 3)
		}
		return analysis
	}

	c, ok := canned[m.Error.Kind]
	if !ok {
		c = struct {
			category   FailureCategory
			rootCause  string
			suggestion string
		}{FailureCatUnknown, "unrecognized failure kind", "inspect the mission's error message directly"}
	}

	analysis := FailureAnalysis{
		Category:   c.category,
		RootCause:  c.rootCause,
		Suggestion: c.suggestion,
	}
	if findSimilar != nil {
		analysis.SimilarFailures = findSimilar(m.Error.Message, 3)
	}
	return analysis
}
