package learning

import (
	"fmt"

	"github.com/orcakit/core/internal/mission"
)

// PatternKind is the closed taxonomy detectPatterns classifies a pattern as.
type PatternKind string

const (
	PatternSuccess PatternKind = "success"
	PatternFailure PatternKind = "failure"
)

// Pattern describes a recurring outcome detected across a window of
// recent missions of the same type.
type Pattern struct {
	Kind             PatternKind
	Description      string
	Frequency        float64
	AffectedMissions []string
	SuggestedAction  string
	Confidence       string
}

const patternMinSamples = 3
const successThreshold = 0.8
const failureThreshold = 0.5

// DetectPatterns groups the most recent windowSize missions by type and
// flags types whose outcome rate crosses the success/failure thresholds
// with enough samples to be meaningful.
func DetectPatterns(recentMissions []*mission.Mission, windowSize int) []Pattern {
	if windowSize <= 0 {
		windowSize = 10
	}
	window := recentMissions
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}

	type bucket struct {
		total     int
		completed int
		failed    int
		ids       []string
	}
	byType := make(map[mission.Type]*bucket)

	for _, m := range window {
		if !m.Status.IsTerminal() || m.Status == mission.StatusCancelled {
			continue
		}
		b, ok := byType[m.Type]
		if !ok {
			b = &bucket{}
			byType[m.Type] = b
		}
		b.total++
		b.ids = append(b.ids, m.ID)
		switch m.Status {
		case mission.StatusCompleted:
			b.completed++
		case mission.StatusFailed:
			b.failed++
		}
	}

	var patterns []Pattern
	for t, b := range byType {
		if b.total < patternMinSamples {
			continue
		}
		successRate := float64(b.completed) / float64(b.total)
		failureRate := float64(b.failed) / float64(b.total)

		switch {
		case successRate > successThreshold:
			patterns = append(patterns, Pattern{
				Kind:             PatternSuccess,
				Description:      fmt.Sprintf("%s missions are succeeding at a %.0f%% rate over the last %d samples", t, successRate*100, b.total),
				Frequency:        successRate,
				AffectedMissions: b.ids,
				Confidence:       confidenceForSampleSize(b.total),
			})
		case failureRate > failureThreshold:
			patterns = append(patterns, Pattern{
				Kind:             PatternFailure,
				Description:      fmt.Sprintf("%s missions are failing at a %.0f%% rate over the last %d samples", t, failureRate*100, b.total),
				Frequency:        failureRate,
				AffectedMissions: b.ids,
				SuggestedAction:  fmt.Sprintf("investigate recent %s failures before routing more work of this type", t),
				Confidence:       confidenceForSampleSize(b.total),
			})
		}
	}
	return patterns
}

func confidenceForSampleSize(n int) string {
	switch {
	case n >= 20:
		return "proven"
	case n >= 10:
		return "high"
	case n >= 5:
		return "medium"
	default:
		return "low"
	}
}
