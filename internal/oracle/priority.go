package oracle

import (
	"time"

	"github.com/orcakit/core/internal/mission"
)

// PriorityAdjustment records a recommended priority change for a single
// mission, produced by OptimizeMissionQueue.
type PriorityAdjustment struct {
	MissionID string
	From      mission.Priority
	To        mission.Priority
	Reason    string
}

// OptimizeMissionQueue implements spec.md §4.7's optimizeMissionQueue: it
// never mutates missions directly, only returns the adjustments a caller
// should apply. dependentCounts maps a mission id to how many other
// queued missions declare it as a dependency.
func OptimizeMissionQueue(now time.Time, missions []*mission.Mission, dependentCounts map[string]int) []PriorityAdjustment {
	var adjustments []PriorityAdjustment

	for _, m := range missions {
		if m.Status != mission.StatusQueued && m.Status != mission.StatusPending {
			continue
		}

		age := now.Sub(m.CreatedAt)

		if m.RetryCount >= 2 && m.Priority != mission.PriorityLow {
			adjustments = append(adjustments, PriorityAdjustment{
				MissionID: m.ID, From: m.Priority, To: mission.PriorityLow,
				Reason: "retry count at or above 2, quarantining flaky work",
			})
			continue
		}

		if dependentCounts[m.ID] >= 3 && m.Priority != mission.PriorityCritical {
			adjustments = append(adjustments, PriorityAdjustment{
				MissionID: m.ID, From: m.Priority, To: mission.PriorityCritical,
				Reason: "at least 3 other missions depend on this one",
			})
			continue
		}

		if m.Priority == mission.PriorityLow && m.RetryCount < 2 && age > 30*time.Minute {
			adjustments = append(adjustments, PriorityAdjustment{
				MissionID: m.ID, From: m.Priority, To: mission.PriorityNormal,
				Reason: "low-priority mission aged past 30 minutes",
			})
			continue
		}

		if m.Priority == mission.PriorityNormal && age > 60*time.Minute {
			adjustments = append(adjustments, PriorityAdjustment{
				MissionID: m.ID, From: m.Priority, To: mission.PriorityHigh,
				Reason: "normal-priority mission aged past 60 minutes",
			})
		}
	}

	return adjustments
}

// DependentCounts counts, for every mission id appearing in another
// mission's DependsOn list, how many missions depend on it.
func DependentCounts(missions []*mission.Mission) map[string]int {
	counts := make(map[string]int)
	for _, m := range missions {
		for _, dep := range m.DependsOn {
			counts[dep]++
		}
	}
	return counts
}
