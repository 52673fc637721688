package oracle

import (
	"time"

	"github.com/orcakit/core/internal/mission"
)

// BottleneckKind is the closed taxonomy of bottleneck categories.
type BottleneckKind string

const (
	BottleneckRoleShortage   BottleneckKind = "role_shortage"
	BottleneckQueueBackup    BottleneckKind = "queue_backup"
	BottleneckFailureSpike   BottleneckKind = "failure_spike"
	BottleneckDependencyChain BottleneckKind = "dependency_chain"
)

// Bottleneck is one identified systemic slowdown, with a severity score
// whose scale depends on Kind (queued count, failure rate, or DFS depth).
type Bottleneck struct {
	Kind     BottleneckKind
	Detail   string
	Severity float64
}

const (
	queueBackupThreshold    = 10
	failureSpikeWindow      = 5 * time.Minute
	failureSpikeRate        = 0.3
	failureSpikeMinSamples  = 3
	dependencyChainDepthMin = 3
)

// IdentifyBottlenecks implements spec.md §4.7's four bottleneck
// categories: role_shortage (from the workload report's BottleneckRoles),
// queue_backup (total queued above threshold), failure_spike (recent
// failure rate), and dependency_chain (DFS depth over the dependency
// graph, with a visited set to break cycles).
func IdentifyBottlenecks(report WorkloadReport, queued []*mission.Mission, now time.Time) []Bottleneck {
	var bottlenecks []Bottleneck

	for _, role := range report.BottleneckRoles {
		count := 0
		for _, m := range queued {
			if (m.Status == mission.StatusQueued || m.Status == mission.StatusPending) && MissionRoleFor(m.Type) == role {
				count++
			}
		}
		bottlenecks = append(bottlenecks, Bottleneck{
			Kind:     BottleneckRoleShortage,
			Detail:   "role " + string(role) + " has zero idle agents with queued work",
			Severity: float64(count),
		})
	}

	totalQueued := 0
	for _, m := range queued {
		if m.Status == mission.StatusQueued || m.Status == mission.StatusPending {
			totalQueued++
		}
	}
	if totalQueued > queueBackupThreshold {
		bottlenecks = append(bottlenecks, Bottleneck{
			Kind:     BottleneckQueueBackup,
			Detail:   "total queued missions exceeds backup threshold",
			Severity: float64(totalQueued),
		})
	}

	recentFailures, recentTotal := 0, 0
	cutoff := now.Add(-failureSpikeWindow)
	for _, m := range queued {
		if m.CompletedAt == nil || m.CompletedAt.Before(cutoff) {
			continue
		}
		recentTotal++
		if m.Status == mission.StatusFailed {
			recentFailures++
		}
	}
	if recentTotal >= failureSpikeMinSamples {
		rate := float64(recentFailures) / float64(recentTotal)
		if rate > failureSpikeRate {
			bottlenecks = append(bottlenecks, Bottleneck{
				Kind:     BottleneckFailureSpike,
				Detail:   "failure rate over last 5 minutes exceeds 30% with at least 3 samples",
				Severity: rate,
			})
		}
	}

	if depth := maxDependencyDepth(queued); depth > dependencyChainDepthMin {
		bottlenecks = append(bottlenecks, Bottleneck{
			Kind:     BottleneckDependencyChain,
			Detail:   "a dependency chain exceeds the configured depth limit",
			Severity: float64(depth),
		})
	}

	return bottlenecks
}

// maxDependencyDepth walks the dependency graph depth-first, using a
// per-path visited set so cycles terminate instead of infinite-looping.
func maxDependencyDepth(missions []*mission.Mission) int {
	byID := make(map[string]*mission.Mission, len(missions))
	for _, m := range missions {
		byID[m.ID] = m
	}

	maxDepth := 0
	for _, m := range missions {
		d := depthFrom(m.ID, byID, map[string]bool{})
		if d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}

func depthFrom(id string, byID map[string]*mission.Mission, visited map[string]bool) int {
	if visited[id] {
		return 0
	}
	visited[id] = true

	m, ok := byID[id]
	if !ok || len(m.DependsOn) == 0 {
		return 0
	}

	best := 0
	for _, dep := range m.DependsOn {
		if d := depthFrom(dep, byID, visited); d+1 > best {
			best = d + 1
		}
	}
	return best
}
