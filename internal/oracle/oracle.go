// Package oracle owns the orchestration core's optimization loop:
// workload analysis, proactive spawning, priority rebalancing, and
// bottleneck identification, tied together by AutoOptimize.
package oracle

import (
	"time"

	"github.com/orcakit/core/internal/mission"
	"github.com/orcakit/core/internal/registry"
)

// PatternSource is the narrow capability the oracle borrows from the
// learning loop for step 5 of AutoOptimize, kept as an interface to
// avoid oracle importing the learning package directly.
type PatternSource interface {
	RecentPatterns(windowSize int) []string
}

// RebalanceAction is a recommended response to an identified bottleneck:
// spawn more capacity, reassign a mission, or retire an underused agent.
type RebalanceAction struct {
	Kind        string
	Detail      string
	TargetRole  registry.Role
	TargetModel registry.ModelTier
}

// OptimizeSummary is AutoOptimize's return value.
type OptimizeSummary struct {
	SpawnsExecuted      int
	SpawnErrors         []error
	Bottlenecks         []Bottleneck
	PriorityAdjustments []PriorityAdjustment
	RebalanceActions    []RebalanceAction
	Insights            []string
}

// Oracle runs the five-step optimization tick against live registry and
// queue state.
type Oracle struct {
	registry    *registry.Registry
	queue       *mission.Queue
	growth      *GrowthTracker
	thresholds  SpawnThresholds
	spawn       SpawnFunc
	patterns    PatternSource
}

// New constructs an Oracle. patterns may be nil, in which case step 5
// of AutoOptimize yields no insights.
func New(reg *registry.Registry, q *mission.Queue, spawn SpawnFunc, patterns PatternSource) *Oracle {
	return &Oracle{
		registry:   reg,
		queue:      q,
		growth:     NewGrowthTracker(),
		thresholds: DefaultSpawnThresholds(),
		spawn:      spawn,
		patterns:   patterns,
	}
}

// SetThresholds overrides the default spawn-trigger tuning.
func (o *Oracle) SetThresholds(t SpawnThresholds) {
	o.thresholds = t
}

// AutoOptimize runs the five-step tick: proactive spawning, bottleneck
// identification, priority adjustment, rebalance actions, and learning
// insight gathering.
func (o *Oracle) AutoOptimize(now time.Time) OptimizeSummary {
	allMissions := o.queue.All()
	agents := o.registry.All()

	o.growth.Record(now, o.queue.Len())
	report := AnalyzeWorkload(agents, allMissions)
	growthRate := o.growth.Rate()

	// Step 1: proactive spawning.
	decisions := EvaluateProactiveSpawning(report, allMissions, growthRate, o.thresholds)
	spawned, spawnErrs := 0, []error(nil)
	if o.spawn != nil {
		spawned, spawnErrs = ExecuteProactiveSpawning(decisions, o.thresholds, o.spawn)
	}

	// Step 2: bottleneck identification.
	bottlenecks := IdentifyBottlenecks(report, allMissions, now)

	// Step 3: priority adjustments.
	adjustments := OptimizeMissionQueue(now, allMissions, DependentCounts(allMissions))
	for _, adj := range adjustments {
		_ = o.queue.SetPriority(adj.MissionID, adj.To)
	}

	// Step 4: a spawn rebalance action for every role-shortage or
	// queue-backup bottleneck, whatever its severity. The actions are
	// returned in the summary, not executed; no reassign or retire
	// actions are produced.
	var rebalance []RebalanceAction
	for _, b := range bottlenecks {
		switch b.Kind {
		case BottleneckRoleShortage:
			rebalance = append(rebalance, RebalanceAction{
				Kind: "spawn", Detail: b.Detail, TargetModel: registry.TierSonnet,
			})
		case BottleneckQueueBackup:
			rebalance = append(rebalance, RebalanceAction{
				Kind: "spawn", Detail: b.Detail, TargetRole: registry.RoleGeneralist, TargetModel: registry.TierSonnet,
			})
		}
	}

	// Step 5: actionable insights from learning-loop patterns.
	var insights []string
	if o.patterns != nil {
		insights = o.patterns.RecentPatterns(10)
	}

	return OptimizeSummary{
		SpawnsExecuted:      spawned,
		SpawnErrors:         spawnErrs,
		Bottlenecks:         bottlenecks,
		PriorityAdjustments: adjustments,
		RebalanceActions:    rebalance,
		Insights:            insights,
	}
}
