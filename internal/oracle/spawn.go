package oracle

import (
	"sort"

	"github.com/orcakit/core/internal/mission"
	"github.com/orcakit/core/internal/registry"
)

// Urgency ranks a ProactiveSpawnDecision for scheduling purposes.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencySoon      Urgency = "soon"
	UrgencyOptional  Urgency = "optional"
)

func (u Urgency) rank() int {
	switch u {
	case UrgencyImmediate:
		return 0
	case UrgencySoon:
		return 1
	default:
		return 2
	}
}

// ProactiveSpawnDecision is one recommendation to spawn a new agent ahead
// of demand.
type ProactiveSpawnDecision struct {
	ShouldSpawn    bool
	Reason         string
	SuggestedRole  registry.Role
	SuggestedModel registry.ModelTier
	Urgency        Urgency
}

// SpawnThresholds configures evaluateProactiveSpawning's four trigger
// rules; zero values fall back to spec.md §4.7's stated defaults.
type SpawnThresholds struct {
	QueueGrowthRate   float64
	QueueDepthThreshold int
	TaskComplexityBacklog int
	IdleAgentMinimum  int
	MaxSpawnsPerTick  int
}

// DefaultSpawnThresholds returns the spec-mandated default tuning.
func DefaultSpawnThresholds() SpawnThresholds {
	return SpawnThresholds{
		QueueGrowthRate:       5,
		QueueDepthThreshold:   5,
		TaskComplexityBacklog: 3,
		IdleAgentMinimum:      1,
		MaxSpawnsPerTick:      3,
	}
}

// EvaluateProactiveSpawning runs the four trigger rules against the
// current workload and growth rate, returning every decision produced
// (including ones where ShouldSpawn is false, for observability).
func EvaluateProactiveSpawning(
	report WorkloadReport,
	queued []*mission.Mission,
	growthRate float64,
	thresholds SpawnThresholds,
) []ProactiveSpawnDecision {
	def := DefaultSpawnThresholds()
	if thresholds.QueueGrowthRate == 0 {
		thresholds.QueueGrowthRate = def.QueueGrowthRate
	}
	if thresholds.QueueDepthThreshold == 0 {
		thresholds.QueueDepthThreshold = def.QueueDepthThreshold
	}
	if thresholds.TaskComplexityBacklog == 0 {
		thresholds.TaskComplexityBacklog = def.TaskComplexityBacklog
	}
	if thresholds.IdleAgentMinimum == 0 {
		thresholds.IdleAgentMinimum = def.IdleAgentMinimum
	}

	var decisions []ProactiveSpawnDecision

	totalIdle := 0
	idleByRole := make(map[registry.Role]int)
	for _, a := range report.Agents {
		if a.Status == registry.StatusIdle {
			totalIdle++
			idleByRole[a.Role]++
		}
	}

	// Rule 1: growth rate above threshold and no idle agents at all.
	if growthRate > thresholds.QueueGrowthRate && totalIdle == 0 {
		decisions = append(decisions, ProactiveSpawnDecision{
			ShouldSpawn:    true,
			Reason:         "queue growth rate exceeds threshold with zero idle agents",
			SuggestedRole:  registry.RoleGeneralist,
			SuggestedModel: registry.TierSonnet,
			Urgency:        UrgencyImmediate,
		})
	}

	// Rule 2: per-role backlog at/above threshold with no idle agent of that role.
	backlogByRole := make(map[registry.Role]int)
	for _, m := range queued {
		if m.Status == mission.StatusQueued || m.Status == mission.StatusPending {
			backlogByRole[MissionRoleFor(m.Type)]++
		}
	}
	for role, backlog := range backlogByRole {
		if backlog >= thresholds.QueueDepthThreshold && idleByRole[role] == 0 {
			urgency := UrgencySoon
			if backlog > 10 {
				urgency = UrgencyImmediate
			}
			decisions = append(decisions, ProactiveSpawnDecision{
				ShouldSpawn:    true,
				Reason:         "per-role backlog at or above threshold with no idle agent of that role",
				SuggestedRole:  role,
				SuggestedModel: registry.TierSonnet,
				Urgency:        urgency,
			})
		}
	}

	// Rule 3: complex-tier backlog with no idle opus agents.
	complexBacklog := 0
	complexRoleCounts := make(map[registry.Role]int)
	for _, m := range queued {
		if m.Status != mission.StatusQueued && m.Status != mission.StatusPending {
			continue
		}
		if AnalyzeComplexity(m.Prompt, m.Context).Tier == TierComplex {
			complexBacklog++
			complexRoleCounts[MissionRoleFor(m.Type)]++
		}
	}
	idleOpus := 0
	for _, a := range report.Agents {
		if a.Status == registry.StatusIdle && a.Model == registry.TierOpus {
			idleOpus++
		}
	}
	if complexBacklog >= thresholds.TaskComplexityBacklog && idleOpus == 0 {
		decisions = append(decisions, ProactiveSpawnDecision{
			ShouldSpawn:    true,
			Reason:         "complex-tier backlog at or above threshold with zero idle opus agents",
			SuggestedRole:  mostFrequentRole(complexRoleCounts),
			SuggestedModel: registry.TierOpus,
			Urgency:        UrgencyImmediate,
		})
	}

	// Rule 4: for each currently-busy role, idle agents of that role below minimum.
	busyRoles := make(map[registry.Role]bool)
	for _, a := range report.Agents {
		if a.Status == registry.StatusBusy {
			busyRoles[a.Role] = true
		}
	}
	for role := range busyRoles {
		if idleByRole[role] < thresholds.IdleAgentMinimum {
			decisions = append(decisions, ProactiveSpawnDecision{
				ShouldSpawn:    true,
				Reason:         "busy role has fewer idle agents than the configured minimum",
				SuggestedRole:  role,
				SuggestedModel: registry.TierSonnet,
				Urgency:        UrgencyOptional,
			})
		}
	}

	return decisions
}

func mostFrequentRole(counts map[registry.Role]int) registry.Role {
	var best registry.Role
	bestCount := -1
	roles := make([]registry.Role, 0, len(counts))
	for r := range counts {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, r := range roles {
		if counts[r] > bestCount {
			best = r
			bestCount = counts[r]
		}
	}
	return best
}

// SpawnFunc spawns a single agent of the given role/model; returns an
// error if the spawn could not be performed.
type SpawnFunc func(role registry.Role, model registry.ModelTier, reason string) error

// ExecuteProactiveSpawning sorts decisions by urgency, spawns
// immediate/soon decisions up to thresholds.MaxSpawnsPerTick, and skips
// optional ones entirely.
func ExecuteProactiveSpawning(decisions []ProactiveSpawnDecision, thresholds SpawnThresholds, spawn SpawnFunc) (spawned int, errs []error) {
	maxSpawns := thresholds.MaxSpawnsPerTick
	if maxSpawns <= 0 {
		maxSpawns = 3
	}

	actionable := make([]ProactiveSpawnDecision, 0, len(decisions))
	for _, d := range decisions {
		if d.ShouldSpawn && d.Urgency != UrgencyOptional {
			actionable = append(actionable, d)
		}
	}
	sort.SliceStable(actionable, func(i, j int) bool {
		return actionable[i].Urgency.rank() < actionable[j].Urgency.rank()
	})

	for _, d := range actionable {
		if spawned >= maxSpawns {
			break
		}
		if err := spawn(d.SuggestedRole, d.SuggestedModel, d.Reason); err != nil {
			errs = append(errs, err)
			continue
		}
		spawned++
	}
	return spawned, errs
}
