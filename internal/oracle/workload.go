package oracle

import (
	"github.com/orcakit/core/internal/mission"
	"github.com/orcakit/core/internal/registry"
)

// MissionRoleFor maps a mission's type to the role best suited to run it.
func MissionRoleFor(t mission.Type) registry.Role {
	switch t {
	case mission.TypeExtraction:
		return registry.RoleResearcher
	case mission.TypeAnalysis:
		return registry.RoleAnalyst
	case mission.TypeSynthesis:
		return registry.RoleOracle
	case mission.TypeReview:
		return registry.RoleReviewer
	default:
		return registry.RoleGeneralist
	}
}

// AgentWorkload is one agent's per-agent contribution to a WorkloadReport.
type AgentWorkload struct {
	ID               int
	Role             registry.Role
	Model            registry.ModelTier
	Status           registry.Status
	TasksCompleted   int
	TasksFailed      int
	SuccessRate      float64
	UtilizationScore float64
}

// WorkloadReport is analyzeWorkload's output.
type WorkloadReport struct {
	Agents              []AgentWorkload
	RoleDistribution    map[registry.Role]int
	ModelDistribution   map[registry.ModelTier]int
	OverloadedCount     int
	UnderutilizedCount  int
	BottleneckRoles     []registry.Role
	MeanSuccessRate     float64
}

// AnalyzeWorkload scans the agent registry and mission queue and
// produces the per-agent and aggregate metrics spec.md §4.7 calls for.
func AnalyzeWorkload(agents []*registry.Agent, queued []*mission.Mission) WorkloadReport {
	report := WorkloadReport{
		RoleDistribution:  make(map[registry.Role]int),
		ModelDistribution: make(map[registry.ModelTier]int),
	}
	if len(agents) == 0 {
		return report
	}

	maxAttempts := 0
	for _, a := range agents {
		if total := a.TasksCompleted + a.TasksFailed; total > maxAttempts {
			maxAttempts = total
		}
	}

	var successRateSum float64
	idleByRole := make(map[registry.Role]int)

	for _, a := range agents {
		total := a.TasksCompleted + a.TasksFailed
		utilization := 0.0
		if maxAttempts > 0 {
			utilization = float64(total) / float64(maxAttempts)
		}

		w := AgentWorkload{
			ID:               a.ID,
			Role:             a.Role,
			Model:            a.Model,
			Status:           a.Status,
			TasksCompleted:   a.TasksCompleted,
			TasksFailed:      a.TasksFailed,
			SuccessRate:      a.SuccessRate(),
			UtilizationScore: utilization,
		}
		report.Agents = append(report.Agents, w)
		report.RoleDistribution[a.Role]++
		report.ModelDistribution[a.Model]++
		successRateSum += w.SuccessRate

		if a.Status == registry.StatusBusy && utilization > 0.8 {
			report.OverloadedCount++
		}
		if a.Status == registry.StatusIdle && utilization < 0.2 {
			report.UnderutilizedCount++
		}
		if a.Status == registry.StatusIdle {
			idleByRole[a.Role]++
		}
	}
	report.MeanSuccessRate = successRateSum / float64(len(agents))

	queuedByRole := make(map[registry.Role]int)
	for _, m := range queued {
		if m.Status != mission.StatusQueued && m.Status != mission.StatusPending {
			continue
		}
		queuedByRole[MissionRoleFor(m.Type)]++
	}
	for role, count := range queuedByRole {
		if count > 0 && idleByRole[role] == 0 {
			report.BottleneckRoles = append(report.BottleneckRoles, role)
		}
	}

	return report
}
