package registry

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Persister is the narrow durability capability the registry calls after
// every agent state change so a restart has something to reload via
// LoadFromDB. store.DB satisfies this directly.
type Persister interface {
	SaveAgent(a *Agent) error
}

// Registry tracks every live agent by numeric id, under a single
// read-write mutex, following the monitor's in-memory-index-plus-lock
// idiom generalized from a slice-and-map pair to a pure map since agents
// (unlike missions) have no inherent priority ordering.
type Registry struct {
	mu        sync.RWMutex
	agents    map[int]*Agent
	handles   map[int]Handle
	nextID    int
	substrate PTYSubstrate
	publisher EventPublisher
	persister Persister
}

// New creates an empty registry. A nil publisher is replaced with a
// no-op so callers never need a nil check before Publish.
func New(substrate PTYSubstrate, publisher EventPublisher) *Registry {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Registry{
		agents:    make(map[int]*Agent),
		handles:   make(map[int]Handle),
		substrate: substrate,
		publisher: publisher,
	}
}

// SetPersister wires a durability backend into the registry. Call once at
// startup after LoadFromDB so the reload itself isn't re-persisted.
func (r *Registry) SetPersister(p Persister) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persister = p
}

// persist saves a snapshot of agent outside any lock the caller holds.
func (r *Registry) persist(agent *Agent) {
	r.mu.RLock()
	p := r.persister
	r.mu.RUnlock()
	if p == nil {
		return
	}
	if err := p.SaveAgent(agent.Clone()); err != nil {
		log.Printf("registry: persist agent %d: %v", agent.ID, err)
	}
}

func (r *Registry) publish(kind EventKind, agentID int, missionID, detail string) {
	r.publisher.Publish(Event{
		Kind:      kind,
		AgentID:   agentID,
		MissionID: missionID,
		Occurred:  time.Now(),
		Detail:    detail,
	})
}

// SpawnAgent creates a durable agent row in status starting and acquires
// a PTY handle from the substrate.
func (r *Registry) SpawnAgent(cfg Config) (*Agent, error) {
	pid, handle, err := r.substrate.Spawn(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	now := time.Now()
	agent := &Agent{
		ID:           id,
		Name:         cfg.Name,
		Role:         cfg.Role,
		Model:        cfg.Model,
		Status:       StatusStarting,
		PID:          pid,
		CreatedAt:    now,
		UpdatedAt:    now,
		WorktreePath: cfg.WorktreePath,
	}
	r.agents[id] = agent
	r.handles[id] = handle
	r.mu.Unlock()

	r.persist(agent)
	r.publish(EventSpawn, id, "", fmt.Sprintf("spawned %s (pid %d)", cfg.Name, pid))
	return agent.Clone(), nil
}

// SpawnPool spawns n agents from the same config, stopping at the first
// failure and returning whatever succeeded alongside the error.
func (r *Registry) SpawnPool(n int, cfg Config) ([]*Agent, error) {
	agents := make([]*Agent, 0, n)
	for i := 0; i < n; i++ {
		a, err := r.SpawnAgent(cfg)
		if err != nil {
			return agents, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// Kill terminates an agent's PTY handle and marks it stopped.
func (r *Registry) Kill(id int) error {
	r.mu.Lock()
	agent, ok := r.agents[id]
	handle, hasHandle := r.handles[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}

	if hasHandle {
		if err := r.substrate.Kill(handle); err != nil {
			return err
		}
	}

	r.mu.Lock()
	agent.Status = StatusStopped
	agent.UpdatedAt = time.Now()
	r.mu.Unlock()
	r.persist(agent)
	return nil
}

// Restart kills and re-spawns an agent under the same configuration,
// publishing a restart event distinct from a fresh spawn.
func (r *Registry) Restart(id int) (*Agent, error) {
	r.mu.RLock()
	agent, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}

	cfg := Config{
		Name:         agent.Name,
		Role:         agent.Role,
		Model:        agent.Model,
		WorktreePath: agent.WorktreePath,
	}

	if err := r.Kill(id); err != nil {
		return nil, err
	}

	restarted, err := r.SpawnAgent(cfg)
	if err != nil {
		return nil, err
	}
	r.publish(EventRestart, restarted.ID, "", fmt.Sprintf("restarted agent %d as %d", id, restarted.ID))
	return restarted, nil
}

// Heartbeat records that id is still alive and actively working
// missionID, publishing a heartbeat event the orchestrator's mission
// queue uses to extend a running mission nearing its timeout.
func (r *Registry) Heartbeat(id int, missionID string) error {
	r.mu.RLock()
	_, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	r.publish(EventHeartbeat, id, missionID, "")
	return nil
}

// HealthCheck probes PID liveness and marks the agent crashed if the
// process has died without a corresponding Kill.
func (r *Registry) HealthCheck(id int) (Status, error) {
	r.mu.Lock()
	agent, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	if !agent.Status.IsLive() {
		status := agent.Status
		r.mu.Unlock()
		return status, nil
	}
	crashed := !r.substrate.IsAlive(agent.PID)
	if crashed {
		agent.Status = StatusCrashed
		agent.UpdatedAt = time.Now()
	}
	status := agent.Status
	snapshot := agent.Clone()
	r.mu.Unlock()

	if crashed {
		r.persist(snapshot)
		r.publish(EventCrash, id, "", "health check found process dead")
	} else {
		r.publish(EventHealth, id, "", "alive")
	}
	return status, nil
}

// GetAvailableAgent prefers an idle agent matching role, then any idle
// generalist, then any idle agent at all. A zero-value role skips the
// first step, so an idle generalist is still preferred over other idle
// agents.
func (r *Registry) GetAvailableAgent(role Role) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var byRole, generalist, anyIdle *Agent
	for _, a := range r.agents {
		if a.Status != StatusIdle {
			continue
		}
		if anyIdle == nil {
			anyIdle = a
		}
		if role != "" && a.Role == role && byRole == nil {
			byRole = a
		}
		if a.Role == RoleGeneralist && generalist == nil {
			generalist = a
		}
	}

	switch {
	case byRole != nil:
		return byRole.Clone(), nil
	case generalist != nil:
		return generalist.Clone(), nil
	case anyIdle != nil:
		return anyIdle.Clone(), nil
	default:
		return nil, ErrNoneAvailable
	}
}

// GetLeastBusyAgent returns the live agent with the lowest
// tasksCompleted+tasksFailed workload.
func (r *Registry) GetLeastBusyAgent() (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Agent
	bestLoad := -1
	for _, a := range r.agents {
		if !a.Status.IsLive() {
			continue
		}
		load := a.TasksCompleted + a.TasksFailed
		if bestLoad == -1 || load < bestLoad {
			best = a
			bestLoad = load
		}
	}
	if best == nil {
		return nil, ErrNoneAvailable
	}
	return best.Clone(), nil
}

// AssignRole changes an agent's role, e.g. after a supervisor reassignment.
func (r *Registry) AssignRole(id int, role Role) error {
	r.mu.Lock()
	agent, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	agent.Role = role
	agent.UpdatedAt = time.Now()
	snapshot := agent.Clone()
	r.mu.Unlock()

	r.persist(snapshot)
	return nil
}

// GetSpecialists returns clones of every live agent with the given role.
func (r *Registry) GetSpecialists(role Role) []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Agent
	for _, a := range r.agents {
		if a.Role == role && a.Status.IsLive() {
			result = append(result, a.Clone())
		}
	}
	return result
}

// GetAgentsByModel returns clones of every live agent running the given
// model tier.
func (r *Registry) GetAgentsByModel(tier ModelTier) []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Agent
	for _, a := range r.agents {
		if a.Model == tier && a.Status.IsLive() {
			result = append(result, a.Clone())
		}
	}
	return result
}

// AssignMission marks an agent busy and records the mission it is
// currently executing.
func (r *Registry) AssignMission(agentID int, missionID string) error {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("agent %d: %w", agentID, ErrNotFound)
	}
	agent.Status = StatusBusy
	agent.CurrentMissionID = missionID
	agent.UpdatedAt = time.Now()
	snapshot := agent.Clone()
	r.mu.Unlock()

	r.persist(snapshot)
	r.publish(EventTaskStart, agentID, missionID, "")
	return nil
}

// CompleteTask records the outcome of the agent's current mission,
// updates its counters, and returns it to idle.
func (r *Registry) CompleteTask(missionID string, success bool) error {
	r.mu.Lock()
	var agent *Agent
	for _, a := range r.agents {
		if a.CurrentMissionID == missionID {
			agent = a
			break
		}
	}
	if agent == nil {
		r.mu.Unlock()
		return fmt.Errorf("mission %s: %w", missionID, ErrNotFound)
	}

	if success {
		agent.TasksCompleted++
	} else {
		agent.TasksFailed++
	}
	agent.CurrentMissionID = ""
	agent.Status = StatusIdle
	agent.UpdatedAt = time.Now()
	id := agent.ID
	snapshot := agent.Clone()
	r.mu.Unlock()

	r.persist(snapshot)
	kind := EventTaskComplete
	if !success {
		kind = EventTaskFail
	}
	r.publish(kind, id, missionID, "")
	r.publish(EventIdle, id, "", "")
	return nil
}

// GetByID returns a clone of the agent with the given id.
func (r *Registry) GetByID(id int) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	return a.Clone(), nil
}

// All returns clones of every tracked agent.
func (r *Registry) All() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		result = append(result, a.Clone())
	}
	return result
}

// LoadFromDB repopulates the registry from a durable snapshot taken
// before restart. Every reloaded agent is marked crashed, since its PID
// belonged to the previous process and the substrate holds no handle
// for it; a supervisor must restart whichever agents it wants back.
func (r *Registry) LoadFromDB(agents []*Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range agents {
		if a.Status.IsLive() {
			a.Status = StatusCrashed
		}
		r.agents[a.ID] = a
		if a.ID > r.nextID {
			r.nextID = a.ID
		}
	}
}

// CleanupStale scans for live-flagged agents whose process has actually
// died and marks them crashed, mirroring the monitor's stale-agent sweep.
func (r *Registry) CleanupStale() []int {
	r.mu.Lock()
	var stale []int
	var snapshots []*Agent
	for id, a := range r.agents {
		if a.Status.IsLive() && !r.substrate.IsAlive(a.PID) {
			a.Status = StatusCrashed
			a.UpdatedAt = time.Now()
			stale = append(stale, id)
			snapshots = append(snapshots, a.Clone())
		}
	}
	r.mu.Unlock()

	for _, a := range snapshots {
		r.persist(a)
	}
	for _, id := range stale {
		r.publish(EventCrash, id, "", "stale agent cleanup")
	}
	return stale
}
