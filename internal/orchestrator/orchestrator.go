// Package orchestrator wires the store, registry, mission queue, oracle,
// notification manager, and Submission API into a single process
// lifecycle: open and migrate storage, reload queued work, start the
// background loops, and serve HTTP until asked to stop.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orcakit/core/internal/api"
	"github.com/orcakit/core/internal/decompose"
	"github.com/orcakit/core/internal/delivery"
	"github.com/orcakit/core/internal/learning"
	"github.com/orcakit/core/internal/mission"
	"github.com/orcakit/core/internal/notifications"
	"github.com/orcakit/core/internal/oracle"
	"github.com/orcakit/core/internal/registry"
	"github.com/orcakit/core/internal/resilience"
	"github.com/orcakit/core/internal/router"
	"github.com/orcakit/core/internal/store"
)

// Config controls every externally-tunable knob of a running instance.
// Loading it from a file or flags is the caller's responsibility; the
// orchestrator itself only consumes the resolved struct.
type Config struct {
	Addr             string
	DBPath           string
	AgentBinary      string
	AgentArgs        []string
	OptimizeInterval time.Duration
	TimeoutInterval  time.Duration
	DispatchInterval time.Duration
	FeedbackInterval time.Duration
	Notifications    notifications.Config
	NotifyChannels   []notifications.Channel
}

// DefaultConfig returns sane values for local development.
func DefaultConfig() Config {
	return Config{
		Addr:             ":7420",
		DBPath:           "data/orcakit.db",
		OptimizeInterval: 30 * time.Second,
		TimeoutInterval:  10 * time.Second,
		DispatchInterval: 2 * time.Second,
		FeedbackInterval: 15 * time.Second,
		Notifications:    notifications.Config{EnableTerminal: true, EnableBanner: true},
	}
}

// Orchestrator owns every long-lived component and the goroutines that
// drive them.
type Orchestrator struct {
	cfg Config

	db             *store.DB
	bus            *delivery.Bus
	inbox          *delivery.Inbox
	registry       *registry.Registry
	queue          *mission.Queue
	oracle         *oracle.Oracle
	router         *router.Router
	decomposer     *decompose.Decomposer
	knowledge      *learning.SemanticIndex
	knowledgeBrk   *resilience.Breaker
	knowledgeRetry resilience.RetryPolicy
	notifier       *notifications.Manager
	server         *api.Server
	httpSrv        *http.Server

	harvested map[string]bool
	stop      chan struct{}
}

// New opens storage, reloads pending work, and wires every component.
// It does not start background loops or the HTTP listener; call Start
// for that.
func New(cfg Config) (*Orchestrator, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open store: %w", err)
	}

	bus := delivery.NewBus(nil)
	notifier := notifications.NewManager(cfg.Notifications, cfg.NotifyChannels)
	notifier.SetTerminalTitle("orcakit")

	substrate := registry.NewExecSubstrate(cfg.AgentBinary, cfg.AgentArgs...)
	reg := registry.New(substrate, &busEventPublisher{bus: bus})

	queue := mission.NewQueue()
	pending, err := db.LoadPendingMissions()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("orchestrator: load pending missions: %w", err)
	}
	queue.LoadFromDB(pending)
	queue.SetPersister(db)

	agents, err := db.ListAgents()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("orchestrator: load agents: %w", err)
	}
	reg.LoadFromDB(agents)
	reg.SetPersister(db)

	inbox := delivery.NewInbox(db)

	oc := oracle.New(reg, queue, spawnFunc(reg, substrate, bus), &queuePatternSource{queue: queue})
	analyzer := oracle.Analyzer{}
	rt := router.New(analyzer, nil)
	dc := decompose.New(analyzer, nil)
	knowledge := learning.NewSemanticIndex(db)

	srv := api.NewServer(reg, queue, notifier)

	return &Orchestrator{
		cfg:            cfg,
		db:             db,
		bus:            bus,
		inbox:          inbox,
		registry:       reg,
		queue:          queue,
		oracle:         oc,
		router:         rt,
		decomposer:     dc,
		knowledge:      knowledge,
		knowledgeBrk:   resilience.NewBreaker(5, 30*time.Second),
		knowledgeRetry: resilience.DefaultRetryPolicy(),
		notifier:       notifier,
		server:         srv,
		httpSrv:        &http.Server{Addr: cfg.Addr, Handler: srv},
		harvested:      make(map[string]bool),
		stop:           make(chan struct{}),
	}, nil
}

// Start launches the HTTP listener and every background loop. It
// returns once the listener is confirmed bound; loops and the server
// itself keep running in their own goroutines until Shutdown is called.
func (o *Orchestrator) Start() error {
	ln := make(chan error, 1)
	go func() {
		ln <- o.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-ln:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("orchestrator: listen: %w", err)
		}
	case <-time.After(200 * time.Millisecond):
	}

	go o.server.Hub.Run()
	go o.server.Hub.FeedFrom(o.bus, o.stop)
	go o.runOptimizeLoop()
	go o.runTimeoutLoop()
	go o.runDispatchLoop()
	go o.runFeedbackLoop()
	go o.runHeartbeatLoop()

	log.Printf("[ORCHESTRATOR] listening on %s", o.cfg.Addr)
	return nil
}

// Shutdown stops every background loop and drains the HTTP server
// within ctx's deadline, then closes storage.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	close(o.stop)

	if err := o.httpSrv.Shutdown(ctx); err != nil {
		log.Printf("[ORCHESTRATOR] http shutdown: %v", err)
	}

	return o.db.Close()
}

func (o *Orchestrator) runOptimizeLoop() {
	ticker := time.NewTicker(o.cfg.OptimizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case now := <-ticker.C:
			summary := o.oracle.AutoOptimize(now)
			for _, b := range summary.Bottlenecks {
				o.notifier.Notify(notifications.Alert{
					ID:        fmt.Sprintf("bottleneck-%d", now.UnixNano()),
					Kind:      notifications.KindBottleneck,
					Severity:  severityForBottleneck(b.Severity),
					Message:   b.Detail,
					Source:    string(b.Kind),
					CreatedAt: now,
				})
			}
			for _, err := range summary.SpawnErrors {
				o.notifier.Notify(notifications.Alert{
					ID:        fmt.Sprintf("spawn-fault-%d", now.UnixNano()),
					Kind:      notifications.KindSpawnFault,
					Severity:  notifications.SeverityHigh,
					Message:   err.Error(),
					Source:    "oracle.spawn",
					CreatedAt: now,
				})
			}
		}
	}
}

func (o *Orchestrator) runTimeoutLoop() {
	ticker := time.NewTicker(o.cfg.TimeoutInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case now := <-ticker.C:
			o.queue.EnforceTimeouts(now)
		}
	}
}

// runDispatchLoop claims ready missions off the queue and hands each to
// an available agent: the router picks a role from the prompt, the
// registry finds (or fails to find) an idle agent for that role, and a
// mission_dispatched event carries the assignment to the agent process
// over the delivery substrate. A mission that can't be matched to a live
// agent is failed as a recoverable resource error: the queue retries it
// after a backoff, each such miss uses one of its retries, and it fails
// for good once MaxRetries is spent.
func (o *Orchestrator) runDispatchLoop() {
	ticker := time.NewTicker(o.cfg.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.dispatchOnce()
		}
	}
}

// runFeedbackLoop scans newly-terminal missions for learnable insights
// and indexes them, so a later complexity estimate or subtask prompt can
// surface what earlier missions of the same shape ran into. A mission is
// harvested at most once, tracked by id in the harvested set.
func (o *Orchestrator) runFeedbackLoop() {
	ticker := time.NewTicker(o.cfg.FeedbackInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.harvestOnce()
		}
	}
}

// runHeartbeatLoop consumes agent heartbeat events off the bus and
// stamps the corresponding mission's checkpoint, so EnforceTimeouts can
// extend a mission that is still being actively worked instead of
// failing it the moment its deadline passes.
func (o *Orchestrator) runHeartbeatLoop() {
	ch := o.bus.Subscribe("all", []delivery.EventType{delivery.EventAgentHeartbeat})
	defer o.bus.Unsubscribe("all", ch)

	for {
		select {
		case <-o.stop:
			return
		case event := <-ch:
			missionID, _ := event.Payload["mission_id"].(string)
			if missionID == "" {
				continue
			}
			if err := o.queue.RecordCheckpoint(missionID, event.CreatedAt); err != nil {
				log.Printf("[ORCHESTRATOR] record checkpoint for mission %s: %v", missionID, err)
			}
		}
	}
}

// harvestOnce indexes every freshly-completed mission's insights through
// the knowledge store's breaker: a run of failed writes (a wedged disk,
// a corrupt index) opens the breaker rather than blocking the loop or
// retrying forever. While it is open, insights are logged and dropped
// until the cooldown lets a probe write through again; searches are not
// affected by the breaker.
func (o *Orchestrator) harvestOnce() {
	now := time.Now()

	for _, m := range o.queue.GetByStatus(mission.StatusCompleted) {
		if o.harvested[m.ID] {
			continue
		}
		o.harvested[m.ID] = true

		for _, insight := range learning.HarvestFromMission(m) {
			if err := o.knowledgeBrk.Allow(now); err != nil {
				log.Printf("[ORCHESTRATOR] knowledge store marked stale, dropping insight from mission %s: %v", m.ID, err)
				continue
			}

			err := o.knowledgeRetry.Do(context.Background(), func(ctx context.Context) error {
				return o.knowledge.AddKnowledge(
					uuid.New().String(),
					insight.Category,
					insight.Title,
					insight.Description,
					[]string{string(insight.SourceType)},
					"mission:"+m.ID,
				)
			})
			if err != nil {
				o.knowledgeBrk.RecordFailure(now)
				log.Printf("[ORCHESTRATOR] index insight from mission %s: %v", m.ID, err)
				continue
			}
			o.knowledgeBrk.RecordSuccess()
		}
	}
}

func (o *Orchestrator) dispatchOnce() {
	for {
		execID := uuid.New().String()
		m := o.queue.Claim(execID)
		if m == nil {
			return
		}

		decision := o.router.Route(m.Prompt, m.Context, router.QueueState{
			QueueDepth: o.queue.Len(),
		}, "", nil)

		if decision.ShouldDecompose {
			if err := o.decomposeAndEnqueue(m); err != nil {
				_, _ = o.queue.Fail(m.ID, &mission.MissionError{
					Kind:        mission.FailureUnknown,
					Message:     "decomposition failed: " + err.Error(),
					Recoverable: false,
					OccurredAt:  time.Now(),
				})
			}
			continue
		}

		agent, err := o.registry.GetAvailableAgent(decision.RecommendedRole)
		if err != nil {
			// No free agent for this role right now; hand it to the
			// retry-with-backoff path and stop this tick rather than
			// busy-loop claiming the same mission.
			_, _ = o.queue.Fail(m.ID, &mission.MissionError{
				Kind:        mission.FailureResource,
				Message:     "no available agent for role " + string(decision.RecommendedRole),
				Recoverable: true,
				OccurredAt:  time.Now(),
			})
			return
		}

		agentID := fmt.Sprintf("%d", agent.ID)
		claimed, err := o.inbox.Claim(m.ID, agentID, execID)
		if err != nil {
			log.Printf("[ORCHESTRATOR] durable claim for mission %s: %v", m.ID, err)
		}
		if !claimed {
			// Lost the durable claim race to a redelivered dispatch or a
			// second orchestrator process; release the in-memory
			// reservation and stop this tick rather than spin reclaiming
			// the same mission immediately.
			_ = o.queue.Requeue(m.ID)
			return
		}

		if err := o.registry.AssignMission(agent.ID, m.ID); err != nil {
			_, _ = o.queue.Fail(m.ID, &mission.MissionError{
				Kind:        mission.FailureUnknown,
				Message:     err.Error(),
				Recoverable: true,
				OccurredAt:  time.Now(),
			})
			return
		}
		if err := o.queue.MarkAssigned(m.ID, agentID); err != nil {
			log.Printf("[ORCHESTRATOR] mark assigned for mission %s: %v", m.ID, err)
		}

		o.bus.Publish(delivery.NewEvent(
			delivery.EventMissionDispatched,
			"dispatcher",
			fmt.Sprintf("agent-%d", agent.ID),
			int(m.Priority)+1,
			map[string]interface{}{
				"mission_id":   m.ID,
				"prompt":       m.Prompt,
				"context":      m.Context,
				"execution_id": execID,
			},
		))
	}
}

// decomposeAndEnqueue replaces a bundled mission with its subtask chain:
// each subtask becomes its own queued mission carrying ParentID and
// translated DependsOn edges, and the original mission is marked
// completed once every subtask has been enqueued. Completing the
// original unblocks its own dependents at once: their DependsOn edges
// still name the original and are not redirected to the subtasks, so
// they do not wait for the subtasks to finish.
func (o *Orchestrator) decomposeAndEnqueue(m *mission.Mission) error {
	plan, err := o.decomposer.Decompose(m.Prompt, m.Context)
	if err != nil {
		return err
	}

	queueID := make(map[string]string, len(plan.Subtasks))
	for _, st := range plan.Subtasks {
		queueID[st.ID] = uuid.New().String()
	}

	for _, st := range plan.Subtasks {
		var dependsOn []string
		for _, localDep := range st.DependsOn {
			dependsOn = append(dependsOn, queueID[localDep])
		}

		sub := &mission.Mission{
			ID:         queueID[st.ID],
			Prompt:     st.Prompt,
			Context:    m.Context,
			Priority:   m.Priority,
			Type:       m.Type,
			TimeoutMs:  m.TimeoutMs,
			MaxRetries: m.MaxRetries,
			DependsOn:  dependsOn,
			ParentID:   m.ID,
			CreatedAt:  time.Now(),
		}
		if err := o.queue.Enqueue(sub); err != nil {
			return fmt.Errorf("enqueue subtask %s: %w", sub.ID, err)
		}
	}

	return o.queue.Complete(m.ID, &mission.Result{
		Output: fmt.Sprintf("decomposed into %d subtasks", len(plan.Subtasks)),
	})
}

// queuePatternSource adapts the mission queue's full history onto the
// oracle's narrow PatternSource capability, running the same detector
// internal/learning exposes for the feedback loop's pattern harvesting.
type queuePatternSource struct {
	queue *mission.Queue
}

func (s *queuePatternSource) RecentPatterns(windowSize int) []string {
	patterns := learning.DetectPatterns(s.queue.All(), windowSize)
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.Description
	}
	return out
}

// severityForBottleneck maps a bottleneck's unscaled severity score onto
// the notification severity bands; the threshold is deliberately coarse
// since the two scales measure different things (queue depth, failure
// rate, or DFS depth depending on kind).
func severityForBottleneck(score float64) notifications.Severity {
	switch {
	case score >= 10:
		return notifications.SeverityCritical
	case score >= 5:
		return notifications.SeverityHigh
	default:
		return notifications.SeverityNormal
	}
}

// spawnFunc adapts the registry's SpawnAgent call to oracle.SpawnFunc's
// narrower signature, defaulting ProjectPath/Env since the oracle only
// decides role and model tier.
func spawnFunc(reg *registry.Registry, substrate *registry.ExecSubstrate, bus *delivery.Bus) oracle.SpawnFunc {
	return func(role registry.Role, model registry.ModelTier, reason string) error {
		_, err := reg.SpawnAgent(registry.Config{
			Role:  role,
			Model: model,
			Name:  fmt.Sprintf("%s-%d", role, time.Now().UnixNano()),
		})
		return err
	}
}

// busEventPublisher adapts the registry's narrow EventPublisher
// capability onto the delivery substrate's richer Event envelope.
type busEventPublisher struct {
	bus *delivery.Bus
}

func (p *busEventPublisher) Publish(event registry.Event) {
	p.bus.Publish(delivery.NewEvent(
		registryEventToDeliveryType(event.Kind),
		"registry",
		"all",
		delivery.PriorityNormal,
		map[string]interface{}{
			"agent_id":   event.AgentID,
			"mission_id": event.MissionID,
			"detail":     event.Detail,
		},
	))
}

func registryEventToDeliveryType(kind registry.EventKind) delivery.EventType {
	switch kind {
	case registry.EventTaskStart:
		return delivery.EventMissionDispatched
	case registry.EventTaskComplete:
		return delivery.EventMissionCompleted
	case registry.EventTaskFail:
		return delivery.EventMissionFailed
	case registry.EventHeartbeat:
		return delivery.EventAgentHeartbeat
	default:
		return delivery.EventAgentLifecycle
	}
}
