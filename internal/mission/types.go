// Package mission defines the orchestration core's unit of work and its
// priority-ordered, dependency-aware queue.
package mission

import (
	"fmt"
	"time"
)

// Priority is one of the four scheduling bands. Lower numeric value sorts first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParsePriority validates and converts a wire-level priority string into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	default:
		return 0, fmt.Errorf("%w: priority %q", ErrValidation, s)
	}
}

// Type classifies the kind of work a mission represents; it also drives
// role routing (see internal/oracle's mission-to-role map).
type Type string

const (
	TypeExtraction Type = "extraction"
	TypeAnalysis   Type = "analysis"
	TypeSynthesis  Type = "synthesis"
	TypeReview     Type = "review"
	TypeGeneral    Type = "general"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeExtraction, TypeAnalysis, TypeSynthesis, TypeReview, TypeGeneral:
		return Type(s), nil
	case "":
		return TypeGeneral, nil
	default:
		return "", fmt.Errorf("%w: type %q", ErrValidation, s)
	}
}

// Status is the mission lifecycle state (spec.md §4.2 state machine).
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
	StatusBlocked   Status = "blocked"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether a status can never transition again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// FailureKind is the closed taxonomy of mission failure reasons (spec.md §7).
type FailureKind string

const (
	FailureTimeout    FailureKind = "timeout"
	FailureCrash      FailureKind = "crash"
	FailureValidation FailureKind = "validation"
	FailureResource   FailureKind = "resource"
	FailureAuth       FailureKind = "auth"
	FailureRateLimit  FailureKind = "rate_limit"
	FailureUnknown    FailureKind = "unknown"
)

// Recoverable reports whether this failure kind is eligible for retry.
// recoverable = {timeout, rate_limit, resource}, per spec.md §4.2/§7.
func (k FailureKind) Recoverable() bool {
	switch k {
	case FailureTimeout, FailureRateLimit, FailureResource:
		return true
	default:
		return false
	}
}

// MissionError records why a mission failed.
type MissionError struct {
	Kind        FailureKind `json:"kind"`
	Message     string      `json:"message"`
	Recoverable bool        `json:"recoverable"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Result records a successful mission outcome.
type Result struct {
	Output        string `json:"output"`
	DurationMs    int64  `json:"duration_ms"`
	InputTokens   int64  `json:"input_tokens,omitempty"`
	OutputTokens  int64  `json:"output_tokens,omitempty"`
}

// Mission is the atomic unit of scheduled work (spec.md §3).
type Mission struct {
	ID            string
	Prompt        string
	Context       string
	Priority      Priority
	Type          Type
	Status        Status
	TimeoutMs     int64
	MaxRetries    int
	RetryCount    int
	RetryDelayMs  int64
	DependsOn     []string
	AssignedTo    string
	Error         *MissionError
	Result        *Result
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	ExecutionID   string
	ParentID      string
	RequirementID string

	// LastCheckpoint records the most recent liveness signal reported by
	// the executing agent (see delivery.EventAgentHeartbeat). A recent
	// checkpoint lets EnforceTimeouts extend a mission nearing its
	// deadline instead of failing it outright.
	LastCheckpoint *time.Time
}

// Validate enforces the field-level invariants spec.md requires at enqueue time.
func (m *Mission) Validate() error {
	if m.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	if m.TimeoutMs <= 0 {
		return fmt.Errorf("%w: timeoutMs must be positive", ErrValidation)
	}
	if m.MaxRetries < 0 {
		return fmt.Errorf("%w: maxRetries must be >= 0", ErrValidation)
	}
	if m.RetryCount < 0 || m.RetryCount > m.MaxRetries {
		return fmt.Errorf("%w: retryCount must be between 0 and maxRetries", ErrValidation)
	}
	return nil
}

// Clone returns a deep-enough copy safe to hand to callers outside the queue's lock.
func (m *Mission) Clone() *Mission {
	c := *m
	if m.DependsOn != nil {
		c.DependsOn = append([]string(nil), m.DependsOn...)
	}
	if m.Error != nil {
		e := *m.Error
		c.Error = &e
	}
	if m.Result != nil {
		r := *m.Result
		c.Result = &r
	}
	if m.StartedAt != nil {
		t := *m.StartedAt
		c.StartedAt = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	if m.LastCheckpoint != nil {
		t := *m.LastCheckpoint
		c.LastCheckpoint = &t
	}
	return &c
}
