// Package decompose splits a task prompt into an ordered chain of
// subtasks when it looks like it bundles more than one piece of work.
package decompose

import (
	"fmt"
	"strings"

	"github.com/orcakit/core/internal/registry"
)

const maxSubtasks = 10

// ExecutionOrder classifies how a decomposed task's subtasks relate.
type ExecutionOrder string

const (
	OrderSequential ExecutionOrder = "sequential"
	OrderParallel   ExecutionOrder = "parallel"
	OrderMixed      ExecutionOrder = "mixed"
)

// Subtask is one unit of a decomposed plan.
type Subtask struct {
	ID                  string
	Prompt              string
	RecommendedRole     registry.Role
	RecommendedModel    registry.ModelTier
	DependsOn           []string
	EstimatedComplexity string
}

// DecomposedTask is the decomposer's output.
type DecomposedTask struct {
	OriginalTask             string
	Subtasks                 []Subtask
	Dependencies             map[string][]string
	ExecutionOrder           ExecutionOrder
	TotalEstimatedComplexity string
}

// ComplexityAnalyzer is the narrow capability borrowed from the oracle
// package to decide a subtask's tier and model.
type ComplexityAnalyzer interface {
	AnalyzeComplexity(prompt, context string) (tier string, model registry.ModelTier)
}

// LLMDecomposer is an optional capability: given a task and context,
// return a full decomposition. Any error falls back to the heuristic path.
type LLMDecomposer interface {
	Decompose(task, context string) (*DecomposedTask, error)
}

// Decomposer splits tasks via an ordered-verb heuristic, with an
// optional LLM path for richer decompositions.
type Decomposer struct {
	complexity ComplexityAnalyzer
	llm        LLMDecomposer
}

func New(complexity ComplexityAnalyzer, llm LLMDecomposer) *Decomposer {
	return &Decomposer{complexity: complexity, llm: llm}
}

type verbStage struct {
	name     string
	keywords []string
	role     registry.Role
}

// stages is checked in this fixed order: the heuristic chains whichever
// stages match, each depending on the previous matched one.
var stages = []verbStage{
	{"analyze", []string{"analyze", "investigate", "research", "understand"}, registry.RoleAnalyst},
	{"implement", []string{"implement", "build", "write code", "add", "fix"}, registry.RoleCoder},
	{"test", []string{"test", "verify", "validate"}, registry.RoleTester},
	{"document", []string{"document", "write docs", "readme"}, registry.RoleScribe},
	{"review", []string{"review", "critique"}, registry.RoleReviewer},
}

// Decompose splits task into a DecomposedTask. If an LLM decomposer is
// configured it is tried first; any error falls back to the heuristic.
func (d *Decomposer) Decompose(task, context string) (*DecomposedTask, error) {
	tier, model := "moderate", registry.TierSonnet
	if d.complexity != nil {
		tier, model = d.complexity.AnalyzeComplexity(task, context)
	}

	if tier == "simple" {
		return &DecomposedTask{
			OriginalTask: task,
			Subtasks: []Subtask{{
				ID:                   "1",
				Prompt:               task,
				RecommendedRole:      registry.RoleGeneralist,
				RecommendedModel:     model,
				EstimatedComplexity:  tier,
			}},
			Dependencies:              map[string][]string{},
			ExecutionOrder:            OrderSequential,
			TotalEstimatedComplexity:  tier,
		}, nil
	}

	if d.llm != nil {
		if dt, err := d.llm.Decompose(task, context); err == nil && dt != nil {
			return dt, nil
		}
	}

	return d.decomposeHeuristic(task, context, tier, model), nil
}

func (d *Decomposer) decomposeHeuristic(task, context, tier string, model registry.ModelTier) *DecomposedTask {
	text := strings.ToLower(task + " " + context)

	var matched []verbStage
	for _, s := range stages {
		if containsKeyword(text, s.keywords) {
			matched = append(matched, s)
		}
	}

	if len(matched) == 0 {
		matched = []verbStage{{"general", nil, registry.RoleGeneralist}}
	}
	if len(matched) > maxSubtasks {
		matched = matched[:maxSubtasks]
	}

	subtasks := make([]Subtask, 0, len(matched))
	deps := make(map[string][]string, len(matched))
	var prevID string
	for i, s := range matched {
		id := fmt.Sprintf("%d", i+1)
		var dependsOn []string
		if prevID != "" {
			dependsOn = []string{prevID}
		}
		subtasks = append(subtasks, Subtask{
			ID:                  id,
			Prompt:              stagePrompt(s.name, task),
			RecommendedRole:     s.role,
			RecommendedModel:    model,
			DependsOn:           dependsOn,
			EstimatedComplexity: tier,
		})
		deps[id] = dependsOn
		prevID = id
	}

	return &DecomposedTask{
		OriginalTask:              task,
		Subtasks:                  subtasks,
		Dependencies:              deps,
		ExecutionOrder:            classifyOrder(subtasks),
		TotalEstimatedComplexity:  tier,
	}
}

func stagePrompt(stage, task string) string {
	if stage == "general" {
		return task
	}
	return fmt.Sprintf("%s: %s", stage, task)
}

func containsKeyword(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// classifyOrder reports sequential when every non-first subtask has a
// dependency, parallel when none does, mixed otherwise.
func classifyOrder(subtasks []Subtask) ExecutionOrder {
	if len(subtasks) <= 1 {
		return OrderSequential
	}
	withDeps := 0
	for _, s := range subtasks[1:] {
		if len(s.DependsOn) > 0 {
			withDeps++
		}
	}
	switch {
	case withDeps == len(subtasks)-1:
		return OrderSequential
	case withDeps == 0:
		return OrderParallel
	default:
		return OrderMixed
	}
}
