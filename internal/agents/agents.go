// Package agents implements the LLM-backed capability providers: planning,
// replanning and free-form queries.
//
// All agents share one Generator, normally an *llm.Client, so its response
// cache is shared too.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const plannerSystemPrompt = "Decompose NL command into Git subtasks. Respond JSON {'subtasks': [...] }."

// PlannerAgent decomposes commands into subtasks.
type PlannerAgent struct {
	llm Generator
}

// NewPlannerAgent creates a planner over llm.
func NewPlannerAgent(llm Generator) *PlannerAgent {
	return &PlannerAgent{llm: llm}
}

// Decompose asks the model for a subtask list. A response that is not a
// JSON object with a "subtasks" string array yields [command]. Only
// generation errors are returned.
func (a *PlannerAgent) Decompose(ctx context.Context, command string) ([]string, error) {
	prompt := plannerSystemPrompt + "\nCommand: " + command
	response, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	return parseSubtasks(response, command), nil
}

func parseSubtasks(response, command string) []string {
	var data struct {
		Subtasks *[]string `json:"subtasks"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &data); err != nil || data.Subtasks == nil {
		return []string{command}
	}
	return *data.Subtasks
}

// extractJSON trims anything around the outermost JSON object, such as a
// markdown code fence.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// DebugAgent proposes a new plan after a classified failure.
type DebugAgent struct {
	llm Generator
}

// NewDebugAgent creates a debug agent over llm.
func NewDebugAgent(llm Generator) *DebugAgent {
	return &DebugAgent{llm: llm}
}

// RePlan asks the model to replan for the alternative strategy.
func (a *DebugAgent) RePlan(ctx context.Context, alternative, contextID string) (string, error) {
	plan, err := a.llm.Generate(ctx, "Re-plan for error: "+alternative)
	if err != nil {
		return "", fmt.Errorf("re-plan: %w", err)
	}
	return plan, nil
}

// LLMAgent answers free-form queries.
type LLMAgent struct {
	llm Generator
}

// NewLLMAgent creates a query agent over llm.
func NewLLMAgent(llm Generator) *LLMAgent {
	return &LLMAgent{llm: llm}
}

// Generate passes prompt straight to the model.
func (a *LLMAgent) Generate(ctx context.Context, prompt string) (string, error) {
	return a.llm.Generate(ctx, prompt)
}
