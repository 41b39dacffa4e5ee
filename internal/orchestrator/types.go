package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
)

// Markers recognised in commands, subtasks and failure output.
const (
	// NLMarker prefixes natural-language commands.
	NLMarker = "--nl"

	// InstallDepsSubtask is the dependency-install sentinel.
	InstallDepsSubtask = "check_install_deps"

	// LLMQueryPrefix prefixes subtasks answered by the LLM.
	LLMQueryPrefix = "query llm"

	// GitMarker routes any subtask containing it to the git actor.
	GitMarker = "git"

	// ParseNLSubtask is the first NL pipeline stage. No provider handles
	// it, so it dispatches as an unknown task.
	ParseNLSubtask = "parse_nl"

	// ImportErrorMarker in failure output signals a dependency failure.
	ImportErrorMarker = "ImportError"

	// ParseFailMarker in failure output signals an NL parse failure.
	ParseFailMarker = "parse fail"
)

// Fixed outputs of the dispatcher.
const (
	OutputDepsInstalled = "Deps installed"
	OutputDepInstallErr = "Dep Install Err"
	OutputLLMErr        = "LLM Err"
	OutputGitErr        = "Git Err"
	OutputUnknownTask   = "Unknown task"
)

// NLPipeline returns the canonical subtask sequence for natural-language commands.
func NLPipeline() []string {
	return []string{ParseNLSubtask, "git_init", "add_initial_files", "commit", "github_push"}
}

// AgentResult is the outcome of one dispatched subtask.
type AgentResult struct {
	Output string `json:"output"`
	Status bool   `json:"status"`
}

func failed(output string) AgentResult {
	return AgentResult{Output: output}
}

// Session is the state of one command's processing. It is never shared
// between Process calls.
type Session struct {
	ContextID string        `json:"context_id"`
	Command   string        `json:"command"`
	Subtasks  []string      `json:"subtasks"`
	Results   []AgentResult `json:"results"`
	Aborted   bool          `json:"aborted"`
	Canceled  bool          `json:"canceled,omitempty"`
}

// Outputs returns the output log: one entry per dispatched subtask.
func (s *Session) Outputs() []string {
	out := make([]string, len(s.Results))
	for i, r := range s.Results {
		out[i] = r.Output
	}
	return out
}

// Encode serializes the output log as a JSON array.
func (s *Session) Encode() (string, error) {
	data, err := json.Marshal(s.Outputs())
	if err != nil {
		return "", fmt.Errorf("encode outputs: %w", err)
	}
	return string(data), nil
}

// Planner decomposes a command into subtasks.
type Planner interface {
	Decompose(ctx context.Context, command string) ([]string, error)
}

// MemoryStore records context entries such as anomalies.
type MemoryStore interface {
	StoreContext(ctx context.Context, message, contextID string, payload map[string]any) error
}

// Replanner proposes a new plan for an alternative strategy.
type Replanner interface {
	RePlan(ctx context.Context, alternative, contextID string) (string, error)
}

// LLM generates text for a prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GitActor executes version-control subtasks. The response must carry a
// boolean "success" and a string "message".
type GitActor interface {
	ExecuteGitAction(ctx context.Context, subtask string) (map[string]any, error)
}

// Installer installs project dependencies.
type Installer interface {
	Install(ctx context.Context) error
}

// Providers bundles the capability providers. A nil provider is treated as
// unavailable.
type Providers struct {
	Planner   Planner
	Memory    MemoryStore
	Replanner Replanner
	LLM       LLM
	Git       GitActor
	Installer Installer
}
