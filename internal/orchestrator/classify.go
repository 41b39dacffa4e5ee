package orchestrator

import "strings"

// SubtaskKind is the routing class of a subtask.
type SubtaskKind int

const (
	KindUnknown SubtaskKind = iota
	KindInstallDeps
	KindLLMQuery
	KindGit
)

func (k SubtaskKind) String() string {
	switch k {
	case KindInstallDeps:
		return "install_deps"
	case KindLLMQuery:
		return "llm_query"
	case KindGit:
		return "git"
	default:
		return "unknown"
	}
}

// gitStages are NL pipeline stages handled by the git actor whose names do
// not contain GitMarker.
var gitStages = map[string]bool{
	"add_initial_files": true,
	"commit":            true,
}

// Classify maps a subtask to its kind. Rules are checked in order and the
// first match wins:
//
//  1. exact InstallDepsSubtask
//  2. prefix LLMQueryPrefix
//  3. contains GitMarker, or a git pipeline stage
//  4. unknown
func Classify(subtask string) SubtaskKind {
	switch {
	case subtask == InstallDepsSubtask:
		return KindInstallDeps
	case strings.HasPrefix(subtask, LLMQueryPrefix):
		return KindLLMQuery
	case strings.Contains(subtask, GitMarker) || gitStages[subtask]:
		return KindGit
	default:
		return KindUnknown
	}
}

// llmPrompt strips the query marker and one separating space.
func llmPrompt(subtask string) string {
	prompt := strings.TrimPrefix(subtask, LLMQueryPrefix)
	return strings.TrimPrefix(prompt, " ")
}

// IsNaturalLanguage reports whether command carries the NL marker.
func IsNaturalLanguage(command string) bool {
	return strings.HasPrefix(command, NLMarker)
}

// FailureClass is the self-repair classification of a failed output.
type FailureClass int

const (
	FailureUnclassified FailureClass = iota
	FailureDependency
	FailureNLParse
)

func (f FailureClass) String() string {
	switch f {
	case FailureDependency:
		return "dependency"
	case FailureNLParse:
		return "nl_parse"
	default:
		return "unclassified"
	}
}

// Strategy is the alternative strategy handed to the replanner.
func (f FailureClass) Strategy() string {
	switch f {
	case FailureDependency:
		return "install missing deps and retry"
	case FailureNLParse:
		return "replan NL parse"
	default:
		return ""
	}
}

// ClassifyFailure inspects failure output. The import marker takes
// precedence over the parse marker.
func ClassifyFailure(output string) FailureClass {
	switch {
	case strings.Contains(output, ImportErrorMarker):
		return FailureDependency
	case strings.Contains(output, ParseFailMarker):
		return FailureNLParse
	default:
		return FailureUnclassified
	}
}
