// Package orchestrator turns a command into subtasks, routes each subtask to
// a capability provider and decides after every failure whether to replan.
//
// A session runs in three stages:
//
//	plan     the planner decomposes the command; natural-language
//	         commands (prefixed with --nl) run the fixed NLPipeline instead
//	dispatch each subtask is classified and sent to exactly one provider,
//	         always yielding one AgentResult
//	repair   failed results are recorded as anomalies; dependency and
//	         parse failures are replanned and end the session
//
// Provider errors never escape a session. They become failing results with
// fixed outputs such as "LLM Err" or "Git Err".
//
// Usage:
//
//	orch := orchestrator.New(orchestrator.Providers{
//	    Planner: planner,
//	    LLM:     llmAgent,
//	    Git:     gitActor,
//	}, orchestrator.WithLogger(logger))
//
//	out, err := orch.Process(ctx, "--nl create repo", "default")
package orchestrator
