package orchestrator

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"go.uber.org/zap"
)

// Dispatch routes subtask to its provider and returns exactly one result.
// Provider failures of any kind become the branch's failure result.
func (o *Orchestrator) Dispatch(ctx context.Context, subtask string) AgentResult {
	kind := Classify(subtask)
	ctx = logging.WithSubtask(ctx, subtask)
	start := time.Now()

	var res AgentResult
	switch kind {
	case KindInstallDeps:
		res = o.installDeps(ctx)
	case KindLLMQuery:
		res = o.queryLLM(ctx, llmPrompt(subtask))
	case KindGit:
		res = o.gitAction(ctx, subtask)
	default:
		res = failed(OutputUnknownTask)
	}

	observeDispatch(kind, res.Status, time.Since(start))
	o.logger.Debug(ctx, "subtask dispatched",
		zap.Stringer("kind", kind),
		zap.Bool("status", res.Status),
		zap.String("output", res.Output),
	)
	return res
}

func (o *Orchestrator) installDeps(ctx context.Context) AgentResult {
	if o.providers.Installer == nil {
		return failed(OutputDepInstallErr)
	}
	err := o.call(func() error {
		return o.providers.Installer.Install(ctx)
	})
	if err != nil {
		o.logger.Warn(ctx, "dependency install failed", zap.Error(err))
		return failed(OutputDepInstallErr)
	}
	return AgentResult{Output: OutputDepsInstalled, Status: true}
}

func (o *Orchestrator) queryLLM(ctx context.Context, prompt string) AgentResult {
	if o.providers.LLM == nil {
		return failed(OutputLLMErr)
	}
	var text string
	err := o.call(func() error {
		var err error
		text, err = o.providers.LLM.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		o.logger.Warn(ctx, "llm query failed", zap.Error(err))
		return failed(OutputLLMErr)
	}
	return AgentResult{Output: text, Status: true}
}

func (o *Orchestrator) gitAction(ctx context.Context, subtask string) AgentResult {
	if o.providers.Git == nil {
		return failed(OutputGitErr)
	}
	var resp map[string]any
	err := o.call(func() error {
		var err error
		resp, err = o.providers.Git.ExecuteGitAction(ctx, subtask)
		return err
	})
	if err != nil {
		o.logger.Warn(ctx, "git action failed", zap.Error(err))
		return failed(OutputGitErr)
	}

	success, ok := resp["success"].(bool)
	if !ok {
		o.logger.Warn(ctx, "git response missing boolean success field", zap.Any("response", resp))
		return failed(OutputGitErr)
	}
	message, ok := resp["message"].(string)
	if !ok {
		o.logger.Warn(ctx, "git response missing string message field", zap.Any("response", resp))
		return failed(OutputGitErr)
	}
	return AgentResult{Output: "Git: " + message, Status: success}
}
