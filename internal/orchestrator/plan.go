package orchestrator

import (
	"context"

	"go.uber.org/zap"
)

// ProactivePlan decomposes command into subtasks. It never fails: when the
// planner is missing, errors or returns nothing, the plan is the command
// itself. NL commands get the dependency-install sentinel prepended.
func (o *Orchestrator) ProactivePlan(ctx context.Context, command, contextID string) []string {
	subtasks := o.decompose(ctx, command)
	if IsNaturalLanguage(command) {
		subtasks = append([]string{InstallDepsSubtask}, subtasks...)
	}
	return subtasks
}

func (o *Orchestrator) decompose(ctx context.Context, command string) []string {
	fallback := []string{command}
	if o.providers.Planner == nil {
		return fallback
	}

	var subtasks []string
	err := o.call(func() error {
		var err error
		subtasks, err = o.providers.Planner.Decompose(ctx, command)
		return err
	})
	if err != nil {
		o.logger.Warn(ctx, "planner unavailable, using command as single subtask", zap.Error(err))
		return fallback
	}
	if len(subtasks) == 0 {
		return fallback
	}
	return subtasks
}

// plan applies the NL override on top of ProactivePlan: NL commands always
// run the fixed pipeline, whatever was planned.
func (o *Orchestrator) plan(ctx context.Context, command, contextID string) []string {
	subtasks := o.ProactivePlan(ctx, command, contextID)
	if IsNaturalLanguage(command) {
		o.logger.Debug(ctx, "natural-language command, replacing plan with pipeline",
			zap.Strings("planned", subtasks),
		)
		return NLPipeline()
	}
	return subtasks
}
