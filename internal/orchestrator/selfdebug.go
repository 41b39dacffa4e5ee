package orchestrator

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/sovereign/internal/events"
	"go.uber.org/zap"
)

var errNoReplanner = errors.New("replanner unavailable")

// SelfDebug inspects the result of subtask and reports whether the rest of
// the session should be aborted.
//
// Successful results return false without touching any provider. Failures
// are recorded to memory as anomalies, then classified by output. A
// classified failure triggers one replan; if the replanner answers, the
// session aborts. Unclassified failures and failed replans let the session
// continue.
func (o *Orchestrator) SelfDebug(ctx context.Context, result AgentResult, subtask, contextID string) bool {
	if result.Status {
		return false
	}

	o.recordAnomaly(ctx, result, subtask, contextID)

	class := ClassifyFailure(result.Output)
	if class == FailureUnclassified {
		observeRepair(class, "continue")
		return false
	}

	plan, err := o.replan(ctx, class.Strategy(), contextID)
	if err != nil {
		o.logger.Warn(ctx, "replan failed, continuing",
			zap.Stringer("failure", class),
			zap.Error(err),
		)
		observeRepair(class, "replan_failed")
		return false
	}

	o.logger.Info(ctx, "re-plan",
		zap.Stringer("failure", class),
		zap.String("strategy", class.Strategy()),
		zap.String("plan", plan),
	)
	o.publish(ctx, events.Event{
		Type:      events.TypeReplan,
		ContextID: contextID,
		Subtask:   subtask,
		Message:   plan,
	})
	observeRepair(class, "abort")
	return true
}

// recordAnomaly stores the failure in memory. Errors are logged and dropped.
func (o *Orchestrator) recordAnomaly(ctx context.Context, result AgentResult, subtask, contextID string) {
	o.publish(ctx, events.Event{
		Type:      events.TypeAnomaly,
		ContextID: contextID,
		Subtask:   subtask,
		Output:    result.Output,
	})

	if o.providers.Memory == nil {
		return
	}
	payload := map[string]any{
		"type":    "error",
		"subtask": subtask,
		"kind":    Classify(subtask).String(),
	}
	err := o.call(func() error {
		return o.providers.Memory.StoreContext(ctx, "Anomaly: "+result.Output, contextID, payload)
	})
	if err != nil {
		o.logger.Warn(ctx, "failed to record anomaly", zap.Error(err))
	}
}

func (o *Orchestrator) replan(ctx context.Context, strategy, contextID string) (string, error) {
	if o.providers.Replanner == nil {
		return "", errNoReplanner
	}
	var plan string
	err := o.call(func() error {
		var err error
		plan, err = o.providers.Replanner.RePlan(ctx, strategy, contextID)
		return err
	})
	return plan, err
}
