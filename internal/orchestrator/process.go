package orchestrator

import (
	"context"

	"github.com/fyrsmithlabs/sovereign/internal/events"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Process runs command to completion and returns the encoded output log.
//
// The returned string is always a valid JSON array, even when err is
// non-nil. err is set only when ctx was canceled between subtasks; the
// log then holds the outputs dispatched before cancellation.
func (o *Orchestrator) Process(ctx context.Context, command, contextID string) (string, error) {
	sess := o.Run(ctx, command, contextID)
	encoded, err := sess.Encode()
	if err != nil {
		return "[]", err
	}
	if sess.Canceled {
		return encoded, ctx.Err()
	}
	return encoded, nil
}

// Run processes command and returns the full session record. An empty
// contextID is replaced with a fresh one.
func (o *Orchestrator) Run(ctx context.Context, command, contextID string) *Session {
	if contextID == "" {
		contextID = uuid.NewString()
	}
	ctx = logging.WithContextID(ctx, contextID)

	sess := &Session{
		ContextID: contextID,
		Command:   command,
		Results:   []AgentResult{},
	}
	sess.Subtasks = o.plan(ctx, command, contextID)
	o.appendGoal(command)

	o.logger.Info(ctx, "processing command",
		zap.String("command", command),
		zap.Strings("subtasks", sess.Subtasks),
	)
	o.publish(ctx, events.Event{
		Type:      events.TypeStarted,
		ContextID: contextID,
		Message:   command,
	})

	for _, subtask := range sess.Subtasks {
		if ctx.Err() != nil {
			sess.Canceled = true
			o.logger.Warn(ctx, "session canceled",
				zap.Int("dispatched", len(sess.Results)),
				zap.Error(ctx.Err()),
			)
			break
		}

		res := o.Dispatch(ctx, subtask)
		sess.Results = append(sess.Results, res)
		o.publish(ctx, events.Event{
			Type:      events.TypeDispatched,
			ContextID: contextID,
			Subtask:   subtask,
			Output:    res.Output,
			Status:    res.Status,
		})

		if o.SelfDebug(ctx, res, subtask, contextID) {
			sess.Aborted = true
			o.logger.Info(ctx, "aborting remaining subtasks",
				zap.String("subtask", subtask),
				zap.Int("skipped", len(sess.Subtasks)-len(sess.Results)),
			)
			break
		}
	}

	observeSession(sess)
	o.publish(ctx, events.Event{
		Type:      events.TypeCompleted,
		ContextID: contextID,
		Status:    !sess.Aborted && !sess.Canceled,
	})
	return sess
}
