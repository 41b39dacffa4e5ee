// Package logging provides structured logging for sovereign.
//
// The Logger wraps Zap and adds:
//   - a Trace level (-2, below Debug)
//   - context correlation fields (context.id, subtask)
//   - key and pattern based secret redaction
//   - sampling below error level (errors are never sampled)
//
// Usage:
//
//	cfg, _ := logging.ConfigFrom(appCfg.Log)
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithContextID(ctx, contextID)
//	logger.Info(ctx, "subtask dispatched", zap.String("kind", "git"))
//
// Tests use NewTestLogger and its Assert helpers.
package logging
