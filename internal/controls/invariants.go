package controls

import "go.uber.org/zap"

// invariantViolated reports a broken protocol invariant. Builds with the
// threadctl_invariants tag panic; others log and continue.
func invariantViolated(logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.Error("invariant violated: "+msg, fields...)
	if invariantsEnabled {
		panic("threadctl: invariant violated: " + msg)
	}
}
