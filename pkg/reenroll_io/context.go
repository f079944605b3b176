// pkg/reenroll_io/context.go

package reenroll_io

import (
	"context"
	"time"

	"github.com/CypressSecurity/reenroll/pkg/logger"
	"github.com/CypressSecurity/reenroll/pkg/reenroll_err"
	"github.com/CypressSecurity/reenroll/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RuntimeContext carries everything a command run needs: the traced
// context, a scoped logger, the run identifier and the start timestamp.
// Constructed once per command invocation and passed down by reference;
// nothing in the run reads ambient globals.
type RuntimeContext struct {
	Ctx       context.Context
	Log       *zap.Logger
	Span      trace.Span
	RunID     string
	Command   string
	Timestamp time.Time
}

// NewContext sets up tracing and a scoped logger for one command run.
func NewContext(ctx context.Context, cmdName string) *RuntimeContext {
	runID := uuid.NewString()
	ctx, span := telemetry.Start(ctx, cmdName, attribute.String("run_id", runID))

	log := zap.L().With(
		zap.String("command", cmdName),
		zap.String("run_id", runID),
	).Named(cmdName)

	return &RuntimeContext{
		Ctx:       ctx,
		Log:       log,
		Span:      span,
		RunID:     runID,
		Command:   cmdName,
		Timestamp: time.Now(),
	}
}

// HandlePanic recovers panics, logs them, and converts them to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("Panic recovered", zap.Any("panic", r))
	}
}

// End logs the command outcome, records span attributes and flushes logs.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	duration := time.Since(rc.Timestamp)
	success := *errPtr == nil

	if success {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else {
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(*errPtr))
	}

	rc.Span.SetAttributes(
		attribute.Bool("success", success),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("error_type", classifyError(*errPtr)),
	)

	logger.SafeSync()
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if reenroll_err.IsExpectedUserError(err) {
		return "user"
	}
	return "system"
}
