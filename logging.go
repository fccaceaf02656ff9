package walkflow

import (
	"github.com/rs/zerolog"
)

// Log event names
const (
	// Wizard events
	EventWorkflowEntered   = "workflow_entered"
	EventStepAdvanced      = "step_advanced"
	EventAdvanceBlocked    = "advance_blocked"
	EventStepRetreated     = "step_retreated"
	EventFieldChanged      = "field_changed"
	EventUndoApplied       = "undo_applied"
	EventCancelRequested   = "cancel_requested"
	EventCancelDismissed   = "cancel_dismissed"
	EventWorkflowExited    = "workflow_exited"
	EventWorkflowSubmitted = "workflow_submitted"

	// Loader events
	EventLoadStarted   = "load_started"
	EventLoadRetrying  = "load_retrying"
	EventLoadSucceeded = "load_succeeded"
	EventLoadFailed    = "load_failed"
	EventLoadStale     = "load_stale"
)

// LogStepAdvanced logs a successful wizard transition
func LogStepAdvanced(logger zerolog.Logger, from, to string) {
	logger.Info().
		Str("event", EventStepAdvanced).
		Str("from_step", from).
		Str("to_step", to).
		Msg("Step advanced")
}

// LogAdvanceBlocked logs a transition rejected by step validation
func LogAdvanceBlocked(logger zerolog.Logger, stepID string, err error) {
	logger.Debug().
		Str("event", EventAdvanceBlocked).
		Str("step_id", stepID).
		Err(err).
		Msg("Advance blocked by validation")
}

// LogStepRetreated logs a backwards step change
func LogStepRetreated(logger zerolog.Logger, from, to string) {
	logger.Debug().
		Str("event", EventStepRetreated).
		Str("from_step", from).
		Str("to_step", to).
		Msg("Step retreated")
}

// LogFieldChanged logs a committed field edit
func LogFieldChanged(logger zerolog.Logger, field string, historyLen int) {
	logger.Debug().
		Str("event", EventFieldChanged).
		Str("field", field).
		Int("history_len", historyLen).
		Msg("Field changed")
}

// LogUndo logs a restored snapshot
func LogUndo(logger zerolog.Logger, seq uint64, historyLen int) {
	logger.Debug().
		Str("event", EventUndoApplied).
		Uint64("snapshot_seq", seq).
		Int("history_len", historyLen).
		Msg("Undo applied")
}

// LogWorkflowExited logs a workflow leaving through the router
func LogWorkflowExited(logger zerolog.Logger, reason ExitReason) {
	logger.Info().
		Str("event", EventWorkflowExited).
		Str("reason", reason.String()).
		Msg("Workflow exited")
}

// LogLoadStarted logs the start of a load attempt
func LogLoadStarted(logger zerolog.Logger, version uint64, attempt int) {
	logger.Debug().
		Str("event", EventLoadStarted).
		Uint64("params_version", version).
		Int("attempt", attempt).
		Msg("Load started")
}

// LogLoadRetrying logs a scheduled automatic retry
func LogLoadRetrying(logger zerolog.Logger, version uint64, attempt int, err error) {
	logger.Warn().
		Str("event", EventLoadRetrying).
		Uint64("params_version", version).
		Int("attempt", attempt).
		Err(err).
		Msg("Load failed, retry scheduled")
}

// LogLoadSucceeded logs a successful load
func LogLoadSucceeded(logger zerolog.Logger, version uint64, attempts int) {
	logger.Info().
		Str("event", EventLoadSucceeded).
		Uint64("params_version", version).
		Int("attempts", attempts).
		Msg("Load succeeded")
}

// LogLoadFailed logs a load that exhausted its automatic retries
func LogLoadFailed(logger zerolog.Logger, version uint64, attempts int, err error) {
	logger.Error().
		Str("event", EventLoadFailed).
		Uint64("params_version", version).
		Int("attempts", attempts).
		Err(err).
		Msg("Load failed after all retries exhausted")
}

// LogLoadStale logs a completion dropped because newer params arrived
func LogLoadStale(logger zerolog.Logger, staleVersion, currentVersion uint64) {
	logger.Debug().
		Str("event", EventLoadStale).
		Uint64("params_version", staleVersion).
		Uint64("current_version", currentVersion).
		Msg("Stale load result discarded")
}

// WorkflowLogger creates a logger enriched with workflow context
func WorkflowLogger(baseLogger zerolog.Logger, workflowID, sessionID string) zerolog.Logger {
	return baseLogger.With().
		Str("workflow_id", workflowID).
		Str("session_id", sessionID).
		Logger()
}

// LoaderLogger creates a logger enriched with loader context
func LoaderLogger(baseLogger zerolog.Logger, name string) zerolog.Logger {
	return baseLogger.With().
		Str("loader", name).
		Logger()
}
