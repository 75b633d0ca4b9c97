package goalflow

import (
	"context"

	"voxfarer/agent/logging"
)

const (
	// EventCreated is emitted when a goal or subgoal enters the tracker.
	EventCreated logging.EventType = "goal.created"
	// EventProgress is emitted when a goal's progress value changes.
	EventProgress logging.EventType = "goal.progress"
	// EventCompleted is emitted when a goal reaches its completed state.
	EventCompleted logging.EventType = "goal.completed"
	// EventFailed is emitted when a goal is marked failed.
	EventFailed logging.EventType = "goal.failed"
	// EventNeedsRevision is emitted when repeated failures exceed the retry budget.
	EventNeedsRevision logging.EventType = "goal.needs_revision"
)

// Created publishes an info event for a newly tracked goal.
func Created(ctx context.Context, pub logging.Publisher, goalID string, description string, main bool) {
	publish(ctx, pub, goalID, logging.Event{
		Type:     EventCreated,
		Severity: logging.SeverityInfo,
		Payload:  map[string]any{"description": description, "main": main},
	})
}

// Progress publishes a debug event carrying the recomputed progress values.
func Progress(ctx context.Context, pub logging.Publisher, goalID string, progress int, mainProgress int) {
	publish(ctx, pub, goalID, logging.Event{
		Type:     EventProgress,
		Severity: logging.SeverityDebug,
		Payload:  map[string]int{"progress": progress, "mainProgress": mainProgress},
	})
}

// Completed publishes an info event for a completed goal.
func Completed(ctx context.Context, pub logging.Publisher, goalID string) {
	publish(ctx, pub, goalID, logging.Event{
		Type:     EventCompleted,
		Severity: logging.SeverityInfo,
	})
}

// Failed publishes a warning for a failed goal.
func Failed(ctx context.Context, pub logging.Publisher, goalID string, reason string) {
	publish(ctx, pub, goalID, logging.Event{
		Type:     EventFailed,
		Severity: logging.SeverityWarn,
		Payload:  map[string]string{"reason": reason},
	})
}

// NeedsRevisionPayload records the adaptation signal details.
type NeedsRevisionPayload struct {
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason"`
}

// NeedsRevision publishes a warning when a goal exceeds its retry budget.
func NeedsRevision(ctx context.Context, pub logging.Publisher, goalID string, payload NeedsRevisionPayload) {
	publish(ctx, pub, goalID, logging.Event{
		Type:     EventNeedsRevision,
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, goalID string, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryGoal
	event.Actor = logging.EntityRef{ID: goalID, Kind: logging.EntityKindGoal}
	pub.Publish(ctx, event)
}
