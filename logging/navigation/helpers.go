package navigation

import (
	"context"

	"voxfarer/agent/logging"
)

const (
	// EventPlanReady is emitted when a route has been planned and decorated.
	EventPlanReady logging.EventType = "navigation.plan_ready"
	// EventPlanFailed is emitted when the pathfinding collaborator cannot produce a route.
	EventPlanFailed logging.EventType = "navigation.plan_failed"
	// EventCheckpointReached is emitted after a checkpoint arrival is verified.
	EventCheckpointReached logging.EventType = "navigation.checkpoint_reached"
	// EventStuck is emitted when progress has stalled beyond the stuck threshold.
	EventStuck logging.EventType = "navigation.stuck"
	// EventCompleted is emitted when an execution reaches its destination.
	EventCompleted logging.EventType = "navigation.completed"
	// EventFailed is emitted when an execution aborts on a verification failure.
	EventFailed logging.EventType = "navigation.failed"
	// EventInterrupted is emitted when the cooperative interrupt flag aborts an execution.
	EventInterrupted logging.EventType = "navigation.interrupted"
)

// PlanPayload summarises a decorated navigation plan.
type PlanPayload struct {
	Waypoints   int    `json:"waypoints"`
	Checkpoints int    `json:"checkpoints"`
	Obstacles   int    `json:"obstacles"`
	Markers     int    `json:"markers"`
	Target      string `json:"target"`
}

// PlanReady publishes a debug event describing the decorated plan.
func PlanReady(ctx context.Context, pub logging.Publisher, agentID string, payload PlanPayload) {
	publish(ctx, pub, agentID, logging.Event{
		Type:     EventPlanReady,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

// PlanFailed publishes a warning when route planning fails.
func PlanFailed(ctx context.Context, pub logging.Publisher, agentID string, target string, reason string) {
	publish(ctx, pub, agentID, logging.Event{
		Type:     EventPlanFailed,
		Severity: logging.SeverityWarn,
		Payload:  map[string]string{"target": target, "reason": reason},
	})
}

// CheckpointPayload records progress through the checkpoint sequence.
type CheckpointPayload struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Distance float64 `json:"distance"`
}

// CheckpointReached publishes a debug event for a verified checkpoint arrival.
func CheckpointReached(ctx context.Context, pub logging.Publisher, agentID string, payload CheckpointPayload) {
	publish(ctx, pub, agentID, logging.Event{
		Type:     EventCheckpointReached,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

// StuckPayload records the monitor state when the stuck threshold fires.
type StuckPayload struct {
	Progress     float64 `json:"progress"`
	StalledMilli int64   `json:"stalledMillis"`
}

// Stuck publishes a warning when progress has stalled past the threshold.
func Stuck(ctx context.Context, pub logging.Publisher, agentID string, payload StuckPayload) {
	publish(ctx, pub, agentID, logging.Event{
		Type:     EventStuck,
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

// Completed publishes an info event when navigation succeeds.
func Completed(ctx context.Context, pub logging.Publisher, agentID string, target string) {
	publish(ctx, pub, agentID, logging.Event{
		Type:     EventCompleted,
		Severity: logging.SeverityInfo,
		Payload:  map[string]string{"target": target},
	})
}

// Failed publishes a warning when navigation aborts on an error.
func Failed(ctx context.Context, pub logging.Publisher, agentID string, target string, reason string) {
	publish(ctx, pub, agentID, logging.Event{
		Type:     EventFailed,
		Severity: logging.SeverityWarn,
		Payload:  map[string]string{"target": target, "reason": reason},
	})
}

// Interrupted publishes an info event when navigation is cancelled cooperatively.
func Interrupted(ctx context.Context, pub logging.Publisher, agentID string, checkpoint int) {
	publish(ctx, pub, agentID, logging.Event{
		Type:     EventInterrupted,
		Severity: logging.SeverityInfo,
		Payload:  map[string]int{"checkpoint": checkpoint},
	})
}

func publish(ctx context.Context, pub logging.Publisher, agentID string, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryNavigation
	event.Actor = logging.EntityRef{ID: agentID, Kind: logging.EntityKindAgent}
	pub.Publish(ctx, event)
}
