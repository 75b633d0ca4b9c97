package nav

import (
	"errors"
	"fmt"

	"voxfarer/agent/internal/geom"
)

// ErrNavigationBusy is returned when MoveToLocation is called while another
// execution is in flight. Concurrent navigations are rejected, never queued.
var ErrNavigationBusy = errors.New("nav: navigation already in progress")

// PlanningError reports that the pathfinding collaborator could not produce
// a usable route. Budget exhaustion is a planning failure, never a partial
// plan.
type PlanningError struct {
	Target geom.Vec3
	Reason string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("nav: planning to %s failed: %s: %v", e.Target.Key(), e.Reason, e.Err)
	}
	return fmt.Sprintf("nav: planning to %s failed: %s", e.Target.Key(), e.Reason)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// VerificationError reports arrival outside tolerance at a checkpoint. It
// aborts the whole execution; there is no partial-path salvage.
type VerificationError struct {
	Checkpoint geom.Vec3
	Index      int
	Distance   float64
	Tolerance  float64
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("nav: checkpoint %d at %s missed by %.2f (tolerance %.2f)",
		e.Index, e.Checkpoint.Key(), e.Distance, e.Tolerance)
}

// InterruptedError reports a cooperative interrupt observed at a checkpoint
// boundary. It is distinct from failure: nothing is recorded in the path
// cache and the attempt history stays untouched.
type InterruptedError struct {
	Checkpoint int
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("nav: interrupted before checkpoint %d", e.Checkpoint)
}
