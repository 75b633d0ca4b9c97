package pathfind

import (
	"context"

	"voxfarer/agent/internal/geom"
)

// Constraints carries the movement permissions forwarded from navigation
// options into the route search.
type Constraints struct {
	AllowDig   bool
	AllowPlace bool
}

// Target describes a destination point and the radius within which arrival
// counts as reaching it.
type Target struct {
	Position geom.Vec3
	Radius   float64
}

// RouteStatus reports the outcome of a route search.
type RouteStatus string

const (
	RouteSuccess         RouteStatus = "success"
	RouteNoPath          RouteStatus = "no_path"
	RouteBudgetExhausted RouteStatus = "budget_exhausted"
)

// Route is the raw waypoint sequence produced by a search.
type Route struct {
	Status    RouteStatus
	Waypoints []geom.Vec3
}

// Service is the pathfinding collaborator consumed by the navigator. The
// route search itself is opaque; implementations may run in-process or proxy
// to an external engine.
type Service interface {
	// PlanRoute searches for a route to the target under the given constraints,
	// expanding at most nodeBudget search nodes.
	PlanRoute(ctx context.Context, target Target, cons Constraints, nodeBudget int) (Route, error)
	// MoveToward drives the agent toward the target, returning once the agent
	// is within the target radius or an error if movement fails.
	MoveToward(ctx context.Context, target Target, cons Constraints) error
}
