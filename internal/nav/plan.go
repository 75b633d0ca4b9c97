package nav

import (
	"context"

	"voxfarer/agent/internal/geom"
	"voxfarer/agent/internal/memory"
	"voxfarer/agent/internal/pathfind"
	"voxfarer/agent/internal/worldq"
)

// notableBlocks are the storage, crafting, and heat-source block types
// surfaced as contextual markers on a plan.
var notableBlocks = []string{
	"chest",
	"barrel",
	"crafting_table",
	"furnace",
	"campfire",
}

// MarkerKind distinguishes plan marker sources.
type MarkerKind string

const (
	MarkerBlock    MarkerKind = "block"
	MarkerLandmark MarkerKind = "landmark"
)

// Marker is a notable feature near the planned route.
type Marker struct {
	Kind     MarkerKind `json:"kind"`
	Name     string     `json:"name"`
	Position geom.Vec3  `json:"position"`
	Distance float64    `json:"distance"`
}

// Plan is a decorated route scoped to a single MoveToLocation call. It is
// discarded once execution finishes.
type Plan struct {
	Target      geom.Vec3
	Waypoints   []geom.Vec3
	Checkpoints []geom.Vec3
	Obstacles   []worldq.Block
	Markers     []Marker
}

// planWithContext delegates the route search to the pathfinding collaborator
// and decorates the result with checkpoints, a diagnostic obstacle pre-scan,
// and contextual markers.
func (n *Navigator) planWithContext(ctx context.Context, target geom.Vec3, opts Options) (*Plan, error) {
	route, err := n.pathfinder.PlanRoute(ctx, pathfind.Target{Position: target, Radius: opts.Radius}, pathfind.Constraints{
		AllowDig:   opts.AllowDig,
		AllowPlace: opts.AllowPlace,
	}, n.cfg.NodeBudget)
	if err != nil {
		return nil, &PlanningError{Target: target, Reason: "route search failed", Err: err}
	}
	if route.Status != pathfind.RouteSuccess {
		return nil, &PlanningError{Target: target, Reason: string(route.Status)}
	}
	if len(route.Waypoints) == 0 {
		return nil, &PlanningError{Target: target, Reason: "empty route"}
	}

	plan := &Plan{
		Target:      target,
		Waypoints:   route.Waypoints,
		Checkpoints: selectCheckpoints(route.Waypoints, n.cfg.CheckpointEvery),
		Obstacles:   n.prescanObstacles(route.Waypoints),
		Markers:     n.collectMarkers(),
	}
	return plan, nil
}

// selectCheckpoints keeps every nth waypoint, always including the final
// one. Checkpoints are the unit of execution granularity: coarser than raw
// waypoints, trading precision for fewer verification round-trips.
func selectCheckpoints(waypoints []geom.Vec3, every int) []geom.Vec3 {
	if len(waypoints) == 0 {
		return nil
	}
	if every <= 1 {
		return append([]geom.Vec3(nil), waypoints...)
	}
	out := make([]geom.Vec3, 0, len(waypoints)/every+1)
	for i := every - 1; i < len(waypoints); i += every {
		out = append(out, waypoints[i])
	}
	last := waypoints[len(waypoints)-1]
	if len(out) == 0 || out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}

// prescanObstacles flags waypoints whose occupying block is not air. The
// list is diagnostic only; execution does not act on it.
func (n *Navigator) prescanObstacles(waypoints []geom.Vec3) []worldq.Block {
	var out []worldq.Block
	for _, waypoint := range waypoints {
		block, ok := n.world.BlockAt(waypoint)
		if !ok || block == nil || worldq.IsAir(block.Name) {
			continue
		}
		out = append(out, *block)
	}
	return out
}

// collectMarkers gathers nearby notable blocks and all currently visible
// landmarks from spatial memory.
func (n *Navigator) collectMarkers() []Marker {
	var out []Marker
	pos, hasPos := n.world.Position()
	for _, name := range notableBlocks {
		block, ok := n.world.FindNearestBlock(name, n.cfg.MarkerRadius)
		if !ok || block == nil {
			continue
		}
		marker := Marker{Kind: MarkerBlock, Name: block.Name, Position: block.Position}
		if hasPos {
			marker.Distance = block.Position.DistanceTo(pos)
		}
		out = append(out, marker)
	}
	if n.memory != nil && hasPos {
		for _, sighting := range n.memory.NearbyLandmarks(pos, memory.LandmarkVisibleRadius) {
			out = append(out, Marker{
				Kind:     MarkerLandmark,
				Name:     sighting.Landmark.Name,
				Position: sighting.Landmark.Position,
				Distance: sighting.Distance,
			})
		}
	}
	return out
}
