package pathfind

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"voxfarer/agent/internal/geom"
	"voxfarer/agent/internal/worldq"
)

const (
	// DefaultNodeBudget bounds the search when callers pass no budget.
	DefaultNodeBudget = 4096
	digCost           = 3.0
	placeCost         = 2.0
	stepCost          = 0.4
)

// Mover applies a single movement step. The grid planner calls it once per
// waypoint during MoveToward.
type Mover func(pos geom.Vec3) error

// Grid is an in-process Service searching walkable voxel columns queried from
// a World. A voxel column is walkable when the agent can stand in it: feet
// and head cells are air over a solid floor.
type Grid struct {
	world worldq.World
	mover Mover
}

// NewGrid constructs a grid planner over the given world. The mover may be
// nil, in which case MoveToward only works against a worldq.Static (it
// teleports the agent stepwise).
func NewGrid(world worldq.World, mover Mover) *Grid {
	return &Grid{world: world, mover: mover}
}

type voxel struct {
	x, y, z int
}

func toVoxel(pos geom.Vec3) voxel {
	f := pos.Floored()
	return voxel{x: int(f.X), y: int(f.Y), z: int(f.Z)}
}

func (v voxel) toVec() geom.Vec3 {
	return geom.Vec3{X: float64(v.x), Y: float64(v.y), Z: float64(v.z)}
}

func (v voxel) key() string {
	return fmt.Sprintf("%d,%d,%d", v.x, v.y, v.z)
}

// octile heuristic on the horizontal plane plus vertical offset.
func heuristic(a, b voxel) float64 {
	dx := math.Abs(float64(a.x - b.x))
	dz := math.Abs(float64(a.z - b.z))
	dy := math.Abs(float64(a.y - b.y))
	h := dx + (math.Sqrt2-1)*dz
	if dz > dx {
		h = dz + (math.Sqrt2-1)*dx
	}
	return h + dy
}

type gridNeighbor struct {
	dx, dz   int
	cost     float64
	diagonal bool
}

var gridNeighborOffsets = [...]gridNeighbor{
	{dx: 0, dz: -1, cost: 1, diagonal: false},
	{dx: 1, dz: 0, cost: 1, diagonal: false},
	{dx: 0, dz: 1, cost: 1, diagonal: false},
	{dx: -1, dz: 0, cost: 1, diagonal: false},
	{dx: 1, dz: -1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dz: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dz: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dz: -1, cost: math.Sqrt2, diagonal: true},
}

type pathNode struct {
	point  voxel
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (g *Grid) blockName(v voxel) (string, bool) {
	block, ok := g.world.BlockAt(v.toVec())
	if !ok || block == nil {
		return "", false
	}
	return block.Name, true
}

func (g *Grid) isAir(v voxel) bool {
	name, ok := g.blockName(v)
	if !ok {
		return false
	}
	return worldq.IsAir(name)
}

func (g *Grid) isSolid(v voxel) bool {
	name, ok := g.blockName(v)
	if !ok {
		return false
	}
	return !worldq.IsAir(name)
}

// standCost reports whether the agent can occupy the column with feet at v,
// and the extra cost of doing so under the constraints. Digging through feet
// or head blocks and bridging over missing floors are permitted only when the
// matching constraint is set.
func (g *Grid) standCost(v voxel, cons Constraints) (float64, bool) {
	extra := 0.0
	feet := voxel{x: v.x, y: v.y, z: v.z}
	head := voxel{x: v.x, y: v.y + 1, z: v.z}
	floor := voxel{x: v.x, y: v.y - 1, z: v.z}

	for _, cell := range []voxel{feet, head} {
		if g.isAir(cell) {
			continue
		}
		if !cons.AllowDig {
			return 0, false
		}
		name, ok := g.blockName(cell)
		if !ok {
			return 0, false
		}
		if !g.world.CanHarvest(&worldq.Block{Name: name, Position: cell.toVec()}) {
			return 0, false
		}
		extra += digCost
	}
	if !g.isSolid(floor) {
		if !cons.AllowPlace {
			return 0, false
		}
		extra += placeCost
	}
	return extra, true
}

func (g *Grid) neighbors(current voxel, cons Constraints) []struct {
	point voxel
	cost  float64
} {
	out := make([]struct {
		point voxel
		cost  float64
	}, 0, 8)
	for _, delta := range gridNeighborOffsets {
		// Try level, one up, one down. Diagonals stay level to avoid clipping
		// corners across elevation changes.
		dys := []int{0, 1, -1}
		if delta.diagonal {
			dys = []int{0}
		}
		for _, dy := range dys {
			next := voxel{x: current.x + delta.dx, y: current.y + dy, z: current.z + delta.dz}
			extra, ok := g.standCost(next, cons)
			if !ok {
				continue
			}
			if delta.diagonal && !g.canTraverseDiagonal(current, delta, cons) {
				continue
			}
			cost := delta.cost + extra
			if dy != 0 {
				cost += stepCost
			}
			out = append(out, struct {
				point voxel
				cost  float64
			}{point: next, cost: cost})
			break
		}
	}
	return out
}

func (g *Grid) canTraverseDiagonal(current voxel, delta gridNeighbor, cons Constraints) bool {
	horiz := voxel{x: current.x + delta.dx, y: current.y, z: current.z}
	vert := voxel{x: current.x, y: current.y, z: current.z + delta.dz}
	if _, ok := g.standCost(horiz, cons); !ok {
		return false
	}
	if _, ok := g.standCost(vert, cons); !ok {
		return false
	}
	return true
}

// PlanRoute implements Service.
func (g *Grid) PlanRoute(ctx context.Context, target Target, cons Constraints, nodeBudget int) (Route, error) {
	if g == nil || g.world == nil {
		return Route{Status: RouteNoPath}, nil
	}
	if nodeBudget <= 0 {
		nodeBudget = DefaultNodeBudget
	}
	startPos, ok := g.world.Position()
	if !ok {
		return Route{Status: RouteNoPath}, nil
	}
	start := toVoxel(startPos)
	goal := toVoxel(target.Position)
	radius := target.Radius
	if radius < 0 {
		radius = 0
	}

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{point: start, g: 0, f: heuristic(start, goal)})
	gScore := map[string]float64{start.key(): 0}
	closed := make(map[string]struct{})
	expanded := 0

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return Route{Status: RouteNoPath}, err
		}
		current := heap.Pop(open).(*pathNode)
		currKey := current.point.key()
		if _, seen := closed[currKey]; seen {
			continue
		}
		closed[currKey] = struct{}{}

		if current.point.toVec().DistanceTo(goal.toVec()) <= radius || current.point == goal {
			return Route{Status: RouteSuccess, Waypoints: reconstructRoute(current)}, nil
		}

		expanded++
		if expanded > nodeBudget {
			return Route{Status: RouteBudgetExhausted}, nil
		}

		for _, next := range g.neighbors(current.point, cons) {
			key := next.point.key()
			if _, seen := closed[key]; seen {
				continue
			}
			tentativeG := current.g + next.cost
			if prev, ok := gScore[key]; ok && tentativeG >= prev {
				continue
			}
			gScore[key] = tentativeG
			heap.Push(open, &pathNode{
				point:  next.point,
				g:      tentativeG,
				f:      tentativeG + heuristic(next.point, goal),
				parent: current,
			})
		}
	}
	return Route{Status: RouteNoPath}, nil
}

func reconstructRoute(end *pathNode) []geom.Vec3 {
	if end == nil {
		return nil
	}
	route := make([]geom.Vec3, 0)
	for node := end; node != nil; node = node.parent {
		route = append(route, node.point.toVec())
	}
	for i := 0; i < len(route)/2; i++ {
		j := len(route) - 1 - i
		route[i], route[j] = route[j], route[i]
	}
	return route
}

// MoveToward implements Service by planning a route and applying each
// waypoint through the mover (or by teleporting a Static world).
func (g *Grid) MoveToward(ctx context.Context, target Target, cons Constraints) error {
	route, err := g.PlanRoute(ctx, target, cons, DefaultNodeBudget)
	if err != nil {
		return err
	}
	if route.Status != RouteSuccess {
		return fmt.Errorf("pathfind: no route toward %s (%s)", target.Position.Key(), route.Status)
	}
	for _, waypoint := range route.Waypoints {
		if err := ctx.Err(); err != nil {
			return err
		}
		if g.mover != nil {
			if err := g.mover(waypoint); err != nil {
				return err
			}
			continue
		}
		static, ok := g.world.(*worldq.Static)
		if !ok {
			return fmt.Errorf("pathfind: no mover configured")
		}
		static.SetPosition(waypoint)
	}
	return nil
}

var _ Service = (*Grid)(nil)
