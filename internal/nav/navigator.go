package nav

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"voxfarer/agent/internal/geom"
	"voxfarer/agent/internal/memory"
	"voxfarer/agent/internal/pathfind"
	"voxfarer/agent/internal/scanner"
	"voxfarer/agent/internal/telemetry"
	"voxfarer/agent/internal/worldq"
	"voxfarer/agent/logging"
	navlog "voxfarer/agent/logging/navigation"
)

// State tracks the navigator through one execution. The outcome states are
// transient: the navigator always returns to StateIdle when MoveToLocation
// returns.
type State string

const (
	StateIdle        State = "idle"
	StatePlanning    State = "planning"
	StateExecuting   State = "executing"
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
	StateInterrupted State = "interrupted"
)

const (
	// DefaultCheckpointEvery keeps every fifth waypoint as a checkpoint.
	DefaultCheckpointEvery = 5
	// DefaultArriveTolerance is the verification radius at each checkpoint.
	DefaultArriveTolerance = 2.0
	// DefaultMonitorInterval is the progress sampling cadence.
	DefaultMonitorInterval = time.Second
	// DefaultStuckThreshold is how long progress may stall before the stuck
	// hook fires.
	DefaultStuckThreshold = 5 * time.Second
	// DefaultStuckEpsilon is the minimum progress delta counted as movement.
	DefaultStuckEpsilon = 0.01
	// DefaultMarkerRadius bounds the notable-block marker lookup.
	DefaultMarkerRadius = 16
	// historyLimit bounds the failed-attempt log.
	historyLimit = 64
)

// Config tunes a Navigator.
type Config struct {
	CheckpointEvery int
	ArriveTolerance float64
	MonitorInterval time.Duration
	StuckThreshold  time.Duration
	StuckEpsilon    float64
	NodeBudget      int
	MarkerRadius    int
	AgentID         string
	Publisher       logging.Publisher
	Metrics         telemetry.Metrics
	Clock           logging.Clock
}

// Options carries per-call movement constraints and hooks.
type Options struct {
	AllowDig   bool
	AllowPlace bool
	// Radius is the acceptance radius around the target; zero means exact.
	Radius float64
	// OnStuck replaces the default stuck handling (log + metric) when set.
	OnStuck func(StuckReport)
}

// AttemptRecord is one failed navigation attempt in the execution history.
type AttemptRecord struct {
	Start  geom.Vec3 `json:"start"`
	End    geom.Vec3 `json:"end"`
	Time   time.Time `json:"time"`
	Reason string    `json:"reason"`
}

// Navigator plans routes through the pathfinding collaborator, executes them
// checkpoint by checkpoint, monitors progress for stalls, and reports
// outcomes into spatial memory. One execution at a time: concurrent calls
// are rejected with ErrNavigationBusy.
type Navigator struct {
	world      worldq.World
	pathfinder pathfind.Service
	memory     *memory.Memory
	scanner    *scanner.Scanner
	cfg        Config

	active      atomic.Bool
	interrupted atomic.Bool

	stateMu sync.Mutex
	state   State

	historyMu sync.Mutex
	history   []AttemptRecord
}

// New constructs a Navigator. The scanner is optional; when present its last
// snapshot enriches the context refresh after each checkpoint.
func New(world worldq.World, pathfinder pathfind.Service, mem *memory.Memory, scan *scanner.Scanner, cfg Config) *Navigator {
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = DefaultCheckpointEvery
	}
	if cfg.ArriveTolerance <= 0 {
		cfg.ArriveTolerance = DefaultArriveTolerance
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = DefaultMonitorInterval
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = DefaultStuckThreshold
	}
	if cfg.StuckEpsilon <= 0 {
		cfg.StuckEpsilon = DefaultStuckEpsilon
	}
	if cfg.NodeBudget <= 0 {
		cfg.NodeBudget = pathfind.DefaultNodeBudget
	}
	if cfg.MarkerRadius <= 0 {
		cfg.MarkerRadius = DefaultMarkerRadius
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
	}
	return &Navigator{
		world:      world,
		pathfinder: pathfinder,
		memory:     mem,
		scanner:    scan,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// State reports the navigator's current state.
func (n *Navigator) State() State {
	if n == nil {
		return StateIdle
	}
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state
}

func (n *Navigator) setState(state State) {
	n.stateMu.Lock()
	n.state = state
	n.stateMu.Unlock()
}

// Interrupt sets the cooperative interrupt flag. It is polled at checkpoint
// boundaries only, so cancellation latency is bounded by one checkpoint's
// travel time.
func (n *Navigator) Interrupt() {
	if n == nil {
		return
	}
	n.interrupted.Store(true)
}

// History snapshots the failed-attempt log.
func (n *Navigator) History() []AttemptRecord {
	if n == nil {
		return nil
	}
	n.historyMu.Lock()
	defer n.historyMu.Unlock()
	return append([]AttemptRecord(nil), n.history...)
}

// MoveToLocation plans a route to the target and walks it checkpoint by
// checkpoint. It returns nil on arrival, ErrNavigationBusy when another
// execution is in flight, or one of *PlanningError, *VerificationError,
// *InterruptedError.
func (n *Navigator) MoveToLocation(ctx context.Context, target geom.Vec3, opts Options) error {
	if n == nil || n.world == nil || n.pathfinder == nil {
		return &PlanningError{Target: target, Reason: "navigator not configured"}
	}
	if !n.active.CompareAndSwap(false, true) {
		return ErrNavigationBusy
	}
	defer n.active.Store(false)
	defer n.setState(StateIdle)
	n.interrupted.Store(false)

	start, ok := n.world.Position()
	if !ok {
		return &PlanningError{Target: target, Reason: "agent position unknown"}
	}

	n.setState(StatePlanning)
	plan, err := n.planWithContext(ctx, target, opts)
	if err != nil {
		n.setState(StateFailed)
		navlog.PlanFailed(ctx, n.cfg.Publisher, n.cfg.AgentID, target.Key(), err.Error())
		if n.cfg.Metrics != nil {
			n.cfg.Metrics.Add("nav_plan_failures_total", 1)
		}
		return err
	}
	navlog.PlanReady(ctx, n.cfg.Publisher, n.cfg.AgentID, navlog.PlanPayload{
		Waypoints:   len(plan.Waypoints),
		Checkpoints: len(plan.Checkpoints),
		Obstacles:   len(plan.Obstacles),
		Markers:     len(plan.Markers),
		Target:      target.Key(),
	})

	n.setState(StateExecuting)
	err = n.executeWithContext(ctx, start, plan, opts)
	switch e := err.(type) {
	case nil:
		n.setState(StateSucceeded)
		n.recordSuccess(ctx, start, plan)
	case *InterruptedError:
		n.setState(StateInterrupted)
		navlog.Interrupted(ctx, n.cfg.Publisher, n.cfg.AgentID, e.Checkpoint)
		if n.cfg.Metrics != nil {
			n.cfg.Metrics.Add("nav_interrupts_total", 1)
		}
	default:
		n.setState(StateFailed)
		n.recordFailure(ctx, start, target, err)
	}
	return err
}

// executeWithContext walks the checkpoint sequence. The progress monitor
// runs for exactly the duration of this call: its teardown is deferred so no
// timer outlives the execution on any exit path.
func (n *Navigator) executeWithContext(ctx context.Context, start geom.Vec3, plan *Plan, opts Options) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		n.runMonitor(ctx, stop, start, plan.Target, opts.OnStuck)
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	cons := pathfind.Constraints{AllowDig: opts.AllowDig, AllowPlace: opts.AllowPlace}
	for i, checkpoint := range plan.Checkpoints {
		if n.interrupted.Load() || ctx.Err() != nil {
			return &InterruptedError{Checkpoint: i}
		}
		if err := n.pathfinder.MoveToward(ctx, pathfind.Target{Position: checkpoint, Radius: n.cfg.ArriveTolerance}, cons); err != nil {
			if ctx.Err() != nil || n.interrupted.Load() {
				return &InterruptedError{Checkpoint: i}
			}
			return &VerificationError{
				Checkpoint: checkpoint,
				Index:      i,
				Distance:   n.distanceTo(checkpoint),
				Tolerance:  n.cfg.ArriveTolerance,
			}
		}
		distance := n.distanceTo(checkpoint)
		if distance > n.cfg.ArriveTolerance {
			return &VerificationError{
				Checkpoint: checkpoint,
				Index:      i,
				Distance:   distance,
				Tolerance:  n.cfg.ArriveTolerance,
			}
		}
		navlog.CheckpointReached(ctx, n.cfg.Publisher, n.cfg.AgentID, navlog.CheckpointPayload{
			Index:    i,
			Total:    len(plan.Checkpoints),
			Distance: distance,
		})
		n.refreshContext()
	}
	return nil
}

// runMonitor samples chord progress on a fixed interval until stopped. The
// ticker is owned by this goroutine and stops with it.
func (n *Navigator) runMonitor(ctx context.Context, stop <-chan struct{}, start, dest geom.Vec3, onStuck func(StuckReport)) {
	monitor := newProgressMonitor(start, dest, n.cfg.StuckEpsilon, n.cfg.StuckThreshold)
	ticker := time.NewTicker(n.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pos, ok := n.world.Position()
			if !ok {
				continue
			}
			report, fired := monitor.sample(pos, n.cfg.MonitorInterval)
			if !fired {
				continue
			}
			navlog.Stuck(ctx, n.cfg.Publisher, n.cfg.AgentID, navlog.StuckPayload{
				Progress:     report.Progress,
				StalledMilli: report.Stalled.Milliseconds(),
			})
			if n.cfg.Metrics != nil {
				n.cfg.Metrics.Add("nav_stuck_total", 1)
			}
			if onStuck != nil {
				onStuck(report)
			}
		}
	}
}

func (n *Navigator) distanceTo(target geom.Vec3) float64 {
	pos, ok := n.world.Position()
	if !ok {
		return n.cfg.ArriveTolerance + 1
	}
	return pos.DistanceTo(target)
}

func (n *Navigator) refreshContext() {
	if n.memory == nil {
		return
	}
	var snapshot *scanner.Snapshot
	if n.scanner != nil {
		snapshot = n.scanner.LastSnapshot()
	}
	n.memory.UpdateContext(n.world, snapshot)
}

// recordSuccess upserts the reusable path record keyed by the floored
// start and end coordinates.
func (n *Navigator) recordSuccess(ctx context.Context, start geom.Vec3, plan *Plan) {
	if n.memory != nil {
		obstacles := make([]string, 0, len(plan.Obstacles))
		for _, block := range plan.Obstacles {
			obstacles = append(obstacles, block.Name)
		}
		n.memory.RememberPath(start, plan.Target, plan.Waypoints, obstacles)
	}
	navlog.Completed(ctx, n.cfg.Publisher, n.cfg.AgentID, plan.Target.Key())
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.Add("nav_successes_total", 1)
	}
}

// recordFailure appends to the execution history; failures never enter the
// reusable path cache.
func (n *Navigator) recordFailure(ctx context.Context, start, target geom.Vec3, err error) {
	n.historyMu.Lock()
	n.history = append(n.history, AttemptRecord{
		Start:  start,
		End:    target,
		Time:   n.cfg.Clock.Now(),
		Reason: err.Error(),
	})
	if len(n.history) > historyLimit {
		n.history = n.history[len(n.history)-historyLimit:]
	}
	n.historyMu.Unlock()
	navlog.Failed(ctx, n.cfg.Publisher, n.cfg.AgentID, target.Key(), err.Error())
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.Add("nav_failures_total", 1)
	}
}
