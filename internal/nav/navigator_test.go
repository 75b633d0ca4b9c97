package nav

import (
	"context"
	"errors"
	"testing"
	"time"

	"voxfarer/agent/internal/geom"
	"voxfarer/agent/internal/memory"
	"voxfarer/agent/internal/pathfind"
	"voxfarer/agent/internal/worldq"
)

// fakePathfinder scripts the collaborator boundary per test.
type fakePathfinder struct {
	plan func(target pathfind.Target) (pathfind.Route, error)
	move func(target pathfind.Target) error
}

func (f *fakePathfinder) PlanRoute(ctx context.Context, target pathfind.Target, cons pathfind.Constraints, nodeBudget int) (pathfind.Route, error) {
	if f.plan == nil {
		return pathfind.Route{Status: pathfind.RouteNoPath}, nil
	}
	return f.plan(target)
}

func (f *fakePathfinder) MoveToward(ctx context.Context, target pathfind.Target, cons pathfind.Constraints) error {
	if f.move == nil {
		return nil
	}
	return f.move(target)
}

func straightRoute(target geom.Vec3, n int) pathfind.Route {
	waypoints := make([]geom.Vec3, n)
	for i := range waypoints {
		frac := float64(i+1) / float64(n)
		waypoints[i] = geom.Vec3{X: target.X * frac, Y: target.Y, Z: target.Z * frac}
	}
	return pathfind.Route{Status: pathfind.RouteSuccess, Waypoints: waypoints}
}

func newTestNavigator(world *worldq.Static, pf pathfind.Service, mem *memory.Memory) *Navigator {
	return New(world, pf, mem, nil, Config{
		CheckpointEvery: 2,
		ArriveTolerance: 2,
		MonitorInterval: time.Hour, // keep the monitor quiet in unit tests
		AgentID:         "tester",
	})
}

func TestMoveToLocationSucceedsAndCachesPath(t *testing.T) {
	world := worldq.NewStatic()
	world.SetPosition(geom.Vec3{})
	target := geom.Vec3{X: 10}

	pf := &fakePathfinder{
		plan: func(pathfind.Target) (pathfind.Route, error) {
			return straightRoute(target, 6), nil
		},
		move: func(t pathfind.Target) error {
			world.SetPosition(t.Position)
			return nil
		},
	}
	mem := memory.New(memory.Config{})
	nav := newTestNavigator(world, pf, mem)

	if err := nav.MoveToLocation(context.Background(), target, Options{}); err != nil {
		t.Fatalf("MoveToLocation failed: %v", err)
	}
	if got := nav.State(); got != StateIdle {
		t.Fatalf("expected idle state after return, got %s", got)
	}

	record, ok := mem.RecallPath(geom.Vec3{}, target)
	if !ok {
		t.Fatalf("expected successful route cached")
	}
	if record.UseCount != 1 || len(record.Waypoints) != 6 {
		t.Fatalf("unexpected path record: %+v", record)
	}

	// A repeat journey upserts the same record.
	world.SetPosition(geom.Vec3{})
	if err := nav.MoveToLocation(context.Background(), target, Options{}); err != nil {
		t.Fatalf("second MoveToLocation failed: %v", err)
	}
	record, _ = mem.RecallPath(geom.Vec3{}, target)
	if record.UseCount != 2 {
		t.Fatalf("expected use count 2, got %d", record.UseCount)
	}
}

func TestMoveToLocationPlanningFailure(t *testing.T) {
	world := worldq.NewStatic()
	world.SetPosition(geom.Vec3{})
	pf := &fakePathfinder{
		plan: func(pathfind.Target) (pathfind.Route, error) {
			return pathfind.Route{Status: pathfind.RouteNoPath}, nil
		},
	}
	nav := newTestNavigator(world, pf, nil)

	err := nav.MoveToLocation(context.Background(), geom.Vec3{X: 10}, Options{})
	var planErr *PlanningError
	if !errors.As(err, &planErr) {
		t.Fatalf("expected PlanningError, got %v", err)
	}
	if planErr.Reason != string(pathfind.RouteNoPath) {
		t.Fatalf("unexpected reason %q", planErr.Reason)
	}
	if got := nav.State(); got != StateIdle {
		t.Fatalf("expected idle after planning failure, got %s", got)
	}
	// Planning failures never enter the execution history.
	if history := nav.History(); len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}

func TestMoveToLocationBudgetExhaustionIsPlanningFailure(t *testing.T) {
	world := worldq.NewStatic()
	world.SetPosition(geom.Vec3{})
	pf := &fakePathfinder{
		plan: func(pathfind.Target) (pathfind.Route, error) {
			return pathfind.Route{Status: pathfind.RouteBudgetExhausted}, nil
		},
	}
	nav := newTestNavigator(world, pf, nil)

	err := nav.MoveToLocation(context.Background(), geom.Vec3{X: 100}, Options{})
	var planErr *PlanningError
	if !errors.As(err, &planErr) {
		t.Fatalf("expected PlanningError, got %v", err)
	}
}

func TestMoveToLocationVerificationFailureRecordsHistory(t *testing.T) {
	world := worldq.NewStatic()
	world.SetPosition(geom.Vec3{})
	target := geom.Vec3{X: 10}
	pf := &fakePathfinder{
		plan: func(pathfind.Target) (pathfind.Route, error) {
			return straightRoute(target, 4), nil
		},
		move: func(pathfind.Target) error {
			// Movement reports success but the agent never advances.
			return nil
		},
	}
	mem := memory.New(memory.Config{})
	nav := newTestNavigator(world, pf, mem)

	err := nav.MoveToLocation(context.Background(), target, Options{})
	var verifyErr *VerificationError
	if !errors.As(err, &verifyErr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if verifyErr.Index != 0 {
		t.Fatalf("expected failure at the first checkpoint, got %d", verifyErr.Index)
	}
	if verifyErr.Distance <= verifyErr.Tolerance {
		t.Fatalf("expected reported distance beyond tolerance: %+v", verifyErr)
	}

	history := nav.History()
	if len(history) != 1 || history[0].End != target {
		t.Fatalf("expected one history record for the failure, got %+v", history)
	}
	if _, ok := mem.RecallPath(geom.Vec3{}, target); ok {
		t.Fatalf("failed attempts must not enter the path cache")
	}
}

func TestMoveToLocationBusyGuard(t *testing.T) {
	world := worldq.NewStatic()
	world.SetPosition(geom.Vec3{})
	target := geom.Vec3{X: 10}

	started := make(chan struct{})
	release := make(chan struct{})
	pf := &fakePathfinder{
		plan: func(pathfind.Target) (pathfind.Route, error) {
			return straightRoute(target, 2), nil
		},
		move: func(t pathfind.Target) error {
			close(started)
			<-release
			world.SetPosition(t.Position)
			return nil
		},
	}
	nav := newTestNavigator(world, pf, nil)

	done := make(chan error, 1)
	go func() {
		done <- nav.MoveToLocation(context.Background(), target, Options{})
	}()
	<-started

	if err := nav.MoveToLocation(context.Background(), target, Options{}); !errors.Is(err, ErrNavigationBusy) {
		t.Fatalf("expected ErrNavigationBusy, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first navigation failed: %v", err)
	}
}

func TestInterruptStopsAtCheckpointBoundary(t *testing.T) {
	world := worldq.NewStatic()
	world.SetPosition(geom.Vec3{})
	target := geom.Vec3{X: 10}

	mem := memory.New(memory.Config{})
	var nav *Navigator
	moves := 0
	pf := &fakePathfinder{
		plan: func(pathfind.Target) (pathfind.Route, error) {
			return straightRoute(target, 8), nil
		},
		move: func(t pathfind.Target) error {
			moves++
			world.SetPosition(t.Position)
			nav.Interrupt()
			return nil
		},
	}
	nav = newTestNavigator(world, pf, mem)

	err := nav.MoveToLocation(context.Background(), target, Options{})
	var interrupted *InterruptedError
	if !errors.As(err, &interrupted) {
		t.Fatalf("expected InterruptedError, got %v", err)
	}
	if moves != 1 {
		t.Fatalf("expected the interrupt honored at the next boundary, got %d moves", moves)
	}

	// Interrupts are neither cached successes nor recorded failures.
	if _, ok := mem.RecallPath(geom.Vec3{}, target); ok {
		t.Fatalf("interrupted attempt must not enter the path cache")
	}
	if history := nav.History(); len(history) != 0 {
		t.Fatalf("expected empty history after interrupt, got %+v", history)
	}

	// The flag is consumed; the next navigation proceeds.
	world.SetPosition(geom.Vec3{})
	pf.move = func(t pathfind.Target) error {
		world.SetPosition(t.Position)
		return nil
	}
	if err := nav.MoveToLocation(context.Background(), target, Options{}); err != nil {
		t.Fatalf("expected navigation after interrupt to succeed, got %v", err)
	}
}

func TestCancelledContextInterrupts(t *testing.T) {
	world := worldq.NewStatic()
	world.SetPosition(geom.Vec3{})
	target := geom.Vec3{X: 10}

	ctx, cancel := context.WithCancel(context.Background())
	pf := &fakePathfinder{
		plan: func(pathfind.Target) (pathfind.Route, error) {
			return straightRoute(target, 8), nil
		},
		move: func(t pathfind.Target) error {
			world.SetPosition(t.Position)
			cancel()
			return nil
		},
	}
	nav := newTestNavigator(world, pf, nil)

	err := nav.MoveToLocation(ctx, target, Options{})
	var interrupted *InterruptedError
	if !errors.As(err, &interrupted) {
		t.Fatalf("expected InterruptedError on cancellation, got %v", err)
	}
}

func TestMoveToLocationStuckHook(t *testing.T) {
	world := worldq.NewStatic()
	world.SetPosition(geom.Vec3{})
	target := geom.Vec3{X: 10}

	release := make(chan struct{})
	pf := &fakePathfinder{
		plan: func(pathfind.Target) (pathfind.Route, error) {
			return straightRoute(target, 2), nil
		},
		move: func(t pathfind.Target) error {
			<-release
			world.SetPosition(t.Position)
			return nil
		},
	}
	nav := New(world, pf, nil, nil, Config{
		CheckpointEvery: 2,
		ArriveTolerance: 2,
		MonitorInterval: 5 * time.Millisecond,
		StuckThreshold:  10 * time.Millisecond,
		AgentID:         "tester",
	})

	fired := make(chan StuckReport, 1)
	done := make(chan error, 1)
	go func() {
		done <- nav.MoveToLocation(context.Background(), target, Options{
			OnStuck: func(report StuckReport) {
				select {
				case fired <- report:
				default:
				}
			},
		})
	}()

	select {
	case report := <-fired:
		if report.Stalled <= 0 {
			t.Fatalf("expected positive stall duration, got %+v", report)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stuck hook never fired")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("navigation failed: %v", err)
	}
}
