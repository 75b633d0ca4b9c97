package goals

import (
	"testing"
	"time"

	"voxfarer/agent/logging"
)

func newTestTracker() *Tracker {
	current := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return NewTracker(Config{
		Clock: logging.ClockFunc(func() time.Time {
			current = current.Add(time.Second)
			return current
		}),
	})
}

func mainProgress(t *testing.T, tracker *Tracker) int {
	t.Helper()
	return tracker.MainSummary().Progress
}

func TestMainGoalAggregatesSubgoalProgress(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetMainGoal("establish a base")
	a := tracker.AddSubGoal("gather wood", nil, nil)
	b := tracker.AddSubGoal("build shelter", nil, nil)

	tracker.UpdateProgress(a, 40)
	tracker.UpdateProgress(b, 60)
	if got := mainProgress(t, tracker); got != 50 {
		t.Fatalf("expected main progress 50, got %d", got)
	}

	tracker.CompleteGoal(a)
	if got := mainProgress(t, tracker); got != 80 {
		t.Fatalf("expected main progress 80 after completing one subgoal, got %d", got)
	}

	tracker.CompleteGoal(b)
	if got := mainProgress(t, tracker); got != 100 {
		t.Fatalf("expected main progress 100, got %d", got)
	}
}

func TestMainGoalSnapsTo100WithoutActiveSubgoals(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetMainGoal("explore the cave")
	a := tracker.AddSubGoal("find entrance", nil, nil)

	tracker.UpdateProgress(a, 30)
	tracker.FailGoal(a, "cave flooded")

	// No active subgoals remain, so the main goal reads complete even
	// though its only subgoal failed.
	if got := mainProgress(t, tracker); got != 100 {
		t.Fatalf("expected main progress 100 with no active subgoals, got %d", got)
	}
	if len(tracker.FailedGoals()) != 1 {
		t.Fatalf("expected one failed goal in history")
	}
}

func TestFailedSubgoalKeepsStoredProgressInMean(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetMainGoal("stock the smelter")
	a := tracker.AddSubGoal("mine iron", nil, nil)
	b := tracker.AddSubGoal("mine coal", nil, nil)

	tracker.UpdateProgress(a, 20)
	tracker.FailGoal(a, "pickaxe broke")
	tracker.UpdateProgress(b, 40)

	// (20 + 40) / 2
	if got := mainProgress(t, tracker); got != 30 {
		t.Fatalf("expected main progress 30, got %d", got)
	}
}

func TestMainGoalWithoutSubgoalsStaysUnderCallerControl(t *testing.T) {
	tracker := newTestTracker()
	id := tracker.SetMainGoal("wander")
	tracker.UpdateProgress(id, 25)
	if got := mainProgress(t, tracker); got != 25 {
		t.Fatalf("expected direct progress 25, got %d", got)
	}
}

func TestUpdateProgressActivatesAndClamps(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetMainGoal("main")
	id := tracker.AddSubGoal("sub", nil, nil)

	subgoals := tracker.ActiveSubgoals()
	if subgoals[0].Status != StatusPending {
		t.Fatalf("expected new subgoal pending, got %s", subgoals[0].Status)
	}

	tracker.UpdateProgress(id, 150)
	subgoals = tracker.ActiveSubgoals()
	if subgoals[0].Progress != 100 || subgoals[0].Status != StatusActive {
		t.Fatalf("expected clamped active subgoal, got %+v", subgoals[0])
	}

	tracker.CompleteGoal(id)
	tracker.UpdateProgress(id, 10)
	completed := tracker.CompletedGoals()
	if completed[0].Progress != 100 {
		t.Fatalf("expected terminal goal untouched, got %+v", completed[0])
	}
}

func TestNeedsRevisionAfterExhaustedAttempts(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetMainGoal("main")
	id := tracker.AddSubGoal("cross the ravine", nil, nil)

	for i := 0; i < MaxAttempts; i++ {
		tracker.RecordFailedAttempt(id, "fell")
	}
	if len(tracker.Adaptations()) != 0 {
		t.Fatalf("expected no adaptation within the attempt budget")
	}
	summary := tracker.Summary(id)
	if summary.Status != string(StatusPending) || summary.Attempts != MaxAttempts {
		t.Fatalf("unexpected summary inside budget: %+v", summary)
	}

	tracker.RecordFailedAttempt(id, "fell again")
	summary = tracker.Summary(id)
	if summary.Status != string(StatusNeedsRevision) {
		t.Fatalf("expected needs_revision on attempt %d, got %s", MaxAttempts+1, summary.Status)
	}
	adaptations := tracker.Adaptations()
	if len(adaptations) != 1 {
		t.Fatalf("expected exactly one adaptation record, got %d", len(adaptations))
	}
	if adaptations[0].Attempts != MaxAttempts+1 || adaptations[0].Reason != "fell again" {
		t.Fatalf("unexpected adaptation: %+v", adaptations[0])
	}

	// Further failures accumulate attempts without new adaptations.
	tracker.RecordFailedAttempt(id, "fell a third time")
	if len(tracker.Adaptations()) != 1 {
		t.Fatalf("expected still one adaptation record")
	}
	if got := tracker.Summary(id).Attempts; got != MaxAttempts+2 {
		t.Fatalf("expected %d attempts, got %d", MaxAttempts+2, got)
	}
}

func TestCanStartFailsClosed(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetMainGoal("main")

	craft := tracker.AddSubGoal("craft pickaxe", nil, nil)
	mine := tracker.AddSubGoal("mine stone", []string{craft}, nil)
	smelt := tracker.AddSubGoal("smelt ore", []string{craft}, []string{mine})

	if tracker.CanStart("does-not-exist") {
		t.Fatalf("expected unknown goal not startable")
	}
	if tracker.CanStart(mine) {
		t.Fatalf("expected mine blocked by incomplete prerequisite")
	}

	tracker.CompleteGoal(craft)
	if !tracker.CanStart(mine) {
		t.Fatalf("expected mine startable after prerequisite completed")
	}
	if tracker.CanStart(smelt) {
		t.Fatalf("expected smelt blocked by incomplete dependency")
	}

	tracker.CompleteGoal(mine)
	if !tracker.CanStart(smelt) {
		t.Fatalf("expected smelt startable once both lists are satisfied")
	}

	dangling := tracker.AddSubGoal("use portal", []string{"missing-id"}, nil)
	if tracker.CanStart(dangling) {
		t.Fatalf("expected dangling prerequisite id to block forever")
	}
}

func TestSummaryDefaultsUnknownGoals(t *testing.T) {
	tracker := newTestTracker()
	summary := tracker.Summary("ghost")
	if summary.ID != "ghost" || summary.Description != "(no description)" || summary.Status != "unknown" {
		t.Fatalf("unexpected default summary: %+v", summary)
	}
	if summary.CanStart {
		t.Fatalf("expected unknown goal not startable")
	}
}

func TestMainSummaryCountsSubgoals(t *testing.T) {
	tracker := newTestTracker()
	if got := tracker.MainSummary(); got.Status != "unknown" {
		t.Fatalf("expected defaulted summary before a main goal, got %+v", got)
	}

	tracker.SetMainGoal("main")
	tracker.AddSubGoal("one", nil, nil)
	tracker.AddSubGoal("two", nil, nil)

	summary := tracker.MainSummary()
	if summary.Subgoals != 2 {
		t.Fatalf("expected 2 subgoals, got %d", summary.Subgoals)
	}
	if summary.Description != "main" || summary.Status != string(StatusActive) {
		t.Fatalf("unexpected main summary: %+v", summary)
	}
}
