package goals

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxfarer/agent/internal/telemetry"
	"voxfarer/agent/logging"
	"voxfarer/agent/logging/goalflow"
)

// Status enumerates the goal lifecycle states. Transitions only move toward
// the terminal states; a completed or failed goal never reactivates.
type Status string

const (
	StatusPending       Status = "pending"
	StatusActive        Status = "active"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusNeedsRevision Status = "needs_revision"
)

// Terminal reports whether the status ends the goal's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MaxAttempts is the retry tolerance; exceeding it (strictly) marks a goal
// as needing revision.
const MaxAttempts = 3

// Attempt records the most recent failed attempt on a goal.
type Attempt struct {
	Time   time.Time `json:"time"`
	Reason string    `json:"reason"`
}

// Goal is one tracked objective. The main goal uses the same shape with
// empty prerequisite and dependency lists.
type Goal struct {
	ID            string     `json:"id"`
	Description   string     `json:"description"`
	Status        Status     `json:"status"`
	Progress      int        `json:"progress"`
	Prerequisites []string   `json:"prerequisites,omitempty"`
	Dependencies  []string   `json:"dependencies,omitempty"`
	Attempts      int        `json:"attempts"`
	LastAttempt   *Attempt   `json:"lastAttempt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	FailedAt      *time.Time `json:"failedAt,omitempty"`
}

// Adaptation is a strategy-adaptation signal appended when a goal exceeds
// its retry budget. The tracker records the signal; it never picks the new
// strategy itself.
type Adaptation struct {
	GoalID   string    `json:"goalId"`
	Time     time.Time `json:"time"`
	Attempts int       `json:"attempts"`
	Reason   string    `json:"reason"`
}

// Config tunes a Tracker.
type Config struct {
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Clock     logging.Clock
}

// Tracker is the two-tier objective store: an optional main goal and a flat
// collection of subgoals. All operations are safe on unknown ids (silent
// no-ops) and never fail their caller.
type Tracker struct {
	mu          sync.Mutex
	main        *Goal
	subgoals    map[string]*Goal
	completed   []Goal
	failed      []Goal
	adaptations []Adaptation

	publisher logging.Publisher
	metrics   telemetry.Metrics
	clock     logging.Clock
}

// NewTracker constructs an empty Tracker.
func NewTracker(cfg Config) *Tracker {
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Tracker{
		subgoals:  make(map[string]*Goal),
		publisher: publisher,
		metrics:   cfg.Metrics,
		clock:     clock,
	}
}

// SetMainGoal installs (or replaces) the singleton main goal and returns its
// id. Replacing the main goal does not touch existing subgoals.
func (t *Tracker) SetMainGoal(description string) string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	goal := &Goal{
		ID:          uuid.NewString(),
		Description: description,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.main = goal
	goalflow.Created(context.Background(), t.publisher, goal.ID, description, true)
	return goal.ID
}

// AddSubGoal registers a subgoal with optional prerequisite and dependency
// id lists and returns its id. The new subgoal immediately participates in
// main-goal progress aggregation.
func (t *Tracker) AddSubGoal(description string, prerequisites, dependencies []string) string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	goal := &Goal{
		ID:            uuid.NewString(),
		Description:   description,
		Status:        StatusPending,
		Prerequisites: append([]string(nil), prerequisites...),
		Dependencies:  append([]string(nil), dependencies...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.subgoals[goal.ID] = goal
	t.recomputeMainLocked()
	goalflow.Created(context.Background(), t.publisher, goal.ID, description, false)
	return goal.ID
}

// UpdateProgress sets a goal's progress, clamped to [0,100]. A pending goal
// receiving progress becomes active. Terminal goals are left untouched.
func (t *Tracker) UpdateProgress(id string, progress int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	goal := t.lookupLocked(id)
	if goal == nil || goal.Status.Terminal() {
		return
	}
	goal.Progress = clampProgress(progress)
	if goal.Status == StatusPending && goal.Progress > 0 {
		goal.Status = StatusActive
	}
	goal.UpdatedAt = t.clock.Now()
	if goal != t.main {
		t.recomputeMainLocked()
	}
	mainProgress := 0
	if t.main != nil {
		mainProgress = t.main.Progress
	}
	goalflow.Progress(context.Background(), t.publisher, goal.ID, goal.Progress, mainProgress)
}

// RecordFailedAttempt increments a goal's attempt counter and stores the
// failure reason. Exceeding MaxAttempts marks the goal needs_revision and
// appends exactly one adaptation record for the transition.
func (t *Tracker) RecordFailedAttempt(id string, reason string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	goal := t.lookupLocked(id)
	if goal == nil || goal.Status.Terminal() {
		return
	}
	now := t.clock.Now()
	goal.Attempts++
	goal.LastAttempt = &Attempt{Time: now, Reason: reason}
	goal.UpdatedAt = now
	if goal.Attempts > MaxAttempts && goal.Status != StatusNeedsRevision {
		goal.Status = StatusNeedsRevision
		t.adaptations = append(t.adaptations, Adaptation{
			GoalID:   goal.ID,
			Time:     now,
			Attempts: goal.Attempts,
			Reason:   reason,
		})
		if t.metrics != nil {
			t.metrics.Add("goals_needs_revision_total", 1)
		}
		goalflow.NeedsRevision(context.Background(), t.publisher, goal.ID, goalflow.NeedsRevisionPayload{
			Attempts: goal.Attempts,
			Reason:   reason,
		})
		if goal != t.main {
			t.recomputeMainLocked()
		}
	}
}

// CompleteGoal marks a goal completed. A completed subgoal moves into the
// immutable history and leaves the active collection; the main goal stays in
// place. Unknown ids are ignored.
func (t *Tracker) CompleteGoal(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	goal := t.lookupLocked(id)
	if goal == nil || goal.Status.Terminal() {
		return
	}
	now := t.clock.Now()
	goal.Status = StatusCompleted
	goal.Progress = 100
	goal.UpdatedAt = now
	goal.CompletedAt = &now
	if goal != t.main {
		t.completed = append(t.completed, *goal)
		delete(t.subgoals, goal.ID)
		t.recomputeMainLocked()
	}
	if t.metrics != nil {
		t.metrics.Add("goals_completed_total", 1)
	}
	goalflow.Completed(context.Background(), t.publisher, goal.ID)
}

// FailGoal marks a goal failed. A failed subgoal moves into the immutable
// history and leaves the active collection; the main goal stays in place.
func (t *Tracker) FailGoal(id string, reason string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	goal := t.lookupLocked(id)
	if goal == nil || goal.Status.Terminal() {
		return
	}
	now := t.clock.Now()
	goal.Status = StatusFailed
	goal.UpdatedAt = now
	goal.FailedAt = &now
	if reason != "" {
		goal.LastAttempt = &Attempt{Time: now, Reason: reason}
	}
	if goal != t.main {
		t.failed = append(t.failed, *goal)
		delete(t.subgoals, goal.ID)
		t.recomputeMainLocked()
	}
	if t.metrics != nil {
		t.metrics.Add("goals_failed_total", 1)
	}
	goalflow.Failed(context.Background(), t.publisher, goal.ID, reason)
}

// CanStart reports whether every prerequisite and dependency id resolves to
// a completed goal. Missing ids are unsatisfied: a goal can never start
// while referencing an id that does not exist.
func (t *Tracker) CanStart(id string) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	goal := t.lookupLocked(id)
	if goal == nil {
		return false
	}
	// The two lists are named differently but gate identically; they are
	// evaluated as one blocking set. See DESIGN.md before merging them.
	for _, blockers := range [][]string{goal.Prerequisites, goal.Dependencies} {
		for _, blockerID := range blockers {
			blocker := t.lookupLocked(blockerID)
			if blocker == nil || blocker.Status != StatusCompleted {
				return false
			}
		}
	}
	return true
}

// ActiveSubgoals snapshots the current subgoal collection.
func (t *Tracker) ActiveSubgoals() []Goal {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Goal, 0, len(t.subgoals))
	for _, goal := range t.subgoals {
		out = append(out, *goal)
	}
	return out
}

// Adaptations snapshots the strategy-adaptation log.
func (t *Tracker) Adaptations() []Adaptation {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Adaptation(nil), t.adaptations...)
}

// CompletedGoals snapshots the completed-goal history.
func (t *Tracker) CompletedGoals() []Goal {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Goal(nil), t.completed...)
}

// FailedGoals snapshots the failed-goal history.
func (t *Tracker) FailedGoals() []Goal {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Goal(nil), t.failed...)
}

// lookupLocked resolves an id across the main goal, active subgoals, and the
// terminal histories.
func (t *Tracker) lookupLocked(id string) *Goal {
	if id == "" {
		return nil
	}
	if t.main != nil && t.main.ID == id {
		return t.main
	}
	if goal, ok := t.subgoals[id]; ok {
		return goal
	}
	for i := range t.completed {
		if t.completed[i].ID == id {
			return &t.completed[i]
		}
	}
	for i := range t.failed {
		if t.failed[i].ID == id {
			return &t.failed[i]
		}
	}
	return nil
}

// recomputeMainLocked derives main-goal progress from the subgoal set: the
// floored mean of per-subgoal contributions (100 when completed, stored
// progress otherwise) over active and terminal subgoals alike. With no
// subgoals at all the main goal stays under caller control. When subgoals
// exist but none remain active, progress snaps to 100 even if they failed;
// that policy is preserved deliberately (see DESIGN.md).
func (t *Tracker) recomputeMainLocked() {
	if t.main == nil {
		return
	}
	total := len(t.subgoals) + len(t.completed) + len(t.failed)
	if total == 0 {
		return
	}
	if len(t.subgoals) == 0 {
		t.main.Progress = 100
		t.main.UpdatedAt = t.clock.Now()
		return
	}
	sum := 0
	for _, goal := range t.subgoals {
		sum += clampProgress(goal.Progress)
	}
	for range t.completed {
		sum += 100
	}
	for i := range t.failed {
		sum += clampProgress(t.failed[i].Progress)
	}
	t.main.Progress = clampProgress(sum / total)
	t.main.UpdatedAt = t.clock.Now()
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
