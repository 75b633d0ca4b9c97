package goals

// GoalSummary is the projection handed to external callers. Every field is
// defaulted so the projection is always well formed, even for records that
// were only partially populated.
type GoalSummary struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Attempts    int    `json:"attempts"`
	LastReason  string `json:"lastReason,omitempty"`
	CanStart    bool   `json:"canStart"`
	Subgoals    int    `json:"subgoals,omitempty"`
}

const placeholderDescription = "(no description)"

// Summary projects a goal by id. Unknown ids yield a fully defaulted
// summary rather than an error.
func (t *Tracker) Summary(id string) GoalSummary {
	if t == nil {
		return defaultSummary(id)
	}
	canStart := t.CanStart(id)
	t.mu.Lock()
	defer t.mu.Unlock()
	goal := t.lookupLocked(id)
	if goal == nil {
		return defaultSummary(id)
	}
	return summarizeLocked(goal, canStart)
}

// MainSummary projects the main goal, including the active subgoal count.
func (t *Tracker) MainSummary() GoalSummary {
	if t == nil {
		return defaultSummary("")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.main == nil {
		return defaultSummary("")
	}
	summary := summarizeLocked(t.main, true)
	summary.Subgoals = len(t.subgoals)
	return summary
}

func summarizeLocked(goal *Goal, canStart bool) GoalSummary {
	summary := GoalSummary{
		ID:          goal.ID,
		Description: goal.Description,
		Status:      string(goal.Status),
		Progress:    clampProgress(goal.Progress),
		Attempts:    goal.Attempts,
		CanStart:    canStart,
	}
	if summary.Description == "" {
		summary.Description = placeholderDescription
	}
	if summary.Status == "" {
		summary.Status = "unknown"
	}
	if goal.LastAttempt != nil {
		summary.LastReason = goal.LastAttempt.Reason
	}
	return summary
}

func defaultSummary(id string) GoalSummary {
	return GoalSummary{
		ID:          id,
		Description: placeholderDescription,
		Status:      "unknown",
	}
}
