package nav

import (
	"time"

	"voxfarer/agent/internal/geom"
)

// StuckReport is handed to the stuck-handling hook when progress has stalled
// past the threshold. The navigator only guarantees the hook fires; the
// recovery policy (jump, dig through, replan, escalate) belongs to the hook.
type StuckReport struct {
	Progress float64
	Stalled  time.Duration
	Position geom.Vec3
}

// progressMonitor tracks chord progress toward a destination and accumulates
// stalled time. Chord progress is a straight-line approximation: it can dip
// on curved routes, which counts as a stall, not a defect.
type progressMonitor struct {
	start        geom.Vec3
	dest         geom.Vec3
	total        float64
	epsilon      float64
	threshold    time.Duration
	lastProgress float64
	stalled      time.Duration
}

func newProgressMonitor(start, dest geom.Vec3, epsilon float64, threshold time.Duration) *progressMonitor {
	total := start.DistanceTo(dest)
	return &progressMonitor{
		start:     start,
		dest:      dest,
		total:     total,
		epsilon:   epsilon,
		threshold: threshold,
	}
}

// progressAt computes 1 - remaining/total, clamped to [0,1].
func (m *progressMonitor) progressAt(pos geom.Vec3) float64 {
	if m.total <= 0 {
		return 1
	}
	remaining := pos.DistanceTo(m.dest)
	return geom.Clamp(1-remaining/m.total, 0, 1)
}

// sample folds one position reading into the stall accumulator and reports
// whether the stuck threshold fired. Firing resets the accumulator so the
// hook runs once per sustained stall, not once per tick.
func (m *progressMonitor) sample(pos geom.Vec3, elapsed time.Duration) (StuckReport, bool) {
	progress := m.progressAt(pos)
	delta := progress - m.lastProgress
	m.lastProgress = progress
	if delta >= m.epsilon {
		m.stalled = 0
		return StuckReport{}, false
	}
	m.stalled += elapsed
	if m.stalled < m.threshold {
		return StuckReport{}, false
	}
	report := StuckReport{Progress: progress, Stalled: m.stalled, Position: pos}
	m.stalled = 0
	return report, true
}
