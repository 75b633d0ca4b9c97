package nav

import (
	"testing"

	"voxfarer/agent/internal/geom"
)

func waypointLine(n int) []geom.Vec3 {
	out := make([]geom.Vec3, n)
	for i := range out {
		out[i] = geom.Vec3{X: float64(i)}
	}
	return out
}

func TestSelectCheckpointsEveryNth(t *testing.T) {
	waypoints := waypointLine(12)
	checkpoints := selectCheckpoints(waypoints, 5)

	want := []geom.Vec3{{X: 4}, {X: 9}, {X: 11}}
	if len(checkpoints) != len(want) {
		t.Fatalf("expected %d checkpoints, got %d: %+v", len(want), len(checkpoints), checkpoints)
	}
	for i, cp := range checkpoints {
		if cp != want[i] {
			t.Fatalf("checkpoint %d = %+v, want %+v", i, cp, want[i])
		}
	}
}

func TestSelectCheckpointsAlwaysIncludesFinal(t *testing.T) {
	waypoints := waypointLine(10)
	checkpoints := selectCheckpoints(waypoints, 5)
	if last := checkpoints[len(checkpoints)-1]; last != waypoints[len(waypoints)-1] {
		t.Fatalf("expected final waypoint as last checkpoint, got %+v", last)
	}
	// 10 waypoints with stride 5 end exactly on the final waypoint; no
	// duplicate is appended.
	if len(checkpoints) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(checkpoints))
	}
}

func TestSelectCheckpointsShortRoutes(t *testing.T) {
	if got := selectCheckpoints(nil, 5); got != nil {
		t.Fatalf("expected nil for empty route, got %+v", got)
	}

	single := waypointLine(1)
	checkpoints := selectCheckpoints(single, 5)
	if len(checkpoints) != 1 || checkpoints[0] != single[0] {
		t.Fatalf("expected the single waypoint kept, got %+v", checkpoints)
	}

	all := selectCheckpoints(waypointLine(3), 1)
	if len(all) != 3 {
		t.Fatalf("expected every waypoint kept with stride 1, got %d", len(all))
	}
}
