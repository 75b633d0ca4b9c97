package geom

import (
	"math"
	"testing"
)

func TestKeyFloorsComponents(t *testing.T) {
	cases := []struct {
		name string
		pos  Vec3
		want string
	}{
		{"whole", Vec3{X: 1, Y: 2, Z: 3}, "1,2,3"},
		{"fractional", Vec3{X: 1.9, Y: 2.1, Z: 3.5}, "1,2,3"},
		{"negative", Vec3{X: -0.5, Y: -1.1, Z: -2}, "-1,-2,-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pos.Key(); got != tc.want {
				t.Fatalf("Key() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDistanceTo(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: 4, Y: 6, Z: 3}
	if got := a.DistanceTo(b); math.Abs(got-5) > 1e-9 {
		t.Fatalf("DistanceTo = %v, want 5", got)
	}
	if got := a.HorizontalDistanceTo(Vec3{X: 4, Y: 99, Z: 7}); math.Abs(got-5) > 1e-9 {
		t.Fatalf("HorizontalDistanceTo = %v, want 5", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-0.5, 0, 1); got != 0 {
		t.Fatalf("Clamp(-0.5) = %v, want 0", got)
	}
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Fatalf("Clamp(1.5) = %v, want 1", got)
	}
	if got := Clamp(0.25, 0, 1); got != 0.25 {
		t.Fatalf("Clamp(0.25) = %v, want 0.25", got)
	}
}

func TestBoundingBoxContainsInclusive(t *testing.T) {
	box := BoundingBox{Min: Vec3{X: 0, Y: 0, Z: 0}, Max: Vec3{X: 10, Y: 5, Z: 10}}
	if !box.Contains(Vec3{X: 0, Y: 0, Z: 0}) {
		t.Fatalf("expected min corner inside")
	}
	if !box.Contains(Vec3{X: 10, Y: 5, Z: 10}) {
		t.Fatalf("expected max corner inside")
	}
	if box.Contains(Vec3{X: 10.01, Y: 5, Z: 10}) {
		t.Fatalf("expected point past max outside")
	}
}

func TestCompassDirections(t *testing.T) {
	if len(CompassDirections) != 8 {
		t.Fatalf("expected 8 compass directions, got %d", len(CompassDirections))
	}
	north := CompassDirections[0]
	if north.Name != "north" || north.DZ != -1 || north.DX != 0 {
		t.Fatalf("unexpected north direction: %+v", north)
	}
	seen := make(map[string]struct{}, len(CompassDirections))
	for _, dir := range CompassDirections {
		if _, dup := seen[dir.Name]; dup {
			t.Fatalf("duplicate direction %q", dir.Name)
		}
		seen[dir.Name] = struct{}{}
	}
}
