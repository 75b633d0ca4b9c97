package geom

import (
	"fmt"
	"math"
)

// Vec3 is a position in voxel-world space. Y is the vertical axis.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns the component-wise sum of v and other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Offset returns v displaced by the provided deltas.
func (v Vec3) Offset(dx, dy, dz float64) Vec3 {
	return Vec3{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

// DistanceTo returns the Euclidean distance between v and other.
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// HorizontalDistanceTo returns the distance between v and other ignoring Y.
func (v Vec3) HorizontalDistanceTo(other Vec3) float64 {
	return math.Hypot(v.X-other.X, v.Z-other.Z)
}

// Floored returns a copy of v with each component floored to an integer value.
func (v Vec3) Floored() Vec3 {
	return Vec3{X: math.Floor(v.X), Y: math.Floor(v.Y), Z: math.Floor(v.Z)}
}

// Key renders the floored coordinates as a stable map key.
func (v Vec3) Key() string {
	f := v.Floored()
	return fmt.Sprintf("%d,%d,%d", int(f.X), int(f.Y), int(f.Z))
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// BoundingBox is an axis-aligned region between two corners.
type BoundingBox struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Contains reports whether pos lies inside the box, inclusive of its faces.
func (b BoundingBox) Contains(pos Vec3) bool {
	return pos.X >= b.Min.X && pos.X <= b.Max.X &&
		pos.Y >= b.Min.Y && pos.Y <= b.Max.Y &&
		pos.Z >= b.Min.Z && pos.Z <= b.Max.Z
}

// Direction is one of the eight compass headings used for sightline checks.
type Direction struct {
	Name string
	DX   float64
	DZ   float64
}

// CompassDirections lists the eight headings in clockwise order from north.
// North is negative Z, matching voxel-world convention.
var CompassDirections = [8]Direction{
	{Name: "north", DX: 0, DZ: -1},
	{Name: "northeast", DX: 1, DZ: -1},
	{Name: "east", DX: 1, DZ: 0},
	{Name: "southeast", DX: 1, DZ: 1},
	{Name: "south", DX: 0, DZ: 1},
	{Name: "southwest", DX: -1, DZ: 1},
	{Name: "west", DX: -1, DZ: 0},
	{Name: "northwest", DX: -1, DZ: -1},
}
