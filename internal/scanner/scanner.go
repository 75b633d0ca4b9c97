package scanner

import (
	"context"
	"math"
	"sort"
	"time"

	"voxfarer/agent/internal/geom"
	"voxfarer/agent/internal/telemetry"
	"voxfarer/agent/internal/worldq"
	"voxfarer/agent/logging"
	"voxfarer/agent/logging/scanflow"
)

const (
	// DefaultRadius is the outermost sampling ring distance.
	DefaultRadius = 16
	// DefaultHeightRange is the half-height of each sampled column.
	DefaultHeightRange = 8
	// TerrainStep is the coarse grid spacing for elevation sampling.
	TerrainStep = 4
	// SightlineMaxDistance bounds each directional ray-march.
	SightlineMaxDistance = 16.0
	// ElevationUnknown marks a terrain cell with no detected surface.
	ElevationUnknown = math.MinInt32
)

// BlockObservation is one recorded non-air block in a snapshot.
type BlockObservation struct {
	Position   geom.Vec3 `json:"position"`
	Distance   float64   `json:"distance"`
	Accessible bool      `json:"accessible"`
}

// TerrainSample is a coarse-grid surface elevation reading.
type TerrainSample struct {
	X         int `json:"x"`
	Z         int `json:"z"`
	Elevation int `json:"elevation"`
}

// Known reports whether the sample found a surface.
func (s TerrainSample) Known() bool {
	return s.Elevation != ElevationUnknown
}

// Sightline records the outcome of one directional ray-march.
type Sightline struct {
	Clear    bool      `json:"clear"`
	Distance float64   `json:"distance"`
	Obstacle *Obstacle `json:"obstacle,omitempty"`
}

// Obstacle identifies the block terminating a sightline.
type Obstacle struct {
	Type     string    `json:"type"`
	Position geom.Vec3 `json:"position"`
	Distance float64   `json:"distance"`
}

// Snapshot is the immutable result of one scan.
type Snapshot struct {
	Origin     geom.Vec3                     `json:"origin"`
	Time       time.Time                     `json:"time"`
	Blocks     map[string][]BlockObservation `json:"blocks"`
	Terrain    []TerrainSample               `json:"terrain"`
	Sightlines map[string]Sightline          `json:"sightlines"`
	Entities   []worldq.Entity               `json:"entities"`
}

// ResourceCount is one row of the ranked summary.
type ResourceCount struct {
	Name            string  `json:"name"`
	Count           int     `json:"count"`
	NearestDistance float64 `json:"nearestDistance"`
}

// Summary reduces the last snapshot into ranked resource lists, both sorted
// ascending by nearest distance.
type Summary struct {
	Blocks     []ResourceCount `json:"blocks"`
	Accessible []ResourceCount `json:"accessible"`
}

// Config tunes a Scanner.
type Config struct {
	Radius      int
	HeightRange int
	Publisher   logging.Publisher
	Metrics     telemetry.Metrics
	Clock       logging.Clock
	AgentID     string
}

// Scanner samples the world around the agent into structured snapshots.
type Scanner struct {
	world       worldq.World
	radius      int
	heightRange int
	publisher   logging.Publisher
	metrics     telemetry.Metrics
	clock       logging.Clock
	agentID     string

	last *Snapshot
}

// New constructs a Scanner over the given world.
func New(world worldq.World, cfg Config) *Scanner {
	radius := cfg.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	heightRange := cfg.HeightRange
	if heightRange <= 0 {
		heightRange = DefaultHeightRange
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Scanner{
		world:       world,
		radius:      radius,
		heightRange: heightRange,
		publisher:   publisher,
		metrics:     cfg.Metrics,
		clock:       clock,
		agentID:     cfg.AgentID,
	}
}

// RingSampleCount returns the number of angular samples taken at the given
// ring radius: max(8, floor(2*pi*r)), so spacing stays roughly constant.
func RingSampleCount(radius int) int {
	count := int(math.Floor(2 * math.Pi * float64(radius)))
	if count < 8 {
		return 8
	}
	return count
}

// Scan samples concentric rings around the agent and records the result as
// the last snapshot. Missing world data is skipped silently; Scan never
// fails, it only produces emptier snapshots.
func (s *Scanner) Scan() *Snapshot {
	if s == nil || s.world == nil {
		return nil
	}
	started := s.clock.Now()
	origin, ok := s.world.Position()
	if !ok {
		return nil
	}

	snapshot := &Snapshot{
		Origin:     origin,
		Time:       started,
		Blocks:     make(map[string][]BlockObservation),
		Sightlines: make(map[string]Sightline, len(geom.CompassDirections)),
	}

	samples := 0
	for radius := 1; radius <= s.radius; radius += 2 {
		count := RingSampleCount(radius)
		for i := 0; i < count; i++ {
			angle := 2 * math.Pi * float64(i) / float64(count)
			x := origin.X + float64(radius)*math.Cos(angle)
			z := origin.Z + float64(radius)*math.Sin(angle)
			samples += s.sampleColumn(snapshot, geom.Vec3{X: x, Y: origin.Y, Z: z})
		}
	}

	snapshot.Terrain = s.sampleTerrain(origin)
	s.sampleSightlines(snapshot, origin)
	snapshot.Entities = s.world.NearbyEntities(s.radius)

	s.last = snapshot
	if s.metrics != nil {
		s.metrics.Add("scanner_scans_total", 1)
		s.metrics.Store("scanner_last_block_types", uint64(len(snapshot.Blocks)))
	}
	scanflow.Completed(context.Background(), s.publisher, s.agentID, scanflow.CompletedPayload{
		BlockTypes:     len(snapshot.Blocks),
		Samples:        samples,
		Entities:       len(snapshot.Entities),
		DurationMillis: s.clock.Now().Sub(started).Milliseconds(),
	})
	return snapshot
}

// sampleColumn records every non-air block in a vertical column centered on
// the origin height, returning the number of cells examined.
func (s *Scanner) sampleColumn(snapshot *Snapshot, at geom.Vec3) int {
	examined := 0
	for dy := -s.heightRange; dy <= s.heightRange; dy++ {
		pos := geom.Vec3{X: at.X, Y: at.Y + float64(dy), Z: at.Z}
		examined++
		block, ok := s.world.BlockAt(pos)
		if !ok || block == nil || worldq.IsAir(block.Name) {
			continue
		}
		observation := BlockObservation{
			Position:   block.Position,
			Distance:   block.Position.DistanceTo(snapshot.Origin),
			Accessible: s.isAccessible(block),
		}
		snapshot.Blocks[block.Name] = append(snapshot.Blocks[block.Name], observation)
	}
	return examined
}

// isAccessible requires room to stand above the block and a capable tool.
// Any missing world data short-circuits to inaccessible.
func (s *Scanner) isAccessible(block *worldq.Block) bool {
	if block == nil {
		return false
	}
	for dy := 1; dy <= 2; dy++ {
		above, ok := s.world.BlockAt(block.Position.Offset(0, float64(dy), 0))
		if !ok || above == nil || !worldq.IsAir(above.Name) {
			return false
		}
	}
	return s.world.CanHarvest(block)
}

// sampleTerrain walks a coarse grid looking for the first air-over-solid
// transition below the search ceiling.
func (s *Scanner) sampleTerrain(origin geom.Vec3) []TerrainSample {
	var out []TerrainSample
	for dx := -s.radius; dx <= s.radius; dx += TerrainStep {
		for dz := -s.radius; dz <= s.radius; dz += TerrainStep {
			x := origin.X + float64(dx)
			z := origin.Z + float64(dz)
			elevation := ElevationUnknown
			for y := origin.Y + float64(s.heightRange); y > origin.Y-float64(s.heightRange); y-- {
				upper, okUpper := s.world.BlockAt(geom.Vec3{X: x, Y: y, Z: z})
				lower, okLower := s.world.BlockAt(geom.Vec3{X: x, Y: y - 1, Z: z})
				if !okUpper || !okLower || upper == nil || lower == nil {
					continue
				}
				if worldq.IsAir(upper.Name) && !worldq.IsAir(lower.Name) {
					elevation = int(math.Floor(y - 1))
					break
				}
			}
			out = append(out, TerrainSample{X: int(math.Floor(x)), Z: int(math.Floor(z)), Elevation: elevation})
		}
	}
	return out
}

// sampleSightlines ray-marches the eight compass directions, examining a
// three-block vertical slab at each unit step.
func (s *Scanner) sampleSightlines(snapshot *Snapshot, origin geom.Vec3) {
	for _, dir := range geom.CompassDirections {
		sight := Sightline{Clear: true, Distance: SightlineMaxDistance}
		for step := 1.0; step <= SightlineMaxDistance; step++ {
			x := origin.X + dir.DX*step
			z := origin.Z + dir.DZ*step
			blocked := false
			for dy := 0.0; dy <= 2; dy++ {
				block, ok := s.world.BlockAt(geom.Vec3{X: x, Y: origin.Y + dy, Z: z})
				if !ok || block == nil || worldq.IsAir(block.Name) {
					continue
				}
				sight = Sightline{
					Clear:    false,
					Distance: step,
					Obstacle: &Obstacle{Type: block.Name, Position: block.Position, Distance: step},
				}
				blocked = true
				break
			}
			if blocked {
				break
			}
		}
		snapshot.Sightlines[dir.Name] = sight
	}
}

// LastSnapshot returns the most recent scan, or nil before the first Scan.
func (s *Scanner) LastSnapshot() *Snapshot {
	if s == nil {
		return nil
	}
	return s.last
}

// Summary ranks the last snapshot's block types by nearest distance. Returns
// nil when no scan has been taken.
func (s *Scanner) Summary() *Summary {
	if s == nil || s.last == nil {
		return nil
	}
	summary := &Summary{}
	for name, observations := range s.last.Blocks {
		if len(observations) == 0 {
			continue
		}
		nearest := observations[0].Distance
		nearestAccessible := math.MaxFloat64
		accessibleCount := 0
		for _, obs := range observations {
			if obs.Distance < nearest {
				nearest = obs.Distance
			}
			if obs.Accessible {
				accessibleCount++
				if obs.Distance < nearestAccessible {
					nearestAccessible = obs.Distance
				}
			}
		}
		summary.Blocks = append(summary.Blocks, ResourceCount{
			Name:            name,
			Count:           len(observations),
			NearestDistance: nearest,
		})
		if accessibleCount > 0 {
			summary.Accessible = append(summary.Accessible, ResourceCount{
				Name:            name,
				Count:           accessibleCount,
				NearestDistance: nearestAccessible,
			})
		}
	}
	sortByNearest(summary.Blocks)
	sortByNearest(summary.Accessible)
	return summary
}

func sortByNearest(list []ResourceCount) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].NearestDistance == list[j].NearestDistance {
			return list[i].Name < list[j].Name
		}
		return list[i].NearestDistance < list[j].NearestDistance
	})
}
