package worldq

import (
	"strconv"
	"strings"
	"sync"

	"voxfarer/agent/internal/geom"
)

// Block names treated as passable when scanning and ray-marching.
const (
	BlockAir     = "air"
	BlockCaveAir = "cave_air"
)

// IsAir reports whether the block name denotes open space.
func IsAir(name string) bool {
	return name == BlockAir || name == BlockCaveAir
}

// Block is a single voxel observation returned by the world.
type Block struct {
	Name     string    `json:"name"`
	Position geom.Vec3 `json:"position"`
}

// Entity is a mobile actor observed near the agent.
type Entity struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Position geom.Vec3 `json:"position"`
}

// World exposes the query surface the agent consumes. Implementations return
// ok=false (or nil) for anything they cannot answer; they never panic and the
// callers treat missing data as absent, not fatal.
type World interface {
	// Position reports the agent's current position.
	Position() (geom.Vec3, bool)
	// BlockAt reports the block occupying the floored coordinate, or nil when
	// the chunk is not loaded or the coordinate is out of range.
	BlockAt(pos geom.Vec3) (*Block, bool)
	// BiomeAt names the biome at the position, or "" when unknown.
	BiomeAt(pos geom.Vec3) string
	// BlockHistogram counts block types within the given radius of the agent.
	BlockHistogram(radius int) map[string]int
	// NearbyEntities lists entities within the given radius of the agent.
	NearbyEntities(radius int) []Entity
	// FindNearestBlock locates the closest block of the named type within the
	// radius, or nil when none is loaded.
	FindNearestBlock(name string, radius int) (*Block, bool)
	// CanHarvest reports whether the currently held tool can harvest the block.
	CanHarvest(block *Block) bool
}

// Static is an in-memory World used by tests and the local pathfinder harness.
// Blocks are keyed by floored coordinates; anything absent reads as air.
type Static struct {
	mu          sync.RWMutex
	pos         geom.Vec3
	hasPos      bool
	blocks      map[string]string
	biome       string
	entities    []Entity
	harvestable map[string]bool
}

// NewStatic constructs an empty static world with the agent at origin.
func NewStatic() *Static {
	return &Static{
		blocks:      make(map[string]string),
		harvestable: make(map[string]bool),
		hasPos:      true,
	}
}

// SetPosition moves the agent.
func (s *Static) SetPosition(pos geom.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = pos
	s.hasPos = true
}

// SetBlock places a named block at the floored coordinate. Placing air removes
// the entry.
func (s *Static) SetBlock(pos geom.Vec3, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pos.Key()
	if IsAir(name) || name == "" {
		delete(s.blocks, key)
		return
	}
	s.blocks[key] = name
}

// SetBiome sets the biome reported for every position.
func (s *Static) SetBiome(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.biome = name
}

// SetHarvestable marks a block type as harvestable by the held tool.
func (s *Static) SetHarvestable(name string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.harvestable[name] = ok
}

// AddEntity registers an entity observation.
func (s *Static) AddEntity(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, e)
}

// Position implements World.
func (s *Static) Position() (geom.Vec3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos, s.hasPos
}

// BlockAt implements World.
func (s *Static) BlockAt(pos geom.Vec3) (*Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.blocks[pos.Key()]
	if !ok {
		name = BlockAir
	}
	return &Block{Name: name, Position: pos.Floored()}, true
}

// BiomeAt implements World.
func (s *Static) BiomeAt(geom.Vec3) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.biome
}

// BlockHistogram implements World.
func (s *Static) BlockHistogram(radius int) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hist := make(map[string]int)
	for key, name := range s.blocks {
		if withinKeyRadius(key, s.pos, float64(radius)) {
			hist[name]++
		}
	}
	return hist
}

// NearbyEntities implements World.
func (s *Static) NearbyEntities(radius int) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if e.Position.DistanceTo(s.pos) <= float64(radius) {
			out = append(out, e)
		}
	}
	return out
}

// FindNearestBlock implements World.
func (s *Static) FindNearestBlock(name string, radius int) (*Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *Block
	bestDist := float64(radius) + 1
	for key, blockName := range s.blocks {
		if blockName != name {
			continue
		}
		pos, ok := parseKey(key)
		if !ok {
			continue
		}
		dist := pos.DistanceTo(s.pos)
		if dist <= float64(radius) && dist < bestDist {
			bestDist = dist
			best = &Block{Name: blockName, Position: pos}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// CanHarvest implements World.
func (s *Static) CanHarvest(block *Block) bool {
	if block == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.harvestable[block.Name]
}

func withinKeyRadius(key string, center geom.Vec3, radius float64) bool {
	pos, ok := parseKey(key)
	if !ok {
		return false
	}
	return pos.DistanceTo(center) <= radius
}

func parseKey(key string) (geom.Vec3, bool) {
	parts := strings.Split(key, ",")
	if len(parts) != 3 {
		return geom.Vec3{}, false
	}
	coords := make([]float64, 3)
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil {
			return geom.Vec3{}, false
		}
		coords[i] = float64(value)
	}
	return geom.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, true
}
