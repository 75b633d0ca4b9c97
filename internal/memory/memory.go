package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"voxfarer/agent/internal/geom"
	"voxfarer/agent/internal/scanner"
	"voxfarer/agent/internal/telemetry"
	"voxfarer/agent/internal/worldq"
	"voxfarer/agent/logging"
)

const (
	// LandmarkVisibleRadius bounds the visible-landmark context query.
	LandmarkVisibleRadius = 16.0
	// ResourceContextRadius bounds the accessible-resource context list.
	ResourceContextRadius = 32.0
	// contextHistogramRadius is the block histogram radius for context updates.
	contextHistogramRadius = 16
	// contextEntityRadius is the entity lookup radius for context updates.
	contextEntityRadius = 16
)

// Terrain difficulty classes derived from elevation spread.
const (
	TerrainEasy      = "easy"
	TerrainModerate  = "moderate"
	TerrainDifficult = "difficult"
)

// Location is a named remembered place with the context captured when it was
// stored.
type Location struct {
	Name     string          `json:"name"`
	Position geom.Vec3       `json:"position"`
	Context  LocationContext `json:"context"`
}

// LocationContext snapshots the surroundings at remember time.
type LocationContext struct {
	Biome        string         `json:"biome,omitempty"`
	NearbyBlocks map[string]int `json:"nearbyBlocks,omitempty"`
	Landmarks    []string       `json:"landmarks,omitempty"`
	Time         time.Time      `json:"time"`
}

// Region is a named bounding box with feature tags and attached locations.
type Region struct {
	Name      string           `json:"name"`
	Bounds    geom.BoundingBox `json:"bounds"`
	Tags      []string         `json:"tags,omitempty"`
	Locations []string         `json:"locations,omitempty"`
}

// Landmark is a described point of interest. Landmarks never expire.
type Landmark struct {
	Name         string    `json:"name"`
	Position     geom.Vec3 `json:"position"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	DiscoveredAt time.Time `json:"discoveredAt"`
}

// PathRecord caches the outcome of travel between two rounded coordinates.
// It is a planning hint, not authoritative routing data.
type PathRecord struct {
	Key       string      `json:"key"`
	From      geom.Vec3   `json:"from"`
	To        geom.Vec3   `json:"to"`
	Waypoints []geom.Vec3 `json:"waypoints"`
	Obstacles []string    `json:"obstacles,omitempty"`
	UseCount  int         `json:"useCount"`
	LastUsed  time.Time   `json:"lastUsed"`
}

// LandmarkSighting pairs a landmark with its distance from a query point.
type LandmarkSighting struct {
	Landmark Landmark `json:"landmark"`
	Distance float64  `json:"distance"`
}

// ResourceSighting pairs an accessible resource with its distance.
type ResourceSighting struct {
	Name     string    `json:"name"`
	Position geom.Vec3 `json:"position"`
	Distance float64   `json:"distance"`
}

// Context is the transient spatial-context snapshot refreshed by
// UpdateContext.
type Context struct {
	Position            geom.Vec3          `json:"position"`
	Biome               string             `json:"biome,omitempty"`
	NearbyBlocks        map[string]int     `json:"nearbyBlocks,omitempty"`
	EntityKinds         []string           `json:"entityKinds,omitempty"`
	VisibleLandmarks    []LandmarkSighting `json:"visibleLandmarks,omitempty"`
	AccessibleResources []ResourceSighting `json:"accessibleResources,omitempty"`
	ClearDirections     map[string]float64 `json:"clearDirections,omitempty"`
	TerrainDifficulty   string             `json:"terrainDifficulty,omitempty"`
	Updated             time.Time          `json:"updated"`
}

// Config tunes a Memory.
type Config struct {
	Clock   logging.Clock
	Metrics telemetry.Metrics
}

// Memory stores named locations, regions, landmarks, and the path-outcome
// cache, plus the transient current context. All operations are silent
// no-ops on bad input; memory never fails its caller.
type Memory struct {
	mu        sync.RWMutex
	locations map[string]Location
	regions   map[string]Region
	landmarks map[string]Landmark
	paths     map[string]PathRecord
	context   *Context

	clock   logging.Clock
	metrics telemetry.Metrics
}

// New constructs an empty Memory.
func New(cfg Config) *Memory {
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	return &Memory{
		locations: make(map[string]Location),
		regions:   make(map[string]Region),
		landmarks: make(map[string]Landmark),
		paths:     make(map[string]PathRecord),
		clock:     clock,
		metrics:   cfg.Metrics,
	}
}

// RememberPlace stores or overwrites a named location.
func (m *Memory) RememberPlace(name string, pos geom.Vec3, ctx LocationContext) {
	if m == nil || name == "" {
		return
	}
	if ctx.Time.IsZero() {
		ctx.Time = m.clock.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[name] = Location{Name: name, Position: pos, Context: ctx}
}

// RecallPlace looks up a named location.
func (m *Memory) RecallPlace(name string) (Location, bool) {
	if m == nil {
		return Location{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[name]
	return loc, ok
}

// DefineRegion stores or overwrites a named region. Bounds are not validated
// against overlap with other regions.
func (m *Memory) DefineRegion(name string, bounds geom.BoundingBox, tags []string) {
	if m == nil || name == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.regions[name]
	m.regions[name] = Region{
		Name:      name,
		Bounds:    bounds,
		Tags:      append([]string(nil), tags...),
		Locations: existing.Locations,
	}
}

// AttachLocation adds a remembered location to a region's sub-location list.
// Unknown region or location names are ignored.
func (m *Memory) AttachLocation(regionName, locationName string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	region, ok := m.regions[regionName]
	if !ok {
		return
	}
	if _, ok := m.locations[locationName]; !ok {
		return
	}
	for _, existing := range region.Locations {
		if existing == locationName {
			return
		}
	}
	region.Locations = append(region.Locations, locationName)
	m.regions[regionName] = region
}

// Region looks up a named region.
func (m *Memory) Region(name string) (Region, bool) {
	if m == nil {
		return Region{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	region, ok := m.regions[name]
	return region, ok
}

// AddLandmark stores or overwrites a named landmark.
func (m *Memory) AddLandmark(name string, pos geom.Vec3, description, category string) {
	if m == nil || name == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	discovered := m.clock.Now()
	if existing, ok := m.landmarks[name]; ok {
		discovered = existing.DiscoveredAt
	}
	m.landmarks[name] = Landmark{
		Name:         name,
		Position:     pos,
		Description:  description,
		Category:     category,
		DiscoveredAt: discovered,
	}
}

// NearbyLandmarks lists landmarks within the radius of pos, sorted ascending
// by distance.
func (m *Memory) NearbyLandmarks(pos geom.Vec3, radius float64) []LandmarkSighting {
	if m == nil || radius <= 0 {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nearbyLandmarksLocked(pos, radius)
}

func (m *Memory) nearbyLandmarksLocked(pos geom.Vec3, radius float64) []LandmarkSighting {
	var out []LandmarkSighting
	for _, landmark := range m.landmarks {
		dist := landmark.Position.DistanceTo(pos)
		if dist <= radius {
			out = append(out, LandmarkSighting{Landmark: landmark, Distance: dist})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].Landmark.Name < out[j].Landmark.Name
		}
		return out[i].Distance < out[j].Distance
	})
	return out
}

// PathKey renders the directional cache key for travel between two points.
// A->B and B->A are distinct entries.
func PathKey(from, to geom.Vec3) string {
	return from.Key() + "->" + to.Key()
}

// RememberPath upserts a path record, incrementing its use count. The cache
// grows without bound; it is a hint store, not authoritative.
func (m *Memory) RememberPath(from, to geom.Vec3, waypoints []geom.Vec3, obstacles []string) {
	if m == nil {
		return
	}
	key := PathKey(from, to)
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.paths[key]
	if !ok {
		record = PathRecord{Key: key, From: from.Floored(), To: to.Floored()}
	}
	record.Waypoints = append([]geom.Vec3(nil), waypoints...)
	record.Obstacles = append([]string(nil), obstacles...)
	record.UseCount++
	record.LastUsed = m.clock.Now()
	m.paths[key] = record
	if m.metrics != nil {
		m.metrics.Store("memory_paths_cached", uint64(len(m.paths)))
	}
}

// RecallPath looks up the cached record for travel between two points.
func (m *Memory) RecallPath(from, to geom.Vec3) (PathRecord, bool) {
	if m == nil {
		return PathRecord{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.paths[PathKey(from, to)]
	return record, ok
}

// UpdateContext recomputes the current spatial context from the world, and
// when a scan snapshot is supplied, enriches it with accessible resources,
// clear directions, and a terrain difficulty classification.
func (m *Memory) UpdateContext(world worldq.World, snapshot *scanner.Snapshot) *Context {
	if m == nil || world == nil {
		return nil
	}
	pos, ok := world.Position()
	if !ok {
		return nil
	}

	ctx := &Context{
		Position:     pos,
		Biome:        world.BiomeAt(pos),
		NearbyBlocks: world.BlockHistogram(contextHistogramRadius),
		Updated:      m.clock.Now(),
	}
	for _, entity := range world.NearbyEntities(contextEntityRadius) {
		kind := entity.Kind
		if kind == "" {
			kind = entity.Name
		}
		if kind == "" {
			continue
		}
		if !containsString(ctx.EntityKinds, kind) {
			ctx.EntityKinds = append(ctx.EntityKinds, kind)
		}
	}
	sort.Strings(ctx.EntityKinds)

	m.mu.Lock()
	defer m.mu.Unlock()
	ctx.VisibleLandmarks = m.nearbyLandmarksLocked(pos, LandmarkVisibleRadius)

	if snapshot != nil {
		ctx.AccessibleResources = accessibleResources(snapshot)
		ctx.ClearDirections = clearDirections(snapshot)
		ctx.TerrainDifficulty = classifyTerrain(snapshot)
	}

	m.context = ctx
	return ctx
}

// CurrentContext returns the last computed context, or nil.
func (m *Memory) CurrentContext() *Context {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.context
}

// SummarizeContext renders the current context as a short human-readable
// description. Returns "" before the first UpdateContext.
func (m *Memory) SummarizeContext() string {
	ctx := m.CurrentContext()
	if ctx == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "at %s", ctx.Position.Key())
	if ctx.Biome != "" {
		fmt.Fprintf(&b, " in %s", ctx.Biome)
	}
	if ctx.TerrainDifficulty != "" {
		fmt.Fprintf(&b, ", terrain %s", ctx.TerrainDifficulty)
	}
	if len(ctx.VisibleLandmarks) > 0 {
		names := make([]string, 0, len(ctx.VisibleLandmarks))
		for _, sighting := range ctx.VisibleLandmarks {
			names = append(names, sighting.Landmark.Name)
		}
		fmt.Fprintf(&b, ", landmarks: %s", strings.Join(names, ", "))
	}
	if len(ctx.AccessibleResources) > 0 {
		nearest := ctx.AccessibleResources[0]
		fmt.Fprintf(&b, ", nearest resource %s at %.1f", nearest.Name, nearest.Distance)
	}
	return b.String()
}

func accessibleResources(snapshot *scanner.Snapshot) []ResourceSighting {
	var out []ResourceSighting
	for name, observations := range snapshot.Blocks {
		for _, obs := range observations {
			if !obs.Accessible || obs.Distance > ResourceContextRadius {
				continue
			}
			out = append(out, ResourceSighting{Name: name, Position: obs.Position, Distance: obs.Distance})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].Name < out[j].Name
		}
		return out[i].Distance < out[j].Distance
	})
	return out
}

func clearDirections(snapshot *scanner.Snapshot) map[string]float64 {
	if len(snapshot.Sightlines) == 0 {
		return nil
	}
	out := make(map[string]float64, len(snapshot.Sightlines))
	for name, sight := range snapshot.Sightlines {
		if sight.Clear {
			out[name] = sight.Distance
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// classifyTerrain grades difficulty from the spread between the highest and
// lowest known elevation samples.
func classifyTerrain(snapshot *scanner.Snapshot) string {
	lowest := 0
	highest := 0
	seen := false
	for _, sample := range snapshot.Terrain {
		if !sample.Known() {
			continue
		}
		if !seen {
			lowest = sample.Elevation
			highest = sample.Elevation
			seen = true
			continue
		}
		if sample.Elevation < lowest {
			lowest = sample.Elevation
		}
		if sample.Elevation > highest {
			highest = sample.Elevation
		}
	}
	if !seen {
		return ""
	}
	spread := highest - lowest
	switch {
	case spread <= 2:
		return TerrainEasy
	case spread <= 5:
		return TerrainModerate
	default:
		return TerrainDifficult
	}
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
