package worldq

import (
	"testing"

	"voxfarer/agent/internal/geom"
)

func TestStaticAbsentBlockReadsAir(t *testing.T) {
	world := NewStatic()
	block, ok := world.BlockAt(geom.Vec3{X: 7, Y: 3, Z: -2})
	if !ok || block == nil {
		t.Fatalf("expected a block answer, got ok=%v block=%v", ok, block)
	}
	if !IsAir(block.Name) {
		t.Fatalf("expected absent coordinate to read as air, got %q", block.Name)
	}
}

func TestStaticSetBlockAndRemove(t *testing.T) {
	world := NewStatic()
	pos := geom.Vec3{X: 1.7, Y: 2.2, Z: 3.9}
	world.SetBlock(pos, "stone")

	block, ok := world.BlockAt(geom.Vec3{X: 1, Y: 2, Z: 3})
	if !ok || block.Name != "stone" {
		t.Fatalf("expected stone at floored coordinate, got %+v ok=%v", block, ok)
	}

	world.SetBlock(pos, BlockAir)
	block, _ = world.BlockAt(geom.Vec3{X: 1, Y: 2, Z: 3})
	if !IsAir(block.Name) {
		t.Fatalf("expected air after placing air, got %q", block.Name)
	}
}

func TestStaticFindNearestBlock(t *testing.T) {
	world := NewStatic()
	world.SetPosition(geom.Vec3{})
	world.SetBlock(geom.Vec3{X: 10, Y: 0, Z: 0}, "oak_log")
	world.SetBlock(geom.Vec3{X: 3, Y: 0, Z: 0}, "oak_log")
	world.SetBlock(geom.Vec3{X: 2, Y: 0, Z: 0}, "stone")

	block, ok := world.FindNearestBlock("oak_log", 16)
	if !ok {
		t.Fatalf("expected to find oak_log")
	}
	if block.Position.X != 3 {
		t.Fatalf("expected nearest log at x=3, got %+v", block.Position)
	}

	if _, ok := world.FindNearestBlock("oak_log", 2); ok {
		t.Fatalf("expected no log within radius 2")
	}
	if _, ok := world.FindNearestBlock("diamond_ore", 64); ok {
		t.Fatalf("expected no diamond_ore at all")
	}
}

func TestStaticBlockHistogram(t *testing.T) {
	world := NewStatic()
	world.SetPosition(geom.Vec3{})
	world.SetBlock(geom.Vec3{X: 1, Y: 0, Z: 0}, "stone")
	world.SetBlock(geom.Vec3{X: 2, Y: 0, Z: 0}, "stone")
	world.SetBlock(geom.Vec3{X: 40, Y: 0, Z: 0}, "stone")

	hist := world.BlockHistogram(8)
	if hist["stone"] != 2 {
		t.Fatalf("expected 2 stone within radius, got %d", hist["stone"])
	}
}

func TestStaticNearbyEntities(t *testing.T) {
	world := NewStatic()
	world.SetPosition(geom.Vec3{})
	world.AddEntity(Entity{Name: "sheep", Kind: "animal", Position: geom.Vec3{X: 4, Y: 0, Z: 0}})
	world.AddEntity(Entity{Name: "zombie", Kind: "hostile", Position: geom.Vec3{X: 40, Y: 0, Z: 0}})

	entities := world.NearbyEntities(10)
	if len(entities) != 1 || entities[0].Name != "sheep" {
		t.Fatalf("expected only the sheep nearby, got %+v", entities)
	}
}

func TestStaticCanHarvest(t *testing.T) {
	world := NewStatic()
	world.SetHarvestable("stone", true)

	if !world.CanHarvest(&Block{Name: "stone"}) {
		t.Fatalf("expected stone harvestable")
	}
	if world.CanHarvest(&Block{Name: "obsidian"}) {
		t.Fatalf("expected obsidian not harvestable")
	}
	if world.CanHarvest(nil) {
		t.Fatalf("expected nil block not harvestable")
	}
}
