package logging

import "testing"

func TestMetricsAddAndStore(t *testing.T) {
	metrics := &Metrics{}
	metrics.TelemetryAdd("scans", 1)
	metrics.TelemetryAdd("scans", 2)
	metrics.TelemetryStore("paths_cached", 7)

	snapshot := metrics.Snapshot()
	if snapshot["scans"] != 3 {
		t.Fatalf("expected scans=3, got %d", snapshot["scans"])
	}
	if snapshot["paths_cached"] != 7 {
		t.Fatalf("expected paths_cached=7, got %d", snapshot["paths_cached"])
	}

	// Snapshot is a copy; mutating it does not touch the live counters.
	snapshot["scans"] = 0
	if metrics.Snapshot()["scans"] != 3 {
		t.Fatalf("expected live counter unchanged")
	}
}
