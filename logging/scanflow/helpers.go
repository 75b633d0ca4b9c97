package scanflow

import (
	"context"

	"voxfarer/agent/logging"
)

const (
	// EventScanCompleted is emitted after a full spatial scan.
	EventScanCompleted logging.EventType = "scan.completed"
)

// CompletedPayload summarises the snapshot produced by a scan.
type CompletedPayload struct {
	BlockTypes     int   `json:"blockTypes"`
	Samples        int   `json:"samples"`
	Entities       int   `json:"entities"`
	DurationMillis int64 `json:"durationMillis"`
}

// Completed publishes a debug event summarising a scan.
func Completed(ctx context.Context, pub logging.Publisher, agentID string, payload CompletedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventScanCompleted,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryScan,
		Actor:    logging.EntityRef{ID: agentID, Kind: logging.EntityKindAgent},
		Payload:  payload,
	})
}
