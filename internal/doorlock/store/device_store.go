package store

import (
	"context"
	"time"
)

// DeviceRecord is a fleet snapshot row: when a lock was first and most
// recently heard from.  It is derived from ingest traffic, not a
// commissioning registry — unknown devices appear here too.
type DeviceRecord struct {
	DeviceID  string
	FirstSeen time.Time
	LastSeen  time.Time
}

type DeviceStore interface {
	// MarkSeen upserts the snapshot row for deviceID at t.
	MarkSeen(ctx context.Context, deviceID string, t time.Time) error

	// List returns the fleet ordered by last_seen descending.
	List(ctx context.Context) ([]DeviceRecord, error)
}
