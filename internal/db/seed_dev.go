package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a couple of fleet snapshot rows so the dashboard has
// something to show on a fresh dev database.  The ledger itself is left
// empty — records only ever come in through the ingest boundary.
func SeedDev(ctx context.Context, conn *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	for _, id := range []string{"lock-1", "lock-2"} {
		if _, err := conn.ExecContext(ctx, `
INSERT INTO devices(device_id, first_seen_ms, last_seen_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(device_id) DO UPDATE SET
  last_seen_ms  = excluded.last_seen_ms,
  updated_at_ms = excluded.updated_at_ms;
`, id, now, now, now); err != nil {
			return fmt.Errorf("seed device %s: %w", id, err)
		}
	}

	return nil
}
