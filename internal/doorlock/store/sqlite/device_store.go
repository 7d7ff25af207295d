package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/smartdoorlock/server/internal/db"
	"github.com/smartdoorlock/server/internal/doorlock/store"
)

type DeviceStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewDeviceStore(conn *sql.DB, writer *dbpkg.Writer) *DeviceStore {
	return &DeviceStore{db: conn, writer: writer}
}

func (s *DeviceStore) MarkSeen(ctx context.Context, deviceID string, t time.Time) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO devices(device_id, first_seen_ms, last_seen_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(device_id) DO UPDATE SET
  last_seen_ms  = MAX(devices.last_seen_ms, excluded.last_seen_ms),
  updated_at_ms = excluded.updated_at_ms;
`, deviceID, ms, ms, ms); err != nil {
			return fmt.Errorf("MarkSeen upsert device: %w", err)
		}
		return nil
	})
}

func (s *DeviceStore) List(ctx context.Context) ([]store.DeviceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT device_id, first_seen_ms, last_seen_ms
FROM devices
ORDER BY last_seen_ms DESC, device_id ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("List devices: %w", err)
	}
	defer rows.Close()

	var out []store.DeviceRecord
	for rows.Next() {
		var (
			rec     store.DeviceRecord
			firstMs int64
			lastMs  int64
		)
		if err := rows.Scan(&rec.DeviceID, &firstMs, &lastMs); err != nil {
			return nil, fmt.Errorf("List scan device: %w", err)
		}
		rec.FirstSeen = time.UnixMilli(firstMs).UTC()
		rec.LastSeen = time.UnixMilli(lastMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
