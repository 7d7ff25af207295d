package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/smartdoorlock/server/internal/db"
	"github.com/smartdoorlock/server/internal/doorlock/store"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

type AccessRecordStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewAccessRecordStore(conn *sql.DB, writer *dbpkg.Writer) *AccessRecordStore {
	return &AccessRecordStore{db: conn, writer: writer}
}

func (s *AccessRecordStore) Append(ctx context.Context, rec store.AccessRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	createdAt := time.Now().UTC()

	var deviceID any
	if rec.DeviceID != nil {
		deviceID = *rec.DeviceID
	}
	var pin any
	if rec.Pin != nil {
		pin = *rec.Pin
	}
	var success int
	if rec.Success {
		success = 1
	}

	var id int64
	err := s.writer.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_records(action, success, pin, device_id, timestamp_ms, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`, string(rec.Action), success, pin, deviceID,
			rec.Timestamp.UTC().UnixMilli(), createdAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("Append insert access record: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Append last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *AccessRecordStore) Query(ctx context.Context, q store.AccessQuery) ([]store.AccessRecord, bool, error) {
	where := "1=1"
	args := []any{}

	if q.DeviceID != "" {
		// Case-insensitive substring match on device_id, NULLs excluded.
		where += " AND device_id IS NOT NULL AND instr(lower(device_id), lower(?)) > 0"
		args = append(args, q.DeviceID)
	}
	if q.Action != nil {
		where += " AND action = ?"
		args = append(args, string(*q.Action))
	}

	limit := q.Page.Limit()
	// Fetch one extra row to learn whether another page follows.
	args = append(args, limit+1, q.Page.Offset())

	rows, err := s.db.QueryContext(ctx, `
SELECT id, action, success, pin, device_id, timestamp_ms, created_at_ms
FROM access_records
WHERE `+where+`
ORDER BY timestamp_ms DESC, id DESC
LIMIT ? OFFSET ?;
`, args...)
	if err != nil {
		return nil, false, fmt.Errorf("Query access records: %w", err)
	}
	defer rows.Close()

	var out []store.AccessRecord
	for rows.Next() {
		var (
			rec         store.AccessRecord
			action      string
			success     int
			pin         sql.NullString
			deviceID    sql.NullString
			timestampMs int64
			createdMs   int64
		)
		if err := rows.Scan(&rec.ID, &action, &success, &pin, &deviceID, &timestampMs, &createdMs); err != nil {
			return nil, false, fmt.Errorf("Query scan access record: %w", err)
		}
		rec.Action = types.Action(action)
		rec.Success = success == 1
		if pin.Valid {
			v := pin.String
			rec.Pin = &v
		}
		if deviceID.Valid {
			v := deviceID.String
			rec.DeviceID = &v
		}
		rec.Timestamp = time.UnixMilli(timestampMs).UTC()
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("Query rows: %w", err)
	}

	more := len(out) > limit
	if more {
		out = out[:limit]
	}
	return out, more, nil
}
