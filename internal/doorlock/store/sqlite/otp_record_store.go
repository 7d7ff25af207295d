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

type OtpRecordStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewOtpRecordStore(conn *sql.DB, writer *dbpkg.Writer) *OtpRecordStore {
	return &OtpRecordStore{db: conn, writer: writer}
}

// Append inserts rec as pending.  The supersede of any other pending
// record for the same device happens in the same transaction, so two
// concurrent issuances can never leave two codes live.
func (s *OtpRecordStore) Append(ctx context.Context, rec store.OtpRecord) (int64, error) {
	if rec.Status != types.OtpPending {
		return 0, types.Invalid("status", "new OTP records must start pending")
	}
	if rec.Otp == "" {
		return 0, types.Invalid("otp", "code must not be empty")
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.ExpiresAt.IsZero() {
		return 0, types.Invalid("expires_at", "validity window is required")
	}

	var deviceID any
	if rec.DeviceID != nil {
		deviceID = *rec.DeviceID
	}

	var id int64
	err := s.writer.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if rec.DeviceID != nil {
			if _, err := tx.ExecContext(ctx, `
UPDATE otp_records SET status = 'failed'
WHERE device_id = ? AND status = 'pending';
`, *rec.DeviceID); err != nil {
				return fmt.Errorf("Append supersede pending: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `
INSERT INTO otp_records(otp, status, device_id, created_at_ms, expires_at_ms)
VALUES (?, 'pending', ?, ?, ?);
`, rec.Otp, deviceID, rec.CreatedAt.UTC().UnixMilli(), rec.ExpiresAt.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("Append insert otp record: %w", err)
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

// UpdateStatus is the compare-and-swap the whole OTP state machine
// hangs on: one conditional UPDATE, so at most one caller ever
// transitions a record out of pending.
func (s *OtpRecordStore) UpdateStatus(ctx context.Context, id int64, from, to types.OtpStatus) (bool, error) {
	if from.Terminal() {
		return false, nil
	}

	var swapped bool
	err := s.writer.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE otp_records SET status = ?
WHERE id = ? AND status = ?;
`, string(to), id, string(from))
		if err != nil {
			return fmt.Errorf("UpdateStatus: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("UpdateStatus rows affected: %w", err)
		}
		swapped = n == 1
		return nil
	})
	return swapped, err
}

func (s *OtpRecordStore) PendingForDevice(ctx context.Context, deviceID string) (*store.OtpRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, otp, status, device_id, created_at_ms, expires_at_ms
FROM otp_records
WHERE device_id = ? AND status = 'pending'
ORDER BY id DESC
LIMIT 1;
`, deviceID)

	rec, err := scanOtpRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("PendingForDevice: %w", err)
	}
	return rec, nil
}

func (s *OtpRecordStore) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	nowMs := now.UTC().UnixMilli()

	var expired int64
	err := s.writer.Write(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE otp_records SET status = 'failed'
WHERE status = 'pending' AND expires_at_ms <= ?;
`, nowMs)
		if err != nil {
			return fmt.Errorf("ExpireBefore: %w", err)
		}
		expired, _ = res.RowsAffected()
		return nil
	})
	return expired, err
}

func (s *OtpRecordStore) Query(ctx context.Context, page store.Page) ([]store.OtpRecord, bool, error) {
	limit := page.Limit()

	rows, err := s.db.QueryContext(ctx, `
SELECT id, otp, status, device_id, created_at_ms, expires_at_ms
FROM otp_records
ORDER BY created_at_ms DESC, id DESC
LIMIT ? OFFSET ?;
`, limit+1, page.Offset())
	if err != nil {
		return nil, false, fmt.Errorf("Query otp records: %w", err)
	}
	defer rows.Close()

	var out []store.OtpRecord
	for rows.Next() {
		rec, err := scanOtpRecord(rows)
		if err != nil {
			return nil, false, fmt.Errorf("Query scan otp record: %w", err)
		}
		out = append(out, *rec)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOtpRecord(row rowScanner) (*store.OtpRecord, error) {
	var (
		rec       store.OtpRecord
		status    string
		deviceID  sql.NullString
		createdMs int64
		expiresMs int64
	)
	if err := row.Scan(&rec.ID, &rec.Otp, &status, &deviceID, &createdMs, &expiresMs); err != nil {
		return nil, err
	}
	rec.Status = types.OtpStatus(status)
	if deviceID.Valid {
		v := deviceID.String
		rec.DeviceID = &v
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	rec.ExpiresAt = time.UnixMilli(expiresMs).UTC()
	return &rec, nil
}
