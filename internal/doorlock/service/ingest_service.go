package service

import (
	"context"
	"strings"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/store"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

// IngestService is the write-side boundary for device-reported access
// events.  It validates, assigns the event timestamp when the device
// didn't report one, and hands off to the ledger.  It knows nothing
// about OTP state — a caller that wants the two correlated calls
// Verify first and records the outcome after.
type IngestService struct {
	records store.AccessRecordStore
	devices store.DeviceStore
}

func NewIngestService(records store.AccessRecordStore, devices store.DeviceStore) *IngestService {
	return &IngestService{records: records, devices: devices}
}

// RecordAccess validates sub and appends it to the ledger, returning
// the assigned id.  Validation failures are rejected synchronously and
// nothing is persisted; storage failures surface to the caller, which
// owns any retry (the service never retries, so a device can't end up
// unsure which of two ids is its event).
func (s *IngestService) RecordAccess(ctx context.Context, sub types.AccessSubmission) (int64, error) {
	action, ok := types.ParseAction(sub.Action)
	if !ok {
		return 0, types.Invalid("action", "must be one of PIN_ENTRY, TIMEOUT, MASTER_RESET")
	}

	rec := store.AccessRecord{
		Action:  action,
		Success: sub.Success,
	}

	if sub.Pin != "" {
		pin := sub.Pin
		rec.Pin = &pin
	}
	if deviceID := strings.TrimSpace(sub.DeviceID); deviceID != "" {
		rec.DeviceID = &deviceID
	}

	// The ingest boundary assigns the event time when the device didn't
	// report one.  Device timestamps are taken as-is; skew against the
	// store's created_at is surfaced on the query side, not rejected.
	if t := parseOptionalTimestamp(sub.RequestedAt); t != nil {
		rec.Timestamp = *t
	} else {
		rec.Timestamp = time.Now().UTC()
	}

	id, err := s.records.Append(ctx, rec)
	if err != nil {
		return 0, err
	}

	if rec.DeviceID != nil {
		// Fleet snapshot is best-effort; the ledger write already succeeded.
		_ = s.devices.MarkSeen(ctx, *rec.DeviceID, time.Now().UTC())
	}

	return id, nil
}

// parseOptionalTimestamp attempts to parse a device-reported timestamp.
// Returns nil if the string is empty or unparseable.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u := t.UTC()
		return &u
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
