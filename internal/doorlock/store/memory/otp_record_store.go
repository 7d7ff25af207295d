package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/store"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

// OtpRecordStore keeps OTP records in memory.  The mutex covers every
// operation, so the compare-and-swap in UpdateStatus has the same
// at-most-one-winner guarantee as the sqlite implementation.
type OtpRecordStore struct {
	mu      sync.Mutex
	nextID  int64
	records []store.OtpRecord
}

func NewOtpRecordStore() *OtpRecordStore {
	return &OtpRecordStore{nextID: 1}
}

func (s *OtpRecordStore) Append(_ context.Context, rec store.OtpRecord) (int64, error) {
	if rec.Status != types.OtpPending {
		return 0, types.Invalid("status", "new OTP records must start pending")
	}
	if rec.Otp == "" {
		return 0, types.Invalid("otp", "code must not be empty")
	}
	if rec.ExpiresAt.IsZero() {
		return 0, types.Invalid("expires_at", "validity window is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Supersede before insert: at most one pending OTP per device.
	if rec.DeviceID != nil {
		for i := range s.records {
			if s.records[i].Status == types.OtpPending &&
				s.records[i].DeviceID != nil &&
				*s.records[i].DeviceID == *rec.DeviceID {
				s.records[i].Status = types.OtpFailed
			}
		}
	}

	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *OtpRecordStore) UpdateStatus(_ context.Context, id int64, from, to types.OtpStatus) (bool, error) {
	if from.Terminal() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			if s.records[i].Status != from {
				return false, nil
			}
			s.records[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *OtpRecordStore) PendingForDevice(_ context.Context, deviceID string) (*store.OtpRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.Status == types.OtpPending && rec.DeviceID != nil && *rec.DeviceID == deviceID {
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *OtpRecordStore) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.records {
		if s.records[i].Status == types.OtpPending && !now.Before(s.records[i].ExpiresAt) {
			s.records[i].Status = types.OtpFailed
			n++
		}
	}
	return n, nil
}

func (s *OtpRecordStore) Query(_ context.Context, page store.Page) ([]store.OtpRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := make([]store.OtpRecord, len(s.records))
	copy(ordered, s.records)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		}
		return ordered[i].ID > ordered[j].ID
	})

	return paginate(ordered, page)
}

// Get returns a copy of the record with the given id.  Test-only helper.
func (s *OtpRecordStore) Get(id int64) (store.OtpRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return store.OtpRecord{}, false
}
