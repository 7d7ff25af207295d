package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/store"
)

// AccessRecordStore is an in-memory ledger for tests and dev
// environments.  Semantics mirror the sqlite implementation.
type AccessRecordStore struct {
	mu      sync.Mutex
	nextID  int64
	records []store.AccessRecord
}

func NewAccessRecordStore() *AccessRecordStore {
	return &AccessRecordStore{nextID: 1}
}

func (s *AccessRecordStore) Append(_ context.Context, rec store.AccessRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.CreatedAt = time.Now().UTC()
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *AccessRecordStore) Query(_ context.Context, q store.AccessQuery) ([]store.AccessRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []store.AccessRecord
	for _, rec := range s.records {
		if q.DeviceID != "" {
			if rec.DeviceID == nil ||
				!strings.Contains(strings.ToLower(*rec.DeviceID), strings.ToLower(q.DeviceID)) {
				continue
			}
		}
		if q.Action != nil && rec.Action != *q.Action {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})

	return paginate(matched, q.Page)
}

// Records returns a copy of the full ledger.  Test-only helper.
func (s *AccessRecordStore) Records() []store.AccessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessRecord, len(s.records))
	copy(out, s.records)
	return out
}

// paginate applies offset pagination to an already-ordered slice and
// reports whether rows remain past the page.
func paginate[T any](rows []T, page store.Page) ([]T, bool, error) {
	offset := page.Offset()
	limit := page.Limit()

	if offset >= len(rows) {
		return nil, false, nil
	}
	rows = rows[offset:]
	more := len(rows) > limit
	if more {
		rows = rows[:limit]
	}
	out := make([]T, len(rows))
	copy(out, rows)
	return out, more, nil
}
