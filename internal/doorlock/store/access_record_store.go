package store

import (
	"context"
	"strings"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/types"
)

// AccessRecord is one entry in the append-only access ledger.  ID and
// CreatedAt are assigned by the store; everything else is write-once.
type AccessRecord struct {
	ID        int64
	Action    types.Action
	Success   bool
	Pin       *string      // present only for PIN_ENTRY
	DeviceID  *string      // nil = unknown/unauthenticated source
	Timestamp time.Time    // event time from the ingest boundary
	CreatedAt time.Time    // store-assigned ingestion time
}

// Validate enforces the construction rules for a record before it is
// persisted: action must be in the closed enum, and pin may only
// accompany PIN_ENTRY.
func (r AccessRecord) Validate() error {
	if _, ok := types.ParseAction(string(r.Action)); !ok {
		return types.Invalid("action", "must be one of PIN_ENTRY, TIMEOUT, MASTER_RESET")
	}
	if r.Pin != nil && r.Action != types.ActionPinEntry {
		return types.Invalid("pin", "only allowed when action is PIN_ENTRY")
	}
	if r.DeviceID != nil && strings.TrimSpace(*r.DeviceID) == "" {
		return types.Invalid("device_id", "must not be blank when present")
	}
	return nil
}

// AccessQuery is the filter/order/page shape for ledger reads.  Filters
// are conjunctive; DeviceID matches as a case-insensitive substring,
// Action matches exactly.
type AccessQuery struct {
	DeviceID string        // "" = no filter
	Action   *types.Action // nil = no filter
	Page     Page
}

// AccessRecordStore persists access events as an append-only ledger.
type AccessRecordStore interface {
	// Append validates rec, assigns id and created_at, and persists
	// atomically.  Returns the assigned id.
	Append(ctx context.Context, rec AccessRecord) (int64, error)

	// Query returns one page ordered by timestamp descending with id
	// descending as the tie-break, plus whether more pages follow.
	Query(ctx context.Context, q AccessQuery) ([]AccessRecord, bool, error)
}
