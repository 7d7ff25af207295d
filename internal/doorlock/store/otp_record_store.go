package store

import (
	"context"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/types"
)

// OtpRecord is one OTP issuance.  Only Status ever changes after the
// record is written, and only through the compare-and-swap in
// UpdateStatus.
type OtpRecord struct {
	ID        int64
	Otp       string
	Status    types.OtpStatus
	DeviceID  *string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the validity window has elapsed at now.
func (r OtpRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// OtpRecordStore persists OTP issuances and their status transitions.
type OtpRecordStore interface {
	// Append persists rec with status pending, assigning id and
	// created_at.  In the same transaction it transitions every other
	// still-pending record for the same device to failed, so at most
	// one OTP per device is ever live regardless of interleaving.
	Append(ctx context.Context, rec OtpRecord) (int64, error)

	// UpdateStatus applies a compare-and-swap transition: the status
	// becomes to only if it currently equals from.  A lost race is a
	// false return, not an error.
	UpdateStatus(ctx context.Context, id int64, from, to types.OtpStatus) (bool, error)

	// PendingForDevice returns the newest pending record for the
	// device, or nil when there is none.
	PendingForDevice(ctx context.Context, deviceID string) (*OtpRecord, error)

	// ExpireBefore transitions every pending record whose validity
	// window elapsed at or before now to failed.  Idempotent; returns
	// the number of records transitioned.
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)

	// Query returns one page ordered by created_at descending with id
	// descending as the tie-break, plus whether more pages follow.
	Query(ctx context.Context, page Page) ([]OtpRecord, bool, error)
}
