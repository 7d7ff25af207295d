package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/store"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

// minOtpLength keeps the blind-guess probability of a single attempt at
// or below 1e-6 for numeric codes.
const minOtpLength = 6

type OtpConfig struct {
	// Length is the number of digits per code.  Values below 6 are
	// raised to 6.
	Length int

	// TTL is the validity window after issuance.  Defaults to 5 minutes.
	TTL time.Duration
}

// OtpService owns the OTP state machine.  Every transition out of
// pending goes through the store's compare-and-swap, so concurrent
// verifies race safely with exactly one winner, and everything
// ambiguous fails closed.
type OtpService struct {
	otps    store.OtpRecordStore
	devices store.DeviceStore
	cfg     OtpConfig
}

func NewOtpService(otps store.OtpRecordStore, devices store.DeviceStore, cfg OtpConfig) *OtpService {
	if cfg.Length < minOtpLength {
		cfg.Length = minOtpLength
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &OtpService{otps: otps, devices: devices, cfg: cfg}
}

// Issue generates a fresh code for the device and persists it pending.
// The store fails any previous still-pending code for the same device
// in the same transaction, so at most one code is ever live per device.
func (s *OtpService) Issue(ctx context.Context, deviceID string) (store.OtpRecord, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return store.OtpRecord{}, types.Invalid("device_id", "required")
	}

	code, err := generateCode(s.cfg.Length)
	if err != nil {
		return store.OtpRecord{}, fmt.Errorf("generate otp: %w", err)
	}

	now := time.Now().UTC()
	rec := store.OtpRecord{
		Otp:       code,
		Status:    types.OtpPending,
		DeviceID:  &deviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}

	id, err := s.otps.Append(ctx, rec)
	if err != nil {
		return store.OtpRecord{}, err
	}
	rec.ID = id

	_ = s.devices.MarkSeen(ctx, deviceID, now)

	return rec, nil
}

// Verify resolves the device's current pending code against the
// submitted one.  Missing, expired, and mismatched codes all fail
// closed and transition the record (when there is one) to failed; a
// lost compare-and-swap is reported as a failed verification, never as
// a system error.
func (s *OtpService) Verify(ctx context.Context, deviceID, submitted string) (types.VerificationResult, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return types.VerificationResult{}, types.Invalid("device_id", "required")
	}
	if submitted == "" {
		return types.VerificationResult{}, types.Invalid("code", "required")
	}

	rec, err := s.otps.PendingForDevice(ctx, deviceID)
	if err != nil {
		return types.VerificationResult{}, err
	}
	if rec == nil {
		return types.VerificationResult{Reason: types.ReasonNoActiveCode}, nil
	}

	now := time.Now().UTC()
	if rec.Expired(now) {
		if _, err := s.otps.UpdateStatus(ctx, rec.ID, types.OtpPending, types.OtpFailed); err != nil {
			return types.VerificationResult{}, err
		}
		return types.VerificationResult{Reason: types.ReasonExpired}, nil
	}

	if subtle.ConstantTimeCompare([]byte(rec.Otp), []byte(submitted)) != 1 {
		if _, err := s.otps.UpdateStatus(ctx, rec.ID, types.OtpPending, types.OtpFailed); err != nil {
			return types.VerificationResult{}, err
		}
		return types.VerificationResult{Reason: types.ReasonCodeMismatch}, nil
	}

	swapped, err := s.otps.UpdateStatus(ctx, rec.ID, types.OtpPending, types.OtpVerified)
	if err != nil {
		return types.VerificationResult{}, err
	}
	if !swapped {
		// Another request won the transition between our read and the swap.
		return types.VerificationResult{Reason: types.ReasonSuperseded}, nil
	}

	_ = s.devices.MarkSeen(ctx, deviceID, now)

	return types.VerificationResult{Verified: true, Reason: types.ReasonVerified}, nil
}

// ExpireSweep fails every pending code whose validity window has
// elapsed.  Idempotent and safe to run concurrently with Verify: both
// sides go through the same conditional update.
func (s *OtpService) ExpireSweep(ctx context.Context) (int64, error) {
	return s.otps.ExpireBefore(ctx, time.Now().UTC())
}

// generateCode draws a uniform number in [0, 10^length) from
// crypto/rand and zero-pads it to length digits.
func generateCode(length int) (string, error) {
	bound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
