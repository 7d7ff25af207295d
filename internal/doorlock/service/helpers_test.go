package service_test

import (
	"io"
	"log"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/store"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// buildOtp constructs a pending OTP record for direct store insertion,
// letting tests control the validity window precisely.
func buildOtp(device, code string, createdAt, expiresAt time.Time) store.OtpRecord {
	return store.OtpRecord{
		Otp:       code,
		Status:    types.OtpPending,
		DeviceID:  &device,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
}
