package httpapi

import (
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/store"
)

// Wire shapes for the dashboard boundary.  Timestamps go out as
// RFC3339Nano UTC strings; the enum values are the stored strings.

type accessRecordView struct {
	ID        int64   `json:"id"`
	Action    string  `json:"action"`
	Success   bool    `json:"success"`
	Pin       *string `json:"pin,omitempty"`
	DeviceID  *string `json:"device_id,omitempty"`
	Timestamp string  `json:"timestamp"`
	CreatedAt string  `json:"created_at"`

	// ClockSkew marks a device-reported event time later than the
	// store's ingestion time, meaning the device clock runs ahead.
	ClockSkew bool `json:"clock_skew,omitempty"`
}

type accessRecordPage struct {
	OK       bool               `json:"ok"`
	Records  []accessRecordView `json:"records"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	More     bool               `json:"more"`
}

func accessRecordViews(recs []store.AccessRecord) []accessRecordView {
	out := make([]accessRecordView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, accessRecordView{
			ID:        rec.ID,
			Action:    rec.Action.String(),
			Success:   rec.Success,
			Pin:       rec.Pin,
			DeviceID:  rec.DeviceID,
			Timestamp: rec.Timestamp.UTC().Format(time.RFC3339Nano),
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			ClockSkew: rec.Timestamp.After(rec.CreatedAt),
		})
	}
	return out
}

type otpRecordView struct {
	ID        int64   `json:"id"`
	Otp       string  `json:"otp"`
	Status    string  `json:"status"`
	DeviceID  *string `json:"device_id,omitempty"`
	CreatedAt string  `json:"created_at"`
	ExpiresAt string  `json:"expires_at"`
}

type otpRecordPage struct {
	OK       bool            `json:"ok"`
	Records  []otpRecordView `json:"records"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	More     bool            `json:"more"`
}

func otpRecordViews(recs []store.OtpRecord) []otpRecordView {
	out := make([]otpRecordView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, otpRecordView{
			ID:        rec.ID,
			Otp:       rec.Otp,
			Status:    rec.Status.String(),
			DeviceID:  rec.DeviceID,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			ExpiresAt: rec.ExpiresAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

type deviceView struct {
	DeviceID  string `json:"device_id"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

type devicePage struct {
	OK      bool         `json:"ok"`
	Devices []deviceView `json:"devices"`
}

func deviceViews(recs []store.DeviceRecord) []deviceView {
	out := make([]deviceView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, deviceView{
			DeviceID:  rec.DeviceID,
			FirstSeen: rec.FirstSeen.UTC().Format(time.RFC3339Nano),
			LastSeen:  rec.LastSeen.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
