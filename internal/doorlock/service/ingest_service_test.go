package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/service"
	"github.com/smartdoorlock/server/internal/doorlock/store/memory"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

func newTestIngestService() (*service.IngestService, *memory.AccessRecordStore, *memory.DeviceStore) {
	records := memory.NewAccessRecordStore()
	devices := memory.NewDeviceStore()
	return service.NewIngestService(records, devices), records, devices
}

func TestRecordAccess_PersistsAndReturnsID(t *testing.T) {
	svc, records, _ := newTestIngestService()

	id, err := svc.RecordAccess(context.Background(), types.AccessSubmission{
		DeviceID: "lock-7",
		Action:   "PIN_ENTRY",
		Success:  true,
		Pin:      "483920",
	})
	if err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}
	if id == 0 {
		t.Error("expected a nonzero assigned id")
	}

	recs := records.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Action != types.ActionPinEntry || recs[0].Pin == nil || *recs[0].Pin != "483920" {
		t.Errorf("persisted record mismatch: %+v", recs[0])
	}
}

func TestRecordAccess_RejectsUnknownAction(t *testing.T) {
	svc, records, _ := newTestIngestService()

	_, err := svc.RecordAccess(context.Background(), types.AccessSubmission{
		DeviceID: "lock-7",
		Action:   "JIGGLE_HANDLE",
	})

	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(records.Records()) != 0 {
		t.Error("rejected submission must not be persisted")
	}
}

func TestRecordAccess_RejectsPinWithTimeout(t *testing.T) {
	svc, records, _ := newTestIngestService()

	// No device at all, pin supplied with a TIMEOUT: rejected, nothing stored.
	_, err := svc.RecordAccess(context.Background(), types.AccessSubmission{
		Action:  "TIMEOUT",
		Success: false,
		Pin:     "123456",
	})

	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(records.Records()) != 0 {
		t.Error("rejected submission must not be persisted")
	}
}

func TestRecordAccess_DeviceOptional(t *testing.T) {
	svc, records, _ := newTestIngestService()

	if _, err := svc.RecordAccess(context.Background(), types.AccessSubmission{
		Action:  "MASTER_RESET",
		Success: true,
	}); err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}

	recs := records.Records()
	if len(recs) != 1 || recs[0].DeviceID != nil {
		t.Errorf("expected one record with nil device, got %+v", recs)
	}
}

func TestRecordAccess_UsesDeviceTimestampWhenParseable(t *testing.T) {
	svc, records, _ := newTestIngestService()

	reported := time.Date(2026, 2, 15, 11, 59, 0, 0, time.UTC)
	if _, err := svc.RecordAccess(context.Background(), types.AccessSubmission{
		DeviceID:    "lock-7",
		Action:      "TIMEOUT",
		RequestedAt: reported.Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}

	recs := records.Records()
	if !recs[0].Timestamp.Equal(reported) {
		t.Errorf("expected device timestamp %v, got %v", reported, recs[0].Timestamp)
	}
	// created_at stays store-assigned regardless of the reported time.
	if recs[0].CreatedAt.IsZero() || recs[0].CreatedAt.Equal(reported) {
		t.Errorf("expected store-assigned created_at, got %v", recs[0].CreatedAt)
	}
}

func TestRecordAccess_AssignsTimestampWhenUnreported(t *testing.T) {
	svc, records, _ := newTestIngestService()

	before := time.Now().UTC().Add(-time.Second)
	if _, err := svc.RecordAccess(context.Background(), types.AccessSubmission{
		DeviceID: "lock-7",
		Action:   "TIMEOUT",
	}); err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}

	recs := records.Records()
	if recs[0].Timestamp.Before(before) {
		t.Errorf("expected ingest-assigned timestamp, got %v", recs[0].Timestamp)
	}
}

func TestRecordAccess_MarksDeviceSeen(t *testing.T) {
	svc, _, devices := newTestIngestService()
	ctx := context.Background()

	if _, err := svc.RecordAccess(ctx, types.AccessSubmission{
		DeviceID: "lock-7",
		Action:   "TIMEOUT",
	}); err != nil {
		t.Fatalf("RecordAccess: %v", err)
	}

	fleet, err := devices.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(fleet) != 1 || fleet[0].DeviceID != "lock-7" {
		t.Errorf("expected lock-7 in fleet snapshot, got %+v", fleet)
	}
}
