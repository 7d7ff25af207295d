package service

import (
	"context"

	"github.com/smartdoorlock/server/internal/doorlock/store"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

type QueryLimits struct {
	DefaultPageSize int // used when the caller sends no page_size
	MaxPageSize     int // hard cap per response
}

// QueryService is the dashboard's read-only surface over the ledger.
// It never mutates state; its only job beyond delegation is clamping
// page sizes so a single request cannot walk the whole ledger.
type QueryService struct {
	access  store.AccessRecordStore
	otps    store.OtpRecordStore
	devices store.DeviceStore
	limits  QueryLimits
}

func NewQueryService(
	access store.AccessRecordStore,
	otps store.OtpRecordStore,
	devices store.DeviceStore,
	limits QueryLimits,
) *QueryService {
	if limits.DefaultPageSize < 1 {
		limits.DefaultPageSize = 50
	}
	if limits.MaxPageSize < limits.DefaultPageSize {
		limits.MaxPageSize = limits.DefaultPageSize
	}
	return &QueryService{access: access, otps: otps, devices: devices, limits: limits}
}

// Clamp maps raw page parameters onto a bounded store.Page.
func (s *QueryService) Clamp(pageNumber, pageSize int) store.Page {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = s.limits.DefaultPageSize
	}
	if pageSize > s.limits.MaxPageSize {
		pageSize = s.limits.MaxPageSize
	}
	return store.Page{Number: pageNumber, Size: pageSize}
}

func (s *QueryService) AccessRecords(
	ctx context.Context,
	deviceFilter string,
	actionFilter *types.Action,
	pageNumber, pageSize int,
) ([]store.AccessRecord, store.Page, bool, error) {
	page := s.Clamp(pageNumber, pageSize)
	recs, more, err := s.access.Query(ctx, store.AccessQuery{
		DeviceID: deviceFilter,
		Action:   actionFilter,
		Page:     page,
	})
	return recs, page, more, err
}

func (s *QueryService) OtpRecords(
	ctx context.Context,
	pageNumber, pageSize int,
) ([]store.OtpRecord, store.Page, bool, error) {
	page := s.Clamp(pageNumber, pageSize)
	recs, more, err := s.otps.Query(ctx, page)
	return recs, page, more, err
}

func (s *QueryService) Devices(ctx context.Context) ([]store.DeviceRecord, error) {
	return s.devices.List(ctx)
}
