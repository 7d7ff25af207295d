package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartdoorlock/server/internal/doorlock/store"
	sqlitestore "github.com/smartdoorlock/server/internal/doorlock/store/sqlite"
	"github.com/smartdoorlock/server/internal/doorlock/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// Append — basic insert and id assignment
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessRecordStore_Append_AssignsIncreasingIDs(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)
	ctx := context.Background()

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

	var last int64
	for i := 0; i < 3; i++ {
		id, err := as.Append(ctx, store.AccessRecord{
			Action:    types.ActionTimeout,
			Success:   false,
			DeviceID:  strptr("lock-7"),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if id <= last {
			t.Errorf("expected strictly increasing ids, got %d after %d", id, last)
		}
		last = id
	}
}

func TestAccessRecordStore_Append_AssignsCreatedAt(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	id, err := as.Append(ctx, store.AccessRecord{
		Action:  types.ActionMasterReset,
		Success: true,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	var createdMs int64
	if err := conn.QueryRowContext(ctx,
		`SELECT created_at_ms FROM access_records WHERE id = ?`, id,
	).Scan(&createdMs); err != nil {
		t.Fatalf("query created_at_ms: %v", err)
	}
	if createdMs < before.UnixMilli() {
		t.Errorf("created_at_ms %d earlier than test start %d", createdMs, before.UnixMilli())
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Append — validation
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessRecordStore_Append_RejectsUnknownAction(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)

	_, err := as.Append(context.Background(), store.AccessRecord{
		Action: types.Action("DOOR_KICKED"),
	})

	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAccessRecordStore_Append_RejectsPinOutsidePinEntry(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)
	ctx := context.Background()

	_, err := as.Append(ctx, store.AccessRecord{
		Action: types.ActionTimeout,
		Pin:    strptr("123456"),
	})
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// Nothing persisted after the rejection.
	var count int
	if err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM access_records`,
	).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 rows after rejected append, got %d", count)
	}
}

func TestAccessRecordStore_Append_AllowsPinForPinEntry(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)

	_, err := as.Append(context.Background(), store.AccessRecord{
		Action:   types.ActionPinEntry,
		Success:  true,
		Pin:      strptr("483920"),
		DeviceID: strptr("lock-7"),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Query — filters
// ═══════════════════════════════════════════════════════════════════════════

func seedAccessRecords(t *testing.T, as *sqlitestore.AccessRecordStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

	seed := []store.AccessRecord{
		{Action: types.ActionPinEntry, Success: true, Pin: strptr("111111"), DeviceID: strptr("lock-7"), Timestamp: base},
		{Action: types.ActionTimeout, Success: false, DeviceID: strptr("lock-7"), Timestamp: base.Add(time.Minute)},
		{Action: types.ActionMasterReset, Success: true, DeviceID: strptr("LOCK-12"), Timestamp: base.Add(2 * time.Minute)},
		{Action: types.ActionTimeout, Success: false, Timestamp: base.Add(3 * time.Minute)}, // unknown source
	}
	for i, rec := range seed {
		if _, err := as.Append(ctx, rec); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
}

func TestAccessRecordStore_Query_DeviceSubstringCaseInsensitive(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)
	seedAccessRecords(t, as)

	recs, _, err := as.Query(context.Background(), store.AccessQuery{
		DeviceID: "lock-1",
		Page:     store.Page{Number: 1, Size: 10},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record matching lock-1, got %d", len(recs))
	}
	if recs[0].DeviceID == nil || *recs[0].DeviceID != "LOCK-12" {
		t.Errorf("expected LOCK-12, got %v", recs[0].DeviceID)
	}
}

func TestAccessRecordStore_Query_ActionFilterConjunctive(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)
	seedAccessRecords(t, as)

	action := types.ActionTimeout
	recs, _, err := as.Query(context.Background(), store.AccessQuery{
		DeviceID: "lock-7",
		Action:   &action,
		Page:     store.Page{Number: 1, Size: 10},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 TIMEOUT record for lock-7, got %d", len(recs))
	}
	if recs[0].Action != types.ActionTimeout {
		t.Errorf("expected TIMEOUT, got %s", recs[0].Action)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Query — ordering and pagination
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessRecordStore_Query_OrderTimestampDescIDTieBreak(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)
	ctx := context.Background()

	// Three records sharing one timestamp: order must fall back to id desc.
	ts := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := as.Append(ctx, store.AccessRecord{
			Action:    types.ActionTimeout,
			DeviceID:  strptr("lock-7"),
			Timestamp: ts,
		}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	recs, _, err := as.Query(ctx, store.AccessQuery{Page: store.Page{Number: 1, Size: 10}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].ID >= recs[i-1].ID {
			t.Errorf("expected id descending at equal timestamps, got %d then %d",
				recs[i-1].ID, recs[i].ID)
		}
	}
}

func TestAccessRecordStore_Query_PaginationDeterministic(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessRecordStore(conn, w)
	ctx := context.Background()

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		if _, err := as.Append(ctx, store.AccessRecord{
			Action:    types.ActionTimeout,
			DeviceID:  strptr("lock-7"),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	seen := map[int64]bool{}
	var union []int64
	for page := 1; page <= 3; page++ {
		recs, more, err := as.Query(ctx, store.AccessQuery{
			Page: store.Page{Number: page, Size: 3},
		})
		if err != nil {
			t.Fatalf("Query page %d: %v", page, err)
		}

		// Same page requested twice returns identical rows.
		again, _, err := as.Query(ctx, store.AccessQuery{
			Page: store.Page{Number: page, Size: 3},
		})
		if err != nil {
			t.Fatalf("Query page %d again: %v", page, err)
		}
		if len(again) != len(recs) {
			t.Fatalf("page %d unstable: %d then %d rows", page, len(recs), len(again))
		}
		for i := range recs {
			if recs[i].ID != again[i].ID {
				t.Errorf("page %d row %d unstable: id %d then %d", page, i, recs[i].ID, again[i].ID)
			}
		}

		for _, r := range recs {
			if seen[r.ID] {
				t.Errorf("id %d appeared on more than one page", r.ID)
			}
			seen[r.ID] = true
			union = append(union, r.ID)
		}

		wantMore := page < 3
		if more != wantMore {
			t.Errorf("page %d: more=%v, want %v", page, more, wantMore)
		}
	}

	if len(union) != 7 {
		t.Fatalf("expected union of pages to cover all 7 records, got %d", len(union))
	}
	for i := 1; i < len(union); i++ {
		if union[i] >= union[i-1] {
			t.Errorf("union not in descending order at %d: %v", i, union)
		}
	}
}
