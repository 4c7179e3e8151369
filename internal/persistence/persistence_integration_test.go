package persistence_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"PoolLedger/internal/persistence"
	"PoolLedger/internal/policy"
	"PoolLedger/internal/testutil"
)

// These tests need the docker-compose.test.yml Postgres. They are skipped
// unless INTEGRATION_TEST=1 is set.

func TestEventLogRoundTrip(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	writer := persistence.NewEventLogWriter(db, 50, 10*time.Millisecond)
	now := time.Now().UTC().Truncate(time.Microsecond)

	events := []persistence.EventRow{
		{
			Sequence:       0,
			EventType:      "CapitalDeposited",
			IdempotencyKey: "dep-itest-1",
			Payload:        []byte(`{"amount":1000000}`),
			StateHash:      []byte{1, 2, 3},
			PrevHash:       []byte{0},
			Timestamp:      now,
			SourceSequence: 1,
		},
		{
			Sequence:       1,
			EventType:      "EarningsReported",
			IdempotencyKey: "earn-itest-1",
			Payload:        []byte(`{"delta":500}`),
			StateHash:      []byte{4, 5, 6},
			PrevHash:       []byte{1, 2, 3},
			Timestamp:      now,
			SourceSequence: 2,
		},
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := writer.WriteEventBatch(ctx, tx, events); err != nil {
		tx.Rollback()
		t.Fatalf("write events: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	snapMgr := persistence.NewSnapshotManager(db)

	tip, err := snapMgr.GetLatestSequence(ctx)
	if err != nil {
		t.Fatalf("latest sequence: %v", err)
	}
	if tip != 1 {
		t.Errorf("latest sequence = %d, want 1", tip)
	}

	rows, err := snapMgr.LoadEventsFrom(ctx, 0, 100)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("loaded %d events, want 2", len(rows))
	}
	if rows[0].EventType != "CapitalDeposited" || rows[1].EventType != "EarningsReported" {
		t.Errorf("unexpected event order: %s, %s", rows[0].EventType, rows[1].EventType)
	}

	// Writes are idempotent on (sequence): a replayed batch is a no-op.
	tx2, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := writer.WriteEventBatch(ctx, tx2, events[:1]); err != nil {
		tx2.Rollback()
		t.Fatalf("rewrite events: %v", err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if tip, _ = snapMgr.GetLatestSequence(ctx); tip != 1 {
		t.Errorf("latest sequence after replayed write = %d, want 1", tip)
	}

	checker := persistence.NewPostgresIdempotencyChecker(db)
	isDup, err := checker.IsDuplicate("CapitalDeposited", "dep-itest-1")
	if err != nil {
		t.Fatalf("idempotency check: %v", err)
	}
	if !isDup {
		t.Error("persisted event not reported as duplicate")
	}
	isDup, err = checker.IsDuplicate("CapitalDeposited", "dep-never-seen")
	if err != nil {
		t.Fatalf("idempotency check: %v", err)
	}
	if isDup {
		t.Error("unknown key reported as duplicate")
	}

	keys, err := checker.LoadRecentKeys(ctx, 10)
	if err != nil {
		t.Fatalf("load recent keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("loaded %d keys, want 2", len(keys))
	}
	for _, k := range keys {
		if !strings.Contains(k, ":") {
			t.Errorf("key %q is not in event_type:key composite form", k)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	snapMgr := persistence.NewSnapshotManager(db)

	snap := &persistence.SnapshotData{
		Sequence:  42,
		StateHash: []byte{9, 9, 9},
		Balances: map[string]int64{
			"system:pool_capital:USDC": 1_000_000,
		},
		Params: policy.Parameters{
			Margin:               1_000_000_000,
			ReservationRatio:     1_000_000_000,
			LiquidityRequirement: 1_100_000_000,
		},
		SequenceState:   map[string]int64{"global": 43},
		IdempotencyKeys: []string{"CapitalDeposited:dep-1"},
		CreatedAt:       time.Now().UTC(),
	}

	if err := snapMgr.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := snapMgr.MarkVerified(ctx, 42); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	loaded, err := snapMgr.LoadLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if loaded == nil {
		t.Fatal("no snapshot loaded")
	}
	if loaded.Sequence != 42 {
		t.Errorf("sequence = %d, want 42", loaded.Sequence)
	}
	if loaded.Balances["system:pool_capital:USDC"] != 1_000_000 {
		t.Errorf("balance = %d, want 1000000", loaded.Balances["system:pool_capital:USDC"])
	}
	if loaded.SequenceState["global"] != 43 {
		t.Errorf("sequence state = %d, want 43", loaded.SequenceState["global"])
	}
	if len(loaded.IdempotencyKeys) != 1 || loaded.IdempotencyKeys[0] != "CapitalDeposited:dep-1" {
		t.Errorf("idempotency keys = %v", loaded.IdempotencyKeys)
	}
}
