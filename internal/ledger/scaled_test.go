package ledger_test

import (
	"errors"
	"testing"

	fp "PoolLedger/internal/fixedpoint"
	"PoolLedger/internal/ledger"
)

const (
	microsPerYear = int64(fp.SecondsPerYear) * fp.MicrosPerSecond
	ratePct10     = int64(100_000_000) // 0.10 at rate precision
)

func TestScaledBalance_CurrentValueMonotonic(t *testing.T) {
	sb := ledger.NewScaledBalance(0)
	if _, err := sb.Add(1_000_000_000, ratePct10, 0); err != nil { // 1000.0
		t.Fatalf("add: %v", err)
	}

	prev := sb.CurrentValue(ratePct10, 0)
	for _, now := range []int64{microsPerYear / 12, microsPerYear / 4, microsPerYear, 3 * microsPerYear} {
		got := sb.CurrentValue(ratePct10, now)
		if got < prev {
			t.Errorf("current value decreased at t=%d: %d < %d", now, got, prev)
		}
		prev = got
	}
}

func TestScaledBalance_OneYearAccrual(t *testing.T) {
	sb := ledger.NewScaledBalance(0)
	if _, err := sb.Add(1_000_000_000, ratePct10, 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	got := sb.CurrentValue(ratePct10, microsPerYear)
	want := int64(1_100_000_000) // 1100.0
	if got != want {
		t.Errorf("one year at 10%%: got %d, want %d", got, want)
	}
}

func TestScaledBalance_AddSubRestoresRaw(t *testing.T) {
	sb := ledger.NewScaledBalance(0)
	if _, err := sb.Add(500_000_000, ratePct10, 0); err != nil {
		t.Fatalf("seed add: %v", err)
	}
	// Accrue some interest so the scale is not identity
	sb.UpdateScale(ratePct10, microsPerYear/2)

	rawBefore := sb.Raw
	if _, err := sb.Add(123_456_789, ratePct10, microsPerYear/2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := sb.Sub(123_456_789, ratePct10, microsPerYear/2); err != nil {
		t.Fatalf("sub: %v", err)
	}

	diff := sb.Raw - rawBefore
	if diff < 0 {
		diff = -diff
	}
	if diff > 1 {
		t.Errorf("raw drift after add/sub: before=%d after=%d", rawBefore, sb.Raw)
	}
}

func TestScaledBalance_ScaleResetOnEmptyAdd(t *testing.T) {
	sb := ledger.NewScaledBalance(0)
	if _, err := sb.Add(100_000_000, ratePct10, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	full := sb.CurrentValue(ratePct10, microsPerYear)
	if _, err := sb.Sub(full, ratePct10, microsPerYear); err != nil {
		t.Fatalf("sub: %v", err)
	}
	if sb.Raw != 0 {
		t.Fatalf("expected empty balance, raw=%d", sb.Raw)
	}
	// Scale has accrued past 1.0; the next add must not inherit it
	if _, err := sb.Add(100_000_000, ratePct10, microsPerYear); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if sb.Scale != fp.ScaleOne {
		t.Errorf("scale not reset on add to empty balance: %d", sb.Scale)
	}
	if got := sb.CurrentValue(ratePct10, microsPerYear); got != 100_000_000 {
		t.Errorf("re-added value: got %d, want %d", got, int64(100_000_000))
	}
}

func TestScaledBalance_DiscreteChange(t *testing.T) {
	sb := ledger.NewScaledBalance(0)
	if _, err := sb.Add(1_000_000_000, 0, 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := sb.DiscreteChange(50_000_000, true, 0, 0); err != nil { // +50.0
		t.Fatalf("positive discrete change: %v", err)
	}
	if got := sb.CurrentValue(0, 0); got != 1_050_000_000 {
		t.Errorf("after gain: got %d, want %d", got, int64(1_050_000_000))
	}

	if err := sb.DiscreteChange(150_000_000, false, 0, 0); err != nil { // -150.0
		t.Fatalf("negative discrete change: %v", err)
	}
	if got := sb.CurrentValue(0, 0); got != 900_000_000 {
		t.Errorf("after loss: got %d, want %d", got, int64(900_000_000))
	}
}

func TestScaledBalance_DiscreteChangeBelowZero(t *testing.T) {
	sb := ledger.NewScaledBalance(0)
	if _, err := sb.Add(100_000_000, 0, 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := sb.DiscreteChange(200_000_000, false, 0, 0)
	if !errors.Is(err, ledger.ErrInsufficientCapital) {
		t.Errorf("expected ErrInsufficientCapital, got %v", err)
	}
}

func TestScaledBalance_PrecisionGuard(t *testing.T) {
	sb := ledger.NewScaledBalance(0)
	// Large raw amount whose current value collapses near zero would push
	// the scale below the floor.
	if _, err := sb.Add(1_000_000_000_000, 0, 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := sb.DiscreteChange(sb.CurrentValue(0, 0)-1, false, 0, 0)
	if !errors.Is(err, ledger.ErrPrecisionGuard) {
		t.Errorf("expected ErrPrecisionGuard, got %v", err)
	}
	// Failed operation must not have mutated the scale
	if sb.Scale != fp.ScaleOne {
		t.Errorf("scale mutated by failed discrete change: %d", sb.Scale)
	}
}

func TestScaledBalance_UpdateScaleNoOpWhenCurrent(t *testing.T) {
	sb := ledger.NewScaledBalance(1000)
	if _, err := sb.Add(100_000_000, ratePct10, 1000); err != nil {
		t.Fatalf("add: %v", err)
	}

	before := sb.Scale
	sb.UpdateScale(ratePct10, 1000)
	if sb.Scale != before {
		t.Errorf("scale changed on no-op update: %d -> %d", before, sb.Scale)
	}
	sb.UpdateScale(ratePct10, 500) // earlier timestamp: also a no-op
	if sb.Scale != before {
		t.Errorf("scale changed on stale update: %d -> %d", before, sb.Scale)
	}
}
