package ledger_test

import (
	"errors"
	"testing"

	"PoolLedger/internal/ledger"
)

func TestReservation_BlendTwoContributions(t *testing.T) {
	var r ledger.Reservation

	// 100 @ 0.1 then 100 @ 0.2 on an empty ledger -> 200 @ 0.15
	if err := r.Add(100_000_000, 100_000_000); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := r.Add(100_000_000, 200_000_000); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if r.Locked != 200_000_000 {
		t.Errorf("locked = %d, want %d", r.Locked, int64(200_000_000))
	}
	if r.BlendedRate != 150_000_000 {
		t.Errorf("blended rate = %d, want %d", r.BlendedRate, int64(150_000_000))
	}
}

func TestReservation_AddSubRestoresEmpty(t *testing.T) {
	var r ledger.Reservation

	if err := r.Add(75_000_000, 120_000_000); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Sub(75_000_000, 120_000_000); err != nil {
		t.Fatalf("sub: %v", err)
	}

	if r.Locked != 0 || r.BlendedRate != 0 {
		t.Errorf("expected zeroed reservation, got locked=%d rate=%d", r.Locked, r.BlendedRate)
	}
}

func TestReservation_PartialSubReblends(t *testing.T) {
	var r ledger.Reservation

	if err := r.Add(100_000_000, 100_000_000); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Add(100_000_000, 200_000_000); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Sub(100_000_000, 200_000_000); err != nil {
		t.Fatalf("sub: %v", err)
	}

	if r.Locked != 100_000_000 {
		t.Errorf("locked = %d, want %d", r.Locked, int64(100_000_000))
	}
	if r.BlendedRate != 100_000_000 {
		t.Errorf("blended rate = %d, want %d", r.BlendedRate, int64(100_000_000))
	}
}

func TestReservation_SubExceedsLocked(t *testing.T) {
	var r ledger.Reservation

	if err := r.Add(50_000_000, 100_000_000); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := r.Sub(60_000_000, 100_000_000)
	if !errors.Is(err, ledger.ErrAnomalousState) {
		t.Errorf("expected ErrAnomalousState, got %v", err)
	}
}

func TestReservation_FundsAvailable(t *testing.T) {
	var r ledger.Reservation

	if got := r.FundsAvailable(1_000_000_000); got != 1_000_000_000 {
		t.Errorf("empty ledger: got %d", got)
	}

	if err := r.Add(300_000_000, 100_000_000); err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := r.FundsAvailable(1_000_000_000); got != 700_000_000 {
		t.Errorf("got %d, want %d", got, int64(700_000_000))
	}

	// Supply below locked (e.g., after investment losses) floors at zero
	if got := r.FundsAvailable(200_000_000); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}
