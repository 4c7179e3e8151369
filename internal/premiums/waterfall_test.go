package premiums_test

import (
	"errors"
	"testing"

	"PoolLedger/internal/ledger"
	"PoolLedger/internal/pool"
	"PoolLedger/internal/premiums"

	"github.com/google/uuid"
)

const (
	rateOne    = int64(1_000_000_000)
	ratePct10  = rateOne / 10
	amount1000 = int64(1000 * 1_000_000)
	t0         = int64(1_700_000_000_000_000)
)

func amt(units int64) int64 { return units * 1_000_000 }

func newFixture(poolDeposit int64) (*pool.CapitalPool, *premiums.Waterfall) {
	p := pool.NewCapitalPool(ratePct10, rateOne, t0)
	if poolDeposit > 0 {
		if _, err := p.Deposit(uuid.New(), poolDeposit, t0); err != nil {
			panic(err)
		}
	}
	return p, premiums.NewWaterfall(p)
}

func TestWaterfall_NewPolicyAccumulates(t *testing.T) {
	_, w := newFixture(0)
	if err := w.NewPolicy(amt(100)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	if err := w.NewPolicy(amt(50)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	if got := w.Active(); got != amt(150) {
		t.Errorf("active = %d, want %d", got, amt(150))
	}
	if got := w.PurePremiums(); got != amt(150) {
		t.Errorf("pure premiums = %d, want %d", got, amt(150))
	}
}

func TestWaterfall_ClaimSurplusBooksWon(t *testing.T) {
	_, w := newFixture(0)
	if err := w.NewPolicy(amt(100)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	funding, err := w.ClaimPaid(amt(100), amt(40), t0)
	if err != nil {
		t.Fatalf("ClaimPaid: %v", err)
	}
	if funding.FromPremium != amt(40) {
		t.Errorf("from premium = %d, want %d", funding.FromPremium, amt(40))
	}
	if funding.WonBooked != amt(60) {
		t.Errorf("won booked = %d, want %d", funding.WonBooked, amt(60))
	}
	if got := w.Active(); got != 0 {
		t.Errorf("active = %d, want 0", got)
	}
	if got := w.Won(); got != amt(60) {
		t.Errorf("won = %d, want %d", got, amt(60))
	}
}

func TestWaterfall_SurplusRepaysBorrowFirst(t *testing.T) {
	_, w := newFixture(0)
	if err := w.NewPolicy(amt(100)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	if err := w.NewPolicy(amt(100)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	// First claim is short 50 and borrows it against the other policy's
	// active premium.
	funding, err := w.ClaimPaid(amt(100), amt(150), t0)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if funding.FromActive != amt(50) {
		t.Errorf("from active = %d, want %d", funding.FromActive, amt(50))
	}
	if got := w.BorrowedFromActive(); got != amt(50) {
		t.Errorf("borrowed = %d, want %d", got, amt(50))
	}
	if got := w.PurePremiums(); got != amt(50) {
		t.Errorf("pure premiums = %d, want %d", got, amt(50))
	}

	// Second claim's surplus repays the borrow before booking won.
	funding, err = w.ClaimPaid(amt(100), amt(20), t0)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if funding.BorrowRepaid != amt(50) {
		t.Errorf("borrow repaid = %d, want %d", funding.BorrowRepaid, amt(50))
	}
	if funding.WonBooked != amt(30) {
		t.Errorf("won booked = %d, want %d", funding.WonBooked, amt(30))
	}
	if got := w.BorrowedFromActive(); got != 0 {
		t.Errorf("borrowed = %d, want 0", got)
	}
	if got := w.Won(); got != amt(30) {
		t.Errorf("won = %d, want %d", got, amt(30))
	}
}

func TestWaterfall_ShortfallCascade(t *testing.T) {
	_, w := newFixture(0)
	for i := 0; i < 3; i++ {
		if err := w.NewPolicy(amt(100)); err != nil {
			t.Fatalf("NewPolicy: %v", err)
		}
	}
	// Seed won premium via a surplus claim.
	if _, err := w.ClaimPaid(amt(100), amt(70), t0); err != nil {
		t.Fatalf("surplus claim: %v", err)
	}
	if got := w.Won(); got != amt(30) {
		t.Fatalf("won = %d, want %d", got, amt(30))
	}

	// Shortfall 60 drains won 30 then borrows 30 against active.
	funding, err := w.ClaimPaid(amt(100), amt(160), t0)
	if err != nil {
		t.Fatalf("shortfall claim: %v", err)
	}
	if funding.FromWon != amt(30) {
		t.Errorf("from won = %d, want %d", funding.FromWon, amt(30))
	}
	if funding.FromActive != amt(30) {
		t.Errorf("from active = %d, want %d", funding.FromActive, amt(30))
	}
	if funding.FromLoan != 0 {
		t.Errorf("from loan = %d, want 0", funding.FromLoan)
	}
	// One policy of 100 remains active with 30 of it spent ahead.
	if got := w.PurePremiums(); got != amt(70) {
		t.Errorf("pure premiums = %d, want %d", got, amt(70))
	}
}

func TestWaterfall_ShortfallDrawsPoolLoan(t *testing.T) {
	p, w := newFixture(amount1000)
	if err := w.NewPolicy(amt(50)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	funding, err := w.ClaimPaid(amt(50), amt(500), t0)
	if err != nil {
		t.Fatalf("ClaimPaid: %v", err)
	}
	if funding.FromLoan != amt(450) {
		t.Errorf("from loan = %d, want %d", funding.FromLoan, amt(450))
	}
	if got := p.TotalSupply(t0); got != amt(550) {
		t.Errorf("pool supply = %d, want %d", got, amt(550))
	}
	if got := p.LoanBalance(t0); got != amt(450) {
		t.Errorf("loan balance = %d, want %d", got, amt(450))
	}
}

func TestWaterfall_ShortfallBeyondLoanCapacityFails(t *testing.T) {
	p, w := newFixture(amt(100))
	if err := w.NewPolicy(amt(50)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	_, err := w.ClaimPaid(amt(50), amt(500), t0)
	if !errors.Is(err, ledger.ErrInsufficientCapital) {
		t.Fatalf("got %v, want ErrInsufficientCapital", err)
	}
	// Nothing may have been applied.
	if got := w.Active(); got != amt(50) {
		t.Errorf("active = %d after failed claim, want %d", got, amt(50))
	}
	if got := p.TotalSupply(t0); got != amt(100) {
		t.Errorf("pool supply = %d after failed claim, want %d", got, amt(100))
	}
	if got := p.LoanBalance(t0); got != 0 {
		t.Errorf("loan balance = %d after failed claim, want 0", got)
	}
}

func TestWaterfall_ExpirationRepaysLoanBeforeWon(t *testing.T) {
	p, w := newFixture(amount1000)
	if err := w.NewPolicy(amt(50)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	// The claim has no active headroom and draws 450 from the pool loan.
	if _, err := w.ClaimPaid(amt(50), amt(500), t0); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := w.NewPolicy(amt(600)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	result, err := w.PolicyExpired(amt(600), t0)
	if err != nil {
		t.Fatalf("PolicyExpired: %v", err)
	}
	if result.LoanRepaid != amt(450) {
		t.Errorf("loan repaid = %d, want %d", result.LoanRepaid, amt(450))
	}
	if result.WonBooked != amt(150) {
		t.Errorf("won booked = %d, want %d", result.WonBooked, amt(150))
	}
	if got := p.LoanBalance(t0); got != 0 {
		t.Errorf("loan balance = %d, want 0", got)
	}
	if got := p.TotalSupply(t0); got != amount1000 {
		t.Errorf("pool supply = %d, want %d", got, amount1000)
	}
	if got := w.Won(); got != amt(150) {
		t.Errorf("won = %d, want %d", got, amt(150))
	}
}

func TestWaterfall_ExpirationCorrectsBorrowOvershoot(t *testing.T) {
	_, w := newFixture(0)
	if err := w.NewPolicy(amt(100)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	if err := w.NewPolicy(amt(50)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	// Borrow 40 against the second policy's active premium.
	if _, err := w.ClaimPaid(amt(100), amt(140), t0); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := w.BorrowedFromActive(); got != amt(40) {
		t.Fatalf("borrowed = %d, want %d", got, amt(40))
	}

	// Expiring the second policy leaves borrowed above the shrunk active
	// bucket; the overshoot eats into the released premium.
	result, err := w.PolicyExpired(amt(50), t0)
	if err != nil {
		t.Fatalf("PolicyExpired: %v", err)
	}
	if result.Overshoot != amt(40) {
		t.Errorf("overshoot = %d, want %d", result.Overshoot, amt(40))
	}
	if result.WonBooked != amt(10) {
		t.Errorf("won booked = %d, want %d", result.WonBooked, amt(10))
	}
	if got := w.BorrowedFromActive(); got != 0 {
		t.Errorf("borrowed = %d, want 0", got)
	}
	if got := w.PurePremiums(); got != amt(10) {
		t.Errorf("pure premiums = %d, want %d", got, amt(10))
	}
}

func TestWaterfall_ClaimExceedsActiveIsAnomalous(t *testing.T) {
	_, w := newFixture(0)
	if err := w.NewPolicy(amt(10)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	if _, err := w.ClaimPaid(amt(20), amt(5), t0); !errors.Is(err, ledger.ErrAnomalousState) {
		t.Errorf("claim: got %v, want ErrAnomalousState", err)
	}
	if _, err := w.PolicyExpired(amt(20), t0); !errors.Is(err, ledger.ErrAnomalousState) {
		t.Errorf("expiration: got %v, want ErrAnomalousState", err)
	}
}

func TestWaterfall_SnapshotRoundTrip(t *testing.T) {
	p, w := newFixture(amount1000)
	if err := w.NewPolicy(amt(120)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	if err := w.NewPolicy(amt(80)); err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	if _, err := w.ClaimPaid(amt(120), amt(160), t0); err != nil {
		t.Fatalf("claim: %v", err)
	}

	restored := premiums.NewWaterfall(p)
	restored.Restore(w.Snapshot())
	if restored.Active() != w.Active() || restored.Won() != w.Won() ||
		restored.BorrowedFromActive() != w.BorrowedFromActive() {
		t.Errorf("restored state %d/%d/%d, want %d/%d/%d",
			restored.Active(), restored.Won(), restored.BorrowedFromActive(),
			w.Active(), w.Won(), w.BorrowedFromActive())
	}
}
