// Package premiums implements the premium waterfall ledger: pure premium
// collected for active risk, premium already won, and the funding cascade
// that pays claims from won premium, then active premium, then the
// capital pool's loan facility.
package premiums

import (
	"fmt"

	fp "PoolLedger/internal/fixedpoint"
	"PoolLedger/internal/ledger"
	"PoolLedger/internal/pool"
)

// Waterfall is the premium ledger. Active backs policies still at risk,
// Won is realized premium free to absorb claims, Borrowed tracks how much
// of Active has been spent ahead of realization. Borrowed never exceeds
// Active; PurePremiums() = Active + Won - Borrowed stays non-negative.
// The pool reference is borrowed from, never owned.
type Waterfall struct {
	active   int64
	won      int64
	borrowed int64

	pool *pool.CapitalPool
}

// NewWaterfall creates an empty waterfall borrowing from the given pool.
func NewWaterfall(p *pool.CapitalPool) *Waterfall {
	return &Waterfall{pool: p}
}

// NewPolicy books a freshly underwritten policy's pure premium as active.
func (w *Waterfall) NewPolicy(purePremium int64) error {
	if purePremium < 0 {
		return fmt.Errorf("%w: negative pure premium %d", ledger.ErrValidation, purePremium)
	}
	w.active += purePremium
	return nil
}

// ClaimFunding is the breakdown of how a claim payout was funded, used by
// the journal generator and the post-event invariant checks.
type ClaimFunding struct {
	FromPremium  int64 // the policy's own pure premium applied to the payout
	FromWon      int64 // drained from won premium
	FromActive   int64 // newly borrowed against remaining active premium
	FromLoan     int64 // drawn from the pool loan facility
	Residual     int64 // unfunded remainder within the negligible tolerance
	WonBooked    int64 // surplus folded into won premium
	BorrowRepaid int64 // borrowed-from-active repaid out of surplus
}

// ClaimPaid settles a resolved policy: the policy's pure premium leaves
// the active bucket and the payout is funded by the cascade. A surplus
// (premium >= payout) first repays any outstanding borrow, the rest
// becomes won premium. A shortfall drains won premium, then borrows
// against unborrowed active premium, then draws on the pool loan
// facility; a residual beyond the negligible threshold fails the whole
// operation before any state changes.
func (w *Waterfall) ClaimPaid(purePremium, payout, now int64) (ClaimFunding, error) {
	if purePremium < 0 || payout < 0 {
		return ClaimFunding{}, fmt.Errorf("%w: claim premium=%d payout=%d", ledger.ErrValidation, purePremium, payout)
	}
	if purePremium > w.active {
		return ClaimFunding{}, fmt.Errorf("%w: claim premium %d exceeds active %d", ledger.ErrAnomalousState, purePremium, w.active)
	}

	if purePremium >= payout {
		surplus := purePremium - payout
		repaid := min64(surplus, w.borrowed)
		funding := ClaimFunding{
			FromPremium:  payout,
			WonBooked:    surplus - repaid,
			BorrowRepaid: repaid,
		}
		w.active -= purePremium
		w.borrowed -= repaid
		w.won += funding.WonBooked
		return funding, nil
	}

	// Shortfall cascade, planned fully before anything is applied.
	shortfall := payout - purePremium
	fromWon := min64(shortfall, w.won)
	remaining := shortfall - fromWon

	headroom := (w.active - purePremium) - w.borrowed
	if headroom < 0 {
		headroom = 0
	}
	fromActive := min64(remaining, headroom)
	remaining -= fromActive

	var fromLoan int64
	if remaining > 0 {
		capacity := w.pool.LendCapacity(0, now)
		if remaining-capacity > fp.NegligibleAmount {
			return ClaimFunding{}, fmt.Errorf("%w: claim shortfall %d exceeds loan capacity %d", ledger.ErrInsufficientCapital, remaining, capacity)
		}
		fromLoan = min64(remaining, capacity)
	}
	residual := remaining - fromLoan

	if fromLoan > 0 {
		lent, err := w.pool.Lend(fromLoan, now)
		if err != nil {
			return ClaimFunding{}, fmt.Errorf("claim loan draw: %w", err)
		}
		residual += fromLoan - lent
		fromLoan = lent
		if residual > fp.NegligibleAmount {
			return ClaimFunding{}, fmt.Errorf("%w: claim residual %d beyond tolerance", ledger.ErrInsufficientCapital, residual)
		}
	}

	w.active -= purePremium
	w.won -= fromWon
	w.borrowed += fromActive

	return ClaimFunding{
		FromPremium: purePremium,
		FromWon:     fromWon,
		FromActive:  fromActive,
		FromLoan:    fromLoan,
		Residual:    residual,
	}, nil
}

// ExpirationResult reports how an expired policy's released premium was
// applied.
type ExpirationResult struct {
	Overshoot  int64 // borrowed-from-active correction, should be zero
	LoanRepaid int64 // released premium used to repay the pool loan
	WonBooked  int64 // remainder booked as won premium
}

// PolicyExpired releases an expired policy's pure premium. If borrowed
// premium exceeds the shrunk active bucket the overshoot is corrected
// first (it was already spent). Any outstanding pool loan is repaid from
// the release before the remainder is booked as won premium.
func (w *Waterfall) PolicyExpired(purePremium, now int64) (ExpirationResult, error) {
	if purePremium < 0 {
		return ExpirationResult{}, fmt.Errorf("%w: negative pure premium %d", ledger.ErrValidation, purePremium)
	}
	if purePremium > w.active {
		return ExpirationResult{}, fmt.Errorf("%w: expiring premium %d exceeds active %d", ledger.ErrAnomalousState, purePremium, w.active)
	}

	newActive := w.active - purePremium
	released := purePremium

	var result ExpirationResult
	if w.borrowed > newActive {
		result.Overshoot = w.borrowed - newActive
		released -= result.Overshoot
		if released < 0 {
			released = 0
		}
	}

	if released > 0 {
		if balance := w.pool.LoanBalance(now); balance > 0 {
			repaid, err := w.pool.Repay(released, now)
			if err != nil {
				return ExpirationResult{}, fmt.Errorf("expiration loan repay: %w", err)
			}
			result.LoanRepaid = repaid
			released -= repaid
		}
	}

	w.active = newActive
	if w.borrowed > newActive {
		w.borrowed = newActive
	}
	result.WonBooked = released
	w.won += released
	return result, nil
}

// PurePremiums returns the net premium held: active plus won minus the
// portion of active already spent.
func (w *Waterfall) PurePremiums() int64 {
	return w.active + w.won - w.borrowed
}

// Active returns the premium backing open policies.
func (w *Waterfall) Active() int64 { return w.active }

// Won returns the realized premium.
func (w *Waterfall) Won() int64 { return w.won }

// BorrowedFromActive returns the spent-ahead portion of active premium.
func (w *Waterfall) BorrowedFromActive() int64 { return w.borrowed }

// State is the waterfall's serializable state.
type State struct {
	Active   int64 `json:"active"`
	Won      int64 `json:"won"`
	Borrowed int64 `json:"borrowed_from_active"`
}

// Snapshot captures the waterfall state.
func (w *Waterfall) Snapshot() State {
	return State{Active: w.active, Won: w.won, Borrowed: w.borrowed}
}

// Restore replaces the waterfall state from a snapshot.
func (w *Waterfall) Restore(s State) {
	w.active = s.Active
	w.won = s.Won
	w.borrowed = s.Borrowed
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
