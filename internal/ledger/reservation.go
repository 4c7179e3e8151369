package ledger

import (
	"fmt"

	fp "PoolLedger/internal/fixedpoint"
)

// Reservation tracks the aggregate capital locked against outstanding risk
// and the blended (amount-weighted) annualized rate owed on it.
// Locked == 0 always implies BlendedRate == 0.
type Reservation struct {
	Locked      int64 // amount precision
	BlendedRate int64 // rate precision
}

// Add locks an additional contribution at the given rate, reblending.
func (r *Reservation) Add(amount, rate int64) error {
	if amount < 0 || rate < 0 {
		return fmt.Errorf("%w: reservation add amount=%d rate=%d", ErrValidation, amount, rate)
	}
	if amount == 0 {
		return nil
	}

	if r.Locked == 0 {
		r.Locked = amount
		r.BlendedRate = rate
		return nil
	}

	r.BlendedRate = fp.BlendRate(r.BlendedRate, r.Locked, rate, amount)
	r.Locked += amount
	return nil
}

// Sub releases a contribution previously locked at the given rate. Exact
// removal of the full locked amount zeroes both fields.
func (r *Reservation) Sub(amount, rate int64) error {
	if amount < 0 || rate < 0 {
		return fmt.Errorf("%w: reservation sub amount=%d rate=%d", ErrValidation, amount, rate)
	}
	if amount == 0 {
		return nil
	}
	if amount > r.Locked {
		return fmt.Errorf("%w: release %d exceeds locked %d", ErrAnomalousState, amount, r.Locked)
	}

	if amount == r.Locked {
		r.Locked = 0
		r.BlendedRate = 0
		return nil
	}

	r.BlendedRate = fp.UnblendRate(r.BlendedRate, r.Locked, rate, amount)
	r.Locked -= amount
	return nil
}

// FundsAvailable returns the unreserved portion of the given total supply,
// floored at zero.
func (r *Reservation) FundsAvailable(totalSupply int64) int64 {
	available := totalSupply - r.Locked
	if available < 0 {
		return 0
	}
	return available
}
