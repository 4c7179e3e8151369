package ledger

import (
	"fmt"

	fp "PoolLedger/internal/fixedpoint"
)

// ScaledBalance is a compounding-balance primitive: a raw quantity plus a
// multiplicative scale factor. The current value raw × scale grows lazily
// with elapsed time at a caller-supplied annualized rate — no per-holder
// periodic updates, any reader recomputes on demand.
type ScaledBalance struct {
	Raw        int64 // amount precision
	Scale      int64 // scale precision (ScaleConfig)
	LastUpdate int64 // epoch micros of last scale sync
}

// NewScaledBalance returns an empty balance with identity scale.
func NewScaledBalance(now int64) ScaledBalance {
	return ScaledBalance{
		Raw:        0,
		Scale:      fp.ScaleOne,
		LastUpdate: now,
	}
}

// scaleAt extrapolates the scale to now without mutating state.
func (sb *ScaledBalance) scaleAt(rate, now int64) int64 {
	if now <= sb.LastUpdate {
		return sb.Scale
	}
	return fp.CompoundScale(sb.Scale, rate, now-sb.LastUpdate)
}

// UpdateScale advances the scale to now. No-op if already current.
func (sb *ScaledBalance) UpdateScale(rate, now int64) {
	if now <= sb.LastUpdate {
		return
	}
	sb.Scale = sb.scaleAt(rate, now)
	sb.LastUpdate = now
}

// CurrentValue is a pure read: raw × scale extrapolated to now.
func (sb *ScaledBalance) CurrentValue(rate, now int64) int64 {
	if sb.Raw == 0 {
		return 0
	}
	return fp.ApplyScale(sb.Raw, sb.scaleAt(rate, now), fp.RoundHalfEven)
}

// Add books a current-value amount by converting it into a raw delta under
// the freshly updated scale. Returns the raw delta so share ledgers can
// mirror it into per-holder entries. A stale scale is not carried forward
// into an empty balance: when Raw == 0 the scale resets to 1.
func (sb *ScaledBalance) Add(amount, rate, now int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative add amount %d", ErrValidation, amount)
	}

	sb.UpdateScale(rate, now)

	if sb.Raw == 0 {
		sb.Scale = fp.ScaleOne
	}

	rawDelta := fp.RawFromValue(amount, sb.Scale, fp.RoundHalfEven)
	sb.Raw += rawDelta
	return rawDelta, nil
}

// Sub removes a current-value amount. Returns the raw delta removed.
func (sb *ScaledBalance) Sub(amount, rate, now int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: negative sub amount %d", ErrValidation, amount)
	}

	sb.UpdateScale(rate, now)

	rawDelta := fp.RawFromValue(amount, sb.Scale, fp.RoundHalfEven)
	if rawDelta > sb.Raw {
		// Rounding on the last full withdrawal may ask for one raw unit
		// more than held; clamp within the precision floor, reject beyond.
		if rawDelta-sb.Raw > fp.NegligibleAmount {
			return 0, fmt.Errorf("%w: sub %d exceeds raw balance %d", ErrInsufficientCapital, rawDelta, sb.Raw)
		}
		rawDelta = sb.Raw
	}
	sb.Raw -= rawDelta
	return rawDelta, nil
}

// DiscreteChange applies a non-proportional adjustment (investment gain or
// loss) by recomputing the scale so that raw × newScale == oldValue ± delta.
// The scale must already be current (callers sync via UpdateScale first) or
// the earnings will be misattributed across time.
func (sb *ScaledBalance) DiscreteChange(delta int64, positive bool, rate, now int64) error {
	if delta < 0 {
		return fmt.Errorf("%w: negative discrete delta %d", ErrValidation, delta)
	}

	sb.UpdateScale(rate, now)

	if sb.Raw == 0 {
		if delta == 0 {
			return nil
		}
		return fmt.Errorf("%w: discrete change of %d on empty balance", ErrAnomalousState, delta)
	}

	current := fp.ApplyScale(sb.Raw, sb.Scale, fp.RoundHalfEven)

	var newValue int64
	if positive {
		newValue = current + delta
	} else {
		newValue = current - delta
		if newValue < 0 {
			return fmt.Errorf("%w: discrete change %d exceeds current value %d", ErrInsufficientCapital, delta, current)
		}
	}

	newScale := fp.ScaleFromValue(newValue, sb.Raw, fp.RoundHalfEven)
	if newScale < fp.MinScale {
		return fmt.Errorf("%w: scale %d below floor %d", ErrPrecisionGuard, newScale, fp.MinScale)
	}

	sb.Scale = newScale
	return nil
}
