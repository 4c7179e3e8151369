package ledger

import "errors"

// Error taxonomy for the accounting core. All errors abort the current
// operation atomically; callers are responsible for resubmission.
var (
	// ErrValidation marks malformed inputs (premium >= payout, negative
	// split, out-of-range parameters), rejected before any mutation.
	ErrValidation = errors.New("validation error")

	// ErrInsufficientCapital marks a reservation exceeding available funds,
	// or a claim shortfall exceeding what the waterfall plus loan facility
	// can cover.
	ErrInsufficientCapital = errors.New("insufficient capital")

	// ErrPrecisionGuard marks a scale adjustment that would fall below the
	// minimum representable precision.
	ErrPrecisionGuard = errors.New("precision guard")

	// ErrAnomalousState marks ledger state that should not occur under
	// correct operation and has no safe correction.
	ErrAnomalousState = errors.New("anomalous ledger state")
)
