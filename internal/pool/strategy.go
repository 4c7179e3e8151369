package pool

import (
	"fmt"

	"PoolLedger/internal/ledger"
)

// Strategy reports the value of pool capital deployed at an external
// yield venue. The pool never initiates fund movement; it only reconciles
// reported value against its last checkpoint.
type Strategy interface {
	// InvestmentValue returns the venue's current holdings at now,
	// in amount precision.
	InvestmentValue(now int64) (int64, error)
}

// SyncStrategyEarnings reconciles the strategy's reported value against
// the last checkpoint and books the difference as a discrete gain or
// loss. While the sync is in flight every other pool mutation is
// rejected, so a strategy callback cannot re-enter and observe or modify
// half-updated state. Returns the booked delta (negative for a loss).
func (p *CapitalPool) SyncStrategyEarnings(now int64) (int64, error) {
	if p.strategy == nil {
		return 0, fmt.Errorf("%w: no yield strategy configured", ledger.ErrValidation)
	}
	if err := p.guardMutation("strategy sync"); err != nil {
		return 0, err
	}

	p.syncing = true
	defer func() { p.syncing = false }()

	value, err := p.strategy.InvestmentValue(now)
	if err != nil {
		return 0, fmt.Errorf("strategy sync: %w", err)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: strategy reported negative value %d", ledger.ErrAnomalousState, value)
	}

	delta := value - p.lastInvestment
	if delta == 0 {
		return 0, nil
	}

	if delta > 0 {
		err = p.recordEarnings(delta, true, now)
	} else {
		err = p.recordEarnings(-delta, false, now)
	}
	if err != nil {
		return 0, err
	}
	p.lastInvestment = value
	return delta, nil
}

// InvestmentValue returns the strategy value at the last completed sync.
func (p *CapitalPool) InvestmentValue() int64 {
	return p.lastInvestment
}
