// Package pool implements the capital pool: a share ledger of provider
// positions over one compounding balance, a reservation ledger locking
// capital against open risk, and a loan facility the premium ledger can
// borrow from.
package pool

import (
	"fmt"

	fp "PoolLedger/internal/fixedpoint"
	"PoolLedger/internal/ledger"

	"github.com/google/uuid"
)

// CapitalPool holds provider capital. Every provider position is a raw
// amount sharing the pool's single scale, so interest accrues to all
// positions pro rata without per-provider updates. The derived pool rate
// is blendedRate × locked / totalSupply: providers earn the reservation
// return on the share of the pool that is actually at risk.
type CapitalPool struct {
	total       ledger.ScaledBalance
	positions   map[uuid.UUID]int64
	reservation ledger.Reservation
	loan        ledger.ScaledBalance

	loanRate             int64
	liquidityRequirement int64

	strategy       Strategy
	lastInvestment int64
	syncing        bool
}

// NewCapitalPool creates an empty pool. loanRate is the annualized rate
// accrued on loan facility draws; liquidityRequirement (>= 1.0 at rate
// precision) haircuts withdrawable funds.
func NewCapitalPool(loanRate, liquidityRequirement, now int64) *CapitalPool {
	return &CapitalPool{
		total:                ledger.NewScaledBalance(now),
		positions:            make(map[uuid.UUID]int64),
		loan:                 ledger.NewScaledBalance(now),
		loanRate:             loanRate,
		liquidityRequirement: liquidityRequirement,
	}
}

// SetStrategy injects the yield strategy used by SyncStrategyEarnings.
func (p *CapitalPool) SetStrategy(s Strategy) {
	p.strategy = s
}

// SetRates updates the loan rate and liquidity requirement, applied from
// the next accrual onward: interest owed up to now is settled into the
// loan's scale at the old rate before the swap.
func (p *CapitalPool) SetRates(loanRate, liquidityRequirement, now int64) {
	p.loan.UpdateScale(p.loanRate, now)
	p.loanRate = loanRate
	p.liquidityRequirement = liquidityRequirement
}

func (p *CapitalPool) guardMutation(op string) error {
	if p.syncing {
		return fmt.Errorf("%w: %s during strategy earnings sync", ledger.ErrAnomalousState, op)
	}
	return nil
}

// InterestRate derives the pool's current annualized rate from the
// reservation: blendedRate scaled by the locked fraction of supply.
// Zero when the pool is empty.
func (p *CapitalPool) InterestRate() int64 {
	if p.total.Raw == 0 {
		return 0
	}
	supply := fp.ApplyScale(p.total.Raw, p.total.Scale, fp.RoundHalfEven)
	if supply == 0 {
		return 0
	}
	return fp.MulDiv(p.reservation.BlendedRate, p.reservation.Locked, supply, fp.RoundDown)
}

// TotalSupply returns the pool's aggregate current value at now.
func (p *CapitalPool) TotalSupply(now int64) int64 {
	return p.total.CurrentValue(p.InterestRate(), now)
}

// BalanceOf returns a provider's current-value balance at now.
func (p *CapitalPool) BalanceOf(provider uuid.UUID, now int64) int64 {
	raw, ok := p.positions[provider]
	if !ok || raw == 0 {
		return 0
	}
	position := ledger.ScaledBalance{Raw: raw, Scale: p.total.Scale, LastUpdate: p.total.LastUpdate}
	return position.CurrentValue(p.InterestRate(), now)
}

// Deposit books provider capital into the pool and returns the provider's
// realized balance after the deposit.
func (p *CapitalPool) Deposit(provider uuid.UUID, amount, now int64) (int64, error) {
	if err := p.guardMutation("deposit"); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: deposit amount must be positive, got %d", ledger.ErrValidation, amount)
	}

	rawDelta, err := p.total.Add(amount, p.InterestRate(), now)
	if err != nil {
		return 0, fmt.Errorf("pool deposit: %w", err)
	}
	p.positions[provider] += rawDelta
	return p.BalanceOf(provider, now), nil
}

// Withdraw removes provider capital, clamped to the smaller of the
// provider's balance and the pool's withdrawable funds. Returns the
// amount actually withdrawn; zero is not an error.
func (p *CapitalPool) Withdraw(provider uuid.UUID, amount, now int64) (int64, error) {
	if err := p.guardMutation("withdraw"); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: withdraw amount must be positive, got %d", ledger.ErrValidation, amount)
	}

	if balance := p.BalanceOf(provider, now); amount > balance {
		amount = balance
	}
	if withdrawable := p.TotalWithdrawable(now); amount > withdrawable {
		amount = withdrawable
	}
	if amount == 0 {
		return 0, nil
	}

	rawDelta, err := p.total.Sub(amount, p.InterestRate(), now)
	if err != nil {
		return 0, fmt.Errorf("pool withdraw: %w", err)
	}

	raw := p.positions[provider]
	if rawDelta > raw {
		// Rounding on a full exit may overshoot the mirrored position by
		// at most the negligible threshold; realign the pool total.
		if rawDelta-raw > fp.NegligibleAmount {
			return 0, fmt.Errorf("%w: withdraw raw %d exceeds position %d", ledger.ErrAnomalousState, rawDelta, raw)
		}
		p.total.Raw += rawDelta - raw
		rawDelta = raw
	}
	p.positions[provider] = raw - rawDelta
	if p.positions[provider] == 0 {
		delete(p.positions, provider)
	}
	return amount, nil
}

// LockReservation locks capital against a policy at its provider rate.
// Fails atomically when the lock exceeds the pool's unreserved funds.
// The pool scale is settled at the pre-lock rate first, so the new rate
// only accrues forward from now.
func (p *CapitalPool) LockReservation(amount, rate, now int64) error {
	if err := p.guardMutation("lock reservation"); err != nil {
		return err
	}
	if available := p.reservation.FundsAvailable(p.TotalSupply(now)); amount > available {
		return fmt.Errorf("%w: reservation %d exceeds available funds %d", ledger.ErrInsufficientCapital, amount, available)
	}
	p.total.UpdateScale(p.InterestRate(), now)
	return p.reservation.Add(amount, rate)
}

// UnlockReservation releases a previously locked reservation. Interest
// accrued up to now is settled into the scale before the rate drops.
func (p *CapitalPool) UnlockReservation(amount, rate, now int64) error {
	if err := p.guardMutation("unlock reservation"); err != nil {
		return err
	}
	p.total.UpdateScale(p.InterestRate(), now)
	return p.reservation.Sub(amount, rate)
}

// LockedReservation returns the aggregate locked amount.
func (p *CapitalPool) LockedReservation() int64 {
	return p.reservation.Locked
}

// BlendedReservationRate returns the amount-weighted rate on locked capital.
func (p *CapitalPool) BlendedReservationRate() int64 {
	return p.reservation.BlendedRate
}

// TotalWithdrawable returns the unreserved supply haircut by the
// liquidity requirement, so it is always <= the raw available funds.
func (p *CapitalPool) TotalWithdrawable(now int64) int64 {
	available := p.reservation.FundsAvailable(p.TotalSupply(now))
	if available == 0 || p.liquidityRequirement <= fp.RateConfig.Scale {
		return available
	}
	return fp.MulDiv(available, fp.RateConfig.Scale, p.liquidityRequirement, fp.RoundDown)
}

// RecordEarnings books an external gain or loss. The scale is synced to
// now first so the adjustment lands at the right point in time.
func (p *CapitalPool) RecordEarnings(delta int64, positive bool, now int64) error {
	if err := p.guardMutation("record earnings"); err != nil {
		return err
	}
	return p.recordEarnings(delta, positive, now)
}

func (p *CapitalPool) recordEarnings(delta int64, positive bool, now int64) error {
	if delta < 0 {
		return fmt.Errorf("%w: earnings delta must be non-negative, got %d", ledger.ErrValidation, delta)
	}
	if delta == 0 {
		return nil
	}

	rate := p.InterestRate()
	p.total.UpdateScale(rate, now)
	if err := p.total.DiscreteChange(delta, positive, rate, now); err != nil {
		return fmt.Errorf("record earnings: %w", err)
	}
	return nil
}

// LendCapacity returns how much the loan facility could extend at now.
// extraUnlocked is reservation capital about to be released in the same
// atomic operation, counted as already available. The release is applied
// before the zero floor: when losses push supply below total locked, the
// unlock first refills the deficit, so the floored sum would overstate
// what the pool can actually lend post-unlock.
func (p *CapitalPool) LendCapacity(extraUnlocked, now int64) int64 {
	supply := p.TotalSupply(now)
	capacity := supply - p.reservation.Locked + extraUnlocked
	if capacity > supply {
		capacity = supply
	}
	if capacity < 0 {
		return 0
	}
	return capacity
}

// Lend draws on the loan facility, clamped to the lend capacity. The
// drawn amount leaves the pool via a negative discrete change and starts
// accruing at the loan rate. Returns the amount actually lent.
func (p *CapitalPool) Lend(amount, now int64) (int64, error) {
	if err := p.guardMutation("lend"); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: lend amount must be positive, got %d", ledger.ErrValidation, amount)
	}

	if capacity := p.LendCapacity(0, now); amount > capacity {
		amount = capacity
	}
	if amount == 0 {
		return 0, nil
	}

	rate := p.InterestRate()
	p.total.UpdateScale(rate, now)
	if err := p.total.DiscreteChange(amount, false, rate, now); err != nil {
		return 0, fmt.Errorf("lend: %w", err)
	}
	if _, err := p.loan.Add(amount, p.loanRate, now); err != nil {
		return 0, fmt.Errorf("lend: book loan: %w", err)
	}
	return amount, nil
}

// Repay pays down the loan facility, clamped to the outstanding balance.
// The repaid amount returns to the pool via a positive discrete change.
// Returns the amount actually repaid.
func (p *CapitalPool) Repay(amount, now int64) (int64, error) {
	if err := p.guardMutation("repay"); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: repay amount must be positive, got %d", ledger.ErrValidation, amount)
	}

	if balance := p.LoanBalance(now); amount > balance {
		amount = balance
	}
	if amount == 0 {
		return 0, nil
	}

	if _, err := p.loan.Sub(amount, p.loanRate, now); err != nil {
		return 0, fmt.Errorf("repay: %w", err)
	}
	rate := p.InterestRate()
	p.total.UpdateScale(rate, now)
	if err := p.total.DiscreteChange(amount, true, rate, now); err != nil {
		return 0, fmt.Errorf("repay: restore pool: %w", err)
	}
	return amount, nil
}

// LoanBalance returns the outstanding loan value at now, including
// accrued interest.
func (p *CapitalPool) LoanBalance(now int64) int64 {
	return p.loan.CurrentValue(p.loanRate, now)
}

// ProviderCount returns the number of providers with open positions.
func (p *CapitalPool) ProviderCount() int {
	return len(p.positions)
}

// RawPositionsSum returns the sum of all provider raw positions. It must
// always equal the pool's raw total; the engine checks this after every
// applied event.
func (p *CapitalPool) RawPositionsSum() int64 {
	var sum int64
	for _, raw := range p.positions {
		sum += raw
	}
	return sum
}

// RawTotal returns the pool's raw total for invariant checks.
func (p *CapitalPool) RawTotal() int64 {
	return p.total.Raw
}

// RawPosition returns a provider's raw units, zero if none.
func (p *CapitalPool) RawPosition(provider uuid.UUID) int64 {
	return p.positions[provider]
}
