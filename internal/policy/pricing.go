// Package policy prices policies and splits their premiums.
//
// PriceAndSplit is a pure function: given a validated underwriting tuple
// (payout, premium, loss probability, parameter set, coverage window) it
// derives the pure premium, the required capital reservation, and the
// premium split, producing an immutable Record. Records are held in a
// Store between underwriting and resolution and discarded afterwards.
package policy

import (
	"fmt"

	"PoolLedger/internal/fixedpoint"
	"PoolLedger/internal/ledger"

	"github.com/google/uuid"
)

// Parameters is the risk parameter set applied to every priced policy.
// All rates use RateConfig precision (1e9). OriginatorCoveragePct,
// ProtocolFeeRate, OriginatorFeeRate and ReservationRatio are fractions
// in [0, 1]; Margin is a multiplier and may exceed 1; ProviderReturnRate
// is the minimum acceptable implied annualized rate for capital providers;
// LiquidityRequirement is >= 1 and haircuts withdrawable funds;
// LoanInterestRate accrues on the premium ledger's loan from the pool.
type Parameters struct {
	Margin                int64
	ReservationRatio      int64
	ProtocolFeeRate       int64
	OriginatorFeeRate     int64
	ProviderReturnRate    int64
	OriginatorCoveragePct int64
	LiquidityRequirement  int64
	LoanInterestRate      int64
}

// Validate checks parameter ranges before the set is adopted.
func (p Parameters) Validate() error {
	rateOne := fixedpoint.RateConfig.Scale
	if p.Margin <= 0 {
		return fmt.Errorf("%w: margin must be positive, got %d", ledger.ErrValidation, p.Margin)
	}
	for _, f := range []struct {
		name  string
		value int64
	}{
		{"reservation_ratio", p.ReservationRatio},
		{"protocol_fee_rate", p.ProtocolFeeRate},
		{"originator_fee_rate", p.OriginatorFeeRate},
		{"originator_coverage_pct", p.OriginatorCoveragePct},
	} {
		if f.value < 0 || f.value > rateOne {
			return fmt.Errorf("%w: %s out of [0,1]: %d", ledger.ErrValidation, f.name, f.value)
		}
	}
	if p.ProtocolFeeRate+p.OriginatorFeeRate > rateOne {
		return fmt.Errorf("%w: protocol and originator fees exceed 1.0 combined", ledger.ErrValidation)
	}
	if p.ProviderReturnRate < 0 {
		return fmt.Errorf("%w: provider_return_rate must be non-negative", ledger.ErrValidation)
	}
	if p.LiquidityRequirement < rateOne {
		return fmt.Errorf("%w: liquidity_requirement must be >= 1.0, got %d", ledger.ErrValidation, p.LiquidityRequirement)
	}
	if p.LoanInterestRate < 0 {
		return fmt.Errorf("%w: loan_interest_rate must be non-negative", ledger.ErrValidation)
	}
	return nil
}

// Split is the destination breakdown of a policy premium. The identity
// Premium == ForRiskPool + ForProtocolFee + ForOriginatorFee +
// ForCapitalProviders holds exactly; rounding residue is folded into the
// capital-provider remainder.
type Split struct {
	ForRiskPool         int64 `json:"for_risk_pool"`
	ForProtocolFee      int64 `json:"for_protocol_fee"`
	ForOriginatorFee    int64 `json:"for_originator_fee"`
	ForCapitalProviders int64 `json:"for_capital_providers"`
}

// Total returns the sum of all split legs.
func (s Split) Total() int64 {
	return s.ForRiskPool + s.ForProtocolFee + s.ForOriginatorFee + s.ForCapitalProviders
}

// Record is the immutable pricing outcome for one policy. It is created
// once at underwriting, read at resolution or expiration, then discarded.
type Record struct {
	PolicyID           uuid.UUID `json:"policy_id"`
	Payout             int64     `json:"payout"`
	Premium            int64     `json:"premium"`
	LossProb           int64     `json:"loss_prob"`
	PurePremium        int64     `json:"pure_premium"`
	ReservedCapital    int64     `json:"reserved_capital"`
	OriginatorCoverage int64     `json:"originator_coverage"`
	StartTime          int64     `json:"start_time"`
	Expiration         int64     `json:"expiration"`
	ProviderRateValue  int64     `json:"provider_rate"`
	PremiumSplit       Split     `json:"premium_split"`
}

// ProviderRate returns the implied annualized rate earned by capital
// providers on the reserved capital over the coverage window. It feeds
// the reservation ledger's blended rate when the reservation is locked.
func (r *Record) ProviderRate() int64 {
	return r.ProviderRateValue
}

// Duration returns the coverage window length in microseconds.
func (r *Record) Duration() int64 {
	return r.Expiration - r.StartTime
}

// PriceAndSplit prices one policy. Amounts use AmountConfig precision,
// rates RateConfig precision, timestamps epoch microseconds.
//
// Computation order:
//
//	originatorCoverage = payout * originatorCoveragePct
//	poolPremium        = premium * (payout-originatorCoverage)/payout
//	purePremium        = (payout-originatorCoverage) * lossProb * margin
//	reservedCapital    = (payout - poolPremium - originatorCoverage) * reservationRatio
//	profitPremium      = poolPremium - purePremium, split into protocol fee,
//	                     originator fee, and the capital-provider remainder;
//	                     the originator's premium share joins the originator fee.
//
// Fails with ErrValidation when premium >= payout, any share turns
// negative, or the implied provider rate falls below ProviderReturnRate.
func PriceAndSplit(policyID uuid.UUID, payout, premium, lossProb int64, params Parameters, startTime, expiration int64) (*Record, error) {
	if payout <= 0 {
		return nil, fmt.Errorf("%w: payout must be positive, got %d", ledger.ErrValidation, payout)
	}
	if premium <= 0 {
		return nil, fmt.Errorf("%w: premium must be positive, got %d", ledger.ErrValidation, premium)
	}
	if premium >= payout {
		return nil, fmt.Errorf("%w: premium %d >= payout %d", ledger.ErrValidation, premium, payout)
	}
	if lossProb < 0 || lossProb > fixedpoint.RateConfig.Scale {
		return nil, fmt.Errorf("%w: loss probability out of [0,1]: %d", ledger.ErrValidation, lossProb)
	}
	duration := expiration - startTime
	if duration <= 0 {
		return nil, fmt.Errorf("%w: expiration %d not after start %d", ledger.ErrValidation, expiration, startTime)
	}

	originatorCoverage := fixedpoint.MulByRate(payout, params.OriginatorCoveragePct, fixedpoint.RoundHalfEven)
	coveredPayout := payout - originatorCoverage

	poolPremium := fixedpoint.MulDiv(premium, coveredPayout, payout, fixedpoint.RoundHalfEven)
	originatorPremium := premium - poolPremium

	expectedLoss := fixedpoint.MulByRate(coveredPayout, lossProb, fixedpoint.RoundHalfEven)
	purePremium := fixedpoint.MulByRate(expectedLoss, params.Margin, fixedpoint.RoundHalfEven)

	reservable := payout - poolPremium - originatorCoverage
	if reservable < 0 {
		return nil, fmt.Errorf("%w: negative reservable capital %d", ledger.ErrValidation, reservable)
	}
	reservedCapital := fixedpoint.MulByRate(reservable, params.ReservationRatio, fixedpoint.RoundHalfEven)

	profitPremium := poolPremium - purePremium
	if profitPremium < 0 {
		return nil, fmt.Errorf("%w: pure premium %d exceeds pool premium share %d", ledger.ErrValidation, purePremium, poolPremium)
	}
	protocolFee := fixedpoint.MulByRate(profitPremium, params.ProtocolFeeRate, fixedpoint.RoundHalfEven)
	originatorFee := fixedpoint.MulByRate(profitPremium, params.OriginatorFeeRate, fixedpoint.RoundHalfEven)
	providerShare := profitPremium - protocolFee - originatorFee
	if providerShare < 0 {
		return nil, fmt.Errorf("%w: negative capital-provider share %d", ledger.ErrValidation, providerShare)
	}

	var providerRate int64
	if reservedCapital > 0 {
		providerRate = fixedpoint.AnnualizedRate(providerShare, reservedCapital, duration)
		if providerRate < params.ProviderReturnRate {
			return nil, fmt.Errorf("%w: implied provider rate %d below floor %d", ledger.ErrValidation, providerRate, params.ProviderReturnRate)
		}
	}

	return &Record{
		PolicyID:           policyID,
		Payout:             payout,
		Premium:            premium,
		LossProb:           lossProb,
		PurePremium:        purePremium,
		ReservedCapital:    reservedCapital,
		OriginatorCoverage: originatorCoverage,
		StartTime:          startTime,
		Expiration:         expiration,
		ProviderRateValue:  providerRate,
		PremiumSplit: Split{
			ForRiskPool:         purePremium,
			ForProtocolFee:      protocolFee,
			ForOriginatorFee:    originatorFee + originatorPremium,
			ForCapitalProviders: providerShare,
		},
	}, nil
}
