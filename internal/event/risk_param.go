package event

import (
	"fmt"
)

// RiskParamUpdate replaces the pricing parameter set. Applies to policies
// underwritten from EffectiveSeq onward; open policies keep the records
// they were priced with.
type RiskParamUpdate struct {
	Margin                int64 `json:"margin"` // Rate precision (1_000_000_000 = 1.0)
	ReservationRatio      int64 `json:"reservation_ratio"`
	ProtocolFeeRate       int64 `json:"protocol_fee_rate"`
	OriginatorFeeRate     int64 `json:"originator_fee_rate"`
	ProviderReturnRate    int64 `json:"provider_return_rate"`
	OriginatorCoveragePct int64 `json:"originator_coverage_pct"`
	LiquidityRequirement  int64 `json:"liquidity_requirement"`
	LoanInterestRate      int64 `json:"loan_interest_rate"`
	EffectiveSeq          int64 `json:"effective_seq"` // Sequence at which params take effect
	Sequence              int64 `json:"sequence"`      // Source sequence
	Timestamp             int64 `json:"timestamp_us"`  // Epoch microseconds (versioned input)
}

func (r *RiskParamUpdate) IdempotencyKey() string {
	return fmt.Sprintf("risk_param:%d", r.EffectiveSeq)
}

func (r *RiskParamUpdate) EventType() EventType {
	return EventTypeRiskParamUpdate
}

func (r *RiskParamUpdate) PolicyID() *string {
	return nil
}

func (r *RiskParamUpdate) SourceSequence() int64 {
	return r.Sequence
}
