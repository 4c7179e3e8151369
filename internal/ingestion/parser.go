package ingestion

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"PoolLedger/internal/event"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string) into a
// typed event.Event. The ingestion shell validates, parses, and converts
// raw events before sending them to the accounting engine.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "CapitalDeposited":
		return parseCapitalDeposited(raw.Data)
	case "WithdrawalRequested":
		return parseWithdrawalRequested(raw.Data)
	case "PolicyCreated":
		return parsePolicyCreated(raw.Data)
	case "PolicyResolved":
		return parsePolicyResolved(raw.Data)
	case "PolicyExpired":
		return parsePolicyExpired(raw.Data)
	case "EarningsReported":
		return parseEarningsReported(raw.Data)
	case "RiskParamUpdate":
		return parseRiskParamUpdate(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers.

type depositJSON struct {
	DepositID   string `json:"deposit_id"`
	ProviderID  string `json:"provider_id"`
	Asset       string `json:"asset"`
	Amount      int64  `json:"amount"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseCapitalDeposited(data []byte) (*event.CapitalDeposited, error) {
	var j depositJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CapitalDeposited: %w", err)
	}
	depositID, err := uuid.Parse(j.DepositID)
	if err != nil {
		return nil, fmt.Errorf("parse deposit_id: %w", err)
	}
	providerID, err := uuid.Parse(j.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("parse provider_id: %w", err)
	}
	if j.Amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive, got %d", j.Amount)
	}
	return &event.CapitalDeposited{
		DepositID: depositID,
		Provider:  providerID,
		Asset:     j.Asset,
		Amount:    j.Amount,
		Sequence:  j.Sequence,
		Timestamp: j.TimestampUs,
	}, nil
}

type withdrawalJSON struct {
	WithdrawalID string `json:"withdrawal_id"`
	ProviderID   string `json:"provider_id"`
	Asset        string `json:"asset"`
	Amount       int64  `json:"amount"`
	Sequence     int64  `json:"sequence"`
	TimestampUs  int64  `json:"timestamp_us"`
}

func parseWithdrawalRequested(data []byte) (*event.WithdrawalRequested, error) {
	var j withdrawalJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse WithdrawalRequested: %w", err)
	}
	wdID, err := uuid.Parse(j.WithdrawalID)
	if err != nil {
		return nil, fmt.Errorf("parse withdrawal_id: %w", err)
	}
	providerID, err := uuid.Parse(j.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("parse provider_id: %w", err)
	}
	if j.Amount <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %d", j.Amount)
	}
	return &event.WithdrawalRequested{
		WithdrawalID: wdID,
		Provider:     providerID,
		Asset:        j.Asset,
		Amount:       j.Amount,
		Sequence:     j.Sequence,
		Timestamp:    j.TimestampUs,
	}, nil
}

type policyCreatedJSON struct {
	PolicyID     string `json:"policy_id"`
	Asset        string `json:"asset"`
	Payout       int64  `json:"payout"`
	Premium      int64  `json:"premium"`
	LossProb     int64  `json:"loss_prob"`
	StartTimeUs  int64  `json:"start_time_us"`
	ExpirationUs int64  `json:"expiration_us"`
	Sequence     int64  `json:"sequence"`
	TimestampUs  int64  `json:"timestamp_us"`
}

func parsePolicyCreated(data []byte) (*event.PolicyCreated, error) {
	var j policyCreatedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PolicyCreated: %w", err)
	}
	policyID, err := uuid.Parse(j.PolicyID)
	if err != nil {
		return nil, fmt.Errorf("parse policy_id: %w", err)
	}
	if j.Payout <= 0 || j.Premium <= 0 {
		return nil, fmt.Errorf("payout and premium must be positive, got payout=%d premium=%d", j.Payout, j.Premium)
	}
	if j.ExpirationUs <= j.StartTimeUs {
		return nil, fmt.Errorf("expiration %d not after start %d", j.ExpirationUs, j.StartTimeUs)
	}
	return &event.PolicyCreated{
		Policy:     policyID,
		Asset:      j.Asset,
		Payout:     j.Payout,
		Premium:    j.Premium,
		LossProb:   j.LossProb,
		StartTime:  j.StartTimeUs,
		Expiration: j.ExpirationUs,
		Sequence:   j.Sequence,
		Timestamp:  j.TimestampUs,
	}, nil
}

type policyResolvedJSON struct {
	PolicyID    string `json:"policy_id"`
	Payout      int64  `json:"payout"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parsePolicyResolved(data []byte) (*event.PolicyResolved, error) {
	var j policyResolvedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PolicyResolved: %w", err)
	}
	policyID, err := uuid.Parse(j.PolicyID)
	if err != nil {
		return nil, fmt.Errorf("parse policy_id: %w", err)
	}
	return &event.PolicyResolved{
		Policy:    policyID,
		Payout:    j.Payout,
		Sequence:  j.Sequence,
		Timestamp: j.TimestampUs,
	}, nil
}

type policyExpiredJSON struct {
	PolicyID    string `json:"policy_id"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parsePolicyExpired(data []byte) (*event.PolicyExpired, error) {
	var j policyExpiredJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PolicyExpired: %w", err)
	}
	policyID, err := uuid.Parse(j.PolicyID)
	if err != nil {
		return nil, fmt.Errorf("parse policy_id: %w", err)
	}
	return &event.PolicyExpired{
		Policy:    policyID,
		Sequence:  j.Sequence,
		Timestamp: j.TimestampUs,
	}, nil
}

type earningsJSON struct {
	ReportID    string `json:"report_id"`
	Asset       string `json:"asset"`
	Delta       int64  `json:"delta"`
	Positive    bool   `json:"positive"`
	Sequence    int64  `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseEarningsReported(data []byte) (*event.EarningsReported, error) {
	var j earningsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse EarningsReported: %w", err)
	}
	reportID, err := uuid.Parse(j.ReportID)
	if err != nil {
		return nil, fmt.Errorf("parse report_id: %w", err)
	}
	if j.Delta < 0 {
		return nil, fmt.Errorf("earnings delta must be non-negative, got %d", j.Delta)
	}
	return &event.EarningsReported{
		ReportID:  reportID,
		Asset:     j.Asset,
		Delta:     j.Delta,
		Positive:  j.Positive,
		Sequence:  j.Sequence,
		Timestamp: j.TimestampUs,
	}, nil
}

type riskParamUpdateJSON struct {
	Margin                int64 `json:"margin"`
	ReservationRatio      int64 `json:"reservation_ratio"`
	ProtocolFeeRate       int64 `json:"protocol_fee_rate"`
	OriginatorFeeRate     int64 `json:"originator_fee_rate"`
	ProviderReturnRate    int64 `json:"provider_return_rate"`
	OriginatorCoveragePct int64 `json:"originator_coverage_pct"`
	LiquidityRequirement  int64 `json:"liquidity_requirement"`
	LoanInterestRate      int64 `json:"loan_interest_rate"`
	EffectiveSeq          int64 `json:"effective_seq"`
	Sequence              int64 `json:"sequence"`
	TimestampUs           int64 `json:"timestamp_us"`
}

func parseRiskParamUpdate(data []byte) (*event.RiskParamUpdate, error) {
	var j riskParamUpdateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RiskParamUpdate: %w", err)
	}
	return &event.RiskParamUpdate{
		Margin:                j.Margin,
		ReservationRatio:      j.ReservationRatio,
		ProtocolFeeRate:       j.ProtocolFeeRate,
		OriginatorFeeRate:     j.OriginatorFeeRate,
		ProviderReturnRate:    j.ProviderReturnRate,
		OriginatorCoveragePct: j.OriginatorCoveragePct,
		LiquidityRequirement:  j.LiquidityRequirement,
		LoanInterestRate:      j.LoanInterestRate,
		EffectiveSeq:          j.EffectiveSeq,
		Sequence:              j.Sequence,
		Timestamp:             j.TimestampUs,
	}, nil
}
