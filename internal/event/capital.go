package event

import "github.com/google/uuid"

// CapitalDeposited books provider capital into the pool. The json tags
// match the upstream wire format so logged payloads replay through the
// same parser that handles live traffic.
type CapitalDeposited struct {
	DepositID uuid.UUID `json:"deposit_id"`
	Provider  uuid.UUID `json:"provider_id"`
	Asset     string    `json:"asset"`
	Amount    int64     `json:"amount"` // Fixed-point, amount precision
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp_us"` // Epoch microseconds (versioned input)
}

func (d *CapitalDeposited) IdempotencyKey() string {
	return d.DepositID.String()
}

func (d *CapitalDeposited) EventType() EventType {
	return EventTypeCapitalDeposited
}

func (d *CapitalDeposited) PolicyID() *string {
	return nil // Pool-level event
}

func (d *CapitalDeposited) SourceSequence() int64 {
	return d.Sequence
}

// WithdrawalRequested removes provider capital, best-effort: the applied
// amount is clamped to the provider's balance and the pool's withdrawable
// funds.
type WithdrawalRequested struct {
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	Provider     uuid.UUID `json:"provider_id"`
	Asset        string    `json:"asset"`
	Amount       int64     `json:"amount"`
	Sequence     int64     `json:"sequence"`
	Timestamp    int64     `json:"timestamp_us"`
}

func (w *WithdrawalRequested) IdempotencyKey() string {
	return w.WithdrawalID.String()
}

func (w *WithdrawalRequested) EventType() EventType {
	return EventTypeWithdrawalRequested
}

func (w *WithdrawalRequested) PolicyID() *string {
	return nil
}

func (w *WithdrawalRequested) SourceSequence() int64 {
	return w.Sequence
}
