package event

import "github.com/google/uuid"

// EarningsReported books a realized gain or loss from the external yield
// venue since the last checkpoint. Reconciliation against the strategy
// happens outside the core so the event stream stays deterministic.
type EarningsReported struct {
	ReportID  uuid.UUID `json:"report_id"`
	Asset     string    `json:"asset"`
	Delta     int64     `json:"delta"` // Fixed-point, amount precision, non-negative
	Positive  bool      `json:"positive"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp_us"`
}

func (e *EarningsReported) IdempotencyKey() string {
	return e.ReportID.String()
}

func (e *EarningsReported) EventType() EventType {
	return EventTypeEarningsReported
}

func (e *EarningsReported) PolicyID() *string {
	return nil
}

func (e *EarningsReported) SourceSequence() int64 {
	return e.Sequence
}
