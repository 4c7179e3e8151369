package event

import (
	"time"
)

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeCapitalDeposited
	EventTypeWithdrawalRequested
	EventTypePolicyCreated
	EventTypePolicyResolved
	EventTypePolicyExpired
	EventTypeEarningsReported
	EventTypeRiskParamUpdate
)

// EventEnvelope wraps every event in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Policy context (nullable for pool-level events)
	PolicyID *string

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded event-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// PolicyID returns the policy context (nil for pool-level events)
	PolicyID() *string

	// SourceSequence returns upstream ordering key
	SourceSequence() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypeCapitalDeposited:
		return "CapitalDeposited"
	case EventTypeWithdrawalRequested:
		return "WithdrawalRequested"
	case EventTypePolicyCreated:
		return "PolicyCreated"
	case EventTypePolicyResolved:
		return "PolicyResolved"
	case EventTypePolicyExpired:
		return "PolicyExpired"
	case EventTypeEarningsReported:
		return "EarningsReported"
	case EventTypeRiskParamUpdate:
		return "RiskParamUpdate"
	default:
		return "Unknown"
	}
}
