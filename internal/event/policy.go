package event

import (
	"fmt"

	"github.com/google/uuid"
)

// PolicyCreated carries the validated underwriting tuple. The core prices
// it, locks the reservation, splits the premium, and books the pure
// premium as active.
type PolicyCreated struct {
	Policy     uuid.UUID `json:"policy_id"`
	Asset      string    `json:"asset"`
	Payout     int64     `json:"payout"`        // Fixed-point, amount precision
	Premium    int64     `json:"premium"`
	LossProb   int64     `json:"loss_prob"`     // Rate precision, in [0, 1]
	StartTime  int64     `json:"start_time_us"` // Epoch microseconds
	Expiration int64     `json:"expiration_us"`
	Sequence   int64     `json:"sequence"`
	Timestamp  int64     `json:"timestamp_us"`
}

func (p *PolicyCreated) IdempotencyKey() string {
	return fmt.Sprintf("policy_created:%s", p.Policy)
}

func (p *PolicyCreated) EventType() EventType {
	return EventTypePolicyCreated
}

func (p *PolicyCreated) PolicyID() *string {
	s := p.Policy.String()
	return &s
}

func (p *PolicyCreated) SourceSequence() int64 {
	return p.Sequence
}

// PolicyResolved settles a policy with a claim: the reservation unlocks
// and the payout is funded through the premium waterfall.
type PolicyResolved struct {
	Policy    uuid.UUID `json:"policy_id"`
	Payout    int64     `json:"payout"` // Claimed amount, may differ from the insured payout
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp_us"`
}

func (p *PolicyResolved) IdempotencyKey() string {
	return fmt.Sprintf("policy_resolved:%s", p.Policy)
}

func (p *PolicyResolved) EventType() EventType {
	return EventTypePolicyResolved
}

func (p *PolicyResolved) PolicyID() *string {
	s := p.Policy.String()
	return &s
}

func (p *PolicyResolved) SourceSequence() int64 {
	return p.Sequence
}

// PolicyExpired releases a policy that ran out without a claim: the
// reservation unlocks and the pure premium is realized.
type PolicyExpired struct {
	Policy    uuid.UUID `json:"policy_id"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp_us"`
}

func (p *PolicyExpired) IdempotencyKey() string {
	return fmt.Sprintf("policy_expired:%s", p.Policy)
}

func (p *PolicyExpired) EventType() EventType {
	return EventTypePolicyExpired
}

func (p *PolicyExpired) PolicyID() *string {
	s := p.Policy.String()
	return &s
}

func (p *PolicyExpired) SourceSequence() int64 {
	return p.Sequence
}
