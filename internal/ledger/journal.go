package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeDeposit JournalType = iota
	JournalTypeWithdrawal
	JournalTypePremiumPure
	JournalTypePremiumProtocolFee
	JournalTypePremiumOriginatorFee
	JournalTypePremiumProviderReturn
	JournalTypeClaimFromActive
	JournalTypeClaimFromWon
	JournalTypeClaimFromLoan
	JournalTypePremiumWon
	JournalTypeLoanRepay
	JournalTypeEarningsGain
	JournalTypeEarningsLoss
	JournalTypeAdjustment
)

func (jt JournalType) String() string {
	switch jt {
	case JournalTypeDeposit:
		return "deposit"
	case JournalTypeWithdrawal:
		return "withdrawal"
	case JournalTypePremiumPure:
		return "premium_pure"
	case JournalTypePremiumProtocolFee:
		return "premium_protocol_fee"
	case JournalTypePremiumOriginatorFee:
		return "premium_originator_fee"
	case JournalTypePremiumProviderReturn:
		return "premium_provider_return"
	case JournalTypeClaimFromActive:
		return "claim_from_active"
	case JournalTypeClaimFromWon:
		return "claim_from_won"
	case JournalTypeClaimFromLoan:
		return "claim_from_loan"
	case JournalTypePremiumWon:
		return "premium_won"
	case JournalTypeLoanRepay:
		return "loan_repay"
	case JournalTypeEarningsGain:
		return "earnings_gain"
	case JournalTypeEarningsLoss:
		return "earnings_loss"
	case JournalTypeAdjustment:
		return "adjustment"
	default:
		return "unknown"
	}
}

// Journal represents a single double-entry journal entry. Journals record
// cash flows only; scale accrual and reservation locks are derived state,
// exposed through the pool-state projection instead.
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups balanced entries
	EventRef      string      // Idempotency key of source event
	Sequence      int64       // Global event sequence
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	AssetID       AssetID     // Asset being transferred
	Amount        int64       // Fixed-point amount (ALWAYS positive)
	JournalType   JournalType // Entry type
	Timestamp     int64       // Versioned input timestamp (epoch microseconds)
}

// Batch represents a balanced set of journal entries
type Batch struct {
	BatchID   uuid.UUID
	EventRef  string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// Validate ensures the batch is well-formed. Each entry is a balanced
// transfer by construction (a single positive amount moves from credit
// account to debit account), so Σ debits == Σ credits holds per-entry.
// Multi-leg batches (e.g., a premium split) use multiple entries under one
// batch_id, each individually balanced.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}

		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}

		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}
