package ledger

import (
	"github.com/google/uuid"
)

// JournalGenerator creates balanced journal batches from processed
// operations. The engine computes the amounts (premium split, claim
// funding cascade); the generator only lays them out as balanced entries.
type JournalGenerator struct {
	sequence int64
}

func NewJournalGenerator(startSequence int64) *JournalGenerator {
	return &JournalGenerator{sequence: startSequence}
}

// SetSequence resets the generator sequence (snapshot restore)
func (jg *JournalGenerator) SetSequence(seq int64) {
	jg.sequence = seq
}

func (jg *JournalGenerator) newBatch(eventRef string, timestamp int64) *Batch {
	return &Batch{
		BatchID:   uuid.New(),
		EventRef:  eventRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 4),
	}
}

func (jg *JournalGenerator) addEntry(b *Batch, debit, credit AccountKey, assetID AssetID, amount int64, jt JournalType) {
	if amount <= 0 {
		return
	}
	b.Journals = append(b.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       b.BatchID,
		EventRef:      b.EventRef,
		Sequence:      b.Sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		AssetID:       assetID,
		Amount:        amount,
		JournalType:   jt,
		Timestamp:     b.Timestamp,
	})
}

// GenerateDeposit books a provider deposit.
// Moves funds: external:deposits → provider:capital
func (jg *JournalGenerator) GenerateDeposit(
	depositID, providerID uuid.UUID,
	amount int64,
	assetID AssetID,
	timestamp int64,
) *Batch {
	batch := jg.newBatch(depositID.String(), timestamp)
	jg.addEntry(batch,
		NewProviderAccountKey(providerID, SubTypeCapital, assetID),
		NewExternalAccountKey(SubTypeExternalDeposits, assetID),
		assetID, amount, JournalTypeDeposit)
	jg.sequence++
	return batch
}

// GenerateWithdrawal books a realized (possibly clamped) withdrawal.
// Moves funds: provider:capital → external:withdrawals
func (jg *JournalGenerator) GenerateWithdrawal(
	withdrawalID, providerID uuid.UUID,
	withdrawn int64,
	assetID AssetID,
	timestamp int64,
) *Batch {
	batch := jg.newBatch(withdrawalID.String(), timestamp)
	jg.addEntry(batch,
		NewExternalAccountKey(SubTypeExternalWithdrawals, assetID),
		NewProviderAccountKey(providerID, SubTypeCapital, assetID),
		assetID, withdrawn, JournalTypeWithdrawal)
	jg.sequence++
	return batch
}

// GeneratePolicyPremium books the incoming premium split across the pure
// premium, protocol fee, originator fee, and capital-provider accounts.
// The four legs sum to the full premium.
func (jg *JournalGenerator) GeneratePolicyPremium(
	policyID uuid.UUID,
	purePremium, protocolFee, originatorFee, providerReturn int64,
	assetID AssetID,
	timestamp int64,
) *Batch {
	batch := jg.newBatch(policyID.String(), timestamp)
	external := NewExternalAccountKey(SubTypeExternalPremiums, assetID)

	jg.addEntry(batch, NewSystemAccountKey(SubTypePremiumsActive, assetID), external,
		assetID, purePremium, JournalTypePremiumPure)
	jg.addEntry(batch, NewSystemAccountKey(SubTypeProtocolFees, assetID), external,
		assetID, protocolFee, JournalTypePremiumProtocolFee)
	jg.addEntry(batch, NewSystemAccountKey(SubTypeOriginatorFees, assetID), external,
		assetID, originatorFee, JournalTypePremiumOriginatorFee)
	jg.addEntry(batch, NewSystemAccountKey(SubTypeProviderReturn, assetID), external,
		assetID, providerReturn, JournalTypePremiumProviderReturn)

	jg.sequence++
	return batch
}

// GenerateClaim books a claim payout funded by the waterfall cascade:
// active premium (including the borrowed-against portion), won premium, and
// the capital pool loan. wonBooked is the surplus folded into won premium
// when the pure premium exceeded the payout.
func (jg *JournalGenerator) GenerateClaim(
	policyID uuid.UUID,
	fromActive, fromWon, fromPool, wonBooked int64,
	assetID AssetID,
	timestamp int64,
) *Batch {
	batch := jg.newBatch(policyID.String(), timestamp)
	claims := NewExternalAccountKey(SubTypeExternalClaims, assetID)

	jg.addEntry(batch, claims, NewSystemAccountKey(SubTypePremiumsActive, assetID),
		assetID, fromActive, JournalTypeClaimFromActive)
	jg.addEntry(batch, claims, NewSystemAccountKey(SubTypePremiumsWon, assetID),
		assetID, fromWon, JournalTypeClaimFromWon)
	jg.addEntry(batch, claims, NewSystemAccountKey(SubTypePoolCapital, assetID),
		assetID, fromPool, JournalTypeClaimFromLoan)
	jg.addEntry(batch, NewSystemAccountKey(SubTypePremiumsWon, assetID),
		NewSystemAccountKey(SubTypePremiumsActive, assetID),
		assetID, wonBooked, JournalTypePremiumWon)

	jg.sequence++
	return batch
}

// GenerateExpiration books the release of pure premium at policy expiry:
// loan repayment first, remainder into won premium.
func (jg *JournalGenerator) GenerateExpiration(
	policyID uuid.UUID,
	loanRepaid, wonBooked int64,
	assetID AssetID,
	timestamp int64,
) *Batch {
	batch := jg.newBatch(policyID.String(), timestamp)
	active := NewSystemAccountKey(SubTypePremiumsActive, assetID)

	jg.addEntry(batch, NewSystemAccountKey(SubTypePoolCapital, assetID), active,
		assetID, loanRepaid, JournalTypeLoanRepay)
	jg.addEntry(batch, NewSystemAccountKey(SubTypePremiumsWon, assetID), active,
		assetID, wonBooked, JournalTypePremiumWon)

	jg.sequence++
	return batch
}

// GenerateEmpty produces a journal-less batch for state-only events that
// still need an envelope in the event log.
func (jg *JournalGenerator) GenerateEmpty(eventRef string, timestamp int64) *Batch {
	batch := jg.newBatch(eventRef, timestamp)
	jg.sequence++
	return batch
}

// GenerateEarnings books a yield-strategy gain or loss against the pool.
func (jg *JournalGenerator) GenerateEarnings(
	reportID uuid.UUID,
	delta int64,
	positive bool,
	assetID AssetID,
	timestamp int64,
) *Batch {
	batch := jg.newBatch(reportID.String(), timestamp)
	pool := NewSystemAccountKey(SubTypePoolCapital, assetID)
	yield := NewExternalAccountKey(SubTypeExternalYield, assetID)

	if positive {
		jg.addEntry(batch, pool, yield, assetID, delta, JournalTypeEarningsGain)
	} else {
		jg.addEntry(batch, yield, pool, assetID, delta, JournalTypeEarningsLoss)
	}

	jg.sequence++
	return batch
}
