package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// InvariantValidator checks journal invariants
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies the batch is balanced and well-formed
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidateProviderCapitalNonNegative checks a provider's journal-derived
// contributed capital never went negative
func (v *InvariantValidator) ValidateProviderCapitalNonNegative(providerID uuid.UUID, assetID AssetID) error {
	key := NewProviderAccountKey(providerID, SubTypeCapital, assetID)
	return v.tracker.ValidateNonNegative(key)
}

// ValidateGlobalBalance verifies the journal is zero-sum per asset
func (v *InvariantValidator) ValidateGlobalBalance() error {
	totals := v.tracker.ComputeGlobalBalance()

	for assetID, total := range totals {
		if total != 0 {
			assetName, _ := GetAssetName(assetID)
			return fmt.Errorf("global balance for %s is non-zero: %d", assetName, total)
		}
	}

	return nil
}
