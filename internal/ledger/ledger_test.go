package ledger_test

import (
	"testing"

	"PoolLedger/internal/ledger"

	"github.com/google/uuid"
)

// ============================================================================
// Test: AccountKey
// ============================================================================

func TestAccountKey_ProviderPath(t *testing.T) {
	providerID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assetID, _ := ledger.GetAssetID("USDC")
	key := ledger.NewProviderAccountKey(providerID, ledger.SubTypeCapital, assetID)

	path := key.AccountPath()
	expected := "provider:550e8400-e29b-41d4-a716-446655440000:capital:USDC"
	if path != expected {
		t.Errorf("got %q, want %q", path, expected)
	}
}

func TestAccountKey_SystemPath(t *testing.T) {
	assetID, _ := ledger.GetAssetID("USDC")
	key := ledger.NewSystemAccountKey(ledger.SubTypePremiumsActive, assetID)

	path := key.AccountPath()
	if path != "system:premiums_active:USDC" {
		t.Errorf("got %q, want %q", path, "system:premiums_active:USDC")
	}
}

func TestAccountKey_ExternalPath(t *testing.T) {
	assetID, _ := ledger.GetAssetID("USDC")
	key := ledger.NewExternalAccountKey(ledger.SubTypeExternalClaims, assetID)

	path := key.AccountPath()
	if path != "external:claims:USDC" {
		t.Errorf("got %q, want %q", path, "external:claims:USDC")
	}
}

func TestGetAssetID_Known(t *testing.T) {
	id, ok := ledger.GetAssetID("USDC")
	if !ok {
		t.Fatal("USDC should be a known asset")
	}
	name, ok := ledger.GetAssetName(id)
	if !ok || name != "USDC" {
		t.Errorf("round trip failed: got %q", name)
	}
}

func TestGetAssetID_Unknown(t *testing.T) {
	if _, ok := ledger.GetAssetID("DOGE"); ok {
		t.Error("DOGE should not be a known asset")
	}
}

// ============================================================================
// Test: Batch validation & zero-sum tracking
// ============================================================================

func TestBatch_ValidateRejectsEmpty(t *testing.T) {
	batch := &ledger.Batch{BatchID: uuid.New()}
	if err := batch.Validate(); err == nil {
		t.Error("empty batch should fail validation")
	}
}

func TestJournalGenerator_DepositBalanced(t *testing.T) {
	assetID, _ := ledger.GetAssetID("USDC")
	jg := ledger.NewJournalGenerator(0)
	tracker := ledger.NewBalanceTracker()

	batch := jg.GenerateDeposit(uuid.New(), uuid.New(), 1_000_000_000, assetID, 1000)
	if err := tracker.ApplyBatch(batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	totals := tracker.ComputeGlobalBalance()
	if totals[assetID] != 0 {
		t.Errorf("global balance non-zero after deposit: %d", totals[assetID])
	}
}

func TestJournalGenerator_PremiumSplitSumsToPremium(t *testing.T) {
	assetID, _ := ledger.GetAssetID("USDC")
	jg := ledger.NewJournalGenerator(0)
	tracker := ledger.NewBalanceTracker()

	// 50 pure + 10 protocol + 15 originator + 25 provider = 100 premium
	batch := jg.GeneratePolicyPremium(uuid.New(),
		50_000_000, 10_000_000, 15_000_000, 25_000_000, assetID, 1000)

	if err := tracker.ApplyBatch(batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	premiumsIn := -tracker.GetBalance(ledger.NewExternalAccountKey(ledger.SubTypeExternalPremiums, assetID))
	if premiumsIn != 100_000_000 {
		t.Errorf("external premiums leg = %d, want %d", premiumsIn, int64(100_000_000))
	}

	active := tracker.GetBalance(ledger.NewSystemAccountKey(ledger.SubTypePremiumsActive, assetID))
	if active != 50_000_000 {
		t.Errorf("premiums_active = %d, want %d", active, int64(50_000_000))
	}
}

func TestJournalGenerator_ClaimCascadeZeroSum(t *testing.T) {
	assetID, _ := ledger.GetAssetID("USDC")
	jg := ledger.NewJournalGenerator(0)
	tracker := ledger.NewBalanceTracker()

	// Claim of 80 funded by 50 active + 20 won + 10 pool loan
	batch := jg.GenerateClaim(uuid.New(), 50_000_000, 20_000_000, 10_000_000, 0, assetID, 1000)
	if err := tracker.ApplyBatch(batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	claims := tracker.GetBalance(ledger.NewExternalAccountKey(ledger.SubTypeExternalClaims, assetID))
	if claims != 80_000_000 {
		t.Errorf("claims paid = %d, want %d", claims, int64(80_000_000))
	}

	validator := ledger.NewInvariantValidator(tracker)
	if err := validator.ValidateGlobalBalance(); err != nil {
		t.Errorf("zero-sum violated: %v", err)
	}
}
