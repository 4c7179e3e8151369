package ledger_test

import (
	"strings"
	"testing"

	"PoolLedger/internal/ledger"
	"PoolLedger/internal/testutil"

	"github.com/google/uuid"
)

// The account-path format is a storage contract: snapshots and the journal
// store paths as strings, so any change to the rendering breaks restores.
// The golden file pins the format.
func TestAccountPathFormatGolden(t *testing.T) {
	providerID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	keys := []ledger.AccountKey{
		ledger.NewProviderAccountKey(providerID, ledger.SubTypeCapital, 1),
		ledger.NewSystemAccountKey(ledger.SubTypePoolCapital, 1),
		ledger.NewSystemAccountKey(ledger.SubTypePremiumsActive, 1),
		ledger.NewSystemAccountKey(ledger.SubTypePremiumsWon, 1),
		ledger.NewSystemAccountKey(ledger.SubTypeProtocolFees, 1),
		ledger.NewSystemAccountKey(ledger.SubTypeOriginatorFees, 2),
		ledger.NewSystemAccountKey(ledger.SubTypeProviderReturn, 1),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits, 1),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalWithdrawals, 1),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalPremiums, 1),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalClaims, 1),
		ledger.NewExternalAccountKey(ledger.SubTypeExternalYield, 3),
	}

	paths := make([]string, 0, len(keys))
	for _, k := range keys {
		path := k.AccountPath()
		paths = append(paths, path)

		if got := ledger.ParseAccountPath(path); got != k {
			t.Errorf("ParseAccountPath(%q) = %+v, want %+v", path, got, k)
		}
	}

	got := []byte(strings.Join(paths, "\n") + "\n")
	testutil.AssertGolden(t, "account_paths.golden", got)
}
