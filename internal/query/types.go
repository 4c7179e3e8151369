package query

import "github.com/google/uuid"

// PoolStateResponse is the pool-level view for API queries.
type PoolStateResponse struct {
	TotalSupply       int64 `json:"total_supply"`
	LockedReserve     int64 `json:"locked_reserve"`
	TotalWithdrawable int64 `json:"total_withdrawable"`
	LoanBalance       int64 `json:"loan_balance"`
	InvestmentValue   int64 `json:"investment_value"`
	ProviderCount     int64 `json:"provider_count"`
	AsOfSequence      int64 `json:"as_of_sequence"` // last applied event sequence
}

// PremiumsResponse is the premium waterfall view for API queries.
type PremiumsResponse struct {
	PurePremiums       int64 `json:"pure_premiums"` // active + won - borrowed
	Active             int64 `json:"active"`
	Won                int64 `json:"won"`
	BorrowedFromActive int64 `json:"borrowed_from_active"`
	AsOfSequence       int64 `json:"as_of_sequence"`
}

// ProviderBalanceResponse represents a capital provider's position.
type ProviderBalanceResponse struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Asset      string    `json:"asset"`

	// Derived at query time from raw units and the projected pool state
	Balance  int64 `json:"balance"`
	RawUnits int64 `json:"raw_units"`

	// Ledger cash flows (from journal entries; excludes accrued earnings)
	NetDeposited int64 `json:"net_deposited"`

	AsOfSequence int64 `json:"as_of_sequence"`
}

// PolicyResponse represents a priced policy for API queries.
type PolicyResponse struct {
	PolicyID           string `json:"policy_id"`
	Payout             int64  `json:"payout"`
	Premium            int64  `json:"premium"`
	PurePremium        int64  `json:"pure_premium"`
	ReservedCapital    int64  `json:"reserved_capital"`
	OriginatorCoverage int64  `json:"originator_coverage"`
	ProviderRate       int64  `json:"provider_rate"`
	StartTime          int64  `json:"start_time"`
	Expiration         int64  `json:"expiration"`
	Status             string `json:"status"` // active | resolved | expired
	ClosedAt           *int64 `json:"closed_at,omitempty"`
	AsOfSequence       int64  `json:"as_of_sequence"`
}

// JournalHistoryEntry represents a journal entry for API queries.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	EventRef      string `json:"event_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	AssetID       uint16 `json:"asset_id"`
	Amount        int64  `json:"amount"`
	JournalType   string `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy        bool              `json:"is_healthy"`
	HashChainBreaks  []int64           `json:"hash_chain_breaks,omitempty"`
	UnbalancedAssets []UnbalancedAsset `json:"unbalanced_assets,omitempty"`
}

// UnbalancedAsset represents an asset with non-zero global balance sum.
type UnbalancedAsset struct {
	AssetID   uint16 `json:"asset_id"`
	Imbalance int64  `json:"imbalance"`
}
