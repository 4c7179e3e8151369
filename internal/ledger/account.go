package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeProvider AccountScope = iota
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// Provider sub-types
	SubTypeCapital AccountSubType = iota

	// System sub-types
	SubTypePoolCapital    // pool-level cash effects (earnings, loan draws)
	SubTypePremiumsActive // pure premium backing active risk
	SubTypePremiumsWon    // pure premium released from resolved risk
	SubTypeProtocolFees   // protocol fee share of premium
	SubTypeOriginatorFees // originator fee + originator premium share
	SubTypeProviderReturn // capital-provider share of premium

	// External sub-types
	SubTypeExternalDeposits
	SubTypeExternalWithdrawals
	SubTypeExternalPremiums
	SubTypeExternalClaims
	SubTypeExternalYield
)

// AssetID maps asset strings to numeric IDs for performance
type AssetID uint16

// DefaultAssetID is the pool asset. Policies are priced in the pool
// asset, so records carry no asset of their own.
const DefaultAssetID AssetID = 1 // USDC

var (
	assetToID = map[string]AssetID{
		"USDC": 1,
		"USDT": 2,
		"DAI":  3,
	}
	idToAsset = map[AssetID]string{
		1: "USDC",
		2: "USDT",
		3: "DAI",
	}
)

func GetAssetID(asset string) (AssetID, bool) {
	id, ok := assetToID[asset]
	return id, ok
}

func GetAssetName(id AssetID) (string, bool) {
	name, ok := idToAsset[id]
	return name, ok
}

// AccountKey is the in-memory key for cash-flow tracking (20 bytes, cache-friendly)
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte // UUID for providers, zero for system/external accounts
	SubType  AccountSubType
	AssetID  AssetID
}

// NewProviderAccountKey creates a key for capital-provider accounts
func NewProviderAccountKey(providerID uuid.UUID, subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeProvider,
		EntityID: providerID,
		SubType:  subType,
		AssetID:  assetID,
	}
}

// NewSystemAccountKey creates a key for system accounts
func NewSystemAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeSystem,
		SubType: subType,
		AssetID: assetID,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
		AssetID: assetID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	assetName, _ := GetAssetName(k.AssetID)

	switch k.Scope {
	case AccountScopeProvider:
		pid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("provider:%s:%s:%s", pid.String(), k.subTypeName(), assetName)
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s:%s", k.subTypeName(), assetName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), assetName)
	}
	return "unknown"
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeCapital:
		return "capital"
	case SubTypePoolCapital:
		return "pool_capital"
	case SubTypePremiumsActive:
		return "premiums_active"
	case SubTypePremiumsWon:
		return "premiums_won"
	case SubTypeProtocolFees:
		return "protocol_fees"
	case SubTypeOriginatorFees:
		return "originator_fees"
	case SubTypeProviderReturn:
		return "provider_return"
	case SubTypeExternalDeposits:
		return "deposits"
	case SubTypeExternalWithdrawals:
		return "withdrawals"
	case SubTypeExternalPremiums:
		return "premiums"
	case SubTypeExternalClaims:
		return "claims"
	case SubTypeExternalYield:
		return "yield"
	default:
		return "unknown"
	}
}

var subTypeByName = map[string]AccountSubType{
	"capital":         SubTypeCapital,
	"pool_capital":    SubTypePoolCapital,
	"premiums_active": SubTypePremiumsActive,
	"premiums_won":    SubTypePremiumsWon,
	"protocol_fees":   SubTypeProtocolFees,
	"originator_fees": SubTypeOriginatorFees,
	"provider_return": SubTypeProviderReturn,
	"deposits":        SubTypeExternalDeposits,
	"withdrawals":     SubTypeExternalWithdrawals,
	"premiums":        SubTypeExternalPremiums,
	"claims":          SubTypeExternalClaims,
	"yield":           SubTypeExternalYield,
}

// ParseAccountPath inverts AccountPath. Used when restoring balances
// from a snapshot, where keys are stored as path strings.
func ParseAccountPath(path string) AccountKey {
	parts := strings.Split(path, ":")

	switch {
	case len(parts) == 4 && parts[0] == "provider":
		pid, _ := uuid.Parse(parts[1])
		assetID, _ := GetAssetID(parts[3])
		return NewProviderAccountKey(pid, subTypeByName[parts[2]], assetID)
	case len(parts) == 3 && parts[0] == "system":
		assetID, _ := GetAssetID(parts[2])
		return NewSystemAccountKey(subTypeByName[parts[1]], assetID)
	case len(parts) == 3 && parts[0] == "external":
		assetID, _ := GetAssetID(parts[2])
		return NewExternalAccountKey(subTypeByName[parts[1]], assetID)
	}
	return AccountKey{}
}
