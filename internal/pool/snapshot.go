package pool

import (
	"sort"

	"PoolLedger/internal/ledger"

	"github.com/google/uuid"
)

// PositionState is one provider's raw share in a snapshot.
type PositionState struct {
	Provider uuid.UUID `json:"provider"`
	Raw      int64     `json:"raw"`
}

// State is the pool's full serializable state.
type State struct {
	Total          ledger.ScaledBalance `json:"total"`
	Positions      []PositionState      `json:"positions"`
	Reservation    ledger.Reservation   `json:"reservation"`
	Loan           ledger.ScaledBalance `json:"loan"`
	LoanRate       int64                `json:"loan_rate"`
	LiquidityReq   int64                `json:"liquidity_requirement"`
	LastInvestment int64                `json:"last_investment"`
}

// Snapshot captures the pool state. Positions are ordered by provider ID
// so the serialized form is deterministic.
func (p *CapitalPool) Snapshot() State {
	positions := make([]PositionState, 0, len(p.positions))
	for provider, raw := range p.positions {
		positions = append(positions, PositionState{Provider: provider, Raw: raw})
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Provider.String() < positions[j].Provider.String()
	})
	return State{
		Total:          p.total,
		Positions:      positions,
		Reservation:    p.reservation,
		Loan:           p.loan,
		LoanRate:       p.loanRate,
		LiquidityReq:   p.liquidityRequirement,
		LastInvestment: p.lastInvestment,
	}
}

// Restore replaces the pool state from a snapshot.
func (p *CapitalPool) Restore(s State) {
	p.total = s.Total
	p.positions = make(map[uuid.UUID]int64, len(s.Positions))
	for _, pos := range s.Positions {
		p.positions[pos.Provider] = pos.Raw
	}
	p.reservation = s.Reservation
	p.loan = s.Loan
	p.loanRate = s.LoanRate
	p.liquidityRequirement = s.LiquidityReq
	p.lastInvestment = s.LastInvestment
	p.syncing = false
}
