package projection

import (
	"sync"

	"github.com/google/uuid"
)

// ClaimHistoryEntry records how a single claim payout was funded.
type ClaimHistoryEntry struct {
	PolicyID    uuid.UUID
	Payout      int64
	FromPremium int64
	FromWon     int64
	FromActive  int64
	FromLoan    int64
	WonBooked   int64
	Sequence    int64
	Timestamp   int64
}

// ClaimHistoryProjection maintains queryable claim-funding history in memory.
// Bounded by maxEntries; older entries remain recoverable from the journal.
type ClaimHistoryProjection struct {
	mu         sync.RWMutex
	entries    []ClaimHistoryEntry
	maxEntries int
}

func NewClaimHistoryProjection(maxEntries int) *ClaimHistoryProjection {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	return &ClaimHistoryProjection{
		entries:    make([]ClaimHistoryEntry, 0),
		maxEntries: maxEntries,
	}
}

// AddEntry records a claim funding breakdown.
func (p *ClaimHistoryProjection) AddEntry(entry ClaimHistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, entry)
	if len(p.entries) > p.maxEntries {
		p.entries = p.entries[len(p.entries)-p.maxEntries:]
	}
}

// QueryByPolicy returns claim history for a policy, newest first.
func (p *ClaimHistoryProjection) QueryByPolicy(policyID uuid.UUID, limit int) []ClaimHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ClaimHistoryEntry, 0)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].PolicyID == policyID {
			result = append(result, p.entries[i])
		}
	}
	return result
}

// Recent returns the most recent entries, newest first.
func (p *ClaimHistoryProjection) Recent(limit int) []ClaimHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if limit > len(p.entries) {
		limit = len(p.entries)
	}
	result := make([]ClaimHistoryEntry, 0, limit)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, p.entries[i])
	}
	return result
}
