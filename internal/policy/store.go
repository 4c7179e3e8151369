package policy

import (
	"fmt"

	"PoolLedger/internal/ledger"

	"github.com/google/uuid"
)

// Store holds pricing records for policies whose coverage is still open.
// The engine is single-threaded so no locking is needed. Records are
// inserted at underwriting and removed at resolution or expiration.
type Store struct {
	records map[uuid.UUID]*Record
}

// NewStore creates an empty record store.
func NewStore() *Store {
	return &Store{records: make(map[uuid.UUID]*Record)}
}

// Put inserts a record. A duplicate policy ID is a validation error.
func (s *Store) Put(rec *Record) error {
	if _, exists := s.records[rec.PolicyID]; exists {
		return fmt.Errorf("%w: policy %s already underwritten", ledger.ErrValidation, rec.PolicyID)
	}
	s.records[rec.PolicyID] = rec
	return nil
}

// Get returns the record for an open policy.
func (s *Store) Get(policyID uuid.UUID) (*Record, bool) {
	rec, ok := s.records[policyID]
	return rec, ok
}

// Remove deletes and returns the record, ending the policy's lifecycle.
func (s *Store) Remove(policyID uuid.UUID) (*Record, bool) {
	rec, ok := s.records[policyID]
	if ok {
		delete(s.records, policyID)
	}
	return rec, ok
}

// Len returns the number of open policies.
func (s *Store) Len() int {
	return len(s.records)
}

// All returns every open record, for snapshotting.
func (s *Store) All() []*Record {
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

// Restore replaces the store contents from a snapshot.
func (s *Store) Restore(records []*Record) {
	s.records = make(map[uuid.UUID]*Record, len(records))
	for _, rec := range records {
		s.records[rec.PolicyID] = rec
	}
}
