package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"PoolLedger/internal/policy"
	"PoolLedger/internal/pool"
	"PoolLedger/internal/premiums"
)

// snapshotFormatVersion is bumped whenever SnapshotData changes shape.
// migrateSnapshot upgrades older payloads on load so a deploy never has
// to discard its snapshot history.
const snapshotFormatVersion = int32(2)

// SnapshotManager handles creating and loading state snapshots for recovery.
// Snapshots contain cash balances, pool and waterfall state, open policies,
// risk parameters, sequence counters, the idempotency LRU, and the hash tip.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData contains the full in-memory state at a point in time.
type SnapshotData struct {
	Sequence        int64             `json:"sequence"`
	StateHash       []byte            `json:"state_hash"`
	Balances        map[string]int64  `json:"balances"` // account path -> balance
	Pool            pool.State        `json:"pool"`
	Waterfall       premiums.State    `json:"waterfall"`
	Policies        []*policy.Record  `json:"policies"`
	Params          policy.Parameters `json:"params"`
	ParamsEffective int64             `json:"params_effective"`
	SequenceState   map[string]int64  `json:"sequence_state"`   // partition -> next expected seq
	IdempotencyKeys []string          `json:"idempotency_keys"` // recent keys for LRU warming
	CreatedAt       time.Time         `json:"created_at"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot to Postgres. Snapshots are taken
// periodically; on restart the latest verified one is loaded and events
// are replayed from snapshot.sequence+1.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	sizeBytes := len(data)

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO pool_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6
	`, snapshotID, snap.Sequence, data, snap.StateHash, snapshotFormatVersion, sizeBytes, snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot, upgrading
// older format versions in place. Returns nil on cold start.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data, format_version FROM pool_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	var version int32
	if err := row.Scan(&data, &version); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	data, err := migrateSnapshot(data, version)
	if err != nil {
		return nil, fmt.Errorf("migrate snapshot (v%d): %w", version, err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// migrateSnapshot upgrades a stored snapshot payload to the current format.
// v1 snapshots predate the params_effective field; it defaults to zero,
// meaning the stored parameters have always been in force.
func migrateSnapshot(data []byte, version int32) ([]byte, error) {
	switch version {
	case snapshotFormatVersion:
		return data, nil
	case 1:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if _, ok := raw["params_effective"]; !ok {
			raw["params_effective"] = json.RawMessage("0")
		}
		return json.Marshal(raw)
	default:
		return nil, fmt.Errorf("unsupported snapshot format version %d", version)
	}
}

// MarkVerified marks a snapshot as verified after integrity check.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE pool_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadEventsFrom loads events from a given sequence for replay.
func (sm *SnapshotManager) LoadEventsFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, policy_id, payload,
		       state_hash, prev_hash, timestamp, source_sequence
		FROM pool_log.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.IdempotencyKey, &e.PolicyID,
			&e.Payload, &e.StateHash, &e.PrevHash, &e.Timestamp, &e.SourceSequence,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// GetLatestSequence returns the highest sequence in the event log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM pool_log.events
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty event log
	}
	return seq.Int64, nil
}
