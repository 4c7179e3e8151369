package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"PoolLedger/internal/fixedpoint"
)

// QueryService provides read-only access to projection tables. All
// responses include as_of_sequence for freshness semantics: the reported
// values reflect the ledger exactly as of that event, never a torn state.
type QueryService struct {
	db *sql.DB
}

func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// GetPoolState returns the pool-level capital view.
func (qs *QueryService) GetPoolState(ctx context.Context) (*PoolStateResponse, error) {
	row := qs.db.QueryRowContext(ctx, `
		SELECT total_supply, locked_reserve, total_withdrawable, loan_balance,
		       investment_value, provider_count, last_sequence
		FROM projections.pool_state WHERE id = 1
	`)

	var resp PoolStateResponse
	err := row.Scan(
		&resp.TotalSupply, &resp.LockedReserve, &resp.TotalWithdrawable,
		&resp.LoanBalance, &resp.InvestmentValue, &resp.ProviderCount,
		&resp.AsOfSequence,
	)
	if err == sql.ErrNoRows {
		return &PoolStateResponse{}, nil // No events yet
	}
	if err != nil {
		return nil, fmt.Errorf("pool state: %w", err)
	}
	return &resp, nil
}

// GetPremiums returns the premium waterfall view.
func (qs *QueryService) GetPremiums(ctx context.Context) (*PremiumsResponse, error) {
	row := qs.db.QueryRowContext(ctx, `
		SELECT pure_premiums_active, premiums_won, borrowed_from_active, last_sequence
		FROM projections.pool_state WHERE id = 1
	`)

	var resp PremiumsResponse
	err := row.Scan(&resp.Active, &resp.Won, &resp.BorrowedFromActive, &resp.AsOfSequence)
	if err == sql.ErrNoRows {
		return &PremiumsResponse{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("premiums: %w", err)
	}

	resp.PurePremiums = resp.Active + resp.Won - resp.BorrowedFromActive
	return &resp, nil
}

// GetProviderBalance returns a provider's accrued balance. The balance is
// derived from projected raw units and the pool's supply-to-raw ratio, so
// it carries interest accrued up to the last applied event.
func (qs *QueryService) GetProviderBalance(
	ctx context.Context,
	providerID uuid.UUID,
	asset string,
) (*ProviderBalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	resp := &ProviderBalanceResponse{
		ProviderID:   providerID,
		Asset:        asset,
		AsOfSequence: asOfSeq,
	}

	var rawUnits int64
	err = qs.db.QueryRowContext(ctx, `
		SELECT raw_units FROM projections.provider_positions WHERE provider_id = $1
	`, providerID.String()).Scan(&rawUnits)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("provider position: %w", err)
	}
	resp.RawUnits = rawUnits

	if rawUnits > 0 {
		var totalSupply, rawTotal int64
		err = qs.db.QueryRowContext(ctx, `
			SELECT total_supply, raw_total FROM projections.pool_state WHERE id = 1
		`).Scan(&totalSupply, &rawTotal)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("pool state: %w", err)
		}
		if rawTotal > 0 {
			resp.Balance = fixedpoint.MulDiv(rawUnits, totalSupply, rawTotal, fixedpoint.RoundDown)
		}
	}

	capitalPath := fmt.Sprintf("provider:%s:capital:%s", providerID, asset)
	netDeposited, err := qs.getProjectedBalance(ctx, capitalPath)
	if err != nil {
		return nil, fmt.Errorf("net deposited: %w", err)
	}
	resp.NetDeposited = netDeposited

	return resp, nil
}

// GetPolicy returns a single policy by ID, open or closed.
func (qs *QueryService) GetPolicy(ctx context.Context, policyID uuid.UUID) (*PolicyResponse, error) {
	row := qs.db.QueryRowContext(ctx, `
		SELECT policy_id, payout, premium, pure_premium, reserved_capital,
		       originator_coverage, provider_rate, start_time, expiration,
		       status, closed_at, last_sequence
		FROM projections.policies WHERE policy_id = $1
	`, policyID.String())

	var resp PolicyResponse
	var closedAt sql.NullInt64
	err := row.Scan(
		&resp.PolicyID, &resp.Payout, &resp.Premium, &resp.PurePremium,
		&resp.ReservedCapital, &resp.OriginatorCoverage, &resp.ProviderRate,
		&resp.StartTime, &resp.Expiration, &resp.Status, &closedAt,
		&resp.AsOfSequence,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	if closedAt.Valid {
		v := closedAt.Int64
		resp.ClosedAt = &v
	}
	return &resp, nil
}

// ListPolicies returns policies filtered by status with cursor pagination.
func (qs *QueryService) ListPolicies(
	ctx context.Context,
	status *string,
	limit int,
	afterSequence *int64,
) ([]PolicyResponse, error) {
	query := `
		SELECT policy_id, payout, premium, pure_premium, reserved_capital,
		       originator_coverage, provider_rate, start_time, expiration,
		       status, closed_at, last_sequence
		FROM projections.policies
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *status)
		argIdx++
	}

	if afterSequence != nil {
		query += fmt.Sprintf(" AND last_sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY last_sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []PolicyResponse
	for rows.Next() {
		var p PolicyResponse
		var closedAt sql.NullInt64
		if err := rows.Scan(
			&p.PolicyID, &p.Payout, &p.Premium, &p.PurePremium,
			&p.ReservedCapital, &p.OriginatorCoverage, &p.ProviderRate,
			&p.StartTime, &p.Expiration, &p.Status, &closedAt, &p.AsOfSequence,
		); err != nil {
			return nil, err
		}
		if closedAt.Valid {
			v := closedAt.Int64
			p.ClosedAt = &v
		}
		policies = append(policies, p)
	}

	return policies, rows.Err()
}

// GetJournalHistory returns journal entries touching a provider's accounts,
// newest first, with cursor-based pagination.
func (qs *QueryService) GetJournalHistory(
	ctx context.Context,
	providerID uuid.UUID,
	limit int,
	afterSequence *int64,
) ([]JournalHistoryEntry, error) {
	accountPrefix := fmt.Sprintf("provider:%s:%%", providerID)

	query := `
		SELECT journal_id, batch_id, event_ref, sequence,
		       debit_account, credit_account, asset_id, amount, journal_type, timestamp
		FROM pool_log.journal
		WHERE (debit_account LIKE $1 OR credit_account LIKE $1)
	`
	args := []interface{}{accountPrefix}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.EventRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.AssetID, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain continuity and the zero-sum invariant.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM pool_log.events e1
		LEFT JOIN pool_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e1.prev_hash != COALESCE(e2.state_hash, e1.prev_hash)
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	balanceRows, err := qs.db.QueryContext(ctx, `
		SELECT asset_id, SUM(balance) as total
		FROM projections.balances
		GROUP BY asset_id
		HAVING SUM(balance) != 0
	`)
	if err != nil {
		return nil, err
	}
	defer balanceRows.Close()

	for balanceRows.Next() {
		var assetID uint16
		var total int64
		if err := balanceRows.Scan(&assetID, &total); err != nil {
			return nil, err
		}
		report.UnbalancedAssets = append(report.UnbalancedAssets, UnbalancedAsset{
			AssetID:   assetID,
			Imbalance: total,
		})
	}
	if err := balanceRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnbalancedAssets) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func (qs *QueryService) getProjectedBalance(ctx context.Context, accountPath string) (int64, error) {
	var balance int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(balance, 0) FROM projections.balances
		WHERE account_path = $1
	`, accountPath).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}
