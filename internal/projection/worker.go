package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// ProjectionOutput mirrors the data projection workers need per event.
// The orchestrator bridges between the engine's output and this, so the
// projection package stays decoupled from the deterministic core.
type ProjectionOutput struct {
	Sequence  int64
	EventType string
	PolicyID  *string
	Journals  []JournalEntry
	Pool      PoolStateRow
	Policy    *PolicyRow          // set on PolicyCreated only
	Provider  *ProviderPosition   // set on deposit and withdrawal events
	Timestamp int64
}

// ProviderPosition is a provider's raw pool units after an event.
// Raw units times the pool's supply-to-raw ratio gives the accrued balance.
type ProviderPosition struct {
	ProviderID string
	RawUnits   int64
}

// JournalEntry is a simplified journal for projection consumption.
type JournalEntry struct {
	DebitAccount  string
	CreditAccount string
	AssetID       uint16
	Amount        int64
	JournalType   string
}

// PoolStateRow is the derived pool and waterfall state after an event.
type PoolStateRow struct {
	TotalSupply        int64
	RawTotal           int64
	LockedReserve      int64
	TotalWithdrawable  int64
	LoanBalance        int64
	InvestmentValue    int64
	ProviderCount      int64
	PurePremiumsActive int64
	PremiumsWon        int64
	BorrowedFromActive int64
}

// PolicyRow is the priced policy record for the policies projection.
type PolicyRow struct {
	PolicyID           string
	Payout             int64
	Premium            int64
	PurePremium        int64
	ReservedCapital    int64
	OriginatorCoverage int64
	ProviderRate       int64
	StartTime          int64
	Expiration         int64
}

// ProjectionWorker updates projection tables from processed events.
// The projection channel is non-blocking with drop on the engine side;
// if projections fall behind, they are rebuilt from the event log.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	lastSeq   int64
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
	}
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue; projections are eventually consistent and
				// can be rebuilt from the event log
			}

			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, j := range output.Journals {
		if err := pw.updateBalanceProjection(ctx, tx, j, output.Sequence); err != nil {
			return fmt.Errorf("balance projection: %w", err)
		}
	}

	if err := pw.updatePoolState(ctx, tx, output); err != nil {
		return fmt.Errorf("pool state projection: %w", err)
	}

	if err := pw.updatePolicyProjection(ctx, tx, output); err != nil {
		return fmt.Errorf("policy projection: %w", err)
	}

	if output.Provider != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.provider_positions (provider_id, raw_units, last_sequence)
			VALUES ($1, $2, $3)
			ON CONFLICT (provider_id) DO UPDATE SET raw_units = $2, last_sequence = $3
		`, output.Provider.ProviderID, output.Provider.RawUnits, output.Sequence); err != nil {
			return fmt.Errorf("provider position projection: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// updateBalanceProjection mirrors the in-memory tracker's convention:
// a debit increases the account, a credit decreases it.
func (pw *ProjectionWorker) updateBalanceProjection(ctx context.Context, tx *sql.Tx, j JournalEntry, seq int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance + $3, last_sequence = $4
	`, j.DebitAccount, j.AssetID, j.Amount, seq); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, -$3, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance - $3, last_sequence = $4
	`, j.CreditAccount, j.AssetID, j.Amount, seq); err != nil {
		return err
	}

	return nil
}

func (pw *ProjectionWorker) updatePoolState(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.pool_state
			(id, total_supply, raw_total, locked_reserve, total_withdrawable, loan_balance,
			 investment_value, provider_count, pure_premiums_active, premiums_won,
			 borrowed_from_active, last_sequence, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			total_supply = $1, raw_total = $2, locked_reserve = $3, total_withdrawable = $4,
			loan_balance = $5, investment_value = $6, provider_count = $7,
			pure_premiums_active = $8, premiums_won = $9, borrowed_from_active = $10,
			last_sequence = $11, updated_at = NOW()
	`, output.Pool.TotalSupply, output.Pool.RawTotal, output.Pool.LockedReserve,
		output.Pool.TotalWithdrawable, output.Pool.LoanBalance, output.Pool.InvestmentValue,
		output.Pool.ProviderCount, output.Pool.PurePremiumsActive, output.Pool.PremiumsWon,
		output.Pool.BorrowedFromActive, output.Sequence)
	return err
}

func (pw *ProjectionWorker) updatePolicyProjection(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	switch output.EventType {
	case "PolicyCreated":
		if output.Policy == nil {
			return nil
		}
		p := output.Policy
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.policies
				(policy_id, payout, premium, pure_premium, reserved_capital,
				 originator_coverage, provider_rate, start_time, expiration,
				 status, last_sequence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'active', $10)
			ON CONFLICT (policy_id) DO NOTHING
		`, p.PolicyID, p.Payout, p.Premium, p.PurePremium, p.ReservedCapital,
			p.OriginatorCoverage, p.ProviderRate, p.StartTime, p.Expiration,
			output.Sequence)
		return err

	case "PolicyResolved":
		return pw.closePolicy(ctx, tx, output, "resolved")

	case "PolicyExpired":
		return pw.closePolicy(ctx, tx, output, "expired")
	}

	return nil
}

func (pw *ProjectionWorker) closePolicy(ctx context.Context, tx *sql.Tx, output ProjectionOutput, status string) error {
	if output.PolicyID == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE projections.policies
		SET status = $1, closed_at = $2, last_sequence = $3
		WHERE policy_id = $4 AND status = 'active'
	`, status, output.Timestamp, output.Sequence, *output.PolicyID)
	return err
}

// RebuildProjections rebuilds the balance projection from the journal log.
// Pool state and policy projections refill as new events flow; balances are
// the only table whose history cannot be recovered from the latest event.
func RebuildProjections(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.balances`,
		`TRUNCATE projections.policies`,
		`TRUNCATE projections.pool_state`,
		`TRUNCATE projections.provider_positions`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Debits increase
	_, err := db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT
			debit_account AS account_path,
			asset_id,
			SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM pool_log.journal
		GROUP BY debit_account, asset_id
		ON CONFLICT (account_path, asset_id) DO UPDATE
			SET balance = EXCLUDED.balance, last_sequence = EXCLUDED.last_sequence
	`)
	if err != nil {
		return fmt.Errorf("rebuild debit balances: %w", err)
	}

	// Credits decrease
	_, err = db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT
			credit_account AS account_path,
			asset_id,
			-SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM pool_log.journal
		GROUP BY credit_account, asset_id
		ON CONFLICT (account_path, asset_id) DO UPDATE
			SET balance = projections.balances.balance + EXCLUDED.balance,
			    last_sequence = GREATEST(projections.balances.last_sequence, EXCLUDED.last_sequence)
	`)
	if err != nil {
		return fmt.Errorf("rebuild credit balances: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
