package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"PoolLedger/internal/event"
	fp "PoolLedger/internal/fixedpoint"
	"PoolLedger/internal/ledger"
	"PoolLedger/internal/observability"
	"PoolLedger/internal/policy"
	"PoolLedger/internal/pool"
	"PoolLedger/internal/premiums"
)

// Engine is the single-threaded event processor. It owns the capital
// pool, the premium waterfall, and the open-policy store, and never
// calls time.Now(): every time-dependent computation uses the versioned
// timestamp carried by the event being applied.
type Engine struct {
	sequence          int64
	hasher            *StateHasher
	balanceTracker    *ledger.BalanceTracker
	journalGen        *ledger.JournalGenerator
	validator         *ledger.InvariantValidator
	capitalPool       *pool.CapitalPool
	waterfall         *premiums.Waterfall
	policyStore       *policy.Store
	params            policy.Parameters
	paramsEffective   int64
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics

	// lastClaim holds the funding breakdown of the claim settled by the
	// event currently being processed. Cleared at the start of each event.
	lastClaim *premiums.ClaimFunding

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

type CoreOutput struct {
	Envelope   *event.EventEnvelope
	Batch      *ledger.Batch
	StateDelta []byte

	// View is a point-in-time copy of the derived state after this
	// event. Downstream workers run on their own goroutines and must
	// never touch the engine's live structures.
	View StateView
}

// StateView is the read model handed to the projection and publish
// paths. All extrapolated values are evaluated at the event timestamp.
type StateView struct {
	TotalSupply        int64
	RawTotal           int64
	LockedReserve      int64
	TotalWithdrawable  int64
	LoanBalance        int64
	InvestmentValue    int64
	ProviderCount      int
	PremiumsActive     int64
	PremiumsWon        int64
	BorrowedFromActive int64

	// Per-event context, set only for the event kinds that produce it.
	Provider *ProviderView          // deposits and withdrawals
	Policy   *policy.Record         // policy creation
	Claim    *premiums.ClaimFunding // claim resolution
}

// ProviderView carries the affected provider's raw position after a
// deposit or withdrawal.
type ProviderView struct {
	ProviderID uuid.UUID
	RawUnits   int64
}

func NewEngine(
	startSequence int64,
	params policy.Parameters,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *Engine {
	balanceTracker := ledger.NewBalanceTracker()
	capitalPool := pool.NewCapitalPool(params.LoanInterestRate, params.LiquidityRequirement, 0)

	return &Engine{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		balanceTracker:    balanceTracker,
		journalGen:        ledger.NewJournalGenerator(startSequence),
		validator:         ledger.NewInvariantValidator(balanceTracker),
		capitalPool:       capitalPool,
		waterfall:         premiums.NewWaterfall(capitalPool),
		policyStore:       policy.NewStore(),
		params:            params,
		idempotency:       NewIdempotencyChecker(1_000_000, dbChecker, metrics),
		sequenceValidator: NewSequenceValidator(metrics),
		metrics:           metrics,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
}

// Pool exposes the capital pool for read-only queries.
func (e *Engine) Pool() *pool.CapitalPool {
	return e.capitalPool
}

// Waterfall exposes the premium waterfall for read-only queries.
func (e *Engine) Waterfall() *premiums.Waterfall {
	return e.waterfall
}

// Policies exposes the open-policy store for read-only queries.
func (e *Engine) Policies() *policy.Store {
	return e.policyStore
}

// Params returns the active pricing parameter set.
func (e *Engine) Params() policy.Parameters {
	return e.params
}

// ProcessEvent is the main processing pipeline
func (e *Engine) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	// Step 1: Idempotency check (two-tier)
	isDuplicate := e.idempotency.IsDuplicate(eventType, idempotencyKey)

	// Step 2: Sequence validation. All events arrive on one totally
	// ordered orchestrator stream, so a single partition suffices.
	partition := e.getPartition(evt)
	sourceSequence := evt.SourceSequence()
	if err := e.sequenceValidator.ValidateSequence(partition, sourceSequence, idempotencyKey, isDuplicate); err != nil {
		return fmt.Errorf("sequence validation failed: %w", err)
	}

	// If duplicate, skip processing
	if isDuplicate {
		if e.metrics != nil {
			e.metrics.CoreEventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		return nil
	}

	// Step 3: Event dispatch
	e.lastClaim = nil
	batch, err := e.dispatchEvent(evt)
	if err != nil {
		if e.metrics != nil {
			e.metrics.CoreEventsRejected.WithLabelValues(eventType, "dispatch").Inc()
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 4: Validate and apply journals. State-only events (risk param
	// updates, fully clamped withdrawals) produce an empty batch but still
	// get an envelope in the event log.
	if len(batch.Journals) > 0 {
		if err := e.validator.ValidateBatchBalance(batch); err != nil {
			panic(fmt.Sprintf("FATAL: unbalanced batch: %v", err))
		}
		if err := e.balanceTracker.ApplyBatch(batch); err != nil {
			return fmt.Errorf("apply batch failed: %w", err)
		}
		if e.metrics != nil {
			for _, j := range batch.Journals {
				e.metrics.CoreJournals.WithLabelValues(j.JournalType.String()).Inc()
			}
		}
	}

	// Step 5: State digest and hash chain
	timestamp := e.getEventTimestamp(evt)
	stateDigest := e.computeStateDigest(batch)
	prevHash := e.hasher.GetPrevHash()
	stateHash := e.hasher.ComputeHash(e.sequence, stateDigest)

	payload, err := json.Marshal(evt)
	if err != nil {
		panic(fmt.Sprintf("FATAL: event payload marshal: %v", err))
	}

	envelope := &event.EventEnvelope{
		Sequence:       e.sequence,
		IdempotencyKey: idempotencyKey,
		EventType:      evt.EventType(),
		PolicyID:       evt.PolicyID(),
		Timestamp:      timestamp,
		SourceSequence: sourceSequence,
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	output := CoreOutput{
		Envelope:   envelope,
		Batch:      batch,
		StateDelta: stateDigest,
		View:       e.buildStateView(evt, timestamp.UnixMicro()),
	}
	e.sequence++

	// Step 6: Post-checks
	if err := e.postCheckInvariants(evt); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 7: Emit outputs. Persist channel uses a BLOCKING send
	// (backpressure guarantees no event is lost); projection channel is
	// NON-BLOCKING with silent drop — projections rebuild from the log.
	select {
	case e.persistChan <- output:
	default:
		if e.metrics != nil {
			e.metrics.PersistBackpressure.Inc()
		}
		e.persistChan <- output
	}

	select {
	case e.projectionChan <- output:
	default:
		if e.metrics != nil {
			e.metrics.ProjectionDrops.WithLabelValues("projection").Inc()
		}
	}

	// Step 8: Mark as processed (add to LRU)
	e.idempotency.MarkProcessed(eventType, idempotencyKey)

	e.updateGauges(timestamp.UnixMicro())
	if e.metrics != nil {
		e.metrics.CoreEventsApplied.WithLabelValues(eventType).Inc()
		e.metrics.CoreEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		e.metrics.CoreSequence.Set(float64(e.sequence))
	}

	return nil
}

func (e *Engine) getPartition(evt event.Event) string {
	return "global"
}

// getEventTimestamp extracts the versioned timestamp from the event.
// The engine MUST NOT call time.Now(); all timestamps are versioned inputs.
func (e *Engine) getEventTimestamp(evt event.Event) time.Time {
	switch ev := evt.(type) {
	case *event.CapitalDeposited:
		return time.UnixMicro(ev.Timestamp)
	case *event.WithdrawalRequested:
		return time.UnixMicro(ev.Timestamp)
	case *event.PolicyCreated:
		return time.UnixMicro(ev.Timestamp)
	case *event.PolicyResolved:
		return time.UnixMicro(ev.Timestamp)
	case *event.PolicyExpired:
		return time.UnixMicro(ev.Timestamp)
	case *event.EarningsReported:
		return time.UnixMicro(ev.Timestamp)
	case *event.RiskParamUpdate:
		return time.UnixMicro(ev.Timestamp)
	default:
		panic(fmt.Sprintf("FATAL: getEventTimestamp called with unhandled event type %T — engine cannot use wall-clock time", evt))
	}
}

// computeStateDigest creates canonical bytes for the state hash: affected
// cash accounts from the batch, then the derived pool and waterfall state.
func (e *Engine) computeStateDigest(batch *ledger.Batch) []byte {
	affectedAccounts := make(map[ledger.AccountKey]bool)
	if batch != nil {
		for _, j := range batch.Journals {
			affectedAccounts[j.DebitAccount] = true
			affectedAccounts[j.CreditAccount] = true
		}
	}

	accounts := make([]ledger.AccountKey, 0, len(affectedAccounts))
	for key := range affectedAccounts {
		accounts = append(accounts, key)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	digest := make([]byte, 0, len(accounts)*64+96)
	for _, key := range accounts {
		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, e.balanceTracker.GetBalance(key))
	}

	// Derived state: raw pool totals and waterfall buckets. Raw values,
	// not extrapolated reads, so the digest is time-independent.
	digest = appendInt64LE(digest, e.capitalPool.RawTotal())
	digest = appendInt64LE(digest, e.capitalPool.LockedReservation())
	digest = appendInt64LE(digest, e.capitalPool.BlendedReservationRate())
	digest = appendInt64LE(digest, e.waterfall.Active())
	digest = appendInt64LE(digest, e.waterfall.Won())
	digest = appendInt64LE(digest, e.waterfall.BorrowedFromActive())
	digest = appendInt64LE(digest, int64(e.policyStore.Len()))

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants validates invariants after batch application
func (e *Engine) postCheckInvariants(evt event.Event) error {
	// Share-ledger consistency: provider positions always sum to the
	// pool's raw total.
	if sum, total := e.capitalPool.RawPositionsSum(), e.capitalPool.RawTotal(); sum != total {
		return fmt.Errorf("post-check: provider positions sum %d != pool raw total %d", sum, total)
	}

	// Waterfall non-negativity and borrow bound.
	if e.waterfall.Active() < 0 || e.waterfall.Won() < 0 || e.waterfall.BorrowedFromActive() < 0 {
		return fmt.Errorf("post-check: negative waterfall state %d/%d/%d",
			e.waterfall.Active(), e.waterfall.Won(), e.waterfall.BorrowedFromActive())
	}
	if e.waterfall.BorrowedFromActive() > e.waterfall.Active() {
		return fmt.Errorf("post-check: borrowed %d exceeds active %d",
			e.waterfall.BorrowedFromActive(), e.waterfall.Active())
	}
	if e.waterfall.PurePremiums() < 0 {
		return fmt.Errorf("post-check: negative pure premiums %d", e.waterfall.PurePremiums())
	}

	// Periodic global zero-sum check over all cash accounts.
	if e.sequence > 0 && e.sequence%1000 == 0 {
		if err := e.validator.ValidateGlobalBalance(); err != nil {
			return fmt.Errorf("post-check: %w (at seq %d)", err, e.sequence)
		}
	}

	return nil
}

func (e *Engine) dispatchEvent(evt event.Event) (*ledger.Batch, error) {
	switch ev := evt.(type) {
	case *event.CapitalDeposited:
		return e.handleCapitalDeposited(ev)
	case *event.WithdrawalRequested:
		return e.handleWithdrawalRequested(ev)
	case *event.PolicyCreated:
		return e.handlePolicyCreated(ev)
	case *event.PolicyResolved:
		return e.handlePolicyResolved(ev)
	case *event.PolicyExpired:
		return e.handlePolicyExpired(ev)
	case *event.EarningsReported:
		return e.handleEarningsReported(ev)
	case *event.RiskParamUpdate:
		return e.handleRiskParamUpdate(ev)
	default:
		return nil, fmt.Errorf("unknown event type: %T", evt)
	}
}

func (e *Engine) handleCapitalDeposited(evt *event.CapitalDeposited) (*ledger.Batch, error) {
	assetID, ok := ledger.GetAssetID(evt.Asset)
	if !ok {
		return nil, fmt.Errorf("unknown asset: %s", evt.Asset)
	}

	if _, err := e.capitalPool.Deposit(evt.Provider, evt.Amount, evt.Timestamp); err != nil {
		return nil, err
	}
	return e.journalGen.GenerateDeposit(evt.DepositID, evt.Provider, evt.Amount, assetID, evt.Timestamp), nil
}

func (e *Engine) handleWithdrawalRequested(evt *event.WithdrawalRequested) (*ledger.Batch, error) {
	assetID, ok := ledger.GetAssetID(evt.Asset)
	if !ok {
		return nil, fmt.Errorf("unknown asset: %s", evt.Asset)
	}
	if evt.Amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive, got %d", ledger.ErrValidation, evt.Amount)
	}

	// Best-effort semantics: the applied amount is clamped, never rejected.
	withdrawn, err := e.capitalPool.Withdraw(evt.Provider, evt.Amount, evt.Timestamp)
	if err != nil {
		return nil, err
	}
	if withdrawn < evt.Amount && e.metrics != nil {
		e.metrics.WithdrawalsClamped.Inc()
	}
	return e.journalGen.GenerateWithdrawal(evt.WithdrawalID, evt.Provider, withdrawn, assetID, evt.Timestamp), nil
}

func (e *Engine) handlePolicyCreated(evt *event.PolicyCreated) (*ledger.Batch, error) {
	assetID, ok := ledger.GetAssetID(evt.Asset)
	if !ok {
		return nil, fmt.Errorf("unknown asset: %s", evt.Asset)
	}
	if _, exists := e.policyStore.Get(evt.Policy); exists {
		return nil, fmt.Errorf("%w: policy %s already open", ledger.ErrValidation, evt.Policy)
	}

	rec, err := policy.PriceAndSplit(evt.Policy, evt.Payout, evt.Premium, evt.LossProb,
		e.params, evt.StartTime, evt.Expiration)
	if err != nil {
		return nil, err
	}

	if err := e.capitalPool.LockReservation(rec.ReservedCapital, rec.ProviderRate(), evt.Timestamp); err != nil {
		return nil, err
	}
	if err := e.waterfall.NewPolicy(rec.PurePremium); err != nil {
		// Undo the lock; NewPolicy only fails on validation.
		_ = e.capitalPool.UnlockReservation(rec.ReservedCapital, rec.ProviderRate(), evt.Timestamp)
		return nil, err
	}
	if err := e.policyStore.Put(rec); err != nil {
		panic(fmt.Sprintf("FATAL: policy store put after existence check: %v", err))
	}

	if e.metrics != nil {
		e.metrics.PoliciesUnderwritten.Inc()
	}
	split := rec.PremiumSplit
	return e.journalGen.GeneratePolicyPremium(evt.Policy,
		split.ForRiskPool, split.ForProtocolFee, split.ForOriginatorFee, split.ForCapitalProviders,
		assetID, evt.Timestamp), nil
}

func (e *Engine) handlePolicyResolved(evt *event.PolicyResolved) (*ledger.Batch, error) {
	rec, ok := e.policyStore.Get(evt.Policy)
	if !ok {
		return nil, fmt.Errorf("%w: unknown policy %s", ledger.ErrValidation, evt.Policy)
	}
	if evt.Payout < 0 || evt.Payout > rec.Payout {
		return nil, fmt.Errorf("%w: claimed payout %d outside [0, %d]", ledger.ErrValidation, evt.Payout, rec.Payout)
	}
	assetID := e.policyAsset(rec)

	// Pre-plan the funding cascade so unlock + claim is all-or-nothing:
	// the loan need is checked against the capacity the pool will have
	// once this policy's reservation is released.
	if shortfall := evt.Payout - rec.PurePremium; shortfall > 0 {
		need := shortfall - e.waterfall.Won()
		if headroom := e.waterfall.Active() - rec.PurePremium - e.waterfall.BorrowedFromActive(); headroom > 0 {
			need -= headroom
		}
		if need > 0 {
			capacity := e.capitalPool.LendCapacity(rec.ReservedCapital, evt.Timestamp)
			if need-capacity > fp.NegligibleAmount {
				return nil, fmt.Errorf("%w: claim needs %d from loan facility, capacity %d",
					ledger.ErrInsufficientCapital, need, capacity)
			}
		}
	}

	if err := e.capitalPool.UnlockReservation(rec.ReservedCapital, rec.ProviderRate(), evt.Timestamp); err != nil {
		return nil, err
	}
	funding, err := e.waterfall.ClaimPaid(rec.PurePremium, evt.Payout, evt.Timestamp)
	if err != nil {
		// Restore the reservation so a rejected claim leaves no trace.
		if lockErr := e.capitalPool.LockReservation(rec.ReservedCapital, rec.ProviderRate(), evt.Timestamp); lockErr != nil {
			panic(fmt.Sprintf("FATAL: relock after rejected claim: %v (claim: %v)", lockErr, err))
		}
		return nil, err
	}
	e.policyStore.Remove(evt.Policy)
	e.lastClaim = &funding

	if e.metrics != nil {
		e.metrics.PoliciesResolved.Inc()
		e.metrics.ClaimFunding.WithLabelValues("premium").Add(float64(funding.FromPremium))
		e.metrics.ClaimFunding.WithLabelValues("won").Add(float64(funding.FromWon))
		e.metrics.ClaimFunding.WithLabelValues("active").Add(float64(funding.FromActive))
		e.metrics.ClaimFunding.WithLabelValues("loan").Add(float64(funding.FromLoan))
		if funding.Residual > 0 {
			e.metrics.ClaimResiduals.Inc()
		}
	}

	return e.journalGen.GenerateClaim(evt.Policy,
		funding.FromPremium+funding.FromActive, funding.FromWon, funding.FromLoan,
		funding.WonBooked, assetID, evt.Timestamp), nil
}

func (e *Engine) handlePolicyExpired(evt *event.PolicyExpired) (*ledger.Batch, error) {
	rec, ok := e.policyStore.Get(evt.Policy)
	if !ok {
		return nil, fmt.Errorf("%w: unknown policy %s", ledger.ErrValidation, evt.Policy)
	}
	assetID := e.policyAsset(rec)

	if err := e.capitalPool.UnlockReservation(rec.ReservedCapital, rec.ProviderRate(), evt.Timestamp); err != nil {
		return nil, err
	}
	result, err := e.waterfall.PolicyExpired(rec.PurePremium, evt.Timestamp)
	if err != nil {
		panic(fmt.Sprintf("FATAL: expiration failed after unlock: %v", err))
	}
	e.policyStore.Remove(evt.Policy)

	if e.metrics != nil {
		e.metrics.PoliciesExpired.Inc()
		if result.Overshoot > 0 {
			e.metrics.BorrowOvershoots.Inc()
		}
	}

	return e.journalGen.GenerateExpiration(evt.Policy, result.LoanRepaid, result.WonBooked, assetID, evt.Timestamp), nil
}

func (e *Engine) handleEarningsReported(evt *event.EarningsReported) (*ledger.Batch, error) {
	assetID, ok := ledger.GetAssetID(evt.Asset)
	if !ok {
		return nil, fmt.Errorf("unknown asset: %s", evt.Asset)
	}

	if err := e.capitalPool.RecordEarnings(evt.Delta, evt.Positive, evt.Timestamp); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		direction := "gain"
		if !evt.Positive {
			direction = "loss"
		}
		e.metrics.PoolEarningsBooked.WithLabelValues(direction).Add(float64(evt.Delta))
	}
	return e.journalGen.GenerateEarnings(evt.ReportID, evt.Delta, evt.Positive, assetID, evt.Timestamp), nil
}

// handleRiskParamUpdate replaces the pricing parameter set. Open policies
// keep the records they were priced with; only future underwriting and
// the pool's loan rate and liquidity requirement change.
func (e *Engine) handleRiskParamUpdate(evt *event.RiskParamUpdate) (*ledger.Batch, error) {
	newParams := policy.Parameters{
		Margin:                evt.Margin,
		ReservationRatio:      evt.ReservationRatio,
		ProtocolFeeRate:       evt.ProtocolFeeRate,
		OriginatorFeeRate:     evt.OriginatorFeeRate,
		ProviderReturnRate:    evt.ProviderReturnRate,
		OriginatorCoveragePct: evt.OriginatorCoveragePct,
		LiquidityRequirement:  evt.LiquidityRequirement,
		LoanInterestRate:      evt.LoanInterestRate,
	}
	if err := newParams.Validate(); err != nil {
		return nil, fmt.Errorf("risk param update rejected: %w", err)
	}

	e.params = newParams
	e.paramsEffective = evt.EffectiveSeq
	e.capitalPool.SetRates(newParams.LoanInterestRate, newParams.LiquidityRequirement, evt.Timestamp)

	// State-only event: no journals, envelope only.
	return e.journalGen.GenerateEmpty(evt.IdempotencyKey(), evt.Timestamp), nil
}

// policyAsset maps a record back to its asset. Single-asset pools price
// everything in the pool asset; the record keeps no asset of its own.
func (e *Engine) policyAsset(rec *policy.Record) ledger.AssetID {
	return ledger.DefaultAssetID
}

// buildStateView copies the derived state for downstream consumers.
func (e *Engine) buildStateView(evt event.Event, nowMicros int64) StateView {
	view := StateView{
		TotalSupply:        e.capitalPool.TotalSupply(nowMicros),
		RawTotal:           e.capitalPool.RawTotal(),
		LockedReserve:      e.capitalPool.LockedReservation(),
		TotalWithdrawable:  e.capitalPool.TotalWithdrawable(nowMicros),
		LoanBalance:        e.capitalPool.LoanBalance(nowMicros),
		InvestmentValue:    e.capitalPool.InvestmentValue(),
		ProviderCount:      e.capitalPool.ProviderCount(),
		PremiumsActive:     e.waterfall.Active(),
		PremiumsWon:        e.waterfall.Won(),
		BorrowedFromActive: e.waterfall.BorrowedFromActive(),
		Claim:              e.lastClaim,
	}

	switch ev := evt.(type) {
	case *event.CapitalDeposited:
		view.Provider = &ProviderView{ProviderID: ev.Provider, RawUnits: e.capitalPool.RawPosition(ev.Provider)}
	case *event.WithdrawalRequested:
		view.Provider = &ProviderView{ProviderID: ev.Provider, RawUnits: e.capitalPool.RawPosition(ev.Provider)}
	case *event.PolicyCreated:
		if rec, ok := e.policyStore.Get(ev.Policy); ok {
			view.Policy = rec
		}
	}

	return view
}

func (e *Engine) updateGauges(nowMicros int64) {
	if e.metrics == nil {
		return
	}
	e.metrics.PoolTotalSupply.Set(float64(e.capitalPool.TotalSupply(nowMicros)))
	e.metrics.PoolLockedReserve.Set(float64(e.capitalPool.LockedReservation()))
	e.metrics.PoolWithdrawable.Set(float64(e.capitalPool.TotalWithdrawable(nowMicros)))
	e.metrics.PoolLoanBalance.Set(float64(e.capitalPool.LoanBalance(nowMicros)))
	e.metrics.PoolProviderCount.Set(float64(e.capitalPool.ProviderCount()))
	e.metrics.PoliciesOpen.Set(float64(e.policyStore.Len()))
	e.metrics.PremiumsActive.Set(float64(e.waterfall.Active()))
	e.metrics.PremiumsWon.Set(float64(e.waterfall.Won()))
	e.metrics.PremiumsBorrowed.Set(float64(e.waterfall.BorrowedFromActive()))
	e.metrics.IdempotencyLRUSize.Set(float64(e.idempotency.lru.Size()))
	e.metrics.IdempotencyEvictions.Set(float64(e.idempotency.lru.Evictions()))
}

// --- Snapshot restore & startup ---

// SnapshotState holds the serializable in-memory state for restore.
// This mirrors persistence.SnapshotData but uses typed fields.
type SnapshotState struct {
	Sequence        int64
	StateHash       [32]byte
	Balances        map[ledger.AccountKey]int64
	Pool            pool.State
	Waterfall       premiums.State
	Policies        []*policy.Record
	Params          policy.Parameters
	ParamsEffective int64
	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// RestoreFromSnapshot restores the engine's in-memory state from a
// snapshot. On warm restart: load latest snapshot, then replay events.
func (e *Engine) RestoreFromSnapshot(snap *SnapshotState) {
	e.sequence = snap.Sequence + 1 // Next sequence to assign
	e.hasher.SetPrevHash(snap.StateHash)

	for key, balance := range snap.Balances {
		e.balanceTracker.SetBalance(key, balance)
	}
	e.capitalPool.Restore(snap.Pool)
	e.waterfall.Restore(snap.Waterfall)
	e.policyStore.Restore(snap.Policies)
	e.params = snap.Params
	e.paramsEffective = snap.ParamsEffective

	for partition, nextSeq := range snap.SequenceState {
		e.sequenceValidator.SetExpectedSequence(partition, nextSeq)
	}
	e.journalGen.SetSequence(snap.Sequence)
}

// WarmLRU loads recent idempotency keys into the LRU cache, avoiding
// cold-path DB lookups for recently processed events.
func (e *Engine) WarmLRU(keys []string) {
	e.idempotency.lru.WarmFromKeys(keys)
}

// GetSequence returns the current global sequence number.
func (e *Engine) GetSequence() int64 {
	return e.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (e *Engine) GetStateHash() [32]byte {
	return e.hasher.GetPrevHash()
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (e *Engine) CreateSnapshotState() *SnapshotState {
	return &SnapshotState{
		Sequence:        e.sequence - 1, // Last processed sequence
		StateHash:       e.hasher.GetPrevHash(),
		Balances:        e.balanceTracker.Snapshot(),
		Pool:            e.capitalPool.Snapshot(),
		Waterfall:       e.waterfall.Snapshot(),
		Policies:        e.policyStore.All(),
		Params:          e.params,
		ParamsEffective: e.paramsEffective,
		SequenceState:   e.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys: e.idempotency.lru.GetAllKeys(),
	}
}
