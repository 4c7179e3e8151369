package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for PoolLedger.
type Metrics struct {
	// --- Core processing ---
	CoreEventsApplied  *prometheus.CounterVec
	CoreEventsRejected *prometheus.CounterVec
	CoreEventDuration  *prometheus.HistogramVec
	CoreJournals       *prometheus.CounterVec
	CoreSequence       prometheus.Gauge

	// --- Capital pool ---
	PoolTotalSupply      prometheus.Gauge
	PoolLockedReserve    prometheus.Gauge
	PoolWithdrawable     prometheus.Gauge
	PoolLoanBalance      prometheus.Gauge
	PoolProviderCount    prometheus.Gauge
	PoolEarningsBooked   *prometheus.CounterVec
	WithdrawalsClamped   prometheus.Counter

	// --- Policies & premiums ---
	PoliciesUnderwritten prometheus.Counter
	PoliciesResolved     prometheus.Counter
	PoliciesExpired      prometheus.Counter
	PoliciesOpen         prometheus.Gauge
	PremiumsActive       prometheus.Gauge
	PremiumsWon          prometheus.Gauge
	PremiumsBorrowed     prometheus.Gauge
	ClaimFunding         *prometheus.CounterVec
	ClaimResiduals       prometheus.Counter
	BorrowOvershoots     prometheus.Counter

	// --- Channel & backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ProjectionDrops     *prometheus.CounterVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Idempotency & ordering ---
	IdempotencyDuplicates  *prometheus.CounterVec
	IdempotencyCheckErrors prometheus.Counter
	IdempotencyLRUSize     prometheus.Gauge
	IdempotencyEvictions   prometheus.Gauge
	EventSequenceGap       *prometheus.CounterVec
	EventOutOfOrder        *prometheus.CounterVec

	// --- Persistence ---
	PersistEventsWritten   prometheus.Counter
	PersistJournalsWritten prometheus.Counter
	PersistBatchSize       prometheus.Histogram
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter
	PersistLastSequence    prometheus.Gauge

	// --- Snapshot & replay ---
	SnapshotTaken     prometheus.Counter
	SnapshotDuration  prometheus.Histogram
	SnapshotLastSeq   prometheus.Gauge
	ReplayEventsTotal prometheus.Counter
	ReplayDuration    prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	queryBuckets := []float64{
		0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
	}

	return &Metrics{
		CoreEventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_core_events_applied_total",
			Help: "Events successfully applied by core",
		}, []string{"event_type"}),

		CoreEventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_core_events_rejected_total",
			Help: "Events rejected (dedup, gap, validation)",
		}, []string{"event_type", "reason"}),

		CoreEventDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pool_core_event_apply_duration_seconds",
			Help:    "Time to apply a single event in core",
			Buckets: latencyBuckets,
		}, []string{"event_type"}),

		CoreJournals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_core_journals_generated_total",
			Help: "Journal entries generated",
		}, []string{"journal_type"}),

		CoreSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_core_sequence",
			Help: "Current global sequence number",
		}),

		PoolTotalSupply: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_capital_total_supply",
			Help: "Capital pool total supply (amount precision)",
		}),

		PoolLockedReserve: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_capital_locked_reservation",
			Help: "Capital locked against open policies",
		}),

		PoolWithdrawable: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_capital_withdrawable",
			Help: "Capital withdrawable after liquidity haircut",
		}),

		PoolLoanBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_loan_balance",
			Help: "Outstanding premium-ledger loan including accrued interest",
		}),

		PoolProviderCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_provider_count",
			Help: "Providers with open positions",
		}),

		PoolEarningsBooked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_earnings_booked_total",
			Help: "Strategy earnings booked, by direction",
		}, []string{"direction"}),

		WithdrawalsClamped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_withdrawals_clamped_total",
			Help: "Withdrawal requests clamped below the requested amount",
		}),

		PoliciesUnderwritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_policies_underwritten_total",
			Help: "Policies priced and accepted",
		}),

		PoliciesResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_policies_resolved_total",
			Help: "Policies settled with a claim",
		}),

		PoliciesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_policies_expired_total",
			Help: "Policies expired without a claim",
		}),

		PoliciesOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_policies_open",
			Help: "Policies currently at risk",
		}),

		PremiumsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_premiums_active",
			Help: "Pure premium backing active policies",
		}),

		PremiumsWon: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_premiums_won",
			Help: "Realized pure premium",
		}),

		PremiumsBorrowed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_premiums_borrowed_from_active",
			Help: "Active premium spent ahead of realization",
		}),

		ClaimFunding: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_claim_funding_total",
			Help: "Claim amounts funded, by cascade source",
		}, []string{"source"}),

		ClaimResiduals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_claim_residuals_total",
			Help: "Claims settled with a negligible unfunded residual",
		}),

		BorrowOvershoots: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_borrow_overshoots_total",
			Help: "Expirations that corrected borrowed premium above active",
		}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pool_channel_size",
			Help: "Current channel occupancy",
		}, []string{"channel"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pool_channel_capacity",
			Help: "Channel capacity",
		}, []string{"channel"}),

		ProjectionDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_projection_drops_total",
			Help: "Outputs dropped on full projection channel",
		}, []string{"channel"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_publish_drops_total",
			Help: "Outbound publishes dropped",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_persist_backpressure_total",
			Help: "Core stalls on the blocking persist channel",
		}),

		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_idempotency_duplicates_total",
			Help: "Duplicate events detected, by tier",
		}, []string{"event_type", "tier"}),

		IdempotencyCheckErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_idempotency_check_errors_total",
			Help: "Failed cold-path dedup lookups (treated as not-duplicate)",
		}),

		IdempotencyLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_idempotency_lru_size",
			Help: "Entries in the in-memory dedup LRU",
		}),

		IdempotencyEvictions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_idempotency_lru_evictions_total",
			Help: "Total evictions from the dedup LRU",
		}),

		EventSequenceGap: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_event_sequence_gap_total",
			Help: "Sequence gaps detected per partition",
		}, []string{"partition"}),

		EventOutOfOrder: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_event_out_of_order_total",
			Help: "Out-of-order events per partition",
		}, []string{"partition"}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_persist_events_written_total",
			Help: "Event envelopes committed to Postgres",
		}),

		PersistJournalsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_persist_journals_written_total",
			Help: "Journal rows committed to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pool_persist_batch_size",
			Help:    "Events per persistence batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pool_persist_batch_duration_seconds",
			Help:    "Time to commit a persistence batch",
			Buckets: queryBuckets,
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_persist_errors_total",
			Help: "Persistence errors by kind",
		}, []string{"kind"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_persist_retries_total",
			Help: "Persistence batch retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_persist_last_sequence",
			Help: "Last sequence durably committed",
		}),

		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_snapshot_taken_total",
			Help: "Snapshots written",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pool_snapshot_duration_seconds",
			Help:    "Time to serialize and write a snapshot",
			Buckets: queryBuckets,
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_snapshot_last_sequence",
			Help: "Sequence of the latest snapshot",
		}),

		ReplayEventsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pool_replay_events_total",
			Help: "Events replayed during warm restart",
		}),

		ReplayDuration: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pool_replay_duration_seconds",
			Help: "Duration of the last replay",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_query_requests_total",
			Help: "Query API requests",
		}, []string{"endpoint"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pool_query_duration_seconds",
			Help:    "Query API latency",
			Buckets: queryBuckets,
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_query_errors_total",
			Help: "Query API errors",
		}, []string{"endpoint", "kind"}),
	}
}
