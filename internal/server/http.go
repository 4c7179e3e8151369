package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"PoolLedger/internal/ledger"
	"PoolLedger/internal/observability"
	"PoolLedger/internal/projection"
	"PoolLedger/internal/query"
)

// InjectFunc hands an admin-submitted event body to the orchestrator.
// The body uses the same JSON wire format as the NATS subjects.
type InjectFunc func(eventType string, body []byte) error

// HTTPServer serves the read API from projections and the admin ingest
// surface. All state-changing admin calls go through the same event
// pipeline as NATS traffic; the server never mutates the ledger directly.
type HTTPServer struct {
	logger  zerolog.Logger
	query   *query.QueryService
	health  *observability.HealthChecker
	claims  *projection.ClaimHistoryProjection
	metrics *observability.Metrics

	inject       InjectFunc
	saveSnapshot func() error
}

func NewHTTPServer(
	queryService *query.QueryService,
	health *observability.HealthChecker,
	claims *projection.ClaimHistoryProjection,
	metrics *observability.Metrics,
	inject InjectFunc,
	saveSnapshot func() error,
) *HTTPServer {
	return &HTTPServer{
		logger:       observability.NewLogger("http"),
		query:        queryService,
		health:       health,
		claims:       claims,
		metrics:      metrics,
		inject:       inject,
		saveSnapshot: saveSnapshot,
	}
}

// Router builds the full route table.
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.health.LivenessHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.health.ReadinessHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.instrument)
	v1.HandleFunc("/pool", s.handlePoolState).Methods(http.MethodGet)
	v1.HandleFunc("/premiums", s.handlePremiums).Methods(http.MethodGet)
	v1.HandleFunc("/providers/{id}/balance", s.handleProviderBalance).Methods(http.MethodGet)
	v1.HandleFunc("/providers/{id}/journal", s.handleProviderJournal).Methods(http.MethodGet)
	v1.HandleFunc("/policies", s.handleListPolicies).Methods(http.MethodGet)
	v1.HandleFunc("/policies/{id}", s.handleGetPolicy).Methods(http.MethodGet)
	v1.HandleFunc("/policies/{id}/claims", s.handlePolicyClaims).Methods(http.MethodGet)
	v1.HandleFunc("/claims", s.handleRecentClaims).Methods(http.MethodGet)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/deposits", s.handleInject("CapitalDeposited")).Methods(http.MethodPost)
	admin.HandleFunc("/withdrawals", s.handleInject("WithdrawalRequested")).Methods(http.MethodPost)
	admin.HandleFunc("/earnings", s.handleInject("EarningsReported")).Methods(http.MethodPost)
	admin.HandleFunc("/risk-params", s.handleInject("RiskParamUpdate")).Methods(http.MethodPost)
	admin.HandleFunc("/integrity", s.handleIntegrity).Methods(http.MethodGet)
	admin.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodPost)

	return r
}

// NewListener wraps the router in an http.Server with sane timeouts.
func (s *HTTPServer) NewListener(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// instrument records per-endpoint request counts, latency, and error
// rates. The endpoint label is the route template, not the raw path, so
// cardinality stays bounded.
func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.metrics.QueryRequests.WithLabelValues(endpoint).Inc()
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		switch {
		case rec.status >= 500:
			s.metrics.QueryErrors.WithLabelValues(endpoint, "server").Inc()
		case rec.status >= 400:
			s.metrics.QueryErrors.WithLabelValues(endpoint, "client").Inc()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) handlePoolState(w http.ResponseWriter, r *http.Request) {
	resp, err := s.query.GetPoolState(r.Context())
	if err != nil {
		s.serverError(w, err, "pool state query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handlePremiums(w http.ResponseWriter, r *http.Request) {
	resp, err := s.query.GetPremiums(r.Context())
	if err != nil {
		s.serverError(w, err, "premiums query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleProviderBalance(w http.ResponseWriter, r *http.Request) {
	providerID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	asset := r.URL.Query().Get("asset")
	if asset == "" {
		asset = "USDC"
	}
	if _, known := ledger.GetAssetID(asset); !known {
		s.clientError(w, http.StatusBadRequest, "unknown asset")
		return
	}

	resp, err := s.query.GetProviderBalance(r.Context(), providerID, asset)
	if err != nil {
		s.serverError(w, err, "provider balance query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleProviderJournal(w http.ResponseWriter, r *http.Request) {
	providerID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	after := queryInt64Ptr(r, "after")

	entries, err := s.query.GetJournalHistory(r.Context(), providerID, limit, after)
	if err != nil {
		s.serverError(w, err, "journal query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *HTTPServer) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	var status *string
	if v := r.URL.Query().Get("status"); v != "" {
		if v != "active" && v != "resolved" && v != "expired" {
			s.clientError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		status = &v
	}

	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	after := queryInt64Ptr(r, "after")

	policies, err := s.query.ListPolicies(r.Context(), status, limit, after)
	if err != nil {
		s.serverError(w, err, "policy list query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"policies": policies})
}

func (s *HTTPServer) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policyID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	resp, err := s.query.GetPolicy(r.Context(), policyID)
	if err != nil {
		s.serverError(w, err, "policy query failed")
		return
	}
	if resp == nil {
		s.clientError(w, http.StatusNotFound, "policy not found")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handlePolicyClaims(w http.ResponseWriter, r *http.Request) {
	policyID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	entries := s.claims.QueryByPolicy(policyID, limit)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"claims": entries})
}

func (s *HTTPServer) handleRecentClaims(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	entries := s.claims.Recent(limit)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"claims": entries})
}

// handleInject returns a handler that feeds an admin-submitted event body
// into the orchestrator pipeline under the given event type.
func (s *HTTPServer) handleInject(eventType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			s.clientError(w, http.StatusBadRequest, "read body failed")
			return
		}

		if err := s.inject(eventType, body); err != nil {
			s.logger.Warn().Err(err).Str("event_type", eventType).Msg("admin inject rejected")
			s.clientError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func (s *HTTPServer) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.query.VerifyIntegrity(r.Context())
	if err != nil {
		s.serverError(w, err, "integrity check failed")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.saveSnapshot(); err != nil {
		s.serverError(w, err, "snapshot failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "snapshot_saved"})
}

// --- helpers ---

func (s *HTTPServer) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		s.clientError(w, http.StatusBadRequest, "invalid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("response encode failed")
	}
}

func (s *HTTPServer) clientError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func (s *HTTPServer) serverError(w http.ResponseWriter, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func queryInt64Ptr(r *http.Request, name string) *int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
