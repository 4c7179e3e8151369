package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"PoolLedger/internal/event"
	"PoolLedger/internal/ingestion"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseCapitalDeposited(t *testing.T) {
	payload := map[string]interface{}{
		"deposit_id":   "550e8400-e29b-41d4-a716-446655440000",
		"provider_id":  "660e8400-e29b-41d4-a716-446655440001",
		"asset":        "USDC",
		"amount":       int64(1_000_000_000),
		"sequence":     int64(42),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "CapitalDeposited")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	dep, ok := evt.(*event.CapitalDeposited)
	if !ok {
		t.Fatalf("expected *event.CapitalDeposited, got %T", evt)
	}

	if dep.Asset != "USDC" {
		t.Errorf("asset: got %s, want USDC", dep.Asset)
	}
	if dep.Amount != 1_000_000_000 {
		t.Errorf("amount: got %d, want 1_000_000_000", dep.Amount)
	}
	if dep.Sequence != 42 {
		t.Errorf("sequence: got %d, want 42", dep.Sequence)
	}
	if dep.Timestamp != 1700000000000000 {
		t.Errorf("timestamp: got %d, want 1700000000000000", dep.Timestamp)
	}
	if dep.IdempotencyKey() != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("idempotency key: got %s", dep.IdempotencyKey())
	}
}

func TestParseCapitalDepositedRejectsNonPositiveAmount(t *testing.T) {
	payload := map[string]interface{}{
		"deposit_id":   "550e8400-e29b-41d4-a716-446655440000",
		"provider_id":  "660e8400-e29b-41d4-a716-446655440001",
		"asset":        "USDC",
		"amount":       int64(0),
		"sequence":     int64(1),
		"timestamp_us": int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "CapitalDeposited"); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestParseWithdrawalRequested(t *testing.T) {
	payload := map[string]interface{}{
		"withdrawal_id": "770e8400-e29b-41d4-a716-446655440002",
		"provider_id":   "660e8400-e29b-41d4-a716-446655440001",
		"asset":         "USDC",
		"amount":        int64(500_000_000),
		"sequence":      int64(43),
		"timestamp_us":  int64(1700000001000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "WithdrawalRequested")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	wd, ok := evt.(*event.WithdrawalRequested)
	if !ok {
		t.Fatalf("expected *event.WithdrawalRequested, got %T", evt)
	}
	if wd.Amount != 500_000_000 {
		t.Errorf("amount: got %d, want 500_000_000", wd.Amount)
	}
	if wd.PolicyID() != nil {
		t.Error("withdrawal should have nil policy ID")
	}
}

func TestParsePolicyCreated(t *testing.T) {
	payload := map[string]interface{}{
		"policy_id":     "880e8400-e29b-41d4-a716-446655440003",
		"asset":         "USDC",
		"payout":        int64(1_000_000_000),
		"premium":       int64(100_000_000),
		"loss_prob":     int64(50_000_000), // 5%
		"start_time_us": int64(1700000000000000),
		"expiration_us": int64(1731536000000000),
		"sequence":      int64(44),
		"timestamp_us":  int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "PolicyCreated")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	pc, ok := evt.(*event.PolicyCreated)
	if !ok {
		t.Fatalf("expected *event.PolicyCreated, got %T", evt)
	}
	if pc.Payout != 1_000_000_000 {
		t.Errorf("payout: got %d, want 1_000_000_000", pc.Payout)
	}
	if pc.LossProb != 50_000_000 {
		t.Errorf("loss_prob: got %d, want 50_000_000", pc.LossProb)
	}
	if pc.PolicyID() == nil || *pc.PolicyID() != "880e8400-e29b-41d4-a716-446655440003" {
		t.Errorf("policy ID: got %v", pc.PolicyID())
	}
	if pc.IdempotencyKey() != "policy_created:880e8400-e29b-41d4-a716-446655440003" {
		t.Errorf("idempotency key: got %s", pc.IdempotencyKey())
	}
}

func TestParsePolicyCreatedRejectsBadWindow(t *testing.T) {
	payload := map[string]interface{}{
		"policy_id":     "880e8400-e29b-41d4-a716-446655440003",
		"asset":         "USDC",
		"payout":        int64(1_000_000_000),
		"premium":       int64(100_000_000),
		"loss_prob":     int64(50_000_000),
		"start_time_us": int64(1700000000000000),
		"expiration_us": int64(1700000000000000), // equal to start
		"sequence":      int64(44),
		"timestamp_us":  int64(1700000000000000),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "PolicyCreated"); err == nil {
		t.Fatal("expected error when expiration is not after start")
	}
}

func TestParsePolicyResolved(t *testing.T) {
	payload := map[string]interface{}{
		"policy_id":    "880e8400-e29b-41d4-a716-446655440003",
		"payout":       int64(800_000_000),
		"sequence":     int64(45),
		"timestamp_us": int64(1700000002000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "PolicyResolved")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	pr, ok := evt.(*event.PolicyResolved)
	if !ok {
		t.Fatalf("expected *event.PolicyResolved, got %T", evt)
	}
	if pr.Payout != 800_000_000 {
		t.Errorf("payout: got %d, want 800_000_000", pr.Payout)
	}
}

func TestParsePolicyExpired(t *testing.T) {
	payload := map[string]interface{}{
		"policy_id":    "880e8400-e29b-41d4-a716-446655440003",
		"sequence":     int64(46),
		"timestamp_us": int64(1700000003000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "PolicyExpired")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if evt.IdempotencyKey() != "policy_expired:880e8400-e29b-41d4-a716-446655440003" {
		t.Errorf("idempotency key: got %s", evt.IdempotencyKey())
	}
}

func TestParseEarningsReported(t *testing.T) {
	payload := map[string]interface{}{
		"report_id":    "990e8400-e29b-41d4-a716-446655440004",
		"asset":        "USDC",
		"delta":        int64(25_000_000),
		"positive":     false,
		"sequence":     int64(47),
		"timestamp_us": int64(1700000004000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "EarningsReported")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	er, ok := evt.(*event.EarningsReported)
	if !ok {
		t.Fatalf("expected *event.EarningsReported, got %T", evt)
	}
	if er.Delta != 25_000_000 {
		t.Errorf("delta: got %d, want 25_000_000", er.Delta)
	}
	if er.Positive {
		t.Error("positive: got true, want false")
	}
}

func TestParseEarningsRejectsNegativeDelta(t *testing.T) {
	payload := map[string]interface{}{
		"report_id":    "990e8400-e29b-41d4-a716-446655440004",
		"asset":        "USDC",
		"delta":        int64(-1),
		"positive":     true,
		"sequence":     int64(47),
		"timestamp_us": int64(1700000004000000),
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "EarningsReported"); err == nil {
		t.Fatal("expected error for negative delta")
	}
}

func TestParseRiskParamUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"margin":                  int64(1_200_000_000),
		"reservation_ratio":       int64(800_000_000),
		"protocol_fee_rate":       int64(100_000_000),
		"originator_fee_rate":     int64(100_000_000),
		"provider_return_rate":    int64(50_000_000),
		"originator_coverage_pct": int64(200_000_000),
		"liquidity_requirement":   int64(1_250_000_000),
		"loan_interest_rate":      int64(100_000_000),
		"effective_seq":           int64(1000),
		"sequence":                int64(48),
		"timestamp_us":            int64(1700000005000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "RiskParamUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	rp, ok := evt.(*event.RiskParamUpdate)
	if !ok {
		t.Fatalf("expected *event.RiskParamUpdate, got %T", evt)
	}
	if rp.Margin != 1_200_000_000 {
		t.Errorf("margin: got %d, want 1_200_000_000", rp.Margin)
	}
	if rp.EffectiveSeq != 1000 {
		t.Errorf("effective_seq: got %d, want 1000", rp.EffectiveSeq)
	}
	if rp.IdempotencyKey() != "risk_param:1000" {
		t.Errorf("idempotency key: got %s", rp.IdempotencyKey())
	}
}

func TestParseUnknownEventType(t *testing.T) {
	raw := rawFromJSON(t, map[string]interface{}{})
	if _, err := ingestion.ParseRawEvent(raw, "SomethingElse"); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestParseMalformedJSON(t *testing.T) {
	raw := ingestion.RawEvent{
		Subject: "test",
		Data:    []byte("{not json"),
	}
	if _, err := ingestion.ParseRawEvent(raw, "CapitalDeposited"); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
