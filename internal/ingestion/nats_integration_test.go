package ingestion_test

import (
	"context"
	"testing"
	"time"

	"PoolLedger/internal/ingestion"
	"PoolLedger/internal/testutil"
)

// Needs the docker-compose.test.yml NATS server; skipped unless
// INTEGRATION_TEST=1 is set.
func TestJetStreamPublishSubscribe(t *testing.T) {
	testutil.RequireIntegration(t)

	nc, js, err := ingestion.ConnectNATS(testutil.TestNATSURL())
	if err != nil {
		t.Skipf("test nats not available: %v (start with: docker compose -f docker-compose.test.yml up -d)", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := ingestion.EnsureStreams(ctx, js); err != nil {
		t.Fatalf("ensure streams: %v", err)
	}

	eventChan := make(chan ingestion.RawEvent, 16)
	sub := ingestion.NewNATSSubscriber(js, eventChan)
	if err := sub.Subscribe(ctx, ingestion.DefaultSubjects()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	payload := []byte(`{"deposit_id":"a2a54b50-0b86-4b5d-9a5a-1f4c1f2d3e4f","provider_id":"11111111-2222-3333-4444-555555555555","asset":"USDC","amount":1000000,"sequence":1,"timestamp_us":1700000000000000}`)
	if _, err := js.Publish(ctx, "pool.capital.deposits.itest", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case raw := <-eventChan:
		if raw.Subject != "pool.capital.deposits.itest" {
			t.Errorf("subject = %q, want pool.capital.deposits.itest", raw.Subject)
		}
		evt, err := ingestion.ParseRawEvent(raw, "CapitalDeposited")
		if err != nil {
			t.Fatalf("parse delivered event: %v", err)
		}
		if evt.IdempotencyKey() == "" {
			t.Error("parsed event has empty idempotency key")
		}
		raw.AckFunc()
	case <-ctx.Done():
		t.Fatal("no event delivered before timeout")
	}
}
