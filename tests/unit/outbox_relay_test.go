package unit

import (
	"context"
	"sync"
	"testing"
	"time"

	contributionledger "tessera/contexts/value-attribution/contribution-ledger"
	ledgerworkers "tessera/contexts/value-attribution/contribution-ledger/application/workers"
	engineworkers "tessera/contexts/value-attribution/distribution-engine/application/workers"
	enginehttp "tessera/contexts/value-attribution/distribution-engine/transport/http"
	"tessera/internal/platform/messaging"
	"tessera/internal/shared/events"
)

func TestLedgerOutboxRelayPublishesAndMarks(t *testing.T) {
	ledger := contributionledger.NewInMemoryModule(nil)
	ctx := context.Background()

	mustRecord(t, ledger, recordRequest("user-relay", "relayed-asset"))

	bus, err := messaging.NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("new kafka failed: %v", err)
	}

	var mu sync.Mutex
	var received []events.Envelope
	if err := bus.Subscribe(ctx, "ledger.contribution.recorded", "test-cg", func(_ context.Context, envelope events.Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, envelope)
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	relay := ledgerworkers.OutboxRelay{
		Outbox:    ledger.Store,
		Publisher: bus,
		Topic:     "ledger.contribution.recorded",
		BatchSize: 10,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	pending, err := ledger.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, %d messages still pending", len(pending))
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		count := len(received)
		mu.Unlock()
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected one delivered envelope, got %d", count)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDistributionOutboxRelayDrainsAfterRun(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	assetID := newAsset(t, ledger, "relayed", "user-dr", "100", "0.5")
	runDistribution(t, engine, enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "100"})

	bus, err := messaging.NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("new kafka failed: %v", err)
	}
	relay := engineworkers.OutboxRelay{
		Outbox:    engine.Store,
		Publisher: bus,
		Topic:     "distribution.completed",
		BatchSize: 10,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	pending, err := engine.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, %d messages still pending", len(pending))
	}
}
