package postgres_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kameshai/premier-auction/internal/event"
	"github.com/kameshai/premier-auction/internal/store/postgres"
)

func TestEventStoreAppendAndLoad(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	err := es.Append(ctx,
		event.Event{AggregateID: "p101", Type: event.PlayerRegistered, Data: json.RawMessage(`{"name":"Rohan Varma"}`)},
		event.Event{AggregateID: "p101", Type: event.PlayerSold, Data: json.RawMessage(`{"franchise_id":"t1","price":150}`)},
		event.Event{AggregateID: "p102", Type: event.PlayerRegistered, Data: json.RawMessage(`{"name":"Kai Tanaka"}`)},
	)
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	events, err := es.Load(ctx, "p101")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for p101, got %d", len(events))
	}
	if events[0].Type != event.PlayerRegistered || events[1].Type != event.PlayerSold {
		t.Errorf("unexpected event order: %s, %s", events[0].Type, events[1].Type)
	}
	if events[0].ID == "" || events[0].CreatedAt.IsZero() {
		t.Errorf("event metadata not populated: %+v", events[0])
	}

	events, err = es.Load(ctx, "missing")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events for unknown aggregate, got %d", len(events))
	}
}
