package amqp

import (
	"testing"
	"time"
)

func TestLedgerEventRoundTrip(t *testing.T) {
	event := NewLedgerEvent(EventTransactionCreated)
	event.TransactionID = 42
	event.Date = "2024-01-03"
	event.Kind = "expense"
	event.Amount = "20"
	event.Balance = "130"

	body, err := event.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Type != EventTransactionCreated || got.TransactionID != 42 || got.Amount != "20" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatalf("timestamp lost")
	}
}

func TestNewLedgerEventStampsTime(t *testing.T) {
	before := time.Now()
	event := NewLedgerEvent(EventSnapshotRecorded)
	if event.Timestamp.Before(before.Add(-time.Second)) {
		t.Fatalf("timestamp not stamped: %v", event.Timestamp)
	}
}

func TestLedgerEventFromJSONInvalid(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
