package amqp

import (
	"encoding/json"
	"time"
)

// Event types emitted on the ledger stream.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
	EventSnapshotRecorded   = "snapshot.recorded"
	EventBalanceOverridden  = "balance.overridden"
)

// LedgerEvent is the message published after every ledger mutation. Amounts
// travel as decimal strings; consumers fetch full rows from the store if they
// need more than the delta.
type LedgerEvent struct {
	Type          string    `json:"type"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Date          string    `json:"date,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Balance       string    `json:"balance,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(eventType string) *LedgerEvent {
	return &LedgerEvent{
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
