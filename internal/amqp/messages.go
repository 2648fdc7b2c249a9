package amqp

import (
	"encoding/json"
	"time"
)

// Sync reasons carried on ledger sync messages.
const (
	ReasonWrite  = "write"
	ReasonAccept = "simulation_accept"
)

// LedgerSyncMessage tells the sync worker that committed data changed.
// It carries only the revision and the reason; the worker fetches the
// current dataset from the store before pushing it to the remote target.
type LedgerSyncMessage struct {
	Revision  uint64    `json:"revision"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerSyncMessage creates a sync message for a revision.
func NewLedgerSyncMessage(revision uint64, reason string) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Revision:  revision,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON creates a message from JSON bytes.
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
