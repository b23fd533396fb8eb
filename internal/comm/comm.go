package comm

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"

	EntityCard  = "card"
	EntityMedia = "media"
)

// WSMessage is the envelope written to websocket clients.
type WSMessage struct {
	Type string          `json:"type"` // e.g. "record-event", "error"
	Data json.RawMessage `json:"data"`
}

// RecordEvent announces a successful write to one of the tables.
type RecordEvent struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"` // e.g. "card.created"
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	Table  string         `json:"table"`
	Key    map[string]any `json:"key"`
	At     time.Time      `json:"at"`
}

func NewRecordEvent(entity, action, table string, key map[string]any) RecordEvent {
	return RecordEvent{
		ID:     uuid.New().String(),
		Type:   entity + "." + action,
		Entity: entity,
		Action: action,
		Table:  table,
		Key:    key,
		At:     time.Now().UTC(),
	}
}

// Notifier receives record events after writes. Implementations must not
// block the request for long.
type Notifier interface {
	Notify(event RecordEvent)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(RecordEvent) {}
