package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"budgeto/internal/state"
)

// ChangeMessage wraps a committed state change for the broker. Consumers
// dedupe on ID.
type ChangeMessage struct {
	ID          string            `json:"id"`
	Source      string            `json:"source,omitempty"`
	Change      state.StateChange `json:"change"`
	PublishedAt time.Time         `json:"publishedAt"`
}

func NewChangeMessage(change state.StateChange, source string) *ChangeMessage {
	return &ChangeMessage{
		ID:          uuid.NewString(),
		Source:      source,
		Change:      change,
		PublishedAt: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// routingKey appends the change kind, e.g. "state.changed.rolled_over".
func routingKey(base string, kind state.ChangeKind) string {
	if kind == "" {
		return base
	}
	return base + "." + string(kind)
}

// bindingKey matches every kind published under base.
func bindingKey(base string) string {
	return base + ".#"
}
