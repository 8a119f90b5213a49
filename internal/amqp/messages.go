package amqp

import (
	"encoding/json"
	"time"
)

// SubscriptionEventMessage is the lightweight notification published
// when an audit event is recorded. It carries only the event ID and
// type; the worker fetches the full event from the database before
// exporting it.
type SubscriptionEventMessage struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSubscriptionEventMessage(eventID, eventType string) *SubscriptionEventMessage {
	return &SubscriptionEventMessage{
		EventID:   eventID,
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (m *SubscriptionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SubscriptionEventMessageFromJSON(data []byte) (*SubscriptionEventMessage, error) {
	var msg SubscriptionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
