// Package event is a small synchronous publish/subscribe bus with
// hierarchical topics. The manager publishes lifecycle and transaction
// events on it; the app and tests subscribe with topic patterns.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/inkstorm/internal/event/topic"
)

// Topics published by the editor framework.
const (
	TopicPhasePrefix    topic.Topic = "manager.phase"
	TopicTransaction    topic.Topic = "editor.transaction"
	TopicOptionsChanged topic.Topic = "extension.options"
	TopicConfigReloaded topic.Topic = "config.reloaded"
	TopicCollabSync     topic.Topic = "collab.sync"
)

// Event is one published event.
type Event struct {
	Type      topic.Topic
	Payload   any
	ID        string
	Timestamp time.Time
	Source    string
}

// New creates an event with a fresh id.
func New(t topic.Topic, payload any, source string) Event {
	return Event{
		Type:      t,
		Payload:   payload,
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    source,
	}
}
