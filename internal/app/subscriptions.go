package app

import (
	"context"

	"github.com/dshills/inkstorm/internal/event"
	"github.com/dshills/inkstorm/internal/event/topic"
	collabext "github.com/dshills/inkstorm/internal/extensions/collab"
)

// subscribe registers the application's bus handlers.
func (a *Application) subscribe() error {
	handlers := []struct {
		pattern topic.Topic
		fn      event.HandlerFunc
	}{
		{event.TopicCollabSync, a.onCollabSync},
		{event.TopicPhasePrefix.Child(topic.WildcardSingle), a.onPhase},
		{event.TopicOptionsChanged.Child(topic.WildcardSingle), a.onOptionsChanged},
	}
	for _, h := range handlers {
		sub, err := a.bus.Subscribe(h.pattern, h.fn, 0)
		if err != nil {
			return err
		}
		a.subs = append(a.subs, sub)
	}
	return nil
}

func (a *Application) onCollabSync(_ context.Context, ev event.Event) error {
	if info, ok := ev.Payload.(collabext.SyncInfo); ok {
		a.logger.Debug("synced at version %d, %d unconfirmed", info.Version, info.Unconfirmed)
	}
	a.updateStatus("")
	return nil
}

func (a *Application) onPhase(_ context.Context, ev event.Event) error {
	a.logger.Debug("phase %v", ev.Payload)
	return nil
}

func (a *Application) onOptionsChanged(_ context.Context, ev event.Event) error {
	a.logger.Debug("options changed: %s", ev.Type)
	return nil
}
