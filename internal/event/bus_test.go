package event

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/inkstorm/internal/event/topic"
)

func TestBusDeliversMatchingInPriorityOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	record := func(name string) HandlerFunc {
		return func(context.Context, Event) error {
			order = append(order, name)
			return nil
		}
	}
	if _, err := bus.Subscribe("manager.phase.*", record("low"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Subscribe("manager.**", record("high"), 10); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Subscribe("editor.transaction", record("other"), 100); err != nil {
		t.Fatal(err)
	}

	if err := bus.Publish(context.Background(), New(TopicPhasePrefix.Child("runtime"), nil, "test")); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "high" || order[1] != "low" {
		t.Errorf("order = %v", order)
	}
}

func TestBusErrorsAndPanics(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	calls := 0
	_, _ = bus.Subscribe("x.y", func(context.Context, Event) error { return boom }, 2)
	_, _ = bus.Subscribe("x.y", func(context.Context, Event) error { panic("bad") }, 1)
	_, _ = bus.Subscribe("x.y", func(context.Context, Event) error { calls++; return nil }, 0)

	err := bus.Publish(context.Background(), New("x.y", 1, "test"))
	if !errors.Is(err, boom) || !errors.Is(err, ErrHandlerPanic) {
		t.Errorf("err = %v", err)
	}
	var herr *HandlerError
	if !errors.As(err, &herr) || herr.Topic != "x.y" {
		t.Errorf("HandlerError = %+v", herr)
	}
	if calls != 1 {
		t.Errorf("later handler ran %d times", calls)
	}
}

func TestBusSubscribeValidation(t *testing.T) {
	bus := NewBus()
	if _, err := bus.Subscribe("", func(context.Context, Event) error { return nil }, 0); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("err = %v", err)
	}
	if _, err := bus.Subscribe("a", nil, 0); !errors.Is(err, ErrNilHandler) {
		t.Errorf("err = %v", err)
	}
	if err := bus.Publish(context.Background(), New(topic.Topic("a.*"), nil, "")); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("publishing a pattern: %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub, _ := bus.Subscribe("a", func(context.Context, Event) error { return nil }, 0)
	if err := bus.Unsubscribe(sub); err != nil {
		t.Fatal(err)
	}
	if err := bus.Unsubscribe(sub); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second unsubscribe = %v", err)
	}
	if bus.Len() != 0 {
		t.Errorf("Len = %d", bus.Len())
	}
}
