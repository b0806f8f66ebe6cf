package event

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/inkstorm/internal/event/topic"
)

// HandlerFunc handles one event.
type HandlerFunc func(ctx context.Context, ev Event) error

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ID       string
	Pattern  topic.Topic
	Priority int
}

type subscriber struct {
	Subscription
	handler HandlerFunc
	seq     uint64
}

// Bus delivers events synchronously, in subscriber priority order (higher
// first, then subscription order), on the publishing goroutine.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscriber
	seq  uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for events matching pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler HandlerFunc, priority int) (Subscription, error) {
	if !pattern.IsValid() {
		return Subscription{}, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}
	if handler == nil {
		return Subscription{}, ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	s := &subscriber{
		Subscription: Subscription{ID: uuid.NewString(), Pattern: pattern, Priority: priority},
		handler:      handler,
		seq:          b.seq,
	}
	b.subs = append(b.subs, s)
	sort.SliceStable(b.subs, func(i, j int) bool {
		if b.subs[i].Priority != b.subs[j].Priority {
			return b.subs[i].Priority > b.subs[j].Priority
		}
		return b.subs[i].seq < b.subs[j].seq
	})
	return s.Subscription, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.ID == sub.ID {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Len returns the number of subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers ev to every matching subscriber. All handlers run even
// when some fail; their errors are joined.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if !ev.Type.IsValid() || ev.Type.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, ev.Type)
	}
	b.mu.RLock()
	var targets []*subscriber
	for _, s := range b.subs {
		if ev.Type.Matches(s.Pattern) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, s := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := deliver(ctx, s, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, s *subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{SubscriptionID: s.ID, Topic: string(ev.Type), Err: fmt.Errorf("%w: %v", ErrHandlerPanic, r)}
		}
	}()
	if herr := s.handler(ctx, ev); herr != nil {
		return &HandlerError{SubscriptionID: s.ID, Topic: string(ev.Type), Err: herr}
	}
	return nil
}
