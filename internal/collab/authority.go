package collab

import (
	"fmt"
	"sync"
)

// Authority is the single source of step order. It is safe for
// concurrent use.
type Authority struct {
	mu        sync.Mutex
	steps     []map[string]any
	clientIDs []string
	subs      map[int]chan struct{}
	nextSub   int
}

// NewAuthority creates an authority at version 0.
func NewAuthority() *Authority {
	return &Authority{subs: make(map[int]chan struct{})}
}

// Version returns the number of committed steps.
func (a *Authority) Version() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.steps)
}

// Receive commits steps made on top of version. It reports false, without
// error, when version is behind.
func (a *Authority) Receive(version int, steps []map[string]any, clientID string) (bool, error) {
	if clientID == "" {
		return false, ErrEmptyClientID
	}
	a.mu.Lock()
	if version > len(a.steps) {
		a.mu.Unlock()
		return false, fmt.Errorf("%w: %d > %d", ErrVersionAhead, version, len(a.steps))
	}
	if version != len(a.steps) {
		a.mu.Unlock()
		return false, nil
	}
	if len(steps) == 0 {
		a.mu.Unlock()
		return true, nil
	}
	for _, s := range steps {
		a.steps = append(a.steps, s)
		a.clientIDs = append(a.clientIDs, clientID)
	}
	subs := make([]chan struct{}, 0, len(a.subs))
	for _, ch := range a.subs {
		subs = append(subs, ch)
	}
	a.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return true, nil
}

// StepsSince returns the steps committed after version.
func (a *Authority) StepsSince(version int) (Update, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if version < 0 || version > len(a.steps) {
		return Update{}, fmt.Errorf("%w: %d > %d", ErrVersionAhead, version, len(a.steps))
	}
	return Update{
		Version:   len(a.steps),
		Steps:     append([]map[string]any(nil), a.steps[version:]...),
		ClientIDs: append([]string(nil), a.clientIDs[version:]...),
	}, nil
}

// Subscribe returns a channel signalled after each commit and a function
// releasing it.
func (a *Authority) Subscribe() (<-chan struct{}, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	ch := make(chan struct{}, 1)
	a.subs[id] = ch
	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs, id)
	}
}
