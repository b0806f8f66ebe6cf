// Package memory connects editors to an in-process collab authority.
package memory

import (
	"context"
	"sync"

	"github.com/dshills/inkstorm/internal/collab"
)

// Provider is a collab.Provider backed by a shared *collab.Authority.
type Provider struct {
	auth    *collab.Authority
	notify  <-chan struct{}
	release func()

	mu     sync.Mutex
	closed bool
}

// New connects to auth.
func New(auth *collab.Authority) *Provider {
	notify, release := auth.Subscribe()
	return &Provider{auth: auth, notify: notify, release: release}
}

func (p *Provider) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Push implements collab.Provider.
func (p *Provider) Push(ctx context.Context, version int, steps []map[string]any, clientID string) (bool, error) {
	if p.isClosed() {
		return false, collab.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.auth.Receive(version, steps, clientID)
}

// Pull implements collab.Provider.
func (p *Provider) Pull(ctx context.Context, version int) (collab.Update, error) {
	if p.isClosed() {
		return collab.Update{}, collab.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return collab.Update{}, err
	}
	return p.auth.StepsSince(version)
}

// Notify implements collab.Provider.
func (p *Provider) Notify() <-chan struct{} { return p.notify }

// Close implements collab.Provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.release()
	}
	return nil
}
