package collab

import (
	"context"
	"errors"
	"fmt"
	"sync"

	netcollab "github.com/dshills/inkstorm/internal/collab"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/transform"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/event"
	"github.com/dshills/inkstorm/internal/logging"
)

// ErrSessionActive is returned by Connect while another session runs.
var ErrSessionActive = errors.New("collab session already active")

// SyncInfo is published on event.TopicCollabSync after each sync.
type SyncInfo struct {
	ClientID    string
	Version     int
	Unconfirmed int
}

// SessionConfig configures Connect.
type SessionConfig struct {
	Provider netcollab.Provider
	Bus      *event.Bus
	Logger   *logging.Logger
}

// Session keeps a view in sync with an authority: local changes are
// pushed and remote steps are received as they are announced.
type Session struct {
	ext      *Extension
	view     *view.View
	provider netcollab.Provider
	bus      *event.Bus
	logger   *logging.Logger

	local  chan struct{}
	syncMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Connect starts syncing v through cfg.Provider until ctx ends or the
// session is closed. The provider stays owned by the caller.
func (e *Extension) Connect(ctx context.Context, v *view.View, cfg SessionConfig) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return nil, ErrSessionActive
	}
	ctx, cancel := context.WithCancel(ctx)
	logger := cfg.Logger
	if logger == nil {
		logger = e.Logger()
	}
	s := &Session{
		ext:      e,
		view:     v,
		provider: cfg.Provider,
		bus:      cfg.Bus,
		logger:   logging.OrNop(logger).WithComponent("collab").WithField("client", e.ClientID()),
		local:    make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	e.session = s
	go s.run(ctx)
	return s, nil
}

func (s *Session) kick() {
	select {
	case s.local <- struct{}{}:
	default:
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	s.kick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.local:
		case <-s.provider.Notify():
		}
		if err := s.Sync(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("sync failed: %v", err)
		}
	}
}

// Sync pulls and applies remote steps, then pushes local ones, until the
// authority has confirmed every local step.
func (s *Session) Sync(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	for {
		if err := s.pull(ctx); err != nil {
			return err
		}
		send, ok := s.ext.SendableSteps(s.view.State())
		if !ok {
			s.publish(ctx)
			return nil
		}
		raw := make([]map[string]any, len(send.Steps))
		for i, step := range send.Steps {
			raw[i] = step.ToJSON()
		}
		if _, err := s.provider.Push(ctx, send.Version, raw, send.ClientID); err != nil {
			return fmt.Errorf("push at version %d: %w", send.Version, err)
		}
		// Accepted steps come back through the next pull as confirmations;
		// rejected ones are rebased by it.
	}
}

func (s *Session) pull(ctx context.Context) error {
	if s.view.Destroyed() {
		return view.ErrDestroyed
	}
	version := s.ext.Version(s.view.State())
	u, err := s.provider.Pull(ctx, version)
	if err != nil {
		return fmt.Errorf("pull from version %d: %w", version, err)
	}
	if len(u.Steps) == 0 {
		return nil
	}
	schema := s.view.State().Schema
	steps := make([]transform.Step, len(u.Steps))
	for i, raw := range u.Steps {
		if steps[i], err = transform.StepFromJSON(schema, raw); err != nil {
			return err
		}
	}
	start := u.Version - len(u.Steps)

	applied := make(chan struct{})
	s.view.DispatchFunc(func(cur *state.EditorState) *state.Transaction {
		defer close(applied)
		if cur == nil {
			return nil
		}
		skip := s.ext.Version(cur) - start
		if skip < 0 || skip >= len(steps) {
			return nil
		}
		return s.ext.ReceiveTransaction(cur, steps[skip:], u.ClientIDs[skip:])
	})
	select {
	case <-applied:
		s.logger.Debug("received %d steps, now at version %d", len(steps), u.Version)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) publish(ctx context.Context) {
	if s.bus == nil {
		return
	}
	st := s.ext.GetState(s.view.State())
	info := SyncInfo{ClientID: s.ext.ClientID(), Version: st.Version, Unconfirmed: len(st.Unconfirmed)}
	if err := s.bus.Publish(ctx, event.New(event.TopicCollabSync, info, Name)); err != nil {
		s.logger.Warn("publish sync: %v", err)
	}
}

// Close stops the session and waits for its loop to exit.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.ext.mu.Lock()
		if s.ext.session == s {
			s.ext.session = nil
		}
		s.ext.mu.Unlock()
	})
}
