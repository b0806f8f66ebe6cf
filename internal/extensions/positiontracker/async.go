package positiontracker

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/extension"
)

// ErrNoDispatcher is returned when an async insert runs without a view
// that can build transactions against its current state.
var ErrNoDispatcher = errors.New("async insert requires a view with DispatchFunc")

// ErrTrackerLost is returned when the reserved insertion point was deleted
// before the text resolved.
var ErrTrackerLost = errors.New("insertion point deleted before text resolved")

// PendingText produces text to insert once it is available.
type PendingText func(ctx context.Context) (string, error)

// funcDispatcher is a view that builds transactions from its state at
// dispatch time.
type funcDispatcher interface {
	DispatchFunc(build view.Builder)
}

// InsertTextAsync reserves the current selection head with a tracker,
// resolves pending on a new goroutine and inserts the text wherever the
// tracker is when it resolves. Edits made in between are kept. The
// returned channel yields the outcome and is then closed.
func (e *Extension) InsertTextAsync(ctx context.Context, v state.EditorView, pending PendingText) <-chan error {
	done := make(chan error, 1)
	d, ok := v.(funcDispatcher)
	if !ok || pending == nil {
		done <- ErrNoDispatcher
		close(done)
		return done
	}
	id := "async-" + uuid.NewString()
	props := extension.PropsFor(v.State(), v.Dispatch, v)
	if !e.Add(id, -1)(props) {
		done <- ErrTrackerLost
		close(done)
		return done
	}

	go func() {
		text, err := pending(ctx)
		if err == nil {
			err = ctx.Err()
		}
		// The builder may run on another goroutine's dispatch loop, so it
		// reports the outcome itself. A nil state means the view is gone.
		d.DispatchFunc(func(s *state.EditorState) *state.Transaction {
			if s == nil {
				done <- view.ErrDestroyed
				close(done)
				return nil
			}
			pos, tracked := e.Find(s, id)
			tr := s.Tr()
			e.container.SetMeta(tr, instruction{op: opRemove, id: id})
			switch {
			case err != nil:
			case !tracked:
				err = ErrTrackerLost
				tr = nil
			default:
				tr.InsertText(text, pos, pos)
			}
			if err != nil {
				e.Logger().Warn("async insert %s: %v", id, err)
			}
			done <- err
			close(done)
			return tr
		})
	}()
	return done
}

func (e *Extension) insertTextAsyncCommand(pending PendingText) extension.Command {
	return func(p extension.CommandProps) bool {
		if pending == nil || p.View == nil {
			return false
		}
		if _, ok := p.View.(funcDispatcher); !ok {
			return false
		}
		if p.DryRun() {
			return true
		}
		e.InsertTextAsync(context.Background(), p.View, pending)
		return true
	}
}
