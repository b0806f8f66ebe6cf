// Package collab is the transport between collaborating editors and the
// authority that orders their steps.
//
// Steps travel as their JSON form so neither the authority nor a
// transport needs the document schema. An editor pushes the steps it
// made on top of a version; the authority accepts them only when that
// version is current, and every editor pulls what it has not seen yet.
package collab

import "context"

// Update is a run of committed steps. Version is the authority version
// after the last step.
type Update struct {
	Version   int
	Steps     []map[string]any
	ClientIDs []string
}

// Provider connects one editor to an authority.
type Provider interface {
	// Push submits steps made on top of version. It reports false when
	// the authority has moved past version; the caller pulls and retries.
	Push(ctx context.Context, version int, steps []map[string]any, clientID string) (bool, error)

	// Pull returns the steps committed after version.
	Pull(ctx context.Context, version int) (Update, error)

	// Notify is signalled whenever new steps are committed. Signals may
	// be coalesced.
	Notify() <-chan struct{}

	// Close disconnects the provider.
	Close() error
}
