// Package ws carries the collab protocol over websockets: a Server
// exposing an authority over HTTP and a Client implementing
// collab.Provider.
//
// Messages are JSON objects routed by their "type" field:
//
//	push    client -> server  {id, version, clientID, steps}
//	pull    client -> server  {id, version}
//	result  server -> client  {id, ok}
//	steps   server -> client  {id, version, steps, clientIDs}
//	error   server -> client  {id, error}
//	notify  server -> client  {version}
package ws

import (
	"encoding/json"
	"errors"
)

// Message types.
const (
	TypePush   = "push"
	TypePull   = "pull"
	TypeResult = "result"
	TypeSteps  = "steps"
	TypeError  = "error"
	TypeNotify = "notify"
)

// Errors returned by the websocket transport.
var (
	// ErrUnknownMessage is returned for a message with an unknown type.
	ErrUnknownMessage = errors.New("unknown collab message type")

	// ErrRemote wraps an error reported by the server.
	ErrRemote = errors.New("collab server error")
)

type message struct {
	Type      string           `json:"type"`
	ID        int64            `json:"id,omitempty"`
	Version   int              `json:"version"`
	ClientID  string           `json:"clientID,omitempty"`
	Steps     []map[string]any `json:"steps,omitempty"`
	ClientIDs []string         `json:"clientIDs,omitempty"`
	OK        bool             `json:"ok,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func encode(m message) []byte {
	b, _ := json.Marshal(m)
	return b
}
