package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/dshills/inkstorm/internal/collab"
	"github.com/dshills/inkstorm/internal/logging"
)

// Server serves an authority to websocket clients.
type Server struct {
	auth         *collab.Authority
	logger       *logging.Logger
	upgrader     websocket.Upgrader
	WriteTimeout time.Duration
}

// NewServer creates a server for auth.
func NewServer(auth *collab.Authority, logger *logging.Logger) *Server {
	return &Server{
		auth:         auth,
		logger:       logging.OrNop(logger).WithComponent("collab.ws"),
		WriteTimeout: 10 * time.Second,
	}
}

// ServeHTTP upgrades the connection and serves it until the client leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so a client sees every
	// commit made after Dial returns.
	notify, release := s.auth.Subscribe()
	defer release()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(m message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
		return conn.WriteMessage(websocket.TextMessage, encode(m))
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-notify:
				if err := write(message{Type: TypeNotify, Version: s.auth.Version()}); err != nil {
					return
				}
			}
		}
	}()

	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read: %v", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if err := write(s.handle(raw)); err != nil {
			s.logger.Debug("write: %v", err)
			return
		}
	}
}

func (s *Server) handle(raw []byte) message {
	msg := gjson.ParseBytes(raw)
	id := msg.Get("id").Int()
	version := int(msg.Get("version").Int())
	fail := func(err error) message {
		return message{Type: TypeError, ID: id, Error: err.Error()}
	}

	switch t := msg.Get("type").String(); t {
	case TypePush:
		var steps []map[string]any
		if r := msg.Get("steps"); r.Exists() {
			if err := json.Unmarshal([]byte(r.Raw), &steps); err != nil {
				return fail(err)
			}
		}
		ok, err := s.auth.Receive(version, steps, msg.Get("clientID").String())
		if err != nil {
			return fail(err)
		}
		return message{Type: TypeResult, ID: id, OK: ok}
	case TypePull:
		u, err := s.auth.StepsSince(version)
		if err != nil {
			return fail(err)
		}
		return message{Type: TypeSteps, ID: id, Version: u.Version, Steps: u.Steps, ClientIDs: u.ClientIDs}
	default:
		s.logger.Warn("unknown message type %q", t)
		return message{Type: TypeError, ID: id, Error: ErrUnknownMessage.Error() + ": " + t}
	}
}
