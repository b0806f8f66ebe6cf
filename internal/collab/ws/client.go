package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/dshills/inkstorm/internal/collab"
	"github.com/dshills/inkstorm/internal/logging"
)

// Client is a collab.Provider talking to a Server.
type Client struct {
	conn   *websocket.Conn
	logger *logging.Logger
	notify chan struct{}
	done   chan struct{}

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan []byte
	err     error
}

// Dial connects to a collab server at url ("ws://host/path").
func Dial(ctx context.Context, url string, logger *logging.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		logger:  logging.OrNop(logger).WithComponent("collab.ws"),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make(map[int64]chan []byte),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		msg := gjson.ParseBytes(raw)
		switch t := msg.Get("type").String(); t {
		case TypeNotify:
			select {
			case c.notify <- struct{}{}:
			default:
			}
		case TypeResult, TypeSteps, TypeError:
			id := msg.Get("id").Int()
			c.mu.Lock()
			ch, ok := c.pending[id]
			delete(c.pending, id)
			c.mu.Unlock()
			if ok {
				ch <- raw
			}
		default:
			c.logger.Warn("unknown message type %q", t)
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = collab.ErrClosed
		c.logger.Debug("connection closed: %v", err)
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) request(ctx context.Context, m message) (gjson.Result, error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return gjson.Result{}, c.err
	}
	c.nextID++
	m.ID = c.nextID
	ch := make(chan []byte, 1)
	c.pending[m.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(dl)
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
	err := c.conn.WriteMessage(websocket.TextMessage, encode(m))
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, m.ID)
		c.mu.Unlock()
		return gjson.Result{}, err
	}

	select {
	case raw, ok := <-ch:
		if !ok {
			return gjson.Result{}, collab.ErrClosed
		}
		res := gjson.ParseBytes(raw)
		if res.Get("type").String() == TypeError {
			return gjson.Result{}, fmt.Errorf("%w: %s", ErrRemote, res.Get("error").String())
		}
		return res, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, m.ID)
		c.mu.Unlock()
		return gjson.Result{}, ctx.Err()
	}
}

// Push implements collab.Provider.
func (c *Client) Push(ctx context.Context, version int, steps []map[string]any, clientID string) (bool, error) {
	res, err := c.request(ctx, message{Type: TypePush, Version: version, ClientID: clientID, Steps: steps})
	if err != nil {
		return false, err
	}
	return res.Get("ok").Bool(), nil
}

// Pull implements collab.Provider.
func (c *Client) Pull(ctx context.Context, version int) (collab.Update, error) {
	res, err := c.request(ctx, message{Type: TypePull, Version: version})
	if err != nil {
		return collab.Update{}, err
	}
	u := collab.Update{Version: int(res.Get("version").Int())}
	if r := res.Get("steps"); r.Exists() {
		if err := json.Unmarshal([]byte(r.Raw), &u.Steps); err != nil {
			return collab.Update{}, err
		}
	}
	res.Get("clientIDs").ForEach(func(_, v gjson.Result) bool {
		u.ClientIDs = append(u.ClientIDs, v.String())
		return true
	})
	return u, nil
}

// Notify implements collab.Provider.
func (c *Client) Notify() <-chan struct{} { return c.notify }

// Close implements collab.Provider.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}
