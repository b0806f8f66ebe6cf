package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dshills/inkstorm/internal/collab"
)

func startServer(t *testing.T) (*collab.Authority, string) {
	t.Helper()
	auth := collab.NewAuthority()
	srv := httptest.NewServer(NewServer(auth, nil))
	t.Cleanup(srv.Close)
	return auth, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPushPullNotify(t *testing.T) {
	auth, url := startServer(t)
	a, b := dial(t, url), dial(t, url)
	defer a.Close()
	defer b.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	steps := []map[string]any{{"stepType": "replace", "from": 1, "to": 1}}
	ok, err := a.Push(ctx, 0, steps, "a")
	if err != nil || !ok {
		t.Fatalf("Push = %v, %v", ok, err)
	}
	if ok, err := b.Push(ctx, 0, steps, "b"); err != nil || ok {
		t.Errorf("stale Push = %v, %v", ok, err)
	}

	select {
	case <-b.Notify():
	case <-ctx.Done():
		t.Fatal("no notification")
	}
	u, err := b.Pull(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if u.Version != 1 || len(u.ClientIDs) != 1 || u.ClientIDs[0] != "a" {
		t.Errorf("update = %+v", u)
	}
	if from, _ := u.Steps[0]["from"].(float64); from != 1 {
		t.Errorf("step = %v", u.Steps[0])
	}
	if auth.Version() != 1 {
		t.Errorf("authority version = %d", auth.Version())
	}
}

func TestRemoteErrors(t *testing.T) {
	_, url := startServer(t)
	c := dial(t, url)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := c.Pull(ctx, 3); !errors.Is(err, ErrRemote) {
		t.Errorf("err = %v, want ErrRemote", err)
	}
	if _, err := c.request(ctx, message{Type: "bogus"}); !errors.Is(err, ErrRemote) {
		t.Errorf("err = %v, want ErrRemote", err)
	}
	if err := c.Close(); err != nil {
		t.Logf("close: %v", err)
	}
	if _, err := c.Pull(ctx, 0); !errors.Is(err, collab.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}
