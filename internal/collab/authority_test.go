package collab

import (
	"errors"
	"testing"
)

func step(n int) map[string]any {
	return map[string]any{"stepType": "replace", "from": n, "to": n}
}

func TestAuthorityOrdersSteps(t *testing.T) {
	a := NewAuthority()
	notify, release := a.Subscribe()
	defer release()

	tests := []struct {
		name    string
		version int
		client  string
		steps   int
		ok      bool
		err     error
	}{
		{"first push", 0, "a", 2, true, nil},
		{"stale push", 0, "b", 1, false, nil},
		{"ahead push", 5, "b", 1, false, ErrVersionAhead},
		{"no client", 2, "", 1, false, ErrEmptyClientID},
		{"rebased push", 2, "b", 1, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := make([]map[string]any, tt.steps)
			for i := range steps {
				steps[i] = step(i)
			}
			ok, err := a.Receive(tt.version, steps, tt.client)
			if ok != tt.ok || !errors.Is(err, tt.err) {
				t.Errorf("Receive = %v, %v; want %v, %v", ok, err, tt.ok, tt.err)
			}
		})
	}

	select {
	case <-notify:
	default:
		t.Error("subscriber not notified")
	}
	if a.Version() != 3 {
		t.Fatalf("version = %d", a.Version())
	}
	u, err := a.StepsSince(1)
	if err != nil {
		t.Fatal(err)
	}
	if u.Version != 3 || len(u.Steps) != 2 || u.ClientIDs[0] != "a" || u.ClientIDs[1] != "b" {
		t.Errorf("update = %+v", u)
	}
	if _, err := a.StepsSince(4); !errors.Is(err, ErrVersionAhead) {
		t.Errorf("err = %v", err)
	}
}
