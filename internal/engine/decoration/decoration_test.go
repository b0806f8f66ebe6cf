package decoration

import (
	"testing"

	"github.com/dshills/inkstorm/internal/engine/transform"
)

func TestWidgetMapping(t *testing.T) {
	tests := []struct {
		name    string
		pos     int
		side    int
		mapping *transform.StepMap
		want    int
		deleted bool
	}{
		{"insert before", 5, 0, transform.NewStepMap(2, 0, 3), 8, false},
		{"insert after", 5, 0, transform.NewStepMap(7, 0, 3), 5, false},
		{"insert at, side after", 5, 0, transform.NewStepMap(5, 0, 3), 8, false},
		{"insert at, side before", 5, -1, transform.NewStepMap(5, 0, 3), 5, false},
		{"delete around", 5, 0, transform.NewStepMap(3, 4, 0), 0, true},
		{"delete before", 5, 0, transform.NewStepMap(1, 4, 0), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := Create(nil, NewWidget(tt.pos, "w", tt.side))
			mapped := set.Map(tt.mapping, nil)
			if tt.deleted {
				if mapped.Len() != 0 {
					t.Errorf("widget survived: %+v", mapped.All()[0])
				}
				return
			}
			if mapped.Len() != 1 || mapped.All()[0].From != tt.want {
				t.Errorf("mapped = %+v, want pos %d", mapped.All(), tt.want)
			}
		})
	}
}

func TestInlineMapping(t *testing.T) {
	d := NewInline(2, 6, map[string]string{"class": "hl"}, "x")
	if got := d.Map(transform.NewStepMap(6, 0, 2)); got.To != 6 {
		t.Errorf("non-inclusive end grew to %d", got.To)
	}
	d.InclusiveEnd = true
	if got := d.Map(transform.NewStepMap(6, 0, 2)); got.To != 8 {
		t.Errorf("inclusive end = %d, want 8", got.To)
	}
	if got := d.Map(transform.NewStepMap(1, 6, 0)); got != nil {
		t.Errorf("deleted inline decoration survived: %+v", got)
	}
}

func TestSetFindAddRemove(t *testing.T) {
	a := NewWidget(1, "a", 0)
	b := NewWidget(4, "b", 0)
	c := NewInline(2, 8, nil, "c")
	set := Create(nil, b, a).Add(nil, c)

	all := set.All()
	if len(all) != 3 || all[0] != a || all[1] != c || all[2] != b {
		t.Fatalf("order = %v", all)
	}
	if got := set.Find(3, 5, nil); len(got) != 2 {
		t.Errorf("Find(3,5) = %d decorations, want 2", len(got))
	}
	got := set.Find(-1, -1, func(spec any) bool { return spec == "a" })
	if len(got) != 1 || got[0] != a {
		t.Errorf("Find by spec = %v", got)
	}
	if set.Remove(a, b).Len() != 1 {
		t.Error("Remove did not drop decorations")
	}
	if set.Len() != 3 {
		t.Error("Remove mutated the original set")
	}
	if Empty.Map(transform.NewStepMap(0, 0, 1), nil) != Empty {
		t.Error("mapping the empty set allocated")
	}
}
