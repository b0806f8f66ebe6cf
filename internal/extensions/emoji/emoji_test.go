package emoji

import (
	"testing"

	"github.com/dshills/inkstorm/internal/extensions/core"
	"github.com/dshills/inkstorm/internal/extensions/suggest"
	"github.com/dshills/inkstorm/internal/manager"
)

func TestSearch(t *testing.T) {
	e := New(func(o *Options) { o.Limit = 3 })
	tests := []struct {
		query string
		want  []string
	}{
		{"SMILE", []string{"smile", "smiley"}},
		{"Heart", []string{"heart", "heart_eyes"}},
		{"up", []string{"thumbsup"}},
		{"s", []string{"sad", "scream", "smile"}},
		{"nothing-here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := e.Search(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) = %v", tt.query, got)
			}
			for i := range got {
				if got[i].Code != tt.want[i] {
					t.Errorf("result %d = %s, want %s", i, got[i].Code, tt.want[i])
				}
			}
		})
	}
}

func TestInsertEmoji(t *testing.T) {
	m, err := manager.New(manager.WithPresets(core.Preset()), manager.WithExtensions(suggest.New(), New()))
	if err != nil {
		t.Fatal(err)
	}
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	v.TypeText("launch :roc")
	if q, _ := m.Helpers().Call("emojiQuery"); q != "roc" {
		t.Errorf("query = %v", q)
	}
	if ok, _ := m.Commands().Run("insertEmoji", "rocket"); !ok {
		t.Fatal("insertEmoji failed")
	}
	if got := v.State().Doc.TextContent(); got != "launch 🚀" {
		t.Errorf("text = %q", got)
	}
	if ok, _ := m.Commands().Run("insertEmoji", "tada"); !ok {
		t.Fatal("insertEmoji at cursor failed")
	}
	if got := v.State().Doc.TextContent(); got != "launch 🚀🎉" {
		t.Errorf("text = %q", got)
	}
	if ok, _ := m.Commands().Enabled("insertEmoji", "no-such-code"); ok {
		t.Error("unknown shortcode enabled")
	}
}
