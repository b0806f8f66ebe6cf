package link

import (
	"testing"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/engine/view"
	"github.com/dshills/inkstorm/internal/extensions/basekeymap"
	"github.com/dshills/inkstorm/internal/extensions/core"
	"github.com/dshills/inkstorm/internal/extensions/formatting"
	"github.com/dshills/inkstorm/internal/manager"
)

type linkSpan struct {
	from, to int
	href     string
	auto     bool
}

func links(doc *model.Node) []linkSpan {
	var out []linkSpan
	doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsText() {
			return true
		}
		for _, m := range node.Marks {
			if m.Type.Name != "link" {
				continue
			}
			href, _ := m.Attrs["href"].(string)
			auto, _ := m.Attrs["auto"].(bool)
			end := pos + node.NodeSize()
			if n := len(out); n > 0 && out[n-1].to == pos && out[n-1].href == href {
				out[n-1].to = end
				continue
			}
			out = append(out, linkSpan{from: pos, to: end, href: href, auto: auto})
		}
		return false
	})
	return out
}

func newEditor(t *testing.T) (*manager.Manager, *Extension, *view.View) {
	t.Helper()
	ext, err := New(func(o *Options) { o.AutoLink = true })
	if err != nil {
		t.Fatal(err)
	}
	m, err := manager.New(
		manager.WithPresets(core.Preset(), formatting.Preset()),
		manager.WithExtensions(ext, basekeymap.New()),
	)
	if err != nil {
		t.Fatal(err)
	}
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	return m, ext, v
}

func TestTypingURLCreatesOneLink(t *testing.T) {
	_, ext, v := newEditor(t)
	v.TypeText("check https://example.com out")

	st := v.State()
	if got := st.Doc.TextContent(); got != "check https://example.com out" {
		t.Fatalf("text = %q", got)
	}
	got := links(st.Doc)
	want := []linkSpan{{from: 7, to: 26, href: "https://example.com", auto: true}}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("links = %+v, want %+v", got, want)
	}
	if tr := ext.rescan(st, nil); tr != nil {
		t.Error("rescan of an unchanged document produced a transaction")
	}
}

func TestWWWLinkGetsDefaultProtocol(t *testing.T) {
	_, _, v := newEditor(t)
	v.TypeText("www.go.dev ")
	got := links(v.State().Doc)
	if len(got) != 1 || got[0].href != "https://www.go.dev" {
		t.Errorf("links = %+v", got)
	}
}

func TestSplitRescansPreviousBlock(t *testing.T) {
	_, _, v := newEditor(t)
	v.TypeText("see https://example.com")
	// Put the cursor after "https://exam" and split the block there.
	v.Dispatch(v.State().Tr().SetSelection(state.Cursor(17)))
	if !v.PressKey("Enter") {
		t.Fatal("Enter not handled")
	}
	st := v.State()
	if st.Doc.ChildCount() != 2 {
		t.Fatalf("doc = %s", st.Doc)
	}
	got := links(st.Doc)
	if len(got) != 1 || got[0].href != "https://exam" || got[0].from != 5 || got[0].to != 17 {
		t.Errorf("links = %+v", got)
	}
}

func TestEditAwayFromCursorIsRescanned(t *testing.T) {
	_, _, v := newEditor(t)
	v.TypeText("first")
	if !v.PressKey("Enter") {
		t.Fatal("Enter not handled")
	}
	v.TypeText("second")

	// The cursor stays in the second block while the first one changes.
	v.Dispatch(v.State().Tr().InsertText(" https://example.com", 6, 6))
	got := links(v.State().Doc)
	if len(got) != 1 || got[0].from != 7 || got[0].to != 26 || !got[0].auto {
		t.Fatalf("links = %+v", got)
	}

	v.Dispatch(v.State().Tr().InsertText(" ", 19, 19))
	got = links(v.State().Doc)
	if len(got) != 1 || got[0].href != "https://exam" || got[0].to != 19 {
		t.Errorf("links after breaking the URL = %+v", got)
	}
}

func TestCodeExcludesAutoLink(t *testing.T) {
	m, _, v := newEditor(t)
	if ok, err := m.Commands().Run("toggleCode"); err != nil || !ok {
		t.Fatalf("toggleCode = %v, %v", ok, err)
	}
	v.TypeText("https://example.com ")
	if got := links(v.State().Doc); len(got) != 0 {
		t.Errorf("links in code = %+v", got)
	}
}

func TestManualLinksSurviveRescan(t *testing.T) {
	m, _, v := newEditor(t)
	v.TypeText("read the docs")
	if ok, err := m.Commands().Run("updateLink", "https://go.dev/doc", 10, 14); err != nil || !ok {
		t.Fatalf("updateLink = %v, %v", ok, err)
	}
	v.TypeText(" now")
	got := links(v.State().Doc)
	if len(got) != 1 || got[0].auto || got[0].href != "https://go.dev/doc" {
		t.Fatalf("links = %+v", got)
	}

	v.Dispatch(v.State().Tr().SetSelection(state.Cursor(12)))
	if active, _ := m.Helpers().Call("isLinkActive"); active != true {
		t.Error("isLinkActive = false inside link")
	}
	if ok, _ := m.Commands().Run("selectLink"); !ok {
		t.Fatal("selectLink failed")
	}
	if sel := v.State().Selection; sel.From() != 10 || sel.To() != 14 {
		t.Errorf("selection = %s", sel)
	}
	if ok, _ := m.Commands().Run("removeLink"); !ok || len(links(v.State().Doc)) != 0 {
		t.Error("removeLink failed")
	}
	if enabled, _ := m.Commands().Enabled("removeLink"); enabled {
		t.Error("removeLink enabled without a link")
	}
}

func TestInvalidPattern(t *testing.T) {
	if _, err := New(func(o *Options) { o.AutoLinkPattern = "(" }); err == nil {
		t.Error("invalid pattern accepted")
	}
}
