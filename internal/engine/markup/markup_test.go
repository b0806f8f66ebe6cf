package markup

import (
	"testing"

	"github.com/dshills/inkstorm/internal/engine/model"
)

func boolPtr(b bool) *bool { return &b }

func testSchema(t *testing.T) *model.Schema {
	t.Helper()
	s, err := model.NewSchema(model.SchemaSpec{
		Nodes: []model.NodeSpec{
			{Name: "doc", Content: "block+"},
			{
				Name: "paragraph", Content: "inline*", Group: "block",
				ParseHTML: []model.ParseRule{{Tag: "p"}},
				ToHTML:    func(*model.Node) model.HTMLSpec { return model.HTMLSpec{Tag: "p"} },
			},
			{Name: "note", Content: "inline*", Group: "block"},
			{Name: "text", Group: "inline", Inline: true},
		},
		Marks: []model.MarkSpec{
			{
				Name:      "strong",
				ParseHTML: []model.ParseRule{{Tag: "strong"}, {Tag: "b"}},
				ToHTML:    func(*model.Mark) model.HTMLSpec { return model.HTMLSpec{Tag: "strong"} },
			},
			{
				Name: "link", Inclusive: boolPtr(false),
				Attrs: map[string]model.AttributeSpec{"href": {Required: true}},
				ParseHTML: []model.ParseRule{{Tag: "a", GetAttrs: func(a map[string]string) (model.Attrs, bool) {
					href, ok := a["href"]
					return model.Attrs{"href": href}, ok
				}}},
				ToHTML: func(m *model.Mark) model.HTMLSpec {
					return model.HTMLSpec{Tag: "a", Attrs: map[string]string{"href": m.Attrs["href"].(string)}}
				},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestParseAndSerialize(t *testing.T) {
	s := testSchema(t)
	tests := []struct {
		name string
		in   string
		text string
		out  string
	}{
		{"paragraph", "<p>hello</p>", "hello", "<p>hello</p>"},
		{"marks", "<p>a <b>bold</b> <a href=\"https://x.io\">x</a></p>", "a bold x", `<p>a <strong>bold</strong> <a href="https://x.io">x</a></p>`},
		{"nested marks share open element", "<p><strong>a<a href=\"u\">b</a></strong></p>", "ab", `<p><strong>a<a href="u">b</a></strong></p>`},
		{"bare text wrapped", "loose text", "loose text", "<p>loose text</p>"},
		{"fallback node", `<div data-node="note">n</div>`, "n", `<div data-node="note">n</div>`},
		{"whitespace collapsed", "<p>a \n  b</p>", "a b", "<p>a b</p>"},
		{"escaping", "<p>1 &lt; 2</p>", "1 < 2", "<p>1 &lt; 2</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(s, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got := doc.TextContent(); got != tt.text {
				t.Errorf("text = %q, want %q", got, tt.text)
			}
			if got := Serialize(doc); got != tt.out {
				t.Errorf("html = %s, want %s", got, tt.out)
			}
			back, err := Parse(s, Serialize(doc))
			if err != nil || !back.Eq(doc) {
				t.Errorf("round trip changed the document: %v", err)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	doc, err := Parse(testSchema(t), "")
	if err != nil {
		t.Fatal(err)
	}
	if doc.ChildCount() != 1 || doc.Content.Size() != 2 {
		t.Errorf("doc = %s", doc)
	}
}

func TestParseMissingRequiredAttr(t *testing.T) {
	// <a> without href does not match the link rule and is unwrapped.
	doc, err := Parse(testSchema(t), "<p><a>plain</a></p>")
	if err != nil {
		t.Fatal(err)
	}
	if doc.TextContent() != "plain" || len(doc.Child(0).Child(0).Marks) != 0 {
		t.Errorf("doc = %s", doc)
	}
}
