package placeholder

import (
	"testing"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
)

func TestDecoratesOnlyEmptyDocs(t *testing.T) {
	schema, err := model.NewSchema(model.SchemaSpec{Nodes: []model.NodeSpec{
		{Name: "doc", Content: "block+"},
		{Name: "paragraph", Content: "inline*", Group: "block"},
		{Name: "text", Group: "inline", Inline: true},
	}})
	if err != nil {
		t.Fatal(err)
	}
	ext := New(func(o *Options) { o.Placeholder = "Write something" })
	p := ext.Plugin(nil)
	st, err := state.Create(state.Config{Schema: schema, Plugins: []*state.Plugin{p}})
	if err != nil {
		t.Fatal(err)
	}

	set := p.Spec.Props.Decorations(st)
	if set.Len() != 1 || set.All()[0].Attrs["data-placeholder"] != "Write something" {
		t.Fatalf("decorations = %v", set.All())
	}

	st, err = st.Apply(st.Tr().InsertText("x", -1, -1))
	if err != nil {
		t.Fatal(err)
	}
	if set := p.Spec.Props.Decorations(st); set.Len() != 0 {
		t.Errorf("non-empty doc decorated: %d", set.Len())
	}
}
