package terminal

import (
	"testing"

	"github.com/dshills/inkstorm/internal/engine/decoration"
	"github.com/dshills/inkstorm/internal/engine/model"
)

func testSchema(t *testing.T) *model.Schema {
	t.Helper()
	s, err := model.NewSchema(model.SchemaSpec{
		Nodes: []model.NodeSpec{
			{Name: "doc", Content: "block+"},
			{Name: "paragraph", Content: "inline*", Group: "block"},
			{Name: "heading", Content: "inline*", Group: "block"},
			{Name: "text", Group: "inline", Inline: true},
			{Name: "hard_break", Group: "inline", Inline: true},
		},
		Marks: []model.MarkSpec{
			{Name: "bold"},
			{Name: "link", Attrs: map[string]model.AttributeSpec{"href": {}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func buildDoc(t *testing.T, s *model.Schema, blocks ...[]*model.Node) *model.Node {
	t.Helper()
	var children []*model.Node
	for i, inline := range blocks {
		name := "paragraph"
		if i == 0 && len(inline) > 0 && inline[0].Text == "Title" {
			name = "heading"
		}
		n, err := s.Node(name, nil, inline)
		if err != nil {
			t.Fatal(err)
		}
		children = append(children, n)
	}
	doc, err := s.Node("doc", nil, children)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func rowText(l Line) string {
	var out string
	for _, c := range l.Cells {
		out += c.Text
	}
	return out
}

func TestLayoutWraps(t *testing.T) {
	s := testSchema(t)
	doc := buildDoc(t, s, []*model.Node{s.Text("hello world")}, nil)
	f := Layout(doc, nil, 5)

	want := []struct {
		text       string
		start, end int
	}{
		{"hello", 1, 6},
		{" worl", 6, 11},
		{"d", 11, 12},
		{"", 14, 14},
	}
	if len(f.Lines) != len(want) {
		t.Fatalf("lines = %d, want %d", len(f.Lines), len(want))
	}
	for i, w := range want {
		l := f.Lines[i]
		if rowText(l) != w.text || l.Start != w.start || l.End != w.end {
			t.Errorf("line %d = %q [%d,%d], want %q [%d,%d]", i, rowText(l), l.Start, l.End, w.text, w.start, w.end)
		}
	}

	locate := []struct{ pos, x, y int }{
		{1, 0, 0},
		{5, 4, 0},
		{6, 0, 1},
		{12, 1, 2},
		{14, 0, 3},
		{13, 1, 2},
	}
	for _, tt := range locate {
		if x, y := f.Locate(tt.pos); x != tt.x || y != tt.y {
			t.Errorf("Locate(%d) = %d,%d, want %d,%d", tt.pos, x, y, tt.x, tt.y)
		}
	}

	posAt := []struct{ x, y, pos int }{
		{3, 1, 9},
		{10, 2, 12},
		{0, 9, 14},
		{2, -3, 3},
	}
	for _, tt := range posAt {
		if got := f.PosAt(tt.x, tt.y); got != tt.pos {
			t.Errorf("PosAt(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.pos)
		}
	}
}

func TestLayoutWideClusters(t *testing.T) {
	s := testSchema(t)
	doc := buildDoc(t, s, []*model.Node{s.Text("日本語👩‍💻")})
	f := Layout(doc, nil, 4)
	if len(f.Lines) != 2 || rowText(f.Lines[0]) != "日本" || rowText(f.Lines[1]) != "語👩‍💻" {
		t.Fatalf("rows = %q", []string{rowText(f.Lines[0]), rowText(f.Lines[len(f.Lines)-1])})
	}
	last := f.Lines[1].Cells[1]
	if last.Width != 2 || last.Runes != 3 || last.Pos != 4 {
		t.Errorf("emoji cell = %+v", last)
	}
	if f.Lines[1].End != 7 || f.Lines[1].Width() != 4 {
		t.Errorf("line = %+v", f.Lines[1])
	}
	if x, _ := f.Locate(7); x != 4 {
		t.Errorf("cursor after emoji at column %d", x)
	}
}

func TestLayoutStylesAndBreaks(t *testing.T) {
	s := testSchema(t)
	brk, err := s.Node("hard_break", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	doc := buildDoc(t, s,
		[]*model.Node{s.Text("Title")},
		[]*model.Node{
			s.Text("a", s.Mark("bold", nil)),
			brk,
			s.Text("go", s.Mark("link", model.Attrs{"href": "https://go.dev"})),
		},
	)
	decos := decoration.Create(doc, decoration.NewInline(11, 12, map[string]string{"class": "x"}, nil))
	f := Layout(doc, decos, 80)
	if len(f.Lines) != 3 {
		t.Fatalf("lines = %d", len(f.Lines))
	}
	if !f.Lines[0].Cells[0].Style.Bold {
		t.Error("heading not bold")
	}
	if c := f.Lines[1].Cells[0]; !c.Style.Bold || c.Pos != 8 || f.Lines[1].End != 9 {
		t.Errorf("bold row = %+v end %d", c, f.Lines[1].End)
	}
	row := f.Lines[2]
	if row.Start != 10 || row.Cells[0].Style.Link != "https://go.dev" {
		t.Errorf("link row = %+v", row)
	}
	if row.Cells[0].Style.Highlight || !row.Cells[1].Style.Highlight {
		t.Errorf("highlight = %v %v", row.Cells[0].Style.Highlight, row.Cells[1].Style.Highlight)
	}
}
