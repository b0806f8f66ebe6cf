// Package terminal draws an editor view on a character terminal with
// tcell and feeds key and mouse events back into the view.
package terminal

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/dshills/inkstorm/internal/engine/decoration"
	"github.com/dshills/inkstorm/internal/engine/model"
)

// leafGlyph stands in for inline leaf nodes such as images.
const leafGlyph = "◆"

// Style is the visual style of one cell.
type Style struct {
	Bold      bool
	Italic    bool
	Code      bool
	Highlight bool
	Link      string
	Mention   bool
}

// Cell is one grapheme cluster on screen.
type Cell struct {
	Text  string
	Width int
	// Pos is the document position before the cluster.
	Pos   int
	Runes int
	Style Style
}

// Line is one screen row. Start and End are the document positions at
// its edges.
type Line struct {
	Cells []Cell
	Start int
	End   int
}

// Width returns the number of columns the line occupies.
func (l Line) Width() int {
	w := 0
	for _, c := range l.Cells {
		w += c.Width
	}
	return w
}

// Frame is a document laid out for a given screen width.
type Frame struct {
	Width int
	Lines []Line
}

// Layout lays doc out in rows of at most width columns. Each textblock
// starts a new row and long blocks wrap at grapheme boundaries.
func Layout(doc *model.Node, decos *decoration.Set, width int) *Frame {
	if width < 1 {
		width = 1
	}
	f := &Frame{Width: width}
	doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsTextblock() {
			return true
		}
		f.layoutBlock(node, pos+1, decos)
		return false
	})
	if len(f.Lines) == 0 {
		f.Lines = []Line{{}}
	}
	return f
}

func (f *Frame) layoutBlock(block *model.Node, start int, decos *decoration.Set) {
	var inline []*decoration.Decoration
	if decos != nil {
		for _, d := range decos.Find(start, start+block.Content.Size(), nil) {
			if d.Kind == decoration.Inline {
				inline = append(inline, d)
			}
		}
	}
	base := Style{Bold: block.Type.Name == "heading"}

	line := Line{Start: start, End: start}
	x := 0
	put := func(c Cell) {
		if x+c.Width > f.Width && len(line.Cells) > 0 {
			f.Lines = append(f.Lines, line)
			line = Line{Start: c.Pos, End: c.Pos}
			x = 0
		}
		for _, d := range inline {
			if d.From < c.Pos+c.Runes && d.To > c.Pos {
				c.Style.Highlight = true
				break
			}
		}
		line.Cells = append(line.Cells, c)
		line.End = c.Pos + c.Runes
		x += c.Width
	}

	block.ForEach(func(child *model.Node, offset, _ int) {
		pos := start + offset
		if !child.IsText() {
			if child.Type.Name == "hard_break" {
				line.End = pos
				f.Lines = append(f.Lines, line)
				line = Line{Start: pos + 1, End: pos + 1}
				x = 0
				return
			}
			put(Cell{Text: leafGlyph, Width: 1, Pos: pos, Runes: child.NodeSize(), Style: base})
			return
		}
		style := markStyle(base, child.Marks)
		eachCluster(child.Text, func(cluster string, n, w int) {
			put(Cell{Text: cluster, Width: w, Pos: pos, Runes: n, Style: style})
			pos += n
		})
	})
	line.End = start + block.Content.Size()
	f.Lines = append(f.Lines, line)
}

// eachCluster calls fn for every grapheme cluster of text with its rune
// count and column width. Control characters draw as one blank column.
func eachCluster(text string, fn func(cluster string, runes, width int)) {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cluster := g.Str()
		n := utf8.RuneCountInString(cluster)
		w := uniseg.StringWidth(cluster)
		if r, _ := utf8.DecodeRuneInString(cluster); unicode.IsControl(r) {
			cluster, w = " ", 1
		}
		fn(cluster, n, max(w, 1))
	}
}

func markStyle(base Style, marks []*model.Mark) Style {
	s := base
	for _, m := range marks {
		switch m.Type.Name {
		case "bold":
			s.Bold = true
		case "italic":
			s.Italic = true
		case "code":
			s.Code = true
		case "mention":
			s.Mention = true
		case "link":
			s.Link, _ = m.Attrs["href"].(string)
		}
	}
	return s
}

// Locate returns the row and column of the cursor at pos. A position on
// a wrap boundary belongs to the later row.
func (f *Frame) Locate(pos int) (x, y int) {
	y = -1
	for i, l := range f.Lines {
		if pos >= l.Start && pos <= l.End {
			y = i
			if pos < l.End {
				break
			}
		} else if l.Start > pos {
			break
		}
	}
	if y < 0 {
		y = 0
		for i, l := range f.Lines {
			if l.End <= pos {
				y = i
			}
		}
	}
	for _, c := range f.Lines[y].Cells {
		if c.Pos >= pos {
			break
		}
		x += c.Width
	}
	return x, y
}

// PosAt returns the document position shown at column x of row y.
// Coordinates outside the frame are clamped.
func (f *Frame) PosAt(x, y int) int {
	y = max(0, min(y, len(f.Lines)-1))
	l := f.Lines[y]
	col := 0
	for _, c := range l.Cells {
		if x < col+c.Width {
			return c.Pos
		}
		col += c.Width
	}
	return l.End
}
