// Package core provides the document, paragraph and text nodes every
// editor needs.
package core

import (
	"github.com/dshills/inkstorm/internal/commands"
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/extension"
)

// Options configure the core nodes.
type Options struct {
	// Content is the document content expression.
	Content string `toml:"content"`
}

// Doc is the top-level node.
type Doc struct {
	*extension.Base[Options]
}

// NewDoc creates the doc extension.
func NewDoc(opts ...func(*Options)) *Doc {
	return &Doc{Base: extension.NewBase("doc", extension.KindNode, Options{Content: "block+"}, opts...).
		WithPriority(extension.PriorityHighest)}
}

// NodeSpec implements extension.NodeSpecProvider.
func (d *Doc) NodeSpec() model.NodeSpec {
	return model.NodeSpec{Name: "doc", Content: d.Options().Content}
}

// Paragraph is the default block.
type Paragraph struct {
	*extension.Base[struct{}]
}

// NewParagraph creates the paragraph extension.
func NewParagraph() *Paragraph {
	return &Paragraph{Base: extension.NewBase("paragraph", extension.KindNode, struct{}{}).
		WithPriority(extension.PriorityHighest).
		WithTags(extension.TagBlockNode, extension.TagTextblock)}
}

// NodeSpec implements extension.NodeSpecProvider.
func (p *Paragraph) NodeSpec() model.NodeSpec {
	return model.NodeSpec{
		Name:      "paragraph",
		Content:   "inline*",
		Group:     "block",
		ParseHTML: []model.ParseRule{{Tag: "p"}},
		ToHTML:    func(*model.Node) model.HTMLSpec { return model.HTMLSpec{Tag: "p"} },
	}
}

// Commands implements extension.CommandProvider.
func (p *Paragraph) Commands() map[string]extension.CommandFactory {
	return map[string]extension.CommandFactory{
		"convertParagraph": extension.Simple(commands.SetBlockType("paragraph", nil)),
	}
}

// Text is the inline text node.
type Text struct {
	*extension.Base[struct{}]
}

// NewText creates the text extension.
func NewText() *Text {
	return &Text{Base: extension.NewBase("text", extension.KindNode, struct{}{}).
		WithPriority(extension.PriorityHighest).
		WithTags(extension.TagInlineNode)}
}

// NodeSpec implements extension.NodeSpecProvider.
func (t *Text) NodeSpec() model.NodeSpec {
	return model.NodeSpec{Name: "text", Group: "inline", Inline: true}
}

// Preset bundles doc, paragraph and text.
func Preset() extension.Preset {
	return extension.NewPreset("core", NewDoc(), NewParagraph(), NewText())
}
