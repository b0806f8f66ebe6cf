package extension

import (
	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
)

// Kind distinguishes plain, node and mark extensions.
type Kind int

// Extension kinds.
const (
	KindPlain Kind = iota
	KindNode
	KindMark
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindMark:
		return "mark"
	default:
		return "plain"
	}
}

// Priority orders extensions. Higher values load first and win name
// collisions.
type Priority int

// Well-known priorities.
const (
	PriorityLowest   Priority = 0
	PriorityLow      Priority = 10
	PriorityDefault  Priority = 100
	PriorityMedium   Priority = 1000
	PriorityHigh     Priority = 10000
	PriorityHighest  Priority = 100000
	PriorityCritical Priority = 1000000
)

// Tag labels a capability of an extension, used for cross-extension
// queries.
type Tag string

// Common tags.
const (
	TagInlineNode         Tag = "inline-node"
	TagBlockNode          Tag = "block-node"
	TagTextblock          Tag = "textblock"
	TagFormatting         Tag = "formatting"
	TagCode               Tag = "code"
	TagBehavior           Tag = "behavior"
	TagLast               Tag = "last"
	TagExcludesInputRules Tag = "excludes-input-rules"
)

// Extension is a named unit of editor behavior.
type Extension interface {
	Name() string
	Kind() Kind
	Priority() Priority
	Tags() []Tag
}

// NodeSpecProvider contributes a node type. An empty spec name defaults
// to the extension name.
type NodeSpecProvider interface {
	NodeSpec() model.NodeSpec
}

// MarkSpecProvider contributes a mark type. An empty spec name defaults
// to the extension name.
type MarkSpecProvider interface {
	MarkSpec() model.MarkSpec
}

// CommandProvider contributes commands.
type CommandProvider interface {
	Commands() map[string]CommandFactory
}

// HelperProvider contributes helpers.
type HelperProvider interface {
	Helpers() map[string]Helper
}

// KeymapProvider contributes key bindings.
type KeymapProvider interface {
	Keymap() map[string]Command
}

// PluginProvider contributes the extension's own plugin. It runs after
// the schema exists.
type PluginProvider interface {
	Plugin(ctx *CreateContext) *state.Plugin
}

// ExternalPluginProvider contributes additional plugins.
type ExternalPluginProvider interface {
	ExternalPlugins(ctx *CreateContext) []*state.Plugin
}

// CreateHook runs once the schema and namespaces are built, before any
// view exists.
type CreateHook interface {
	OnCreate(ctx *CreateContext) error
}

// ViewHook runs when a view is attached.
type ViewHook interface {
	OnView(ctx *ViewContext) error
}

// TransactionHook runs after every applied transaction.
type TransactionHook interface {
	OnTransaction(u TransactionUpdate)
}

// DestroyHook runs when the manager is destroyed.
type DestroyHook interface {
	OnDestroy()
}

// Configurable extensions accept option updates decoded from
// configuration.
type Configurable interface {
	DecodeOptions(raw map[string]any) error
}

// Preset is a named bundle of extensions.
type Preset struct {
	Name       string
	Extensions []Extension
}

// NewPreset creates a preset.
func NewPreset(name string, exts ...Extension) Preset {
	return Preset{Name: name, Extensions: exts}
}

// HasTag reports whether ext carries tag.
func HasTag(ext Extension, tag Tag) bool {
	for _, t := range ext.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}
