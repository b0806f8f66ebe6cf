package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Attrs holds node or mark attributes.
type Attrs map[string]any

// Clone returns a shallow copy of the attributes.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// AttributeSpec declares one attribute of a node or mark type.
type AttributeSpec struct {
	// Default is used when the attribute is not supplied.
	Default any

	// Required attributes have no default and must always be supplied.
	Required bool
}

// ParseRule maps an HTML element onto a node or mark.
type ParseRule struct {
	// Tag is the lower-case element name the rule matches.
	Tag string

	// GetAttrs derives attributes from the element's attributes.
	// Returning false rejects the element for this rule.
	GetAttrs func(attrs map[string]string) (Attrs, bool)
}

// HTMLSpec describes how a node or mark is written as HTML.
type HTMLSpec struct {
	Tag   string
	Attrs map[string]string
}

// NodeSpec declares a node type.
type NodeSpec struct {
	Name string

	// Content is the content expression, e.g. "block+", "inline*" or
	// "(paragraph | heading)+". Empty means the node is a leaf.
	Content string

	// Group is a space separated list of groups the node belongs to.
	Group string

	// Inline marks the node as inline. Text is always inline.
	Inline bool

	// Atom marks a non-leaf node that is treated as a single unit.
	Atom bool

	// Marks lists allowed marks by name or group. Nil allows all marks,
	// an empty string allows none, "_" allows all.
	Marks *string

	Attrs map[string]AttributeSpec

	// LeafText is used by TextBetween for leaf nodes when no explicit
	// leaf text is requested.
	LeafText string

	ParseHTML []ParseRule
	ToHTML    func(n *Node) HTMLSpec
}

// MarkSpec declares a mark type.
type MarkSpec struct {
	Name  string
	Attrs map[string]AttributeSpec

	// Inclusive controls whether the mark extends to text typed at its end.
	// Nil means true.
	Inclusive *bool

	// Excludes lists marks (names or groups) that cannot coexist with this
	// one. Nil excludes marks of the same type, "" excludes nothing, "_"
	// excludes everything.
	Excludes *string

	Group string

	ParseHTML []ParseRule
	ToHTML    func(m *Mark) HTMLSpec
}

// SchemaSpec is the input to NewSchema.
type SchemaSpec struct {
	Nodes []NodeSpec
	Marks []MarkSpec

	// TopNode names the root node type. Defaults to "doc".
	TopNode string
}

// Schema holds the node and mark types for a document.
type Schema struct {
	Spec        SchemaSpec
	TopNodeType *NodeType

	nodes     map[string]*NodeType
	nodeOrder []*NodeType
	marks     map[string]*MarkType
	markOrder []*MarkType
}

// NewSchema builds a schema from its specification.
func NewSchema(spec SchemaSpec) (*Schema, error) {
	s := &Schema{
		Spec:  spec,
		nodes: make(map[string]*NodeType, len(spec.Nodes)),
		marks: make(map[string]*MarkType, len(spec.Marks)),
	}

	for _, ns := range spec.Nodes {
		if ns.Name == "" {
			return nil, fmt.Errorf("%w: node spec without name", ErrInvalidSchema)
		}
		if _, dup := s.nodes[ns.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidSchema, ns.Name)
		}
		nt := &NodeType{Name: ns.Name, Schema: s, Spec: ns, groups: strings.Fields(ns.Group)}
		s.nodes[ns.Name] = nt
		s.nodeOrder = append(s.nodeOrder, nt)
	}
	for i, ms := range spec.Marks {
		if ms.Name == "" {
			return nil, fmt.Errorf("%w: mark spec without name", ErrInvalidSchema)
		}
		if _, dup := s.marks[ms.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate mark %q", ErrInvalidSchema, ms.Name)
		}
		mt := &MarkType{Name: ms.Name, Schema: s, Spec: ms, rank: i, groups: strings.Fields(ms.Group)}
		s.marks[ms.Name] = mt
		s.markOrder = append(s.markOrder, mt)
	}

	top := spec.TopNode
	if top == "" {
		top = "doc"
	}
	s.TopNodeType = s.nodes[top]
	if s.TopNodeType == nil {
		return nil, fmt.Errorf("%w: top node %q not defined", ErrInvalidSchema, top)
	}
	if _, ok := s.nodes["text"]; !ok {
		return nil, fmt.Errorf("%w: schema must define a text node", ErrInvalidSchema)
	}

	for _, nt := range s.nodeOrder {
		expr, err := parseContentExpr(s, nt.Spec.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrInvalidSchema, nt.Name, err)
		}
		nt.content = expr

		if nt.Spec.Marks == nil || *nt.Spec.Marks == "_" {
			nt.allMarks = true
		} else if *nt.Spec.Marks != "" {
			set, err := s.gatherMarks(*nt.Spec.Marks)
			if err != nil {
				return nil, fmt.Errorf("%w: node %q: %v", ErrInvalidSchema, nt.Name, err)
			}
			nt.markSet = set
		}
	}
	for _, mt := range s.markOrder {
		switch {
		case mt.Spec.Excludes == nil:
			mt.excluded = []*MarkType{mt}
		case *mt.Spec.Excludes == "":
			mt.excluded = nil
		default:
			set, err := s.gatherMarks(*mt.Spec.Excludes)
			if err != nil {
				return nil, fmt.Errorf("%w: mark %q: %v", ErrInvalidSchema, mt.Name, err)
			}
			mt.excluded = set
		}
	}

	return s, nil
}

func (s *Schema) gatherMarks(names string) ([]*MarkType, error) {
	var found []*MarkType
	for _, name := range strings.Fields(names) {
		if name == "_" {
			return append([]*MarkType(nil), s.markOrder...), nil
		}
		if mt, ok := s.marks[name]; ok {
			found = append(found, mt)
			continue
		}
		ok := false
		for _, mt := range s.markOrder {
			if mt.inGroup(name) {
				found = append(found, mt)
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("unknown mark type %q", name)
		}
	}
	return found, nil
}

// NodeType returns the named node type.
func (s *Schema) NodeType(name string) (*NodeType, bool) {
	nt, ok := s.nodes[name]
	return nt, ok
}

// MarkType returns the named mark type.
func (s *Schema) MarkType(name string) (*MarkType, bool) {
	mt, ok := s.marks[name]
	return mt, ok
}

// NodeTypes returns node types in declaration order.
func (s *Schema) NodeTypes() []*NodeType {
	return append([]*NodeType(nil), s.nodeOrder...)
}

// MarkTypes returns mark types in declaration (rank) order.
func (s *Schema) MarkTypes() []*MarkType {
	return append([]*MarkType(nil), s.markOrder...)
}

// Node creates a node of the named type, validating attributes and content.
func (s *Schema) Node(name string, attrs Attrs, content []*Node, marks ...*Mark) (*Node, error) {
	nt, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, name)
	}
	return nt.CreateChecked(attrs, NewFragment(content...), marks)
}

// Text creates a text node. Text must not be empty.
func (s *Schema) Text(text string, marks ...*Mark) *Node {
	if text == "" {
		panic("model: empty text nodes are not allowed")
	}
	return &Node{Type: s.nodes["text"], Text: text, Marks: sortMarks(marks)}
}

// Mark creates a mark of the named type. It panics on an unknown name or
// invalid attributes; use MarkType.Create for checked construction.
func (s *Schema) Mark(name string, attrs Attrs) *Mark {
	mt, ok := s.marks[name]
	if !ok {
		panic(fmt.Sprintf("model: %v: %s", ErrUnknownMarkType, name))
	}
	m, err := mt.Create(attrs)
	if err != nil {
		panic(fmt.Sprintf("model: %v", err))
	}
	return m
}

// NodeType describes a kind of node.
type NodeType struct {
	Name   string
	Schema *Schema
	Spec   NodeSpec

	groups   []string
	content  *contentExpr
	allMarks bool
	markSet  []*MarkType
}

// IsText reports whether this is the text node type.
func (t *NodeType) IsText() bool { return t.Name == "text" }

// IsInline reports whether nodes of this type are inline.
func (t *NodeType) IsInline() bool { return t.Spec.Inline || t.IsText() }

// IsBlock reports whether nodes of this type are block nodes.
func (t *NodeType) IsBlock() bool { return !t.IsInline() }

// IsLeaf reports whether the type allows no content.
func (t *NodeType) IsLeaf() bool { return t.content.empty() }

// IsTextblock reports whether this is a block type holding inline content.
func (t *NodeType) IsTextblock() bool { return t.IsBlock() && t.content.inline }

// IsAtom reports whether nodes of this type are treated as a single unit.
func (t *NodeType) IsAtom() bool { return t.IsLeaf() || t.Spec.Atom }

// InlineContent reports whether the type holds inline content.
func (t *NodeType) InlineContent() bool { return t.content.inline }

// InGroup reports whether the type belongs to the given group.
func (t *NodeType) InGroup(group string) bool {
	for _, g := range t.groups {
		if g == group {
			return true
		}
	}
	return false
}

// AllowsMarkType reports whether marks of the given type may appear in this
// node's content.
func (t *NodeType) AllowsMarkType(mt *MarkType) bool {
	if t.allMarks {
		return true
	}
	for _, m := range t.markSet {
		if m == mt {
			return true
		}
	}
	return false
}

// AllowedMarks filters a mark set down to the marks allowed in this node.
func (t *NodeType) AllowedMarks(marks []*Mark) []*Mark {
	if t.allMarks {
		return marks
	}
	var out []*Mark
	for _, m := range marks {
		if t.AllowsMarkType(m.Type) {
			out = append(out, m)
		}
	}
	return out
}

// ComputeAttrs fills defaults and checks required attributes.
func (t *NodeType) ComputeAttrs(attrs Attrs) (Attrs, error) {
	return computeAttrs(t.Name, t.Spec.Attrs, attrs)
}

// Create builds a node without validating its content.
func (t *NodeType) Create(attrs Attrs, content *Fragment, marks []*Mark) *Node {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		computed = attrs.Clone()
	}
	if content == nil {
		content = EmptyFragment
	}
	return &Node{Type: t, Attrs: computed, Content: content, Marks: sortMarks(marks)}
}

// CreateChecked builds a node and validates attributes and content.
func (t *NodeType) CreateChecked(attrs Attrs, content *Fragment, marks []*Mark) (*Node, error) {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = EmptyFragment
	}
	if err := t.CheckContent(content); err != nil {
		return nil, err
	}
	return &Node{Type: t, Attrs: computed, Content: content, Marks: sortMarks(marks)}, nil
}

// CreateAndFill builds a node, filling required content with default nodes.
// It returns nil when the type cannot be filled.
func (t *NodeType) CreateAndFill(attrs Attrs) *Node {
	computed, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil
	}
	var children []*Node
	if t.content.min > 0 {
		def := t.content.defaultType()
		if def == nil {
			return nil
		}
		child := def.CreateAndFill(nil)
		if child == nil {
			return nil
		}
		children = append(children, child)
	}
	return &Node{Type: t, Attrs: computed, Content: NewFragment(children...)}
}

// ValidContent reports whether the fragment is valid content for this type.
func (t *NodeType) ValidContent(content *Fragment) bool {
	return t.CheckContent(content) == nil
}

// CheckContent returns an error if the fragment is not valid content.
func (t *NodeType) CheckContent(content *Fragment) error {
	if err := t.content.check(content); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidContent, t.Name, err)
	}
	for _, child := range content.nodes {
		for _, m := range child.Marks {
			if !t.AllowsMarkType(m.Type) {
				return fmt.Errorf("%w for %s: mark %s not allowed", ErrInvalidContent, t.Name, m.Type.Name)
			}
		}
	}
	return nil
}

// CompatibleContent reports whether both types can hold the same content.
func (t *NodeType) CompatibleContent(other *NodeType) bool {
	return t == other || t.content.compatible(other.content)
}

// DefaultContentType returns the first type usable to fill this node's content.
func (t *NodeType) DefaultContentType() *NodeType {
	return t.content.defaultType()
}

func (t *NodeType) String() string { return t.Name }

// MarkType describes a kind of mark.
type MarkType struct {
	Name   string
	Schema *Schema
	Spec   MarkSpec

	rank     int
	groups   []string
	excluded []*MarkType
}

func (t *MarkType) inGroup(group string) bool {
	for _, g := range t.groups {
		if g == group {
			return true
		}
	}
	return false
}

// Rank is the position of the mark type in the schema; mark sets are
// ordered by rank.
func (t *MarkType) Rank() int { return t.rank }

// Inclusive reports whether the mark extends over text typed at its end.
func (t *MarkType) Inclusive() bool {
	return t.Spec.Inclusive == nil || *t.Spec.Inclusive
}

// Excludes reports whether this mark type excludes the other.
func (t *MarkType) Excludes(other *MarkType) bool {
	for _, e := range t.excluded {
		if e == other {
			return true
		}
	}
	return false
}

// Create builds a mark of this type.
func (t *MarkType) Create(attrs Attrs) (*Mark, error) {
	computed, err := computeAttrs(t.Name, t.Spec.Attrs, attrs)
	if err != nil {
		return nil, err
	}
	return &Mark{Type: t, Attrs: computed}, nil
}

// IsInSet returns the mark of this type in the set, or nil.
func (t *MarkType) IsInSet(set []*Mark) *Mark {
	for _, m := range set {
		if m.Type == t {
			return m
		}
	}
	return nil
}

// RemoveFromSet removes all marks of this type from the set.
func (t *MarkType) RemoveFromSet(set []*Mark) []*Mark {
	var out []*Mark
	for _, m := range set {
		if m.Type != t {
			out = append(out, m)
		}
	}
	return out
}

func (t *MarkType) String() string { return t.Name }

func computeAttrs(owner string, specs map[string]AttributeSpec, given Attrs) (Attrs, error) {
	if len(specs) == 0 {
		if len(given) == 0 {
			return nil, nil
		}
		return given.Clone(), nil
	}
	out := make(Attrs, len(specs))
	for name, spec := range specs {
		if v, ok := given[name]; ok {
			out[name] = v
			continue
		}
		if spec.Required {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingAttribute, owner, name)
		}
		out[name] = spec.Default
	}
	return out, nil
}

// contentExpr is a deliberately small content expression: a single term
// (a node name, a group, or a parenthesized alternation of those) with an
// optional quantifier.
type contentExpr struct {
	types  []*NodeType
	min    int
	max    int // -1 for unbounded
	inline bool
}

var contentExprPattern = regexp.MustCompile(`^\(?\s*([\w\s|]+?)\s*\)?\s*([*+?]?)$`)

func parseContentExpr(s *Schema, expr string) (*contentExpr, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &contentExpr{}, nil
	}
	m := contentExprPattern.FindStringSubmatch(expr)
	if m == nil {
		return nil, fmt.Errorf("unsupported content expression %q", expr)
	}
	ce := &contentExpr{min: 1, max: 1}
	switch m[2] {
	case "*":
		ce.min, ce.max = 0, -1
	case "+":
		ce.min, ce.max = 1, -1
	case "?":
		ce.min, ce.max = 0, 1
	}
	seen := make(map[*NodeType]bool)
	for _, part := range strings.Split(m[1], "|") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if nt, ok := s.nodes[name]; ok {
			if !seen[nt] {
				seen[nt] = true
				ce.types = append(ce.types, nt)
			}
			continue
		}
		found := false
		for _, nt := range s.nodeOrder {
			if nt.InGroup(name) {
				found = true
				if !seen[nt] {
					seen[nt] = true
					ce.types = append(ce.types, nt)
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("no node type or group %q", name)
		}
	}
	for _, nt := range ce.types {
		if nt.IsInline() {
			ce.inline = true
		}
	}
	return ce, nil
}

func (c *contentExpr) empty() bool { return len(c.types) == 0 }

func (c *contentExpr) allows(nt *NodeType) bool {
	for _, t := range c.types {
		if t == nt {
			return true
		}
	}
	return false
}

func (c *contentExpr) check(f *Fragment) error {
	if c.empty() {
		if f.Size() > 0 {
			return fmt.Errorf("leaf node cannot have content")
		}
		return nil
	}
	n := f.ChildCount()
	if n < c.min {
		return fmt.Errorf("expected at least %d children, got %d", c.min, n)
	}
	if c.max >= 0 && n > c.max {
		return fmt.Errorf("expected at most %d children, got %d", c.max, n)
	}
	for _, child := range f.nodes {
		if !c.allows(child.Type) {
			return fmt.Errorf("node %s not allowed", child.Type.Name)
		}
	}
	return nil
}

func (c *contentExpr) compatible(other *contentExpr) bool {
	for _, t := range c.types {
		if other.allows(t) {
			return true
		}
	}
	return false
}

func (c *contentExpr) defaultType() *NodeType {
	for _, t := range c.types {
		if t.IsText() {
			continue
		}
		if _, err := t.ComputeAttrs(nil); err == nil {
			return t
		}
	}
	return nil
}
