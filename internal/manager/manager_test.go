package manager

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/event"
	"github.com/dshills/inkstorm/internal/event/topic"
	"github.com/dshills/inkstorm/internal/extension"
	"github.com/dshills/inkstorm/internal/extensions/core"
	"github.com/dshills/inkstorm/internal/extensions/formatting"
)

type tracerOptions struct {
	Label string `toml:"label"`
}

// tracer records its lifecycle hooks into a shared log.
type tracer struct {
	*extension.Base[tracerOptions]
	log      *[]string
	commands []string
	keys     map[string]bool
	storeKey string
	storeErr error
}

func newTracer(name string, log *[]string, priority extension.Priority) *tracer {
	return &tracer{
		Base: extension.NewBase(name, extension.KindPlain, tracerOptions{Label: name}).WithPriority(priority),
		log:  log,
	}
}

func (p *tracer) record(what string) {
	if p.log != nil {
		*p.log = append(*p.log, what+" "+p.Name())
	}
}

func (p *tracer) OnCreate(ctx *extension.CreateContext) error {
	p.record("create")
	if p.storeKey != "" {
		return ctx.Store.Set(p.storeKey, p.Name())
	}
	return nil
}

func (p *tracer) OnView(*extension.ViewContext) error {
	p.record("view")
	return nil
}

func (p *tracer) OnTransaction(u extension.TransactionUpdate) {
	p.record("transaction")
	if p.storeKey != "" {
		if s, ok := u.Store.(*extension.Store); ok {
			p.storeErr = s.Set(p.storeKey, "again")
		}
	}
}

func (p *tracer) OnDestroy() { p.record("destroy") }

func (p *tracer) Commands() map[string]extension.CommandFactory {
	out := make(map[string]extension.CommandFactory, len(p.commands))
	for _, name := range p.commands {
		out[name] = extension.Simple(func(extension.CommandProps) bool { return true })
	}
	return out
}

func (p *tracer) Keymap() map[string]extension.Command {
	out := make(map[string]extension.Command, len(p.keys))
	for key, handled := range p.keys {
		out[key] = func(extension.CommandProps) bool {
			p.record("key")
			return handled
		}
	}
	return out
}

func TestLifecycleOrder(t *testing.T) {
	var log []string
	bus := event.NewBus()
	var phases []string
	if _, err := bus.Subscribe(event.TopicPhasePrefix.Child(topic.WildcardSingle), func(_ context.Context, ev event.Event) error {
		phases = append(phases, ev.Payload.(extension.Phase).String())
		return nil
	}, 0); err != nil {
		t.Fatal(err)
	}

	m, err := New(
		WithPresets(core.Preset()),
		WithExtensions(newTracer("low", &log, extension.PriorityLow), newTracer("high", &log, extension.PriorityHigh)),
		WithBus(bus),
	)
	if err != nil {
		t.Fatal(err)
	}
	if m.Phase() != extension.PhaseCreate {
		t.Fatalf("phase = %s", m.Phase())
	}
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	v.TypeText("x")
	if err := m.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := m.Destroy(); err != nil {
		t.Errorf("second Destroy = %v", err)
	}

	want := []string{
		"create high", "create low",
		"view high", "view low",
		"transaction high", "transaction low",
		"destroy low", "destroy high",
	}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("hooks = %v\nwant %v", log, want)
	}
	if want := []string{"create", "view-attach", "runtime", "destroy"}; !reflect.DeepEqual(phases, want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}
	if !v.Destroyed() {
		t.Error("view not destroyed")
	}
}

func TestNameCollision(t *testing.T) {
	tests := []struct {
		name     string
		a, b     extension.Priority
		strict   bool
		wantErr  bool
		wantKept string
	}{
		{name: "equal priority", a: extension.PriorityDefault, b: extension.PriorityDefault, wantErr: true},
		{name: "higher wins", a: extension.PriorityLow, b: extension.PriorityHigh, wantKept: "b"},
		{name: "strict", a: extension.PriorityLow, b: extension.PriorityHigh, strict: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTracer("dup", nil, tt.a)
			a.SetOptions(func(o *tracerOptions) { o.Label = "a" })
			b := newTracer("dup", nil, tt.b)
			b.SetOptions(func(o *tracerOptions) { o.Label = "b" })

			m, err := New(WithPresets(core.Preset()), WithExtensions(a, b), WithStrict(tt.strict))
			if tt.wantErr {
				var cerr *ConfigError
				if !errors.Is(err, ErrNameCollision) || !errors.As(err, &cerr) {
					t.Fatalf("err = %v, want name collision", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			ext, ok := m.Extension("dup")
			if !ok || ext.(*tracer).Options().Label != tt.wantKept {
				t.Errorf("kept %v", ext)
			}
			if n := len(m.Extensions()); n != 4 {
				t.Errorf("extensions = %d, want 4", n)
			}
		})
	}
}

func TestDuplicateCommandAndEmptyName(t *testing.T) {
	a := newTracer("a", nil, extension.PriorityHigh)
	a.commands = []string{"go"}
	b := newTracer("b", nil, extension.PriorityLow)
	b.commands = []string{"go"}
	if _, err := New(WithPresets(core.Preset()), WithExtensions(a, b)); !errors.Is(err, ErrDuplicateCommand) {
		t.Errorf("err = %v, want ErrDuplicateCommand", err)
	}
	if _, err := New(WithExtensions(newTracer("", nil, 0))); !errors.Is(err, ErrEmptyName) {
		t.Errorf("err = %v, want ErrEmptyName", err)
	}
}

func TestPhaseErrors(t *testing.T) {
	m, err := New(WithPresets(core.Preset(), formatting.Preset()))
	if err != nil {
		t.Fatal(err)
	}
	var perr *extension.PhaseError
	if _, err := m.Helpers().Call("boldActive"); !errors.As(err, &perr) {
		t.Errorf("helper before view: %v", err)
	}
	if _, err := m.Commands().Run("toggleBold"); !errors.Is(err, extension.ErrPhase) {
		t.Errorf("command before view: %v", err)
	}
	if _, err := m.View(); !errors.Is(err, extension.ErrPhase) {
		t.Errorf("view before attach: %v", err)
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("MustView did not panic")
			}
		}()
		m.MustView()
	}()

	if _, err := m.NewView(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := m.NewView(nil); !errors.Is(err, extension.ErrPhase) {
		t.Errorf("second view: %v", err)
	}
	if _, err := m.Helpers().Call("nope"); !errors.Is(err, ErrUnknownHelper) {
		t.Errorf("unknown helper: %v", err)
	}
	if _, err := m.Commands().Run("nope"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("unknown command: %v", err)
	}
	_ = m.Destroy()
	if _, err := m.CreateState(nil); !errors.Is(err, extension.ErrPhase) {
		t.Errorf("create state after destroy: %v", err)
	}
	if err := m.ApplyConfig(nil); !errors.Is(err, extension.ErrPhase) {
		t.Errorf("apply config after destroy: %v", err)
	}
}

func TestStoreFreezesAtRuntime(t *testing.T) {
	p := newTracer("keeper", nil, extension.PriorityDefault)
	p.storeKey = "owner"
	m, err := New(WithPresets(core.Preset()), WithExtensions(p))
	if err != nil {
		t.Fatal(err)
	}
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	v.TypeText("a")
	if !errors.Is(p.storeErr, extension.ErrStoreFrozen) {
		t.Errorf("runtime reassignment err = %v", p.storeErr)
	}
	if got, _ := m.Store().Get("owner"); got != "keeper" {
		t.Errorf("owner = %v", got)
	}
	if err := m.Store().Set("fresh", 1); err != nil {
		t.Errorf("new key at runtime: %v", err)
	}
}

func TestKeymapPriority(t *testing.T) {
	var log []string
	high := newTracer("high", &log, extension.PriorityHigh)
	high.keys = map[string]bool{"Enter": false, "Tab": true}
	low := newTracer("low", &log, extension.PriorityLow)
	low.keys = map[string]bool{"Enter": true, "Tab": true}

	m, err := New(WithPresets(core.Preset()), WithExtensions(low, high))
	if err != nil {
		t.Fatal(err)
	}
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !v.PressKey("Enter") || !v.PressKey("Tab") {
		t.Fatal("keys not handled")
	}
	want := []string{"key high", "key low", "key high"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("handlers = %v, want %v", log, want)
	}
}

func TestChainDispatchesOnce(t *testing.T) {
	m, err := New(WithPresets(core.Preset(), formatting.Preset()))
	if err != nil {
		t.Fatal(err)
	}
	v, err := m.NewView(nil)
	if err != nil {
		t.Fatal(err)
	}
	v.TypeText("hello")
	v.Dispatch(v.State().Tr().SetSelection(state.TextSelection(1, 6)))

	dispatched := 0
	m.OnTransaction(func(extension.TransactionUpdate) { dispatched++ })

	chain, err := m.Commands().Chain()
	if err != nil {
		t.Fatal(err)
	}
	chain.Then("toggleBold").Then("toggleItalic")
	if ok, err := chain.Enabled(); !ok || err != nil {
		t.Fatalf("Enabled = %v, %v", ok, err)
	}
	if dispatched != 0 {
		t.Fatal("Enabled dispatched")
	}
	if ok, err := chain.Run(); !ok || err != nil {
		t.Fatalf("Run = %v, %v", ok, err)
	}
	if dispatched != 1 {
		t.Errorf("dispatched %d transactions, want 1", dispatched)
	}
	doc := v.State().Doc
	for _, mark := range []string{"strong", "em"} {
		if !doc.RangeHasMark(1, 6, markType(t, m.Schema(), mark)) {
			t.Errorf("%s missing", mark)
		}
	}
	if active, _ := m.Helpers().Call("boldActive"); active != true {
		t.Error("boldActive = false")
	}

	bad, _ := m.Commands().Chain()
	if _, err := bad.Then("nope").Then("toggleBold").Run(); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("err = %v", err)
	}
}

func TestApplyConfig(t *testing.T) {
	p := newTracer("tracer", nil, extension.PriorityDefault)
	var updates []string
	p.OnOptionsUpdate(func(_, next tracerOptions) { updates = append(updates, next.Label) })

	bus := event.NewBus()
	var changed []topic.Topic
	_, _ = bus.Subscribe(event.TopicOptionsChanged.Child(topic.WildcardMulti), func(_ context.Context, ev event.Event) error {
		changed = append(changed, ev.Type)
		return nil
	}, 0)

	m, err := New(WithPresets(core.Preset()), WithExtensions(p), WithBus(bus),
		WithConfig(map[string]map[string]any{"tracer": {"label": "initial"}}))
	if err != nil {
		t.Fatal(err)
	}
	if p.Options().Label != "initial" {
		t.Errorf("label = %q", p.Options().Label)
	}

	err = m.ApplyConfig(map[string]map[string]any{
		"tracer":  {"label": "updated"},
		"doc":     {"color": "red"},
		"missing": {"x": 1},
	})
	if !errors.Is(err, extension.ErrInvalidOptions) {
		t.Errorf("err = %v, want ErrInvalidOptions", err)
	}
	if p.Options().Label != "updated" {
		t.Errorf("label = %q", p.Options().Label)
	}
	if want := []string{"initial", "updated"}; !reflect.DeepEqual(updates, want) {
		t.Errorf("updates = %v", updates)
	}
	if len(changed) != 2 {
		t.Errorf("options events = %v", changed)
	}

	strict, err := New(WithPresets(core.Preset()), WithStrict(true))
	if err != nil {
		t.Fatal(err)
	}
	if err := strict.ApplyConfig(map[string]map[string]any{"missing": {"x": 1}}); !errors.Is(err, ErrUnknownExtension) {
		t.Errorf("strict unknown = %v", err)
	}
}

func TestCreateStateContent(t *testing.T) {
	m, err := New(WithPresets(core.Preset(), formatting.Preset()))
	if err != nil {
		t.Fatal(err)
	}
	html, err := m.CreateState("<p>hi <strong>there</strong></p>")
	if err != nil {
		t.Fatal(err)
	}
	if html.Doc.TextContent() != "hi there" || !html.Doc.RangeHasMark(4, 9, markType(t, m.Schema(), "strong")) {
		t.Errorf("html doc = %s", html.Doc)
	}

	fromDoc, err := m.CreateState(html.Doc.ToJSON())
	if err != nil || !fromDoc.Doc.Eq(html.Doc) {
		t.Errorf("doc JSON = %v, %v", fromDoc, err)
	}
	fromState, err := m.CreateState(html.ToJSON())
	if err != nil || !fromState.Doc.Eq(html.Doc) {
		t.Errorf("state JSON = %v, %v", fromState, err)
	}
	if _, err := m.CreateState(42); !errors.Is(err, ErrUnsupportedContent) {
		t.Errorf("int content: %v", err)
	}
	if len(fromState.Plugins()) != len(m.Plugins()) {
		t.Error("state missing manager plugins")
	}
}

func TestSchemaMerge(t *testing.T) {
	m, err := New(WithPresets(core.Preset(), formatting.Preset()))
	if err != nil {
		t.Fatal(err)
	}
	s := m.Schema()
	for _, name := range []string{"doc", "paragraph", "text"} {
		if _, ok := s.NodeType(name); !ok {
			t.Errorf("node %s missing", name)
		}
	}
	for _, name := range []string{"strong", "em", "code"} {
		markType(t, s, name)
	}
	if got := m.ExtensionsByTag(extension.TagFormatting); len(got) != 3 {
		t.Errorf("formatting extensions = %d", len(got))
	}
	if m.Store().Schema() != s {
		t.Error("store schema differs")
	}
}

func markType(t *testing.T, s *model.Schema, name string) *model.MarkType {
	t.Helper()
	mt, ok := s.MarkType(name)
	if !ok {
		t.Fatalf("mark %s missing", name)
	}
	return mt
}
