package suggest

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dshills/inkstorm/internal/engine/model"
	"github.com/dshills/inkstorm/internal/engine/state"
	"github.com/dshills/inkstorm/internal/textrange"
)

// DefaultSupportedCharacters is the pattern of one query character.
const DefaultSupportedCharacters = `[\p{L}\p{N}_]`

// Errors reported for invalid suggesters.
var (
	ErrNoName       = errors.New("suggester has no name")
	ErrNoChar       = errors.New("suggester has no trigger character")
	ErrDuplicate    = errors.New("duplicate suggester name")
	ErrBadSupported = errors.New("invalid supported characters pattern")
)

// Change classifies how a suggester's match changed in one transaction.
type Change int

// Changes.
const (
	Started Change = iota + 1
	Stopped
	Moved
	Changed
)

func (c Change) String() string {
	switch c {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Moved:
		return "moved"
	case Changed:
		return "changed"
	default:
		return "none"
	}
}

// Match is the state of one suggester. An inactive match has an empty
// range, query and text.
type Match struct {
	Active bool
	Range  textrange.Range
	// Query is the matched text without the trigger character.
	Query string
	// Text is the whole matched text.
	Text string
}

// Props are passed to suggester handlers.
type Props struct {
	Suggester *Suggester
	Change    Change
	Match     Match
	View      state.EditorView

	// Command inserts the suggestion for the current match and appends the
	// suggester's AppendText, or attrs["appendText"] when it is a string.
	// It reports false when the match is no longer active.
	Command func(attrs model.Attrs) bool
}

// Handler reacts to a match change.
type Handler func(p Props)

// InsertFunc replaces the match range r on tr with the suggestion
// described by attrs.
type InsertFunc func(tr *state.Transaction, r textrange.Range, attrs model.Attrs) bool

// Suggester describes one trigger.
type Suggester struct {
	// Name identifies the suggester.
	Name string

	// Char is the trigger text, usually one character such as "@".
	Char string

	// StartOfLine only matches triggers at the start of a textblock.
	StartOfLine bool

	// SupportedCharacters is the pattern of one query character.
	SupportedCharacters string

	// AppendText is inserted after a suggestion.
	AppendText string

	OnEnter  Handler
	OnChange Handler
	OnExit   Handler

	// Insert builds the suggestion. Without it, the match is replaced by
	// attrs["text"].
	Insert InsertFunc

	re *regexp.Regexp
}

// compile validates the suggester and builds its pattern.
func (s *Suggester) compile() error {
	if s.Name == "" {
		return ErrNoName
	}
	if s.Char == "" {
		return fmt.Errorf("%w: %s", ErrNoChar, s.Name)
	}
	supported := s.SupportedCharacters
	if supported == "" {
		supported = DefaultSupportedCharacters
	}
	if _, err := regexp.Compile(supported); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadSupported, s.Name, err)
	}
	prefix := ""
	if s.StartOfLine {
		prefix = "^"
	}
	re, err := regexp.Compile(prefix + regexp.QuoteMeta(s.Char) + "(?:" + supported + ")*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadSupported, s.Name, err)
	}
	s.re = re
	return nil
}

// match finds the match containing the cursor in s, skipping dismissed
// matches.
func (s *Suggester) match(st *state.EditorState, dismissed []dismissal) Match {
	sel := st.Selection
	if !sel.Empty() || s.re == nil {
		return Match{}
	}
	cursor := sel.Head
	block, ok := textrange.TextblockAt(st.Doc, cursor)
	if !ok {
		return Match{}
	}
	text := block.Text(st.Doc)
	for _, m := range textrange.FindMatches(text, s.re, block.Start) {
		if !textrange.IsSpaceBefore(text, m.From-block.Start) {
			continue
		}
		if cursor <= m.From || cursor > m.To {
			continue
		}
		if isDismissed(dismissed, s.Name, m.From) {
			return Match{}
		}
		return Match{
			Active: true,
			Range:  m.Range,
			Query:  m.Text[len(s.Char):],
			Text:   m.Text,
		}
	}
	return Match{}
}

// classify compares the previous and next match.
func classify(prev, next Match) (Change, bool) {
	switch {
	case !prev.Active && next.Active:
		return Started, true
	case prev.Active && !next.Active:
		return Stopped, true
	case prev.Active && next.Active && prev.Range.From != next.Range.From:
		return Moved, true
	case prev.Active && next.Active && (prev.Query != next.Query || prev.Range != next.Range):
		return Changed, true
	}
	return 0, false
}
