// Package suggest turns keystrokes in a search field into debounced
// suggestion fetches and keyboard-driven selection over the results.
//
// Engine is a pure state machine: it never starts timers or performs I/O.
// Every operation returns an Effect telling the host what to schedule, and
// the host feeds timer expirations and fetch results back in. Debounce
// timers, refocus timers and fetches each carry a sequence number so that
// anything superseded is recognised and ignored when it comes back.
package suggest

import (
	"strings"
	"time"
)

// State is the engine's interaction state.
type State int

const (
	// Idle means the field is empty.
	Idle State = iota
	// Editing means the user is typing and no suggestion is highlighted.
	Editing
	// Browsing means a suggestion is highlighted via the keyboard.
	Browsing
	// Committing means a query was emitted and the host has not called Done.
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Browsing:
		return "browsing"
	case Committing:
		return "committing"
	default:
		return "unknown"
	}
}

// Config holds the engine timings and limits.
type Config struct {
	Debounce       time.Duration
	RefocusDelay   time.Duration
	MaxSuggestions int
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		Debounce:       200 * time.Millisecond,
		RefocusDelay:   100 * time.Millisecond,
		MaxSuggestions: 10,
	}
}

// EffectKind says what the host has to do after an operation.
type EffectKind int

const (
	// None requires no action.
	None EffectKind = iota
	// ScheduleDebounce asks for DebounceElapsed(Ticket) after Delay.
	ScheduleDebounce
	// ScheduleRefocus asks for RefocusElapsed(Ticket) after Delay.
	ScheduleRefocus
	// Fetch asks for suggestions for Query, reported back via Resolve(Seq, Query, ...).
	Fetch
	// Commit carries the final query.
	Commit
)

func (k EffectKind) String() string {
	switch k {
	case None:
		return "none"
	case ScheduleDebounce:
		return "schedule-debounce"
	case ScheduleRefocus:
		return "schedule-refocus"
	case Fetch:
		return "fetch"
	case Commit:
		return "commit"
	default:
		return "unknown"
	}
}

// Effect is the instruction returned by every engine operation.
type Effect struct {
	Kind   EffectKind
	Ticket uint64
	Delay  time.Duration
	Seq    uint64
	Query  string
	// CancelInFlight is set when any outstanding fetch can no longer be
	// accepted, so the host may abort it.
	CancelInFlight bool
}

// Engine holds the typed text, the current suggestion list and the
// selection cursor for one search field.
type Engine struct {
	cfg     Config
	state   State
	typed   string
	list    []string
	cursor  int
	open    bool
	focused bool

	debounceSeq uint64
	refocusSeq  uint64
	fetchSeq    uint64
}

// New returns an idle engine. Zero-valued config fields fall back to
// DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.RefocusDelay <= 0 {
		cfg.RefocusDelay = def.RefocusDelay
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	return &Engine{cfg: cfg, cursor: -1}
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Text returns the text the user typed, independent of any highlight.
func (e *Engine) Text() string { return e.typed }

// Display returns what the field should show: the highlighted suggestion
// while browsing, otherwise the typed text.
func (e *Engine) Display() string {
	if e.cursor >= 0 && e.cursor < len(e.list) {
		return e.list[e.cursor]
	}
	return e.typed
}

// Suggestions returns the current list.
func (e *Engine) Suggestions() []string {
	out := make([]string, len(e.list))
	copy(out, e.list)
	return out
}

// Cursor returns the selection index in [-1, len-1].
func (e *Engine) Cursor() int { return e.cursor }

// Open reports whether the dropdown should be visible.
func (e *Engine) Open() bool { return e.open && len(e.list) > 0 }

// Focused reports whether the field has focus.
func (e *Engine) Focused() bool { return e.focused }

// FetchSeq returns the sequence number of the latest issued fetch.
func (e *Engine) FetchSeq() uint64 { return e.fetchSeq }

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// SetText records raw typing.
func (e *Engine) SetText(text string) Effect {
	e.typed = text
	e.cursor = -1
	e.debounceSeq++
	if blank(text) {
		e.list = nil
		e.open = false
		e.fetchSeq++
		e.state = Idle
		return Effect{CancelInFlight: true}
	}
	e.state = Editing
	e.open = e.focused
	return Effect{
		Kind:           ScheduleDebounce,
		Ticket:         e.debounceSeq,
		Delay:          e.cfg.Debounce,
		CancelInFlight: true,
	}
}

// DebounceElapsed issues a fetch if ticket is the latest debounce ticket.
func (e *Engine) DebounceElapsed(ticket uint64) Effect {
	if ticket != e.debounceSeq || blank(e.typed) {
		return Effect{}
	}
	if e.state != Editing && e.state != Browsing {
		return Effect{}
	}
	return e.issueFetch()
}

func (e *Engine) issueFetch() Effect {
	e.fetchSeq++
	return Effect{Kind: Fetch, Seq: e.fetchSeq, Query: e.typed}
}

// Resolve applies a fetch result. It reports false when the result was
// discarded: a superseded seq, a query that no longer matches the typed
// text, or an error.
func (e *Engine) Resolve(seq uint64, query string, list []string, err error) bool {
	if seq != e.fetchSeq || query != e.typed || err != nil {
		return false
	}
	if len(list) > e.cfg.MaxSuggestions {
		list = list[:e.cfg.MaxSuggestions]
	}
	e.list = append([]string(nil), list...)
	e.cursor = -1
	if e.state == Browsing {
		e.state = Editing
	}
	e.open = e.focused
	return true
}

// Next moves the highlight down, wrapping from the last entry back to the
// typed text. It never fetches and does nothing while the dropdown is hidden.
func (e *Engine) Next() bool {
	if !e.Open() {
		return false
	}
	e.cursor++
	if e.cursor > len(e.list)-1 {
		e.cursor = -1
	}
	e.afterMove()
	return true
}

// Prev moves the highlight up, wrapping from the typed text to the last entry.
func (e *Engine) Prev() bool {
	if !e.Open() {
		return false
	}
	e.cursor--
	if e.cursor < -1 {
		e.cursor = len(e.list) - 1
	}
	e.afterMove()
	return true
}

func (e *Engine) afterMove() {
	if e.cursor >= 0 {
		e.state = Browsing
	} else {
		e.state = Editing
	}
}

// Submit commits the highlighted suggestion, or the typed text when nothing
// is highlighted. Whitespace-only queries are ignored.
func (e *Engine) Submit() Effect {
	q := e.Display()
	if blank(q) {
		return Effect{}
	}
	e.typed = q
	e.list = nil
	e.cursor = -1
	e.open = false
	e.debounceSeq++
	e.refocusSeq++
	e.fetchSeq++
	e.state = Committing
	return Effect{Kind: Commit, Query: strings.TrimSpace(q), CancelInFlight: true}
}

// Pick commits suggestion i, as a pointer selection would. Only a visible
// dropdown can be picked from.
func (e *Engine) Pick(i int) Effect {
	if !e.Open() || i < 0 || i >= len(e.list) {
		return Effect{}
	}
	e.cursor = i
	return e.Submit()
}

// Clear empties the field from any state.
func (e *Engine) Clear() Effect {
	e.typed = ""
	e.list = nil
	e.cursor = -1
	e.open = false
	e.debounceSeq++
	e.refocusSeq++
	e.fetchSeq++
	e.state = Idle
	return Effect{CancelInFlight: true}
}

// Blur hides the dropdown and keeps the text. A highlighted suggestion
// becomes the typed text.
func (e *Engine) Blur() {
	e.focused = false
	e.open = false
	e.refocusSeq++
	if e.state == Browsing {
		e.typed = e.Display()
		e.cursor = -1
	}
	if e.state == Committing {
		return
	}
	if blank(e.typed) {
		e.state = Idle
	} else {
		e.state = Editing
	}
}

// Focus marks the field focused. A non-empty field schedules a refocus
// fetch, timed independently of the debounce.
func (e *Engine) Focus() Effect {
	e.focused = true
	if blank(e.typed) {
		return Effect{}
	}
	if e.state == Idle || e.state == Committing {
		e.state = Editing
	}
	e.refocusSeq++
	return Effect{Kind: ScheduleRefocus, Ticket: e.refocusSeq, Delay: e.cfg.RefocusDelay}
}

// RefocusElapsed issues a fresh fetch if ticket is the latest refocus ticket
// and the field is still focused.
func (e *Engine) RefocusElapsed(ticket uint64) Effect {
	if ticket != e.refocusSeq || !e.focused || blank(e.typed) {
		return Effect{}
	}
	return e.issueFetch()
}

// Done acknowledges a commit.
func (e *Engine) Done() {
	if e.state != Committing {
		return
	}
	if blank(e.typed) {
		e.state = Idle
	} else {
		e.state = Editing
	}
}
