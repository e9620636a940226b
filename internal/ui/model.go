// Package ui is the terminal video browser: a search box with incremental
// suggestions above an infinitely scrolling list of videos.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/tubex/internal/feed"
	"github.com/oakwood-commons/tubex/internal/filter"
	"github.com/oakwood-commons/tubex/internal/format"
	"github.com/oakwood-commons/tubex/internal/suggest"
	"github.com/oakwood-commons/tubex/internal/youtube"
)

// Suggester fetches completions for a partial query.
type Suggester interface {
	Suggestions(ctx context.Context, q string) ([]string, error)
}

// SourceFactory returns the feed source for a committed query; "" means the
// popular feed.
type SourceFactory func(query string) feed.Source[youtube.Video]

// VideoLoader is the feed loader the browser drives.
type VideoLoader = feed.Loader[youtube.Video, youtube.Channel]

// Options configures a Model.
type Options struct {
	Suggester Suggester
	Sources   SourceFactory
	Loader    *VideoLoader
	Suggest   suggest.Config
	Filter    *filter.Filter
	// Query is the initial committed search, if any.
	Query        string
	ScrollMargin int
	NoColor      bool
	Theme        *Theme
	Logger       logr.Logger
	// Now is used for relative ages; defaults to time.Now.
	Now func() time.Time
}

type focus int

const (
	focusList focus = iota
	focusSearch
)

const (
	defaultWidth        = 80
	defaultHeight       = 24
	defaultScrollMargin = 3
)

// Model is the Bubble Tea model of the browser.
type Model struct {
	ctx       context.Context
	suggester Suggester
	sources   SourceFactory
	loader    *VideoLoader
	filter    *filter.Filter
	engine    *suggest.Engine
	input     textinput.Model
	styles    styles
	log       logr.Logger
	now       func() time.Time

	focus        focus
	pendingKey   string
	scrollMargin int
	width        int
	height       int

	// committed query and its search_query encoding
	query       string
	searchParam string

	rows   []youtube.Video
	cursor int
	offset int

	status    string
	statusErr bool

	cancelSuggest context.CancelFunc
	quitting      bool
}

// New builds a browser. ctx bounds every request the model issues.
func New(ctx context.Context, opts Options) *Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Search"
	ti.SetWidth(defaultWidth - 12)

	theme := DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	margin := opts.ScrollMargin
	if margin <= 0 {
		margin = defaultScrollMargin
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := &Model{
		ctx:          ctx,
		suggester:    opts.Suggester,
		sources:      opts.Sources,
		loader:       opts.Loader,
		filter:       opts.Filter,
		engine:       suggest.New(opts.Suggest),
		input:        ti,
		styles:       newStyles(theme, opts.NoColor),
		log:          opts.Logger,
		now:          now,
		scrollMargin: margin,
		width:        defaultWidth,
		height:       defaultHeight,
	}
	if opts.Query != "" {
		m.engine.SetText(opts.Query)
		if eff := m.engine.Submit(); eff.Kind == suggest.Commit {
			m.engine.Done()
			m.setQuery(eff.Query)
		}
		m.input.SetValue(m.engine.Display())
		m.loader.Reset(m.sources(m.query))
	}
	return m
}

// Init starts loading the first page.
func (m *Model) Init() tea.Cmd {
	return m.loadNext()
}

// Query returns the committed search query.
func (m *Model) Query() string { return m.query }

// SearchParam returns the committed query encoded for search_query.
func (m *Model) SearchParam() string { return m.searchParam }

// Rows returns the videos currently listed, after filtering.
func (m *Model) Rows() []youtube.Video { return m.rows }

// Cursor returns the selected row.
func (m *Model) Cursor() int { return m.cursor }

// Engine exposes the suggestion state.
func (m *Model) Engine() *suggest.Engine { return m.engine }

// SearchFocused reports whether the search box has focus.
func (m *Model) SearchFocused() bool { return m.focus == focusSearch }

// Status returns the status line text and whether it reports an error.
func (m *Model) Status() (string, bool) { return m.status, m.statusErr }

func (m *Model) setQuery(q string) {
	m.query = q
	m.searchParam = youtube.EncodeSearchQuery(q)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(10, m.width-12))
		m.clampScroll()
		return m, nil

	case tea.KeyPressMsg:
		if m.focus == focusSearch {
			return m, m.handleSearchKey(msg)
		}
		return m, m.handleListKey(msg.String())

	case debounceMsg:
		return m, m.apply(m.engine.DebounceElapsed(msg.ticket))

	case refocusMsg:
		return m, m.apply(m.engine.RefocusElapsed(msg.ticket))

	case suggestionsMsg:
		return m, m.handleSuggestions(msg)

	case pageMsg:
		return m, m.handlePage(msg)

	case actionMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("%s failed: %v", msg.what, msg.err), true)
		} else {
			m.setStatus(msg.done, false)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyPressMsg) tea.Cmd {
	keyStr := msg.String()
	if i, ok := pickKeys[keyStr]; ok {
		return m.apply(m.engine.Pick(i))
	}
	switch SearchKeyBindings[keyStr] {
	case SearchActionNext:
		m.engine.Next()
		m.syncInput()
		return nil
	case SearchActionPrev:
		m.engine.Prev()
		m.syncInput()
		return nil
	case SearchActionSubmit:
		return m.apply(m.engine.Submit())
	case SearchActionClear:
		cmd := m.apply(m.engine.Clear())
		m.syncInput()
		return cmd
	case SearchActionLeave:
		m.leaveSearch()
		return nil
	case SearchActionQuit:
		return m.quit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != m.engine.Display() {
		return tea.Batch(cmd, m.apply(m.engine.SetText(v)))
	}
	return cmd
}

func (m *Model) handleListKey(keyStr string) tea.Cmd {
	switch m.listAction(keyStr) {
	case ActionDown:
		return m.moveCursor(1)
	case ActionUp:
		return m.moveCursor(-1)
	case ActionPageDown:
		return m.moveCursor(m.listHeight())
	case ActionPageUp:
		return m.moveCursor(-m.listHeight())
	case ActionTop:
		return m.moveCursor(-len(m.rows))
	case ActionBottom:
		return m.moveCursor(len(m.rows))
	case ActionOpen:
		if v, ok := m.selected(); ok {
			return runAction("open", "Opened "+v.URL(), func() error { return OpenURL(v.URL()) })
		}
	case ActionCopy:
		if v, ok := m.selected(); ok {
			return runAction("copy", "Copied "+v.URL(), func() error { return CopyToClipboard(v.URL()) })
		}
	case ActionChannel:
		if v, ok := m.selected(); ok && v.ChannelID != "" {
			u := format.ChannelURL(v.ChannelID)
			return runAction("open channel", "Opened "+u, func() error { return OpenURL(u) })
		}
	case ActionSearch:
		return m.enterSearch()
	case ActionRetry:
		if m.loader.Err() != nil || len(m.rows) == 0 {
			return m.loadNext()
		}
	case ActionQuit:
		return m.quit()
	}
	return nil
}

func (m *Model) enterSearch() tea.Cmd {
	m.focus = focusSearch
	m.pendingKey = ""
	focusCmd := m.input.Focus()
	m.input.CursorEnd()
	return tea.Batch(focusCmd, m.apply(m.engine.Focus()))
}

func (m *Model) leaveSearch() {
	m.engine.Blur()
	m.input.Blur()
	m.syncInput()
	m.focus = focusList
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.cancelInFlightSuggestion()
	return tea.Quit
}

// syncInput mirrors the engine's display text into the text input.
func (m *Model) syncInput() {
	if m.input.Value() != m.engine.Display() {
		m.input.SetValue(m.engine.Display())
	}
	m.input.CursorEnd()
}

func (m *Model) cancelInFlightSuggestion() {
	if m.cancelSuggest != nil {
		m.cancelSuggest()
		m.cancelSuggest = nil
	}
}

// apply turns an engine effect into commands.
func (m *Model) apply(eff suggest.Effect) tea.Cmd {
	if eff.CancelInFlight {
		m.cancelInFlightSuggestion()
	}
	switch eff.Kind {
	case suggest.ScheduleDebounce:
		return tea.Tick(eff.Delay, func(time.Time) tea.Msg { return debounceMsg{ticket: eff.Ticket} })
	case suggest.ScheduleRefocus:
		return tea.Tick(eff.Delay, func(time.Time) tea.Msg { return refocusMsg{ticket: eff.Ticket} })
	case suggest.Fetch:
		m.cancelInFlightSuggestion()
		ctx, cancel := context.WithCancel(m.ctx)
		m.cancelSuggest = cancel
		return fetchSuggestions(ctx, m.suggester, eff.Seq, eff.Query)
	case suggest.Commit:
		return m.commit(eff.Query)
	}
	return nil
}

func (m *Model) handleSuggestions(msg suggestionsMsg) tea.Cmd {
	if msg.seq == m.engine.FetchSeq() {
		m.cancelInFlightSuggestion()
	}
	if msg.err != nil {
		if !errors.Is(msg.err, context.Canceled) {
			m.log.V(1).Info("suggestions failed", "query", msg.query, "error", msg.err.Error())
		}
		return nil
	}
	if !m.engine.Resolve(msg.seq, msg.query, msg.list, nil) {
		m.log.V(2).Info("discarded stale suggestions", "query", msg.query, "seq", msg.seq)
		return nil
	}
	// a fresh list drops any highlight, so the box shows the typed text again
	if m.input.Value() != m.engine.Display() {
		m.syncInput()
	}
	return nil
}

// commit starts a new feed for q.
func (m *Model) commit(q string) tea.Cmd {
	m.engine.Done()
	m.setQuery(q)
	m.leaveSearch()
	m.loader.Reset(m.sources(q))
	m.rows = nil
	m.cursor = 0
	m.offset = 0
	m.setStatus("", false)
	m.log.Info("search committed", "query", q, "search_query", m.searchParam)
	return m.loadNext()
}

// loadNext begins a page load unless one is running or the feed is done.
func (m *Model) loadNext() tea.Cmd {
	req, err := m.loader.Begin()
	if err != nil {
		return nil
	}
	m.setStatus("Loading…", false)
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		return pageMsg{req: req, fetched: loader.Fetch(ctx, req)}
	}
}

func (m *Model) handlePage(msg pageMsg) tea.Cmd {
	res, err := m.loader.Complete(msg.req, msg.fetched)
	if errors.Is(err, feed.ErrStale) {
		return nil
	}
	if err != nil {
		m.log.Info("page load failed", "query", m.query, "error", err.Error())
		m.setStatus(fmt.Sprintf("Failed to load videos: %v (r to retry)", err), true)
		return nil
	}
	if res.EnrichErr != nil {
		m.log.V(1).Info("channel lookup failed", "error", res.EnrichErr.Error())
	}
	m.setStatus("", false)
	m.refreshRows()
	return m.maybeLoadMore()
}

// refreshRows recomputes the filtered row list from the loader.
func (m *Model) refreshRows() {
	rows, err := m.filter.Apply(m.loader.Items())
	if err != nil {
		m.setStatus(fmt.Sprintf("Filter error: %v", err), true)
		rows = m.loader.Items()
	}
	m.rows = rows
	m.clampScroll()
}

// maybeLoadMore fetches the next page when the cursor is within the scroll
// margin of the end, which also covers a list shorter than the screen.
func (m *Model) maybeLoadMore() tea.Cmd {
	if !m.loader.HasMore() || m.loader.Loading() || m.loader.Err() != nil {
		return nil
	}
	if !feed.NearEnd(m.cursor, len(m.rows), max(m.scrollMargin, m.listHeight()-len(m.rows))) {
		return nil
	}
	return m.loadNext()
}

func (m *Model) moveCursor(delta int) tea.Cmd {
	if len(m.rows) == 0 {
		return nil
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.clampScroll()
	return m.maybeLoadMore()
}

func (m *Model) selected() (youtube.Video, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return youtube.Video{}, false
	}
	return m.rows[m.cursor], true
}

// clampScroll keeps the cursor inside the visible window.
func (m *Model) clampScroll() {
	if m.cursor >= len(m.rows) {
		m.cursor = max(0, len(m.rows)-1)
	}
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}
