package ui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/tubex/internal/feed"
	"github.com/oakwood-commons/tubex/internal/youtube"
)

// debounceMsg fires when a debounce timer elapses.
type debounceMsg struct{ ticket uint64 }

// refocusMsg fires when the refocus timer elapses.
type refocusMsg struct{ ticket uint64 }

// suggestionsMsg carries a suggestion fetch result.
type suggestionsMsg struct {
	seq   uint64
	query string
	list  []string
	err   error
}

// pageMsg carries a page fetched for a loader request.
type pageMsg struct {
	req     feed.Request
	fetched feed.Fetched[youtube.Video, youtube.Channel]
}

// actionMsg reports the outcome of open or copy.
type actionMsg struct {
	what string
	done string
	err  error
}

func fetchSuggestions(ctx context.Context, s Suggester, seq uint64, q string) tea.Cmd {
	return func() tea.Msg {
		list, err := s.Suggestions(ctx, q)
		return suggestionsMsg{seq: seq, query: q, list: list, err: err}
	}
}

func runAction(what, done string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{what: what, done: done, err: fn()}
	}
}
