// Package feed loads paged result lists from an opaque cursor-based source
// into a bounded, de-duplicated collection.
//
// A Loader allows one page load at a time. Hosts with their own event loop
// (the terminal UI) split a load into Begin, Fetch and Complete so that state
// changes happen on the loop while the network call runs elsewhere; simple
// callers use LoadNext.
package feed

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrInFlight is returned by Begin when a page load is already running.
	ErrInFlight = errors.New("feed: page load already in flight")
	// ErrExhausted is returned by Begin once the source reported no further pages.
	ErrExhausted = errors.New("feed: no more pages")
	// ErrStale is returned by Complete for a request issued before Reset.
	ErrStale = errors.New("feed: stale page request")
)

// Page is one response from a Source. An empty NextCursor means the source
// has no further pages.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// Source fetches the page that starts at cursor ("" for the first page).
type Source[T any] interface {
	FetchPage(ctx context.Context, cursor string) (Page[T], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// FetchPage implements Source.
func (f SourceFunc[T]) FetchPage(ctx context.Context, cursor string) (Page[T], error) {
	return f(ctx, cursor)
}

// Enricher looks up display metadata for entities referenced by items, such
// as the channel behind each video.
type Enricher[T, M any] struct {
	// Keys returns the related-entity keys referenced by an item.
	Keys func(T) []string
	// Lookup resolves a batch of keys in one call.
	Lookup func(ctx context.Context, keys []string) (map[string]M, error)
}

// Options configures a Loader.
type Options[T, M any] struct {
	// Key returns the identity of an item.
	Key func(T) string
	// MaxItems bounds the collection; <= 0 is unbounded.
	MaxItems int
	// Enrich is optional.
	Enrich *Enricher[T, M]
}

// Request is the handle for one in-flight page load.
type Request struct {
	id     uint64
	Cursor string
}

// Fetched carries the outcome of Fetch back to Complete.
type Fetched[T, M any] struct {
	Page      Page[T]
	Meta      map[string]M
	Err       error
	EnrichErr error
}

// Result summarises a completed page load.
type Result struct {
	Added     int
	Total     int
	HasMore   bool
	EnrichErr error
}

// Loader owns a Collection, its pagination cursor and a cumulative metadata
// map for related entities.
type Loader[T, M any] struct {
	mu       sync.Mutex
	source   Source[T]
	enrich   *Enricher[T, M]
	items    *Collection[T]
	meta     map[string]M
	cursor   string
	hasMore  bool
	inFlight *Request
	nextID   uint64
	err      error
}

// NewLoader returns a loader that has not fetched anything yet.
func NewLoader[T, M any](source Source[T], opts Options[T, M]) *Loader[T, M] {
	return &Loader[T, M]{
		source:  source,
		enrich:  opts.Enrich,
		items:   NewCollection(opts.Key, opts.MaxItems),
		meta:    make(map[string]M),
		hasMore: true,
	}
}

// Begin starts a page load. It fails fast with ErrInFlight or ErrExhausted
// without touching any state; neither is recorded as the loader's error.
func (l *Loader[T, M]) Begin() (Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight != nil {
		return Request{}, ErrInFlight
	}
	if !l.hasMore {
		return Request{}, ErrExhausted
	}
	l.nextID++
	req := &Request{id: l.nextID, Cursor: l.cursor}
	l.inFlight = req
	return *req, nil
}

// Fetch performs the network part of req: the page itself and, if an
// Enricher is configured, one batched lookup for related keys not yet known.
// It does not modify the loader and may run on any goroutine.
func (l *Loader[T, M]) Fetch(ctx context.Context, req Request) Fetched[T, M] {
	l.mu.Lock()
	src := l.source
	l.mu.Unlock()

	page, err := src.FetchPage(ctx, req.Cursor)
	if err != nil {
		return Fetched[T, M]{Err: err}
	}
	out := Fetched[T, M]{Page: page}
	if l.enrich == nil {
		return out
	}
	keys := l.missingKeys(page.Items)
	if len(keys) == 0 {
		return out
	}
	out.Meta, out.EnrichErr = l.enrich.Lookup(ctx, keys)
	return out
}

func (l *Loader[T, M]) missingKeys(items []T) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]struct{})
	var keys []string
	for _, it := range items {
		for _, k := range l.enrich.Keys(it) {
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			if _, known := l.meta[k]; known {
				continue
			}
			keys = append(keys, k)
		}
	}
	return keys
}

// Complete commits the outcome of req. On error the collection, cursor and
// hasMore are left untouched and the error is recorded so the caller can
// offer a retry. The in-flight handle is released either way.
func (l *Loader[T, M]) Complete(req Request, f Fetched[T, M]) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight == nil || l.inFlight.id != req.id {
		return Result{}, ErrStale
	}
	defer func() { l.inFlight = nil }()

	if f.Err != nil {
		l.err = f.Err
		return Result{Total: l.items.Len(), HasMore: l.hasMore}, f.Err
	}
	added := l.items.Merge(f.Page.Items)
	l.cursor = f.Page.NextCursor
	l.hasMore = f.Page.NextCursor != ""
	l.err = nil
	for k, v := range f.Meta {
		l.meta[k] = v
	}
	return Result{
		Added:     added,
		Total:     l.items.Len(),
		HasMore:   l.hasMore,
		EnrichErr: f.EnrichErr,
	}, nil
}

// LoadNext runs Begin, Fetch and Complete in sequence.
func (l *Loader[T, M]) LoadNext(ctx context.Context) (Result, error) {
	req, err := l.Begin()
	if err != nil {
		return Result{}, err
	}
	return l.Complete(req, l.Fetch(ctx, req))
}

// Reset empties the collection and re-arms pagination, for example after a
// new search query. A non-nil source replaces the current one. Any in-flight
// request becomes stale. The metadata map is kept.
func (l *Loader[T, M]) Reset(source Source[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if source != nil {
		l.source = source
	}
	l.items.Reset()
	l.cursor = ""
	l.hasMore = true
	l.err = nil
	l.inFlight = nil
}

// Items returns a snapshot of the collection.
func (l *Loader[T, M]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items.Items()
}

// At returns the item at index i.
func (l *Loader[T, M]) At(i int) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items.At(i)
}

// Len returns the number of retained items.
func (l *Loader[T, M]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items.Len()
}

// HasMore reports whether another page may exist.
func (l *Loader[T, M]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// Loading reports whether a page load is in flight.
func (l *Loader[T, M]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight != nil
}

// Cursor returns the pagination cursor for the next page.
func (l *Loader[T, M]) Cursor() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

// Err returns the error of the last failed load, cleared by a success or Reset.
func (l *Loader[T, M]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Meta returns the metadata recorded for a related key.
func (l *Loader[T, M]) Meta(key string) (M, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.meta[key]
	return m, ok
}

// NearEnd reports whether index is within margin rows of the end of a list
// of total rows, i.e. whether the scroll sentinel is visible.
func NearEnd(index, total, margin int) bool {
	if margin < 0 {
		margin = 0
	}
	return total == 0 || index >= total-1-margin
}
