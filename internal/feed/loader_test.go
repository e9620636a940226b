package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID      string
	Channel string
}

func itemKey(i item) string { return i.ID }

func items(ids ...string) []item {
	out := make([]item, len(ids))
	for i, id := range ids {
		out[i] = item{ID: id, Channel: "ch-" + id}
	}
	return out
}

// pagedSource serves a fixed list of pages keyed by cursor.
type pagedSource struct {
	pages map[string]Page[item]
	calls atomic.Int32
	err   error
}

func (s *pagedSource) FetchPage(_ context.Context, cursor string) (Page[item], error) {
	s.calls.Add(1)
	if s.err != nil {
		return Page[item]{}, s.err
	}
	return s.pages[cursor], nil
}

func newLoader(src Source[item], max int) *Loader[item, string] {
	return NewLoader[item, string](src, Options[item, string]{Key: itemKey, MaxItems: max})
}

func TestLoaderDeduplicatesAcrossPages(t *testing.T) {
	src := &pagedSource{pages: map[string]Page[item]{
		"":   {Items: items("A", "B", "C"), NextCursor: "p2"},
		"p2": {Items: items("C", "D", "E"), NextCursor: "p3"},
	}}
	l := newLoader(src, 0)

	res, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Added)

	res, err = l.LoadNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 5, res.Total)

	var ids []string
	for _, it := range l.Items() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, ids)
	assert.Equal(t, "p3", l.Cursor())
	assert.True(t, l.HasMore())
}

func TestLoaderRetentionBound(t *testing.T) {
	src := SourceFunc[item](func(_ context.Context, cursor string) (Page[item], error) {
		if cursor == "" {
			return Page[item]{Items: items("1", "2", "3", "4"), NextCursor: "n"}, nil
		}
		return Page[item]{Items: items("5", "6", "7"), NextCursor: "m"}, nil
	})
	l := newLoader(src, 5)

	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	_, err = l.LoadNext(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, l.Len())
	first, _ := l.At(0)
	assert.Equal(t, "3", first.ID)
}

func TestLoaderStopsWhenCursorAbsent(t *testing.T) {
	src := &pagedSource{pages: map[string]Page[item]{
		"": {Items: items("A")},
	}}
	l := newLoader(src, 0)

	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	assert.False(t, l.HasMore())

	_, err = l.LoadNext(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.NoError(t, l.Err())
}

func TestLoaderSingleFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	src := SourceFunc[item](func(ctx context.Context, _ string) (Page[item], error) {
		calls.Add(1)
		<-release
		return Page[item]{Items: items("A"), NextCursor: "next"}, nil
	})
	l := newLoader(src, 0)

	done := make(chan error, 1)
	go func() {
		_, err := l.LoadNext(context.Background())
		done <- err
	}()
	require.Eventually(t, l.Loading, time.Second, time.Millisecond)

	_, err := l.LoadNext(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)
	_, err = l.Begin()
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, l.Loading())
}

func TestLoaderConcurrentTriggersFetchOnce(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	src := SourceFunc[item](func(ctx context.Context, _ string) (Page[item], error) {
		calls.Add(1)
		<-release
		return Page[item]{Items: items("A"), NextCursor: "next"}, nil
	})
	l := newLoader(src, 0)

	var wg sync.WaitGroup
	var inFlight atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.LoadNext(context.Background()); errors.Is(err, ErrInFlight) {
				inFlight.Add(1)
			}
		}()
	}
	require.Eventually(t, func() bool { return inFlight.Load() == 7 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, l.Len())
}

func TestLoaderFailureLeavesStateUnchanged(t *testing.T) {
	src := &pagedSource{pages: map[string]Page[item]{
		"": {Items: items("A", "B"), NextCursor: "p2"},
	}}
	l := newLoader(src, 0)
	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)

	boom := errors.New("boom")
	src.err = boom
	res, err := l.LoadNext(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "p2", l.Cursor())
	assert.True(t, l.HasMore())
	assert.False(t, l.Loading())
	assert.ErrorIs(t, l.Err(), boom)

	// retry succeeds once the source recovers
	src.err = nil
	src.pages["p2"] = Page[item]{Items: items("C")}
	_, err = l.LoadNext(context.Background())
	require.NoError(t, err)
	assert.NoError(t, l.Err())
	assert.Equal(t, 3, l.Len())
}

func TestLoaderEnrichment(t *testing.T) {
	src := &pagedSource{pages: map[string]Page[item]{
		"":   {Items: items("A", "B"), NextCursor: "p2"},
		"p2": {Items: []item{{ID: "C", Channel: "ch-A"}, {ID: "D", Channel: "ch-D"}}, NextCursor: "p3"},
	}}
	var lookups [][]string
	l := NewLoader[item, string](src, Options[item, string]{
		Key: itemKey,
		Enrich: &Enricher[item, string]{
			Keys: func(i item) []string { return []string{i.Channel} },
			Lookup: func(_ context.Context, keys []string) (map[string]string, error) {
				lookups = append(lookups, keys)
				out := make(map[string]string, len(keys))
				for _, k := range keys {
					out[k] = "avatar:" + k
				}
				return out, nil
			},
		},
	})

	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	_, err = l.LoadNext(context.Background())
	require.NoError(t, err)

	require.Len(t, lookups, 2)
	assert.ElementsMatch(t, []string{"ch-A", "ch-B"}, lookups[0])
	assert.Equal(t, []string{"ch-D"}, lookups[1])

	for _, k := range []string{"ch-A", "ch-B", "ch-D"} {
		v, ok := l.Meta(k)
		assert.True(t, ok, k)
		assert.Equal(t, "avatar:"+k, v)
	}
}

func TestLoaderEnrichmentFailureIsNonFatal(t *testing.T) {
	src := &pagedSource{pages: map[string]Page[item]{
		"": {Items: items("A"), NextCursor: "p2"},
	}}
	lookupErr := errors.New("channels unavailable")
	l := NewLoader[item, string](src, Options[item, string]{
		Key: itemKey,
		Enrich: &Enricher[item, string]{
			Keys: func(i item) []string { return []string{i.Channel} },
			Lookup: func(context.Context, []string) (map[string]string, error) {
				return nil, lookupErr
			},
		},
	})

	res, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.EnrichErr, lookupErr)
	assert.Equal(t, 1, l.Len())
	_, ok := l.Meta("ch-A")
	assert.False(t, ok)
}

func TestLoaderResetInvalidatesInFlight(t *testing.T) {
	src := &pagedSource{pages: map[string]Page[item]{
		"": {Items: items("A"), NextCursor: "p2"},
	}}
	l := newLoader(src, 0)

	req, err := l.Begin()
	require.NoError(t, err)
	fetched := l.Fetch(context.Background(), req)

	other := &pagedSource{pages: map[string]Page[item]{
		"": {Items: items("X", "Y")},
	}}
	l.Reset(other)
	assert.False(t, l.Loading())

	_, err = l.Complete(req, fetched)
	assert.ErrorIs(t, err, ErrStale)
	assert.Zero(t, l.Len())

	_, err = l.LoadNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	assert.False(t, l.HasMore())
	assert.Equal(t, int32(1), other.calls.Load())
}

func TestLoaderResetKeepsMeta(t *testing.T) {
	src := &pagedSource{pages: map[string]Page[item]{
		"": {Items: items("A")},
	}}
	l := NewLoader[item, string](src, Options[item, string]{
		Key: itemKey,
		Enrich: &Enricher[item, string]{
			Keys: func(i item) []string { return []string{i.Channel} },
			Lookup: func(_ context.Context, keys []string) (map[string]string, error) {
				return map[string]string{keys[0]: "known"}, nil
			},
		},
	})
	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)

	l.Reset(nil)
	assert.True(t, l.HasMore())
	assert.Empty(t, l.Cursor())
	v, ok := l.Meta("ch-A")
	assert.True(t, ok)
	assert.Equal(t, "known", v)
}

func TestNearEnd(t *testing.T) {
	assert.True(t, NearEnd(0, 0, 3))
	assert.False(t, NearEnd(0, 10, 3))
	assert.True(t, NearEnd(6, 10, 3))
	assert.True(t, NearEnd(9, 10, 0))
	assert.False(t, NearEnd(8, 10, 0))
	assert.True(t, NearEnd(9, 10, -1))
}
