package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/tubex/internal/format"
)

// fakeGateway records requests and answers by endpoint.
type fakeGateway struct {
	mu       sync.Mutex
	requests []url.Values
	handle   func(endpoint string, q url.Values) (int, string)
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g.mu.Lock()
	g.requests = append(g.requests, q)
	g.mu.Unlock()
	status, body := g.handle(q.Get("endpoint"), q)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (g *fakeGateway) calls(endpoint string) []url.Values {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []url.Values
	for _, q := range g.requests {
		if q.Get("endpoint") == endpoint {
			out = append(out, q)
		}
	}
	return out
}

func newTestClient(t *testing.T, handle func(string, url.Values) (int, string)) (*Client, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{handle: handle}
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/"), gw
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{name: "guarded", body: ")]}'\n[0,[\"a\",\"b\"]]", want: []string{"a", "b"}},
		{name: "plain", body: `["cat",["cats","catalog"],[],{}]`, want: []string{"cats", "catalog"}},
		{name: "empty list", body: `["x",[]]`, want: []string{}},
		{name: "too short", body: `["x"]`, wantErr: true},
		{name: "not strings", body: `["x",[1,2]]`, wantErr: true},
		{name: "garbage", body: `<html>`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestions([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadSuggestions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientSuggestions(t *testing.T) {
	c, gw := newTestClient(t, func(string, url.Values) (int, string) {
		return http.StatusOK, `["go",["golang","go tutorial"]]`
	})

	got, err := c.Suggestions(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "go tutorial"}, got)

	calls := gw.calls(SuggestEndpoint)
	require.Len(t, calls, 1)
	assert.Equal(t, "firefox", calls[0].Get("client"))
	assert.Equal(t, "yt", calls[0].Get("ds"))
	assert.Equal(t, "go", calls[0].Get("q"))
}

func TestClientAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(string, url.Values) (int, string) {
		return http.StatusInternalServerError, `{"error":"Failed to fetch from upstream API"}`
	})

	_, err := c.Get(context.Background(), "videos", nil)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "Failed to fetch from upstream API", apiErr.Message)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Contains(t, err.Error(), "500")
}

func TestClientCancelledContext(t *testing.T) {
	c, _ := newTestClient(t, func(string, url.Values) (int, string) {
		return http.StatusOK, `{}`
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, "videos", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

const popularPage = `{
  "nextPageToken": "CAwQAA",
  "items": [
    {
      "id": "vid1",
      "snippet": {
        "title": "Tom &amp; Jerry",
        "channelId": "UC1",
        "channelTitle": "Cartoons",
        "publishedAt": "2024-03-01T10:00:00Z",
        "thumbnails": {"high": {"url": "https://img/high.jpg"}, "default": {"url": "https://img/def.jpg"}}
      },
      "statistics": {"viewCount": "1234567"},
      "contentDetails": {"duration": "PT4M5S"}
    },
    {"id": "", "snippet": {"title": "skipped"}}
  ]
}`

func TestPopularSource(t *testing.T) {
	c, gw := newTestClient(t, func(string, url.Values) (int, string) {
		return http.StatusOK, popularPage
	})
	src := PopularSource{Client: c, Region: "DE"}

	page, err := src.FetchPage(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "CAwQAA", page.NextCursor)
	require.Len(t, page.Items, 1)

	v := page.Items[0]
	assert.Equal(t, "vid1", v.ID)
	assert.Equal(t, "Tom & Jerry", v.Title)
	assert.Equal(t, "UC1", v.ChannelID)
	assert.Equal(t, int64(1234567), v.ViewCount)
	assert.True(t, v.HasStats)
	assert.Equal(t, 4*time.Minute+5*time.Second, v.Duration)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), v.PublishedAt)
	assert.Equal(t, "https://img/high.jpg", v.Thumbnail())
	assert.Equal(t, "https://www.youtube.com/watch?v=vid1", v.URL())

	_, err = src.FetchPage(context.Background(), "CAwQAA")
	require.NoError(t, err)

	calls := gw.calls("videos")
	require.Len(t, calls, 2)
	assert.Equal(t, "mostPopular", calls[0].Get("chart"))
	assert.Equal(t, "snippet,statistics,contentDetails", calls[0].Get("part"))
	assert.Equal(t, "DE", calls[0].Get("regionCode"))
	assert.Equal(t, "12", calls[0].Get("maxResults"))
	assert.False(t, calls[0].Has("pageToken"))
	assert.Equal(t, "CAwQAA", calls[1].Get("pageToken"))
}

func TestSearchSourceMergesStatistics(t *testing.T) {
	c, gw := newTestClient(t, func(endpoint string, q url.Values) (int, string) {
		switch endpoint {
		case "search":
			return http.StatusOK, `{"items":[
				{"id":{"videoId":"a"},"snippet":{"title":"A","channelId":"UCa"}},
				{"id":{"videoId":"b"},"snippet":{"title":"B","channelId":"UCb"}},
				{"id":{},"snippet":{"title":"channel result"}}
			]}`
		case "videos":
			return http.StatusOK, `{"items":[{"id":"b","statistics":{"viewCount":"42"},"contentDetails":{"duration":"PT1H"}}]}`
		}
		return http.StatusNotFound, `{"error":"unexpected"}`
	})
	src := SearchSource{Client: c, Query: "lo fi"}

	page, err := src.FetchPage(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
	require.Len(t, page.Items, 2)
	assert.False(t, page.Items[0].HasStats)
	assert.Equal(t, int64(42), page.Items[1].ViewCount)
	assert.Equal(t, time.Hour, page.Items[1].Duration)

	search := gw.calls("search")
	require.Len(t, search, 1)
	assert.Equal(t, "lo fi", search[0].Get("q"))
	assert.Equal(t, "video", search[0].Get("type"))
	assert.Equal(t, "20", search[0].Get("maxResults"))

	videos := gw.calls("videos")
	require.Len(t, videos, 1)
	assert.Equal(t, "a,b", videos[0].Get("id"))
}

func TestSearchSourceStatisticsFailure(t *testing.T) {
	c, _ := newTestClient(t, func(endpoint string, _ url.Values) (int, string) {
		if endpoint == "search" {
			return http.StatusOK, `{"items":[{"id":{"videoId":"a"},"snippet":{"title":"A"}}]}`
		}
		return http.StatusInternalServerError, `{"error":"Failed to fetch from upstream API"}`
	})
	_, err := SearchSource{Client: c, Query: "x"}.FetchPage(context.Background(), "")
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
}

func TestChannelsAvatarFallback(t *testing.T) {
	c, gw := newTestClient(t, func(string, url.Values) (int, string) {
		return http.StatusOK, `{"items":[
			{"id":"UC1","snippet":{"title":"One","thumbnails":{"medium":{"url":"https://img/m.jpg"},"default":{"url":"https://img/d.jpg"}}}},
			{"id":"UC2","snippet":{"title":"Two","thumbnails":{}}}
		]}`
	})

	got, err := c.Channels(context.Background(), []string{"UC1", "UC2"})
	require.NoError(t, err)
	assert.Equal(t, "https://img/m.jpg", got["UC1"].Avatar)
	assert.Equal(t, format.PlaceholderImage, got["UC2"].Avatar)
	assert.Equal(t, "Two", got["UC2"].Title)

	calls := gw.calls("channels")
	require.Len(t, calls, 1)
	assert.Equal(t, "snippet", calls[0].Get("part"))
	assert.Equal(t, "UC1,UC2", calls[0].Get("id"))
}

func TestChannelsBatching(t *testing.T) {
	c, gw := newTestClient(t, func(string, url.Values) (int, string) {
		return http.StatusOK, `{"items":[]}`
	})
	ids := make([]string, 120)
	for i := range ids {
		ids[i] = "UC" + strings.Repeat("x", i%5)
	}
	_, err := c.Channels(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, gw.calls("channels"), 3)
}

func TestFeedLoaderOverGateway(t *testing.T) {
	c, gw := newTestClient(t, func(endpoint string, q url.Values) (int, string) {
		switch endpoint {
		case "videos":
			if q.Get("pageToken") == "" {
				return http.StatusOK, `{"nextPageToken":"p2","items":[
					{"id":"A","snippet":{"channelId":"UC1"}},
					{"id":"B","snippet":{"channelId":"UC1"}},
					{"id":"C","snippet":{"channelId":"UC2"}}]}`
			}
			return http.StatusOK, `{"items":[
				{"id":"C","snippet":{"channelId":"UC2"}},
				{"id":"D","snippet":{"channelId":"UC3"}}]}`
		case "channels":
			var items []string
			for _, id := range strings.Split(q.Get("id"), ",") {
				items = append(items, `{"id":"`+id+`","snippet":{"title":"`+id+`"}}`)
			}
			return http.StatusOK, `{"items":[` + strings.Join(items, ",") + `]}`
		}
		return http.StatusNotFound, `{}`
	})
	l := NewFeedLoader(c, PopularSource{Client: c}, 100)

	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	_, err = l.LoadNext(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, v := range l.Items() {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids)
	assert.False(t, l.HasMore())

	channelCalls := gw.calls("channels")
	require.Len(t, channelCalls, 2)
	assert.Equal(t, "UC3", channelCalls[1].Get("id"))
	ch, ok := l.Meta("UC2")
	require.True(t, ok)
	assert.Equal(t, "UC2", ch.Title)
}

func TestSearchQueryEncoding(t *testing.T) {
	assert.Equal(t, "lo+fi+beats", EncodeSearchQuery(" lo fi beats "))
	assert.Equal(t, "a%26b", EncodeSearchQuery("a&b"))

	got, err := DecodeSearchQuery("lo+fi+beats")
	require.NoError(t, err)
	assert.Equal(t, "lo fi beats", got)
}
