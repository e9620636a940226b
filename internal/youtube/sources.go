package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/oakwood-commons/tubex/internal/feed"
)

// Page sizes used by the web client.
const (
	DefaultPopularPageSize = 12
	DefaultSearchPageSize  = 20
	// maxIDsPerCall is the Data API limit for id=<csv> lookups.
	maxIDsPerCall = 50
)

// PopularSource pages through the most-popular chart for a region.
type PopularSource struct {
	Client   *Client
	Region   string
	PageSize int
}

// FetchPage implements feed.Source.
func (s PopularSource) FetchPage(ctx context.Context, cursor string) (feed.Page[Video], error) {
	size := s.PageSize
	if size <= 0 {
		size = DefaultPopularPageSize
	}
	params := url.Values{
		"part":       {"snippet,statistics,contentDetails"},
		"chart":      {"mostPopular"},
		"maxResults": {strconv.Itoa(size)},
	}
	if s.Region != "" {
		params.Set("regionCode", s.Region)
	}
	if cursor != "" {
		params.Set("pageToken", cursor)
	}

	var list apiVideoList
	if err := s.Client.getJSON(ctx, "videos", params, &list); err != nil {
		return feed.Page[Video]{}, fmt.Errorf("popular videos: %w", err)
	}
	page := feed.Page[Video]{NextCursor: list.NextPageToken}
	for _, it := range list.Items {
		if it.ID == "" {
			continue
		}
		page.Items = append(page.Items, it.toVideo())
	}
	return page, nil
}

// SearchSource pages through search results for Query. Search results carry
// no statistics, so every page is followed by one videos lookup whose view
// counts and durations are merged in.
type SearchSource struct {
	Client   *Client
	Query    string
	PageSize int
}

// FetchPage implements feed.Source.
func (s SearchSource) FetchPage(ctx context.Context, cursor string) (feed.Page[Video], error) {
	size := s.PageSize
	if size <= 0 {
		size = DefaultSearchPageSize
	}
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {s.Query},
		"maxResults": {strconv.Itoa(size)},
	}
	if cursor != "" {
		params.Set("pageToken", cursor)
	}

	var list apiSearchList
	if err := s.Client.getJSON(ctx, "search", params, &list); err != nil {
		return feed.Page[Video]{}, fmt.Errorf("search %q: %w", s.Query, err)
	}
	page := feed.Page[Video]{NextCursor: list.NextPageToken}
	ids := make([]string, 0, len(list.Items))
	for _, it := range list.Items {
		if it.ID.VideoID == "" {
			continue
		}
		page.Items = append(page.Items, videoFromSnippet(it.ID.VideoID, it.Snippet))
		ids = append(ids, it.ID.VideoID)
	}
	if len(ids) == 0 {
		return page, nil
	}

	details, err := s.Client.videoDetails(ctx, ids)
	if err != nil {
		return feed.Page[Video]{}, fmt.Errorf("search %q statistics: %w", s.Query, err)
	}
	for i := range page.Items {
		if d, ok := details[page.Items[i].ID]; ok {
			page.Items[i].applyDetails(d.Statistics, d.ContentDetails)
		}
	}
	return page, nil
}

func (c *Client) videoDetails(ctx context.Context, ids []string) (map[string]apiVideo, error) {
	out := make(map[string]apiVideo, len(ids))
	for _, chunk := range chunks(ids, maxIDsPerCall) {
		params := url.Values{
			"part": {"statistics,contentDetails"},
			"id":   {strings.Join(chunk, ",")},
		}
		var list apiVideoList
		if err := c.getJSON(ctx, "videos", params, &list); err != nil {
			return nil, err
		}
		for _, it := range list.Items {
			out[it.ID] = it
		}
	}
	return out, nil
}

// Channels looks up display metadata for channel ids in batches.
func (c *Client) Channels(ctx context.Context, ids []string) (map[string]Channel, error) {
	out := make(map[string]Channel, len(ids))
	for _, chunk := range chunks(ids, maxIDsPerCall) {
		params := url.Values{
			"part": {"snippet"},
			"id":   {strings.Join(chunk, ",")},
		}
		var list apiChannelList
		if err := c.getJSON(ctx, "channels", params, &list); err != nil {
			return nil, fmt.Errorf("channels: %w", err)
		}
		for _, it := range list.Items {
			out[it.ID] = it.toChannel()
		}
	}
	return out, nil
}

// ChannelEnricher wires Channels into a feed loader.
func ChannelEnricher(c *Client) *feed.Enricher[Video, Channel] {
	return &feed.Enricher[Video, Channel]{
		Keys:   Video.ChannelKeys,
		Lookup: c.Channels,
	}
}

// NewFeedLoader returns a loader over src that enriches videos with their
// channels and keeps at most maxItems.
func NewFeedLoader(c *Client, src feed.Source[Video], maxItems int) *feed.Loader[Video, Channel] {
	return feed.NewLoader(src, feed.Options[Video, Channel]{
		Key:      Video.Key,
		MaxItems: maxItems,
		Enrich:   ChannelEnricher(c),
	})
}

func chunks(ids []string, n int) [][]string {
	var out [][]string
	for len(ids) > n {
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
