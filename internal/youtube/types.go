package youtube

import (
	"strconv"
	"time"

	"github.com/oakwood-commons/tubex/internal/format"
)

// Video is one feed item. Identity is ID only.
type Video struct {
	ID           string        `json:"id" yaml:"id" toml:"id"`
	Title        string        `json:"title" yaml:"title" toml:"title"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	ChannelID    string        `json:"channel_id" yaml:"channel_id" toml:"channel_id"`
	ChannelTitle string        `json:"channel_title" yaml:"channel_title" toml:"channel_title"`
	ViewCount    int64         `json:"view_count" yaml:"view_count" toml:"view_count"`
	HasStats     bool          `json:"-" yaml:"-" toml:"-"`
	PublishedAt  time.Time     `json:"published_at" yaml:"published_at" toml:"published_at"`
	Duration     time.Duration `json:"duration,omitempty" yaml:"duration,omitempty" toml:"duration,omitempty"`
	Thumbnails   Thumbnails    `json:"thumbnails" yaml:"thumbnails" toml:"thumbnails"`
}

// Key returns the identity used for de-duplication.
func (v Video) Key() string { return v.ID }

// ChannelKeys returns the related channel for enrichment.
func (v Video) ChannelKeys() []string {
	if v.ChannelID == "" {
		return nil
	}
	return []string{v.ChannelID}
}

// Thumbnail returns the best available thumbnail URL.
func (v Video) Thumbnail() string {
	t := v.Thumbnails
	return format.VideoThumbnail(v.ID, t.Maxres, t.High, t.Medium, t.Default)
}

// URL is the watch page for the video.
func (v Video) URL() string { return format.WatchURL(v.ID) }

// Thumbnails holds the rendition URLs in preference order.
type Thumbnails struct {
	Maxres  string `json:"maxres,omitempty" yaml:"maxres,omitempty" toml:"maxres,omitempty"`
	High    string `json:"high,omitempty" yaml:"high,omitempty" toml:"high,omitempty"`
	Medium  string `json:"medium,omitempty" yaml:"medium,omitempty" toml:"medium,omitempty"`
	Default string `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
}

// Channel is the display metadata looked up for a video's channel.
type Channel struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Title  string `json:"title" yaml:"title" toml:"title"`
	Avatar string `json:"avatar" yaml:"avatar" toml:"avatar"`
}

// Data API wire types.

type apiThumb struct {
	URL string `json:"url"`
}

type apiThumbs struct {
	Default  *apiThumb `json:"default"`
	Medium   *apiThumb `json:"medium"`
	High     *apiThumb `json:"high"`
	Standard *apiThumb `json:"standard"`
	Maxres   *apiThumb `json:"maxres"`
}

func (t apiThumbs) url(p *apiThumb) string {
	if p == nil {
		return ""
	}
	return p.URL
}

func (t apiThumbs) toThumbnails() Thumbnails {
	return Thumbnails{
		Maxres:  t.url(t.Maxres),
		High:    t.url(t.High),
		Medium:  t.url(t.Medium),
		Default: t.url(t.Default),
	}
}

type apiSnippet struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelID    string    `json:"channelId"`
	ChannelTitle string    `json:"channelTitle"`
	PublishedAt  string    `json:"publishedAt"`
	Thumbnails   apiThumbs `json:"thumbnails"`
}

type apiStatistics struct {
	ViewCount string `json:"viewCount"`
}

type apiContentDetails struct {
	Duration string `json:"duration"`
}

type apiVideo struct {
	ID             string             `json:"id"`
	Snippet        apiSnippet         `json:"snippet"`
	Statistics     *apiStatistics     `json:"statistics"`
	ContentDetails *apiContentDetails `json:"contentDetails"`
}

type apiVideoList struct {
	Items         []apiVideo `json:"items"`
	NextPageToken string     `json:"nextPageToken"`
}

type apiSearchResult struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet apiSnippet `json:"snippet"`
}

type apiSearchList struct {
	Items         []apiSearchResult `json:"items"`
	NextPageToken string            `json:"nextPageToken"`
}

type apiChannel struct {
	ID      string     `json:"id"`
	Snippet apiSnippet `json:"snippet"`
}

type apiChannelList struct {
	Items []apiChannel `json:"items"`
}

func videoFromSnippet(id string, s apiSnippet) Video {
	v := Video{
		ID:           id,
		Title:        format.Title(s.Title),
		Description:  format.Title(s.Description),
		ChannelID:    s.ChannelID,
		ChannelTitle: format.Title(s.ChannelTitle),
		Thumbnails:   s.Thumbnails.toThumbnails(),
	}
	if ts, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
		v.PublishedAt = ts
	}
	return v
}

func (v *Video) applyDetails(stats *apiStatistics, details *apiContentDetails) {
	if stats != nil {
		if n, err := strconv.ParseInt(stats.ViewCount, 10, 64); err == nil {
			v.ViewCount = n
			v.HasStats = true
		}
	}
	if details != nil {
		if d, err := format.ParseISODuration(details.Duration); err == nil {
			v.Duration = d
		}
	}
}

func (a apiVideo) toVideo() Video {
	v := videoFromSnippet(a.ID, a.Snippet)
	v.applyDetails(a.Statistics, a.ContentDetails)
	return v
}

func (a apiChannel) toChannel() Channel {
	t := a.Snippet.Thumbnails
	return Channel{
		ID:     a.ID,
		Title:  format.Title(a.Snippet.Title),
		Avatar: format.Avatar(format.Thumbnail(t.url(t.Maxres), t.url(t.High), t.url(t.Medium), t.url(t.Default))),
	}
}
