// Package format turns raw video metadata into the short strings shown in
// lists: abbreviated view counts, relative ages, clock-style durations and
// cleaned-up titles.
package format

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// PlaceholderImage is shown when every thumbnail or avatar candidate failed.
const PlaceholderImage = "https://www.pngmart.com/files/23/Profile-PNG-Photo.png"

// DescriptionLimit is the number of runes kept by Snippet in result cards.
const DescriptionLimit = 121

var units = []struct {
	size   float64
	suffix string
}{
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// ViewCount abbreviates n: 999, 1.2K, 12K, 123K, 1.5M, 2B.
// Below 100 of a unit one decimal is kept with a trailing .0 dropped; at or
// above 100 the value is rounded.
func ViewCount(n int64) string {
	if n < 0 {
		n = 0
	}
	v := float64(n)
	for _, u := range units {
		if v < u.size {
			continue
		}
		scaled := v / u.size
		if scaled >= 100 {
			return strconv.FormatFloat(math.Round(scaled), 'f', 0, 64) + u.suffix
		}
		s := strconv.FormatFloat(scaled, 'f', 1, 64)
		return strings.TrimSuffix(s, ".0") + u.suffix
	}
	return strconv.FormatInt(n, 10)
}

// Comma renders an exact count with thousands separators.
func Comma(n int64) string {
	return humanize.Comma(n)
}

var ageIntervals = []struct {
	label   string
	seconds int64
}{
	{"year", 31536000},
	{"month", 2592000},
	{"week", 604800},
	{"day", 86400},
	{"hour", 3600},
	{"minute", 60},
}

// RelativeTime renders the age of t at now, e.g. "3 days ago" or "just now".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	seconds := int64(now.Sub(t) / time.Second)
	for _, iv := range ageIntervals {
		count := seconds / iv.seconds
		if count >= 1 {
			if count > 1 {
				return fmt.Sprintf("%d %ss ago", count, iv.label)
			}
			return fmt.Sprintf("%d %s ago", count, iv.label)
		}
	}
	return "just now"
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration parses the subset of ISO-8601 durations the video API
// emits for content length (PnDTnHnMnS).
func ParseISODuration(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	m := isoDurationRe.FindStringSubmatch(trimmed)
	if m == nil || trimmed == "P" || trimmed == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	var d time.Duration
	for i, unit := range []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}

// Duration renders d as a player clock: 4:05, 1:02:03. Zero renders empty.
func Duration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Title decodes HTML entities the API leaves in titles and channel names.
func Title(s string) string {
	return html.UnescapeString(strings.TrimSpace(s))
}

// Snippet decodes s and cuts it to limit runes, appending "...".
func Snippet(s string, limit int) string {
	s = Title(s)
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// Fit truncates s to width terminal cells with an ellipsis and pads it.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}
