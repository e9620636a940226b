package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/tubex/internal/format"
	"github.com/oakwood-commons/tubex/internal/youtube"
)

const (
	outputAuto  = "auto"
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTOML  = "toml"

	defaultFallbackTermWidth = 120
)

var outputFormats = []string{outputAuto, outputTable, outputJSON, outputYAML, outputTOML}

// isTerminal is swapped by tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resolveOutput validates name and resolves auto: a table on a terminal,
// JSON otherwise.
func resolveOutput(name string, w io.Writer) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(outputFormats, name) {
		return "", fmt.Errorf("invalid output format %q (expected %s)", name, strings.Join(outputFormats, "|"))
	}
	if name != outputAuto {
		return name, nil
	}
	if isTerminal(w) {
		return outputTable, nil
	}
	return outputJSON, nil
}

func completeOutput(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return outputFormats, cobra.ShellCompDirectiveNoFileComp
}

// videoRecord is the printed form of a video.
type videoRecord struct {
	ID            string `json:"id" yaml:"id" toml:"id"`
	Title         string `json:"title" yaml:"title" toml:"title"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Channel       string `json:"channel" yaml:"channel" toml:"channel"`
	ChannelID     string `json:"channel_id" yaml:"channel_id" toml:"channel_id"`
	Views         *int64 `json:"views,omitempty" yaml:"views,omitempty" toml:"views,omitempty"`
	PublishedAt   string `json:"published_at,omitempty" yaml:"published_at,omitempty" toml:"published_at,omitempty"`
	Duration      string `json:"duration,omitempty" yaml:"duration,omitempty" toml:"duration,omitempty"`
	URL           string `json:"url" yaml:"url" toml:"url"`
	Thumbnail     string `json:"thumbnail" yaml:"thumbnail" toml:"thumbnail"`
	ChannelAvatar string `json:"channel_avatar,omitempty" yaml:"channel_avatar,omitempty" toml:"channel_avatar,omitempty"`

	published time.Time
	duration  time.Duration
}

func newVideoRecord(v youtube.Video) videoRecord {
	rec := videoRecord{
		ID:          v.ID,
		Title:       v.Title,
		Description: format.Snippet(v.Description, format.DescriptionLimit),
		Channel:     v.ChannelTitle,
		ChannelID:   v.ChannelID,
		URL:         v.URL(),
		Thumbnail:   v.Thumbnail(),
		published:   v.PublishedAt,
		duration:    v.Duration,
	}
	if v.HasStats {
		views := v.ViewCount
		rec.Views = &views
	}
	if !v.PublishedAt.IsZero() {
		rec.PublishedAt = v.PublishedAt.UTC().Format(time.RFC3339)
	}
	if v.Duration > 0 {
		rec.Duration = format.Duration(v.Duration)
	}
	return rec
}

func writeVideos(w io.Writer, kind string, records []videoRecord, noColor bool) error {
	switch kind {
	case outputTable:
		_, err := io.WriteString(w, renderVideoTable(records, terminalWidth(w), time.Now(), noColor))
		return err
	case outputTOML:
		return writeTOML(w, struct {
			Videos []videoRecord `toml:"videos"`
		}{records})
	default:
		return writeData(w, kind, records)
	}
}

func writeSuggestions(w io.Writer, kind string, list []string) error {
	if list == nil {
		list = []string{}
	}
	switch kind {
	case outputTable:
		for _, s := range list {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	case outputTOML:
		return writeTOML(w, struct {
			Suggestions []string `toml:"suggestions"`
		}{list})
	default:
		return writeData(w, kind, list)
	}
}

func writeData(w io.Writer, kind string, v any) error {
	switch kind {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
}

func writeTOML(w io.Writer, v any) error {
	data, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultFallbackTermWidth
}

// renderVideoTable lays records out in fixed columns; the title takes the
// width left over.
func renderVideoTable(records []videoRecord, width int, now time.Time, noColor bool) string {
	if len(records) == 0 {
		return "No videos found.\n"
	}
	const (
		viewsW    = 7
		ageW      = 14
		durationW = 8
		gaps      = 4
	)
	channelW := max(10, width/5)
	titleW := max(10, width-channelW-viewsW-ageW-durationW-gaps)

	header := lipgloss.NewStyle().Bold(true)
	muted := lipgloss.NewStyle()
	if !noColor {
		header = header.Foreground(lipgloss.Color("81"))
		muted = muted.Foreground(lipgloss.Color("244"))
	}
	details := func(channel, views, age, duration string) string {
		return strings.Join([]string{
			format.Fit(channel, channelW),
			padLeft(views, viewsW),
			format.Fit(age, ageW),
			padLeft(duration, durationW),
		}, " ")
	}

	var b strings.Builder
	b.WriteString(header.Render(format.Fit("TITLE", titleW) + " " + details("CHANNEL", "VIEWS", "PUBLISHED", "LENGTH")))
	b.WriteString("\n")
	for _, r := range records {
		views := "-"
		if r.Views != nil {
			views = format.ViewCount(*r.Views)
		}
		age := ""
		if !r.published.IsZero() {
			age = format.RelativeTime(r.published, now)
		}
		duration := ""
		if r.duration > 0 {
			duration = format.Duration(r.duration)
		}
		b.WriteString(format.Fit(r.Title, titleW))
		b.WriteString(" ")
		b.WriteString(muted.Render(details(r.Channel, views, age, duration)))
		b.WriteString("\n")
	}
	return b.String()
}

func padLeft(s string, width int) string {
	fit := format.Fit(s, width)
	trimmed := strings.TrimRight(fit, " ")
	return strings.Repeat(" ", len(fit)-len(trimmed)) + trimmed
}
