package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/tubex/internal/format"
	"github.com/oakwood-commons/tubex/internal/youtube"
)

const (
	headerLines = 2 // search bar and separator
	footerLines = 4 // separator, two detail lines, status
	brand       = " tubex "
)

// listHeight is the number of video rows that fit under the header,
// dropdown and footer.
func (m *Model) listHeight() int {
	return max(1, m.height-headerLines-footerLines-m.dropdownHeight())
}

func (m *Model) dropdownHeight() int {
	if m.focus != focusSearch || !m.engine.Open() {
		return 0
	}
	return len(m.engine.Suggestions())
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m *Model) render() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if d := m.renderDropdown(); d != "" {
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString(m.styles.separator.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderHeader() string {
	label := m.styles.brand.Render(brand)
	field := m.input.View()
	if m.focus != focusSearch && m.input.Value() == "" {
		field = m.styles.meta.Render("/ to search")
	}
	return label + " " + m.styles.input.Render(field)
}

func (m *Model) renderDropdown() string {
	if m.dropdownHeight() == 0 {
		return ""
	}
	width := max(10, m.width-lipgloss.Width(brand)-1)
	indent := strings.Repeat(" ", lipgloss.Width(brand)+1)
	lines := make([]string, 0, len(m.engine.Suggestions()))
	for i, s := range m.engine.Suggestions() {
		row := format.Fit(" "+s, width)
		if i == m.engine.Cursor() {
			row = m.styles.highlight.Render(row)
		} else {
			row = m.styles.dropdown.Render(row)
		}
		lines = append(lines, indent+row)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderList() string {
	h := m.listHeight()
	var b strings.Builder
	switch {
	case len(m.rows) == 0 && m.loader.Loading():
		b.WriteString(m.styles.meta.Render(" Loading…"))
		b.WriteString("\n")
		h--
	case len(m.rows) == 0 && m.loader.Err() == nil && !m.loader.HasMore():
		b.WriteString(m.styles.meta.Render(" No videos found"))
		b.WriteString("\n")
		h--
	}
	end := min(len(m.rows), m.offset+h)
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.cursor))
		b.WriteString("\n")
		h--
	}
	for ; h > 0; h-- {
		b.WriteString("\n")
	}
	return b.String()
}

// column widths for a row of the given total width.
func columns(width int) (title, channel, stats int) {
	stats = 24
	channel = max(8, width/5)
	title = max(10, width-channel-stats-4)
	return title, channel, stats
}

func (m *Model) renderRow(v youtube.Video, selected bool) string {
	tw, cw, sw := columns(m.width)
	marker := "  "
	if selected {
		marker = "▶ "
	}
	title := format.Fit(v.Title, tw)
	channel := format.Fit(v.ChannelTitle, cw)
	stats := format.Fit(m.statsLine(v), sw)
	if selected {
		return m.styles.selected.Render(marker + title + " " + channel + " " + stats)
	}
	return marker + m.styles.title.Render(title) + " " + m.styles.meta.Render(channel+" "+stats)
}

// statsLine is "1.2M views • 3 days ago • 4:05".
func (m *Model) statsLine(v youtube.Video) string {
	var parts []string
	if v.HasStats {
		parts = append(parts, format.ViewCount(v.ViewCount)+" views")
	}
	if !v.PublishedAt.IsZero() {
		parts = append(parts, format.RelativeTime(v.PublishedAt, m.now()))
	}
	if v.Duration > 0 {
		parts = append(parts, format.Duration(v.Duration))
	}
	return strings.Join(parts, " • ")
}

func (m *Model) renderFooter() string {
	var b strings.Builder
	b.WriteString(m.styles.separator.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	detail, extra := "", ""
	if v, ok := m.selected(); ok {
		views := "no view count"
		if v.HasStats {
			views = format.Comma(v.ViewCount) + " views"
		}
		avatar := format.PlaceholderImage
		if ch, ok := m.loader.Meta(v.ChannelID); ok {
			avatar = format.Avatar(ch.Avatar)
		}
		detail = fmt.Sprintf(" %s • %s • avatar %s", views, v.URL(), avatar)
		extra = " " + v.ChannelTitle
		if d := format.Snippet(v.Description, format.DescriptionLimit); d != "" {
			extra += " • " + d
		}
	}
	b.WriteString(format.Fit(detail, m.width))
	b.WriteString("\n")
	b.WriteString(m.styles.meta.Render(format.Fit(extra, m.width)))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m *Model) renderStatus() string {
	if m.status != "" {
		st := m.styles.status
		if m.statusErr {
			st = m.styles.errStatus
		}
		return st.Render(format.Fit(" "+m.status, m.width))
	}
	left := " " + keyHints[m.focus]
	if m.query != "" {
		left = fmt.Sprintf(" search_query=%s • %s", m.searchParam, keyHints[m.focus])
	}
	return m.styles.hint.Render(format.Fit(left, m.width))
}
