package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Theme is the colour palette of the browser.
type Theme struct {
	Accent     color.Color
	Text       color.Color
	Muted      color.Color
	SelectedFG color.Color
	SelectedBG color.Color
	InputBG    color.Color
	Error      color.Color
	Success    color.Color
	Separator  color.Color
}

// DefaultTheme is the dark palette.
func DefaultTheme() Theme {
	return Theme{
		Accent:     lipgloss.Color("81"),  // cyan
		Text:       lipgloss.Color("252"), // titles
		Muted:      lipgloss.Color("244"), // channel and stats
		SelectedFG: lipgloss.Color("250"),
		SelectedBG: lipgloss.Color("24"), // deep teal
		InputBG:    lipgloss.Color("236"),
		Error:      lipgloss.Color("203"),
		Success:    lipgloss.Color("114"),
		Separator:  lipgloss.Color("238"),
	}
}

// styles are the rendered styles for one theme and colour mode.
type styles struct {
	brand     lipgloss.Style
	input     lipgloss.Style
	dropdown  lipgloss.Style
	highlight lipgloss.Style
	title     lipgloss.Style
	meta      lipgloss.Style
	selected  lipgloss.Style
	separator lipgloss.Style
	status    lipgloss.Style
	errStatus lipgloss.Style
	okStatus  lipgloss.Style
	hint      lipgloss.Style
}

func newStyles(t Theme, noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			brand:     plain.Bold(true),
			input:     plain,
			dropdown:  plain,
			highlight: plain.Reverse(true),
			title:     plain,
			meta:      plain,
			selected:  plain.Reverse(true),
			separator: plain,
			status:    plain,
			errStatus: plain.Bold(true),
			okStatus:  plain,
			hint:      plain,
		}
	}
	return styles{
		brand:     lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		input:     lipgloss.NewStyle().Background(t.InputBG),
		dropdown:  lipgloss.NewStyle().Foreground(t.Muted).Background(t.InputBG),
		highlight: lipgloss.NewStyle().Foreground(t.SelectedFG).Background(t.SelectedBG),
		title:     lipgloss.NewStyle().Foreground(t.Text),
		meta:      lipgloss.NewStyle().Foreground(t.Muted),
		selected:  lipgloss.NewStyle().Foreground(t.SelectedFG).Background(t.SelectedBG).Bold(true),
		separator: lipgloss.NewStyle().Foreground(t.Separator),
		status:    lipgloss.NewStyle().Foreground(t.Accent),
		errStatus: lipgloss.NewStyle().Foreground(t.Error),
		okStatus:  lipgloss.NewStyle().Foreground(t.Success),
		hint:      lipgloss.NewStyle().Foreground(t.Muted),
	}
}
