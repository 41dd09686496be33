package ui

import "github.com/charmbracelet/lipgloss"

// Palette. One accent color, grays for structure.
const (
	ColorAccent   = "147"
	ColorAccentDm = "104"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorGreen    = "114"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds the rendering styles.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Label    lipgloss.Style
	Question lipgloss.Style
	Answer   lipgloss.Style
	Fallback lipgloss.Style
	Prompt   lipgloss.Style
	Panel    lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Question: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Answer:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Fallback: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(ColorGray)),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorAccentDm)).
			Padding(0, 1),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:   plain,
		Success:  plain,
		Warning:  plain,
		Error:    plain,
		Dim:      plain,
		Label:    plain,
		Question: plain,
		Answer:   plain,
		Fallback: plain,
		Prompt:   plain,
		Panel:    plain,
	}
}

// GetStyles picks styles by color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
