// Package styles holds the TUI's colours and lipgloss styles.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/parley/internal/core/domain"
)

// Theme is the palette. Each colour has a light and a dark variant and
// lipgloss picks one from the terminal background.
type Theme struct {
	User      lipgloss.AdaptiveColor
	Assistant lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Notice    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Bar       lipgloss.AdaptiveColor

	// Tools colours the badge naming the path an answer took.
	Tools map[domain.RoutingTool]lipgloss.AdaptiveColor
}

// DefaultTheme returns the built-in palette.
func DefaultTheme() *Theme {
	return &Theme{
		User:      lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"},
		Assistant: lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"},
		Text:      lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
		Muted:     lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		Notice:    lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"},
		Error:     lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"},
		Border:    lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"},
		Bar:       lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#111827"},
		Tools: map[domain.RoutingTool]lipgloss.AdaptiveColor{
			domain.ToolRAG:      {Light: "#15803D", Dark: "#86EFAC"},
			domain.ToolInternet: {Light: "#1D4ED8", Dark: "#93C5FD"},
			domain.ToolScraping: {Light: "#0F766E", Dark: "#5EEAD4"},
			domain.ToolLLM:      {Light: "#6D28D9", Dark: "#C4B5FD"},
		},
	}
}

// Styles are the lipgloss styles built from a Theme.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	User       lipgloss.Style // "You:" label
	Assistant  lipgloss.Style // "Parley:" label
	Notice     lipgloss.Style // redirections and fallbacks
	Source     lipgloss.Style
	Error      lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles builds styles from theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	boxed := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)

	return &Styles{
		theme:      theme,
		Title:      fg(theme.User).Bold(true),
		Normal:     fg(theme.Text),
		Muted:      fg(theme.Muted),
		User:       fg(theme.User).Bold(true),
		Assistant:  fg(theme.Assistant).Bold(true),
		Notice:     fg(theme.Notice).Italic(true),
		Source:     fg(theme.Muted).Underline(true),
		Error:      fg(theme.Error),
		InputField: boxed,
		StatusBar:  fg(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Help:       fg(theme.Muted),
		Border:     boxed,
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// ToolBadge renders the path that produced an answer, such as
// "[web search]".
func (s *Styles) ToolBadge(tool domain.RoutingTool) string {
	colour, ok := s.theme.Tools[tool]
	if !ok {
		colour = s.theme.Muted
	}
	return lipgloss.NewStyle().Foreground(colour).Render("[" + tool.Description() + "]")
}
