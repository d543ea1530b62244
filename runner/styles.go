package runner

import "github.com/charmbracelet/lipgloss"

var (
	colorHint   = lipgloss.Color("#9ca3af") // gray-400
	colorHintBg = lipgloss.Color("#1f2937") // gray-800
	colorDim    = lipgloss.Color("#6b7280") // gray-500
	colorError  = lipgloss.Color("#ef4444") // red-500
	colorAccent = lipgloss.Color("#3b82f6") // blue-500
)

// Styles holds the lipgloss styles used by the text formatter.
type Styles struct {
	Hint       lipgloss.Style
	Path       lipgloss.Style
	LineNumber lipgloss.Style
	Dim        lipgloss.Style
	Bold       lipgloss.Style
	Error      lipgloss.Style

	SymbolError string
	Gutter      string
}

// DefaultStyles returns colored styles for terminals.
func DefaultStyles() *Styles {
	return &Styles{
		Hint:       lipgloss.NewStyle().Foreground(colorHint).Background(colorHintBg).Italic(true),
		Path:       lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		LineNumber: lipgloss.NewStyle().Foreground(colorDim),
		Dim:        lipgloss.NewStyle().Foreground(colorDim),
		Bold:       lipgloss.NewStyle().Bold(true),
		Error:      lipgloss.NewStyle().Foreground(colorError).Bold(true),

		SymbolError: "✗",
		Gutter:      "│",
	}
}

// PlainStyles returns unstyled output for pipes and files.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()

	return &Styles{
		Hint:       plain,
		Path:       plain,
		LineNumber: plain,
		Dim:        plain,
		Bold:       plain,
		Error:      plain,

		SymbolError: "error:",
		Gutter:      "|",
	}
}
