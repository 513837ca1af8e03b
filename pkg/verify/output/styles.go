package output

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette.
const (
	// ColorPrimary is used for headers (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess is used for valid files (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning is used for advisory notices (orange).
	ColorWarning = lipgloss.Color("214")

	// ColorDanger is used for failed files (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

var (
	// HeaderBox frames the repository metadata.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox frames the run summary.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)

	// LabelStyle is used for field labels.
	LabelStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	// ValueStyle is used for field values.
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))

	// SuccessStyle marks valid files and the VALID verdict.
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)

	// DangerStyle marks failed files and the INVALID verdict.
	DangerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

	// WarningStyle marks advisory notices.
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)

	// MutedStyle is used for de-emphasized detail lines.
	MutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	// TableHeaderStyle is used for column headers.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
)
