package monitor

import (
	"github.com/charmbracelet/lipgloss"

	"text2shorts/types"
)

var (
	accent = lipgloss.Color("#5FAFD7")
	dim    = lipgloss.Color("#767676")
	good   = lipgloss.Color("#5FD75F")
	bad    = lipgloss.Color("#FF5F5F")
	amber  = lipgloss.Color("#FFAF00")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	hintStyle   = lipgloss.NewStyle().Foreground(dim)
	noticeStyle = lipgloss.NewStyle().Foreground(amber)
	topicStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	resultsBox  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(dim).
			PaddingLeft(1)
)

// stateStyles colours the batch state line. Idle and unknown states use the
// zero style.
var stateStyles = map[types.State]lipgloss.Style{
	types.StateRunning:  lipgloss.NewStyle().Foreground(accent),
	types.StateStopping: lipgloss.NewStyle().Foreground(amber),
	types.StateComplete: lipgloss.NewStyle().Bold(true).Foreground(good),
	types.StateError:    lipgloss.NewStyle().Bold(true).Foreground(bad),
}

func stateStyle(s types.State) lipgloss.Style {
	return stateStyles[s]
}

// resultMark returns the marker and style of a finished topic line.
func resultMark(s types.TopicStatus) (string, lipgloss.Style) {
	switch s {
	case types.TopicSuccessful:
		return "✔", lipgloss.NewStyle().Foreground(good)
	case types.TopicInterrupted:
		return "■", lipgloss.NewStyle().Foreground(amber)
	default:
		return "✘", lipgloss.NewStyle().Foreground(bad)
	}
}
