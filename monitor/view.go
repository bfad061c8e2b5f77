package monitor

import (
	"fmt"
	"strings"
	"time"

	"text2shorts/types"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("🎬 text2shorts batch monitor"))
	b.WriteString("\n")

	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if m.Status != nil {
		if results := m.resultsText(); results != "" {
			b.WriteString(resultsBox.Render(results))
			b.WriteString("\n\n")
		}

		logs := m.Status.Logs
		if len(logs) > maxShownLogs {
			logs = logs[len(logs)-maxShownLogs:]
		}
		if len(logs) > 0 {
			b.WriteString(hintStyle.Render("📝 Recent Activity:"))
			b.WriteString("\n")
			for _, entry := range logs {
				line := fmt.Sprintf("   %s %s", entry.Timestamp.Format("15:04:05"), entry.Message)
				b.WriteString(hintStyle.Render(line))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	report := "off"
	if m.SendReport {
		report = "on"
	}
	b.WriteString(hintStyle.Render("email reports: " + report))
	b.WriteString("\n\n")

	if m.Notice != "" {
		b.WriteString(noticeStyle.Render(m.Notice))
		b.WriteString("\n")
	}

	if m.editing {
		b.WriteString(hintStyle.Render("enter/esc to finish editing"))
	} else {
		b.WriteString(hintStyle.Render("s start | x stop | e edit topic file | r toggle reports | q quit"))
	}
	return b.String()
}

func (m Model) stateText() string {
	if !m.Connected {
		msg := "❌ Not connected to control server"
		if m.Err != nil {
			msg += ": " + m.Err.Error()
		}
		return stateStyle(types.StateError).Render(msg)
	}

	s := m.Status
	style := stateStyle(s.State)
	switch s.State {
	case types.StateIdle:
		return style.Render("👋 Idle") + "\n" + hintStyle.Render("Press 's' to start a batch")
	case types.StateRunning:
		progress := fmt.Sprintf("%d/%d", len(s.Results), s.TopicCount)
		current := s.CurrentTopic
		if current == "" {
			current = "..."
		}
		return fmt.Sprintf("%s %s %s %s", m.spinner.View(),
			style.Render("Processing"), topicStyle.Render(current), hintStyle.Render(progress))
	case types.StateStopping:
		return fmt.Sprintf("%s %s", m.spinner.View(), style.Render("🛑 Stopping after "+s.CurrentTopic))
	case types.StateComplete:
		return style.Render(fmt.Sprintf("✅ Batch complete (%d topics)", len(s.Results)))
	case types.StateError:
		return style.Render("❌ Error: " + s.Error)
	default:
		return string(s.State)
	}
}

func (m Model) resultsText() string {
	if len(m.Status.Results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range m.Status.Results {
		if i > 0 {
			b.WriteString("\n")
		}
		line := fmt.Sprintf("%-30s %s", r.Topic, r.Elapsed.Round(time.Second))
		if keys := r.Failures.Keys(); len(keys) > 0 {
			line += "  failed: " + strings.Join(keys, ", ")
		}
		mark, style := resultMark(r.Status)
		b.WriteString(style.Render(mark + " " + line))
	}
	return b.String()
}
