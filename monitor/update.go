package monitor

import (
	"fmt"
	"strings"

	"text2shorts/types"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKey(msg)
		}
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStatus(m.API), tickCmd())
	case StatusUpdateMsg:
		if msg.Err != nil {
			m.Connected = false
			m.Err = msg.Err
			return m, nil
		}
		m.Connected = true
		m.Err = nil
		m.Status = msg.Status
		return m, nil
	case ActionMsg:
		if msg.Err != nil {
			m.Notice = fmt.Sprintf("%s failed: %v", msg.Action, msg.Err)
		} else {
			m.Notice = msg.Action + " requested"
		}
		return m, pollStatus(m.API)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "s", "S":
		if m.running() {
			m.Notice = "a batch is already running"
			return m, nil
		}
		topicFile := strings.TrimSpace(m.TopicFile())
		if topicFile == "" {
			m.Notice = "set a topic file first (press 'e')"
			return m, nil
		}
		m.Notice = "starting " + topicFile
		return m, startBatch(m.API, types.BatchRequest{TopicFile: topicFile, SendReport: m.SendReport})
	case "x", "X":
		m.Notice = "stopping after the current topic"
		return m, stopBatch(m.API)
	case "e", "E":
		m.editing = true
		m.input.Focus()
		return m, nil
	case "r", "R":
		m.SendReport = !m.SendReport
		return m, nil
	}
	return m, nil
}

// handleEditKey edits the topic file path until enter or esc.
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.editing = false
		m.input.Blur()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
