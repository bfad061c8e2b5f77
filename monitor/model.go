// Package monitor is a terminal client for the batch control API.
package monitor

import (
	"time"

	"text2shorts/types"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// maxShownLogs bounds the log lines drawn under the results.
const maxShownLogs = 8

// API is the part of the control API the monitor uses.
type API interface {
	GetStatus() (*types.StatusResponse, error)
	StartBatch(req types.BatchRequest) error
	StopBatch() error
}

// StatusUpdateMsg carries one poll result.
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// TickMsg triggers the next poll.
type TickMsg struct {
	Time time.Time
}

// ActionMsg reports the result of a start or stop request.
type ActionMsg struct {
	Action string
	Err    error
}

// Model is the monitor state, synced from the server by polling
type Model struct {
	API API

	Status    *types.StatusResponse
	Connected bool
	Err       error
	Notice    string

	SendReport bool
	editing    bool
	input      textinput.Model
	spinner    spinner.Model
}

// NewModel creates a monitor for the server at url. topicFile prefills the
// topic list started with 's'.
func NewModel(api API, topicFile string, sendReport bool) Model {
	input := textinput.New()
	input.Prompt = "topic file> "
	input.CharLimit = 1024
	input.Width = 60
	input.SetValue(topicFile)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = stateStyle(types.StateRunning)

	return Model{
		API:        api,
		SendReport: sendReport,
		input:      input,
		spinner:    sp,
	}
}

// TopicFile is the topic list the next start request uses.
func (m Model) TopicFile() string {
	return m.input.Value()
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollStatus(m.API),
		tickCmd(),
		m.spinner.Tick,
	)
}

func (m Model) running() bool {
	if m.Status == nil {
		return false
	}
	return m.Status.State == types.StateRunning || m.Status.State == types.StateStopping
}

func pollStatus(api API) tea.Cmd {
	return func() tea.Msg {
		status, err := api.GetStatus()
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

func startBatch(api API, req types.BatchRequest) tea.Cmd {
	return func() tea.Msg {
		return ActionMsg{Action: "start", Err: api.StartBatch(req)}
	}
}

func stopBatch(api API) tea.Cmd {
	return func() tea.Msg {
		return ActionMsg{Action: "stop", Err: api.StopBatch()}
	}
}

// tickCmd creates a command that ticks every 500ms for polling
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
