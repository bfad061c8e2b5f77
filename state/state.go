package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"text2shorts/config"
	"text2shorts/types"

	"github.com/google/uuid"
)

// ErrBusy is returned when a batch is started while another one is active.
var ErrBusy = errors.New("batch already running")

// Manager holds the batch state with thread-safe access
type Manager struct {
	mu sync.RWMutex

	currentState types.State
	runID        string
	topicFile    string
	currentTopic string
	topicCount   int
	results      []types.TopicResult

	// Logs (ring buffer)
	logs    []types.LogEntry
	maxLogs int
	lastErr error

	events *EventBus
}

// NewManager creates a new state manager
func NewManager() *Manager {
	return &Manager{
		currentState: types.StateIdle,
		logs:         make([]types.LogEntry, 0),
		maxLogs:      config.MaxLogEntries,
		events:       NewEventBus(0),
	}
}

// Events returns the bus carrying batch progress for streaming clients.
func (m *Manager) Events() *EventBus {
	return m.events
}

func (m *Manager) appendLog(message string) {
	entry := types.LogEntry{
		Timestamp: time.Now(),
		Message:   message,
	}
	m.logs = append(m.logs, entry)
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

// AddLog adds a log entry (thread-safe)
func (m *Manager) AddLog(message string) {
	m.mu.Lock()
	m.appendLog(message)
	m.mu.Unlock()

	m.events.Publish(Event{Type: EventTypeLog, Message: message})
}

// Busy reports whether a batch is running or stopping.
func (m *Manager) Busy() bool {
	s := m.GetState()
	return s == types.StateRunning || s == types.StateStopping
}

// Begin moves to running for a new batch and returns its run id. It fails
// when another batch is still active.
func (m *Manager) Begin(topicFile string) (string, error) {
	m.mu.Lock()
	if m.currentState == types.StateRunning || m.currentState == types.StateStopping {
		state := m.currentState
		m.mu.Unlock()
		return "", fmt.Errorf("%w (state=%s)", ErrBusy, state)
	}

	m.runID = uuid.NewString()
	m.currentState = types.StateRunning
	m.topicFile = topicFile
	m.currentTopic = ""
	m.topicCount = 0
	m.results = nil
	m.lastErr = nil
	m.appendLog(fmt.Sprintf("Batch %s started on %s", m.runID, topicFile))
	runID := m.runID
	m.mu.Unlock()

	m.events.Publish(Event{Type: EventTypeStatus, RunID: runID, State: types.StateRunning, Message: topicFile})
	return runID, nil
}

// SetCurrentTopic records the topic being processed.
func (m *Manager) SetCurrentTopic(topic string, total int) {
	m.mu.Lock()
	m.currentTopic = topic
	if total > 0 {
		m.topicCount = total
	}
	runID := m.runID
	m.mu.Unlock()

	m.events.Publish(Event{Type: EventTypeTopic, RunID: runID, Topic: topic, Message: "started"})
}

// RecordStage publishes one stage transition.
func (m *Manager) RecordStage(topic string, result types.StageResult) {
	m.mu.RLock()
	runID := m.runID
	m.mu.RUnlock()

	m.events.Publish(Event{
		Type:    EventTypeStage,
		RunID:   runID,
		Topic:   topic,
		Stage:   result.Stage.String(),
		Outcome: result.Outcome,
	})
}

// AddResult stores the outcome of a finished topic.
func (m *Manager) AddResult(result types.TopicResult, total int) {
	m.mu.Lock()
	m.results = append(m.results, result)
	if total > 0 {
		m.topicCount = total
	}
	m.currentTopic = ""
	m.appendLog(fmt.Sprintf("Topic %s: %s (%s)", result.Topic, result.Status, result.Elapsed.Round(time.Second)))
	runID := m.runID
	m.mu.Unlock()

	r := result
	m.events.Publish(Event{Type: EventTypeResult, RunID: runID, Topic: result.Topic, Result: &r})
}

// RequestStop marks a running batch as stopping.
func (m *Manager) RequestStop() bool {
	m.mu.Lock()
	if m.currentState != types.StateRunning {
		m.mu.Unlock()
		return false
	}
	m.currentState = types.StateStopping
	m.appendLog("Stop requested, the batch halts before the next topic")
	runID := m.runID
	m.mu.Unlock()

	m.events.Publish(Event{Type: EventTypeStatus, RunID: runID, State: types.StateStopping})
	return true
}

// Finish ends the current batch. interrupted marks a cooperative stop.
func (m *Manager) Finish(interrupted bool) {
	m.mu.Lock()
	m.currentState = types.StateComplete
	m.currentTopic = ""
	if interrupted {
		m.appendLog("Batch interrupted")
	} else {
		m.appendLog("Batch complete")
	}
	runID := m.runID
	m.mu.Unlock()

	m.events.Publish(Event{Type: EventTypeStatus, RunID: runID, State: types.StateComplete})
}

// GetStatus returns a snapshot of the current state (thread-safe)
func (m *Manager) GetStatus() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := types.StatusResponse{
		State:        m.currentState,
		RunID:        m.runID,
		TopicFile:    m.topicFile,
		CurrentTopic: m.currentTopic,
		TopicCount:   m.topicCount,
		Results:      append([]types.TopicResult{}, m.results...),
		Logs:         append([]types.LogEntry{}, m.logs...), // Copy slice
	}

	if m.lastErr != nil {
		resp.Error = m.lastErr.Error()
	}
	return resp
}

// SetState sets the current state (thread-safe)
func (m *Manager) SetState(state types.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = state
}

// GetState gets the current state (thread-safe)
func (m *Manager) GetState() types.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// SetError sets the error state
func (m *Manager) SetError(err error) {
	m.mu.Lock()
	m.currentState = types.StateError
	m.lastErr = err
	m.currentTopic = ""
	m.appendLog(fmt.Sprintf("Error: %v", err))
	runID := m.runID
	m.mu.Unlock()

	m.events.Publish(Event{Type: EventTypeError, RunID: runID, State: types.StateError, Message: err.Error()})
}
