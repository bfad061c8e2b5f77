package types

import "time"

// State represents the batch state machine
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateComplete State = "complete"
	StateError    State = "error"
)

// TopicStatus is the outcome of one topic in a batch
type TopicStatus string

const (
	TopicSuccessful  TopicStatus = "Successful"
	TopicFailed      TopicStatus = "Failed"
	TopicInterrupted TopicStatus = "Interrupted"
)

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// TopicResult summarises one finished topic
type TopicResult struct {
	Topic     string        `json:"topic"`
	Status    TopicStatus   `json:"status"`
	Elapsed   time.Duration `json:"elapsed"`
	Finished  time.Time     `json:"finished"`
	Failures  FailureRecord `json:"failures"`
	Remaining int           `json:"remaining"`
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	State        State         `json:"state"`
	RunID        string        `json:"run_id,omitempty"`
	TopicFile    string        `json:"topic_file,omitempty"`
	CurrentTopic string        `json:"current_topic,omitempty"`
	TopicCount   int           `json:"topic_count"`
	Results      []TopicResult `json:"results"`
	Logs         []LogEntry    `json:"logs"`
	Error        string        `json:"error,omitempty"`
}

// BatchRequest asks for a batch run over a topic-list file, or a single topic.
type BatchRequest struct {
	TopicFile  string `json:"topic_file,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Indices    []int  `json:"indices,omitempty"`
	SendReport bool   `json:"send_report"`
}
