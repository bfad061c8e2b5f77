package types

import (
	"encoding/json"
	"fmt"
)

// Chunk is one recognised word with its timing in seconds. End is nil when
// the recogniser could not place the end of the final word.
type Chunk struct {
	Text  string
	Start float64
	End   *float64
}

type chunkJSON struct {
	Text      string      `json:"text"`
	Timestamp [2]*float64 `json:"timestamp"`
}

// MarshalJSON writes the recogniser's native {"text", "timestamp": [start, end]} shape.
func (c Chunk) MarshalJSON() ([]byte, error) {
	start := c.Start
	return json.Marshal(chunkJSON{Text: c.Text, Timestamp: [2]*float64{&start, c.End}})
}

// UnmarshalJSON reads the {"text", "timestamp": [start, end]} shape.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	var raw chunkJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Timestamp[0] == nil {
		return fmt.Errorf("chunk %q has no start time", raw.Text)
	}
	c.Text = raw.Text
	c.Start = *raw.Timestamp[0]
	c.End = raw.Timestamp[1]
	return nil
}

// EndOr returns the chunk end, or fallback when it is unknown.
func (c Chunk) EndOr(fallback float64) float64 {
	if c.End == nil {
		return fallback
	}
	return *c.End
}

// TimedCaption is a word-level aligned transcript
type TimedCaption struct {
	Text   string  `json:"text"`
	Chunks []Chunk `json:"chunks"`
}

// ParseTimedCaption decodes a timed caption and rejects empty chunk lists.
func ParseTimedCaption(data []byte) (TimedCaption, error) {
	var tc TimedCaption
	if err := json.Unmarshal(data, &tc); err != nil {
		return TimedCaption{}, fmt.Errorf("invalid timed caption: %w", err)
	}
	if len(tc.Chunks) == 0 {
		return TimedCaption{}, fmt.Errorf("timed caption has no chunks")
	}
	return tc, nil
}

// Float returns a pointer to v, for building optional chunk ends.
func Float(v float64) *float64 {
	return &v
}
