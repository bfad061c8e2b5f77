package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FailureRecord maps a stage key to the captured error trace, in the order
// failures happened during one topic run.
type FailureRecord struct {
	keys   []string
	traces map[string]string
}

// Add records a trace. A second failure for the same key replaces the trace
// but keeps the original position.
func (r *FailureRecord) Add(key, trace string) {
	if r.traces == nil {
		r.traces = make(map[string]string)
	}
	if _, ok := r.traces[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.traces[key] = trace
}

func (r *FailureRecord) Len() int {
	return len(r.keys)
}

func (r *FailureRecord) Empty() bool {
	return len(r.keys) == 0
}

// Keys returns the failed stage keys in insertion order.
func (r *FailureRecord) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r *FailureRecord) Get(key string) (string, bool) {
	trace, ok := r.traces[key]
	return trace, ok
}

// String renders every failure, not only the first.
func (r *FailureRecord) String() string {
	var b strings.Builder
	b.WriteString("Failed iterations:")
	for _, key := range r.keys {
		b.WriteString("\n")
		b.WriteString(key)
		b.WriteString(":\n")
		b.WriteString(r.traces[key])
	}
	return b.String()
}

// MarshalJSON writes the record as a JSON object preserving key order.
func (r FailureRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.traces[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of key to trace, keeping document order.
func (r *FailureRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = FailureRecord{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("failure record must be an object")
	}

	var out FailureRecord
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected failure record key %v", tok)
		}
		var trace string
		if err := dec.Decode(&trace); err != nil {
			return fmt.Errorf("failure %q: %w", key, err)
		}
		out.Add(key, trace)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}
