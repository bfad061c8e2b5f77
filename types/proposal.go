package types

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Topic is one line of a topic-list file: a proposal name plus an optional
// allow-list of stage indices to (re)process.
type Topic struct {
	ID string `json:"id"`
	// Indices is nil when every stage should be processed.
	Indices []int `json:"indices,omitempty"`
	// MusicFile optionally points at a ready-made background track.
	MusicFile string `json:"music_file,omitempty"`
}

// Allows reports whether the stage index may run under the topic's allow-list.
func (t Topic) Allows(index int) bool {
	if t.Indices == nil {
		return true
	}
	for _, i := range t.Indices {
		if i == index {
			return true
		}
	}
	return false
}

// Explicit reports whether the allow-list names the index, i.e. a re-run was
// requested for it.
func (t Topic) Explicit(index int) bool {
	return t.Indices != nil && t.Allows(index)
}

// String renders the topic back into topic-list form.
func (t Topic) String() string {
	if len(t.Indices) == 0 {
		return t.ID
	}
	parts := make([]string, 0, len(t.Indices)+1)
	parts = append(parts, t.ID)
	for _, i := range t.Indices {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, " ")
}

// Thumbnail describes the cover image of a video
type Thumbnail struct {
	ShortTitle string `json:"short_title"`
	LongTitle  string `json:"long_title"`
	Prompt     string `json:"prompt"`
}

// Segment is one scripted beat of a video
type Segment struct {
	Index     int    `json:"index"`
	Caption   string `json:"caption"`
	Prompt    string `json:"prompt"`
	Voiceover string `json:"voiceover,omitempty"`
}

// Narration returns the text to be spoken, falling back to the caption.
func (s Segment) Narration() string {
	if strings.TrimSpace(s.Voiceover) != "" {
		return s.Voiceover
	}
	return s.Caption
}

// Proposal is the authoring input for one topic
type Proposal struct {
	Script      []Segment `json:"script"`
	Thumbnail   Thumbnail `json:"thumbnail"`
	Music       string    `json:"music,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

// UnmarshalJSON accepts the legacy "proposal" key as an alias for "script".
func (p *Proposal) UnmarshalJSON(data []byte) error {
	type plain Proposal
	var raw struct {
		plain
		Legacy []Segment `json:"proposal"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Proposal(raw.plain)
	if len(p.Script) == 0 && len(raw.Legacy) > 0 {
		p.Script = raw.Legacy
	}
	return nil
}

// Indices returns the segment indices in script order.
func (p *Proposal) Indices() []int {
	out := make([]int, 0, len(p.Script))
	for _, s := range p.Script {
		out = append(out, s.Index)
	}
	return out
}

// Validate checks the fields the pipeline cannot work without.
func (p *Proposal) Validate() error {
	if len(p.Script) == 0 {
		return fmt.Errorf("proposal has no script segments")
	}
	seen := make(map[int]bool, len(p.Script))
	for _, s := range p.Script {
		if s.Index < 0 {
			return fmt.Errorf("segment index %d is reserved", s.Index)
		}
		if seen[s.Index] {
			return fmt.Errorf("duplicate segment index %d", s.Index)
		}
		seen[s.Index] = true
		if strings.TrimSpace(s.Narration()) == "" {
			return fmt.Errorf("segment %d has no caption or voiceover", s.Index)
		}
	}
	return nil
}

// LoadProposal reads and parses a proposal JSON document.
func LoadProposal(path string) (*Proposal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposal: %w", err)
	}

	var p Proposal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse proposal %s: %w", path, err)
	}
	return &p, nil
}
