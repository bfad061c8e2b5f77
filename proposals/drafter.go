package proposals

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"text2shorts/llm"
	"text2shorts/types"
)

// maxSourceRunes bounds the source text sent to the model.
const maxSourceRunes = 12000

// SystemPrompt describes the proposal document the model must return.
const SystemPrompt = `You write scripts for narrated vertical short videos.
Reply with JSON only: either one proposal object or an array of them.
A proposal object has this shape:
{
  "thumbnail": {"short_title": "...", "long_title": "...", "prompt": "image prompt for the cover"},
  "script": [
    {"index": 0, "caption": "one or two spoken sentences", "prompt": "image prompt for this beat"}
  ],
  "music": "prompt for the background music",
  "description": "one paragraph for the video page",
  "tags": ["..."]
}
Indices start at 0 and increase by one. Keep each caption under 30 words and
the whole script under one minute of speech.`

// Drafter turns sources into proposal files.
type Drafter struct {
	LLM llm.Client
	// Dir receives new proposals; Dir/finished is also scanned for used indices.
	Dir string
	// Seen, if set, skips sources that already produced proposals.
	Seen SeenStore
}

// Draft asks the model for proposals covering each source, writes them as
// {series}_{n}.json with n continuing after the highest existing index, and
// returns the new topic ids in order. Sources whose reply cannot be used are
// logged and skipped.
func (d *Drafter) Draft(ctx context.Context, series string, sources []*Source) ([]string, error) {
	if series == "" {
		return nil, fmt.Errorf("series name is required")
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create proposals dir: %w", err)
	}
	next, err := NextIndex(series, d.Dir, filepath.Join(d.Dir, "finished"))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		if strings.TrimSpace(src.Text) == "" {
			log.Printf("⚠️  Skipping %s: no text", src.URL)
			continue
		}
		key := SourceKey(src)
		if d.Seen != nil {
			seen, err := d.Seen.Seen(ctx, key)
			if err != nil {
				return ids, fmt.Errorf("seen check: %w", err)
			}
			if seen {
				log.Printf("Skipping %s: already drafted", src.URL)
				continue
			}
		}

		reply, err := d.LLM.Chat(ctx, SystemPrompt, userPrompt(src))
		if err != nil {
			return ids, fmt.Errorf("draft %s: %w", src.URL, err)
		}
		drafted, err := ParseReply(reply)
		if err != nil {
			log.Printf("⚠️  Unusable draft for %s: %v", src.URL, err)
			continue
		}

		for _, p := range drafted {
			id := fmt.Sprintf("%s_%d", series, next)
			if err := writeProposal(filepath.Join(d.Dir, id+".json"), p); err != nil {
				return ids, err
			}
			next++
			ids = append(ids, id)
			log.Printf("📝 Drafted %s (%s)", id, p.Thumbnail.LongTitle)
		}
		if d.Seen != nil {
			if err := d.Seen.Mark(ctx, key); err != nil {
				return ids, fmt.Errorf("mark drafted: %w", err)
			}
		}
	}
	return ids, nil
}

func userPrompt(src *Source) string {
	text := src.Text
	if r := []rune(text); len(r) > maxSourceRunes {
		text = string(r[:maxSourceRunes])
	}
	var b strings.Builder
	b.WriteString("Make as many proposals as needed to cover the whole source.\n")
	if src.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", src.Title)
	}
	if src.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", src.URL)
	}
	b.WriteString("Source:\n")
	b.WriteString(text)
	return b.String()
}

// ParseReply extracts the proposals from a model reply. The reply may wrap
// the JSON in a thinking block or a code fence and may hold one object or an
// array. Every proposal must validate.
func ParseReply(reply string) ([]*types.Proposal, error) {
	body := llm.StripCodeFence(llm.StripThinking(reply))
	if body == "" {
		return nil, fmt.Errorf("empty reply")
	}

	var out []*types.Proposal
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &out); err != nil {
			return nil, fmt.Errorf("invalid proposal array: %w", err)
		}
	} else {
		var p types.Proposal
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("invalid proposal: %w", err)
		}
		out = append(out, &p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("reply holds no proposals")
	}
	for i, p := range out {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("proposal %d: %w", i, err)
		}
	}
	return out, nil
}

// NextIndex returns one past the highest n of {series}_{n}.json across dirs,
// or 1 when the series has no proposals yet. Missing dirs are ignored.
func NextIndex(series string, dirs ...string) (int, error) {
	highest := 0
	prefix := series + "_"
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
			if err != nil {
				continue
			}
			if n > highest {
				highest = n
			}
		}
	}
	return highest + 1, nil
}

// AppendTopics appends the topic ids to a topic list, one per line.
func AppendTopics(path string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open topic list: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("\n" + strings.Join(ids, "\n") + "\n"); err != nil {
		return fmt.Errorf("failed to append topics: %w", err)
	}
	return nil
}

func writeProposal(path string, p *types.Proposal) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode proposal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write proposal: %w", err)
	}
	return nil
}
