// Package status reports how far each topic of a topic list has progressed by
// looking at the artifacts in its output directory.
package status

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"text2shorts/batch"
	"text2shorts/types"
)

// Status is the progress bucket of one topic.
type Status string

const (
	NotStarted    Status = "not started"
	PartiallyDone Status = "partially done"
	Finished      Status = "finished"
)

// order is the bucket order used when rendering a report.
var order = []Status{NotStarted, PartiallyDone, Finished}

// ScanTopic inspects a topic directory. indices are the proposal's segment
// indices. A missing directory, or one without any stage artifact, is not
// started. For a partially done topic, missing lists the stage keys to re-run
// in the order -3, -2, -1 followed by the segment indices.
func ScanTopic(dir string, indices []int) (status Status, missing []string) {
	if _, err := os.Stat(dir); err != nil {
		return NotStarted, nil
	}

	exists := func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	thumbnail := types.ThumbnailStage().Artifact(dir)
	// music.wav is not required here; a finished video has it mixed in already.
	if exists(types.FinalStage().Artifact(dir)) && exists(thumbnail) {
		return Finished, nil
	}

	for _, stage := range []types.Stage{types.MusicStage(), types.ConcatStage(), types.ThumbnailStage()} {
		if !exists(stage.Artifact(dir)) {
			missing = append(missing, strconv.Itoa(stage.Index()))
		}
	}

	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	for _, i := range sorted {
		if !exists(types.SegmentStage(i).Artifact(dir)) {
			missing = append(missing, strconv.Itoa(i))
		}
	}

	// A directory holding only the run log or lock has no progress yet.
	if len(missing) == 3+len(sorted) && !exists(types.FinalStage().Artifact(dir)) {
		return NotStarted, nil
	}
	return PartiallyDone, missing
}

// Buckets holds report lines per status.
type Buckets struct {
	NotStarted    []string `json:"not_started"`
	PartiallyDone []string `json:"partially_done"`
	Finished      []string `json:"finished"`
}

func (b *Buckets) add(s Status, line string) {
	switch s {
	case NotStarted:
		b.NotStarted = append(b.NotStarted, line)
	case PartiallyDone:
		b.PartiallyDone = append(b.PartiallyDone, line)
	case Finished:
		b.Finished = append(b.Finished, line)
	}
}

func (b *Buckets) lines(s Status) []string {
	switch s {
	case NotStarted:
		return b.NotStarted
	case PartiallyDone:
		return b.PartiallyDone
	default:
		return b.Finished
	}
}

// Summary is the progress of a whole topic list, split into shorts and longs.
type Summary struct {
	List   string  `json:"list"`
	Shorts Buckets `json:"shorts"`
	Longs  Buckets `json:"longs"`
}

// String renders the summary as the markdown-ish text report.
func (s *Summary) String() string {
	var b strings.Builder
	b.WriteString("# Shorts:\n")
	writeBuckets(&b, &s.Shorts)
	b.WriteString("\n# Longs:\n")
	writeBuckets(&b, &s.Longs)
	return b.String()
}

func writeBuckets(w io.Writer, b *Buckets) {
	for _, s := range order {
		lines := b.lines(s)
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n# %s jobs:\n\n", s)
		fmt.Fprintln(w, strings.Join(lines, "\n"))
	}
}

// ReadTopicIDs returns the topic ids named in a topic list, commented-out
// ones included. Lines ending in ":" are section headings.
func ReadTopicIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		for strings.HasPrefix(line, "# ") {
			line = strings.TrimPrefix(line, "# ")
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		ids = append(ids, fields[0])
	}
	return ids, scanner.Err()
}

// Report scans every topic of the list at topicListPath.
func Report(topicListPath, outputsDir, proposalsDir string) (*Summary, error) {
	f, err := os.Open(topicListPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open topic list: %w", err)
	}
	defer f.Close()

	ids, err := ReadTopicIDs(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read topic list: %w", err)
	}

	listName := batch.ListName(topicListPath)
	summary := &Summary{List: listName}
	for _, id := range ids {
		proposal, err := types.LoadProposal(filepath.Join(proposalsDir, id+".json"))
		if err != nil {
			return nil, err
		}

		st, missing := ScanTopic(batch.TopicDir(outputsDir, listName, id), proposal.Indices())
		line := id
		switch st {
		case PartiallyDone:
			line = strings.Join(append([]string{id}, missing...), " ")
		case Finished:
			line = fmt.Sprintf("%s \"%s\"", id, proposal.Thumbnail.LongTitle)
		}

		if strings.Contains(id, "shorts") {
			summary.Shorts.add(st, line)
		} else {
			summary.Longs.add(st, line)
		}
	}
	return summary, nil
}

// Title is one line of the proposal title listing.
type Title struct {
	File  string `json:"file"`
	Title string `json:"title,omitempty"`
	Error string `json:"error,omitempty"`
}

func (t Title) String() string {
	switch {
	case t.Error != "":
		return t.Error
	case t.Title == "":
		return "Warning: No long title found in " + t.File
	default:
		return t.File + ": " + t.Title
	}
}

// Titles lists the long title of every proposal in dir, sorted by file name.
func Titles(dir string) ([]Title, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposals dir: %w", err)
	}

	var titles []Title
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		t := Title{File: name}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Error = fmt.Sprintf("Error: Could not read %s", name)
			titles = append(titles, t)
			continue
		}
		var doc struct {
			Thumbnail types.Thumbnail `json:"thumbnail"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Error = fmt.Sprintf("Error: Could not decode JSON in %s", name)
		} else {
			t.Title = doc.Thumbnail.LongTitle
		}
		titles = append(titles, t)
	}
	// os.ReadDir already sorts by name
	return titles, nil
}

// RenderTitles joins titles one per line.
func RenderTitles(titles []Title) string {
	var b strings.Builder
	for _, t := range titles {
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	return b.String()
}
