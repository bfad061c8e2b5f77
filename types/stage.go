package types

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
)

// Sentinel indices used in topic-list allow-lists and status details.
const (
	ThumbnailIndex = -1
	ConcatIndex    = -2
	MusicIndex     = -3

	// NoIndex is returned for the final mux, which cannot be named in an allow-list.
	NoIndex = math.MinInt32
)

// Failure Record pseudo keys
const (
	ThumbnailKey = "thumbnail"
	AssemblyKey  = "concat_music_youtube"
)

// StageKind tags a Stage
type StageKind int

const (
	KindThumbnail StageKind = iota
	KindSegment
	KindConcat
	KindMusic
	KindFinal
)

// Stage identifies one unit of work inside a topic run. Only KindSegment
// carries a meaningful Segment index.
type Stage struct {
	Kind    StageKind
	Segment int
}

func ThumbnailStage() Stage        { return Stage{Kind: KindThumbnail} }
func SegmentStage(index int) Stage { return Stage{Kind: KindSegment, Segment: index} }
func ConcatStage() Stage           { return Stage{Kind: KindConcat} }
func MusicStage() Stage            { return Stage{Kind: KindMusic} }
func FinalStage() Stage            { return Stage{Kind: KindFinal} }

// Index returns the allow-list index of the stage.
func (s Stage) Index() int {
	switch s.Kind {
	case KindThumbnail:
		return ThumbnailIndex
	case KindConcat:
		return ConcatIndex
	case KindMusic:
		return MusicIndex
	case KindSegment:
		return s.Segment
	}
	return NoIndex
}

// Key returns the Failure Record key the stage reports under.
func (s Stage) Key() string {
	switch s.Kind {
	case KindThumbnail:
		return ThumbnailKey
	case KindSegment:
		return strconv.Itoa(s.Segment)
	default:
		return AssemblyKey
	}
}

// Artifact returns the path of the file whose existence marks the stage done.
func (s Stage) Artifact(dir string) string {
	switch s.Kind {
	case KindThumbnail:
		return filepath.Join(dir, "-1_captioned.png")
	case KindSegment:
		return filepath.Join(dir, fmt.Sprintf("%d_captioned.mp4", s.Segment))
	case KindConcat:
		return filepath.Join(dir, "concat.mp4")
	case KindMusic:
		return filepath.Join(dir, "music.wav")
	default:
		return filepath.Join(dir, "final.mp4")
	}
}

func (s Stage) String() string {
	switch s.Kind {
	case KindThumbnail:
		return "thumbnail"
	case KindSegment:
		return fmt.Sprintf("segment %d", s.Segment)
	case KindConcat:
		return "concat"
	case KindMusic:
		return "music"
	default:
		return "final"
	}
}

// Intermediate artifacts that do not mark completion of a stage.

func NarrationPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.wav", index))
}

func VisualPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.mp4", index))
}

func ThumbnailImagePath(dir string) string {
	return filepath.Join(dir, "-1.png")
}

// Outcome of running one stage
type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// StageResult is what a stage reports when it finishes. Detail holds the
// trace for failures and a short note otherwise.
type StageResult struct {
	Stage   Stage   `json:"-"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

func (r StageResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}
