package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"text2shorts/aligner"
	"text2shorts/config"
	"text2shorts/generators"
	"text2shorts/types"

	"github.com/pkg/errors"
)

// Aligner checks narration against its caption.
type Aligner interface {
	Align(ctx context.Context, caption, audioPath string) (aligner.Result, error)
}

// Compositor does the video and audio assembly work.
type Compositor interface {
	Duration(path string) (float64, error)
	BurnCaptions(caption types.TimedCaption, video, audio, out string) error
	TitleCard(image, title, out string) error
	Concat(clips []string, out string) error
	MixMusic(video, music, out string) error
}

// Uploader publishes a finished video.
type Uploader interface {
	UploadTopic(ctx context.Context, video, thumbnail string, proposal *types.Proposal) (string, error)
}

// Archiver copies finished artifacts to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, topic string, files ...string) error
}

// Event is emitted when a stage starts and when it finishes.
type Event struct {
	Topic  string
	Stage  types.Stage
	Result types.StageResult
	Time   time.Time
}

// Maker turns one proposal into a finished video inside a topic directory.
type Maker struct {
	Generators   generators.Set
	Aligner      Aligner
	Compositor   Compositor
	ProposalsDir string

	// Optional
	Uploader Uploader
	Archiver Archiver
	Logger   *slog.Logger
	OnStage  func(Event)
}

func (m *Maker) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m.Logger
}

func (m *Maker) emit(topic string, stage types.Stage, outcome types.Outcome, detail string) types.StageResult {
	res := types.StageResult{Stage: stage, Outcome: outcome, Detail: detail}
	if m.OnStage != nil {
		m.OnStage(Event{Topic: topic, Stage: stage, Result: res, Time: time.Now()})
	}
	return res
}

// skip reports whether a stage's artifact exists and no re-run was requested.
func skip(topic types.Topic, stage types.Stage, dir string) bool {
	return fileExists(stage.Artifact(dir)) && !topic.Explicit(stage.Index())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Run processes every stage of topic in dir and returns the Failure Record.
// A non-empty record is also returned as a *RunError. Cancelling ctx does not
// interrupt a started topic; callers stop between topics.
func (m *Maker) Run(ctx context.Context, topic types.Topic, dir string) (types.FailureRecord, error) {
	var record types.FailureRecord
	log := m.logger()
	ctx = context.WithoutCancel(ctx)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return record, fmt.Errorf("failed to create topic directory: %w", err)
	}
	lock, err := AcquireRunLock(dir)
	if err != nil {
		return record, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("failed to release run lock", "error", err)
		}
	}()

	proposal, err := types.LoadProposal(filepath.Join(m.ProposalsDir, topic.ID+".json"))
	if err != nil {
		return record, err
	}
	if err := proposal.Validate(); err != nil {
		return record, fmt.Errorf("invalid proposal %s: %w", topic.ID, err)
	}

	thumbnail := types.ThumbnailStage()
	if topic.Allows(thumbnail.Index()) {
		res := m.runStage(topic, thumbnail, dir, func() error {
			return m.makeThumbnail(ctx, proposal, dir)
		})
		if res.Failed() {
			record.Add(thumbnail.Key(), res.Detail)
		}
	} else {
		log.Debug("skipping thumbnail, -1 is not in the allow-list")
	}

	for _, seg := range proposal.Script {
		stage := types.SegmentStage(seg.Index)
		if !topic.Allows(seg.Index) {
			log.Debug("skipping segment, not in the allow-list", "index", seg.Index)
			continue
		}
		res := m.runStage(topic, stage, dir, func() error {
			return m.makeSegment(ctx, seg, dir)
		})
		if res.Failed() {
			record.Add(stage.Key(), res.Detail)
		}
	}

	if record.Empty() {
		log.Info("all segments completed")
		if trace := m.assemble(ctx, topic, proposal, dir); trace != "" {
			record.Add(types.AssemblyKey, trace)
		}
	}

	if !record.Empty() {
		log.Error("something failed, the topic may not be complete")
		for _, key := range record.Keys() {
			trace, _ := record.Get(key)
			log.Error("failed iteration", "key", key, "trace", trace)
		}
		return record, &RunError{Topic: topic.ID, Record: record}
	}
	log.Info("topic processed", "dir", dir)
	return record, nil
}

// runStage runs fn unless the stage's artifact already exists, capturing
// errors and panics as traces.
func (m *Maker) runStage(topic types.Topic, stage types.Stage, dir string, fn func() error) types.StageResult {
	log := m.logger()
	if skip(topic, stage, dir) {
		log.Debug("artifact exists, skipping", "stage", stage.String())
		return m.emit(topic.ID, stage, types.OutcomeSkipped, stage.Artifact(dir))
	}

	m.emit(topic.ID, stage, types.OutcomeRunning, "")
	if trace := protect(fn); trace != "" {
		log.Error("stage failed", "stage", stage.String(), "trace", trace)
		return m.emit(topic.ID, stage, types.OutcomeFailed, trace)
	}
	log.Info("stage succeeded", "stage", stage.String())
	return m.emit(topic.ID, stage, types.OutcomeSucceeded, stage.Artifact(dir))
}

// protect runs fn and returns a trace of its error or panic, or "" on success.
func protect(fn func() error) (trace string) {
	defer func() {
		if r := recover(); r != nil {
			trace = fmt.Sprintf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	if err := fn(); err != nil {
		return fmt.Sprintf("%+v", errors.WithStack(err))
	}
	return ""
}

func (m *Maker) makeThumbnail(ctx context.Context, proposal *types.Proposal, dir string) error {
	image := types.ThumbnailImagePath(dir)
	if err := m.Generators.Visualizer.Generate(ctx, proposal.Thumbnail.Prompt, image, 0); err != nil {
		return &StageError{Stage: types.ThumbnailStage(), Message: "thumbnail image generation failed", Err: err}
	}
	out := types.ThumbnailStage().Artifact(dir)
	if err := m.Compositor.TitleCard(image, proposal.Thumbnail.ShortTitle, out); err != nil {
		return &StageError{Stage: types.ThumbnailStage(), Message: "title card failed", Err: err}
	}
	return nil
}

func (m *Maker) makeSegment(ctx context.Context, seg types.Segment, dir string) error {
	stage := types.SegmentStage(seg.Index)
	log := m.logger().With("index", seg.Index)
	narration := types.NarrationPath(dir, seg.Index)

	rate := config.DefaultSpeakingRate
	var aligned aligner.Result
	for {
		if err := m.Generators.Narrator.Generate(ctx, seg.Narration(), narration, rate); err != nil {
			return &StageError{Stage: stage, Message: "narration failed", Err: err}
		}
		res, err := m.Aligner.Align(ctx, seg.Caption, narration)
		if err != nil {
			return &StageError{Stage: stage, Message: "caption alignment failed", Err: err}
		}
		if res.Matched {
			log.Info("matched caption", "rate", rate)
			aligned = res
			break
		}
		if rate > config.SpeakingRateFloor {
			log.Warn("failed to match caption, retrying with a slower speaking rate",
				"rate", rate, "comparison", res.Diagnostic)
			rate -= config.SpeakingRateStep
			continue
		}
		return &StageError{
			Stage:   stage,
			Message: fmt.Sprintf("failed to match caption with speaking rate %d. Caption comparison:%s", rate, res.Diagnostic),
		}
	}

	duration, err := m.Compositor.Duration(narration)
	if err != nil {
		return &StageError{Stage: stage, Message: "cannot read narration length", Err: err}
	}
	visual := types.VisualPath(dir, seg.Index)
	if err := m.Generators.Visualizer.Generate(ctx, seg.Prompt, visual, duration); err != nil {
		return &StageError{Stage: stage, Message: "visual generation failed", Err: err}
	}
	if err := m.Compositor.BurnCaptions(aligned.Caption, visual, narration, stage.Artifact(dir)); err != nil {
		return &StageError{Stage: stage, Message: "caption burn-in failed", Err: err}
	}
	return nil
}

// assemble concatenates, scores and mixes the final video, then uploads and
// archives it when configured. It returns the failure trace or "".
func (m *Maker) assemble(ctx context.Context, topic types.Topic, proposal *types.Proposal, dir string) string {
	var failed *StageError
	trace := protect(func() error {
		err := m.assembleSteps(ctx, topic, proposal, dir)
		errors.As(err, &failed)
		return err
	})
	if trace != "" {
		stage := types.FinalStage()
		if failed != nil {
			stage = failed.Stage
		}
		m.logger().Error("error during concatenation, music or upload", "stage", stage.String(), "trace", trace)
		m.emit(topic.ID, stage, types.OutcomeFailed, trace)
	}
	return trace
}

func (m *Maker) assembleSteps(ctx context.Context, topic types.Topic, proposal *types.Proposal, dir string) error {
	log := m.logger()
	concat := types.ConcatStage()
	music := types.MusicStage()
	final := types.FinalStage()
	rebuilt := false

	if skip(topic, concat, dir) {
		m.emit(topic.ID, concat, types.OutcomeSkipped, concat.Artifact(dir))
	} else {
		m.emit(topic.ID, concat, types.OutcomeRunning, "")
		clips, err := segmentClips(proposal, dir)
		if err != nil {
			return &StageError{Stage: concat, Message: "segment set incomplete", Err: err}
		}
		if err := m.Compositor.Concat(clips, concat.Artifact(dir)); err != nil {
			return &StageError{Stage: concat, Message: "concatenation failed", Err: err}
		}
		m.emit(topic.ID, concat, types.OutcomeSucceeded, concat.Artifact(dir))
		rebuilt = true
	}

	if skip(topic, music, dir) {
		m.emit(topic.ID, music, types.OutcomeSkipped, music.Artifact(dir))
	} else {
		m.emit(topic.ID, music, types.OutcomeRunning, "")
		if err := m.makeMusic(ctx, topic, proposal, dir); err != nil {
			return &StageError{Stage: music, Message: "music generation failed", Err: err}
		}
		m.emit(topic.ID, music, types.OutcomeSucceeded, music.Artifact(dir))
		rebuilt = true
	}

	if !rebuilt && fileExists(final.Artifact(dir)) {
		m.emit(topic.ID, final, types.OutcomeSkipped, final.Artifact(dir))
		return nil
	}
	m.emit(topic.ID, final, types.OutcomeRunning, "")
	if err := m.Compositor.MixMusic(concat.Artifact(dir), music.Artifact(dir), final.Artifact(dir)); err != nil {
		return &StageError{Stage: final, Message: "music mix failed", Err: err}
	}

	thumbnail := types.ThumbnailStage().Artifact(dir)
	if m.Uploader != nil {
		videoID, err := m.Uploader.UploadTopic(ctx, final.Artifact(dir), thumbnail, proposal)
		if err != nil {
			return &StageError{Stage: final, Message: "upload failed", Err: err}
		}
		log.Info("uploaded video", "video_id", videoID)
	}
	m.emit(topic.ID, final, types.OutcomeSucceeded, final.Artifact(dir))

	if m.Archiver != nil {
		files := []string{final.Artifact(dir), thumbnail, filepath.Join(m.ProposalsDir, topic.ID+".json")}
		if err := m.Archiver.Archive(ctx, topic.ID, files...); err != nil {
			log.Warn("archive failed", "error", err)
		}
	}
	return nil
}

// segmentClips returns the captioned clip of every scripted segment in
// script order. Clips left over from segments no longer in the script are
// ignored.
func segmentClips(proposal *types.Proposal, dir string) ([]string, error) {
	clips := make([]string, 0, len(proposal.Script))
	var missing []int
	for _, seg := range proposal.Script {
		clip := types.SegmentStage(seg.Index).Artifact(dir)
		if !fileExists(clip) {
			missing = append(missing, seg.Index)
			continue
		}
		clips = append(clips, clip)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing captioned clips for segments %v", missing)
	}
	return clips, nil
}

func (m *Maker) makeMusic(ctx context.Context, topic types.Topic, proposal *types.Proposal, dir string) error {
	out := types.MusicStage().Artifact(dir)
	if topic.MusicFile != "" {
		return copyFile(topic.MusicFile, out)
	}
	prompt := proposal.Music
	if strings.TrimSpace(prompt) == "" {
		prompt = config.DefaultMusicPrompt
	}
	duration, err := m.Compositor.Duration(types.ConcatStage().Artifact(dir))
	if err != nil {
		return err
	}
	return m.Generators.Composer.Generate(ctx, prompt, out, duration)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
