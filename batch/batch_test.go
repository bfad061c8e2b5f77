package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"text2shorts/aligner"
	"text2shorts/config"
	"text2shorts/generators"
	"text2shorts/pipeline"
	"text2shorts/types"
)

func TestParseTopicList(t *testing.T) {
	input := `
# weekly shorts
Zodiac_women_1
Space_3 -1 2 5
  History_7 -3 music=tracks/calm.wav
`
	topics, err := ParseTopicList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTopicList: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(topics))
	}

	tests := []struct {
		id      string
		indices []int
		music   string
	}{
		{"Zodiac_women_1", nil, ""},
		{"Space_3", []int{-1, 2, 5}, ""},
		{"History_7", []int{-3}, "tracks/calm.wav"},
	}
	for i, tt := range tests {
		got := topics[i]
		if got.ID != tt.id {
			t.Fatalf("topic %d: expected id %s, got %s", i, tt.id, got.ID)
		}
		if len(got.Indices) != len(tt.indices) {
			t.Fatalf("topic %s: expected indices %v, got %v", tt.id, tt.indices, got.Indices)
		}
		for j := range tt.indices {
			if got.Indices[j] != tt.indices[j] {
				t.Fatalf("topic %s: expected indices %v, got %v", tt.id, tt.indices, got.Indices)
			}
		}
		if got.MusicFile != tt.music {
			t.Fatalf("topic %s: expected music %q, got %q", tt.id, tt.music, got.MusicFile)
		}
	}
}

func TestParseTopicListRejectsBadIndex(t *testing.T) {
	_, err := ParseTopicList(strings.NewReader("A_1\nB_2 1 x\n"))
	if err == nil {
		t.Fatalf("expected error for non-integer index")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}

func TestListNameAndTopicDir(t *testing.T) {
	name := ListName("inputs/lists/week_12.txt")
	if name != "week_12" {
		t.Fatalf("expected week_12, got %s", name)
	}
	dir := TopicDir("outputs", name, "Space_3")
	if dir != filepath.Join("outputs", "week_12_Space_3") {
		t.Fatalf("unexpected topic dir %s", dir)
	}
}

func TestFileFlag(t *testing.T) {
	ctx := context.Background()
	flag := NewFileFlag(filepath.Join(t.TempDir(), "state", "flag"))

	got, err := flag.Get(ctx)
	if err != nil {
		t.Fatalf("Get on missing file: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty flag, got %q", got)
	}

	if err := flag.Set(ctx, config.InterruptStop); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = flag.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != config.InterruptStop {
		t.Fatalf("expected %q, got %q", config.InterruptStop, got)
	}

	if err := os.WriteFile(flag.Path, []byte("running\nleftover"), 0o644); err != nil {
		t.Fatalf("write flag: %v", err)
	}
	if got, _ := flag.Get(ctx); got != config.InterruptRunning {
		t.Fatalf("expected first line only, got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARNING": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelError,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestReportBody(t *testing.T) {
	finished := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	ok := types.TopicResult{
		Topic:     "Space_3",
		Status:    types.TopicSuccessful,
		Elapsed:   125 * time.Second,
		Finished:  finished,
		Remaining: 2,
	}
	body := ReportBody(ok)
	for _, want := range []string{
		"Topic: Space_3",
		"Status: Successful",
		"Finish Time: 2026-03-04 05:06:07",
		"Processing Time: 2 minutes 5 seconds",
		"Traceback:\nNone",
		"Remaining Topics: 2",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("report body missing %q:\n%s", want, body)
		}
	}
	if subject := ReportSubject(ok); subject != "Topic Space_3 Processing Report: Successful" {
		t.Fatalf("unexpected subject %q", subject)
	}

	failed := ok
	failed.Status = types.TopicFailed
	failed.Failures.Add("2", "boom")
	failed.Failures.Add(types.ThumbnailKey, "bad image")
	body = ReportBody(failed)
	if !strings.Contains(body, "Failed iterations:\n2:\nboom\nthumbnail:\nbad image") {
		t.Fatalf("expected every failure in body:\n%s", body)
	}
}

type memFlag struct {
	mu    sync.Mutex
	value string
	sets  []string
}

func (f *memFlag) Set(ctx context.Context, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
	f.sets = append(f.sets, value)
	return nil
}

func (f *memFlag) Get(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, nil
}

type stubMaker struct {
	run func(ctx context.Context, topic types.Topic, dir string) (types.FailureRecord, error)
}

func (s stubMaker) Run(ctx context.Context, topic types.Topic, dir string) (types.FailureRecord, error) {
	return s.run(ctx, topic, dir)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []types.TopicResult
	err  error
}

func (m *recordingMailer) Send(result types.TopicResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, result)
	return m.err
}

func writeList(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	return path
}

func collect(events <-chan Event) (topics []Event, done Event) {
	for ev := range events {
		if ev.Kind == EventDone {
			done = ev
			continue
		}
		topics = append(topics, ev)
	}
	return topics, done
}

func TestRunnerProcessesTopicsInOrder(t *testing.T) {
	outputs := t.TempDir()
	list := writeList(t, "A_1", "B_2 0 1")
	flag := &memFlag{}
	mailer := &recordingMailer{err: errors.New("smtp down")}

	var mu sync.Mutex
	var order []string
	runner := &Runner{
		OutputsDir: outputs,
		Flag:       flag,
		Mailer:     mailer,
		Console:    &bytes.Buffer{},
		NewMaker: func(topic types.Topic, logger *slog.Logger, onStage func(pipeline.Event)) TopicRunner {
			return stubMaker{run: func(ctx context.Context, topic types.Topic, dir string) (types.FailureRecord, error) {
				mu.Lock()
				order = append(order, topic.ID)
				mu.Unlock()
				logger.Info("working")

				var record types.FailureRecord
				if topic.ID == "B_2" {
					record.Add("1", "narration failed")
					return record, &pipeline.RunError{Topic: topic.ID, Record: record}
				}
				return record, nil
			}}
		},
	}

	results, done := collect(runner.Run(context.Background(), list, true))
	if done.Err != nil || done.Interrupted {
		t.Fatalf("unexpected done event: %+v", done)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 topic events, got %d", len(results))
	}
	if strings.Join(order, ",") != "A_1,B_2" {
		t.Fatalf("unexpected order %v", order)
	}

	first := results[0].Result
	if first.Status != types.TopicSuccessful || first.Remaining != 1 {
		t.Fatalf("unexpected first result %+v", first)
	}
	second := results[1].Result
	if second.Status != types.TopicFailed || second.Remaining != 0 {
		t.Fatalf("unexpected second result %+v", second)
	}
	if trace, ok := second.Failures.Get("1"); !ok || trace != "narration failed" {
		t.Fatalf("expected failure record to carry segment 1, got %v", second.Failures.Keys())
	}

	if len(flag.sets) == 0 || flag.sets[0] != config.InterruptRunning {
		t.Fatalf("expected flag reset to running, got %v", flag.sets)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected a report per topic despite mail errors, got %d", len(mailer.sent))
	}

	logPath := filepath.Join(TopicDir(outputs, "batch", "A_1"), "A_1.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("expected topic log: %v", err)
	}
	if !strings.Contains(string(data), "working") {
		t.Fatalf("topic log missing maker output:\n%s", data)
	}
}

func TestRunnerStopsBetweenTopics(t *testing.T) {
	list := writeList(t, "A_1", "B_2", "C_3")
	flag := &memFlag{}

	var ran []string
	runner := &Runner{
		OutputsDir: t.TempDir(),
		Flag:       flag,
		Console:    &bytes.Buffer{},
		NewMaker: func(topic types.Topic, logger *slog.Logger, onStage func(pipeline.Event)) TopicRunner {
			return stubMaker{run: func(ctx context.Context, topic types.Topic, dir string) (types.FailureRecord, error) {
				ran = append(ran, topic.ID)
				// Someone asks to stop while the first topic is still running.
				flag.Set(ctx, config.InterruptStop)
				return types.FailureRecord{}, nil
			}}
		},
	}

	results, done := collect(runner.Run(context.Background(), list, false))
	if len(ran) != 1 || ran[0] != "A_1" {
		t.Fatalf("expected only the first topic to run, got %v", ran)
	}
	if len(results) != 1 {
		t.Fatalf("expected one topic event, got %d", len(results))
	}
	if !done.Interrupted || done.Index != 1 || done.Total != 3 {
		t.Fatalf("unexpected done event %+v", done)
	}
}

func TestRunnerRecoversMakerPanic(t *testing.T) {
	list := writeList(t, "A_1", "B_2")
	runner := &Runner{
		OutputsDir: t.TempDir(),
		Console:    &bytes.Buffer{},
		NewMaker: func(topic types.Topic, logger *slog.Logger, onStage func(pipeline.Event)) TopicRunner {
			return stubMaker{run: func(ctx context.Context, topic types.Topic, dir string) (types.FailureRecord, error) {
				if topic.ID == "A_1" {
					panic("out of memory")
				}
				return types.FailureRecord{}, nil
			}}
		},
	}

	results, _ := collect(runner.Run(context.Background(), list, false))
	if len(results) != 2 {
		t.Fatalf("expected the batch to continue after a panic, got %d results", len(results))
	}
	if results[0].Result.Status != types.TopicFailed {
		t.Fatalf("expected panicking topic to fail, got %s", results[0].Result.Status)
	}
	trace, ok := results[0].Result.Failures.Get("topic")
	if !ok || !strings.Contains(trace, "out of memory") {
		t.Fatalf("expected panic trace, got %q", trace)
	}
	if results[1].Result.Status != types.TopicSuccessful {
		t.Fatalf("expected second topic to succeed, got %s", results[1].Result.Status)
	}
}

func TestRunnerMissingList(t *testing.T) {
	runner := &Runner{OutputsDir: t.TempDir()}
	results, done := collect(runner.Run(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), false))
	if len(results) != 0 {
		t.Fatalf("expected no topic events, got %d", len(results))
	}
	if done.Err == nil {
		t.Fatalf("expected error for a missing topic list")
	}
}

type writeGen struct{}

func (writeGen) Generate(ctx context.Context, prompt, out string, duration float64) error {
	return os.WriteFile(out, []byte(prompt), 0o644)
}

type writeNarrator struct{}

func (writeNarrator) Generate(ctx context.Context, text, out string, rate int) error {
	return os.WriteFile(out, []byte(text), 0o644)
}

type exactAligner struct{}

func (exactAligner) Align(ctx context.Context, caption, audio string) (aligner.Result, error) {
	return aligner.Result{Matched: true, Caption: types.TimedCaption{Text: caption}}, nil
}

type recordingCompositor struct {
	mu     sync.Mutex
	concat [][]string
	mixes  int
}

func (c *recordingCompositor) Duration(path string) (float64, error) { return 3, nil }

func (c *recordingCompositor) BurnCaptions(caption types.TimedCaption, video, audio, out string) error {
	return os.WriteFile(out, nil, 0o644)
}

func (c *recordingCompositor) TitleCard(image, title, out string) error {
	return os.WriteFile(out, nil, 0o644)
}

func (c *recordingCompositor) Concat(clips []string, out string) error {
	c.mu.Lock()
	c.concat = append(c.concat, clips)
	c.mu.Unlock()
	return os.WriteFile(out, nil, 0o644)
}

func (c *recordingCompositor) MixMusic(video, music, out string) error {
	c.mu.Lock()
	c.mixes++
	c.mu.Unlock()
	return os.WriteFile(out, nil, 0o644)
}

func TestRunnerWithPipelineMakerSkipsPartialAssembly(t *testing.T) {
	root := t.TempDir()
	proposals := filepath.Join(root, "proposals")
	if err := os.MkdirAll(proposals, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, id := range []string{"topicA", "topicB"} {
		p := types.Proposal{
			Thumbnail: types.Thumbnail{ShortTitle: id, LongTitle: id + " long", Prompt: "cover"},
			Music:     "strings",
		}
		for i := 0; i < 4; i++ {
			p.Script = append(p.Script, types.Segment{Index: i, Caption: "line", Prompt: "scene"})
		}
		data, _ := json.Marshal(p)
		if err := os.WriteFile(filepath.Join(proposals, id+".json"), data, 0o644); err != nil {
			t.Fatalf("write proposal: %v", err)
		}
	}

	outputs := filepath.Join(root, "outputs")
	compositor := &recordingCompositor{}
	runner := &Runner{
		OutputsDir: outputs,
		Flag:       &memFlag{},
		Console:    &bytes.Buffer{},
		NewMaker: func(topic types.Topic, logger *slog.Logger, onStage func(pipeline.Event)) TopicRunner {
			return &pipeline.Maker{
				Generators: generators.Set{
					Narrator:   writeNarrator{},
					Visualizer: writeGen{},
					Composer:   writeGen{},
				},
				Aligner:      exactAligner{},
				Compositor:   compositor,
				ProposalsDir: proposals,
				Logger:       logger,
				OnStage:      onStage,
			}
		},
	}

	list := writeList(t, "topicA", "topicB 3")
	results, done := collect(runner.Run(context.Background(), list, false))
	if done.Err != nil || len(results) != 2 {
		t.Fatalf("unexpected run: done=%+v results=%d", done, len(results))
	}

	a := results[0].Result
	if a.Status != types.TopicSuccessful {
		t.Fatalf("topicA failed: %s", a.Failures.String())
	}
	if !fileExists(types.FinalStage().Artifact(TopicDir(outputs, "batch", "topicA"))) {
		t.Fatalf("topicA has no final video")
	}

	b := results[1].Result
	if b.Status != types.TopicFailed {
		t.Fatalf("topicB should fail on its incomplete segment set, got %+v", b)
	}
	for _, key := range b.Failures.Keys() {
		if key != "3" && key != types.AssemblyKey {
			t.Fatalf("unexpected failure key %q in %v", key, b.Failures.Keys())
		}
	}
	if _, ok := b.Failures.Get(types.AssemblyKey); !ok {
		t.Fatalf("expected %s failure, got %v", types.AssemblyKey, b.Failures.Keys())
	}

	if len(compositor.concat) != 1 || len(compositor.concat[0]) != 4 {
		t.Fatalf("concat must only run for topicA over all 4 clips, got %v", compositor.concat)
	}
	if compositor.mixes != 1 {
		t.Fatalf("mix calls = %d; want 1", compositor.mixes)
	}
	if fileExists(types.FinalStage().Artifact(TopicDir(outputs, "batch", "topicB"))) {
		t.Fatalf("topicB must not get a final video")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
