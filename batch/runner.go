package batch

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"text2shorts/config"
	"text2shorts/pipeline"
	"text2shorts/types"
)

// TopicRunner processes one topic into its directory.
type TopicRunner interface {
	Run(ctx context.Context, topic types.Topic, dir string) (types.FailureRecord, error)
}

// MakerFactory builds the runner for one topic. logger writes to the topic
// log; onStage receives stage progress.
type MakerFactory func(topic types.Topic, logger *slog.Logger, onStage func(pipeline.Event)) TopicRunner

// EventKind tags a batch Event
type EventKind string

const (
	EventTopic EventKind = "topic"
	EventDone  EventKind = "done"
)

// Event reports batch progress. One EventTopic is sent per processed topic and
// a final EventDone closes the stream.
type Event struct {
	Kind   EventKind
	Index  int
	Total  int
	Result types.TopicResult

	// Set on EventDone
	Interrupted bool
	Err         error
}

// Runner processes a topic list strictly in order.
type Runner struct {
	OutputsDir string
	NewMaker   MakerFactory
	Flag       InterruptFlag
	Mailer     Mailer
	LogLevel   slog.Level
	Console    io.Writer
	OnStage    func(pipeline.Event)
	// OnStart is called before each topic begins.
	OnStart func(topic types.Topic, index, total int)
	Now     func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) console() io.Writer {
	if r.Console != nil {
		return r.Console
	}
	return os.Stderr
}

// stopRequested checks the cancellation sources between topics.
func (r *Runner) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	if r.Flag == nil {
		return false
	}
	flag, err := r.Flag.Get(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to read interrupt flag: %v", err)
		return false
	}
	return flag == config.InterruptStop
}

// Run processes the topic list at path in the background and streams its
// progress. The channel is closed after the EventDone event.
func (r *Runner) Run(ctx context.Context, path string, sendReport bool) <-chan Event {
	out := make(chan Event, 1)
	go func() {
		defer close(out)

		topics, err := LoadTopicList(path)
		if err != nil {
			out <- Event{Kind: EventDone, Err: err}
			return
		}
		r.RunTopics(ctx, ListName(path), topics, sendReport, out)
	}()
	return out
}

// RunTopics processes topics and sends events to out without closing it.
func (r *Runner) RunTopics(ctx context.Context, listName string, topics []types.Topic, sendReport bool, out chan<- Event) {
	if r.Flag != nil {
		if err := r.Flag.Set(ctx, config.InterruptRunning); err != nil {
			log.Printf("⚠️  Failed to reset interrupt flag: %v", err)
		}
	}

	for i, topic := range topics {
		if r.stopRequested(ctx) {
			log.Printf("🛑 Process interrupted, %d topics not started", len(topics)-i)
			out <- Event{Kind: EventDone, Index: i, Total: len(topics), Interrupted: true}
			return
		}

		if r.OnStart != nil {
			r.OnStart(topic, i, len(topics))
		}
		dir := TopicDir(r.OutputsDir, listName, topic.ID)
		result := r.runTopic(ctx, dir, topic, len(topics)-i-1, sendReport)
		out <- Event{Kind: EventTopic, Index: i, Total: len(topics), Result: result}
	}
	out <- Event{Kind: EventDone, Index: len(topics), Total: len(topics)}
}

// RunOne processes a single topic in dir, outside of any topic list.
func (r *Runner) RunOne(ctx context.Context, topic types.Topic, dir string, sendReport bool) types.TopicResult {
	return r.runTopic(ctx, dir, topic, 0, sendReport)
}

func (r *Runner) runTopic(ctx context.Context, dir string, topic types.Topic, remaining int, sendReport bool) types.TopicResult {
	start := r.now()
	result := types.TopicResult{Topic: topic.ID, Status: types.TopicFailed, Remaining: remaining}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Failures.Add("setup", err.Error())
		result.Finished = r.now()
		return result
	}

	logger, sink, err := openTopicLogger(filepath.Join(dir, topic.ID+".log"), topic.ID, r.LogLevel, r.console())
	if err != nil {
		log.Printf("⚠️  %v", err)
		logger = slog.New(slog.NewTextHandler(r.console(), &slog.HandlerOptions{Level: r.LogLevel}))
	}
	defer sink.Close()

	logger.Info("starting processing", "dir", dir)
	record, runErr := r.runSafely(ctx, topic, dir, logger)
	result.Finished = r.now()
	result.Elapsed = result.Finished.Sub(start)
	result.Failures = record

	if runErr == nil {
		result.Status = types.TopicSuccessful
		logger.Info("finished processing successfully", "elapsed", result.Elapsed.String())
	} else {
		if record.Empty() {
			result.Failures.Add("topic", fmt.Sprintf("%+v", runErr))
		}
		logger.Error("error processing topic", "error", runErr)
	}

	if sendReport && r.Mailer != nil {
		if err := r.Mailer.Send(result); err != nil {
			logger.Info("email sending failed", "error", err)
		} else {
			logger.Info("email sent successfully")
		}
	}
	return result
}

// runSafely runs one topic and turns a panic outside any stage into an error.
func (r *Runner) runSafely(ctx context.Context, topic types.Topic, dir string, logger *slog.Logger) (record types.FailureRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while processing %s: %v", topic.ID, p)
		}
	}()
	maker := r.NewMaker(topic, logger, r.OnStage)
	return maker.Run(ctx, topic, dir)
}
