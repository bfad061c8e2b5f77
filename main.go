package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"text2shorts/aligner"
	"text2shorts/api"
	"text2shorts/batch"
	"text2shorts/common"
	"text2shorts/config"
	"text2shorts/generators"
	"text2shorts/llm"
	"text2shorts/media"
	"text2shorts/pipeline"
	"text2shorts/proposals"
	"text2shorts/queue"
	"text2shorts/state"
	"text2shorts/status"
	"text2shorts/types"
	"text2shorts/uploader"
)

type options struct {
	email     bool
	indices   string
	topic     string
	workDir   string
	level     string
	upload    bool
	status    bool
	titles    bool
	serve     bool
	cron      string
	kafka     bool
	uploadAt  string
	perDay    int
	draftFeed string
	draftURL  string
	series    string
	feedCount int
}

func main() {
	var o options
	flag.BoolVar(&o.email, "email", false, "Send a report email after each topic")
	flag.StringVar(&o.indices, "i", "", `Stage indices to (re)process with -topic, e.g. "1 2 -1"`)
	flag.StringVar(&o.topic, "topic", "", "Run one topic standalone")
	flag.StringVar(&o.workDir, "w", "", "Working directory for -topic (default {outputs}/{topic})")
	flag.StringVar(&o.level, "l", "ERROR", "Console log level (DEBUG, INFO, WARNING, ERROR)")
	flag.BoolVar(&o.upload, "u", false, "Upload finished videos to YouTube")
	flag.BoolVar(&o.status, "status", false, "Print the status report for the topic file and exit")
	flag.BoolVar(&o.titles, "titles", false, "Print proposal titles and exit")
	flag.BoolVar(&o.serve, "serve", false, "Run the HTTP control server")
	flag.StringVar(&o.cron, "cron", "", "Cron schedule for batches over the topic file (with -serve)")
	flag.BoolVar(&o.kafka, "kafka", false, "Consume batch requests from Kafka")
	flag.StringVar(&o.uploadAt, "upload-from", "", "Schedule uploads of the topic file from DATE (YYYY-MM-DD)")
	flag.IntVar(&o.perDay, "per-day", config.DefaultUploadsPerDay, "Uploads per day with -upload-from")
	flag.StringVar(&o.draftFeed, "draft-feed", "", "Draft proposals from a feed URL or preset")
	flag.StringVar(&o.draftURL, "draft-url", "", "Draft proposals from an article URL")
	flag.StringVar(&o.series, "series", "", "Series name of drafted proposals")
	flag.IntVar(&o.feedCount, "count", DefaultFeedCount, "Feed items to draft from")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <topic_file_path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	topicFile := flag.Arg(0)

	config.Load()
	settings := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	exitCode := 0
	switch {
	case o.status:
		err = printStatus(topicFile, settings)
	case o.titles:
		err = printTitles(settings)
	case o.uploadAt != "":
		err = scheduleUploads(ctx, topicFile, o, settings)
	case o.draftFeed != "" || o.draftURL != "":
		err = draft(ctx, topicFile, o, settings)
	case o.serve || o.kafka:
		err = serve(ctx, topicFile, o, settings)
	case o.topic != "":
		exitCode, err = runSingle(ctx, o, settings)
	default:
		err = runBatch(ctx, topicFile, o, settings)
	}
	if err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func requireTopicFile(path string) error {
	if path == "" {
		return fmt.Errorf("a topic file path is required")
	}
	return nil
}

func printStatus(topicFile string, s config.Settings) error {
	if err := requireTopicFile(topicFile); err != nil {
		return err
	}
	summary, err := status.Report(topicFile, s.OutputsDir, s.ProposalsDir)
	if err != nil {
		return err
	}
	fmt.Print(summary.String())
	return nil
}

func printTitles(s config.Settings) error {
	titles, err := status.Titles(s.ProposalsDir)
	if err != nil {
		return err
	}
	fmt.Print(status.RenderTitles(titles))
	return nil
}

func scheduleUploads(ctx context.Context, topicFile string, o options, s config.Settings) error {
	if err := requireTopicFile(topicFile); err != nil {
		return err
	}
	start, err := uploader.ParseDate(o.uploadAt)
	if err != nil {
		return err
	}
	up, err := uploader.New(ctx, s.YouTubeCredentials, s.YouTubeToken)
	if err != nil {
		return err
	}
	result, err := up.UploadFromTopicFile(ctx, topicFile, s.OutputsDir, s.ProposalsDir, start, o.perDay)
	if err != nil {
		return err
	}
	log.Printf("✅ Uploaded %d topics, %d failed", len(result.Succeeded), len(result.Failed))
	for _, id := range result.Failed {
		fmt.Println(id)
	}
	return nil
}

func draft(ctx context.Context, topicFile string, o options, s config.Settings) error {
	if o.series == "" {
		return fmt.Errorf("-series is required when drafting")
	}

	var sources []*proposals.Source
	if o.draftFeed != "" {
		feedURL := ResolveFeedURL(o.draftFeed)
		log.Printf("📰 Fetching feed %s", feedURL)
		fetched, err := proposals.FetchFeed(ctx, feedURL, o.feedCount)
		if err != nil {
			return err
		}
		sources = append(sources, fetched...)
	}
	if o.draftURL != "" {
		src, err := proposals.FetchArticle(ctx, o.draftURL)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	d, closeSeen := newDrafter(s)
	defer closeSeen()
	log.Printf("🤖 Drafting %d sources with %s", len(sources), d.LLM.ModelName())
	ids, err := d.Draft(ctx, o.series, sources)
	if len(ids) > 0 && topicFile != "" {
		if appendErr := proposals.AppendTopics(topicFile, ids); appendErr != nil {
			return appendErr
		}
		log.Printf("✅ Appended %d topics to %s", len(ids), topicFile)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return err
}

// newDrafter remembers drafted sources in Redis when configured and in the
// proposals directory otherwise.
func newDrafter(s config.Settings) (*proposals.Drafter, func()) {
	d := &proposals.Drafter{LLM: llm.NewDefaultClient(s), Dir: s.ProposalsDir}
	if s.RedisAddr != "" {
		seen := proposals.NewRedisSeen(s.RedisAddr, s.RedisPass, s.DraftedKey, draftedTTL)
		d.Seen = seen
		return d, func() { _ = seen.Close() }
	}
	d.Seen = proposals.NewFileSeen(filepath.Join(s.ProposalsDir, ".drafted"))
	return d, func() {}
}

// components holds what every topic of a process shares.
type components struct {
	flag   batch.InterruptFlag
	runner *batch.Runner
}

func (c *components) Close() {
	if closer, ok := c.flag.(io.Closer); ok {
		_ = closer.Close()
	}
}

func build(ctx context.Context, o options, s config.Settings) (*components, error) {
	model := llm.NewDefaultClient(s)
	exec := common.ExecRunner{}
	scripts := generators.NewScripts(s.PythonBin, s.ModelScriptsDir, exec)
	device := generators.NewDevice(slog.Default())
	compositor := media.Compositor{}
	align := aligner.New(aligner.NewWhisper(s.WhisperBin, s.WhisperModel, device), model, media.Duration)

	var up pipeline.Uploader
	if o.upload {
		yt, err := uploader.New(ctx, s.YouTubeCredentials, s.YouTubeToken)
		if err != nil {
			return nil, err
		}
		up = yt
	}

	var archive pipeline.Archiver
	if s.S3Bucket != "" {
		store, err := common.NewS3(ctx, common.S3Config{
			Region:       s.S3Region,
			Profile:      s.S3Profile,
			UsePathStyle: s.S3UsePathStyle,
			Endpoint:     s.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		archive = &common.Archive{Store: store, Bucket: s.S3Bucket, Prefix: s.S3Prefix}
		log.Printf("🪣 Archiving finished videos to s3://%s/%s", s.S3Bucket, s.S3Prefix)
	}

	newMaker := func(topic types.Topic, logger *slog.Logger, onStage func(pipeline.Event)) batch.TopicRunner {
		reference := generators.ReferenceVoice(topic.ID, s.ReferenceMan, s.ReferenceWoman)
		return &pipeline.Maker{
			Generators: generators.Set{
				Narrator:   generators.NewPythonNarrator(scripts, device, reference),
				Visualizer: generators.NewPythonVisualizer(scripts, device, media.StillToVideo),
				Composer:   generators.NewPythonComposer(scripts, device),
			},
			Aligner:      align,
			Compositor:   compositor,
			ProposalsDir: s.ProposalsDir,
			Uploader:     up,
			Archiver:     archive,
			Logger:       logger,
			OnStage:      onStage,
		}
	}

	interrupt := batch.NewInterruptFlag(s)
	var mailer batch.Mailer
	if o.email {
		mailer = batch.NewSMTPMailer(s)
	}
	return &components{
		flag: interrupt,
		runner: &batch.Runner{
			OutputsDir: s.OutputsDir,
			NewMaker:   newMaker,
			Flag:       interrupt,
			Mailer:     mailer,
			LogLevel:   batch.ParseLevel(o.level),
		},
	}, nil
}

func runBatch(ctx context.Context, topicFile string, o options, s config.Settings) error {
	if err := requireTopicFile(topicFile); err != nil {
		return err
	}
	c, err := build(ctx, o, s)
	if err != nil {
		return err
	}
	defer c.Close()

	log.Printf("🎬 Processing %s", topicFile)
	for ev := range c.runner.Run(ctx, topicFile, o.email) {
		switch ev.Kind {
		case batch.EventTopic:
			r := ev.Result
			log.Printf("[%d/%d] %s %s in %s", ev.Index+1, ev.Total, r.Topic, r.Status, r.Elapsed.Round(time.Second))
			if !r.Failures.Empty() {
				log.Printf("   failed: %s", strings.Join(r.Failures.Keys(), ", "))
			}
		case batch.EventDone:
			if ev.Err != nil {
				return ev.Err
			}
			if ev.Interrupted {
				log.Printf("🛑 Stopped before topic %d of %d", ev.Index+1, ev.Total)
			} else {
				log.Printf("✅ Batch finished (%d topics)", ev.Total)
			}
		}
	}
	return nil
}

// runSingle returns exit code 1 with the failure record on stdout when the
// topic fails.
func runSingle(ctx context.Context, o options, s config.Settings) (int, error) {
	topic := types.Topic{ID: o.topic}
	if o.indices != "" {
		for _, tok := range strings.Fields(o.indices) {
			idx, err := strconv.Atoi(tok)
			if err != nil {
				return 0, fmt.Errorf("invalid index %q", tok)
			}
			topic.Indices = append(topic.Indices, idx)
		}
	}
	dir := o.workDir
	if dir == "" {
		dir = filepath.Join(s.OutputsDir, topic.ID)
	}

	c, err := build(ctx, o, s)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	result := c.runner.RunOne(ctx, topic, dir, o.email)
	if result.Status != types.TopicSuccessful {
		fmt.Println(result.Failures.String())
		return 1, nil
	}
	log.Printf("✅ %s finished in %s", topic.ID, result.Elapsed.Round(time.Second))
	return 0, nil
}

func serve(ctx context.Context, topicFile string, o options, s config.Settings) error {
	c, err := build(ctx, o, s)
	if err != nil {
		return err
	}
	defer c.Close()

	drafter, closeSeen := newDrafter(s)
	defer closeSeen()

	server := api.NewServer(state.NewManager(), c.runner, c.flag, api.Options{
		Port:         s.Port,
		OutputsDir:   s.OutputsDir,
		ProposalsDir: s.ProposalsDir,
		Drafter:      drafter,
	})

	if o.serve {
		if err := server.Start(); err != nil {
			return err
		}
		if o.cron != "" {
			if err := requireTopicFile(topicFile); err != nil {
				return err
			}
			if err := server.StartCron(o.cron, topicFile, o.email); err != nil {
				return err
			}
		}
	}

	if o.kafka {
		consumer, err := queue.NewConsumer(queue.ConsumerConfigFor(
			s.KafkaBrokers, s.KafkaRequestsTopic, s.KafkaGroupID, server))
		if err != nil {
			return err
		}
		defer consumer.Close()

		log.Printf("🔗 Kafka Brokers: %v", s.KafkaBrokers)
		log.Printf("📋 Topic: %s", s.KafkaRequestsTopic)
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
	}

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	server.Wait()
	return nil
}
