package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"text2shorts/batch"
	"text2shorts/config"
	"text2shorts/pipeline"
	"text2shorts/proposals"
	"text2shorts/state"
	"text2shorts/types"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// ErrBadRequest marks a batch request that cannot be started.
var ErrBadRequest = errors.New("invalid batch request")

// singleListName is the list prefix of topic directories for single-topic requests.
const singleListName = "single"

// Server is the batch control HTTP server
type Server struct {
	state        *state.Manager
	runner       *batch.Runner
	flag         batch.InterruptFlag
	outputsDir   string
	proposalsDir string
	drafter      *proposals.Drafter

	httpServer *http.Server
	cron       *cron.Cron
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Options configures NewServer
type Options struct {
	Port         string
	OutputsDir   string
	ProposalsDir string
	// Drafter enables POST /api/proposals/draft when set.
	Drafter *proposals.Drafter
}

// NewServer wires the runner's progress callbacks into the state manager.
func NewServer(stateManager *state.Manager, runner *batch.Runner, flag batch.InterruptFlag, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		state:        stateManager,
		runner:       runner,
		flag:         flag,
		outputsDir:   opts.OutputsDir,
		proposalsDir: opts.ProposalsDir,
		drafter:      opts.Drafter,
		cron:         cron.New(),
		ctx:          ctx,
		cancel:       cancel,
	}
	if s.outputsDir == "" {
		s.outputsDir = config.OutputsDir
	}
	if s.proposalsDir == "" {
		s.proposalsDir = config.ProposalsDir
	}

	prevStage := runner.OnStage
	runner.OnStage = func(e pipeline.Event) {
		if prevStage != nil {
			prevStage(e)
		}
		s.state.RecordStage(e.Topic, e.Result)
	}
	prevStart := runner.OnStart
	runner.OnStart = func(topic types.Topic, index, total int) {
		if prevStart != nil {
			prevStart(topic, index, total)
		}
		s.state.SetCurrentTopic(topic.ID, total)
	}

	s.httpServer = &http.Server{
		Addr:    ":" + opts.Port,
		Handler: s.Router(),
	}
	return s
}

// Router constructs a Gin engine with registered routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	s.RegisterBatchRoutes(r)
	s.RegisterReportRoutes(r)
	s.RegisterEventRoutes(r)
	s.RegisterProposalRoutes(r)
	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("🌐 Starting control server on %s", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()
	return nil
}

// StartBatch starts a batch in the background and returns its run id.
func (s *Server) StartBatch(req types.BatchRequest) (string, error) {
	var (
		topics   []types.Topic
		listName string
		label    string
	)
	switch {
	case req.Topic != "":
		topics = []types.Topic{{ID: req.Topic, Indices: req.Indices}}
		listName = singleListName
		label = req.Topic
	case req.TopicFile != "":
		var err error
		topics, err = batch.LoadTopicList(req.TopicFile)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		listName = batch.ListName(req.TopicFile)
		label = req.TopicFile
	default:
		return "", fmt.Errorf("%w: topic_file or topic is required", ErrBadRequest)
	}

	runID, err := s.state.Begin(label)
	if err != nil {
		return "", err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(listName, topics, req.SendReport)
	}()
	return runID, nil
}

func (s *Server) run(listName string, topics []types.Topic, sendReport bool) {
	events := make(chan batch.Event, 1)
	go func() {
		defer close(events)
		s.runner.RunTopics(s.ctx, listName, topics, sendReport, events)
	}()

	for ev := range events {
		switch ev.Kind {
		case batch.EventTopic:
			s.state.AddResult(ev.Result, ev.Total)
		case batch.EventDone:
			if ev.Err != nil {
				s.state.SetError(ev.Err)
			} else {
				s.state.Finish(ev.Interrupted)
			}
		}
	}
}

// Stop asks the running batch to halt before its next topic.
func (s *Server) Stop(ctx context.Context) error {
	if s.flag != nil {
		if err := s.flag.Set(ctx, config.InterruptStop); err != nil {
			return err
		}
	}
	if s.state.RequestStop() {
		log.Println("🛑 Stop requested")
	}
	return nil
}

// StartCron starts batches over topicFile on schedule while the server is idle.
func (s *Server) StartCron(schedule, topicFile string, sendReport bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, func() {
		log.Println("⏰ Cron triggered: starting scheduled batch")
		if s.state.Busy() {
			log.Printf("Cron skipped: a batch is active (state=%s)", s.state.GetState())
			return
		}
		if _, err := s.StartBatch(types.BatchRequest{TopicFile: topicFile, SendReport: sendReport}); err != nil {
			log.Printf("Cron batch error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	log.Printf("Cron job started with schedule: %s", schedule)
	return nil
}

// Wait blocks until every batch started by this server has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Shutdown gracefully shuts down the server. A running batch is cancelled
// before its next topic.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down control server...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}
