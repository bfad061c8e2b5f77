package queue

import (
	"context"
	"errors"
	"log"
	"time"

	"text2shorts/state"
	"text2shorts/types"
)

// Starter starts a batch run in the background.
type Starter interface {
	StartBatch(req types.BatchRequest) (string, error)
}

// DefaultBusyRetry is how long a request waits before retrying while another batch runs.
const DefaultBusyRetry = 30 * time.Second

// NewBatchHandler returns a handler that starts one batch per request. While
// another batch is active the handler waits, so requests run one after another.
func NewBatchHandler(starter Starter, busyRetry time.Duration) *TypedMessageHandler[types.BatchRequest] {
	if busyRetry <= 0 {
		busyRetry = DefaultBusyRetry
	}
	return &TypedMessageHandler[types.BatchRequest]{
		Validate: func(msg *types.BatchRequest) bool {
			if msg.TopicFile == "" && msg.Topic == "" {
				log.Printf("❌ Batch request has neither topic_file nor topic, skipping")
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *types.BatchRequest) error {
			for {
				runID, err := starter.StartBatch(*msg)
				if err == nil {
					log.Printf("✅ Batch %s started from Kafka request", runID)
					return nil
				}
				if !errors.Is(err, state.ErrBusy) {
					// Retrying a bad request cannot help.
					log.Printf("❌ Batch request rejected: %v", err)
					return nil
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(busyRetry):
				}
			}
		},
		AlwaysMark: true,
	}
}

// ConsumerConfigFor builds the consumer config for batch requests.
func ConsumerConfigFor(brokers []string, topic, groupID string, starter Starter) ConsumerConfig {
	return ConsumerConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		Handler: NewBatchHandler(starter, DefaultBusyRetry),
	}
}
