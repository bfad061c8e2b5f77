package state

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"text2shorts/config"
	"text2shorts/types"
)

func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(3)
	bus.Publish(Event{Type: EventTypeLog, Message: "1"})
	bus.Publish(Event{Type: EventTypeLog, Message: "2"})
	bus.Publish(Event{Type: EventTypeLog, Message: "3"})

	events := bus.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
}

func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})
	bus.Publish(Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestEventBusWait(t *testing.T) {
	bus := NewEventBus(0)
	wait := bus.Wait()
	select {
	case <-wait:
		t.Fatalf("wait channel closed before publish")
	default:
	}

	bus.Publish(Event{Message: "x"})
	select {
	case <-wait:
	case <-time.After(time.Second):
		t.Fatalf("wait channel not closed after publish")
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.GetState() != types.StateIdle {
		t.Fatalf("expected idle, got %s", m.GetState())
	}

	runID, err := m.Begin("lists/week.txt")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected run id")
	}
	if _, err := m.Begin("lists/other.txt"); err == nil {
		t.Fatalf("expected second Begin to fail while running")
	}

	m.SetCurrentTopic("A_1", 2)
	if got := m.GetStatus(); got.CurrentTopic != "A_1" || got.TopicCount != 2 {
		t.Fatalf("unexpected status %+v", got)
	}

	m.AddResult(types.TopicResult{Topic: "A_1", Status: types.TopicSuccessful, Remaining: 1}, 2)
	if !m.RequestStop() {
		t.Fatalf("expected stop request to be accepted")
	}
	if m.GetState() != types.StateStopping || !m.Busy() {
		t.Fatalf("expected stopping, got %s", m.GetState())
	}
	m.Finish(true)

	status := m.GetStatus()
	if status.State != types.StateComplete || status.RunID != runID {
		t.Fatalf("unexpected final status %+v", status)
	}
	if len(status.Results) != 1 || status.Results[0].Topic != "A_1" {
		t.Fatalf("unexpected results %+v", status.Results)
	}
	if m.RequestStop() {
		t.Fatalf("stop should be refused when nothing runs")
	}

	var sawResult bool
	for _, ev := range m.Events().Since(0) {
		if ev.Type == EventTypeResult && ev.Result != nil && ev.Result.Topic == "A_1" {
			sawResult = true
		}
	}
	if !sawResult {
		t.Fatalf("expected a result event")
	}

	// A new batch may start after completion and clears old results.
	if _, err := m.Begin("lists/week.txt"); err != nil {
		t.Fatalf("Begin after complete: %v", err)
	}
	if n := len(m.GetStatus().Results); n != 0 {
		t.Fatalf("expected results reset, got %d", n)
	}
}

func TestManagerErrorAndLogRing(t *testing.T) {
	m := NewManager()
	for i := 0; i < config.MaxLogEntries+10; i++ {
		m.AddLog(fmt.Sprintf("line %d", i))
	}
	m.SetError(errors.New("topic list missing"))

	status := m.GetStatus()
	if status.State != types.StateError || status.Error != "topic list missing" {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Logs) != config.MaxLogEntries {
		t.Fatalf("expected %d logs, got %d", config.MaxLogEntries, len(status.Logs))
	}
	if last := status.Logs[len(status.Logs)-1].Message; last != "Error: topic list missing" {
		t.Fatalf("unexpected last log %q", last)
	}
}
