package monitor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"text2shorts/types"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeAPI struct {
	status  *types.StatusResponse
	started []types.BatchRequest
	stopped int
	err     error
}

func (f *fakeAPI) GetStatus() (*types.StatusResponse, error) {
	return f.status, f.err
}

func (f *fakeAPI) StartBatch(req types.BatchRequest) error {
	f.started = append(f.started, req)
	return nil
}

func (f *fakeAPI) StopBatch() error {
	f.stopped++
	return nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStartAndStopKeys(t *testing.T) {
	api := &fakeAPI{status: &types.StatusResponse{State: types.StateIdle}}
	m := NewModel(api, "lists/week.txt", true)

	next, cmd := m.Update(key("s"))
	if cmd == nil {
		t.Fatalf("expected a start command")
	}
	msg := cmd()
	if action, ok := msg.(ActionMsg); !ok || action.Err != nil {
		t.Fatalf("unexpected message %#v", msg)
	}
	if len(api.started) != 1 || api.started[0].TopicFile != "lists/week.txt" || !api.started[0].SendReport {
		t.Fatalf("unexpected start requests %+v", api.started)
	}

	_, cmd = next.(Model).Update(key("x"))
	if cmd == nil {
		t.Fatalf("expected a stop command")
	}
	cmd()
	if api.stopped != 1 {
		t.Fatalf("expected one stop request, got %d", api.stopped)
	}
}

func TestStartRefusedWhileRunning(t *testing.T) {
	api := &fakeAPI{}
	m := NewModel(api, "lists/week.txt", false)
	updated, _ := m.Update(StatusUpdateMsg{Status: &types.StatusResponse{State: types.StateRunning, CurrentTopic: "A_1", TopicCount: 3}})
	m = updated.(Model)

	updated, cmd := m.Update(key("s"))
	if cmd != nil {
		t.Fatalf("expected no command while running")
	}
	if !strings.Contains(updated.(Model).Notice, "already running") {
		t.Fatalf("unexpected notice %q", updated.(Model).Notice)
	}
	if !strings.Contains(updated.(Model).View(), "A_1") {
		t.Fatalf("expected current topic in view")
	}
}

func TestEditTopicFile(t *testing.T) {
	m := NewModel(&fakeAPI{}, "", false)
	updated, _ := m.Update(key("e"))
	m = updated.(Model)
	for _, r := range "b.txt" {
		updated, _ = m.Update(key(string(r)))
		m = updated.(Model)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.TopicFile() != "b.txt" {
		t.Fatalf("expected topic file b.txt, got %q", m.TopicFile())
	}
}

func TestDisconnected(t *testing.T) {
	m := NewModel(&fakeAPI{}, "", false)
	updated, _ := m.Update(StatusUpdateMsg{Err: errors.New("connection refused")})
	view := updated.(Model).View()
	if !strings.Contains(view, "Not connected") {
		t.Fatalf("expected disconnected view, got:\n%s", view)
	}
}

func TestResultsShowFailedKeys(t *testing.T) {
	var failed types.FailureRecord
	failed.Add("3", "narration failed")
	failed.Add(types.AssemblyKey, "segment set incomplete")
	status := &types.StatusResponse{
		State:      types.StateComplete,
		TopicCount: 3,
		Results: []types.TopicResult{
			{Topic: "topicA", Status: types.TopicSuccessful},
			{Topic: "topicB", Status: types.TopicFailed, Failures: failed},
			{Topic: "topicC", Status: types.TopicInterrupted},
		},
	}
	updated, _ := NewModel(&fakeAPI{}, "", false).Update(StatusUpdateMsg{Status: status})
	view := updated.(Model).View()

	for _, want := range []string{"✔ topicA", "✘ topicB", "failed: 3, concat_music_youtube", "■ topicC", "Batch complete (3 topics)"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestClient(t *testing.T) {
	var gotBody types.BatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/status":
			_ = json.NewEncoder(w).Encode(types.StatusResponse{State: types.StateComplete, TopicCount: 2})
		case "/api/batch":
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &gotBody)
			w.WriteHeader(http.StatusAccepted)
		case "/api/batch/stop":
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, "nothing running")
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.State != types.StateComplete || status.TopicCount != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	if err := c.StartBatch(types.BatchRequest{TopicFile: "w.txt"}); err != nil {
		t.Fatalf("StartBatch: %v", err)
	}
	if gotBody.TopicFile != "w.txt" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}

	if err := c.StopBatch(); err == nil || !strings.Contains(err.Error(), "409") {
		t.Fatalf("expected 409 error, got %v", err)
	}
}
