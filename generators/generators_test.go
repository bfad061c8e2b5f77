package generators

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"text2shorts/common"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (common.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	return common.CommandResult{}, f.err
}

func TestReferenceVoice(t *testing.T) {
	cases := []struct {
		topic string
		want  string
	}{
		{"Psychology_women_1", "woman.wav"},
		{"Zodiac_leo", "woman.wav"},
		{"MBTI_INFJ", "woman.wav"},
		{"News_penny", "man.wav"},
		{"Psychology_men_2", "man.wav"},
	}
	for _, c := range cases {
		if got := ReferenceVoice(c.topic, "man.wav", "woman.wav"); got != c.want {
			t.Fatalf("ReferenceVoice(%q) = %q; want %q", c.topic, got, c.want)
		}
	}
}

func TestDeviceSerialisesHolders(t *testing.T) {
	d := NewDevice(nil)
	release, err := d.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := d.Acquire(context.Background(), "b")
		if err == nil {
			r()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second holder acquired the device while the first still held it")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second holder never acquired the device")
	}
	if d.Loaded() != "b" {
		t.Fatalf("Loaded() = %q; want b", d.Loaded())
	}
}

func TestDeviceAcquireHonoursContext(t *testing.T) {
	d := NewDevice(nil)
	release, _ := d.Acquire(context.Background(), "a")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Acquire(ctx, "b"); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPythonNarratorUnpacksScriptOnce(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	scripts := NewScripts("python3", filepath.Join(dir, "scripts"), runner)
	n := NewPythonNarrator(scripts, NewDevice(nil), "man.wav")

	for i := 0; i < 2; i++ {
		if err := n.Generate(context.Background(), "hello", filepath.Join(dir, "0.wav"), 20-2*i); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}
	if len(runner.calls) != 2 {
		t.Fatalf("runner calls = %d; want 2", len(runner.calls))
	}
	script := runner.calls[0][1]
	data, err := os.ReadFile(script)
	if err != nil || !strings.Contains(string(data), "speaking_rate") {
		t.Fatalf("narration script not unpacked at %s: %v", script, err)
	}
	if got := strings.Join(runner.calls[1], " "); !strings.Contains(got, "--rate 18") {
		t.Fatalf("second call missing slower rate: %s", got)
	}
}

func TestPythonVisualizerRendersStill(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	var stillArgs []string
	still := func(image, out string, seconds float64) error {
		stillArgs = []string{image, out}
		if seconds != 3.5 {
			t.Fatalf("still seconds = %v; want 3.5", seconds)
		}
		return nil
	}
	v := NewPythonVisualizer(NewScripts("python3", dir, runner), NewDevice(nil), still)

	out := filepath.Join(dir, "1.mp4")
	if err := v.Generate(context.Background(), "a cat", out, 3.5); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(stillArgs) != 2 || stillArgs[1] != out || stillArgs[0] != out+".png" {
		t.Fatalf("unexpected still args %v", stillArgs)
	}

	stillArgs = nil
	if err := v.Generate(context.Background(), "a cat", filepath.Join(dir, "-1.png"), 0); err != nil {
		t.Fatalf("Generate image: %v", err)
	}
	if stillArgs != nil {
		t.Fatalf("image-only generation should not render a clip")
	}
}
