package generators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"text2shorts/common"
	"text2shorts/config"
)

// Scripts runs the embedded model scripts with an external Python interpreter.
type Scripts struct {
	python string
	dir    string
	runner common.CommandRunner

	mu       sync.Mutex
	unpacked map[string]string
}

func NewScripts(python, dir string, runner common.CommandRunner) *Scripts {
	if runner == nil {
		runner = common.ExecRunner{}
	}
	return &Scripts{
		python:   python,
		dir:      dir,
		runner:   runner,
		unpacked: make(map[string]string),
	}
}

// path writes the script to disk once and returns its location.
func (s *Scripts) path(name, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.unpacked[name]; ok {
		return p, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scripts dir: %w", err)
	}
	p := filepath.Join(s.dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	s.unpacked[name] = p
	return p, nil
}

func (s *Scripts) run(ctx context.Context, name, body string, args ...string) error {
	p, err := s.path(name, body)
	if err != nil {
		return err
	}
	if _, err := s.runner.Run(ctx, s.python, append([]string{p}, args...)...); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// PythonNarrator is the production Narrator
type PythonNarrator struct {
	scripts   *Scripts
	device    *Device
	reference string
}

func NewPythonNarrator(scripts *Scripts, device *Device, reference string) *PythonNarrator {
	return &PythonNarrator{scripts: scripts, device: device, reference: reference}
}

func (n *PythonNarrator) Generate(ctx context.Context, text, out string, rate int) error {
	release, err := n.device.Acquire(ctx, "narration")
	if err != nil {
		return err
	}
	defer release()

	// A stale file would mask a failed synthesis
	_ = os.Remove(out)
	return n.scripts.run(ctx, "narrate.py", narrateScript,
		"--text", text,
		"--out", out,
		"--rate", strconv.Itoa(rate),
		"--reference", n.reference,
	)
}

// StillFunc loops an image into a video clip of the given length.
type StillFunc func(image, out string, seconds float64) error

// PythonVisualizer is the production Visualizer
type PythonVisualizer struct {
	scripts *Scripts
	device  *Device
	still   StillFunc
}

func NewPythonVisualizer(scripts *Scripts, device *Device, still StillFunc) *PythonVisualizer {
	return &PythonVisualizer{scripts: scripts, device: device, still: still}
}

func (v *PythonVisualizer) Generate(ctx context.Context, prompt, out string, duration float64) error {
	image := out
	if duration > 0 {
		image = out + ".png"
		defer os.Remove(image)
	}

	release, err := v.device.Acquire(ctx, "image")
	if err != nil {
		return err
	}
	err = v.scripts.run(ctx, "image.py", imageScript,
		"--prompt", prompt,
		"--out", image,
		"--width", strconv.Itoa(config.VideoWidth),
		"--height", strconv.Itoa(config.VideoHeight),
	)
	release()
	if err != nil {
		return err
	}

	if duration <= 0 {
		return nil
	}
	if err := v.still(image, out, duration); err != nil {
		return fmt.Errorf("failed to render still video: %w", err)
	}
	return nil
}

// PythonComposer is the production Composer
type PythonComposer struct {
	scripts *Scripts
	device  *Device
}

func NewPythonComposer(scripts *Scripts, device *Device) *PythonComposer {
	return &PythonComposer{scripts: scripts, device: device}
}

func (c *PythonComposer) Generate(ctx context.Context, prompt, out string, duration float64) error {
	release, err := c.device.Acquire(ctx, "music")
	if err != nil {
		return err
	}
	defer release()

	return c.scripts.run(ctx, "music.py", musicScript,
		"--prompt", prompt,
		"--out", out,
		"--duration", strconv.FormatFloat(duration+config.MusicPadding, 'f', 2, 64),
	)
}
