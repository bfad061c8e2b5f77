package aligner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"text2shorts/common"
	"text2shorts/generators"
	"text2shorts/types"
)

// Whisper transcribes narration with whisper.cpp, one segment per word.
type Whisper struct {
	ffmpegPath  string
	whisperPath string
	modelPath   string
	runner      common.CommandRunner
	device      *generators.Device
}

// NewWhisper constructs the production transcriber. whisper.cpp holds device
// while it runs.
func NewWhisper(whisperPath, modelPath string, device *generators.Device) *Whisper {
	w := NewWhisperWithRunner("ffmpeg", whisperPath, modelPath, common.ExecRunner{})
	w.device = device
	return w
}

// NewWhisperWithRunner constructs a transcriber with an injected command runner.
func NewWhisperWithRunner(ffmpegPath, whisperPath, modelPath string, runner common.CommandRunner) *Whisper {
	return &Whisper{
		ffmpegPath:  ffmpegPath,
		whisperPath: whisperPath,
		modelPath:   modelPath,
		runner:      runner,
	}
}

// whisperOutput is the subset of whisper.cpp's -oj document we read.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe converts the audio to 16 kHz mono and runs whisper.cpp with
// word-length segments.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (types.TimedCaption, error) {
	tempDir, err := os.MkdirTemp("", "text2shorts-whisper-*")
	if err != nil {
		return types.TimedCaption{}, fmt.Errorf("failed to create temporary workspace: %w", err)
	}
	defer os.RemoveAll(tempDir)

	wavPath := filepath.Join(tempDir, "audio-16k-mono.wav")
	if _, err := w.runner.Run(ctx, w.ffmpegPath, buildFFmpegArgs(audioPath, wavPath)...); err != nil {
		return types.TimedCaption{}, fmt.Errorf("ffmpeg audio conversion failed: %w", err)
	}

	base := filepath.Join(tempDir, "transcript")
	if err := w.runWhisper(ctx, wavPath, base); err != nil {
		return types.TimedCaption{}, err
	}

	data, err := os.ReadFile(base + ".json")
	if err != nil {
		return types.TimedCaption{}, fmt.Errorf("whisper.cpp completed but transcript is missing: %w", err)
	}
	return parseWhisperJSON(data)
}

func (w *Whisper) runWhisper(ctx context.Context, wavPath, base string) error {
	if w.device != nil {
		release, err := w.device.Acquire(ctx, "alignment")
		if err != nil {
			return err
		}
		defer release()
	}
	if _, err := w.runner.Run(ctx, w.whisperPath, buildWhisperArgs(w.modelPath, wavPath, base)...); err != nil {
		return fmt.Errorf("whisper.cpp transcription failed: %w", err)
	}
	return nil
}

func parseWhisperJSON(data []byte) (types.TimedCaption, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return types.TimedCaption{}, fmt.Errorf("invalid whisper.cpp output: %w", err)
	}

	var tc types.TimedCaption
	var text strings.Builder
	for _, seg := range out.Transcription {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		text.WriteString(seg.Text)
		tc.Chunks = append(tc.Chunks, types.Chunk{
			Text:  seg.Text,
			Start: float64(seg.Offsets.From) / 1000,
			End:   types.Float(float64(seg.Offsets.To) / 1000),
		})
	}
	if len(tc.Chunks) == 0 {
		return types.TimedCaption{}, fmt.Errorf("whisper.cpp produced no words")
	}
	tc.Text = text.String()
	return tc, nil
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper.cpp args for word-level JSON export.
func buildWhisperArgs(modelPath, audioPath, outBase string) []string {
	return []string{
		"-m", modelPath,
		"-f", audioPath,
		"-l", "en",
		"-ml", "1",
		"-sow",
		"-oj",
		"-of", outBase,
	}
}
