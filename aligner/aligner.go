package aligner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"text2shorts/llm"
	"text2shorts/types"
)

// Transcriber produces a word-level timed transcription of an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (types.TimedCaption, error)
}

// DurationFunc returns the length of an audio file in seconds.
type DurationFunc func(path string) (float64, error)

// Result is the outcome of one alignment attempt. Diagnostic is set when
// Matched is false.
type Result struct {
	Matched    bool
	Caption    types.TimedCaption
	Diagnostic string
}

// Aligner verifies narration against the expected caption and produces the
// timed caption used for burn-in.
type Aligner struct {
	transcriber Transcriber
	model       llm.Client
	duration    DurationFunc
}

func New(transcriber Transcriber, model llm.Client, duration DurationFunc) *Aligner {
	return &Aligner{
		transcriber: transcriber,
		model:       model,
		duration:    duration,
	}
}

const repairInstruction = `I am a YouTube Shorts content creator.
I use a speech-to-text model to build a word-level timed transcription of my narration:
the model returns the start and end time of each word spoken in the audio.
The model is not accurate enough to fully detect what I say.
Correct the words and add punctuation to the timed transcription.
If the transcription is far from the script, misses words or has extra words, answer "failed".
If the transcription only has small problems with spelling, homophones or aliases,
answer "modified {...}", i.e. the word "modified" followed by the corrected JSON document.
Do not add anything else and never change the timestamps.
Answer "failed" if you are not certain.
Example input:
{"script": "INFJs are insightful and deeply caring.", "timed_caption": {"text": " NFJS are insightful and deeply caring.", "chunks": [{"text": " NFJS", "timestamp": [0.06, 0.62]}, {"text": " are", "timestamp": [0.62, 0.76]}, {"text": " insightful", "timestamp": [0.76, 1.22]}, {"text": " and", "timestamp": [1.22, 1.44]}, {"text": " deeply", "timestamp": [1.44, 1.74]}, {"text": " caring.", "timestamp": [1.74, null]}]}}
Expected response:
modified {"text": "INFJs are insightful and deeply caring.", "chunks": [{"text": "INFJs", "timestamp": [0.06, 0.62]}, {"text": " are", "timestamp": [0.62, 0.76]}, {"text": " insightful", "timestamp": [0.76, 1.22]}, {"text": " and", "timestamp": [1.22, 1.44]}, {"text": " deeply", "timestamp": [1.44, 1.74]}, {"text": " caring.", "timestamp": [1.74, null]}]}`

// Align transcribes audioPath and compares it to caption. A transcription
// that normalizes to the caption is accepted as is; otherwise the repair model
// decides. Either way a chunk starting after the end of the audio rejects the
// result.
func (a *Aligner) Align(ctx context.Context, caption, audioPath string) (Result, error) {
	timed, err := a.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("transcription failed: %w", err)
	}

	var result Result
	if Normalize(timed.Text) == Normalize(caption) {
		result = Result{Matched: true, Caption: timed}
	} else {
		result, err = a.repair(ctx, caption, timed)
		if err != nil {
			return Result{}, err
		}
	}
	if !result.Matched {
		return result, nil
	}

	duration, err := a.duration(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read audio duration: %w", err)
	}
	for _, chunk := range result.Caption.Chunks {
		if chunk.Start > duration {
			return Result{
				Matched:    false,
				Diagnostic: fmt.Sprintf("chunk %q starts at %.2fs, after the audio ends at %.2fs", chunk.Text, chunk.Start, duration),
			}, nil
		}
	}
	return result, nil
}

func (a *Aligner) repair(ctx context.Context, caption string, timed types.TimedCaption) (Result, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"script":        caption,
		"timed_caption": timed,
	})
	if err != nil {
		return Result{}, err
	}

	response, err := a.model.Chat(ctx, repairInstruction, string(payload))
	if err != nil {
		return Result{}, fmt.Errorf("caption repair request failed: %w", err)
	}

	diagnostic := fmt.Sprintf("\nTranscription:\t%s\nCaption:\t%s\nModel Response:\t%s", timed.Text, caption, response)
	body, ok := parseRepair(response)
	if !ok {
		return Result{Matched: false, Diagnostic: diagnostic}, nil
	}

	repaired, err := types.ParseTimedCaption([]byte(body))
	if err != nil {
		return Result{}, fmt.Errorf("repaired caption is not valid: %w%s", err, diagnostic)
	}
	return Result{Matched: true, Caption: repaired, Diagnostic: diagnostic}, nil
}

// parseRepair extracts the JSON body of a "modified {...}" answer.
func parseRepair(response string) (string, bool) {
	response = strings.Trim(strings.TrimSpace(llm.StripThinking(response)), "\"")
	if !strings.HasPrefix(response, "modified") {
		return "", false
	}
	body := strings.TrimSpace(strings.TrimPrefix(response, "modified"))
	return llm.StripCodeFence(body), true
}

// Normalize keeps only letters and digits, lower-cased.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
