package generators

import (
	"context"
	"strings"
)

// Narrator synthesises speech for text at the given speaking rate into out.
type Narrator interface {
	Generate(ctx context.Context, text, out string, rate int) error
}

// Visualizer renders prompt into out. With a positive duration out is a
// still-image video clip of that length; otherwise out is the image itself.
type Visualizer interface {
	Generate(ctx context.Context, prompt, out string, duration float64) error
}

// Composer generates background music of at least duration seconds.
type Composer interface {
	Generate(ctx context.Context, prompt, out string, duration float64) error
}

// Set bundles the generators used for one topic.
type Set struct {
	Narrator   Narrator
	Visualizer Visualizer
	Composer   Composer
}

var womanVoiceMarkers = []string{"_women_", "Zodiac_", "MBTI_"}

// ReferenceVoice picks the narration reference audio from the topic name.
func ReferenceVoice(topic, man, woman string) string {
	for _, marker := range womanVoiceMarkers {
		if strings.Contains(topic, marker) {
			return woman
		}
	}
	return man
}
