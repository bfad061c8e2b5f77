package media

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"text2shorts/config"
	"text2shorts/types"
)

// word is a chunk with a resolved end time
type word struct {
	Text  string
	Start float64
	End   float64
}

// Line represents a group of words shown on screen together
type Line struct {
	Words []word
	Start float64
	End   float64
}

// resolveWords trims chunk text and closes open end times at the next
// word's start, or at fallbackEnd for the last word.
func resolveWords(chunks []types.Chunk, fallbackEnd float64) []word {
	words := make([]word, 0, len(chunks))
	for i, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		end := fallbackEnd
		if i+1 < len(chunks) {
			end = chunks[i+1].Start
		}
		end = c.EndOr(end)
		if end < c.Start {
			end = c.Start
		}
		words = append(words, word{Text: text, Start: c.Start, End: end})
	}
	return words
}

// endsSentence reports whether the word closes a sentence, ignoring
// decimal points inside numbers like "4.5".
func endsSentence(text string) bool {
	if strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		return true
	}
	if !strings.HasSuffix(text, ".") {
		return false
	}
	if len(text) == 1 {
		return true
	}
	prev := text[len(text)-2]
	return prev < '0' || prev > '9'
}

// groupIntoLines batches words into caption lines. A line closes at a sentence
// end or after maxWords, but never before it has been on screen for
// minDuration seconds unless it holds the last word.
func groupIntoLines(words []word, maxWords int, minDuration float64) []Line {
	lines := []Line{}
	current := Line{}

	for i, w := range words {
		if len(current.Words) == 0 {
			current.Start = w.Start
		}
		current.Words = append(current.Words, w)
		current.End = w.End

		last := i == len(words)-1
		split := endsSentence(w.Text) || len(current.Words) >= maxWords
		if current.End-current.Start < minDuration {
			split = false
		}
		if split || last {
			lines = append(lines, current)
			current = Line{}
		}
	}
	return lines
}

// writeASS writes an ASS subtitle document with word-by-word highlighting.
func writeASS(w io.Writer, lines []Line) {
	fmt.Fprintln(w, "[Script Info]")
	fmt.Fprintln(w, "Title: text2shorts")
	fmt.Fprintln(w, "ScriptType: v4.00+")
	fmt.Fprintf(w, "PlayResX: %d\n", config.VideoWidth)
	fmt.Fprintf(w, "PlayResY: %d\n", config.VideoHeight)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "[V4+ Styles]")
	fmt.Fprintln(w, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding")

	// MarginV at 40% from the bottom
	marginV := config.VideoHeight * 2 / 5
	fmt.Fprintf(w, "Style: Default,%s,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H00000000,-1,0,0,0,100,100,0,0,1,3,0,2,40,40,%d,1\n",
		config.CaptionFont, config.CaptionFontSize, marginV)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "[Events]")
	fmt.Fprintln(w, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text")

	for _, line := range lines {
		for wordIdx, current := range line.Words {
			parts := make([]string, 0, len(line.Words))
			for i, wd := range line.Words {
				if i == wordIdx {
					parts = append(parts, fmt.Sprintf("{\\c&H0000FFFF&}%s{\\c&H00FFFFFF&}", escapeASS(wd.Text)))
				} else {
					parts = append(parts, escapeASS(wd.Text))
				}
			}

			start := current.Start
			if wordIdx == 0 {
				start = line.Start
			}
			end := current.End
			if wordIdx < len(line.Words)-1 {
				end = line.Words[wordIdx+1].Start
			} else {
				end = line.End
			}
			if end <= start {
				continue
			}

			fmt.Fprintf(w, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
				formatASSTimestamp(start),
				formatASSTimestamp(end),
				strings.Join(parts, " "))
		}
	}
}

// WriteASSFile renders timed captions into an ASS file at path.
func WriteASSFile(caption types.TimedCaption, duration float64, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	words := resolveWords(caption.Chunks, duration)
	writeASS(file, groupIntoLines(words, config.WordsPerCaptionLine, config.MinCaptionBatchDuration))
	return nil
}

func escapeASS(s string) string {
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.ReplaceAll(s, "\\", "/")
}

// formatASSTimestamp converts seconds to ASS timestamp format (h:mm:ss.cc)
func formatASSTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds * 100))
	hours := total / 360000
	minutes := (total / 6000) % 60
	secs := (total / 100) % 60
	centisecs := total % 100

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centisecs)
}
