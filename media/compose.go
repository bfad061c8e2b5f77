package media

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"text2shorts/config"
	"text2shorts/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Compositor performs the ffmpeg work of the pipeline.
type Compositor struct{}

// Duration returns the length of a media file in seconds.
func Duration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("invalid ffprobe output for %s: %w", path, err)
	}
	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("no duration for %s: %w", path, err)
	}
	return d, nil
}

func (Compositor) Duration(path string) (float64, error) {
	return Duration(path)
}

// fillFrame scales and center-crops a video stream to the output size.
func fillFrame(s *ffmpeg.Stream) *ffmpeg.Stream {
	return s.Filter("scale",
		ffmpeg.Args{fmt.Sprintf("%d:%d", config.VideoWidth, config.VideoHeight)},
		ffmpeg.KwArgs{"force_original_aspect_ratio": "increase"},
	).Filter("crop",
		ffmpeg.Args{strconv.Itoa(config.VideoWidth), strconv.Itoa(config.VideoHeight)},
	).Filter("setsar", ffmpeg.Args{"1"})
}

// StillToVideo loops one image into a silent clip of the given length.
func StillToVideo(image, out string, seconds float64) error {
	still := ffmpeg.Input(image, ffmpeg.KwArgs{"loop": 1, "framerate": config.VideoFPS})
	err := ffmpeg.Output([]*ffmpeg.Stream{fillFrame(still)}, out, ffmpeg.KwArgs{
		"t":       fmt.Sprintf("%.3f", seconds),
		"c:v":     config.VideoCodec,
		"preset":  config.VideoPreset,
		"pix_fmt": "yuv420p",
	}).OverWriteOutput().GlobalArgs("-hide_banner", "-loglevel", "error").Run()
	if err != nil {
		return fmt.Errorf("ffmpeg still video failed: %w", err)
	}
	return nil
}

func (Compositor) StillToVideo(image, out string, seconds float64) error {
	return StillToVideo(image, out, seconds)
}

// BurnCaptions overlays the timed captions on video and muxes the normalised
// narration audio.
func (Compositor) BurnCaptions(caption types.TimedCaption, video, audio, out string) error {
	duration, err := Duration(audio)
	if err != nil {
		return err
	}

	assPath := strings.TrimSuffix(out, filepath.Ext(out)) + ".ass"
	if err := WriteASSFile(caption, duration, assPath); err != nil {
		return fmt.Errorf("failed to generate ASS: %w", err)
	}
	defer os.Remove(assPath)

	videoWithSubs := ffmpeg.Input(video).Filter("ass", ffmpeg.Args{filepath.ToSlash(assPath)})
	narration := ffmpeg.Input(audio).Audio().Filter("loudnorm", ffmpeg.Args{})

	err = ffmpeg.Output([]*ffmpeg.Stream{videoWithSubs, narration}, out, ffmpeg.KwArgs{
		"c:v":      config.VideoCodec,
		"c:a":      config.AudioCodec,
		"b:a":      config.AudioBitrate,
		"ar":       config.AudioSampleRate,
		"preset":   config.VideoPreset,
		"pix_fmt":  "yuv420p",
		"shortest": "",
	}).OverWriteOutput().GlobalArgs("-hide_banner", "-loglevel", "error").Run()
	if err != nil {
		return fmt.Errorf("ffmpeg caption burn-in failed: %w", err)
	}
	return nil
}

// TitleCard draws the short title centered over the thumbnail image.
func (Compositor) TitleCard(image, title, out string) error {
	textPath := out + ".txt"
	if err := os.WriteFile(textPath, []byte(wrapTitle(title, 14)), 0o644); err != nil {
		return fmt.Errorf("failed to write title text: %w", err)
	}
	defer os.Remove(textPath)

	card := fillFrame(ffmpeg.Input(image)).Filter("drawtext", ffmpeg.Args{}, ffmpeg.KwArgs{
		"textfile":     filepath.ToSlash(textPath),
		"fontsize":     config.TitleFontSize,
		"fontcolor":    "white",
		"borderw":      8,
		"bordercolor":  "black",
		"line_spacing": 12,
		"x":            "(w-text_w)/2",
		"y":            "(h-text_h)/2",
	})

	err := ffmpeg.Output([]*ffmpeg.Stream{card}, out, ffmpeg.KwArgs{"frames:v": 1}).
		OverWriteOutput().GlobalArgs("-hide_banner", "-loglevel", "error").Run()
	if err != nil {
		return fmt.Errorf("ffmpeg title card failed: %w", err)
	}
	return nil
}

// wrapTitle breaks a title into lines of roughly width characters.
func wrapTitle(title string, width int) string {
	words := strings.Fields(title)
	var lines []string
	var current string
	for _, w := range words {
		if current != "" && len(current)+1+len(w) > width {
			lines = append(lines, current)
			current = w
			continue
		}
		if current == "" {
			current = w
		} else {
			current += " " + w
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return strings.Join(lines, "\n")
}

// Concat joins clips with the concat demuxer without re-encoding.
func (Compositor) Concat(clips []string, out string) error {
	if len(clips) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := out + ".list"
	var b strings.Builder
	for _, c := range clips {
		abs, err := filepath.Abs(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listPath)

	err := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(out, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().GlobalArgs("-hide_banner", "-loglevel", "error").Run()
	if err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}
	return nil
}

// MixMusic lays background music under the video's own audio. When the music
// is longer than the video its middle section is used.
func (Compositor) MixMusic(video, music, out string) error {
	videoDur, err := Duration(video)
	if err != nil {
		return err
	}
	musicDur, err := Duration(music)
	if err != nil {
		return err
	}

	musicArgs := ffmpeg.KwArgs{}
	if start := musicWindowStart(videoDur, musicDur); start > 0 {
		musicArgs["ss"] = fmt.Sprintf("%.3f", start)
		musicArgs["t"] = fmt.Sprintf("%.3f", videoDur)
	}

	in := ffmpeg.Input(video)
	voice := in.Audio().Filter("volume", ffmpeg.Args{fmt.Sprint(config.NarrationGain)})
	bg := ffmpeg.Input(music, musicArgs).Audio().
		Filter("loudnorm", ffmpeg.Args{}).
		Filter("volume", ffmpeg.Args{fmt.Sprint(config.MusicGain)})
	mixed := ffmpeg.Filter([]*ffmpeg.Stream{voice, bg}, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
		"inputs":    2,
		"duration":  "first",
		"normalize": 0,
	})

	err = ffmpeg.Output([]*ffmpeg.Stream{in.Video(), mixed}, out, ffmpeg.KwArgs{
		"c:v": "copy",
		"c:a": config.AudioCodec,
		"b:a": config.AudioBitrate,
		"ar":  config.AudioSampleRate,
	}).OverWriteOutput().GlobalArgs("-hide_banner", "-loglevel", "error").Run()
	if err != nil {
		return fmt.Errorf("ffmpeg music mix failed: %w", err)
	}
	return nil
}

// musicWindowStart returns where the centered music window begins, or 0 when
// the music is not longer than the video.
func musicWindowStart(videoDur, musicDur float64) float64 {
	if musicDur <= videoDur {
		return 0
	}
	return musicDur/2 - videoDur/2
}
