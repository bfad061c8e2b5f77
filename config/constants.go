package config

// Speaking Rate Constants
const (
	// DefaultSpeakingRate is the first rate tried for every segment narration
	DefaultSpeakingRate = 20

	// SpeakingRateStep is subtracted after each caption mismatch
	SpeakingRateStep = 2

	// SpeakingRateFloor stops retries once the rate is no longer above it
	SpeakingRateFloor = 15
)

// Video Output Constants
const (
	// VideoWidth is the output video width (9:16 aspect ratio)
	VideoWidth = 720

	// VideoHeight is the output video height (9:16 aspect ratio)
	VideoHeight = 1280

	// VideoFPS is the frame rate of still-image clips
	VideoFPS = 30

	// VideoCodec is the video encoding codec
	VideoCodec = "libx264"

	// AudioCodec is the audio encoding codec
	AudioCodec = "aac"

	// AudioBitrate is the audio quality bitrate
	AudioBitrate = "192k"

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "fast"

	// AudioSampleRate of narration and music tracks
	AudioSampleRate = 44100
)

// Caption Style Constants
const (
	// CaptionFont is the ASS font name used for burned-in captions
	CaptionFont = "Arial"

	// CaptionFontSize for segment captions
	CaptionFontSize = 56

	// TitleFontSize for the thumbnail title card
	TitleFontSize = 96

	// WordsPerCaptionLine groups words into one on-screen line
	WordsPerCaptionLine = 4

	// MinCaptionBatchDuration is the shortest time a caption line stays up, in seconds
	MinCaptionBatchDuration = 0.3
)

// Music Mix Constants
const (
	// NarrationGain multiplies the video's own audio in the final mix
	NarrationGain = 2.0

	// MusicGain multiplies the normalised music in the final mix
	MusicGain = 0.3

	// MusicPadding is extra music generated beyond the video length, in seconds
	MusicPadding = 2.0

	// DefaultMusicPrompt is used when a proposal names no music
	DefaultMusicPrompt = "calm ambient instrumental background music, soft piano and pads, no vocals"
)

// Directory Constants
const (
	// OutputsDir holds one directory per processed topic
	OutputsDir = "outputs"

	// ProposalsDir holds one proposal JSON per topic
	ProposalsDir = "inputs/proposals"

	// ModelScriptsDir is where embedded model scripts are unpacked
	ModelScriptsDir = ".model_scripts"

	// InterruptFlagFile is the default cooperative stop flag
	InterruptFlagFile = ".interrupt_flag"

	// RunLockDir marks a topic directory as being processed
	RunLockDir = ".run.lock"
)

// Interrupt Flag Values
const (
	InterruptStop    = "stop"
	InterruptRunning = "running"
)

// YouTube Constants
const (
	// YouTubeCategoryID for Entertainment
	YouTubeCategoryID = "24"

	// YouTubePrivacyStatus sets video visibility; publishAt needs private
	YouTubePrivacyStatus = "private"

	// DefaultUploadsPerDay for scheduled uploads
	DefaultUploadsPerDay = 1
)

// State Constants
const (
	// MaxLogEntries bounds the in-memory log ring
	MaxLogEntries = 200

	// MaxTitleLength is the maximum character length for video titles
	MaxTitleLength = 100
)
