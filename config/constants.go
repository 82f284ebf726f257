package config

import "time"

// Slide Canvas Constants
const (
	// CanvasWidth is the composed slide and output video width
	CanvasWidth = 1920

	// CanvasHeight is the composed slide and output video height
	CanvasHeight = 1080

	// ImagePanelRatio is the share of the canvas width given to the background image
	ImagePanelRatio = 0.6
)

// Video Output Constants
const (
	// VideoFPS is the fixed output frame rate
	VideoFPS = 24

	// VideoCodec is the video encoding codec
	VideoCodec = "libx264"

	// AudioCodec is the audio encoding codec
	AudioCodec = "aac"

	// AudioBitrate is the narration track bitrate
	AudioBitrate = "192k"

	// AudioSampleRate is the rate every narration track is resampled to before concat
	AudioSampleRate = 44100

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "ultrafast"

	// EncodeThreads caps the encoder thread count
	EncodeThreads = 4

	// PixelFormat keeps the output playable in browsers and QuickTime
	PixelFormat = "yuv420p"

	// FadeInSeconds is the fade-in applied at the start of every clip
	FadeInSeconds = 0.5
)

// Image Sourcing Constants
const (
	// PexelsSearchTimeout bounds the search API call
	PexelsSearchTimeout = 10 * time.Second

	// PexelsDownloadTimeout bounds the photo download
	PexelsDownloadTimeout = 15 * time.Second

	// CatalogDownloadTimeout bounds the keyword catalog photo download
	CatalogDownloadTimeout = 10 * time.Second

	// PlaceholderTimeout bounds the placeholder service fetch
	PlaceholderTimeout = 5 * time.Second

	// PlaceholderSeedJitter is the upper bound of the random seed offset
	PlaceholderSeedJitter = 1000
)

// Narration Constants
const (
	// DefaultVoice is the standard/formal female narrator
	DefaultVoice = "ja-JP-NanamiNeural"

	// NarrationAttempts is how many times a TTS call is tried before the slide fails
	NarrationAttempts = 3

	// NarrationWorkers is the number of dedicated synthesis workers
	NarrationWorkers = 2

	// EdgeTTSBinary is the default edge-tts executable
	EdgeTTSBinary = "edge-tts"
)

// Plan Constants
const (
	// MinSlideCount is the smallest plan the planner will request
	MinSlideCount = 1

	// MaxSlideCount is the largest plan the planner will request
	MaxSlideCount = 20

	// DefaultSlideCount is used when a plan request does not specify a count
	DefaultSlideCount = 5
)

// Run Constants
const (
	// DefaultConcurrency processes slides one after another
	DefaultConcurrency = 1

	// MaxRetainedRuns limits how many finished runs keep their slide cache in memory
	MaxRetainedRuns = 8

	// MaxRunLogs is the size of the per-run log ring
	MaxRunLogs = 50

	// RunStatusTTL is how long run snapshots live in redis
	RunStatusTTL = 24 * time.Hour
)

// Directory Constants
const (
	// WorkspaceDir is the root for per-run intermediate files
	WorkspaceDir = "temp_assets"

	// OutputDir is the directory for rendered videos
	OutputDir = "output"

	// ConfigFile is the optional YAML config read at startup
	ConfigFile = "slidestudio.yaml"
)

// Publishing Constants
const (
	// YouTubeCategoryID for Education
	YouTubeCategoryID = "27"

	// YouTubePrivacyStatus sets default video visibility
	YouTubePrivacyStatus = "unlisted"

	// MaxTitleLength is the maximum character length for published titles
	MaxTitleLength = 100
)

// DefaultFontCandidates is probed in order when no font list is configured.
var DefaultFontCandidates = []string{
	// Linux
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/fonts-japanese-gothic.ttf",
	// Windows
	"meiryo.ttc",
	"msgothic.ttc",
	"yugothb.ttc",
	"YuGothB.ttc",
	"arial.ttf",
}
