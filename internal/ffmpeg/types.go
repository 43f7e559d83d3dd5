package ffmpeg

import "time"

// MediaInfo contains metadata about a media file (video, audio or still image)
type MediaInfo struct {
	FilePath      string
	FormatName    string
	Duration      time.Duration
	VideoDuration time.Duration // first video stream only
	Width         int
	Height        int
	FPS           float64
	Bitrate       int64
	VideoCodec    string
	HasVideo      bool
	HasAudio      bool
	AudioCodec    string
	AudioBitrate  int64
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	OutTime time.Duration
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Default encoding settings for rendered shorts
const (
	DefaultCRF          = 23
	DefaultPreset       = "medium"
	DefaultVideoCodec   = "libx264"
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "192k"
	DefaultPixelFormat  = "yuv420p"
	DefaultFPS          = 30
)

// Input is a single ffmpeg input with its per-input options.
// Seek and Duration are applied as input options (-ss/-t before -i).
type Input struct {
	Path     string
	Seek     time.Duration
	Duration time.Duration
	Loop     bool // -loop 1, for still images
	Args     []string
}

// EncodeOptions describes a complete multi-input encode driven by a filter graph
type EncodeOptions struct {
	Inputs        []Input
	FilterComplex string
	Maps          []string
	Output        string
	VideoCodec    string
	AudioCodec    string
	AudioBitrate  string
	PixelFormat   string
	Preset        string
	CRF           int
	FPS           int
	Duration      time.Duration
	CustomArgs    []string
	ProgressFunc  ProgressFunc
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)
