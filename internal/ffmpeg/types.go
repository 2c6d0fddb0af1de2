package ffmpeg

import "time"

// VideoInfo contains metadata about a media file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Progress represents one ffmpeg -progress block
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	OutTime time.Duration
	Speed   string
	// Ratio is OutTime over the expected output duration, clamped to [0,1]
	Ratio float64
	Done  bool
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args []string
	// Duration is the expected output length, used to compute Progress.Ratio
	Duration        time.Duration
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called once per progress block as the operation executes.
type ProgressFunc func(*Progress)

// Encoder settings per export format
const (
	VideoCodecMP4  = "libx264"
	AudioCodecMP4  = "aac"
	VideoCodecWebM = "libvpx"
	AudioCodecWebM = "libvorbis"
	FastPreset     = "ultrafast"
	PixelFormat    = "yuv420p"
	MaxGIFRate     = 10
)
