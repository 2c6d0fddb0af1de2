// Package export composes an editor state into a single transcoder run and
// packages the result as a downloadable artifact.
package export

import (
	"errors"
	"fmt"

	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/timeline"
)

// Format is the output container
type Format string

const (
	MP4  Format = "mp4"
	WebM Format = "webm"
	GIF  Format = "gif"
)

// MIMEType returns the artifact content type
func (f Format) MIMEType() string {
	switch f {
	case MP4:
		return "video/mp4"
	case WebM:
		return "video/webm"
	case GIF:
		return "image/gif"
	}
	return "application/octet-stream"
}

// Quality selects the output resolution
type Quality string

const (
	Low    Quality = "low"
	Medium Quality = "medium"
	High   Quality = "high"
)

// Resolution is the fixed output size for the quality
func (q Quality) Resolution() geometry.Size {
	switch q {
	case Low:
		return geometry.Size{W: 640, H: 360}
	case Medium:
		return geometry.Size{W: 1280, H: 720}
	default:
		return geometry.Size{W: 1920, H: 1080}
	}
}

// Options configures one export
type Options struct {
	Format  Format  `json:"format" yaml:"format"`
	Quality Quality `json:"quality" yaml:"quality"`
	FPS     int     `json:"fps" yaml:"fps"`
}

// DefaultOptions is mp4 at 1080p, 30 fps
func DefaultOptions() Options {
	return Options{Format: MP4, Quality: High, FPS: 30}
}

func (o Options) validate() error {
	switch o.Format {
	case MP4, WebM, GIF:
	default:
		return fmt.Errorf("%w: format %q", ErrInvalidOptions, o.Format)
	}
	switch o.Quality {
	case Low, Medium, High:
	default:
		return fmt.Errorf("%w: quality %q", ErrInvalidOptions, o.Quality)
	}
	if o.FPS < 1 || o.FPS > 60 {
		return fmt.Errorf("%w: fps %d", ErrInvalidOptions, o.FPS)
	}
	return nil
}

var (
	// ErrNoClips is the validation condition for exporting an empty timeline
	ErrNoClips = timeline.ErrEmptyTimeline
	// ErrInvalidOptions rejects unknown formats, qualities or frame rates
	ErrInvalidOptions = fmt.Errorf("%w: invalid export options", timeline.ErrValidation)
	// ErrExportInProgress rejects a second export while one is running
	ErrExportInProgress = errors.New("export already in progress")
)

// ResourceError is a failed collaborator call during an export
type ResourceError struct {
	Stage string
	Err   error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("export failed at %s: %v", e.Stage, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

func resourceErr(stage string, err error) error {
	return &ResourceError{Stage: stage, Err: err}
}

// Artifact is a finished export
type Artifact struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Sink receives progress percentages and transcoder log lines
type Sink interface {
	Progress(percent int)
	Log(line string)
}

// SinkFuncs adapts plain functions to a Sink; nil fields are ignored
type SinkFuncs struct {
	OnProgress func(percent int)
	OnLog      func(line string)
}

func (s SinkFuncs) Progress(percent int) {
	if s.OnProgress != nil {
		s.OnProgress(percent)
	}
}

func (s SinkFuncs) Log(line string) {
	if s.OnLog != nil {
		s.OnLog(line)
	}
}
