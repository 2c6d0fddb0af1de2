package ffmpeg

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/media"
)

// FrameSource decodes single frames from a local file
type FrameSource interface {
	ExtractFrame(ctx context.Context, input string, t float64) (image.Image, error)
}

// FramePlayer is a media element backed by ffmpeg frame extraction. Playback
// time follows the wall clock; frames are decoded on demand and reused until
// the clock moves a frame interval away.
type FramePlayer struct {
	frames FrameSource
	local  Localizer
	logger zerolog.Logger
	step   float64
	now    func() time.Time

	mu      sync.Mutex
	src     string
	path    string
	gen     uint64
	base    float64
	started time.Time
	playing bool

	frame   image.Image
	frameAt float64
	frameOf uint64
}

// NewFramePlayer creates a player decoding at most fps frames per second
func NewFramePlayer(frames FrameSource, local Localizer, fps float64, logger zerolog.Logger) *FramePlayer {
	if fps <= 0 {
		fps = 30
	}
	return &FramePlayer{
		frames: frames,
		local:  local,
		logger: logger.With().Str("component", "player").Logger(),
		step:   1 / fps,
		now:    time.Now,
	}
}

// Source returns the loaded source reference
func (p *FramePlayer) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

// Load swaps the source. A load superseded by a newer one returns media.ErrAborted.
func (p *FramePlayer) Load(ctx context.Context, src string) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.src = src
	p.path = ""
	p.frame = nil
	p.playing = false
	p.base = 0
	p.mu.Unlock()

	path, err := p.local.Localize(ctx, src)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return media.ErrAborted
	}
	if err != nil {
		return err
	}
	p.path = path
	return nil
}

// Seek moves the media clock to t seconds
func (p *FramePlayer) Seek(ctx context.Context, t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "" {
		return errors.New("no source loaded")
	}
	p.base = math.Max(t, 0)
	p.started = p.now()
	return nil
}

// Play starts the media clock
func (p *FramePlayer) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "" {
		return errors.New("no source loaded")
	}
	if !p.playing {
		p.started = p.now()
		p.playing = true
	}
	return nil
}

// Pause freezes the media clock
func (p *FramePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.currentLocked()
	p.playing = false
}

func (p *FramePlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.playing
}

// CurrentTime is the media clock in source seconds
func (p *FramePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

func (p *FramePlayer) currentLocked() float64 {
	if !p.playing {
		return p.base
	}
	return p.base + p.now().Sub(p.started).Seconds()
}

// Frame returns the frame at the current media time
func (p *FramePlayer) Frame(ctx context.Context) (image.Image, error) {
	p.mu.Lock()
	gen, path, t := p.gen, p.path, p.currentLocked()
	if p.frame != nil && p.frameOf == gen && math.Abs(t-p.frameAt) < p.step {
		img := p.frame
		p.mu.Unlock()
		return img, nil
	}
	p.mu.Unlock()

	if path == "" {
		return nil, errors.New("no source loaded")
	}

	img, err := p.frames.ExtractFrame(ctx, path, t)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return nil, media.ErrAborted
	}
	if err != nil {
		return nil, err
	}
	p.frame, p.frameAt, p.frameOf = img, t, gen
	return img, nil
}
