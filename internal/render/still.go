package render

import (
	"context"
	"image"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/timeline"
)

// StillRenderer renders single frames on request through one shared media
// element. Calls are serialised.
type StillRenderer struct {
	logger zerolog.Logger
	el     MediaElement

	mu sync.Mutex
}

func NewStillRenderer(logger zerolog.Logger, el MediaElement) *StillRenderer {
	return &StillRenderer{logger: logger, el: el}
}

// Render draws state at playhead t into a pane of the given size
func (s *StillRenderer) Render(ctx context.Context, state timeline.EditorState, t float64, pane geometry.Size) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := New(ctx, s.logger, s.el, manualFrames{}, pane)
	r.SetState(state)
	r.Seek(t)
	return r.Tick(ctx)
}

// manualFrames never delivers scheduled frames; the caller ticks directly
type manualFrames struct{}

func (manualFrames) RequestFrame(func()) {}
