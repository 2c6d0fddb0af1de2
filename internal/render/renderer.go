package render

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/raster"
	"github.com/keagan/tabreel/internal/timeline"
	"github.com/keagan/tabreel/internal/transition"
)

// MediaElement plays one source at a time
type MediaElement interface {
	Source() string
	Load(ctx context.Context, src string) error
	Seek(ctx context.Context, t float64) error
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	CurrentTime() float64
	Frame(ctx context.Context) (image.Image, error)
}

// Phase is the renderer state as seen by callers
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReady
	PhasePlaying
	PhasePaused
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	default:
		return "idle"
	}
}

// seekTolerance is how far the media clock may drift from the playhead before
// a paused tick re-seeks
const seekTolerance = 1.0 / 120

// FrameFunc receives every rendered canvas with the playhead it shows
type FrameFunc func(img *image.RGBA, playhead float64)

// Renderer draws the preview on demand. Ticks are serialised; while the media
// element plays each tick schedules the next one.
type Renderer struct {
	logger zerolog.Logger
	media  MediaElement
	comp   *raster.Compositor
	sched  *Scheduler
	ctx    context.Context

	mu       sync.Mutex
	state    timeline.EditorState
	pane     geometry.Size
	playhead float64
	settled  bool
	frame    image.Image
	canvas   *image.RGBA

	subMu sync.Mutex
	subs  []FrameFunc
}

// New creates a renderer drawing into a pane of the given size. ctx bounds
// media calls made from scheduled ticks.
func New(ctx context.Context, logger zerolog.Logger, el MediaElement, driver FrameDriver, pane geometry.Size) *Renderer {
	r := &Renderer{
		logger: logger.With().Str("component", "render").Logger(),
		media:  el,
		comp:   raster.NewCompositor(),
		ctx:    ctx,
		state:  timeline.New(),
		pane:   pane,
	}
	r.sched = NewScheduler(driver, func() {
		if _, err := r.Tick(r.ctx); err != nil {
			r.logger.Warn().Err(err).Msg("preview frame failed")
		}
	})
	return r
}

// OnFrame subscribes fn to rendered canvases
func (r *Renderer) OnFrame(fn FrameFunc) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subs = append(r.subs, fn)
}

// Close stops scheduling frames
func (r *Renderer) Close() {
	r.sched.Stop()
	r.media.Pause()
}

// SetState hands the renderer a new model snapshot
func (r *Renderer) SetState(s timeline.EditorState) {
	r.mu.Lock()
	r.state = s
	r.playhead = math.Min(r.playhead, s.TimelineDuration())
	r.settled = false
	r.mu.Unlock()
	r.sched.Request()
}

// Seek moves the playhead, clamped to the timeline
func (r *Renderer) Seek(t float64) {
	r.mu.Lock()
	r.playhead = math.Max(0, math.Min(t, r.state.TimelineDuration()))
	r.settled = false
	r.mu.Unlock()
	r.sched.Request()
}

// Resize changes the pane the preview is drawn into
func (r *Renderer) Resize(pane geometry.Size) {
	r.mu.Lock()
	r.pane = pane
	r.mu.Unlock()
	r.sched.Request()
}

// MediaReady is called when the element has new data to show
func (r *Renderer) MediaReady() {
	r.sched.Request()
}

// Play starts playback from the playhead. Playing at the end of the timeline
// restarts from the beginning.
func (r *Renderer) Play(ctx context.Context) error {
	if err := r.play(ctx); err != nil {
		return err
	}
	r.sched.Request()
	return nil
}

func (r *Renderer) play(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.ClipCount() == 0 {
		return nil
	}
	if r.playhead >= r.state.TimelineDuration() {
		r.playhead = 0
	}
	act, ok := r.activeLocked()
	if !ok {
		next, found := r.state.NextAfter(r.playhead)
		if !found {
			return nil
		}
		r.playhead = next.TimelinePosition
		act, _ = r.activeLocked()
	}
	if err := r.ensureSource(ctx, act, true); err != nil {
		return err
	}
	if err := r.media.Play(ctx); err != nil && !errors.Is(err, media.ErrAborted) {
		return err
	}
	r.settled = true
	return nil
}

// Pause stops playback at the current playhead
func (r *Renderer) Pause() {
	r.mu.Lock()
	r.media.Pause()
	r.mu.Unlock()
	r.sched.Request()
}

// Playhead returns the current timeline time
func (r *Renderer) Playhead() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playhead
}

// Phase derives the renderer phase from the model and the media element
func (r *Renderer) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.state.ClipCount() == 0:
		return PhaseIdle
	case !r.media.Paused():
		return PhasePlaying
	case r.settled && r.media.Source() != "":
		return PhasePaused
	default:
		return PhaseReady
	}
}

// Canvas returns the last rendered canvas, nil before the first tick
func (r *Renderer) Canvas() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas
}

// Tick renders one frame now. Media failures are logged and the previous
// frame is kept; only canvas failures are returned.
func (r *Renderer) Tick(ctx context.Context) (*image.RGBA, error) {
	r.mu.Lock()
	canvas, playhead, err := r.tickLocked(ctx)
	playing := !r.media.Paused()
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	r.notify(canvas, playhead)
	if playing {
		r.sched.Request()
	}
	return canvas, nil
}

func (r *Renderer) tickLocked(ctx context.Context) (*image.RGBA, float64, error) {
	state := r.state
	w, h := int(math.Round(r.pane.W)), int(math.Round(r.pane.H))

	canvas, err := r.comp.Canvas(state.Background(), w, h)
	if err != nil {
		return nil, r.playhead, err
	}
	if state.ClipCount() == 0 {
		r.frame = nil
		r.canvas = canvas
		return canvas, 0, nil
	}

	if !r.media.Paused() {
		r.follow()
	}

	act, ok := r.activeLocked()
	if !ok {
		// gap between clips
		r.canvas = canvas
		return canvas, r.playhead, nil
	}

	if err := r.ensureSource(ctx, act, true); err != nil {
		if !errors.Is(err, media.ErrAborted) {
			r.logger.Warn().Err(err).Str("source", act.Clip.SourceRef).Msg("failed to load media")
		}
	} else if frame, err := r.media.Frame(ctx); err == nil {
		r.frame = frame
		r.settled = true
	} else if !errors.Is(err, media.ErrAborted) {
		r.logger.Warn().Err(err).Float64("t", act.SourceSeekTime).Msg("failed to decode frame")
	}

	if r.frame != nil {
		r.composite(canvas, act.Clip, state)
	}
	r.canvas = canvas
	return canvas, r.playhead, nil
}

// follow moves the playhead with the media clock, advancing to the next clip
// once the current one has played out
func (r *Renderer) follow() {
	act, ok := r.activeLocked()
	if !ok {
		return
	}
	c := act.Clip
	if !r.settled || r.media.Source() != c.SourceRef {
		return
	}
	t := c.TimelinePosition + (r.media.CurrentTime() - c.SourceTrimStart)
	if t < c.End() {
		r.playhead = math.Max(t, c.TimelinePosition)
		return
	}
	if next, found := r.state.NextAfter(c.End()); found && next.ID != c.ID {
		r.playhead = next.TimelinePosition
		r.settled = false
		return
	}
	r.playhead = r.state.TimelineDuration()
	r.media.Pause()
}

// ensureSource makes the media element show act. A source change pauses,
// loads, seeks and resumes when it was playing. With scrub set a paused
// element is re-seeked when it drifted from the playhead.
func (r *Renderer) ensureSource(ctx context.Context, act timeline.Active, scrub bool) error {
	c := act.Clip
	if r.media.Source() != c.SourceRef {
		wasPlaying := !r.media.Paused()
		r.media.Pause()
		if err := r.media.Load(ctx, c.SourceRef); err != nil {
			return err
		}
		if err := r.media.Seek(ctx, act.SourceSeekTime); err != nil {
			return err
		}
		if wasPlaying {
			return r.media.Play(ctx)
		}
		return nil
	}

	playing := !r.media.Paused()
	if playing && !r.settled {
		// seek while playing
		if err := r.media.Seek(ctx, act.SourceSeekTime); err != nil {
			return err
		}
		r.settled = true
		return nil
	}
	if !playing && (scrub || !r.settled) && math.Abs(r.media.CurrentTime()-act.SourceSeekTime) > seekTolerance {
		return r.media.Seek(ctx, act.SourceSeekTime)
	}
	return nil
}

func (r *Renderer) composite(canvas *image.RGBA, c timeline.Clip, state timeline.EditorState) {
	// padding is in source pixels, so lay out at the source size
	frameSize := geometry.Size{W: float64(c.Width), H: float64(c.Height)}
	if frameSize.Empty() {
		b := r.frame.Bounds()
		frameSize = geometry.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	}
	layout := geometry.PreviewLayout(r.pane, frameSize, state.Padding(), state.BorderRadius())

	op := transition.IdentityOp()
	if kind := state.Transition(); kind != transition.None {
		if p, ok := transition.Progress(r.playhead, c.TimelinePosition, c.Duration(), state.TransitionDuration()); ok {
			op = transition.Evaluate(kind, p)
		}
	}
	placed := op.Apply(layout.Frame, layout.Canvas)

	r.comp.Draw(canvas, raster.Layer{
		Frame:  r.frame,
		Box:    placed.Frame,
		Clip:   placed.Clip,
		Radius: layout.Radius,
		Alpha:  placed.Alpha,
	})
}

func (r *Renderer) activeLocked() (timeline.Active, bool) {
	return r.state.ActiveAt(r.playhead)
}

func (r *Renderer) notify(canvas *image.RGBA, playhead float64) {
	r.subMu.Lock()
	subs := append([]FrameFunc(nil), r.subs...)
	r.subMu.Unlock()
	for _, fn := range subs {
		fn(canvas, playhead)
	}
}
