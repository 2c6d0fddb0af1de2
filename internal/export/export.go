package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/ffmpeg"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/raster"
	"github.com/keagan/tabreel/internal/timeline"
	"github.com/keagan/tabreel/internal/transition"
	"github.com/keagan/tabreel/pkg/util"
)

// Transcoder is the process-wide ffmpeg resource. Its files live in a private
// namespace addressed by bare names.
type Transcoder interface {
	Load(ctx context.Context) error
	Run(ctx context.Context, opts ffmpeg.RunOptions) error
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	DeleteFile(name string) error
}

// Exporter runs one export at a time
type Exporter struct {
	transcoder Transcoder
	prober     media.Prober
	fetcher    media.Fetcher
	logger     zerolog.Logger
	now        func() time.Time

	busy atomic.Bool
}

// New creates an exporter over the given collaborators
func New(logger zerolog.Logger, transcoder Transcoder, prober media.Prober, fetcher media.Fetcher) *Exporter {
	return &Exporter{
		transcoder: transcoder,
		prober:     prober,
		fetcher:    fetcher,
		logger:     logger.With().Str("component", "export").Logger(),
		now:        time.Now,
	}
}

// Busy reports whether an export is running
func (e *Exporter) Busy() bool {
	return e.busy.Load()
}

// Export composes state into a single file. A second call while one is running
// fails with ErrExportInProgress. On any failure no artifact is returned.
func (e *Exporter) Export(ctx context.Context, state timeline.EditorState, opts Options, sink Sink) (*Artifact, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer e.busy.Store(false)

	if sink == nil {
		sink = SinkFuncs{}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if state.ClipCount() == 0 {
		return nil, ErrNoClips
	}

	segs, _, err := Segments(state)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e.logger.Info().
		Int("clips", len(segs)).
		Str("format", string(opts.Format)).
		Str("quality", string(opts.Quality)).
		Int("fps", opts.FPS).
		Msg("starting export")

	switch kind := state.Transition(); kind {
	case transition.None, transition.Fade, transition.Dissolve:
	default:
		e.logger.Info().Str("transition", string(kind)).Msg("transition is preview-only, exporting hard cuts")
	}

	infos, err := e.probe(ctx, segs)
	if err != nil {
		return nil, err
	}

	plan, err := BuildPlan(segs, infos, state.Padding(), opts)
	if err != nil {
		return nil, resourceErr("plan", err)
	}
	e.logger.Debug().
		Int("canvas_w", plan.Layout.CanvasW()).
		Int("canvas_h", plan.Layout.CanvasH()).
		Int("offset_x", plan.Layout.OffsetX).
		Int("offset_y", plan.Layout.OffsetY).
		Bool("audio", plan.Audio).
		Str("filter", plan.Filter).
		Msg("export plan")

	assets, err := e.assets(state, plan)
	if err != nil {
		return nil, resourceErr("assets", err)
	}

	if err := e.transcoder.Load(ctx); err != nil {
		return nil, resourceErr("load", err)
	}

	var written []string
	defer func() { e.cleanup(written) }()

	fetched := make(map[string][]byte)
	for _, in := range plan.Inputs {
		data, ok := assets[in.Name]
		if !ok {
			data, ok = fetched[in.Ref]
		}
		if !ok {
			data, err = e.fetcher.Fetch(ctx, in.Ref)
			if err != nil {
				return nil, resourceErr("fetch", fmt.Errorf("%s: %w", in.Ref, err))
			}
			fetched[in.Ref] = data
		}
		if err := e.transcoder.WriteFile(in.Name, data); err != nil {
			return nil, resourceErr("write", fmt.Errorf("%s: %w", in.Name, err))
		}
		written = append(written, in.Name)
	}

	progress := newProgress(sink)
	progress.report(0)

	written = append(written, plan.Output)
	err = e.transcoder.Run(ctx, ffmpeg.RunOptions{
		Args:     plan.Args,
		Duration: util.Seconds(plan.Duration),
		ProgressHandler: func(p *ffmpeg.Progress) {
			progress.report(p.Ratio)
		},
		LogHandler: func(line string) {
			sink.Log(line)
			e.logger.Debug().Str("line", line).Msg("ffmpeg")
		},
	})
	if err != nil {
		return nil, resourceErr("exec", err)
	}

	data, err := e.transcoder.ReadFile(plan.Output)
	if err != nil {
		return nil, resourceErr("read", err)
	}
	if len(data) == 0 {
		return nil, resourceErr("read", errors.New("transcoder produced an empty file"))
	}
	progress.report(1)

	artifact := &Artifact{
		Data:     data,
		MIMEType: opts.Format.MIMEType(),
		Filename: fmt.Sprintf("video-%s.%s", e.now().Format("2006-01-02T15-04-05"), opts.Format),
	}
	e.logger.Info().
		Str("file", artifact.Filename).
		Int("bytes", len(data)).
		Dur("took", time.Since(start)).
		Msg("export complete")
	return artifact, nil
}

// probe reads every segment's source once, falling back to the dimensions
// recorded on the clip when the prober reports none
func (e *Exporter) probe(ctx context.Context, segs []Segment) ([]media.Info, error) {
	cache := make(map[string]media.Info)
	infos := make([]media.Info, len(segs))
	for i, s := range segs {
		ref := s.Clip.SourceRef
		info, ok := cache[ref]
		if !ok {
			var err error
			info, err = e.prober.Probe(ctx, ref)
			if err != nil {
				return nil, resourceErr("probe", fmt.Errorf("%s: %w", ref, err))
			}
			cache[ref] = info
		}
		if info.Width <= 0 || info.Height <= 0 {
			info.Width, info.Height = s.Clip.Width, s.Clip.Height
		}
		infos[i] = info
	}
	return infos, nil
}

// assets renders the background at canvas size and the rounded mask at content size
func (e *Exporter) assets(state timeline.EditorState, plan *Plan) (map[string][]byte, error) {
	bg, err := raster.BackgroundPNG(state.Background(), plan.Layout.CanvasW(), plan.Layout.CanvasH())
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	mask, err := raster.MaskPNG(int(plan.Layout.Content.W), int(plan.Layout.Content.H), state.BorderRadius())
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	return map[string][]byte{backgroundFile: bg, maskFile: mask}, nil
}

func (e *Exporter) cleanup(names []string) {
	for _, name := range names {
		if err := e.transcoder.DeleteFile(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn().Err(err).Str("file", name).Msg("failed to delete export file")
		}
	}
}

// progressReporter turns ratios into non-decreasing integer percentages
type progressReporter struct {
	sink Sink
	last int
}

func newProgress(sink Sink) *progressReporter {
	return &progressReporter{sink: sink, last: -1}
}

func (p *progressReporter) report(ratio float64) {
	if math.IsNaN(ratio) {
		return
	}
	pct := int(math.Round(math.Max(0, math.Min(ratio, 1)) * 100))
	if pct <= p.last {
		return
	}
	p.last = pct
	p.sink.Progress(pct)
}
