package export

import (
	"fmt"
	"math"
	"strconv"

	"github.com/keagan/tabreel/internal/ffmpeg"
	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/timeline"
	"github.com/keagan/tabreel/internal/transition"
	"github.com/keagan/tabreel/pkg/util"
)

const (
	backgroundFile = "background.png"
	maskFile       = "mask.png"
	outputBase     = "output"
)

// Segment is the part of one clip that falls inside the export window
type Segment struct {
	Clip        timeline.Clip
	SourceStart float64
	SourceEnd   float64
	// FadeStart is relative to the segment start; FadeDuration 0 means no fade
	FadeStart    float64
	FadeDuration float64
}

func (s Segment) Duration() float64 {
	return s.SourceEnd - s.SourceStart
}

// Segments cuts the clips, in timeline order, to the export window. Gaps
// between clips are dropped so the segments play back to back.
func Segments(state timeline.EditorState) ([]Segment, float64, error) {
	start, end, err := state.ExportRange()
	if err != nil {
		return nil, 0, err
	}

	var segs []Segment
	var total float64
	for _, c := range state.TimelineOrder() {
		visStart := math.Max(c.TimelinePosition, start)
		visEnd := math.Min(c.End(), end)
		if visEnd-visStart <= 1e-6 {
			continue
		}
		seg := Segment{
			Clip:        c,
			SourceStart: c.SourceTrimStart + (visStart - c.TimelinePosition),
			SourceEnd:   c.SourceTrimStart + (visEnd - c.TimelinePosition),
		}
		// the closing transition only renders when the clip's real end is exported
		if c.End() <= end+1e-9 {
			seg.FadeStart, seg.FadeDuration = closingFade(state.Transition(), state.TransitionDuration(), seg.Duration())
		}
		segs = append(segs, seg)
		total += seg.Duration()
	}
	if len(segs) == 0 {
		return nil, 0, fmt.Errorf("%w: no clip inside the export window", ErrNoClips)
	}
	return segs, total, nil
}

// closingFade maps alpha transitions to an alpha fade. Fade goes 1 to 0 over
// the whole window; dissolve reaches 0 two thirds of the way in.
func closingFade(kind transition.Kind, td, segDur float64) (start, duration float64) {
	switch kind {
	case transition.Fade:
		duration = td
	case transition.Dissolve:
		duration = td / 1.5
	default:
		return 0, 0
	}
	start = math.Max(segDur-td, 0)
	return start, math.Min(duration, segDur-start)
}

// Input is one -i entry of the transcoder command
type Input struct {
	Name string
	Ref  string   // source reference fetched into Name, empty for generated assets
	Args []string // input options placed before -i
}

// Plan is the full transcoder invocation for one export
type Plan struct {
	Segments []Segment
	Layout   geometry.Export
	Inputs   []Input
	Filter   string
	Output   string
	Duration float64
	Audio    bool
	Args     []string
}

// BuildPlan lays out the canvas from the first segment's probed dimensions and
// builds the filter graph: every segment is trimmed, fitted to the primary
// size, alpha-merged with the rounded mask, concatenated, overlaid on the
// background at the padding offset and scaled to the output resolution.
func BuildPlan(segs []Segment, infos []media.Info, padding float64, opts Options) (*Plan, error) {
	if len(segs) == 0 {
		return nil, ErrNoClips
	}
	if len(infos) != len(segs) {
		return nil, fmt.Errorf("have %d probe results for %d segments", len(infos), len(segs))
	}
	primary := infos[0]
	if primary.Width <= 0 || primary.Height <= 0 {
		return nil, fmt.Errorf("primary clip has no dimensions")
	}

	out := opts.Quality.Resolution()
	layout := geometry.ExportLayout(
		geometry.Size{W: float64(primary.Width), H: float64(primary.Height)},
		int(math.Round(padding)),
		out,
	)
	cw, ch := int(layout.Content.W), int(layout.Content.H)

	n := len(segs)
	bgIdx, maskIdx := n, n+1
	audio := opts.Format != GIF
	for _, info := range infos {
		audio = audio && info.HasAudio
	}

	p := &Plan{
		Segments: segs,
		Layout:   layout,
		Output:   outputBase + "." + string(opts.Format),
		Audio:    audio,
	}
	for i, s := range segs {
		p.Inputs = append(p.Inputs, Input{Name: inputName(i, s.Clip.SourceRef), Ref: s.Clip.SourceRef})
		p.Duration += s.Duration()
	}
	p.Inputs = append(p.Inputs,
		Input{Name: backgroundFile, Args: []string{"-loop", "1", "-framerate", strconv.Itoa(opts.FPS)}},
		Input{Name: maskFile},
	)

	g := ffmpeg.NewFilterGraph()

	maskLabels := make([]string, n)
	for i := range maskLabels {
		maskLabels[i] = fmt.Sprintf("m%d", i)
	}
	maskChain := ffmpeg.NewFilterBuilder().Format("rgba").Custom("alphaextract")
	if n > 1 {
		maskChain.Custom(fmt.Sprintf("split=%d", n))
	}
	g.Chain([]string{ffmpeg.Stream(maskIdx, "v")}, maskChain, maskLabels...)

	var concatIn []string
	for i, s := range segs {
		clip := fmt.Sprintf("s%d", i)
		rounded := fmt.Sprintf("r%d", i)

		g.Chain([]string{ffmpeg.Stream(i, "v")}, ffmpeg.NewFilterBuilder().
			Trim(s.SourceStart, s.SourceEnd).
			FitInside(cw, ch).
			SquarePixels().
			FPS(opts.FPS).
			Format("rgba"), clip)

		g.Chain([]string{clip, maskLabels[i]}, ffmpeg.NewFilterBuilder().
			Custom("alphamerge").
			FadeOutAlpha(s.FadeStart, s.FadeDuration), rounded)

		concatIn = append(concatIn, rounded)
		if audio {
			a := fmt.Sprintf("a%d", i)
			g.Chain([]string{ffmpeg.Stream(i, "a")}, ffmpeg.NewFilterBuilder().ATrim(s.SourceStart, s.SourceEnd), a)
			concatIn = append(concatIn, a)
		}
	}

	content, audioOut := "r0", "a0"
	if n > 1 {
		outs := []string{"content"}
		if audio {
			outs = append(outs, "aout")
		}
		g.Chain(concatIn, ffmpeg.NewFilterBuilder().
			Custom(fmt.Sprintf("concat=n=%d:v=1:a=%d", n, boolInt(audio))), outs...)
		content, audioOut = "content", "aout"
	}

	g.Chain([]string{ffmpeg.Stream(bgIdx, "v"), content}, ffmpeg.NewFilterBuilder().
		Custom(fmt.Sprintf("overlay=%d:%d:shortest=1", layout.OffsetX, layout.OffsetY)).
		Scale(int(out.W), int(out.H)).
		SquarePixels(), "out")

	p.Filter = g.Build()

	var args []string
	for _, in := range p.Inputs {
		args = append(args, in.Args...)
		args = append(args, "-i", in.Name)
	}
	args = append(args, "-filter_complex", p.Filter, "-map", "[out]")
	if audio {
		args = append(args, "-map", "["+audioOut+"]")
	} else {
		args = append(args, "-an")
	}
	args = append(args, encodeArgs(opts, audio)...)
	args = append(args, "-t", ffmpeg.Seconds(p.Duration), p.Output)
	p.Args = args

	return p, nil
}

// encodeArgs returns the per-format encoder settings
func encodeArgs(opts Options, audio bool) []string {
	switch opts.Format {
	case GIF:
		return []string{"-r", strconv.Itoa(min(opts.FPS, ffmpeg.MaxGIFRate)), "-loop", "0"}
	case WebM:
		args := []string{
			"-c:v", ffmpeg.VideoCodecWebM,
			"-deadline", "realtime",
			"-cpu-used", "8",
			"-b:v", "4M",
			"-pix_fmt", ffmpeg.PixelFormat,
			"-r", strconv.Itoa(opts.FPS),
		}
		if audio {
			args = append(args, "-c:a", ffmpeg.AudioCodecWebM)
		}
		return args
	default:
		args := []string{
			"-c:v", ffmpeg.VideoCodecMP4,
			"-preset", ffmpeg.FastPreset,
			"-pix_fmt", ffmpeg.PixelFormat,
			"-movflags", "+faststart",
			"-r", strconv.Itoa(opts.FPS),
		}
		if audio {
			args = append(args, "-c:a", ffmpeg.AudioCodecMP4)
		}
		return args
	}
}

func inputName(i int, ref string) string {
	ext := util.GetExtension(ref)
	if ext == "" || len(ext) > 4 {
		ext = "webm"
	}
	return fmt.Sprintf("input-%d.%s", i, ext)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
