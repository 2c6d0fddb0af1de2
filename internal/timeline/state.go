// Package timeline is the editor's data model. EditorState is an immutable value:
// every operation returns a new state, and a rejected operation returns the input
// state unchanged together with a *ValidationError.
package timeline

import (
	"math"
	"sort"

	"github.com/keagan/tabreel/internal/transition"
)

const (
	MaxPadding            = 500
	MaxBorderRadius       = 100
	MinTransitionDuration = 0.1
	MaxTransitionDuration = 5

	DefaultBackgroundColor    = "#1a1a1a"
	DefaultTransitionDuration = 0.5

	epsilon = 1e-9
)

// EditorState is the authoritative timeline value for one editor session
type EditorState struct {
	windowStart float64
	windowEnd   float64
	windowSet   bool

	clips   []Clip
	sources []Source

	background         Background
	padding            float64
	borderRadius       float64
	transition         transition.Kind
	transitionDuration float64

	placed int // clips ever placed, drives palette rotation
}

// New returns an empty editor state with default styling
func New() EditorState {
	return EditorState{
		background:         Solid{Color: DefaultBackgroundColor},
		transition:         transition.None,
		transitionDuration: DefaultTransitionDuration,
	}
}

// Clips returns the clips in insertion order
func (s EditorState) Clips() []Clip {
	out := make([]Clip, len(s.clips))
	copy(out, s.clips)
	return out
}

// ClipCount returns the number of placed clips
func (s EditorState) ClipCount() int {
	return len(s.clips)
}

// Clip looks up a clip by id
func (s EditorState) Clip(id string) (Clip, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.clips[i], true
	}
	return Clip{}, false
}

// TimelineOrder returns the clips sorted by timeline position, ties kept in insertion order
func (s EditorState) TimelineOrder() []Clip {
	out := s.Clips()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimelinePosition < out[j].TimelinePosition
	})
	return out
}

// Sources returns the imported sources
func (s EditorState) Sources() []Source {
	out := make([]Source, len(s.sources))
	copy(out, s.sources)
	return out
}

func (s EditorState) Background() Background {
	if g, ok := s.background.(Gradient); ok {
		g.Stops = append([]Stop(nil), g.Stops...)
		return g
	}
	return s.background
}

func (s EditorState) Padding() float64 { return s.padding }

func (s EditorState) BorderRadius() float64 { return s.borderRadius }

func (s EditorState) Transition() transition.Kind { return s.transition }

func (s EditorState) TransitionDuration() float64 { return s.transitionDuration }

// ClipWindow returns the export range. Until a window is set it spans the
// whole timeline.
func (s EditorState) ClipWindow() (start, end float64) {
	if !s.windowSet {
		return 0, s.TimelineDuration()
	}
	return s.windowStart, s.windowEnd
}

// HasClipWindow reports whether a window has been set
func (s EditorState) HasClipWindow() bool { return s.windowSet }

// TimelineDuration is the end of the furthest clip
func (s EditorState) TimelineDuration() float64 {
	var end float64
	for _, c := range s.clips {
		end = math.Max(end, c.End())
	}
	return end
}

// ExportRange is the clip window clamped to the composed timeline. An unset
// window covers the whole timeline.
func (s EditorState) ExportRange() (start, end float64, err error) {
	total := s.TimelineDuration()
	if len(s.clips) == 0 || total <= 0 {
		return 0, 0, invalid("exportRange", "clips", ErrEmptyTimeline)
	}
	start, end = 0, total
	if s.HasClipWindow() {
		start = math.Max(s.windowStart, 0)
		end = math.Min(s.windowEnd, total)
	}
	if end-start <= epsilon {
		return 0, 0, invalid("exportRange", "window", ErrInvalidWindow)
	}
	return start, end, nil
}

func (s EditorState) indexOf(id string) int {
	for i, c := range s.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// channelEnd is where the next appended clip on ch starts: the end of the
// last clip added to ch, or the end of the channel when a clip moved there
// would overlap it.
func (s EditorState) channelEnd(ch string, dur float64) float64 {
	pos, last := 0.0, 0.0
	for _, c := range s.clips {
		if c.Channel != ch {
			continue
		}
		last = math.Max(last, c.End())
		pos = c.End()
	}
	next := Clip{TimelinePosition: pos, SourceTrimEnd: dur, Channel: ch}
	for _, c := range s.clips {
		if c.Channel == ch && overlaps(next, c) {
			return last
		}
	}
	return pos
}

func (s EditorState) withClips(clips []Clip) EditorState {
	s.clips = clips
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
