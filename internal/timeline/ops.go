package timeline

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/keagan/tabreel/internal/transition"
)

// ClipSpec describes a source being placed on the timeline
type ClipSpec struct {
	SourceRef   string
	Width       int
	Height      int
	Duration    float64
	PlacementID string // generated when empty
	Name        string
	Channel     string // DefaultChannel when empty
}

// ClipPatch is a partial clip update; nil fields are left alone
type ClipPatch struct {
	TimelinePosition *float64
	SourceTrimStart  *float64
	SourceTrimEnd    *float64
	DisplayName      *string
	TimelineColor    *string
	Channel          *string
}

// SetClipWindow sets the export range. start is clamped to 0 and end must stay after it.
func (s EditorState) SetClipWindow(start, end float64) (EditorState, error) {
	if !finite(start) || !finite(end) {
		return s, invalid("setClipWindow", "window", ErrInvalidValue)
	}
	start = math.Max(start, 0)
	if end <= start {
		return s, invalid("setClipWindow", "window", ErrInvalidWindow)
	}
	s.windowStart, s.windowEnd, s.windowSet = start, end, true
	return s, nil
}

// SetBackground replaces the background after validating colors, stops and angle
func (s EditorState) SetBackground(bg Background) (EditorState, error) {
	switch b := bg.(type) {
	case Solid:
		if !ValidColor(b.Color) {
			return s, invalid("setBackground", "color", ErrInvalidColor)
		}
		s.background = b
	case Gradient:
		if len(b.Stops) < 2 {
			return s, invalid("setBackground", "stops", ErrInvalidGradient)
		}
		if !finite(b.Angle) || b.Angle < 0 || b.Angle > 360 {
			return s, invalid("setBackground", "angle", ErrInvalidGradient)
		}
		for _, st := range b.Stops {
			if !ValidColor(st.Color) {
				return s, invalid("setBackground", "stops", ErrInvalidColor)
			}
			if !finite(st.Position) || st.Position < 0 || st.Position > 100 {
				return s, invalid("setBackground", "stops", ErrInvalidGradient)
			}
		}
		b.Stops = append([]Stop(nil), b.Stops...)
		s.background = b
	default:
		return s, invalid("setBackground", "background", ErrInvalidValue)
	}
	return s, nil
}

// SetPadding clamps px to [0, MaxPadding]
func (s EditorState) SetPadding(px float64) (EditorState, error) {
	if math.IsNaN(px) {
		return s, invalid("setPadding", "padding", ErrInvalidValue)
	}
	s.padding = clamp(px, 0, MaxPadding)
	return s, nil
}

// SetBorderRadius clamps px to [0, MaxBorderRadius]
func (s EditorState) SetBorderRadius(px float64) (EditorState, error) {
	if math.IsNaN(px) {
		return s, invalid("setBorderRadius", "borderRadius", ErrInvalidValue)
	}
	s.borderRadius = clamp(px, 0, MaxBorderRadius)
	return s, nil
}

func (s EditorState) SetTransition(kind transition.Kind) (EditorState, error) {
	if !transition.Valid(kind) {
		return s, invalid("setTransition", "transition", ErrUnknownTransition)
	}
	s.transition = kind
	return s, nil
}

// SetTransitionDuration clamps seconds to [MinTransitionDuration, MaxTransitionDuration]
func (s EditorState) SetTransitionDuration(seconds float64) (EditorState, error) {
	if math.IsNaN(seconds) {
		return s, invalid("setTransitionDuration", "transitionDuration", ErrInvalidValue)
	}
	s.transitionDuration = clamp(seconds, MinTransitionDuration, MaxTransitionDuration)
	return s, nil
}

// AddClip appends a clip after the last clip on its channel, untrimmed.
// A placement id already on the timeline leaves the state unchanged.
func (s EditorState) AddClip(spec ClipSpec) (EditorState, error) {
	if spec.PlacementID != "" && s.indexOf(spec.PlacementID) >= 0 {
		return s, invalid("addClip", "id", ErrDuplicateClip)
	}
	if strings.TrimSpace(spec.SourceRef) == "" {
		return s, invalid("addClip", "sourceRef", ErrInvalidValue)
	}
	if !finite(spec.Duration) || spec.Duration <= 0 {
		return s, invalid("addClip", "duration", ErrInvalidValue)
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return s, invalid("addClip", "dims", ErrInvalidValue)
	}

	id := spec.PlacementID
	if id == "" {
		id = uuid.NewString()
	}
	channel := spec.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	name := spec.Name
	if name == "" {
		name = spec.SourceRef
	}

	previousEnd := s.TimelineDuration()
	clip := Clip{
		ID:               id,
		SourceRef:        spec.SourceRef,
		TimelinePosition: s.channelEnd(channel, spec.Duration),
		SourceTrimStart:  0,
		SourceTrimEnd:    spec.Duration,
		SourceMinTime:    0,
		SourceMaxTime:    spec.Duration,
		Width:            spec.Width,
		Height:           spec.Height,
		DisplayName:      name,
		TimelineColor:    Palette[s.placed%len(Palette)],
		Channel:          channel,
	}

	clips := make([]Clip, len(s.clips), len(s.clips)+1)
	copy(clips, s.clips)
	next := s.withClips(append(clips, clip))
	next.placed++

	// a window ending at the old timeline end keeps following it; an unset
	// window always spans the timeline
	if s.windowSet && math.Abs(s.windowEnd-previousEnd) < epsilon {
		next.windowEnd = next.TimelineDuration()
	}
	return next, nil
}

// UpdateClip merges a patch into the clip with id and re-checks every clip invariant
func (s EditorState) UpdateClip(id string, patch ClipPatch) (EditorState, error) {
	i := s.indexOf(id)
	if i < 0 {
		return s, invalid("updateClip", "id", ErrClipNotFound)
	}

	c := s.clips[i]
	if patch.TimelinePosition != nil {
		c.TimelinePosition = *patch.TimelinePosition
	}
	if patch.SourceTrimStart != nil {
		c.SourceTrimStart = *patch.SourceTrimStart
	}
	if patch.SourceTrimEnd != nil {
		c.SourceTrimEnd = *patch.SourceTrimEnd
	}
	if patch.DisplayName != nil {
		c.DisplayName = *patch.DisplayName
	}
	if patch.TimelineColor != nil {
		c.TimelineColor = *patch.TimelineColor
	}
	if patch.Channel != nil {
		c.Channel = *patch.Channel
	}

	if err := validateClip("updateClip", c); err != nil {
		return s, err
	}
	for j, other := range s.clips {
		if j != i && other.Channel == c.Channel && overlaps(c, other) {
			return s, invalid("updateClip", "timelinePosition", ErrClipOverlap)
		}
	}

	clips := s.Clips()
	clips[i] = c
	return s.withClips(clips), nil
}

// RemoveClip drops a clip; remaining clips keep their positions
func (s EditorState) RemoveClip(id string) (EditorState, error) {
	i := s.indexOf(id)
	if i < 0 {
		return s, invalid("removeClip", "id", ErrClipNotFound)
	}
	clips := make([]Clip, 0, len(s.clips)-1)
	clips = append(clips, s.clips[:i]...)
	clips = append(clips, s.clips[i+1:]...)
	return s.withClips(clips), nil
}

// AddImportedSource registers a source; a colliding id or name is a no-op
func (s EditorState) AddImportedSource(src Source) (EditorState, error) {
	if src.ID == "" || src.Name == "" {
		return s, invalid("addImportedSource", "id", ErrInvalidValue)
	}
	for _, existing := range s.sources {
		if existing.ID == src.ID || existing.Name == src.Name {
			return s, invalid("addImportedSource", "id", ErrDuplicateSource)
		}
	}
	sources := make([]Source, len(s.sources), len(s.sources)+1)
	copy(sources, s.sources)
	s.sources = append(sources, src)
	return s, nil
}

func validateClip(op string, c Clip) error {
	for _, v := range []float64{c.TimelinePosition, c.SourceTrimStart, c.SourceTrimEnd} {
		if !finite(v) {
			return invalid(op, "time", ErrInvalidValue)
		}
	}
	if c.TimelinePosition < 0 {
		return invalid(op, "timelinePosition", ErrInvalidValue)
	}
	if c.SourceTrimStart < c.SourceMinTime || c.SourceTrimEnd > c.SourceMaxTime {
		return invalid(op, "trim", ErrInvalidTrim)
	}
	if c.SourceTrimStart >= c.SourceTrimEnd {
		return invalid(op, "trim", ErrInvalidTrim)
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return invalid(op, "displayName", ErrInvalidValue)
	}
	if !ValidColor(c.TimelineColor) {
		return invalid(op, "timelineColor", ErrInvalidColor)
	}
	if strings.TrimSpace(c.Channel) == "" {
		return invalid(op, "channel", ErrInvalidValue)
	}
	return nil
}

// overlaps compares half-open timeline intervals
func overlaps(a, b Clip) bool {
	return a.TimelinePosition < b.End()-epsilon && b.TimelinePosition < a.End()-epsilon
}
