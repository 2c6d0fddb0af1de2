package timeline

// Active is the clip covering a playhead instant
type Active struct {
	Clip           Clip
	Index          int
	SourceSeekTime float64
}

// ResolveActive finds the clip covering t. Intervals are half-open so that a
// boundary between adjacent clips belongs to the later clip; the final end
// instant still resolves to the clip ending there. Earlier clips in list order win.
func ResolveActive(clips []Clip, t float64) (Active, bool) {
	for i, c := range clips {
		if t >= c.TimelinePosition && t < c.End() {
			return active(c, i, t), true
		}
	}
	for i, c := range clips {
		if t == c.End() && c.Duration() > 0 {
			return active(c, i, t), true
		}
	}
	return Active{}, false
}

// ActiveAt resolves against the state's clips
func (s EditorState) ActiveAt(t float64) (Active, bool) {
	return ResolveActive(s.clips, t)
}

// NextAfter returns the first clip in timeline order starting at or after t
func (s EditorState) NextAfter(t float64) (Clip, bool) {
	for _, c := range s.TimelineOrder() {
		if c.TimelinePosition >= t-epsilon {
			return c, true
		}
	}
	return Clip{}, false
}

func active(c Clip, i int, t float64) Active {
	return Active{
		Clip:           c,
		Index:          i,
		SourceSeekTime: c.SourceTrimStart + (t - c.TimelinePosition),
	}
}
