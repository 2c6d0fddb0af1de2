package timeline

import (
	"fmt"

	"github.com/keagan/tabreel/internal/transition"
)

// BackgroundSpec is the wire/file form of a Background
type BackgroundSpec struct {
	Type  string     `json:"type" yaml:"type"`
	Color string     `json:"color,omitempty" yaml:"color,omitempty"`
	Stops []StopSpec `json:"stops,omitempty" yaml:"stops,omitempty"`
	Angle float64    `json:"angle,omitempty" yaml:"angle,omitempty"`
}

type StopSpec struct {
	Color    string  `json:"color" yaml:"color"`
	Position float64 `json:"position" yaml:"position"`
}

// Background converts the spec into a model value
func (b BackgroundSpec) Background() (Background, error) {
	switch b.Type {
	case "solid", "":
		return Solid{Color: b.Color}, nil
	case "gradient":
		g := Gradient{Angle: b.Angle}
		for _, st := range b.Stops {
			g.Stops = append(g.Stops, Stop{Color: st.Color, Position: st.Position})
		}
		return g, nil
	}
	return nil, invalid("background", "type", fmt.Errorf("%w: %q", ErrInvalidValue, b.Type))
}

// SpecOf converts a model background to its wire form
func SpecOf(bg Background) BackgroundSpec {
	switch b := bg.(type) {
	case Gradient:
		spec := BackgroundSpec{Type: "gradient", Angle: b.Angle}
		for _, st := range b.Stops {
			spec.Stops = append(spec.Stops, StopSpec{Color: st.Color, Position: st.Position})
		}
		return spec
	case Solid:
		return BackgroundSpec{Type: "solid", Color: b.Color}
	}
	return BackgroundSpec{}
}

// ClipView is the read-only wire form of a Clip
type ClipView struct {
	ID               string  `json:"id"`
	SourceRef        string  `json:"sourceRef"`
	TimelinePosition float64 `json:"timelinePosition"`
	SourceTrimStart  float64 `json:"sourceTrimStart"`
	SourceTrimEnd    float64 `json:"sourceTrimEnd"`
	SourceMaxTime    float64 `json:"sourceMaxTime"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	DisplayName      string  `json:"displayName"`
	TimelineColor    string  `json:"timelineColor"`
	Channel          string  `json:"channel"`
}

type SourceView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Ref       string `json:"ref"`
}

// Snapshot is a read-only view of an EditorState for callers outside the core
type Snapshot struct {
	ClipWindowStart    float64         `json:"clipWindowStart"`
	ClipWindowEnd      float64         `json:"clipWindowEnd"`
	Duration           float64         `json:"duration"`
	Clips              []ClipView      `json:"clips"`
	Sources            []SourceView    `json:"importedSources"`
	Background         BackgroundSpec  `json:"background"`
	Padding            float64         `json:"padding"`
	BorderRadius       float64         `json:"borderRadius"`
	Transition         transition.Kind `json:"transition"`
	TransitionDuration float64         `json:"transitionDuration"`
}

func (s EditorState) Snapshot() Snapshot {
	start, end := s.ClipWindow()
	snap := Snapshot{
		ClipWindowStart:    start,
		ClipWindowEnd:      end,
		Duration:           s.TimelineDuration(),
		Clips:              make([]ClipView, 0, len(s.clips)),
		Sources:            make([]SourceView, 0, len(s.sources)),
		Background:         SpecOf(s.background),
		Padding:            s.padding,
		BorderRadius:       s.borderRadius,
		Transition:         s.transition,
		TransitionDuration: s.transitionDuration,
	}
	for _, c := range s.clips {
		snap.Clips = append(snap.Clips, ClipView{
			ID:               c.ID,
			SourceRef:        c.SourceRef,
			TimelinePosition: c.TimelinePosition,
			SourceTrimStart:  c.SourceTrimStart,
			SourceTrimEnd:    c.SourceTrimEnd,
			SourceMaxTime:    c.SourceMaxTime,
			Width:            c.Width,
			Height:           c.Height,
			DisplayName:      c.DisplayName,
			TimelineColor:    c.TimelineColor,
			Channel:          c.Channel,
		})
	}
	for _, src := range s.sources {
		snap.Sources = append(snap.Sources, SourceView(src))
	}
	return snap
}
