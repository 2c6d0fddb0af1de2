package timeline

import (
	"regexp"
	"sort"
)

// DefaultChannel is the single video channel clips land on
const DefaultChannel = "videos-0"

// Palette is cycled through when clips are placed
var Palette = []string{"#8CE4FF", "#FEEE91", "#FFA239", "#FF5656", "#4DFFBE", "#FF76CE", "#FF8F8F"}

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// ValidColor reports whether s is #RGB, #RRGGBB or #RRGGBBAA
func ValidColor(s string) bool {
	return colorPattern.MatchString(s)
}

// Clip is a placed, trimmed reference to a source on the timeline
type Clip struct {
	ID               string
	SourceRef        string
	TimelinePosition float64
	SourceTrimStart  float64
	SourceTrimEnd    float64
	SourceMinTime    float64
	SourceMaxTime    float64
	Width            int
	Height           int
	DisplayName      string
	TimelineColor    string
	Channel          string
}

// Duration is the clip's length on the timeline
func (c Clip) Duration() float64 {
	return c.SourceTrimEnd - c.SourceTrimStart
}

// End is the timeline time the clip stops covering
func (c Clip) End() float64 {
	return c.TimelinePosition + c.Duration()
}

// Source is an imported media entry available for placement
type Source struct {
	ID        string
	Name      string
	MediaType string
	Ref       string
}

// Background is either Solid or Gradient
type Background interface {
	isBackground()
}

// Solid fills the canvas with one color
type Solid struct {
	Color string
}

// Stop is a gradient color stop; Position is in [0,100]
type Stop struct {
	Color    string
	Position float64
}

// Gradient is a linear gradient at a CSS-style bearing (0 = up)
type Gradient struct {
	Stops []Stop
	Angle float64
}

func (Solid) isBackground()    {}
func (Gradient) isBackground() {}

// SortedStops returns a copy of the stops ordered by ascending position
func (g Gradient) SortedStops() []Stop {
	out := make([]Stop, len(g.Stops))
	copy(out, g.Stops)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// DefaultGradient is offered when switching a solid background to a gradient
func DefaultGradient() Gradient {
	return Gradient{
		Stops: []Stop{{Color: "#000000", Position: 0}, {Color: "#1a1a1a", Position: 100}},
		Angle: 45,
	}
}
