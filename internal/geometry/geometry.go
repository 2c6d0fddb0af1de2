// Package geometry holds the layout math shared by the preview renderer and the
// exporter. Preview works in scaled pane pixels; export works in absolute source
// pixels against a fixed output resolution. Both fit content with FitContain.
package geometry

import "math"

// Canonical is the reference canvas the preview scales padding and radius against.
var Canonical = Size{W: 1920, H: 1080}

// Size is a width/height pair in pixels
type Size struct {
	W float64
	H float64
}

// Empty reports whether either side is non-positive
func (s Size) Empty() bool {
	return !(s.W > 0 && s.H > 0)
}

// Aspect returns W/H, or 0 for an empty size
func (s Size) Aspect() float64 {
	if s.Empty() {
		return 0
	}
	return s.W / s.H
}

// Rect is an axis-aligned box in pixels
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Size returns the rect dimensions
func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}

// Center returns the rect centre point
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Intersect returns the overlap of two rects; the result may be empty
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.X+r.W, o.X+o.W)
	y1 := math.Min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ScaleFactor translates canonical pixels into viewport pixels
func ScaleFactor(viewport, canonical float64) float64 {
	if canonical <= 0 || viewport <= 0 {
		return 0
	}
	return viewport / canonical
}

// FitContain fits content inside box preserving aspect ratio, centred
func FitContain(content Size, box Rect) Rect {
	if content.Empty() || box.W <= 0 || box.H <= 0 {
		return Rect{X: box.X, Y: box.Y, W: math.Max(box.W, 0), H: math.Max(box.H, 0)}
	}
	scale := math.Min(box.W/content.W, box.H/content.H)
	w := content.W * scale
	h := content.H * scale
	return Rect{
		X: box.X + (box.W-w)/2,
		Y: box.Y + (box.H-h)/2,
		W: w,
		H: h,
	}
}

// GradientLine maps a CSS-style bearing (0 = up, 90 = right) to the start and
// end points of a linear gradient over a w x h canvas. The line passes through
// the centre and is long enough that the 0% and 100% stops touch opposite corners.
func GradientLine(angleDeg, w, h float64) (x0, y0, x1, y1 float64) {
	theta := angleDeg * math.Pi / 180
	dx := math.Sin(theta)
	dy := -math.Cos(theta)
	half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
	cx, cy := w/2, h/2
	return cx - dx*half, cy - dy*half, cx + dx*half, cy + dy*half
}

func clampRadius(r float64, box Rect) float64 {
	if r < 0 {
		return 0
	}
	return math.Min(r, math.Min(box.W, box.H)/2)
}
