// Package transition maps a transition kind and progress to a compositing op.
package transition

import (
	"math"

	"github.com/keagan/tabreel/internal/geometry"
)

// Kind names a clip-out transition
type Kind string

const (
	None       Kind = "none"
	Fade       Kind = "fade"
	SlideLeft  Kind = "slideLeft"
	SlideRight Kind = "slideRight"
	ZoomIn     Kind = "zoomIn"
	ZoomOut    Kind = "zoomOut"
	Dissolve   Kind = "dissolve"
	WipeDown   Kind = "wipeDown"
	WipeUp     Kind = "wipeUp"
)

// Kinds lists every supported transition in display order
var Kinds = []Kind{None, Fade, SlideLeft, SlideRight, ZoomIn, ZoomOut, Dissolve, WipeDown, WipeUp}

// Valid reports whether k is a known kind
func Valid(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// OpKind is the shape of a compositing op
type OpKind int

const (
	Identity OpKind = iota
	Alpha
	Translate
	Scale
	Reveal
)

// Op is a compositing transform applied to the clip frame
type Op struct {
	Kind OpKind

	// Alpha multiplier, 1 for non-alpha ops
	Alpha float64
	// TranslateX is a fraction of the canvas width
	TranslateX float64
	// Scale factor about the frame centre
	Scale float64
	// RevealTop and RevealBottom bound the visible band as fractions of frame height
	RevealTop    float64
	RevealBottom float64
}

// IdentityOp leaves the frame untouched
func IdentityOp() Op {
	return Op{Kind: Identity, Alpha: 1, Scale: 1, RevealBottom: 1}
}

// Progress returns how far the playhead is into the clip's closing transition
// window. active is false before the window starts or when there is no window.
func Progress(playhead, clipStart, clipDuration, transitionDuration float64) (float64, bool) {
	if transitionDuration <= 0 || clipDuration <= 0 {
		return 0, false
	}
	elapsed := playhead - clipStart
	begin := clipDuration - transitionDuration
	if elapsed < begin || elapsed > clipDuration {
		return 0, false
	}
	return clamp01((elapsed - begin) / transitionDuration), true
}

// Evaluate maps kind and progress in [0,1] to an op
func Evaluate(kind Kind, p float64) Op {
	p = clamp01(p)
	op := IdentityOp()
	switch kind {
	case Fade:
		op.Kind = Alpha
		op.Alpha = 1 - p
	case Dissolve:
		op.Kind = Alpha
		op.Alpha = math.Max(0, 1-1.5*p)
	case SlideLeft:
		op.Kind = Translate
		op.TranslateX = -p
	case SlideRight:
		op.Kind = Translate
		op.TranslateX = p
	case ZoomIn:
		op.Kind = Scale
		op.Scale = 1 + 0.3*p
	case ZoomOut:
		op.Kind = Scale
		op.Scale = 1 - 0.3*p
	case WipeDown:
		op.Kind = Reveal
		op.RevealBottom = 1 - p
	case WipeUp:
		op.Kind = Reveal
		op.RevealTop = p
	}
	return op
}

// Placement is where and how a frame lands after an op
type Placement struct {
	Frame geometry.Rect // transformed frame box
	Clip  geometry.Rect // visible region, already intersected with the canvas
	Alpha float64
}

// Apply transforms a frame box on a canvas
func (o Op) Apply(frame, canvas geometry.Rect) Placement {
	out := Placement{Frame: frame, Alpha: 1}
	switch o.Kind {
	case Alpha:
		out.Alpha = clamp01(o.Alpha)
	case Translate:
		out.Frame.X += o.TranslateX * canvas.W
	case Scale:
		cx, cy := frame.Center()
		out.Frame.W = frame.W * o.Scale
		out.Frame.H = frame.H * o.Scale
		out.Frame.X = cx - out.Frame.W/2
		out.Frame.Y = cy - out.Frame.H/2
	case Reveal:
		top := frame.Y + frame.H*clamp01(o.RevealTop)
		bottom := frame.Y + frame.H*clamp01(o.RevealBottom)
		out.Clip = geometry.Rect{X: frame.X, Y: top, W: frame.W, H: math.Max(bottom-top, 0)}.Intersect(canvas)
		return out
	}
	out.Clip = out.Frame.Intersect(canvas)
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
