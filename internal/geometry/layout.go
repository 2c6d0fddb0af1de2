package geometry

import "math"

// Preview is the layout of one preview frame inside a pane
type Preview struct {
	Scale   float64
	Canvas  Rect
	Box     Rect // padded area the frame is fitted into
	Frame   Rect
	Padding float64
	Radius  float64
}

// PreviewLayout lays the frame out the way an export would: the frame padded
// by padding source pixels on every side, that canvas fitted into the pane, and
// padding and radius scaled by the same factor. With a pane of the output
// aspect, the frame takes the same share of the pane as it does of the export
// canvas.
func PreviewLayout(pane, frame Size, padding, radius float64) Preview {
	if frame.Empty() {
		frame = Canonical
	}
	padding = math.Max(padding, 0)
	scale := math.Min(
		ScaleFactor(pane.W, frame.W+2*padding),
		ScaleFactor(pane.H, frame.H+2*padding),
	)
	pad := padding * scale
	canvas := Rect{W: pane.W, H: pane.H}
	box := Rect{
		X: pad,
		Y: pad,
		W: math.Max(pane.W-2*pad, 0),
		H: math.Max(pane.H-2*pad, 0),
	}
	fitted := FitContain(frame, box)
	return Preview{
		Scale:   scale,
		Canvas:  canvas,
		Box:     box,
		Frame:   fitted,
		Padding: pad,
		Radius:  clampRadius(radius*scale, fitted),
	}
}

// Export is the absolute pixel layout of an export canvas
type Export struct {
	Canvas  Size // padded canvas the background is rendered at
	Content Size // source content dimensions, also the mask size
	OffsetX int
	OffsetY int
	Output  Size
}

// CanvasW returns the padded canvas width in whole pixels
func (e Export) CanvasW() int { return int(e.Canvas.W) }

// CanvasH returns the padded canvas height in whole pixels
func (e Export) CanvasH() int { return int(e.Canvas.H) }

// ExportLayout pads the source by padding on every side, then widens one axis
// symmetrically until the canvas has the output aspect ratio. Canvas sides are
// rounded up to even numbers for yuv420p.
func ExportLayout(source Size, padding int, output Size) Export {
	if padding < 0 {
		padding = 0
	}
	sw := int(math.Round(source.W))
	sh := int(math.Round(source.H))
	pw := sw + 2*padding
	ph := sh + 2*padding

	extraX, extraY := 0, 0
	if target := output.Aspect(); target > 0 && pw > 0 && ph > 0 {
		current := float64(pw) / float64(ph)
		switch {
		case current < target-1e-9:
			want := int(math.Ceil(float64(ph) * target))
			extraX = (want - pw + 1) / 2
		case current > target+1e-9:
			want := int(math.Ceil(float64(pw) / target))
			extraY = (want - ph + 1) / 2
		}
	}

	cw := pw + 2*extraX
	ch := ph + 2*extraY
	cw += cw % 2
	ch += ch % 2

	return Export{
		Canvas:  Size{W: float64(cw), H: float64(ch)},
		Content: Size{W: float64(sw), H: float64(sh)},
		OffsetX: padding + extraX,
		OffsetY: padding + extraY,
		Output:  output,
	}
}
