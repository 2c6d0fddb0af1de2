package geometry

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestScaleFactor(t *testing.T) {
	if got := ScaleFactor(960, 1920); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := ScaleFactor(960, 0); got != 0 {
		t.Errorf("expected 0 for zero canonical, got %v", got)
	}
}

func TestFitContainLetterbox(t *testing.T) {
	r := FitContain(Size{W: 1600, H: 900}, Rect{X: 10, Y: 10, W: 800, H: 800})
	if !near(r.W, 800) || !near(r.H, 450) {
		t.Fatalf("unexpected size %vx%v", r.W, r.H)
	}
	if !near(r.X, 10) || !near(r.Y, 10+175) {
		t.Errorf("expected centred at (10,185), got (%v,%v)", r.X, r.Y)
	}
}

func TestFitContainPillarbox(t *testing.T) {
	r := FitContain(Size{W: 400, H: 800}, Rect{W: 1000, H: 400})
	if !near(r.W, 200) || !near(r.H, 400) || !near(r.X, 400) {
		t.Errorf("unexpected rect %+v", r)
	}
}

func TestPreviewLayoutScalesPaddingAndRadius(t *testing.T) {
	p := PreviewLayout(Size{W: 960, H: 540}, Size{W: 1920, H: 1080}, 100, 40)
	// the padded canvas is 2120x1280; height limits the fit
	if !near(p.Scale, 0.421875) {
		t.Fatalf("expected scale 0.421875, got %v", p.Scale)
	}
	if !near(p.Box.X, 42.1875) || !near(p.Box.W, 875.625) || !near(p.Box.H, 455.625) {
		t.Errorf("unexpected box %+v", p.Box)
	}
	if !near(p.Frame.W, 810) || !near(p.Frame.H, 455.625) {
		t.Errorf("unexpected frame %+v", p.Frame)
	}
	if !near(p.Radius, 16.875) {
		t.Errorf("expected radius 16.875, got %v", p.Radius)
	}
	if !near(p.Frame.W/p.Frame.H, 1920.0/1080.0) {
		t.Errorf("aspect not preserved: %+v", p.Frame)
	}
}

func TestPreviewLayoutNoPaddingFillsPane(t *testing.T) {
	p := PreviewLayout(Size{W: 960, H: 540}, Size{W: 1920, H: 1080}, 0, 0)
	if !near(p.Scale, 0.5) || !near(p.Frame.W, 960) || !near(p.Frame.H, 540) {
		t.Errorf("expected frame to fill the pane, got %+v scale %v", p.Frame, p.Scale)
	}
}

func TestPreviewLayoutMatchesExport(t *testing.T) {
	pane := Size{W: 960, H: 540}
	source := Size{W: 1920, H: 1080}
	for _, padding := range []int{0, 100, 200, 500} {
		p := PreviewLayout(pane, source, float64(padding), 0)
		e := ExportLayout(source, padding, Canonical)

		previewW := p.Frame.W / pane.W
		exportW := e.Content.W / e.Canvas.W
		if math.Abs(previewW-exportW) > 0.01 {
			t.Errorf("padding %d: preview width share %.3f, export %.3f", padding, previewW, exportW)
		}
		previewH := p.Frame.H / pane.H
		exportH := e.Content.H / e.Canvas.H
		if math.Abs(previewH-exportH) > 0.01 {
			t.Errorf("padding %d: preview height share %.3f, export %.3f", padding, previewH, exportH)
		}
	}
}

func TestPreviewLayoutHugePadding(t *testing.T) {
	p := PreviewLayout(Size{W: 100, H: 50}, Size{W: 16, H: 9}, 5000, 10)
	if p.Frame.W <= 0 || p.Frame.H <= 0 {
		t.Fatalf("expected a visible frame, got %+v", p.Frame)
	}
	if p.Frame.X < p.Box.X || p.Frame.Y < p.Box.Y ||
		p.Frame.X+p.Frame.W > p.Box.X+p.Box.W+1e-9 || p.Frame.Y+p.Frame.H > p.Box.Y+p.Box.H+1e-9 {
		t.Errorf("frame %+v outside box %+v", p.Frame, p.Box)
	}
	if math.Abs(p.Frame.W/p.Frame.H-16.0/9.0) > 1e-6 {
		t.Errorf("aspect not preserved: %+v", p.Frame)
	}
	if p.Radius > math.Min(p.Frame.W, p.Frame.H)/2+1e-12 {
		t.Errorf("radius %v exceeds half the frame", p.Radius)
	}
}

func TestPreviewLayoutEmptyFrameUsesCanonical(t *testing.T) {
	p := PreviewLayout(Size{W: 960, H: 540}, Size{}, 0, 0)
	if !near(p.Frame.W, 960) || !near(p.Frame.H, 540) {
		t.Errorf("expected canonical frame, got %+v", p.Frame)
	}
}

func TestExportLayoutWidensToOutputAspect(t *testing.T) {
	e := ExportLayout(Size{W: 640, H: 360}, 20, Size{W: 1920, H: 1080})
	if e.CanvasW() != 712 || e.CanvasH() != 400 {
		t.Fatalf("expected 712x400, got %dx%d", e.CanvasW(), e.CanvasH())
	}
	if e.OffsetX != 36 || e.OffsetY != 20 {
		t.Errorf("expected offset (36,20), got (%d,%d)", e.OffsetX, e.OffsetY)
	}
	if e.Content.W != 640 || e.Content.H != 360 {
		t.Errorf("unexpected content %+v", e.Content)
	}
}

func TestExportLayoutHeightensTallOutput(t *testing.T) {
	e := ExportLayout(Size{W: 1000, H: 1000}, 0, Size{W: 1080, H: 1920})
	if e.CanvasW() != 1000 {
		t.Errorf("expected width 1000, got %d", e.CanvasW())
	}
	if e.CanvasH() < 1777 || e.CanvasH()%2 != 0 {
		t.Errorf("expected even height >= 1778, got %d", e.CanvasH())
	}
	if e.OffsetX != 0 || e.OffsetY != (e.CanvasH()-1000)/2 {
		t.Errorf("unexpected offset (%d,%d)", e.OffsetX, e.OffsetY)
	}
}

func TestExportLayoutEvenDimensions(t *testing.T) {
	e := ExportLayout(Size{W: 641, H: 361}, 3, Size{})
	if e.CanvasW()%2 != 0 || e.CanvasH()%2 != 0 {
		t.Errorf("expected even canvas, got %dx%d", e.CanvasW(), e.CanvasH())
	}
	if e.OffsetX != 3 || e.OffsetY != 3 {
		t.Errorf("expected padding-only offset, got (%d,%d)", e.OffsetX, e.OffsetY)
	}
}

func TestGradientLine(t *testing.T) {
	x0, y0, x1, y1 := GradientLine(90, 200, 100)
	if !near(x0, 0) || !near(y0, 50) || !near(x1, 200) || !near(y1, 50) {
		t.Errorf("90deg: got (%v,%v)->(%v,%v)", x0, y0, x1, y1)
	}
	x0, y0, x1, y1 = GradientLine(0, 200, 100)
	if !near(x0, 100) || !near(y0, 100) || !near(x1, 100) || !near(y1, 0) {
		t.Errorf("0deg: got (%v,%v)->(%v,%v)", x0, y0, x1, y1)
	}
	x0, y0, x1, y1 = GradientLine(180, 200, 100)
	if !near(y0, 0) || !near(y1, 100) {
		t.Errorf("180deg: got (%v,%v)->(%v,%v)", x0, y0, x1, y1)
	}
}
