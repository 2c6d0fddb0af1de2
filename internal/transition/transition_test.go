package transition

import (
	"math"
	"testing"

	"github.com/keagan/tabreel/internal/geometry"
)

func TestProgressWindow(t *testing.T) {
	// clip [10, 15), half second transition
	if _, active := Progress(14.4, 10, 5, 0.5); active {
		t.Error("expected inactive before the window")
	}
	p, active := Progress(14.75, 10, 5, 0.5)
	if !active || math.Abs(p-0.5) > 1e-9 {
		t.Errorf("expected 0.5 active, got %v %v", p, active)
	}
	p, active = Progress(15, 10, 5, 0.5)
	if !active || p != 1 {
		t.Errorf("expected 1 at clip end, got %v %v", p, active)
	}
	if _, active := Progress(15.1, 10, 5, 0.5); active {
		t.Error("expected inactive after clip end")
	}
}

func TestProgressLongerThanClip(t *testing.T) {
	p, active := Progress(10, 10, 1, 5)
	if !active {
		t.Fatal("expected active from clip start")
	}
	if math.Abs(p-0.8) > 1e-9 {
		t.Errorf("expected 0.8, got %v", p)
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		kind  Kind
		p     float64
		check func(Op) bool
	}{
		{None, 0.5, func(o Op) bool { return o.Kind == Identity && o.Alpha == 1 }},
		{Fade, 0.25, func(o Op) bool { return o.Kind == Alpha && o.Alpha == 0.75 }},
		{Dissolve, 0.5, func(o Op) bool { return o.Kind == Alpha && math.Abs(o.Alpha-0.25) < 1e-9 }},
		{Dissolve, 0.9, func(o Op) bool { return o.Alpha == 0 }},
		{SlideLeft, 0.5, func(o Op) bool { return o.Kind == Translate && o.TranslateX == -0.5 }},
		{SlideRight, 1, func(o Op) bool { return o.TranslateX == 1 }},
		{ZoomIn, 1, func(o Op) bool { return o.Kind == Scale && math.Abs(o.Scale-1.3) < 1e-9 }},
		{ZoomOut, 1, func(o Op) bool { return math.Abs(o.Scale-0.7) < 1e-9 }},
		{WipeDown, 0.25, func(o Op) bool { return o.Kind == Reveal && o.RevealTop == 0 && o.RevealBottom == 0.75 }},
		{WipeUp, 0.25, func(o Op) bool { return o.RevealTop == 0.25 && o.RevealBottom == 1 }},
		{Fade, 7, func(o Op) bool { return o.Alpha == 0 }},
	}
	for _, tt := range tests {
		if op := Evaluate(tt.kind, tt.p); !tt.check(op) {
			t.Errorf("Evaluate(%s, %v) = %+v", tt.kind, tt.p, op)
		}
	}
}

func TestApply(t *testing.T) {
	canvas := geometry.Rect{W: 200, H: 100}
	frame := geometry.Rect{X: 20, Y: 10, W: 160, H: 80}

	pl := Evaluate(SlideLeft, 0.5).Apply(frame, canvas)
	if pl.Frame.X != -80 {
		t.Errorf("expected x -80, got %v", pl.Frame.X)
	}
	if pl.Clip.X != 0 || pl.Clip.W != 80 {
		t.Errorf("expected clip cut at the canvas edge, got %+v", pl.Clip)
	}

	pl = Evaluate(ZoomOut, 1).Apply(frame, canvas)
	if math.Abs(pl.Frame.W-112) > 1e-9 || math.Abs(pl.Frame.X-44) > 1e-9 {
		t.Errorf("unexpected zoom frame %+v", pl.Frame)
	}

	pl = Evaluate(WipeUp, 0.5).Apply(frame, canvas)
	if pl.Clip.Y != 50 || pl.Clip.H != 40 {
		t.Errorf("unexpected wipe clip %+v", pl.Clip)
	}

	pl = Evaluate(Fade, 0.5).Apply(frame, canvas)
	if pl.Alpha != 0.5 || pl.Clip != frame {
		t.Errorf("unexpected fade placement %+v", pl)
	}
}

func TestValid(t *testing.T) {
	if !Valid(WipeUp) || Valid("spin") {
		t.Error("unexpected Valid result")
	}
}
