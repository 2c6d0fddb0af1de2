package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/timeline"
)

func rgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestSolidBackground(t *testing.T) {
	img, err := BackgroundImage(timeline.Solid{Color: "#112233"}, 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	got := rgbaAt(img, 3, 2)
	if got.R != 0x11 || got.G != 0x22 || got.B != 0x33 || got.A != 0xff {
		t.Errorf("unexpected pixel %+v", got)
	}
}

func TestGradientStopsSortedBeforePainting(t *testing.T) {
	bg := timeline.Gradient{
		Stops: []timeline.Stop{{Color: "#ff0000", Position: 80}, {Color: "#0000ff", Position: 10}},
		Angle: 90,
	}
	img, err := BackgroundImage(bg, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	left := rgbaAt(img, 0, 5)
	right := rgbaAt(img, 99, 5)
	if left.B < 200 || left.R > 50 {
		t.Errorf("expected the 10%% stop (blue) at the start, got %+v", left)
	}
	if right.R < 200 || right.B > 50 {
		t.Errorf("expected the 80%% stop (red) at the end, got %+v", right)
	}
}

func TestGradientFillsWholeCanvas(t *testing.T) {
	bg := timeline.Gradient{
		Stops: []timeline.Stop{{Color: "#00ff00", Position: 0}, {Color: "#ff00ff", Position: 100}},
		Angle: 180,
	}
	img, err := BackgroundImage(bg, 1920, 1080)
	if err != nil {
		t.Fatal(err)
	}
	for _, pt := range []image.Point{{0, 0}, {1919, 0}, {0, 1079}, {1919, 1079}, {960, 540}} {
		if c := rgbaAt(img, pt.X, pt.Y); c.A != 0xff {
			t.Errorf("expected opaque pixel at %v, got %+v", pt, c)
		}
	}
	top, bottom := rgbaAt(img, 960, 0), rgbaAt(img, 960, 1079)
	if top.G < 200 || bottom.R < 200 {
		t.Errorf("expected green at the top and magenta at the bottom, got %+v and %+v", top, bottom)
	}
}

func TestBackgroundInvalidSize(t *testing.T) {
	if _, err := BackgroundPNG(timeline.Solid{Color: "#000"}, 0, 10); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestMaskPNG(t *testing.T) {
	data, err := MaskPNG(64, 32, 10)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("mask is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Fatalf("unexpected mask size %v", b)
	}
	if c := rgbaAt(img, 32, 16); c.A != 0xff || c.R != 0xff {
		t.Errorf("expected opaque white centre, got %+v", c)
	}
	if c := rgbaAt(img, 0, 0); c.A > 64 {
		t.Errorf("expected transparent corner, got %+v", c)
	}
}

func TestCompositorDraw(t *testing.T) {
	comp := NewCompositor()
	canvas, err := comp.Canvas(timeline.Solid{Color: "#000000"}, 40, 20)
	if err != nil {
		t.Fatal(err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 10, 5))
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i], frame.Pix[i+3] = 0xff, 0xff
	}
	box := geometry.Rect{X: 10, Y: 5, W: 20, H: 10}
	comp.Draw(canvas, Layer{Frame: frame, Box: box, Clip: box, Alpha: 1})

	if c := rgbaAt(canvas, 20, 10); c.R < 250 {
		t.Errorf("expected red inside the box, got %+v", c)
	}
	if c := rgbaAt(canvas, 5, 10); c.R != 0 {
		t.Errorf("expected background outside the box, got %+v", c)
	}

	// half alpha over black
	half, _ := comp.Canvas(timeline.Solid{Color: "#000000"}, 40, 20)
	comp.Draw(half, Layer{Frame: frame, Box: box, Clip: box, Alpha: 0.5})
	if c := rgbaAt(half, 20, 10); c.R < 120 || c.R > 135 {
		t.Errorf("expected half red, got %+v", c)
	}

	// the cached background must not carry the previous draw
	fresh, _ := comp.Canvas(timeline.Solid{Color: "#000000"}, 40, 20)
	if c := rgbaAt(fresh, 20, 10); c.R != 0 {
		t.Errorf("canvas cache was mutated: %+v", c)
	}
}

func TestCompositorClipRect(t *testing.T) {
	comp := NewCompositor()
	canvas, _ := comp.Canvas(timeline.Solid{Color: "#000000"}, 40, 20)
	frame := image.NewUniform(color.RGBA{R: 0xff, A: 0xff})
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, frame.C)
		}
	}
	box := geometry.Rect{W: 40, H: 20}
	comp.Draw(canvas, Layer{Frame: src, Box: box, Clip: geometry.Rect{W: 40, H: 10}, Alpha: 1})
	if c := rgbaAt(canvas, 20, 5); c.R < 250 {
		t.Errorf("expected red in the revealed band, got %+v", c)
	}
	if c := rgbaAt(canvas, 20, 15); c.R != 0 {
		t.Errorf("expected nothing below the band, got %+v", c)
	}
}
