// Package raster paints backgrounds and rounded masks with gg and composites
// preview frames. The same functions produce the export's PNG assets so both
// paths share one definition of the background and the mask.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gg"

	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/timeline"
)

// Background renders bg into a w x h gg context. Gradient stops are sorted by
// position before the brush is built. Callers close the context.
func Background(bg timeline.Background, w, h int) (*gg.Context, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", w, h)
	}
	dc := gg.NewContext(w, h)

	switch b := bg.(type) {
	case timeline.Solid:
		dc.ClearWithColor(gg.Hex(b.Color))
	case timeline.Gradient:
		dc.SetFillBrush(GradientBrush(b, float64(w), float64(h)))
		dc.DrawRectangle(0, 0, float64(w), float64(h))
		if err := dc.Fill(); err != nil {
			dc.Close()
			return nil, fmt.Errorf("failed to paint gradient: %w", err)
		}
	default:
		dc.Close()
		return nil, fmt.Errorf("unsupported background %T", bg)
	}
	return dc, nil
}

// GradientBrush builds the linear brush for g spanning a w x h canvas
func GradientBrush(g timeline.Gradient, w, h float64) *gg.LinearGradientBrush {
	x0, y0, x1, y1 := geometry.GradientLine(g.Angle, w, h)
	brush := gg.NewLinearGradientBrush(x0, y0, x1, y1)
	for _, st := range g.SortedStops() {
		brush.AddColorStop(st.Position/100, gg.Hex(st.Color))
	}
	return brush
}

// BackgroundImage renders bg as an RGBA image
func BackgroundImage(bg timeline.Background, w, h int) (*image.RGBA, error) {
	dc, err := Background(bg, w, h)
	if err != nil {
		return nil, err
	}
	defer dc.Close()
	return toRGBA(dc.Image()), nil
}

// BackgroundPNG renders bg as a PNG asset
func BackgroundPNG(bg timeline.Background, w, h int) ([]byte, error) {
	dc, err := Background(bg, w, h)
	if err != nil {
		return nil, err
	}
	defer dc.Close()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode background: %w", err)
	}
	return buf.Bytes(), nil
}

// MaskPNG renders an opaque white rounded rectangle covering the whole w x h
// canvas on transparent corners. The radius is in the canvas's own pixels.
func MaskPNG(w, h int, radius float64) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid mask size %dx%d", w, h)
	}
	dc := gg.NewContext(w, h)
	defer dc.Close()

	dc.SetRGBA(1, 1, 1, 1)
	roundedRect(dc, float64(w), float64(h), radius)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("failed to fill mask: %w", err)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}
	return buf.Bytes(), nil
}

// RoundedMask returns a coverage mask for a w x h rounded rectangle
func RoundedMask(w, h int, radius float64) *gg.Mask {
	dc := gg.NewContext(w, h)
	defer dc.Close()
	roundedRect(dc, float64(w), float64(h), radius)
	return dc.AsMask()
}

// EncodePNG encodes any image through gg
func EncodePNG(img image.Image) ([]byte, error) {
	dc := gg.NewContextForImage(img)
	defer dc.Close()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func roundedRect(dc *gg.Context, w, h, radius float64) {
	r := radius
	if limit := min(w, h) / 2; r > limit {
		r = limit
	}
	if r <= 0 {
		dc.DrawRectangle(0, 0, w, h)
		return
	}
	dc.DrawRoundedRectangle(0, 0, w, h, r)
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
