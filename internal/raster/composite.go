package raster

import (
	"image"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/nfnt/resize"

	"github.com/keagan/tabreel/internal/geometry"
	"github.com/keagan/tabreel/internal/timeline"
)

// Compositor caches the last background and mask so steady playback only
// rescales and blends the frame.
type Compositor struct {
	mu sync.Mutex

	bgKey string
	bg    *image.RGBA

	maskKey string
	mask    *gg.Mask
}

func NewCompositor() *Compositor {
	return &Compositor{}
}

// Canvas returns a fresh copy of the background at w x h
func (c *Compositor) Canvas(bg timeline.Background, w, h int) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := backgroundKey(bg, w, h)
	if c.bg == nil || c.bgKey != key {
		img, err := BackgroundImage(bg, w, h)
		if err != nil {
			return nil, err
		}
		c.bg, c.bgKey = img, key
	}
	out := image.NewRGBA(c.bg.Rect)
	copy(out.Pix, c.bg.Pix)
	return out, nil
}

// Layer is one frame placed on the canvas
type Layer struct {
	Frame  image.Image
	Box    geometry.Rect // where the whole frame lands
	Clip   geometry.Rect // visible region
	Radius float64
	Alpha  float64
}

// Draw scales the frame into its box and blends it onto dst through the rounded
// mask, restricted to the clip rect.
func (c *Compositor) Draw(dst *image.RGBA, l Layer) {
	fw := int(math.Round(l.Box.W))
	fh := int(math.Round(l.Box.H))
	if l.Frame == nil || fw <= 0 || fh <= 0 || l.Alpha <= 0 {
		return
	}
	scaled := resize.Resize(uint(fw), uint(fh), l.Frame, resize.Bilinear)
	mask := c.roundedMask(fw, fh, l.Radius)

	ox := int(math.Round(l.Box.X))
	oy := int(math.Round(l.Box.Y))
	area := image.Rect(
		int(math.Floor(l.Clip.X)), int(math.Floor(l.Clip.Y)),
		int(math.Ceil(l.Clip.X+l.Clip.W)), int(math.Ceil(l.Clip.Y+l.Clip.H)),
	).Intersect(dst.Rect).Intersect(image.Rect(ox, oy, ox+fw, oy+fh))

	sb := scaled.Bounds()
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			fx, fy := x-ox, y-oy
			cov := float64(mask.At(fx, fy)) / 255 * l.Alpha
			if cov <= 0 {
				continue
			}
			r, g, b, a := scaled.At(sb.Min.X+fx, sb.Min.Y+fy).RGBA()
			blend(dst, x, y, r, g, b, a, cov)
		}
	}
}

func (c *Compositor) roundedMask(w, h int, radius float64) *gg.Mask {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := sizeKey(w, h, radius)
	if c.mask == nil || c.maskKey != key {
		c.mask, c.maskKey = RoundedMask(w, h, radius), key
	}
	return c.mask
}

// blend does premultiplied source-over with an extra coverage factor
func blend(dst *image.RGBA, x, y int, r, g, b, a uint32, cov float64) {
	i := dst.PixOffset(x, y)
	sa := float64(a) / 65535 * cov
	inv := 1 - sa
	dst.Pix[i+0] = uint8(math.Round(float64(r)/257*cov + float64(dst.Pix[i+0])*inv))
	dst.Pix[i+1] = uint8(math.Round(float64(g)/257*cov + float64(dst.Pix[i+1])*inv))
	dst.Pix[i+2] = uint8(math.Round(float64(b)/257*cov + float64(dst.Pix[i+2])*inv))
	dst.Pix[i+3] = uint8(math.Round(sa*255 + float64(dst.Pix[i+3])*inv))
}
