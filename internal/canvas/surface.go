// Package canvas holds the raster surface strokes are painted on.
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"DoodleBoard/internal/brush"
	"DoodleBoard/internal/state"
)

// Surface is a raster with a logical size and a device pixel ratio. Coordinates passed to
// the drawing methods are logical; the backing image is logical size times the ratio.
// It is safe for concurrent use.
type Surface struct {
	mu     sync.RWMutex
	width  float64
	height float64
	dpr    float64
	img    *image.NRGBA
}

var _ brush.Target = (*Surface)(nil)

// New creates a surface attached at the given logical size.
func New(width, height, dpr float64) *Surface {
	s := &Surface{}
	s.Attach(width, height, dpr)
	return s
}

// Attach (re)allocates the backing raster. The ratio is resolved here once per attach;
// values <= 0 fall back to 1. The previous contents are discarded.
func (s *Surface) Attach(width, height, dpr float64) {
	if dpr <= 0 || math.IsNaN(dpr) {
		dpr = 1
	}
	width = math.Max(1, math.Floor(width))
	height = math.Max(1, math.Floor(height))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height, s.dpr = width, height, dpr
	pw := int(math.Max(1, math.Ceil(width*dpr)))
	ph := int(math.Max(1, math.Ceil(height*dpr)))
	s.img = image.NewNRGBA(image.Rect(0, 0, pw, ph))
}

// Size returns the logical size.
func (s *Surface) Size() (float64, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

func (s *Surface) DevicePixelRatio() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dpr
}

// PixelSize returns the size of the backing raster.
func (s *Surface) PixelSize() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clear makes every pixel transparent.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.img.Pix)
}

// Image returns a copy of the backing raster.
func (s *Surface) Image() *image.NRGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := image.NewNRGBA(s.img.Bounds())
	copy(cp.Pix, s.img.Pix)
	return cp
}

// At returns the pixel at device coordinates x, y.
func (s *Surface) At(x, y int) color.NRGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img.NRGBAAt(x, y)
}

// EncodePNG encodes the current raster.
func (s *Surface) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image()); err != nil {
		return nil, fmt.Errorf("encode surface: %w", err)
	}
	return buf.Bytes(), nil
}

// Paint draws img over the surface, scaled to cover the whole logical area.
func (s *Surface) Paint(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	xdraw.CatmullRom.Scale(s.img, s.img.Bounds(), img, img.Bounds(), xdraw.Over, nil)
}

// StrokeLine paints a round-capped line.
func (s *Surface) StrokeLine(from, to state.Point, width float64, p brush.Paint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := width * s.dpr / 2
	s.fill(s.device(from), s.device(to), r, p, func(z *vector.Rasterizer, a, b state.Point) {
		capsule(z, a, b, r)
	})
}

// FillDot paints a filled circle.
func (s *Surface) FillDot(center state.Point, radius float64, p brush.Paint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.device(center)
	r := radius * s.dpr
	s.fill(c, c, r, p, func(z *vector.Rasterizer, a, _ state.Point) {
		circle(z, a, r)
	})
}

func (s *Surface) device(p state.Point) state.Point {
	return state.Point{X: p.X * s.dpr, Y: p.Y * s.dpr}
}

// fill rasterises a shape around the segment a..b grown by r into a coverage mask and
// composites it. shape receives a and b relative to the mask origin.
func (s *Surface) fill(a, b state.Point, r float64, p brush.Paint, shape func(z *vector.Rasterizer, a, b state.Point)) {
	if r <= 0 {
		return
	}
	blur := p.ShadowBlur * s.dpr
	margin := r + 2*blur + 2
	bounds := s.img.Bounds()

	// Geometry more than margin outside the raster cannot reach a visible pixel, so the
	// mask never outgrows the raster plus margin.
	a, b, ok := clipSegment(a, b,
		float64(bounds.Min.X)-margin, float64(bounds.Min.Y)-margin,
		float64(bounds.Max.X)+margin, float64(bounds.Max.Y)+margin,
	)
	if !ok {
		return
	}
	box := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-margin)),
		int(math.Floor(math.Min(a.Y, b.Y)-margin)),
		int(math.Ceil(math.Max(a.X, b.X)+margin)),
		int(math.Ceil(math.Max(a.Y, b.Y)+margin)),
	)
	visible := box.Intersect(bounds)
	if visible.Empty() {
		return
	}

	origin := state.Point{X: float64(box.Min.X), Y: float64(box.Min.Y)}
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	shape(z, a.Sub(origin), b.Sub(origin))
	mask := image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	if blur > 0 {
		halo := boxBlur(mask, blur)
		s.composite(halo, box.Min, visible, p)
	}
	s.composite(mask, box.Min, visible, p)
}

func (s *Surface) composite(mask *image.Alpha, origin image.Point, visible image.Rectangle, p brush.Paint) {
	mp := visible.Min.Sub(origin)
	if !p.Erase {
		draw.DrawMask(s.img, visible, image.NewUniform(p.Color), image.Point{}, mask, mp, draw.Over)
		return
	}
	// destination-out: only the destination alpha is reduced.
	for y := visible.Min.Y; y < visible.Max.Y; y++ {
		for x := visible.Min.X; x < visible.Max.X; x++ {
			m := mask.AlphaAt(x-origin.X, y-origin.Y).A
			if m == 0 {
				continue
			}
			i := s.img.PixOffset(x, y) + 3
			s.img.Pix[i] = uint8(uint32(s.img.Pix[i]) * uint32(255-m) / 255)
		}
	}
}
