package canvas

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"DoodleBoard/internal/state"
)

// capsule adds the outline of a round-capped segment a..b of half-width r.
func capsule(z *vector.Rasterizer, a, b state.Point, r float64) {
	d := a.Dist(b)
	if d < 1e-6 {
		circle(z, a, r)
		return
	}
	// n is the left normal of a->b.
	n := state.Point{X: -(b.Y - a.Y) / d, Y: (b.X - a.X) / d}
	phi := math.Atan2(n.Y, n.X)

	z.MoveTo(float32(a.X+n.X*r), float32(a.Y+n.Y*r))
	z.LineTo(float32(b.X+n.X*r), float32(b.Y+n.Y*r))
	arc(z, b, r, phi, phi-math.Pi)
	z.LineTo(float32(a.X-n.X*r), float32(a.Y-n.Y*r))
	arc(z, a, r, phi+math.Pi, phi)
	z.ClosePath()
}

func circle(z *vector.Rasterizer, c state.Point, r float64) {
	z.MoveTo(float32(c.X+r), float32(c.Y))
	arc(z, c, r, 0, 2*math.Pi)
	z.ClosePath()
}

// arc appends cubic approximations of the arc from angle a0 to a1, assuming the pen is
// already at the start point. Pieces span at most a quarter turn.
func arc(z *vector.Rasterizer, c state.Point, r, a0, a1 float64) {
	sweep := a1 - a0
	n := int(math.Ceil(math.Abs(sweep) / (math.Pi / 2)))
	if n == 0 {
		return
	}
	step := sweep / float64(n)
	h := 4.0 / 3.0 * math.Tan(step/4)
	for i := 0; i < n; i++ {
		t0 := a0 + float64(i)*step
		t1 := t0 + step
		s0, c0 := math.Sincos(t0)
		s1, c1 := math.Sincos(t1)
		z.CubeTo(
			float32(c.X+r*(c0-h*s0)), float32(c.Y+r*(s0+h*c0)),
			float32(c.X+r*(c1+h*s1)), float32(c.Y+r*(s1-h*c1)),
			float32(c.X+r*c1), float32(c.Y+r*s1),
		)
	}
}

// clipSegment clips a..b to the rectangle [minX,maxX]x[minY,maxY] (Liang-Barsky). It
// reports false when no part of the segment lies inside.
func clipSegment(a, b state.Point, minX, minY, maxX, maxY float64) (state.Point, state.Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, a.X - minX},
		{dx, maxX - a.X},
		{-dy, a.Y - minY},
		{dy, maxY - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return a, b, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return state.Point{X: a.X + t0*dx, Y: a.Y + t0*dy},
		state.Point{X: a.X + t1*dx, Y: a.Y + t1*dy},
		true
}

// boxBlur approximates a gaussian of the given radius with three box passes.
func boxBlur(src *image.Alpha, radius float64) *image.Alpha {
	k := int(math.Ceil(radius / 3))
	if k < 1 {
		k = 1
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	cur := make([]float64, w*h)
	for i, v := range src.Pix[:w*h] {
		cur[i] = float64(v)
	}
	tmp := make([]float64, w*h)
	for pass := 0; pass < 3; pass++ {
		blurLine(cur, tmp, w, h, k, 1, w)
		blurLine(tmp, cur, h, w, k, w, 1)
	}

	out := image.NewAlpha(b)
	for i, v := range cur {
		out.Pix[i] = uint8(math.Min(255, math.Round(v)))
	}
	return out
}

// blurLine runs a running-sum box filter along lines of length n; step is the stride
// between samples on a line and lineStride the stride between lines.
func blurLine(src, dst []float64, n, lines, k, step, lineStride int) {
	span := float64(2*k + 1)
	for l := 0; l < lines; l++ {
		base := l * lineStride
		sum := 0.0
		for i := -k; i <= k; i++ {
			if i >= 0 && i < n {
				sum += src[base+i*step]
			}
		}
		for i := 0; i < n; i++ {
			dst[base+i*step] = sum / span
			if out := i - k; out >= 0 {
				sum -= src[base+out*step]
			}
			if in := i + k + 1; in < n {
				sum += src[base+in*step]
			}
		}
	}
}
