// Package brush paints stroke segments with one of the closed set of brush styles.
//
// The same Renderer is used for strokes drawn locally and for segments received
// from peers, so both paths produce identical pixels for the deterministic styles.
package brush

import (
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"

	"DoodleBoard/internal/state"
)

// SprayDotRadius is the radius of every dot laid down by the spray brush.
const SprayDotRadius = 1.0

// Paint describes how a primitive is composited. ShadowBlur > 0 adds a halo of that
// radius in the paint colour; it applies to the single call it is passed to.
type Paint struct {
	Color      color.NRGBA
	Erase      bool
	ShadowBlur float64
}

// Target is a drawing surface the renderer paints on.
type Target interface {
	StrokeLine(from, to state.Point, width float64, p Paint)
	FillDot(center state.Point, radius float64, p Paint)
}

type handler func(r *Renderer, t Target, from, to state.Point, width float64, p Paint)

// handlers is indexed by state.BrushStyle; every style must have an entry.
var handlers = [state.NumStyles]handler{
	state.Normal:      renderNormal,
	state.Spray:       renderSpray,
	state.Calligraphy: renderCalligraphy,
	state.Glow:        renderGlow,
}

// Renderer dispatches segments to the handler of their style.
type Renderer struct {
	rnd *rand.Rand
}

// New creates a renderer drawing spray offsets from src.
// A nil src uses a randomly seeded generator.
func New(src rand.Source) *Renderer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Renderer{rnd: rand.New(src)}
}

// Render paints seg on t. A segment that starts a path paints nothing and returns false.
func (r *Renderer) Render(t Target, seg state.StrokeSegment) (bool, error) {
	if err := seg.Validate(); err != nil {
		return false, err
	}
	if seg.StartsPath() {
		return false, nil
	}
	c, err := ParseColor(seg.Color)
	if err != nil {
		return false, err
	}
	h := handlers[seg.Style]
	if h == nil {
		return false, fmt.Errorf("no handler for %s", seg.Style)
	}
	h(r, t, *seg.PreviousPoint, seg.CurrentPoint, seg.Width, Paint{Color: c, Erase: seg.Eraser})
	return true, nil
}

func renderNormal(_ *Renderer, t Target, from, to state.Point, width float64, p Paint) {
	t.StrokeLine(from, to, width, p)
}

func renderSpray(r *Renderer, t Target, _, to state.Point, width float64, p Paint) {
	for i := 0; i < SprayCount(width); i++ {
		angle := r.rnd.Float64() * 2 * math.Pi
		dist := r.rnd.Float64() * width
		dot := state.Point{X: to.X + math.Cos(angle)*dist, Y: to.Y + math.Sin(angle)*dist}
		t.FillDot(dot, SprayDotRadius, p)
	}
}

func renderCalligraphy(_ *Renderer, t Target, from, to state.Point, width float64, p Paint) {
	t.StrokeLine(from, to, CalligraphyWidth(width, from.Dist(to)), p)
}

func renderGlow(_ *Renderer, t Target, from, to state.Point, width float64, p Paint) {
	p.ShadowBlur = width
	t.StrokeLine(from, to, width/2, p)
}

// SprayCount is the number of dots the spray brush lays per segment.
func SprayCount(width float64) int {
	if width <= 0 {
		return 0
	}
	return int(width)
}

// CalligraphyWidth thins the stroke with pointer speed, down to 20% of width.
func CalligraphyWidth(width, speed float64) float64 {
	if speed < 0 {
		speed = 0
	}
	return width * (1 - math.Min(speed/20, 0.8))
}
