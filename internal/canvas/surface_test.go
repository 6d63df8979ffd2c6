package canvas

import (
	"bytes"
	"image/color"
	"image/png"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DoodleBoard/internal/brush"
	"DoodleBoard/internal/state"
)

var black = brush.Paint{Color: color.NRGBA{A: 255}}

func assertOpaque(t *testing.T, a uint8) {
	t.Helper()
	assert.GreaterOrEqual(t, a, uint8(250))
}

func TestAttach_DevicePixelRatio(t *testing.T) {
	s := New(100, 50, 2)
	w, h := s.PixelSize()
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	lw, lh := s.Size()
	assert.Equal(t, 100.0, lw)
	assert.Equal(t, 50.0, lh)

	s.Attach(10.7, 0, -1)
	w, h = s.PixelSize()
	assert.Equal(t, 10, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, 1.0, s.DevicePixelRatio())
}

func TestStrokeLine_PaintsSegment(t *testing.T) {
	s := New(40, 40, 1)
	s.StrokeLine(state.Point{X: 10, Y: 10}, state.Point{X: 20, Y: 20}, 4, black)

	assertOpaque(t, s.At(15, 15).A)
	assertOpaque(t, s.At(11, 11).A)
	assert.Equal(t, uint8(0), s.At(30, 30).A)
	assert.Equal(t, uint8(0), s.At(15, 25).A)
	assert.Equal(t, uint8(0), s.At(25, 15).A)
}

func TestStrokeLine_DeviceScale(t *testing.T) {
	s := New(40, 40, 2)
	s.StrokeLine(state.Point{X: 5, Y: 20}, state.Point{X: 35, Y: 20}, 2, black)

	// logical y=20 is device y=40, half width 2 device px.
	assertOpaque(t, s.At(40, 40).A)
	assert.Equal(t, uint8(0), s.At(40, 46).A)
}

func TestStrokeLine_ClippedAtEdges(t *testing.T) {
	s := New(20, 20, 1)
	s.StrokeLine(state.Point{X: -50, Y: 10}, state.Point{X: 70, Y: 10}, 6, black)
	assertOpaque(t, s.At(0, 10).A)
	assertOpaque(t, s.At(19, 10).A)

	s.StrokeLine(state.Point{X: 500, Y: 500}, state.Point{X: 600, Y: 600}, 6, black)
}

func allocatedDuring(fn func()) uint64 {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	fn()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestStrokeLine_LongSegmentBoundedByRaster(t *testing.T) {
	s := New(60, 60, 1)
	glow := brush.Paint{Color: color.NRGBA{A: 255}, ShadowBlur: 40}

	alloc := allocatedDuring(func() {
		s.StrokeLine(state.Point{X: 10, Y: 10}, state.Point{X: 1 << 20, Y: 1 << 20}, 80, glow)
		s.StrokeLine(state.Point{X: -(1 << 20), Y: 30}, state.Point{X: 1 << 20, Y: 30}, 4, black)
	})
	assert.Less(t, alloc, uint64(32<<20))

	assertOpaque(t, s.At(50, 50).A)
	assertOpaque(t, s.At(2, 30).A)
	assertOpaque(t, s.At(58, 30).A)
}

func TestStrokeLine_OutsideRasterPaintsNothing(t *testing.T) {
	s := New(20, 20, 1)
	s.StrokeLine(state.Point{X: 5000, Y: -5000}, state.Point{X: 9000, Y: -9000}, 8, black)
	s.FillDot(state.Point{X: -400, Y: 10}, 6, black)
	for _, px := range s.Image().Pix {
		require.Zero(t, px)
	}
}

func TestClipSegment(t *testing.T) {
	a, b, ok := clipSegment(state.Point{X: -10, Y: 5}, state.Point{X: 30, Y: 5}, 0, 0, 20, 20)
	require.True(t, ok)
	assert.Equal(t, state.Point{X: 0, Y: 5}, a)
	assert.Equal(t, state.Point{X: 20, Y: 5}, b)

	a, b, ok = clipSegment(state.Point{X: 2, Y: 3}, state.Point{X: 4, Y: 6}, 0, 0, 20, 20)
	require.True(t, ok)
	assert.Equal(t, state.Point{X: 2, Y: 3}, a)
	assert.Equal(t, state.Point{X: 4, Y: 6}, b)

	_, _, ok = clipSegment(state.Point{X: 30, Y: 0}, state.Point{X: 40, Y: 40}, 0, 0, 20, 20)
	assert.False(t, ok)

	_, _, ok = clipSegment(state.Point{X: 25, Y: 25}, state.Point{X: 25, Y: 25}, 0, 0, 20, 20)
	assert.False(t, ok)
}

func TestFillDot(t *testing.T) {
	s := New(20, 20, 1)
	s.FillDot(state.Point{X: 10, Y: 10}, 3, brush.Paint{Color: color.NRGBA{R: 255, A: 255}})

	c := s.At(10, 10)
	assert.GreaterOrEqual(t, c.R, uint8(250))
	assert.Zero(t, c.G)
	assertOpaque(t, c.A)
	assert.Equal(t, uint8(0), s.At(15, 10).A)
}

func TestEraseRemovesAlpha(t *testing.T) {
	s := New(40, 40, 1)
	s.StrokeLine(state.Point{X: 5, Y: 20}, state.Point{X: 35, Y: 20}, 8, black)
	assertOpaque(t, s.At(20, 20).A)

	erase := black
	erase.Erase = true
	s.StrokeLine(state.Point{X: 15, Y: 20}, state.Point{X: 25, Y: 20}, 12, erase)

	assert.Equal(t, uint8(0), s.At(20, 20).A)
	assertOpaque(t, s.At(8, 20).A)
}

func TestGlowHaloDoesNotLeak(t *testing.T) {
	s := New(120, 60, 1)
	glow := brush.Paint{Color: color.NRGBA{B: 255, A: 255}, ShadowBlur: 8}
	s.StrokeLine(state.Point{X: 10, Y: 20}, state.Point{X: 50, Y: 20}, 4, glow)

	assertOpaque(t, s.At(30, 20).A)
	halo := s.At(30, 25).A
	assert.Greater(t, halo, uint8(0))
	assert.Less(t, halo, uint8(255))

	s.StrokeLine(state.Point{X: 80, Y: 40}, state.Point{X: 110, Y: 40}, 4, black)
	assertOpaque(t, s.At(95, 40).A)
	assert.Equal(t, uint8(0), s.At(95, 45).A)
}

func TestSnapshotPaintRoundTrip(t *testing.T) {
	s := New(40, 40, 1)
	s.StrokeLine(state.Point{X: 10, Y: 10}, state.Point{X: 30, Y: 10}, 6, black)
	data, err := s.EncodePNG()
	require.NoError(t, err)

	s.Clear()
	require.Equal(t, uint8(0), s.At(20, 10).A)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	s.Paint(img)
	assertOpaque(t, s.At(20, 10).A)
	assert.Equal(t, uint8(0), s.At(20, 30).A)
}

func TestPaintScalesToLogicalSize(t *testing.T) {
	s := New(40, 40, 1)
	s.FillDot(state.Point{X: 10, Y: 10}, 4, black)
	data, err := s.EncodePNG()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	s.Attach(80, 80, 1)
	s.Paint(img)
	assertOpaque(t, s.At(20, 20).A)
	assert.Equal(t, uint8(0), s.At(60, 60).A)
}

func TestImageIsCopy(t *testing.T) {
	s := New(10, 10, 1)
	img := s.Image()
	img.Pix[3] = 255
	assert.Equal(t, uint8(0), s.At(0, 0).A)
}

func TestConcurrentStrokes(t *testing.T) {
	s := New(100, 100, 1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			y := float64(10 + i*10)
			s.StrokeLine(state.Point{X: 5, Y: y}, state.Point{X: 95, Y: y}, 2, black)
			_ = s.Image()
		}(i)
	}
	wg.Wait()
	assertOpaque(t, s.At(50, 40).A)
}
