package editor

import (
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DoodleBoard/internal/state"
)

type collector struct{ segs []state.StrokeSegment }

func (c *collector) Emit(seg state.StrokeSegment) { c.segs = append(c.segs, seg) }

var origin = Rect{Width: 60, Height: 60}

func newEditor(t *testing.T) *Editor {
	t.Helper()
	return New(state.NewSession(0), Config{Width: 60, Height: 60, DisplayScale: 1, Random: rand.NewPCG(1, 1)}, zerolog.Nop())
}

func stroke(e *Editor, from, to state.Point) {
	e.PointerDown(origin, from)
	e.PointerMove(origin, to)
	e.PointerUp()
}

func alpha(e *Editor, x, y int) uint8 { return e.Surface().At(x, y).A }

func TestRectLocal(t *testing.T) {
	r := Rect{X: 100, Y: 40, Width: 300, Height: 200}
	assert.Equal(t, state.Point{X: 5, Y: 10}, r.Local(state.Point{X: 105, Y: 50}))
}

func TestPointerUpWithoutDown(t *testing.T) {
	e := newEditor(t)
	e.PointerUp()
	e.PointerLeave()
	assert.Equal(t, 0, e.History().Len())
	assert.Equal(t, -1, e.History().Index())
}

func TestMoveWithoutDownIgnored(t *testing.T) {
	e := newEditor(t)
	c := &collector{}
	e.SetEmitter(c)
	e.PointerMove(origin, state.Point{X: 10, Y: 10})
	assert.Empty(t, c.segs)
	assert.False(t, e.Drawing())
}

func TestStroke_RendersEmitsAndCommits(t *testing.T) {
	e := newEditor(t)
	c := &collector{}
	e.SetEmitter(c)

	bounds := Rect{X: 200, Y: 100, Width: 60, Height: 60}
	e.PointerDown(bounds, state.Point{X: 210, Y: 110})
	assert.True(t, e.Drawing())
	e.PointerMove(bounds, state.Point{X: 240, Y: 110})
	e.PointerUp()
	assert.False(t, e.Drawing())

	require.Len(t, c.segs, 2)
	assert.Nil(t, c.segs[0].PreviousPoint)
	assert.Equal(t, state.Point{X: 10, Y: 10}, c.segs[0].CurrentPoint)
	require.NotNil(t, c.segs[1].PreviousPoint)
	assert.Equal(t, state.Point{X: 10, Y: 10}, *c.segs[1].PreviousPoint)
	assert.Equal(t, state.Point{X: 40, Y: 10}, c.segs[1].CurrentPoint)
	assert.Equal(t, e.Session().ID(), c.segs[1].Sender)
	assert.Equal(t, state.DefaultColor, c.segs[1].Color)

	assert.GreaterOrEqual(t, alpha(e, 25, 10), uint8(250))
	assert.Equal(t, 1, e.History().Len())
	assert.Equal(t, 0, e.History().Index())
}

func TestToolReadPerEvent(t *testing.T) {
	e := newEditor(t)
	c := &collector{}
	e.SetEmitter(c)

	e.PointerDown(origin, state.Point{X: 5, Y: 5})
	e.PointerMove(origin, state.Point{X: 10, Y: 5})
	e.Session().SetColor("#ff0000")
	e.Session().SetWidth(12)
	e.PointerMove(origin, state.Point{X: 15, Y: 5})
	e.PointerUp()

	require.Len(t, c.segs, 3)
	assert.Equal(t, "#000000", c.segs[1].Color)
	assert.Equal(t, "#ff0000", c.segs[2].Color)
	assert.Equal(t, 12.0, c.segs[2].Width)
}

func TestUndoRedoSettlesRaster(t *testing.T) {
	e := newEditor(t)
	stroke(e, state.Point{X: 5, Y: 10}, state.Point{X: 55, Y: 10})
	stroke(e, state.Point{X: 5, Y: 40}, state.Point{X: 55, Y: 40})
	require.Equal(t, 1, e.History().Index())

	require.True(t, e.Undo())
	e.Settle()
	assert.GreaterOrEqual(t, alpha(e, 30, 10), uint8(200))
	assert.Less(t, alpha(e, 30, 40), uint8(50))

	require.True(t, e.Redo())
	e.Settle()
	assert.GreaterOrEqual(t, alpha(e, 30, 40), uint8(200))

	assert.False(t, e.Redo())
}

func TestUndoToFirstKeepsFirstStroke(t *testing.T) {
	e := newEditor(t)
	stroke(e, state.Point{X: 5, Y: 10}, state.Point{X: 55, Y: 10})
	assert.False(t, e.Undo())
	e.Settle()
	assert.GreaterOrEqual(t, alpha(e, 30, 10), uint8(250))
}

func TestClearCommitsSnapshot(t *testing.T) {
	e := newEditor(t)
	stroke(e, state.Point{X: 5, Y: 10}, state.Point{X: 55, Y: 10})
	e.Clear()

	assert.Equal(t, 2, e.History().Len())
	assert.Equal(t, uint8(0), alpha(e, 30, 10))

	require.True(t, e.Undo())
	e.Settle()
	assert.GreaterOrEqual(t, alpha(e, 30, 10), uint8(200))
}

func TestResizeRepaintsCurrentSnapshot(t *testing.T) {
	e := newEditor(t)
	stroke(e, state.Point{X: 5, Y: 30}, state.Point{X: 55, Y: 30})

	e.Resize(120, 120, 1)
	e.Settle()
	w, h := e.Surface().PixelSize()
	assert.Equal(t, 120, w)
	assert.Equal(t, 120, h)
	assert.GreaterOrEqual(t, alpha(e, 60, 60), uint8(200))
	assert.Equal(t, uint8(0), alpha(e, 60, 20))
}

func TestResize_SessionRatioWins(t *testing.T) {
	e := New(state.NewSession(2), Config{Width: 10, Height: 10, DisplayScale: 3}, zerolog.Nop())
	assert.Equal(t, 2.0, e.Surface().DevicePixelRatio())
	e.Resize(20, 20, 1)
	assert.Equal(t, 2.0, e.Surface().DevicePixelRatio())

	e = New(state.NewSession(0), Config{Width: 10, Height: 10, DisplayScale: 3}, zerolog.Nop())
	assert.Equal(t, 3.0, e.Surface().DevicePixelRatio())
}

func TestApplyRemote_LeavesHistory(t *testing.T) {
	e := newEditor(t)
	from := state.Point{X: 5, Y: 20}
	err := e.ApplyRemote(state.StrokeSegment{PreviousPoint: &from, CurrentPoint: state.Point{X: 50, Y: 20}, Color: "#000", Width: 4})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, alpha(e, 30, 20), uint8(250))
	assert.Equal(t, 0, e.History().Len())

	err = e.ApplyRemote(state.StrokeSegment{PreviousPoint: &from, Color: "nope", Width: 4})
	assert.Error(t, err)
}

func TestApplyRemote_FarEndpointStaysCheap(t *testing.T) {
	e := newEditor(t)
	from := state.Point{X: 10, Y: 10}
	seg := state.StrokeSegment{PreviousPoint: &from, CurrentPoint: state.Point{X: 100000, Y: 100000}, Color: "#000", Width: 4}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	require.NoError(t, e.ApplyRemote(seg))
	runtime.ReadMemStats(&after)

	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20))
	assert.GreaterOrEqual(t, alpha(e, 40, 40), uint8(250))
}

func TestTwoEditorsShareStrokes(t *testing.T) {
	a, b := newEditor(t), newEditor(t)
	a.SetEmitter(EmitterFunc(func(seg state.StrokeSegment) {
		require.NoError(t, b.ApplyRemote(seg))
	}))
	a.Session().SetWidth(4)

	stroke(a, state.Point{X: 10, Y: 10}, state.Point{X: 20, Y: 20})

	for _, p := range [][2]int{{10, 10}, {15, 15}, {20, 20}} {
		assert.GreaterOrEqual(t, alpha(b, p[0], p[1]), uint8(250), "%v", p)
	}
	assert.Equal(t, uint8(0), alpha(b, 20, 10))
	assert.Equal(t, 0, b.History().Len())
}

func TestOnChange(t *testing.T) {
	e := newEditor(t)
	var n atomic.Int32
	e.OnChange(func() { n.Add(1) })

	stroke(e, state.Point{X: 5, Y: 10}, state.Point{X: 55, Y: 10})
	assert.Equal(t, int32(1), n.Load())

	e.Clear()
	assert.Equal(t, int32(2), n.Load())
}
