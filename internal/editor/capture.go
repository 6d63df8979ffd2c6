package editor

import "DoodleBoard/internal/state"

// Rect is the surface's bounding rectangle in viewport coordinates at the time of an event.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Local translates a viewport position into surface-local coordinates.
func (r Rect) Local(viewport state.Point) state.Point {
	return state.Point{X: viewport.X - r.X, Y: viewport.Y - r.Y}
}

// Drawing reports whether a stroke is in progress.
func (e *Editor) Drawing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// PointerDown starts a stroke at the given viewport position.
func (e *Editor) PointerDown(bounds Rect, viewport state.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Wait()

	p := bounds.Local(viewport)
	e.active = true
	e.last = p
	e.emitLocked(e.session.Tool().Segment(nil, p))
}

// PointerMove extends the active stroke. Moves without an active stroke are ignored.
func (e *Editor) PointerMove(bounds Rect, viewport state.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}

	p := bounds.Local(viewport)
	prev := e.last
	seg := e.session.Tool().Segment(&prev, p)
	painted, err := e.renderer.Render(e.surface, seg)
	if err != nil {
		e.log.Warn().Err(err).Msg("local segment rejected")
		return
	}
	e.emitLocked(seg)
	e.last = p
	if painted {
		e.changed()
	}
}

// PointerUp ends the active stroke and commits a snapshot. Without an active stroke it
// does nothing.
func (e *Editor) PointerUp() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.active = false
	e.commitLocked()
}

// PointerLeave ends the stroke like PointerUp.
func (e *Editor) PointerLeave() { e.PointerUp() }

func (e *Editor) emitLocked(seg state.StrokeSegment) {
	if e.emitter == nil {
		return
	}
	seg.Sender = e.session.ID()
	e.emitter.Emit(seg)
}
