// Package editor ties the raster surface, brush renderer, history and session of one
// canvas together and turns pointer input into stroke segments.
package editor

import (
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"DoodleBoard/internal/brush"
	"DoodleBoard/internal/canvas"
	"DoodleBoard/internal/history"
	"DoodleBoard/internal/state"
)

// Emitter receives every locally produced segment. Emit must not block.
type Emitter interface {
	Emit(seg state.StrokeSegment)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(seg state.StrokeSegment)

func (f EmitterFunc) Emit(seg state.StrokeSegment) { f(seg) }

// Config holds the initial geometry of the editor.
type Config struct {
	Width, Height float64
	// DisplayScale is used as device pixel ratio when the session does not fix one.
	DisplayScale float64
	// Random feeds the spray brush; nil seeds randomly.
	Random rand.Source
}

// Editor owns one canvas. Raster and history mutations are serialized by mu.
type Editor struct {
	mu       sync.Mutex
	session  *state.Session
	surface  *canvas.Surface
	renderer *brush.Renderer
	history  *history.Manager
	log      zerolog.Logger

	emitter Emitter

	hookMu   sync.RWMutex
	onChange func()

	active bool
	last   state.Point
}

// New creates an editor with an empty history.
func New(session *state.Session, cfg Config, log zerolog.Logger) *Editor {
	e := &Editor{
		session:  session,
		renderer: brush.New(cfg.Random),
		log:      log.With().Str("component", "editor").Str("session", session.ID()).Logger(),
	}
	e.surface = canvas.New(cfg.Width, cfg.Height, e.resolveDPR(cfg.DisplayScale))
	e.history = history.New(&notifyingSurface{Surface: e.surface, changed: e.changed}, log)
	return e
}

func (e *Editor) resolveDPR(displayScale float64) float64 {
	if dpr := e.session.DevicePixelRatio(); dpr > 0 {
		return dpr
	}
	return displayScale
}

// notifyingSurface reports asynchronous restore paints.
type notifyingSurface struct {
	*canvas.Surface
	changed func()
}

func (n *notifyingSurface) Paint(img image.Image) {
	n.Surface.Paint(img)
	n.changed()
}

func (e *Editor) Session() *state.Session { return e.session }

func (e *Editor) Surface() *canvas.Surface { return e.surface }

func (e *Editor) History() *history.Manager { return e.history }

// SetEmitter sets where local segments are sent; nil stops sending.
func (e *Editor) SetEmitter(em Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitter = em
}

// OnChange registers a callback run after every raster change. It is called from
// whichever goroutine changed the raster and must not call back into the editor.
func (e *Editor) OnChange(fn func()) {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	e.onChange = fn
}

func (e *Editor) changed() {
	e.hookMu.RLock()
	fn := e.onChange
	e.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Clear wipes the surface and records the blank canvas in history.
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Invalidate()
	e.history.Wait()
	e.surface.Clear()
	e.commitLocked()
	e.changed()
}

// Undo steps back one snapshot. It reports whether the cursor moved.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
	ok := e.history.Undo()
	if ok {
		e.changed()
	}
	return ok
}

// Redo steps forward one snapshot. It reports whether the cursor moved.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
	ok := e.history.Redo()
	if ok {
		e.changed()
	}
	return ok
}

// Resize re-attaches the surface at the new logical size and repaints the current
// snapshot scaled to it.
func (e *Editor) Resize(width, height, displayScale float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Invalidate()
	e.history.Wait()
	e.surface.Attach(width, height, e.resolveDPR(displayScale))
	if e.history.Index() >= 0 {
		e.history.Restore(e.history.Index())
	}
	e.changed()
}

// ApplyRemote paints a peer's segment with the peer's tool settings. History is not touched.
func (e *Editor) ApplyRemote(seg state.StrokeSegment) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Wait()
	painted, err := e.renderer.Render(e.surface, seg)
	if err != nil {
		return err
	}
	if painted {
		e.changed()
	}
	return nil
}

// Settle blocks until pending snapshot restores have painted.
func (e *Editor) Settle() { e.history.Wait() }

func (e *Editor) commitLocked() {
	data, err := e.surface.EncodePNG()
	if err != nil {
		e.log.Error().Err(err).Msg("snapshot failed")
		return
	}
	w, h := e.surface.PixelSize()
	e.history.Commit(history.Snapshot{Data: data, Width: w, Height: h, TakenAt: time.Now()})
}
