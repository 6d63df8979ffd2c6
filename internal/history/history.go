// Package history keeps the bounded linear undo/redo sequence of canvas snapshots.
package history

import (
	"bytes"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Capacity is the maximum number of snapshots kept; older ones are evicted.
const Capacity = 50

// Snapshot is an encoded full raster. It is never mutated after creation.
type Snapshot struct {
	Data    []byte
	Width   int
	Height  int
	TakenAt time.Time
}

// Surface is what restores paint on.
type Surface interface {
	Clear()
	Paint(img image.Image)
}

// Decoder turns snapshot bytes into an image.
type Decoder func(data []byte) (image.Image, error)

// DecodePNG is the default Decoder.
func DecodePNG(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}

// Manager owns the snapshot sequence and its cursor. Callers serialize Commit, Undo,
// Redo and Restore; decodes started by Restore run on their own goroutines.
type Manager struct {
	surface Surface
	decode  Decoder
	log     zerolog.Logger

	snapshots []Snapshot
	index     int

	mu         sync.Mutex // guards generation and paints against stale decodes
	generation uint64
	pending    sync.WaitGroup
}

// New creates an empty manager painting restores on surface.
func New(surface Surface, log zerolog.Logger) *Manager {
	return &Manager{
		surface: surface,
		decode:  DecodePNG,
		log:     log.With().Str("component", "history").Logger(),
		index:   -1,
	}
}

// SetDecoder replaces the snapshot decoder.
func (m *Manager) SetDecoder(d Decoder) { m.decode = d }

// Len returns the number of stored snapshots.
func (m *Manager) Len() int { return len(m.snapshots) }

// Index returns the cursor, -1 when empty.
func (m *Manager) Index() int { return m.index }

// CanUndo reports whether an older snapshot exists.
func (m *Manager) CanUndo() bool { return m.index > 0 }

// CanRedo reports whether a newer snapshot exists.
func (m *Manager) CanRedo() bool { return m.index < len(m.snapshots)-1 }

// At returns the snapshot at i.
func (m *Manager) At(i int) (Snapshot, bool) {
	if i < 0 || i >= len(m.snapshots) {
		return Snapshot{}, false
	}
	return m.snapshots[i], true
}

// Current returns the snapshot under the cursor.
func (m *Manager) Current() (Snapshot, bool) { return m.At(m.index) }

// Commit drops snapshots after the cursor, appends s and advances the cursor,
// evicting the oldest snapshot beyond Capacity.
func (m *Manager) Commit(s Snapshot) {
	clear(m.snapshots[m.index+1:])
	m.snapshots = append(m.snapshots[:m.index+1], s)
	m.index++
	if len(m.snapshots) > Capacity {
		m.snapshots[0] = Snapshot{}
		m.snapshots = m.snapshots[1:]
		m.index = min(m.index, Capacity-1)
	}
	m.log.Debug().Int("index", m.index).Int("len", len(m.snapshots)).Msg("snapshot committed")
}

// Undo moves the cursor back and repaints. It returns false when there is nothing to undo.
func (m *Manager) Undo() bool {
	if m.index <= 0 {
		return false
	}
	m.index--
	m.Restore(m.index)
	return true
}

// Redo moves the cursor forward and repaints. It returns false at the newest snapshot.
func (m *Manager) Redo() bool {
	if m.index >= len(m.snapshots)-1 {
		return false
	}
	m.index++
	m.Restore(m.index)
	return true
}

// Restore clears the surface and, once decoded, paints snapshot i scaled to the
// surface. A missing index only clears. A decode overtaken by a later Restore is dropped.
func (m *Manager) Restore(i int) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.surface.Clear()
	m.mu.Unlock()

	snap, ok := m.At(i)
	if !ok {
		return
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		img, err := m.decode(snap.Data)
		if err != nil {
			m.log.Warn().Err(err).Int("index", i).Msg("snapshot decode failed")
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation {
			return
		}
		m.surface.Paint(img)
	}()
}

// Invalidate makes in-flight restores stale so they do not paint over newer strokes.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
}

// Wait blocks until every started decode has finished.
func (m *Manager) Wait() { m.pending.Wait() }
