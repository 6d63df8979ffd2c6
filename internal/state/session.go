package state

import (
	"sync"

	"github.com/google/uuid"
)

// Session is the per-canvas context shared by the capture and relay components.
// Several sessions can coexist in one process.
type Session struct {
	id  string
	dpr float64

	mu   sync.RWMutex
	tool Tool
}

// NewSession creates a session with a fresh ID and the default tool.
// A dpr <= 0 means the ratio is resolved later from the display.
func NewSession(dpr float64) *Session {
	return &Session{
		id:   uuid.NewString(),
		dpr:  dpr,
		tool: DefaultTool(),
	}
}

func (s *Session) ID() string { return s.id }

// DevicePixelRatio returns the configured ratio, or 0 when it should come from the display.
func (s *Session) DevicePixelRatio() float64 { return s.dpr }

// Tool returns a copy of the current tool.
func (s *Session) Tool() Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

// SetColor changes the colour and switches the eraser off.
func (s *Session) SetColor(c string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool.Color = c
	s.tool.Eraser = false
}

func (s *Session) SetWidth(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool.Width = ClampWidth(w)
}

func (s *Session) SetStyle(style BrushStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool.Style = style
}

func (s *Session) SetEraser(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool.Eraser = on
}

// ToggleEraser flips the eraser and returns the new state.
func (s *Session) ToggleEraser() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool.Eraser = !s.tool.Eraser
	return s.tool.Eraser
}
