package state

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownStyle is returned when a brush style name is not one of the known styles.
var ErrUnknownStyle = errors.New("unknown brush style")

// Point is a position in surface-local logical pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// BrushStyle selects how a segment is painted.
type BrushStyle uint8

const (
	Normal BrushStyle = iota
	Spray
	Calligraphy
	Glow

	// NumStyles is the number of brush styles. Tables indexed by BrushStyle use it as length.
	NumStyles
)

var styleNames = [NumStyles]string{
	Normal:      "normal",
	Spray:       "spray",
	Calligraphy: "calligraphy",
	Glow:        "glow",
}

// Styles lists every brush style in display order.
func Styles() []BrushStyle {
	return []BrushStyle{Normal, Spray, Calligraphy, Glow}
}

func (s BrushStyle) String() string {
	if s < NumStyles {
		return styleNames[s]
	}
	return fmt.Sprintf("style(%d)", uint8(s))
}

// Valid reports whether s is one of the known styles.
func (s BrushStyle) Valid() bool { return s < NumStyles }

// ParseBrushStyle maps a wire name ("normal", "spray", ...) to a BrushStyle.
func ParseBrushStyle(name string) (BrushStyle, error) {
	for i, n := range styleNames {
		if strings.EqualFold(n, name) {
			return BrushStyle(i), nil
		}
	}
	return Normal, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

func (s BrushStyle) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStyle, uint8(s))
	}
	return []byte(styleNames[s]), nil
}

func (s *BrushStyle) UnmarshalText(b []byte) error {
	v, err := ParseBrushStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// StrokeSegment is the unit exchanged between peers. A nil PreviousPoint starts a
// new subpath at CurrentPoint instead of connecting to the previous point.
type StrokeSegment struct {
	PreviousPoint *Point     `json:"previousPoint,omitempty"`
	CurrentPoint  Point      `json:"currentPoint"`
	Color         string     `json:"color"`
	Width         float64    `json:"brushSize"`
	Style         BrushStyle `json:"brushType"`
	Eraser        bool       `json:"isEraser"`
	Sender        string     `json:"sender,omitempty"`
}

// StartsPath reports whether the segment only moves the pen.
func (s StrokeSegment) StartsPath() bool { return s.PreviousPoint == nil }

// Validate checks the fields a renderer depends on.
func (s StrokeSegment) Validate() error {
	if !s.Style.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownStyle, uint8(s.Style))
	}
	if s.Width < 0 || s.Width > MaxWidth || math.IsNaN(s.Width) {
		return fmt.Errorf("invalid brush size %v", s.Width)
	}
	if !inRange(s.CurrentPoint) || (s.PreviousPoint != nil && !inRange(*s.PreviousPoint)) {
		return errors.New("invalid segment coordinates")
	}
	return nil
}

// MaxCoordinate bounds the absolute value of segment coordinates.
const MaxCoordinate = 1 << 20

func inRange(p Point) bool {
	return math.Abs(p.X) <= MaxCoordinate && math.Abs(p.Y) <= MaxCoordinate
}

// Tool is the drawing tool selection of one session.
type Tool struct {
	Color  string
	Width  float64
	Style  BrushStyle
	Eraser bool
}

const (
	MinWidth     = 1
	MaxWidth     = 80
	DefaultWidth = 6
	DefaultColor = "#000000"
)

// DefaultTool returns the tool a new session starts with.
func DefaultTool() Tool {
	return Tool{Color: DefaultColor, Width: DefaultWidth, Style: Normal}
}

// Segment builds a segment carrying the tool settings.
func (t Tool) Segment(prev *Point, curr Point) StrokeSegment {
	return StrokeSegment{
		PreviousPoint: prev,
		CurrentPoint:  curr,
		Color:         t.Color,
		Width:         t.Width,
		Style:         t.Style,
		Eraser:        t.Eraser,
	}
}

// ClampWidth limits w to the range offered by the size slider.
func ClampWidth(w float64) float64 {
	return math.Max(MinWidth, math.Min(MaxWidth, w))
}
