// Package export writes the canvas and generated images to disk.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var stampReplacer = strings.NewReplacer(":", "-", ".", "-")

// stamp formats t like an ISO timestamp with millisecond precision, made filename safe.
func stamp(t time.Time) string {
	return stampReplacer.Replace(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// DrawingFilename names a canvas export, e.g. drawing_2024-05-01T10-20-30-456Z.png.
func DrawingFilename(t time.Time, ext string) string {
	return "drawing_" + stamp(t) + ext
}

// GeneratedFilename names a saved generated image.
func GeneratedFilename(t time.Time) string {
	return fmt.Sprintf("ai-generated-%d.png", t.UnixMilli())
}

// Exporter saves files into Dir.
type Exporter struct {
	Dir string
	Now func() time.Time
}

// New creates an exporter writing into dir, "." when empty.
func New(dir string) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{Dir: dir, Now: time.Now}
}

// SaveDrawing writes img as PNG and returns the file path.
func (e *Exporter) SaveDrawing(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode drawing: %w", err)
	}
	return e.write(DrawingFilename(e.Now(), ".png"), buf.Bytes())
}

// SaveGenerated writes image bytes returned by the generation service.
func (e *Exporter) SaveGenerated(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no generated image to save")
	}
	return e.write(GeneratedFilename(e.Now()), data)
}

// SavePDF writes img on a single landscape page.
func (e *Exporter) SavePDF(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, img); err != nil {
		return "", err
	}
	return e.write(DrawingFilename(e.Now(), ".pdf"), buf.Bytes())
}

func (e *Exporter) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// WritePNG encodes img to w.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
