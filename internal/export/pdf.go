package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"
)

const pageMargin = 10.0 // mm

// WritePDF lays img out on one A4 landscape page, fitted inside the margins and centred.
// Transparent areas become white.
func WritePDF(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("export pdf: empty image")
	}

	flat := image.NewRGBA(b)
	draw.Draw(flat, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, b, img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}

	p := gofpdf.New("L", "mm", "A4", "")
	p.AddPage()
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader("canvas", opts, &buf)

	pw, ph := p.GetPageSize()
	x, y, iw, ih := fit(float64(b.Dx()), float64(b.Dy()), pw, ph, pageMargin)
	p.ImageOptions("canvas", x, y, iw, ih, false, opts, 0, "")

	if err := p.Output(w); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	return nil
}

// fit scales a w×h box into the page minus margin, keeping its aspect ratio, and
// returns its centred position and size.
func fit(w, h, pageW, pageH, margin float64) (x, y, fw, fh float64) {
	availW, availH := pageW-2*margin, pageH-2*margin
	scale := math.Min(availW/w, availH/h)
	fw, fh = w*scale, h*scale
	return (pageW - fw) / 2, (pageH - fh) / 2, fw, fh
}
