package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"DoodleBoard/internal/editor"
	"DoodleBoard/internal/state"
)

// BoardWidget shows the editor's raster and feeds pointer input to it.
type BoardWidget struct {
	widget.BaseWidget
	ed   *editor.Editor
	size fyne.Size
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)

func NewBoardWidget(ed *editor.Editor) *BoardWidget {
	b := &BoardWidget{ed: ed}
	b.ExtendBaseWidget(b)
	ed.OnChange(func() { fyne.Do(b.Refresh) })
	return b
}

// bounds is the widget's rectangle in window coordinates right now.
func (b *BoardWidget) bounds() editor.Rect {
	var abs fyne.Position
	if app := fyne.CurrentApp(); app != nil {
		abs = app.Driver().AbsolutePositionFor(b)
	}
	size := b.Size()
	return editor.Rect{
		X:      float64(abs.X),
		Y:      float64(abs.Y),
		Width:  float64(size.Width),
		Height: float64(size.Height),
	}
}

func viewport(e fyne.PointEvent) state.Point {
	return state.Point{X: float64(e.AbsolutePosition.X), Y: float64(e.AbsolutePosition.Y)}
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		b.ed.PointerDown(b.bounds(), viewport(e.PointEvent))
	}
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		b.ed.PointerUp()
	}
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.ed.PointerMove(b.bounds(), viewport(e.PointEvent))
}

func (b *BoardWidget) DragEnd() { b.ed.PointerUp() }

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}

func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

func (b *BoardWidget) MouseOut() { b.ed.PointerLeave() }

// displayScale is the scale of the canvas the widget is shown on.
func (b *BoardWidget) displayScale() float64 {
	app := fyne.CurrentApp()
	if app == nil {
		return 1
	}
	if c := app.Driver().CanvasForObject(b); c != nil {
		return float64(c.Scale())
	}
	return 1
}

// resize re-attaches the surface when the widget's size changed.
func (b *BoardWidget) resize(size fyne.Size) {
	if size == b.size || size.Width < 1 || size.Height < 1 {
		return
	}
	b.size = size
	b.ed.Resize(float64(size.Width), float64(size.Height), b.displayScale())
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.background = canvas.NewRectangle(color.White)
	r.raster = canvas.NewImageFromImage(b.ed.Surface().Image())
	r.raster.FillMode = canvas.ImageFillStretch
	r.raster.ScaleMode = canvas.ImageScaleSmooth
	return r
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
	raster     *canvas.Image
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.raster}
}

func (r *boardWidgetRenderer) Refresh() {
	r.raster.Image = r.board.ed.Surface().Image()
	r.raster.Refresh()
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.raster.Resize(size)
	r.board.resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Destroy() {}
