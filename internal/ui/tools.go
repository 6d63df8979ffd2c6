package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"DoodleBoard/internal/brush"
	"DoodleBoard/internal/state"
)

var palette = []color.NRGBA{
	{A: 255},                 // Black
	{R: 255, A: 255},         // Red
	{G: 255, A: 255},         // Green
	{B: 255, A: 255},         // Blue
	{R: 255, G: 255, A: 255}, // Yellow
}

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func(color.Color)
}

func newColorSwatch(c color.Color, tapped func(color.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(32, 32))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// newToolbar builds the tool row: colours, size, style, eraser, history and export actions.
func (a *App) newToolbar() fyne.CanvasObject {
	session := a.editor.Session()

	eraser := widget.NewCheck("Eraser", func(on bool) { session.SetEraser(on) })
	eraser.SetChecked(session.Tool().Eraser)

	pickColor := func(c color.Color) {
		session.SetColor(brush.Hex(c))
		eraser.SetChecked(false)
	}
	swatches := container.NewHBox()
	for _, c := range palette {
		swatches.Add(newColorSwatch(c, pickColor))
	}
	custom := widget.NewButtonWithIcon("", theme.ColorPaletteIcon(), func() {
		picker := dialog.NewColorPicker("Brush colour", "Pick a colour", pickColor, a.window)
		picker.Advanced = true
		picker.Show()
	})

	size := widget.NewSlider(state.MinWidth, state.MaxWidth)
	size.Step = 1
	size.SetValue(session.Tool().Width)
	size.OnChanged = session.SetWidth
	sizeBox := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), size)

	names := make([]string, 0, state.NumStyles)
	for _, s := range state.Styles() {
		names = append(names, s.String())
	}
	style := widget.NewSelect(names, func(name string) {
		if s, err := state.ParseBrushStyle(name); err == nil {
			session.SetStyle(s)
		}
	})
	style.SetSelected(session.Tool().Style.String())

	actions := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { a.editor.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { a.editor.Redo() }),
		widget.NewToolbarAction(theme.DeleteIcon(), a.editor.Clear),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), a.saveDrawing),
		widget.NewToolbarAction(theme.FileIcon(), a.savePDF),
	)

	return container.NewHBox(
		widget.NewLabel("Color:"),
		swatches,
		custom,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sizeBox,
		widget.NewSeparator(),
		style,
		eraser,
		widget.NewSeparator(),
		actions,
		layout.NewSpacer(),
		a.status,
	)
}
