// Package ui is the desktop front end: the drawing board, its toolbar and the image
// generation sidebar.
package ui

import (
	"context"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"DoodleBoard/internal/editor"
	"DoodleBoard/internal/export"
	"DoodleBoard/internal/gallery"
	"DoodleBoard/internal/imagegen"
)

// Options are the collaborators the window works with. Gen and Gallery may be nil.
type Options struct {
	Editor    *editor.Editor
	Exporter  *export.Exporter
	Gen       *imagegen.Client
	Gallery   *gallery.Store
	ShareLink string
	Log       zerolog.Logger
}

// App is one DoodleBoard window.
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	board   *BoardWidget
	status  *widget.Label

	editor   *editor.Editor
	exporter *export.Exporter
	gen      *imagegen.Client
	gallery  *gallery.Store
	log      zerolog.Logger
}

// New builds the window without showing it.
func New(opts Options) *App {
	a := &App{
		fyneApp:  app.NewWithID("io.doodleboard"),
		editor:   opts.Editor,
		exporter: opts.Exporter,
		gen:      opts.Gen,
		gallery:  opts.Gallery,
		log:      opts.Log.With().Str("component", "ui").Logger(),
	}
	if a.exporter == nil {
		a.exporter = export.New("")
	}

	a.window = a.fyneApp.NewWindow("DoodleBoard")
	a.window.Resize(fyne.NewSize(1200, 720))

	a.status = widget.NewLabel("Ready")
	if opts.ShareLink != "" {
		a.status.SetText("Share: " + opts.ShareLink)
	}
	a.board = NewBoardWidget(a.editor)

	split := container.NewHSplit(a.board, a.newSidebar())
	split.Offset = 0.75
	a.window.SetContent(container.NewBorder(a.newToolbar(), nil, nil, nil, split))
	a.addShortcuts()
	return a
}

// Run shows the window and blocks until it is closed.
func (a *App) Run() {
	a.window.ShowAndRun()
}

func (a *App) addShortcuts() {
	c := a.window.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { a.editor.Undo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { a.editor.Redo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { a.saveDrawing() })
}

// setStatus may be called from any goroutine.
func (a *App) setStatus(text string) {
	fyne.Do(func() { a.status.SetText(text) })
}

func (a *App) saveDrawing() {
	a.editor.Settle()
	path, err := a.exporter.SaveDrawing(a.editor.Surface().Image())
	if err != nil {
		a.log.Error().Err(err).Msg("save drawing failed")
		a.setStatus("Save failed: " + err.Error())
		return
	}
	a.record(&gallery.Entry{Kind: gallery.KindPNG, Path: path})
	a.setStatus("Saved " + path)
}

func (a *App) savePDF() {
	a.editor.Settle()
	path, err := a.exporter.SavePDF(a.editor.Surface().Image())
	if err != nil {
		a.log.Error().Err(err).Msg("pdf export failed")
		a.setStatus("Export failed: " + err.Error())
		return
	}
	a.record(&gallery.Entry{Kind: gallery.KindPDF, Path: path})
	a.setStatus("Exported " + path)
}

func (a *App) record(e *gallery.Entry) {
	if a.gallery == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.gallery.Record(ctx, e); err != nil {
		a.log.Warn().Err(err).Str("path", e.Path).Msg("gallery record failed")
	}
}
