package ui

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"DoodleBoard/internal/gallery"
	"DoodleBoard/internal/imagegen"
)

var modeLabels = map[string]imagegen.Mode{
	"Text to image":  imagegen.TextToImage,
	"Image to image": imagegen.ImageToImage,
}

// sidebar is the image generation panel.
type sidebar struct {
	app *App

	mode    imagegen.Mode
	prompt  *widget.Entry
	run     *widget.Button
	save    *widget.Button
	errText *widget.Label
	preview *canvas.Image

	result       *imagegen.Image
	resultPrompt string
	resultMode   imagegen.Mode
	cancel       context.CancelFunc
}

func (a *App) newSidebar() fyne.CanvasObject {
	s := &sidebar{app: a, mode: imagegen.TextToImage}

	modes := widget.NewRadioGroup([]string{"Text to image", "Image to image"}, func(label string) {
		s.mode = modeLabels[label]
	})
	modes.SetSelected("Text to image")

	s.prompt = widget.NewMultiLineEntry()
	s.prompt.SetPlaceHolder("Describe the image...")
	s.prompt.Wrapping = fyne.TextWrapWord

	s.errText = widget.NewLabel("")
	s.errText.Wrapping = fyne.TextWrapWord
	s.errText.Importance = widget.DangerImportance

	s.preview = canvas.NewImageFromImage(nil)
	s.preview.FillMode = canvas.ImageFillContain
	s.preview.SetMinSize(fyne.NewSize(240, 240))

	s.run = widget.NewButton("Generate", s.generate)
	s.run.Importance = widget.HighImportance
	s.save = widget.NewButton("Save image", s.saveResult)
	s.save.Disable()

	return container.NewVBox(
		widget.NewLabelWithStyle("AI image", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		modes,
		s.prompt,
		s.run,
		s.errText,
		s.preview,
		s.save,
	)
}

func (s *sidebar) generate() {
	a := s.app
	if a.gen == nil {
		s.errText.SetText("image generation is not configured")
		return
	}
	prompt := s.prompt.Text
	mode := s.mode

	var canvasPNG []byte
	if mode == imagegen.ImageToImage {
		data, err := a.editor.Surface().EncodePNG()
		if err != nil {
			s.errText.SetText(err.Error())
			return
		}
		canvasPNG = data
	}

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.errText.SetText("")
	s.run.Disable()
	s.run.SetText("Generating...")

	go func() {
		img, err := a.gen.Generate(ctx, mode, prompt, canvasPNG)
		var decoded image.Image
		if err == nil {
			decoded, _, err = image.Decode(bytes.NewReader(img.Data))
		}

		fyne.Do(func() {
			s.run.Enable()
			s.run.SetText("Generate")
			if err != nil {
				a.log.Warn().Err(err).Str("mode", mode.String()).Msg("image generation failed")
				s.errText.SetText(err.Error())
				return
			}
			s.result = img
			s.resultPrompt = prompt
			s.resultMode = mode
			s.preview.Image = decoded
			s.preview.Refresh()
			s.save.Enable()
		})
	}()
}

func (s *sidebar) saveResult() {
	if s.result == nil {
		return
	}
	a := s.app
	path, err := a.exporter.SaveGenerated(s.result.Data)
	if err != nil {
		a.setStatus("Save failed: " + err.Error())
		return
	}
	a.record(&gallery.Entry{Kind: gallery.KindAI, Path: path, Prompt: s.resultPrompt, Mode: s.resultMode.String()})
	a.setStatus("Saved " + path)
}
