package imagegen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second, zerolog.Nop())
}

func TestTextToImage_Request(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate_image", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a cat in a hat", body["prompt"])

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})

	img, err := c.TextToImage(context.Background(), "a cat in a hat")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.Equal(t, "image/png", img.ContentType)
}

func TestImageToImage_Multipart(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image_to_image", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "make it pretty", r.FormValue("prompt"))

		f, hdr, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "canvas-drawing.png", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, pngBytes, data)

		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg"))
	})

	img, err := c.Generate(context.Background(), ImageToImage, "make it pretty", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)
}

func TestEmptyPromptSendsNothing(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) { hits.Add(1) })

	for _, p := range []string{"", "   ", "\n\t"} {
		_, err := c.TextToImage(context.Background(), p)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		_, err = c.ImageToImage(context.Background(), p, pngBytes)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}
	assert.Zero(t, hits.Load())
	assert.Equal(t, "please enter a prompt", ErrEmptyPrompt.Error())
}

func TestClassify(t *testing.T) {
	t.Run("service error on failure status", func(t *testing.T) {
		_, err := classify(500, "application/json", []byte(`{"error":"model overloaded"}`))
		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 500, se.StatusCode)
		assert.Equal(t, "model overloaded", err.Error())
	})

	t.Run("bare failure status", func(t *testing.T) {
		_, err := classify(502, "text/html", []byte("<html>bad gateway</html>"))
		var st *StatusError
		require.ErrorAs(t, err, &st)
		assert.Equal(t, "HTTP error! status: 502", err.Error())
	})

	t.Run("image with parameters", func(t *testing.T) {
		img, err := classify(200, "image/png; charset=binary", pngBytes)
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.ContentType)
	})

	t.Run("json error on success", func(t *testing.T) {
		_, err := classify(200, "application/json; charset=utf-8", []byte(`{"error":"nsfw prompt"}`))
		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "nsfw prompt", se.Message)
	})

	t.Run("json without image", func(t *testing.T) {
		_, err := classify(200, "application/json", []byte(`{"status":"queued"}`))
		var ue *UnexpectedResponseError
		require.ErrorAs(t, err, &ue)
	})

	t.Run("other content type", func(t *testing.T) {
		_, err := classify(200, "text/html", []byte("<html></html>"))
		var ue *UnexpectedResponseError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, "text/html", ue.ContentType)
		assert.Equal(t, "unexpected response type: text/html", err.Error())
	})
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, zerolog.Nop())
	_, err := c.TextToImage(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestGenerate_UnknownMode(t *testing.T) {
	c := NewClient("", 0, zerolog.Nop())
	_, err := c.Generate(context.Background(), Mode(9), "x", nil)
	assert.Error(t, err)
	assert.Equal(t, "mode(9)", Mode(9).String())
	assert.Equal(t, "text-to-image", TextToImage.String())
}
