// Package imagegen calls the external image-generation service.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultServerURL = "http://localhost:5000"
	DefaultTimeout   = 2 * time.Minute

	textToImagePath  = "/generate_image"
	imageToImagePath = "/image_to_image"
	canvasFilename   = "canvas-drawing.png"
	maxResponseSize  = 32 << 20
)

// ErrEmptyPrompt is returned before any request is made when the prompt is blank.
var ErrEmptyPrompt = errors.New("please enter a prompt")

// Mode selects the service endpoint.
type Mode uint8

const (
	TextToImage Mode = iota
	ImageToImage
)

func (m Mode) String() string {
	switch m {
	case TextToImage:
		return "text-to-image"
	case ImageToImage:
		return "image-to-image"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ServiceError is an error message reported by the service in a JSON body.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// StatusError is a non-2xx response without a readable error message.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP error! status: %d", e.StatusCode) }

// UnexpectedResponseError is a 2xx response that carries neither an image nor an error.
type UnexpectedResponseError struct {
	ContentType string
}

func (e *UnexpectedResponseError) Error() string {
	return "unexpected response type: " + e.ContentType
}

// Image is a generated image as returned by the service.
type Image struct {
	Data        []byte
	ContentType string
}

// Client talks to one image-generation server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "imagegen").Logger(),
	}
}

// Generate dispatches on mode. canvasPNG is only used for ImageToImage.
func (c *Client) Generate(ctx context.Context, mode Mode, prompt string, canvasPNG []byte) (*Image, error) {
	switch mode {
	case TextToImage:
		return c.TextToImage(ctx, prompt)
	case ImageToImage:
		return c.ImageToImage(ctx, prompt, canvasPNG)
	}
	return nil, fmt.Errorf("unknown generation %s", mode)
}

// TextToImage asks the service to draw prompt.
func (c *Client) TextToImage(ctx context.Context, prompt string) (*Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.post(ctx, textToImagePath, "application/json", bytes.NewReader(body))
}

// ImageToImage sends the canvas along with prompt.
func (c *Client) ImageToImage(ctx context.Context, prompt string, canvasPNG []byte) (*Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", canvasFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(canvasPNG); err != nil {
		return nil, fmt.Errorf("failed to write canvas: %w", err)
	}
	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("failed to write prompt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}
	return c.post(ctx, imageToImagePath, w.FormDataContentType(), &buf)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*Image, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("contentType", ct).
		Dur("took", time.Since(start)).
		Msg("image generation response")

	return classify(resp.StatusCode, ct, data)
}

type errorBody struct {
	Error string `json:"error"`
}

// classify maps a response onto an image or one of the package errors.
func classify(status int, contentType string, body []byte) (*Image, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	if status < 200 || status > 299 {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
			return nil, &ServiceError{StatusCode: status, Message: eb.Error}
		}
		return nil, &StatusError{StatusCode: status}
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return &Image{Data: body, ContentType: mediaType}, nil
	case mediaType == "application/json":
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
			return nil, &ServiceError{StatusCode: status, Message: eb.Error}
		}
	}
	return nil, &UnexpectedResponseError{ContentType: contentType}
}
