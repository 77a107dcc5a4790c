// Package assets hosts binary attachments on an external image service and
// hands back public URLs. The client speaks the Cloudinary unsigned-upload
// protocol: a multipart POST with the file and an upload preset.
package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrNotConfigured indicates the uploader was constructed without hosting
// credentials. Callers treat it like any other hosting failure.
var ErrNotConfigured = errors.New("assets: uploader not configured")

const defaultTimeout = 30 * time.Second

// Config describes the hosting destination. Endpoint overrides the derived
// Cloudinary URL and exists for tests.
type Config struct {
	CloudName    string
	UploadPreset string
	Endpoint     string
	HTTPClient   *http.Client
}

// Client uploads attachments and returns their hosted URLs.
type Client struct {
	endpoint     string
	uploadPreset string
	httpClient   *http.Client
}

// NewClient constructs a Client. Missing configuration is not an error here;
// Upload reports ErrNotConfigured instead, so a deployment without hosting
// credentials still starts and degrades gracefully.
func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.CloudName != "" {
		endpoint = fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/upload", cfg.CloudName)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		endpoint:     endpoint,
		uploadPreset: cfg.UploadPreset,
		httpClient:   httpClient,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

// Upload posts the attachment to the hosting service and returns its public
// URL. Exactly one attempt is made; there is no retry.
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if c.endpoint == "" || c.uploadPreset == "" {
		return "", ErrNotConfigured
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	filePart, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("assets: build upload form: %w", err)
	}
	if _, err := filePart.Write(data); err != nil {
		return "", fmt.Errorf("assets: build upload form: %w", err)
	}
	if err := form.WriteField("upload_preset", c.uploadPreset); err != nil {
		return "", fmt.Errorf("assets: build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("assets: build upload form: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("assets: build upload request: %w", err)
	}
	request.Header.Set("Content-Type", form.FormDataContentType())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("assets: upload %s: %w", filename, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return "", fmt.Errorf("assets: upload %s: status %d: %s", filename, response.StatusCode, detail)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(response.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("assets: decode upload response: %w", err)
	}
	if parsed.SecureURL != "" {
		return parsed.SecureURL, nil
	}
	if parsed.URL != "" {
		return parsed.URL, nil
	}
	return "", fmt.Errorf("assets: upload %s: response carried no URL", filename)
}
