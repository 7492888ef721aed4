package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Remote calls a model server exposing POST /infer.
type Remote struct {
	url    string
	client *http.Client
	scale  float64
	prompt string
	logger *zap.Logger
}

type inferRequest struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"image_base64"`
}

type inferResponse struct {
	Text string `json:"text"`
}

// NewRemote returns a Remote detector for the server at baseURL. A timeout
// of 0 means no per-request limit.
func NewRemote(baseURL string, timeout time.Duration, scale float64, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		url:    strings.TrimRight(baseURL, "/") + "/infer",
		client: &http.Client{Timeout: timeout},
		scale:  scale,
		prompt: DefaultPrompt,
		logger: logger.With(zap.String("component", "detector"), zap.String("backend", "remote")),
	}
}

// Analyze uploads the downscaled screenshot and parses the proposed regions.
func (r *Remote) Analyze(ctx context.Context, img image.Image) (*Analysis, error) {
	data, err := encodePNG(img, r.scale)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(inferRequest{
		Prompt:      r.prompt,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.Debug("Sending inference request", zap.String("url", r.url), zap.Int("png_bytes", len(data)))
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote detector: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("remote detector: decode response: %w", err)
	}
	r.logger.Debug("Model response", zap.String("text", out.Text))

	regions, err := ParseRegions(out.Text)
	if err != nil {
		return nil, fmt.Errorf("remote detector: %w", err)
	}
	return Split(regions), nil
}
