// Package inference provides HTTP adapters for the text and vision
// model servers. The servers accept token or pixel tensors and return
// raw output tensors; pooling and normalisation happen in the encoders.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// Ensure the adapters implement the model ports.
var (
	_ driven.TextModel   = (*TextModel)(nil)
	_ driven.VisionModel = (*VisionModel)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:8600"
	DefaultTextModel  = "minilm-l6-v2"
	DefaultVisionName = "mobilenet-v3"
	DefaultTimeout    = 30 * time.Second
	DefaultHiddenSize = 384
	DefaultOutputSize = 512
)

// Config holds configuration for the model server adapters.
type Config struct {
	// BaseURL is the model server base URL (default: http://localhost:8600).
	BaseURL string

	// Model is the model identifier sent with each request.
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Size is the output width: hidden size for text models, feature
	// size for vision models (model-dependent).
	Size int
}

// tensorPayload is the wire form of a tensor.
type tensorPayload struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// textRequest is the text model request format.
type textRequest struct {
	Model string    `json:"model"`
	IDs   [][]int64 `json:"input_ids"`
	Mask  [][]int64 `json:"attention_mask"`
}

// visionRequest is the vision model request format.
type visionRequest struct {
	Model  string        `json:"model"`
	Pixels tensorPayload `json:"pixel_values"`
}

// modelResponse is the shared response format.
type modelResponse struct {
	Output tensorPayload `json:"output"`
}

// TextModel calls a transformer text model over HTTP.
type TextModel struct {
	client     *http.Client
	baseURL    string
	model      string
	hiddenSize int
}

// NewTextModel creates a text model client.
func NewTextModel(cfg Config) *TextModel {
	applyDefaults(&cfg, DefaultTextModel, DefaultHiddenSize)
	return &TextModel{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		hiddenSize: cfg.Size,
	}
}

// Forward runs the model on a padded token batch.
func (m *TextModel) Forward(ctx context.Context, ids, mask [][]int64) (driven.Tensor, error) {
	reqBody := textRequest{Model: m.model, IDs: ids, Mask: mask}
	return post(ctx, m.client, m.baseURL+"/v1/text/forward", reqBody)
}

// HiddenSize returns the model's output width.
func (m *TextModel) HiddenSize() int { return m.hiddenSize }

// Name returns the model identifier.
func (m *TextModel) Name() string { return m.model }

// VisionModel calls an image model over HTTP.
type VisionModel struct {
	client     *http.Client
	baseURL    string
	model      string
	outputSize int
}

// NewVisionModel creates a vision model client.
func NewVisionModel(cfg Config) *VisionModel {
	applyDefaults(&cfg, DefaultVisionName, DefaultOutputSize)
	return &VisionModel{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		outputSize: cfg.Size,
	}
}

// Forward runs the model on a [batch, channels, height, width] tensor.
func (m *VisionModel) Forward(ctx context.Context, pixels driven.Tensor) (driven.Tensor, error) {
	reqBody := visionRequest{
		Model:  m.model,
		Pixels: tensorPayload{Shape: pixels.Shape, Data: pixels.Data},
	}
	return post(ctx, m.client, m.baseURL+"/v1/vision/forward", reqBody)
}

// OutputSize returns the model's feature size.
func (m *VisionModel) OutputSize() int { return m.outputSize }

// Name returns the model identifier.
func (m *VisionModel) Name() string { return m.model }

func applyDefaults(cfg *Config, model string, size int) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Size == 0 {
		cfg.Size = size
	}
}

func post(ctx context.Context, client *http.Client, url string, reqBody any) (driven.Tensor, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return driven.Tensor{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return driven.Tensor{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return driven.Tensor{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return driven.Tensor{}, fmt.Errorf("model server error (status %d): failed to read response", resp.StatusCode)
		}
		return driven.Tensor{}, fmt.Errorf("model server error (status %d): %s", resp.StatusCode, string(body))
	}

	var modelResp modelResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelResp); err != nil {
		return driven.Tensor{}, fmt.Errorf("decode response: %w", err)
	}

	out := driven.Tensor{Shape: modelResp.Output.Shape, Data: modelResp.Output.Data}
	if out.Elems() != len(out.Data) {
		return driven.Tensor{}, fmt.Errorf("model server returned %d values for shape %v", len(out.Data), out.Shape)
	}
	return out, nil
}
