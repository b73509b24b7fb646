package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Model runs object detection on a single frame. One attempt per call; the
// sampler skips the tick on failure.
type Model interface {
	Detect(ctx context.Context, frame Frame) ([]Prediction, error)
}

// Loader loads the detection model once from the inference sidecar.
type Loader struct {
	baseURL    string
	httpClient *http.Client
}

// NewLoader creates a Loader for the detector sidecar at baseURL.
func NewLoader(baseURL string) *Loader {
	return &Loader{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Load verifies the sidecar has its model ready and returns a Model bound to
// it. Called once at session setup, not per frame.
func (l *Loader) Load(ctx context.Context) (Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v1/model", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reaching detector: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector model not ready (status %d)", resp.StatusCode)
	}

	return &remoteModel{
		baseURL:    l.baseURL,
		httpClient: l.httpClient,
	}, nil
}

// remoteModel delegates inference to the detector sidecar over HTTP.
type remoteModel struct {
	baseURL    string
	httpClient *http.Client
}

type detectRequest struct {
	Image  string `json:"image"` // base64 JPEG
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type detectResponse struct {
	Predictions []Prediction `json:"predictions"`
}

func (m *remoteModel) Detect(ctx context.Context, frame Frame) ([]Prediction, error) {
	body, err := json.Marshal(detectRequest{
		Image:  base64.StdEncoding.EncodeToString(frame.JPEG),
		Width:  frame.Width,
		Height: frame.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("running detection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding predictions: %w", err)
	}
	return out.Predictions, nil
}
