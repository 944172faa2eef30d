package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Classifier detects objects in an image.
type Classifier interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// HTTPClassifier calls an external inference endpoint over HTTP. The
// endpoint accepts raw image bytes and responds with a JSON document
// listing detections.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPClassifier returns a classifier backed by the given inference
// endpoint URL.
func NewHTTPClassifier(endpoint string, logger *slog.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Detect sends the image to the inference endpoint and decodes the
// detections. A non-2xx response or malformed body is an error; the
// caller decides whether to fail open or closed.
func (c *HTTPClassifier) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, string(body))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}

	c.logger.Debug("classifier call complete",
		"detections", len(out.Detections),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out.Detections, nil
}
