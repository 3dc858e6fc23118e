// hfspace.go - HTTP-backed detection client with exponential-backoff retry.

package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/geometry"
	"github.com/toonslate/toonslate-backend/internal/ratelimit"
)

type wireDetectionResult struct {
	ImageSize struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"image_size"`
	Bubbles     [][]float64 `json:"bubbles"`
	BubbleConfs []float64   `json:"bubble_confs"`
	Texts       [][]float64 `json:"texts"`
	TextConfs   []float64   `json:"text_confs"`
}

// HFSpaceBackend calls a hosted detection inference endpoint over HTTP.
type HFSpaceBackend struct {
	Endpoint   string
	HTTPClient *http.Client
	MaxRetries int
	Limiter    *ratelimit.Limiter
}

// NewHFSpaceBackend builds an HFSpaceBackend. maxRetries <= 0 defaults to 3.
func NewHFSpaceBackend(endpoint string, timeout time.Duration, maxRetries int, limiter *ratelimit.Limiter) *HFSpaceBackend {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &HFSpaceBackend{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: timeout},
		MaxRetries: maxRetries,
		Limiter:    limiter,
	}
}

// Detect uploads the image at imagePath and parses the returned bounding
// boxes. Transient failures (non-2xx status, network error) are retried up
// to MaxRetries times with a 2^attempt second backoff; a malformed response
// body fails immediately without retry, since no amount of waiting fixes a
// schema mismatch.
func (b *HFSpaceBackend) Detect(ctx context.Context, imagePath string) (Output, error) {
	var lastErr error

	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return Output{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := b.Limiter.Wait(ctx); err != nil {
			return Output{}, err
		}

		out, err := b.callOnce(ctx, imagePath)
		if err == nil {
			return out, nil
		}
		if schemaErr, ok := err.(*schemaMismatchError); ok {
			return Output{}, &common.BackendError{
				Component: "detection",
				Category:  "schema_mismatch",
				Message:   "detection response did not match the expected schema",
				Retryable: false,
				Cause:     schemaErr.cause,
			}
		}
		lastErr = err
	}

	return Output{}, &common.BackendError{
		Component: "detection",
		Category:  "exhausted_retries",
		Message:   fmt.Sprintf("detection failed after %d attempts", b.MaxRetries+1),
		Retryable: false,
		Cause:     lastErr,
	}
}

type schemaMismatchError struct{ cause error }

func (e *schemaMismatchError) Error() string { return fmt.Sprintf("schema mismatch: %v", e.cause) }

func (b *HFSpaceBackend) callOnce(ctx context.Context, imagePath string) (Output, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return Output{}, fmt.Errorf("detect: open image: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return Output{}, fmt.Errorf("detect: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Output{}, fmt.Errorf("detect: copy image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Output{}, fmt.Errorf("detect: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, &body)
	if err != nil {
		return Output{}, fmt.Errorf("detect: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("detect: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("detect: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return Output{}, fmt.Errorf("detect: status %d: %s", resp.StatusCode, string(respBody))
	}

	var wire wireDetectionResult
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return Output{}, &schemaMismatchError{cause: err}
	}

	return toOutput(wire)
}

func toOutput(wire wireDetectionResult) (Output, error) {
	bubbles := make([]geometry.BBox, 0, len(wire.Bubbles))
	for _, coords := range wire.Bubbles {
		bb, err := geometry.FromList(coords)
		if err != nil {
			return Output{}, &schemaMismatchError{cause: err}
		}
		bubbles = append(bubbles, bb)
	}
	texts := make([]geometry.BBox, 0, len(wire.Texts))
	for _, coords := range wire.Texts {
		bb, err := geometry.FromList(coords)
		if err != nil {
			return Output{}, &schemaMismatchError{cause: err}
		}
		texts = append(texts, bb)
	}
	return Output{
		ImageSize:   ImageSize{Width: wire.ImageSize.Width, Height: wire.ImageSize.Height},
		Bubbles:     bubbles,
		BubbleConfs: wire.BubbleConfs,
		Texts:       texts,
		TextConfs:   wire.TextConfs,
	}, nil
}
