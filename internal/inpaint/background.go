// background.go - remote neural inpainting for free-floating text: build one
// binary mask covering every free-text box, submit image+mask as base64 PNG
// to a hosted IOPaint endpoint, decode the restored PNG back.

package inpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"time"

	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/geometry"
)

// BackgroundRestorer inpaints free-text regions by calling a remote model.
type BackgroundRestorer struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewBackgroundRestorer builds a BackgroundRestorer.
func NewBackgroundRestorer(endpoint string, timeout time.Duration) *BackgroundRestorer {
	return &BackgroundRestorer{Endpoint: endpoint, HTTPClient: &http.Client{Timeout: timeout}}
}

type iopaintRequest struct {
	Image string `json:"image"`
	Mask  string `json:"mask"`
}

type iopaintResponse struct {
	Image string `json:"image"`
}

// Restore builds a binary mask from boxes (each clipped to img's bounds;
// boxes that clip to zero area are dropped) and returns the restored image.
// An empty boxes slice returns img unchanged without a network call.
func (r *BackgroundRestorer) Restore(ctx context.Context, img image.Image, boxes []geometry.BBox) (image.Image, error) {
	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	mask := image.NewGray(bounds)
	any := false
	for _, b := range boxes {
		clipped := geometry.ClipToBounds(b, w, h)
		if !clipped.IsValid() {
			continue
		}
		any = true
		x1, y1, x2, y2 := clipped.ToTuple()
		for y := y1; y < y2; y++ {
			for x := x1; x < x2; x++ {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	if !any {
		return img, nil
	}

	return r.RestoreMask(ctx, img, mask)
}

// RestoreMask submits img and an arbitrary mask (white = inpaint, black =
// keep) to the remote endpoint directly, bypassing bbox-based mask
// construction. Used by the erase path, where the caller supplies the mask.
func (r *BackgroundRestorer) RestoreMask(ctx context.Context, img image.Image, mask image.Image) (image.Image, error) {
	imageB64, err := encodePNGBase64(img)
	if err != nil {
		return nil, fmt.Errorf("inpaint: encode image: %w", err)
	}
	maskB64, err := encodePNGBase64(mask)
	if err != nil {
		return nil, fmt.Errorf("inpaint: encode mask: %w", err)
	}

	reqBody, err := json.Marshal(iopaintRequest{Image: imageB64, Mask: maskB64})
	if err != nil {
		return nil, fmt.Errorf("inpaint: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("inpaint: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, &common.BackendError{Component: "inpainting", Category: "transport", Message: "background restoration request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &common.BackendError{Component: "inpainting", Category: "http_status", Message: fmt.Sprintf("background restoration returned status %d", resp.StatusCode)}
	}

	var wire iopaintResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &common.BackendError{Component: "inpainting", Category: "schema_mismatch", Message: "background restoration response did not match the expected schema", Cause: err}
	}

	restored, err := decodeBase64PNG(wire.Image)
	if err != nil {
		return nil, &common.BackendError{Component: "inpainting", Category: "decode_failure", Message: "failed to decode restored image", Cause: err}
	}

	return restored, nil
}

func encodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeBase64PNG(encoded string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("png decode: %w", err)
	}
	return img, nil
}
