// detect.go - detection backend contract and result types (C6).

package detect

import (
	"context"

	"github.com/toonslate/toonslate-backend/internal/geometry"
)

// ImageSize is the pixel dimensions of the image the detection ran against.
type ImageSize struct {
	Width  int
	Height int
}

// Output is the result of a detection call: absolute-pixel bboxes for
// bubbles and text, with parallel confidence arrays.
type Output struct {
	ImageSize   ImageSize
	Bubbles     []geometry.BBox
	BubbleConfs []float64
	Texts       []geometry.BBox
	TextConfs   []float64
}

// Backend finds bubble and text bounding boxes in an image. Implementations
// may wrap a remote, possibly-cold inference endpoint.
type Backend interface {
	Detect(ctx context.Context, imagePath string) (Output, error)
}
