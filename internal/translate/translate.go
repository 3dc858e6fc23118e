// translate.go - translation backend contract (C7).

package translate

import (
	"context"

	"github.com/toonslate/toonslate-backend/internal/geometry"
)

// Region is one piece of text to translate, located in the original image.
type Region struct {
	BBox geometry.BBox
}

// Result is a translated region, carrying the index of the Region it answers
// in the slice passed to Translate.
type Result struct {
	Index      int
	Translated string
}

// Backend translates the text found inside a set of bounding boxes, reading
// the source pixels from the original (uncleaned) image.
type Backend interface {
	// Translate crops imagePath at each region's bbox and returns one Result
	// per region that the backend could read, in ascending index order.
	// Regions with a non-positive-area bbox may be passed in; they are
	// skipped, so no crop is made and no Result is returned for them.
	Translate(ctx context.Context, imagePath string, regions []Region) ([]Result, error)
}
