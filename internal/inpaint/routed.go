// routed.go - routes each text region to the cleaning strategy that fits it:
// bubble text gets the cheap solid-fill cleaner, free text gets the network
// call to the background restorer, and the two passes are merged back into
// one image keyed by original detection index.

package inpaint

import (
	"context"
	"image"
	"image/draw"

	"github.com/toonslate/toonslate-backend/internal/classify"
	"github.com/toonslate/toonslate-backend/internal/geometry"
)

// RoutedInpainter composes a BubbleCleaner and a BackgroundRestorer behind
// one entry point.
type RoutedInpainter struct {
	Cleaner  *BubbleCleaner
	Restorer *BackgroundRestorer
}

// NewRoutedInpainter builds a RoutedInpainter.
func NewRoutedInpainter(cleaner *BubbleCleaner, restorer *BackgroundRestorer) *RoutedInpainter {
	return &RoutedInpainter{Cleaner: cleaner, Restorer: restorer}
}

// Inpaint cleans bubbleRegions in place (cheap, local) and restores
// freeRegions via the background restorer (one network call covering every
// free box), returning the merged image and a render bbox for every region,
// keyed by its original detection index. A free region whose box clips to
// zero area inside the image gets no render bbox.
func (r *RoutedInpainter) Inpaint(ctx context.Context, src image.Image, bubbleRegions, freeRegions []classify.TextRegion, bubbleBoxes []geometry.BBox) (image.Image, map[int]geometry.BBox, error) {
	working := cloneToNRGBA(src)
	renderBoxes := make(map[int]geometry.BBox, len(bubbleRegions)+len(freeRegions))

	for _, region := range bubbleRegions {
		var bubble geometry.BBox
		if region.BubbleIndex >= 0 && region.BubbleIndex < len(bubbleBoxes) {
			bubble = bubbleBoxes[region.BubbleIndex]
		}
		renderBoxes[region.Index] = r.Cleaner.Clean(working, region.BBox, bubble)
	}

	freeBoxes := make([]geometry.BBox, len(freeRegions))
	for i, region := range freeRegions {
		freeBoxes[i] = region.BBox
	}

	bounds := working.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	for _, region := range freeRegions {
		clipped := geometry.ClipToBounds(region.BBox, w, h)
		if !clipped.IsValid() {
			continue
		}
		renderBoxes[region.Index] = clipped
	}

	restored, err := r.Restorer.Restore(ctx, working, freeBoxes)
	if err != nil {
		return nil, nil, err
	}

	return restored, renderBoxes, nil
}

// InpaintMask delegates straight to the background restorer with a
// caller-supplied mask, for the erase path where the mask is not derived
// from detection output.
func (r *RoutedInpainter) InpaintMask(ctx context.Context, img image.Image, mask image.Image) (image.Image, error) {
	return r.Restorer.RestoreMask(ctx, img, mask)
}

func cloneToNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
