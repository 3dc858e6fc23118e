// bubble.go - solid-fill bubble cleaning: sample the background color from a
// thin strip around the inpaint region, then flood-fill it solid so rendered
// text has a clean backdrop without a network round trip.

package inpaint

import (
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/toonslate/toonslate-backend/internal/geometry"
)

// edgeStripWidth is how many pixels deep the background-sampling strip is,
// measured inward from each edge of the inpaint box.
const edgeStripWidth = 5

// brightnessThreshold is the minimum average channel value (0-255) a sampled
// pixel must have to count as "background" rather than stray ink.
const brightnessThreshold = 180

// minBrightSamples is the number of bright pixels required before the median
// is taken over bright pixels only; below this the median falls back to all
// samples, since a thin strip may not contain enough clean background.
const minBrightSamples = 10

// BubbleCleaner paints over bubble text with a sampled background color and
// reports the rectangle translated text should later be rendered into.
type BubbleCleaner struct {
	PaddingRatio float64
}

// NewBubbleCleaner builds a BubbleCleaner. paddingRatio <= 0 defaults to 0.2.
func NewBubbleCleaner(paddingRatio float64) *BubbleCleaner {
	if paddingRatio <= 0 {
		paddingRatio = 0.2
	}
	return &BubbleCleaner{PaddingRatio: paddingRatio}
}

// Clean fills the portion of img covered by textBBox (expanded by
// PaddingRatio, intersected with the bubble's inscribed rectangle) with the
// bubble's sampled background color. It returns the rectangle in which
// translated text should be rendered — the bubble's inscribed rectangle,
// clipped to img's bounds.
func (c *BubbleCleaner) Clean(img draw.Image, textBBox, bubbleBBox geometry.BBox) geometry.BBox {
	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	inscribed := geometry.ClipToBounds(geometry.InscribedRect(bubbleBBox, geometry.InscribedRatio), w, h)
	expanded := geometry.Expand(textBBox, c.PaddingRatio)
	inpaintBBox := geometry.ClipToBounds(geometry.Intersect(expanded, inscribed), w, h)

	if inpaintBBox.IsValid() {
		fillColor := sampleBackgroundColor(img, inpaintBBox)
		fillRect(img, inpaintBBox, fillColor)
	}

	return inscribed
}

func sampleBackgroundColor(img image.Image, box geometry.BBox) color.Color {
	x1, y1, x2, y2 := box.ToTuple()

	type sample struct{ r, g, b uint8 }
	var all, bright []sample

	addRow := func(y int) {
		if y < y1 || y >= y2 {
			return
		}
		for x := x1; x < x2; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			s := sample{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
			all = append(all, s)
			if (int(s.r)+int(s.g)+int(s.b))/3 > brightnessThreshold {
				bright = append(bright, s)
			}
		}
	}
	addCol := func(x int) {
		if x < x1 || x >= x2 {
			return
		}
		for y := y1; y < y2; y++ {
			r, g, b, _ := img.At(x, y).RGBA()
			s := sample{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
			all = append(all, s)
			if (int(s.r)+int(s.g)+int(s.b))/3 > brightnessThreshold {
				bright = append(bright, s)
			}
		}
	}

	for i := 0; i < edgeStripWidth; i++ {
		addRow(y1 + i)
		addRow(y2 - 1 - i)
		addCol(x1 + i)
		addCol(x2 - 1 - i)
	}

	chosen := all
	if len(bright) >= minBrightSamples {
		chosen = bright
	}
	if len(chosen) == 0 {
		return color.White
	}

	medianOf := func(get func(sample) uint8) uint8 {
		vals := make([]int, len(chosen))
		for i, s := range chosen {
			vals[i] = int(get(s))
		}
		sort.Ints(vals)
		return uint8(vals[len(vals)/2])
	}

	return color.RGBA{
		R: medianOf(func(s sample) uint8 { return s.r }),
		G: medianOf(func(s sample) uint8 { return s.g }),
		B: medianOf(func(s sample) uint8 { return s.b }),
		A: 255,
	}
}

func fillRect(img draw.Image, box geometry.BBox, fill color.Color) {
	x1, y1, x2, y2 := box.ToTuple()
	draw.Draw(img, image.Rect(x1, y1, x2, y2), image.NewUniform(fill), image.Point{}, draw.Src)
}
