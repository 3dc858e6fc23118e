// bbox.go - bounding box type shared by detection, classification, inpainting and rendering.

package geometry

import (
	"fmt"
	"math"
)

// BBox is an axis-aligned bounding box in absolute pixel coordinates.
// Construction always normalizes: inverted corners are swapped and negative
// coordinates clamp to zero.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// New builds a normalized BBox from four coordinates.
func New(x1, y1, x2, y2 float64) BBox {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return BBox{
		X1: math.Max(0, x1),
		Y1: math.Max(0, y1),
		X2: math.Max(0, x2),
		Y2: math.Max(0, y2),
	}
}

// FromList builds a BBox from a 4-element [x1,y1,x2,y2] slice.
func FromList(coords []float64) (BBox, error) {
	if len(coords) != 4 {
		return BBox{}, fmt.Errorf("geometry: bbox requires 4 coordinates, got %d", len(coords))
	}
	for i, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return BBox{}, fmt.Errorf("geometry: coordinate %d is NaN or Inf", i)
		}
	}
	return New(coords[0], coords[1], coords[2], coords[3]), nil
}

// ToList returns the box as [x1,y1,x2,y2].
func (b BBox) ToList() []float64 {
	return []float64{b.X1, b.Y1, b.X2, b.Y2}
}

// ToTuple rounds each coordinate to the nearest integer, for pixel indexing.
func (b BBox) ToTuple() (x1, y1, x2, y2 int) {
	return int(math.Round(b.X1)), int(math.Round(b.Y1)), int(math.Round(b.X2)), int(math.Round(b.Y2))
}

// Width returns x2 - x1.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns y2 - y1.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Center returns the midpoint of the box.
func (b BBox) Center() (cx, cy float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// IsValid reports whether the box has strictly positive area.
func (b BBox) IsValid() bool {
	return b.Width() > 0 && b.Height() > 0
}

func (b BBox) area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}
