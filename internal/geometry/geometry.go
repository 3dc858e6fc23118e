// geometry.go - pure bbox algebra: overlap, clipping, inscribed rectangles, bubble routing.

package geometry

// InscribedRatio is the fraction of the bubble's half-extent used to build its
// inscribed rectangle. Intentionally below the ellipse's theoretical ceiling
// of ~0.707 to leave a safety margin against boundary artifacts.
const InscribedRatio = 0.65

// OverlapThreshold is the minimum overlap ratio required for a text region to
// be assigned to a bubble; ties and lesser overlaps mean "free text".
const OverlapThreshold = 0.5

// OverlapRatio returns area(a ∩ b) / area(a). Zero if a has no area or the
// two boxes don't intersect.
func OverlapRatio(a, b BBox) float64 {
	aArea := a.area()
	if aArea == 0 {
		return 0
	}
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	return (ix2 - ix1) * (iy2 - iy1) / aArea
}

// ClipToBounds clamps each coordinate independently to [0,W] / [0,H]. A box
// entirely outside the bounds collapses to a zero-area box rather than one
// with x1 > x2.
func ClipToBounds(b BBox, w, h float64) BBox {
	clamp := func(v, lo, hi float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	x1 := clamp(b.X1, 0, w)
	y1 := clamp(b.Y1, 0, h)
	x2 := clamp(b.X2, 0, w)
	y2 := clamp(b.Y2, 0, h)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// InscribedRect returns the axis-aligned rectangle centered on bubble's
// center, with half-width/height scaled by ratio.
func InscribedRect(bubble BBox, ratio float64) BBox {
	cx, cy := bubble.Center()
	hw := bubble.Width() / 2 * ratio
	hh := bubble.Height() / 2 * ratio
	return New(cx-hw, cy-hh, cx+hw, cy+hh)
}

// FindBubble returns the index of the bubble with the highest overlap ratio
// against text, provided that ratio strictly exceeds OverlapThreshold. The
// second return value is false when no bubble qualifies.
func FindBubble(text BBox, bubbles []BBox) (int, bool) {
	best := -1
	bestRatio := 0.0
	for i, bubble := range bubbles {
		ratio := OverlapRatio(text, bubble)
		if ratio > bestRatio {
			bestRatio = ratio
			best = i
		}
	}
	if best == -1 || bestRatio <= OverlapThreshold {
		return -1, false
	}
	return best, true
}

// Expand grows b by ratio of its own width/height on every side, centered on
// b's original center.
func Expand(b BBox, ratio float64) BBox {
	dw := b.Width() * ratio
	dh := b.Height() * ratio
	return New(b.X1-dw, b.Y1-dh, b.X2+dw, b.Y2+dh)
}

// Intersect returns the overlapping region of a and b. The result always has
// x1<=x2 and y1<=y2; boxes that don't overlap collapse to a zero-area box
// rather than one with inverted corners.
func Intersect(a, b BBox) BBox {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// CalcRenderBBox returns the safe area for drawing translated text: the
// bubble's inscribed rectangle when a bubble is present, otherwise the
// inpaint bbox unchanged.
func CalcRenderBBox(bubble *BBox, inpaintBBox BBox) BBox {
	if bubble == nil {
		return inpaintBBox
	}
	return InscribedRect(*bubble, InscribedRatio)
}
