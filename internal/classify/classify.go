// classify.go - splits detected text regions into bubble text and free text
// by argmax overlap against the detected speech bubbles.

package classify

import "github.com/toonslate/toonslate-backend/internal/geometry"

// TextRegion is a detected text box together with its original index in the
// detection output, so downstream stages can report results back in order.
// BubbleIndex is the index into the bubbleBoxes slice passed to Classify that
// this region was assigned to, or -1 for free text.
type TextRegion struct {
	Index       int
	BBox        geometry.BBox
	BubbleIndex int
}

// Classify partitions textBoxes into bubble-enclosed regions and free-floating
// regions, using the bubble each text box overlaps the most (if any overlap
// clears geometry.OverlapThreshold). Input order is preserved within each
// output slice; neither input slice is mutated.
func Classify(textBoxes []geometry.BBox, bubbleBoxes []geometry.BBox) (bubbleRegions, freeRegions []TextRegion) {
	for i, text := range textBoxes {
		if bubbleIdx, ok := geometry.FindBubble(text, bubbleBoxes); ok {
			bubbleRegions = append(bubbleRegions, TextRegion{Index: i, BBox: text, BubbleIndex: bubbleIdx})
		} else {
			freeRegions = append(freeRegions, TextRegion{Index: i, BBox: text, BubbleIndex: -1})
		}
	}
	return bubbleRegions, freeRegions
}
