package classify

import (
	"testing"

	"github.com/toonslate/toonslate-backend/internal/geometry"
)

func TestClassifySplitsBubbleAndFreeText(t *testing.T) {
	bubbles := []geometry.BBox{geometry.New(0, 0, 100, 100)}
	texts := []geometry.BBox{
		geometry.New(10, 10, 90, 90),   // fully inside bubble
		geometry.New(500, 500, 600, 600), // far outside any bubble
	}

	bubbleRegions, freeRegions := Classify(texts, bubbles)

	if len(bubbleRegions) != 1 || bubbleRegions[0].Index != 0 || bubbleRegions[0].BubbleIndex != 0 {
		t.Fatalf("expected one bubble region at index 0 assigned to bubble 0, got %+v", bubbleRegions)
	}
	if len(freeRegions) != 1 || freeRegions[0].Index != 1 {
		t.Fatalf("expected one free region at index 1, got %+v", freeRegions)
	}
}

func TestClassifyNoBubblesAllFree(t *testing.T) {
	texts := []geometry.BBox{geometry.New(0, 0, 10, 10)}
	bubbleRegions, freeRegions := Classify(texts, nil)
	if len(bubbleRegions) != 0 {
		t.Fatalf("expected no bubble regions, got %+v", bubbleRegions)
	}
	if len(freeRegions) != 1 {
		t.Fatalf("expected one free region, got %+v", freeRegions)
	}
}

func TestClassifyPreservesOrderAndDoesNotMutateInputs(t *testing.T) {
	bubbles := []geometry.BBox{geometry.New(0, 0, 50, 50)}
	texts := []geometry.BBox{
		geometry.New(5, 5, 45, 45),
		geometry.New(200, 200, 210, 210),
		geometry.New(6, 6, 44, 44),
	}
	textsCopy := append([]geometry.BBox(nil), texts...)

	bubbleRegions, freeRegions := Classify(texts, bubbles)

	for i, b := range texts {
		if b != textsCopy[i] {
			t.Fatalf("input texts mutated at index %d", i)
		}
	}
	if len(bubbleRegions) != 2 || bubbleRegions[0].Index != 0 || bubbleRegions[1].Index != 2 {
		t.Fatalf("expected bubble regions at indices 0,2 in order, got %+v", bubbleRegions)
	}
	if len(freeRegions) != 1 || freeRegions[0].Index != 1 {
		t.Fatalf("expected free region at index 1, got %+v", freeRegions)
	}
}
