package inpaint

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/toonslate/toonslate-backend/internal/geometry"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestCleanFillsInpaintBBoxAndReturnsRenderBBox(t *testing.T) {
	img := solidImage(200, 200, color.White)
	cleaner := NewBubbleCleaner(0.2)
	bubble := geometry.New(0, 0, 200, 200)
	text := geometry.New(80, 80, 120, 120)

	renderBBox := cleaner.Clean(img, text, bubble)

	expectedInscribed := geometry.InscribedRect(bubble, geometry.InscribedRatio)
	if renderBBox.X1 != expectedInscribed.X1 || renderBBox.Y1 != expectedInscribed.Y1 {
		t.Fatalf("expected render bbox to equal bubble's inscribed rect, got %+v want %+v", renderBBox, expectedInscribed)
	}

	x1, y1, x2, y2 := text.ToTuple()
	c := img.NRGBAAt((x1+x2)/2, (y1+y2)/2)
	if c.A == 0 {
		t.Fatal("expected fill to have been applied")
	}
}

func TestCleanWithDegenerateIntersectionLeavesImageUntouched(t *testing.T) {
	img := solidImage(200, 200, color.White)
	cleaner := NewBubbleCleaner(0.2)
	bubble := geometry.New(0, 0, 50, 50)
	text := geometry.New(190, 190, 199, 199) // nowhere near the bubble's inscribed rect

	renderBBox := cleaner.Clean(img, text, bubble)
	if !renderBBox.IsValid() {
		t.Fatalf("expected a valid render bbox regardless of text position, got %+v", renderBBox)
	}
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if c := img.NRGBAAt(x, y); c != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
				t.Fatalf("expected image untouched, pixel (%d,%d) is %+v", x, y, c)
			}
		}
	}
}

func TestSampleBackgroundColorFallsBackWhenFewBrightPixels(t *testing.T) {
	img := solidImage(50, 50, color.RGBA{R: 50, G: 50, B: 50, A: 255})
	box := geometry.New(10, 10, 40, 40)
	c := sampleBackgroundColor(img, box)
	rgba, ok := c.(color.RGBA)
	if !ok {
		t.Fatalf("expected RGBA result, got %T", c)
	}
	if rgba.R != 50 || rgba.G != 50 || rgba.B != 50 {
		t.Fatalf("expected median of dark pixels since none are bright, got %+v", rgba)
	}
}

func TestSampleBackgroundColorPrefersBrightPixelsWhenEnough(t *testing.T) {
	img := solidImage(50, 50, color.RGBA{R: 240, G: 240, B: 240, A: 255})
	box := geometry.New(0, 0, 50, 50)
	c := sampleBackgroundColor(img, box)
	rgba, ok := c.(color.RGBA)
	if !ok {
		t.Fatalf("expected RGBA result, got %T", c)
	}
	if rgba.R != 240 {
		t.Fatalf("expected bright median, got %+v", rgba)
	}
}
