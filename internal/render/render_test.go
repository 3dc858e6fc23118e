package render

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"golang.org/x/image/font/basicfont"

	"github.com/toonslate/toonslate-backend/internal/geometry"
)

func TestWrapTextPacksWordsGreedily(t *testing.T) {
	lines := wrapText("the quick brown fox jumps", 10)
	for _, line := range lines {
		if len([]rune(line)) > 10 && strings.ContainsRune(line, ' ') {
			t.Fatalf("line exceeds maxChars and isn't a single overlong word: %q", line)
		}
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one line")
	}
	joined := ""
	for i, l := range lines {
		if i > 0 {
			joined += " "
		}
		joined += l
	}
	if joined != "the quick brown fox jumps" {
		t.Fatalf("expected words preserved in order, got %q", joined)
	}
}

func TestWrapTextEmptyInput(t *testing.T) {
	if lines := wrapText("", 10); lines != nil {
		t.Fatalf("expected nil lines for empty text, got %v", lines)
	}
}

func TestWrapTextKeepsOverlongWordOnItsOwnLine(t *testing.T) {
	lines := wrapText("supercalifragilisticexpialidocious", 5)
	if len(lines) != 1 || lines[0] != "supercalifragilisticexpialidocious" {
		t.Fatalf("expected single overlong word unsplit, got %v", lines)
	}
}

func TestForceWrapBreaksAtExactWidth(t *testing.T) {
	lines := forceWrap("abcdefghij", 3)
	want := []string{"abc", "def", "ghi", "j"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestMeasureBlockGrowsWithMoreLines(t *testing.T) {
	face := basicfont.Face7x13
	_, h1 := measureBlock(face, []string{"one line"}, 13)
	_, h2 := measureBlock(face, []string{"one line", "two lines"}, 13)
	if h2 <= h1 {
		t.Fatalf("expected block height to grow with more lines: %v vs %v", h1, h2)
	}
}

func TestDrawLinesPaintsPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	box := geometry.New(0, 0, 100, 100)
	drawLines(img, basicfont.Face7x13, []string{"HI"}, box, 13, color.Black)

	painted := false
	for y := 0; y < 100 && !painted; y++ {
		for x := 0; x < 100; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				painted = true
				break
			}
		}
	}
	if !painted {
		t.Fatal("expected drawLines to paint at least one pixel")
	}
}
