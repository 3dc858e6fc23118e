// render.go - fits translated text into a bubble or free-text region: search
// decreasing font sizes for one whose wrapped block fits the target box,
// falling back to a forced character-wrap at the smallest size if nothing
// fits cleanly.

package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/toonslate/toonslate-backend/internal/geometry"
)

// maxFontSize caps the search even when a box is tall enough to ask for more;
// text this large reads as a layout bug, not a caption.
const maxFontSize = 40

// minFontSize is the floor the search tries before giving up and forcing a
// character wrap at this size regardless of fit.
const minFontSize = 8

// lineHeightMultiple converts a font size into the vertical spacing between
// baselines.
const lineHeightMultiple = 1.4

// fitFraction is the maximum fraction of the target box a wrapped block may
// occupy to be accepted; leaves breathing room against the box edges.
const fitFraction = 0.95

// wrapWidthFraction is the fraction of box width used when computing how many
// characters fit per line, leaving margin for proportional-font variance
// around the average-char-width estimate.
const wrapWidthFraction = 0.8

// forceWrapWidthFraction is the looser fraction used only by the fallback
// forced wrap, which accepts overflow in exchange for always producing output.
const forceWrapWidthFraction = 0.9

// sampleText is measured to estimate the average glyph width of a face; its
// length is the divisor for that estimate.
const sampleText = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789,."

// Renderer draws wrapped, centered text into image regions using a single
// TTF/OTF font loaded once and cached per pixel size.
type Renderer struct {
	fontPath string
	mu       sync.Mutex
	faces    map[int]font.Face
	fontBody *opentype.Font
}

// NewRenderer loads the font at fontPath (a .ttf or .ttc file) and prepares
// an empty per-size face cache.
func NewRenderer(fontPath string) (*Renderer, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("render: read font: %w", err)
	}

	var parsed *opentype.Font
	if collection, err := opentype.ParseCollection(data); err == nil {
		parsed, err = collection.Font(0)
		if err != nil {
			return nil, fmt.Errorf("render: read font collection: %w", err)
		}
	} else {
		parsed, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("render: parse font: %w", err)
		}
	}

	return &Renderer{fontPath: fontPath, faces: make(map[int]font.Face), fontBody: parsed}, nil
}

func (r *Renderer) faceForSize(size int) (font.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if face, ok := r.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(r.fontBody, &opentype.FaceOptions{
		Size: float64(size),
		DPI:  72,
	})
	if err != nil {
		return nil, fmt.Errorf("render: build face at size %d: %w", size, err)
	}
	r.faces[size] = face
	return face, nil
}

// Render draws text wrapped and centered inside box on img, searching font
// sizes from min(box.Height()/2, maxFontSize) down to minFontSize for the
// largest size whose wrapped block fits within fitFraction of box. If no
// size fits, it force-wraps at minFontSize using a looser width fraction so
// translated text is never silently dropped.
func (r *Renderer) Render(img draw.Image, text string, box geometry.BBox, textColor color.Color) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	startSize := int(math.Min(box.Height()/2, maxFontSize))
	if startSize < minFontSize {
		startSize = minFontSize
	}

	for size := startSize; size >= minFontSize; size-- {
		face, err := r.faceForSize(size)
		if err != nil {
			return err
		}
		avgCharWidth := font.MeasureString(face, sampleText).Ceil() / len(sampleText)
		if avgCharWidth <= 0 {
			avgCharWidth = 1
		}
		maxChars := int(wrapWidthFraction * box.Width() / float64(avgCharWidth))
		if maxChars < 1 {
			maxChars = 1
		}

		lines := wrapText(text, maxChars)
		blockWidth, blockHeight := measureBlock(face, lines, size)

		if blockWidth <= fitFraction*box.Width() && blockHeight <= fitFraction*box.Height() {
			drawLines(img, face, lines, box, size, textColor)
			return nil
		}
	}

	face, err := r.faceForSize(minFontSize)
	if err != nil {
		return err
	}
	avgCharWidth := font.MeasureString(face, sampleText).Ceil() / len(sampleText)
	if avgCharWidth <= 0 {
		avgCharWidth = 1
	}
	maxChars := int(forceWrapWidthFraction * box.Width() / float64(avgCharWidth))
	if maxChars < 1 {
		maxChars = 1
	}
	lines := forceWrap(text, maxChars)
	drawLines(img, face, lines, box, minFontSize, textColor)
	return nil
}

// wrapText greedily packs whitespace-delimited words into lines no longer
// than maxChars. A single word longer than maxChars occupies its own line
// unbroken, since splitting mid-word is the fallback's job, not this one's.
func wrapText(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if len([]rune(candidate)) <= maxChars {
			current = candidate
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	lines = append(lines, current)
	return lines
}

// forceWrap breaks text every maxChars runes regardless of word boundaries.
func forceWrap(text string, maxChars int) []string {
	runes := []rune(text)
	var lines []string
	for i := 0; i < len(runes); i += maxChars {
		end := i + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		lines = append(lines, string(runes[i:end]))
	}
	return lines
}

func measureBlock(face font.Face, lines []string, size int) (width, height float64) {
	lineHeight := float64(size) * lineHeightMultiple
	height = lineHeight * float64(len(lines))
	for _, line := range lines {
		w := font.MeasureString(face, line).Ceil()
		if float64(w) > width {
			width = float64(w)
		}
	}
	return width, height
}

func drawLines(img draw.Image, face font.Face, lines []string, box geometry.BBox, size int, textColor color.Color) {
	lineHeight := float64(size) * lineHeightMultiple
	blockWidth, blockHeight := measureBlock(face, lines, size)

	cx, cy := box.Center()
	top := cy - blockHeight/2
	ascent := float64(face.Metrics().Ascent.Ceil())

	for i, line := range lines {
		lineWidth := float64(font.MeasureString(face, line).Ceil())
		x := cx - lineWidth/2
		y := top + float64(i)*lineHeight + ascent

		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(textColor),
			Face: face,
			Dot: fixed.Point26_6{
				X: fixed.I(int(math.Round(x))),
				Y: fixed.I(int(math.Round(y))),
			},
		}
		d.DrawString(line)
	}
}
