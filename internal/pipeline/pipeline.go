// pipeline.go - chains detection, classification, inpainting, translation
// and rendering into one per-image operation. Detect first, short-circuit on
// no text, clean/restore the art before translating so the translation call
// always reads the original pixels, then draw results into the regions the
// inpainting stage freed up. Backend errors are not caught here; the caller
// decides how a failed stage maps to job state.

package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/toonslate/toonslate-backend/internal/classify"
	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/detect"
	"github.com/toonslate/toonslate-backend/internal/geometry"
	"github.com/toonslate/toonslate-backend/internal/translate"
)

// RenderColor is the fill used for translated text. Webtoon lettering is
// conventionally black regardless of bubble shade, since the cleaner already
// guarantees a light backdrop under bubble text and the restorer preserves
// the artwork's own contrast under free text.
var RenderColor = color.Black

// Inpainter is the subset of *inpaint.RoutedInpainter the pipeline depends
// on, narrowed to an interface so tests can substitute a fake.
type Inpainter interface {
	Inpaint(ctx context.Context, src image.Image, bubbleRegions, freeRegions []classify.TextRegion, bubbleBoxes []geometry.BBox) (image.Image, map[int]geometry.BBox, error)
}

// Renderer is the subset of *render.Renderer the pipeline depends on.
type Renderer interface {
	Render(img draw.Image, text string, box geometry.BBox, textColor color.Color) error
}

// Pipeline wires one instance of each swappable backend into the per-image
// translate operation.
type Pipeline struct {
	Detector   detect.Backend
	Translator translate.Backend
	Inpainter  Inpainter
	Renderer   Renderer
}

// New builds a Pipeline from already-constructed backends.
func New(detector detect.Backend, translator translate.Backend, inpainter Inpainter, renderer Renderer) *Pipeline {
	return &Pipeline{Detector: detector, Translator: translator, Inpainter: inpainter, Renderer: renderer}
}

// TranslateImage runs the full pipeline against the image at imagePath and
// returns the translated result. If detection finds no text, the source
// image is returned unchanged without touching any other backend.
func (p *Pipeline) TranslateImage(ctx context.Context, tc *common.TraceContext, imagePath string) (image.Image, error) {
	var output detect.Output
	err := tc.Step("detect", func() error {
		var detectErr error
		output, detectErr = p.Detector.Detect(ctx, imagePath)
		return detectErr
	})
	if err != nil {
		return nil, err
	}

	if len(output.Texts) == 0 {
		var src image.Image
		err := tc.Step("load_image", func() error {
			var openErr error
			src, openErr = imaging.Open(imagePath)
			return openErr
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: decode source image: %w", err)
		}
		return src, nil
	}

	bubbleRegions, freeRegions := classify.Classify(output.Texts, output.Bubbles)

	var src image.Image
	err = tc.Step("load_image", func() error {
		var openErr error
		src, openErr = imaging.Open(imagePath)
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: decode source image: %w", err)
	}

	var cleaned image.Image
	var renderBoxes map[int]geometry.BBox
	err = tc.Step("inpaint", func() error {
		var inpaintErr error
		cleaned, renderBoxes, inpaintErr = p.Inpainter.Inpaint(ctx, src, bubbleRegions, freeRegions, output.Bubbles)
		return inpaintErr
	})
	if err != nil {
		return nil, err
	}

	regions := make([]translate.Region, len(output.Texts))
	for i, bbox := range output.Texts {
		regions[i] = translate.Region{BBox: bbox}
	}

	var results []translate.Result
	err = tc.Step("translate", func() error {
		var translateErr error
		results, translateErr = p.Translator.Translate(ctx, imagePath, regions)
		return translateErr
	})
	if err != nil {
		return nil, err
	}

	drawable, ok := cleaned.(draw.Image)
	if !ok {
		canvas := image.NewNRGBA(cleaned.Bounds())
		draw.Draw(canvas, canvas.Bounds(), cleaned, cleaned.Bounds().Min, draw.Src)
		drawable = canvas
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	err = tc.Step("render", func() error {
		for _, result := range results {
			box, ok := renderBoxes[result.Index]
			if !ok {
				continue
			}
			if renderErr := p.Renderer.Render(drawable, result.Translated, box, RenderColor); renderErr != nil {
				return renderErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return drawable, nil
}
