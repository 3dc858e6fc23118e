// erase.go - interactive mask-based re-inpainting on an already-translated
// result or a caller-supplied source image. translate_id is checked against
// the strict id pattern before it ever touches the keyed store, the mask is
// normalized to a single grayscale channel at the working image's own
// resolution, and the erase itself reuses the same background restorer the
// main pipeline uses for free text.

package erase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"

	"github.com/disintegration/imaging"

	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/jobstore"
	"github.com/toonslate/toonslate-backend/internal/storage"
)

// resultFilename mirrors the worker's own save convention for completed
// translate results, so the erase path can locate a result without needing
// to parse it back out of a public URL.
func resultFilename(translateID string) string {
	return "result/" + translateID + "_result.png"
}

// Inpainter is the subset of *inpaint.RoutedInpainter this service depends on.
type Inpainter interface {
	InpaintMask(ctx context.Context, img image.Image, mask image.Image) (image.Image, error)
}

// Service resolves and serves interactive erase requests.
type Service struct {
	Jobs      *jobstore.JobStore
	Objects   storage.Store
	Inpainter Inpainter
}

// New builds an erase Service.
func New(jobs *jobstore.JobStore, objects storage.Store, inpainter Inpainter) *Service {
	return &Service{Jobs: jobs, Objects: objects, Inpainter: inpainter}
}

// Erase resolves the working image (either sourceImageB64 directly, or the
// completed result for translateID), normalizes maskImageB64 against it, and
// returns the re-inpainted result as a base64-encoded PNG.
func (s *Service) Erase(ctx context.Context, translateID, maskImageB64, sourceImageB64 string) (string, error) {
	if !jobstore.ValidTranslateID(translateID) {
		return "", common.NewAPIError(common.CodeInvalidTranslateID, http.StatusBadRequest, "translate_id is not a valid identifier")
	}

	mask, err := decodeBase64PNG(maskImageB64)
	if err != nil {
		return "", common.WrapAPIError(common.CodeInpaintingFailed, http.StatusInternalServerError, "mask_image is not a valid PNG", err)
	}

	working, err := s.resolveWorkingImage(ctx, translateID, sourceImageB64)
	if err != nil {
		return "", err
	}

	normalized, err := normalizeMask(mask, working.Bounds())
	if err != nil {
		return "", common.NewAPIError(common.CodeInpaintingFailed, http.StatusInternalServerError, err.Error())
	}

	result, err := s.Inpainter.InpaintMask(ctx, working, normalized)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return "", fmt.Errorf("erase: encode result: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Service) resolveWorkingImage(ctx context.Context, translateID, sourceImageB64 string) (image.Image, error) {
	if sourceImageB64 != "" {
		img, err := decodeBase64PNG(sourceImageB64)
		if err != nil {
			return nil, common.WrapAPIError(common.CodeInpaintingFailed, http.StatusInternalServerError, "source_image is not a valid PNG", err)
		}
		return img, nil
	}

	rec, err := s.Jobs.GetTranslate(ctx, translateID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			return nil, common.NewAPIError(common.CodeTranslateNotFound, http.StatusNotFound, "translate job not found")
		}
		return nil, fmt.Errorf("erase: load translate record: %w", err)
	}
	if rec.Status != jobstore.StatusCompleted {
		return nil, common.NewAPIError(common.CodeTranslateNotComplete, http.StatusBadRequest, "translate job has not completed")
	}

	relPath := resultFilename(translateID)
	if !s.Objects.Exists(relPath) {
		return nil, common.NewAPIError(common.CodeResultImageNotFound, http.StatusNotFound, "result image not found")
	}
	data, err := s.Objects.Load(relPath)
	if err != nil {
		return nil, fmt.Errorf("erase: load result image: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("erase: decode result image: %w", err)
	}
	return img, nil
}

func decodeBase64PNG(encoded string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("erase: decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("erase: decode png: %w", err)
	}
	return img, nil
}

// normalizeMask converts any 2-D/single-channel/RGB/RGBA mask into a single
// grayscale channel thresholded at 1 (any non-zero pixel becomes opaque
// white), resized with nearest-neighbor to match targetBounds if the shapes
// differ.
func normalizeMask(mask image.Image, targetBounds image.Rectangle) (*image.Gray, error) {
	gray, err := toGray(mask)
	if err != nil {
		return nil, err
	}

	if gray.Bounds().Dx() != targetBounds.Dx() || gray.Bounds().Dy() != targetBounds.Dy() {
		resized := imaging.Resize(gray, targetBounds.Dx(), targetBounds.Dy(), imaging.NearestNeighbor)
		gray, err = toGray(resized)
		if err != nil {
			return nil, err
		}
	}

	out := image.NewGray(gray.Bounds())
	for y := gray.Bounds().Min.Y; y < gray.Bounds().Max.Y; y++ {
		for x := gray.Bounds().Min.X; x < gray.Bounds().Max.X; x++ {
			if gray.GrayAt(x, y).Y >= 1 {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out, nil
}

func toGray(img image.Image) (*image.Gray, error) {
	switch img.(type) {
	case *image.Gray, *image.Gray16, *image.RGBA, *image.NRGBA, *image.Paletted, *image.CMYK:
		bounds := img.Bounds()
		g := image.NewGray(bounds)
		draw.Draw(g, bounds, img, bounds.Min, draw.Src)
		return g, nil
	default:
		return nil, fmt.Errorf("erase: unsupported mask channel layout %T", img)
	}
}
