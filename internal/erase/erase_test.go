package erase

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/jobstore"
	"github.com/toonslate/toonslate-backend/internal/storage"
	"github.com/toonslate/toonslate-backend/internal/store"
)

func encodeB64PNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type fakeInpainter struct {
	result      image.Image
	err         error
	receivedImg image.Image
	receivedMsk image.Image
}

func (f *fakeInpainter) InpaintMask(ctx context.Context, img, mask image.Image) (image.Image, error) {
	f.receivedImg = img
	f.receivedMsk = mask
	if f.result != nil {
		return f.result, f.err
	}
	return img, f.err
}

func newTestDeps(t *testing.T) (*jobstore.JobStore, *storage.LocalStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobs := jobstore.New(store.FromRedis(rdb), 2*time.Hour)
	objects := storage.NewLocalStore(t.TempDir(), "http://localhost")
	return jobs, objects
}

func TestEraseRejectsPathTraversalTranslateID(t *testing.T) {
	jobs, objects := newTestDeps(t)
	svc := New(jobs, objects, &fakeInpainter{})
	mask := encodeB64PNG(t, solidGray(10, 10, 0))

	_, err := svc.Erase(context.Background(), "../../../etc/passwd", mask, "")
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != common.CodeInvalidTranslateID {
		t.Fatalf("expected INVALID_TRANSLATE_ID, got %v", err)
	}
}

func TestEraseWithSourceImageBypassesRecordLookup(t *testing.T) {
	jobs, objects := newTestDeps(t)
	inpainter := &fakeInpainter{}
	svc := New(jobs, objects, inpainter)

	source := solidGray(20, 20, 200)
	mask := solidGray(20, 20, 255)

	result, err := svc.Erase(context.Background(), jobstore.GenerateTranslateID(), encodeB64PNG(t, mask), encodeB64PNG(t, source))
	if err != nil {
		t.Fatalf("erase: %v", err)
	}
	if result == "" {
		t.Fatal("expected a base64 result")
	}
	if inpainter.receivedImg == nil {
		t.Fatal("expected the inpainter to be invoked")
	}
}

func TestEraseResolvesCompletedTranslateRecord(t *testing.T) {
	jobs, objects := newTestDeps(t)
	translateID := jobstore.GenerateTranslateID()
	ctx := context.Background()

	if err := jobs.PutTranslate(ctx, jobstore.TranslateRecord{
		TranslateID: translateID, Status: jobstore.StatusCompleted, CreatedAt: jobstore.NowISO(),
	}); err != nil {
		t.Fatalf("put translate: %v", err)
	}

	resultBytes := encodePNGBytes(t, solidGray(15, 15, 100))
	if _, err := objects.Save(resultBytes, "image/png", "result", translateID+"_result", ".png"); err != nil {
		t.Fatalf("seed result: %v", err)
	}

	inpainter := &fakeInpainter{}
	svc := New(jobs, objects, inpainter)

	mask := solidGray(15, 15, 255)
	result, err := svc.Erase(ctx, translateID, encodeB64PNG(t, mask), "")
	if err != nil {
		t.Fatalf("erase: %v", err)
	}
	if result == "" {
		t.Fatal("expected a base64 result")
	}
}

func TestEraseRejectsNotCompletedTranslateRecord(t *testing.T) {
	jobs, objects := newTestDeps(t)
	translateID := jobstore.GenerateTranslateID()
	if err := jobs.PutTranslate(context.Background(), jobstore.TranslateRecord{
		TranslateID: translateID, Status: jobstore.StatusProcessing, CreatedAt: jobstore.NowISO(),
	}); err != nil {
		t.Fatalf("put translate: %v", err)
	}

	svc := New(jobs, objects, &fakeInpainter{})
	mask := encodeB64PNG(t, solidGray(10, 10, 255))
	_, err := svc.Erase(context.Background(), translateID, mask, "")
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != common.CodeTranslateNotComplete {
		t.Fatalf("expected TRANSLATE_NOT_COMPLETED, got %v", err)
	}
}

func TestEraseRejectsMissingTranslateRecord(t *testing.T) {
	jobs, objects := newTestDeps(t)
	svc := New(jobs, objects, &fakeInpainter{})
	mask := encodeB64PNG(t, solidGray(10, 10, 255))

	_, err := svc.Erase(context.Background(), jobstore.GenerateTranslateID(), mask, "")
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != common.CodeTranslateNotFound {
		t.Fatalf("expected TRANSLATE_NOT_FOUND, got %v", err)
	}
}

func TestEraseRejectsMissingResultFile(t *testing.T) {
	jobs, objects := newTestDeps(t)
	translateID := jobstore.GenerateTranslateID()
	if err := jobs.PutTranslate(context.Background(), jobstore.TranslateRecord{
		TranslateID: translateID, Status: jobstore.StatusCompleted, CreatedAt: jobstore.NowISO(),
	}); err != nil {
		t.Fatalf("put translate: %v", err)
	}

	svc := New(jobs, objects, &fakeInpainter{})
	mask := encodeB64PNG(t, solidGray(10, 10, 255))
	_, err := svc.Erase(context.Background(), translateID, mask, "")
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != common.CodeResultImageNotFound {
		t.Fatalf("expected RESULT_IMAGE_NOT_FOUND, got %v", err)
	}
}

func TestEraseRejectsMalformedMaskImage(t *testing.T) {
	jobs, objects := newTestDeps(t)
	svc := New(jobs, objects, &fakeInpainter{})

	_, err := svc.Erase(context.Background(), jobstore.GenerateTranslateID(), "not-base64-png!!", encodeB64PNG(t, solidGray(10, 10, 100)))
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != common.CodeInpaintingFailed || apiErr.StatusCode != 500 {
		t.Fatalf("expected 500 INPAINTING_FAILED, got %v", err)
	}
}

func TestEraseRejectsMalformedSourceImage(t *testing.T) {
	jobs, objects := newTestDeps(t)
	svc := New(jobs, objects, &fakeInpainter{})
	mask := encodeB64PNG(t, solidGray(10, 10, 255))

	_, err := svc.Erase(context.Background(), jobstore.GenerateTranslateID(), mask, "not-base64-png!!")
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != common.CodeInpaintingFailed || apiErr.StatusCode != 500 {
		t.Fatalf("expected 500 INPAINTING_FAILED, got %v", err)
	}
}

func TestNormalizeMaskThresholdsAndResizes(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 4, 4))
	mask.SetGray(0, 0, color.Gray{Y: 5})
	mask.SetGray(1, 1, color.Gray{Y: 0})

	normalized, err := normalizeMask(mask, image.Rect(0, 0, 8, 8))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.Bounds().Dx() != 8 || normalized.Bounds().Dy() != 8 {
		t.Fatalf("expected resize to 8x8, got %v", normalized.Bounds())
	}
	if normalized.GrayAt(0, 0).Y != 255 {
		t.Fatal("expected thresholded pixel to be 255")
	}
}

func solidGray(w, h int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}
	return img
}

func encodePNGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}
