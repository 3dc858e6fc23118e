package inpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/toonslate/toonslate-backend/internal/geometry"
)

func encodePNGForTest(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRestoreSkipsNetworkCallWhenNoBoxes(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	restorer := NewBackgroundRestorer(srv.URL, 5*time.Second)
	img := solidImage(20, 20, color.White)
	out, err := restorer.Restore(context.Background(), img, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != img {
		t.Fatal("expected the same image back when there are no boxes to restore")
	}
	if called {
		t.Fatal("expected no network call when there are no boxes")
	}
}

func TestRestoreSubmitsMaskAndDecodesResponse(t *testing.T) {
	restoredImg := solidImage(20, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	restoredB64 := encodePNGForTest(t, restoredImg)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req iopaintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Image == "" || req.Mask == "" {
			t.Error("expected non-empty image and mask")
		}
		json.NewEncoder(w).Encode(iopaintResponse{Image: restoredB64})
	}))
	defer srv.Close()

	restorer := NewBackgroundRestorer(srv.URL, 5*time.Second)
	img := solidImage(20, 20, color.White)
	out, err := restorer.Restore(context.Background(), img, []geometry.BBox{geometry.New(2, 2, 10, 10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, g, b, _ := out.At(0, 0).RGBA()
	if uint8(r>>8) != 10 || uint8(g>>8) != 20 || uint8(b>>8) != 30 {
		t.Fatalf("expected decoded restored image, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestRestoreMapsHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	restorer := NewBackgroundRestorer(srv.URL, 5*time.Second)
	img := solidImage(20, 20, color.White)
	_, err := restorer.Restore(context.Background(), img, []geometry.BBox{geometry.New(2, 2, 10, 10)})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
