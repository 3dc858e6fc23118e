package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func writeTempImage(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "detect-*.png")
	if err != nil {
		t.Fatalf("create temp image: %v", err)
	}
	defer f.Close()
	if _, err := f.Write([]byte{0x89, 'P', 'N', 'G'}); err != nil {
		t.Fatalf("write temp image: %v", err)
	}
	return f.Name()
}

func TestDetectSucceedsOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireDetectionResult{
			ImageSize:   struct {
				Width  int `json:"width"`
				Height int `json:"height"`
			}{Width: 800, Height: 1200},
			Bubbles:     [][]float64{{10, 10, 100, 100}},
			BubbleConfs: []float64{0.9},
			Texts:       [][]float64{{20, 20, 80, 80}},
			TextConfs:   []float64{0.95},
		})
	}))
	defer srv.Close()

	backend := NewHFSpaceBackend(srv.URL, 5*time.Second, 3, nil)
	out, err := backend.Detect(context.Background(), writeTempImage(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ImageSize.Width != 800 || len(out.Bubbles) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestDetectRetriesTransientFailuresThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(wireDetectionResult{
			Bubbles: [][]float64{},
			Texts:   [][]float64{},
		})
	}))
	defer srv.Close()

	backend := NewHFSpaceBackend(srv.URL, 5*time.Second, 3, nil)
	start := time.Now()
	_, err := backend.Detect(context.Background(), writeTempImage(t))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	// two retries: waits of 2s then 4s (2^1, 2^2).
	if elapsed < 6*time.Second {
		t.Fatalf("expected backoff waits to elapse, got %v", elapsed)
	}
}

func TestDetectSchemaMismatchFailsWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	backend := NewHFSpaceBackend(srv.URL, 5*time.Second, 3, nil)
	_, err := backend.Detect(context.Background(), writeTempImage(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call (no retry on schema mismatch), got %d", calls)
	}
}

func TestDetectExhaustsRetriesAndWrapsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	backend := NewHFSpaceBackend(srv.URL, 5*time.Second, 1, nil)
	_, err := backend.Detect(context.Background(), writeTempImage(t))
	if err == nil {
		t.Fatal("expected error")
	}
}
