package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/toonslate/toonslate-backend/internal/store"
)

func newTestStore(t *testing.T) *JobStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(store.FromRedis(rdb), 2*time.Hour)
}

func TestUploadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := UploadRecord{UploadID: GenerateUploadID(), Filename: "a.png", ContentType: "image/png", Size: 10, Path: "original/a.png", CreatedAt: NowISO()}
	if err := s.PutUpload(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.GetUpload(ctx, rec.UploadID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Filename != rec.Filename {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestGetUploadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetUpload(context.Background(), "upload_deadbeef"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTranslatePreservesTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := GenerateTranslateID()
	rec := TranslateRecord{TranslateID: id, UploadID: "upload_11111111", Status: StatusPending, SourceLanguage: "ko", TargetLanguage: "en", CreatedAt: NowISO()}
	if err := s.PutTranslate(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := s.UpdateTranslate(ctx, id, func(r *TranslateRecord) bool {
		r.Status = StatusCompleted
		r.ResultImageURL = "http://x/static/result/" + id + "_result.png"
		r.CompletedAt = NowISO()
		return true
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetTranslate(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	ttl, err := s.client.TTL(ctx, translateKey(id))
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("expected the record's TTL to survive the update, got %v", ttl)
	}
}

func TestUpdateTranslateStickyTerminalState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := GenerateTranslateID()
	rec := TranslateRecord{TranslateID: id, UploadID: "upload_11111111", Status: StatusCompleted, CreatedAt: NowISO()}
	if err := s.PutTranslate(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := s.UpdateTranslate(ctx, id, func(r *TranslateRecord) bool {
		if r.Status == StatusCompleted || r.Status == StatusFailed {
			return false // sticky: refuse to move out of a terminal state
		}
		r.Status = StatusFailed
		return true
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.GetTranslate(ctx, id)
	if got.Status != StatusCompleted {
		t.Fatalf("terminal state must not change, got %s", got.Status)
	}
}

func TestIDFormats(t *testing.T) {
	if !UploadIDPattern.MatchString(GenerateUploadID()) {
		t.Fatal("generated upload id does not match its own pattern")
	}
	if !TranslateIDPattern.MatchString(GenerateTranslateID()) {
		t.Fatal("generated translate id does not match its own pattern")
	}
	if !BatchIDPattern.MatchString(GenerateBatchID()) {
		t.Fatal("generated batch id does not match its own pattern")
	}
	if ValidTranslateID("../../../etc/passwd") {
		t.Fatal("path traversal payload must not validate as a translate id")
	}
}
