// store.go - typed read/write of upload/translate/batch records over the
// keyed store.

package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/toonslate/toonslate-backend/internal/store"
)

const (
	uploadKeyPrefix    = "upload"
	translateKeyPrefix = "translate"
	batchKeyPrefix     = "batch"
)

// ErrNotFound is returned when a record does not exist under its key.
var ErrNotFound = store.ErrNotFound

// JobStore is a typed facade over the keyed store for the three record kinds.
type JobStore struct {
	client  *store.Client
	dataTTL time.Duration
}

// New builds a JobStore. dataTTL is applied to every record on creation.
func New(client *store.Client, dataTTL time.Duration) *JobStore {
	return &JobStore{client: client, dataTTL: dataTTL}
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// NowISO returns the current UTC timestamp in the wire format used across
// every record (ISO-8601 with a literal Z, never a +00:00 offset).
func NowISO() string { return nowISO() }

func uploadKey(id string) string    { return fmt.Sprintf("%s:%s", uploadKeyPrefix, id) }
func translateKey(id string) string { return fmt.Sprintf("%s:%s", translateKeyPrefix, id) }
func batchKey(id string) string     { return fmt.Sprintf("%s:%s", batchKeyPrefix, id) }

// PutUpload persists rec with the job store's data TTL.
func (s *JobStore) PutUpload(ctx context.Context, rec UploadRecord) error {
	return s.put(ctx, uploadKey(rec.UploadID), rec)
}

// GetUpload returns the UploadRecord for id, or ErrNotFound.
func (s *JobStore) GetUpload(ctx context.Context, id string) (*UploadRecord, error) {
	var rec UploadRecord
	if err := s.get(ctx, uploadKey(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutTranslate persists rec with the job store's data TTL.
func (s *JobStore) PutTranslate(ctx context.Context, rec TranslateRecord) error {
	return s.put(ctx, translateKey(rec.TranslateID), rec)
}

// GetTranslate returns the TranslateRecord for id, or ErrNotFound.
func (s *JobStore) GetTranslate(ctx context.Context, id string) (*TranslateRecord, error) {
	var rec TranslateRecord
	if err := s.get(ctx, translateKey(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateTranslate performs a read-modify-write on the TranslateRecord for id,
// preserving the key's existing TTL. mutate is applied to the loaded record
// in place; its return value decides whether the write proceeds (allows a
// caller to enforce sticky terminal states).
func (s *JobStore) UpdateTranslate(ctx context.Context, id string, mutate func(*TranslateRecord) bool) error {
	rec, err := s.GetTranslate(ctx, id)
	if err != nil {
		return err
	}
	if !mutate(rec) {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("jobstore: marshal translate %s: %w", id, err)
	}
	if err := s.client.SetKeepTTL(ctx, translateKey(id), string(data)); err != nil {
		return fmt.Errorf("jobstore: update translate %s: %w", id, err)
	}
	return nil
}

// PutBatch persists rec with the job store's data TTL.
func (s *JobStore) PutBatch(ctx context.Context, rec BatchRecord) error {
	return s.put(ctx, batchKey(rec.BatchID), rec)
}

// GetBatch returns the BatchRecord for id, or ErrNotFound.
func (s *JobStore) GetBatch(ctx context.Context, id string) (*BatchRecord, error) {
	var rec BatchRecord
	if err := s.get(ctx, batchKey(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *JobStore) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("jobstore: marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, string(data), s.dataTTL); err != nil {
		return fmt.Errorf("jobstore: put %s: %w", key, err)
	}
	return nil
}

func (s *JobStore) get(ctx context.Context, key string, v interface{}) error {
	data, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("jobstore: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("jobstore: parse %s: %w", key, err)
	}
	return nil
}
