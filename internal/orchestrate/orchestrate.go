// orchestrate.go - request-side orchestration for a translate job: validate
// the upload, reserve quota, persist a pending record, enqueue the worker
// task, and unwind the reservation if anything after it fails.

package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/jobstore"
	"github.com/toonslate/toonslate-backend/internal/quota"
	"github.com/toonslate/toonslate-backend/internal/worker"
)

// Orchestrator turns validated HTTP requests into persisted, queued jobs.
type Orchestrator struct {
	Jobs         *jobstore.JobStore
	Quota        *quota.Engine
	Queue        worker.Enqueuer
	MaxBatchSize int
}

// New builds an Orchestrator.
func New(jobs *jobstore.JobStore, quotaEngine *quota.Engine, queue worker.Enqueuer, maxBatchSize int) *Orchestrator {
	return &Orchestrator{Jobs: jobs, Quota: quotaEngine, Queue: queue, MaxBatchSize: maxBatchSize}
}

// SubmitTranslate validates uploadID, reserves one unit of ipHash's weekly
// quota, persists a pending TranslateRecord and enqueues its worker task.
// The reservation is refunded if any step after it fails, so a client never
// loses quota for a job that never reached the queue.
func (o *Orchestrator) SubmitTranslate(ctx context.Context, ipHash, uploadID, sourceLanguage, targetLanguage string) (*jobstore.TranslateRecord, error) {
	if !jobstore.ValidUploadID(uploadID) {
		return nil, common.NewAPIError(common.CodeInvalidUploadID, http.StatusBadRequest, "upload_id is not a valid identifier")
	}

	upload, err := o.Jobs.GetUpload(ctx, uploadID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			return nil, common.NewAPIError(common.CodeUploadNotFound, http.StatusNotFound, "upload not found or expired")
		}
		return nil, fmt.Errorf("orchestrate: load upload %s: %w", uploadID, err)
	}

	if _, err := o.Quota.Reserve(ctx, ipHash, 1); err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			return nil, common.NewAPIError(common.CodeRateLimitExceeded, http.StatusTooManyRequests, "weekly image quota exceeded")
		}
		return nil, fmt.Errorf("orchestrate: reserve quota: %w", err)
	}

	rec := jobstore.TranslateRecord{
		TranslateID:      jobstore.GenerateTranslateID(),
		UploadID:         uploadID,
		Status:           jobstore.StatusPending,
		SourceLanguage:   sourceLanguage,
		TargetLanguage:   targetLanguage,
		CreatedAt:        jobstore.NowISO(),
		OriginalImageURL: upload.ImageURL,
	}

	if err := o.Jobs.PutTranslate(ctx, rec); err != nil {
		_ = o.Quota.Refund(ctx, ipHash, 1)
		return nil, fmt.Errorf("orchestrate: persist translate record: %w", err)
	}

	if err := worker.Enqueue(ctx, o.Queue, worker.Task{TranslateID: rec.TranslateID}); err != nil {
		_ = o.Quota.Refund(ctx, ipHash, 1)
		_ = o.Jobs.UpdateTranslate(ctx, rec.TranslateID, func(r *jobstore.TranslateRecord) bool {
			r.Status = jobstore.StatusFailed
			r.ErrorMessage = common.MessageQueueingFailed
			return true
		})
		return nil, common.WrapAPIError(common.CodeQueueUnavailable, http.StatusServiceUnavailable, common.MessageQueueingFailed, err)
	}

	return &rec, nil
}

// BatchItem is one upload_id submitted as part of a batch request.
type BatchItem struct {
	UploadID string
}

// SubmitBatch validates and reserves quota for every item up front, then
// creates and enqueues each child translate job independently. A child that
// fails to enqueue does not abort the batch: its share of quota is refunded
// and it is recorded as a failed child, while the rest of the batch proceeds.
// If every child fails, the whole reservation is refunded and an error is
// returned so the caller can surface a single failure rather than a batch of
// nothing but failed children.
func (o *Orchestrator) SubmitBatch(ctx context.Context, ipHash string, items []BatchItem, sourceLanguage, targetLanguage string) (*jobstore.BatchRecord, error) {
	if len(items) == 0 {
		return nil, common.NewAPIError("INVALID_BATCH", http.StatusBadRequest, "batch must contain at least one upload")
	}
	if len(items) > o.MaxBatchSize {
		return nil, common.NewAPIError("BATCH_TOO_LARGE", http.StatusBadRequest, fmt.Sprintf("batch exceeds the maximum of %d images", o.MaxBatchSize))
	}
	for _, item := range items {
		if !jobstore.ValidUploadID(item.UploadID) {
			return nil, common.NewAPIError(common.CodeInvalidUploadID, http.StatusBadRequest, "upload_id is not a valid identifier")
		}
	}

	n := len(items)
	if _, err := o.Quota.Reserve(ctx, ipHash, n); err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			return nil, common.NewAPIError(common.CodeRateLimitExceeded, http.StatusTooManyRequests, "weekly image quota exceeded")
		}
		return nil, fmt.Errorf("orchestrate: reserve batch quota: %w", err)
	}

	children := make([]jobstore.BatchChild, 0, n)
	succeeded := 0
	for i, item := range items {
		upload, err := o.Jobs.GetUpload(ctx, item.UploadID)
		if err != nil {
			_ = o.Quota.Refund(ctx, ipHash, 1)
			continue
		}

		rec := jobstore.TranslateRecord{
			TranslateID:      jobstore.GenerateTranslateID(),
			UploadID:         item.UploadID,
			Status:           jobstore.StatusPending,
			SourceLanguage:   sourceLanguage,
			TargetLanguage:   targetLanguage,
			CreatedAt:        jobstore.NowISO(),
			OriginalImageURL: upload.ImageURL,
		}
		children = append(children, jobstore.BatchChild{OrderIndex: i, UploadID: item.UploadID, TranslateID: rec.TranslateID})

		if err := o.Jobs.PutTranslate(ctx, rec); err != nil {
			_ = o.Quota.Refund(ctx, ipHash, 1)
			continue
		}
		if err := worker.Enqueue(ctx, o.Queue, worker.Task{TranslateID: rec.TranslateID}); err != nil {
			_ = o.Quota.Refund(ctx, ipHash, 1)
			_ = o.Jobs.UpdateTranslate(ctx, rec.TranslateID, func(r *jobstore.TranslateRecord) bool {
				r.Status = jobstore.StatusFailed
				r.ErrorMessage = common.MessageQueueingFailed
				return true
			})
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		return nil, common.NewAPIError(common.CodeQueueUnavailable, http.StatusServiceUnavailable, "failed to queue any image in the batch")
	}

	batch := jobstore.BatchRecord{
		BatchID:        jobstore.GenerateBatchID(),
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
		Children:       children,
		CreatedAt:      jobstore.NowISO(),
	}
	if err := o.Jobs.PutBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("orchestrate: persist batch record: %w", err)
	}
	return &batch, nil
}
