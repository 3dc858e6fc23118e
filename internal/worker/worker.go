// worker.go - the consumer loop that turns a queued Task into a finished
// TranslateRecord: pending -> processing -> {completed|failed}. A soft
// timeout maps to a Korean-language failure message; a hard timeout is a
// watchdog that abandons a stuck task rather than blocking the consumer
// forever. Every status write goes through jobstore's keepttl
// read-modify-write so a terminal state is never overwritten by a
// late-arriving update.

package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"log"
	"time"

	"github.com/toonslate/toonslate-backend/internal/archive"
	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/jobstore"
	"github.com/toonslate/toonslate-backend/internal/storage"
	"github.com/toonslate/toonslate-backend/internal/store"
)

// ImagePipeline is the subset of *pipeline.Pipeline the worker depends on.
type ImagePipeline interface {
	TranslateImage(ctx context.Context, tc *common.TraceContext, imagePath string) (image.Image, error)
}

// Worker drains the translate queue and drives each task through the
// pipeline, persisting the outcome back to the job store.
type Worker struct {
	Queue       *store.Client
	Jobs        *jobstore.JobStore
	Objects     storage.Store
	Pipeline    ImagePipeline
	Archive     *archive.Writer
	SoftTimeout time.Duration
	HardTimeout time.Duration
	PollTimeout time.Duration
}

// New builds a Worker. PollTimeout governs how often the blocking dequeue
// wakes up to check ctx; it does not affect job latency since a push always
// wakes a blocked consumer immediately. A nil archive.Writer, or one from
// archive.Disabled(), makes terminal-state archival a no-op.
func New(queue *store.Client, jobs *jobstore.JobStore, objects storage.Store, pipeline ImagePipeline, archiveWriter *archive.Writer, softTimeout, hardTimeout, pollTimeout time.Duration) *Worker {
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}
	return &Worker{Queue: queue, Jobs: jobs, Objects: objects, Pipeline: pipeline, Archive: archiveWriter, SoftTimeout: softTimeout, HardTimeout: hardTimeout, PollTimeout: pollTimeout}
}

// Run drains the queue until ctx is canceled. Only one task is processed at
// a time, since each task already does its own GPU-bound remote calls and
// running several concurrently buys nothing.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		task, err := dequeue(ctx, w.Queue, w.PollTimeout)
		if errors.Is(err, errNoTask) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("worker: dequeue error: %v", err)
			continue
		}
		w.processOne(ctx, task)
	}
}

type workResult struct {
	img image.Image
	err error
}

func (w *Worker) processOne(ctx context.Context, task Task) {
	rec, err := w.Jobs.GetTranslate(ctx, task.TranslateID)
	if err != nil {
		log.Printf("worker: task %s: load record: %v", task.TranslateID, err)
		return
	}

	upload, err := w.Jobs.GetUpload(ctx, rec.UploadID)
	if err != nil {
		w.markFailed(ctx, rec, "source upload no longer available")
		return
	}

	if err := w.Jobs.UpdateTranslate(ctx, task.TranslateID, func(r *jobstore.TranslateRecord) bool {
		if r.Status != jobstore.StatusPending {
			return false
		}
		r.Status = jobstore.StatusProcessing
		return true
	}); err != nil {
		log.Printf("worker: task %s: mark processing: %v", task.TranslateID, err)
		return
	}

	softCtx, cancel := context.WithTimeout(ctx, w.SoftTimeout)
	defer cancel()

	resultCh := make(chan workResult, 1)
	go func() {
		tc := common.New(task.TranslateID)
		img, err := w.Pipeline.TranslateImage(softCtx, tc, w.Objects.AbsolutePath(upload.Path))
		resultCh <- workResult{img: img, err: err}
		log.Print(tc.Summary())
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				w.markFailed(ctx, rec, common.MessageSoftTimeout)
			} else {
				w.markFailed(ctx, rec, res.err.Error())
			}
			return
		}
		w.markCompleted(ctx, rec, res.img)

	case <-time.After(w.HardTimeout):
		// The pipeline goroutine is abandoned here, bounded by softCtx's own
		// deadline; the record is already marked failed so nothing depends on
		// it finishing.
		w.markFailed(ctx, rec, common.MessageSoftTimeout)
	}
}

func (w *Worker) markFailed(ctx context.Context, rec *jobstore.TranslateRecord, message string) {
	completedAt := jobstore.NowISO()
	applied := false
	err := w.Jobs.UpdateTranslate(ctx, rec.TranslateID, func(r *jobstore.TranslateRecord) bool {
		if r.Status == jobstore.StatusCompleted || r.Status == jobstore.StatusFailed {
			return false
		}
		r.Status = jobstore.StatusFailed
		r.ErrorMessage = message
		r.CompletedAt = completedAt
		applied = true
		return true
	})
	if err != nil {
		log.Printf("worker: task %s: mark failed: %v", rec.TranslateID, err)
		return
	}
	if !applied {
		return
	}
	w.Archive.Append(ctx, archive.Entry{
		TranslateID:    rec.TranslateID,
		Status:         string(jobstore.StatusFailed),
		SourceLanguage: rec.SourceLanguage,
		TargetLanguage: rec.TargetLanguage,
		ErrorMessage:   message,
		CreatedAt:      rec.CreatedAt,
		CompletedAt:    completedAt,
	})
}

func (w *Worker) markCompleted(ctx context.Context, rec *jobstore.TranslateRecord, img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		w.markFailed(ctx, rec, "failed to encode result image")
		return
	}

	relPath, err := w.Objects.Save(buf.Bytes(), "image/png", "result", rec.TranslateID+"_result", ".png")
	if err != nil {
		w.markFailed(ctx, rec, "failed to store result image")
		return
	}
	resultURL := w.Objects.URL(relPath)

	completedAt := jobstore.NowISO()
	applied := false
	err = w.Jobs.UpdateTranslate(ctx, rec.TranslateID, func(r *jobstore.TranslateRecord) bool {
		if r.Status == jobstore.StatusCompleted || r.Status == jobstore.StatusFailed {
			return false
		}
		r.Status = jobstore.StatusCompleted
		r.ResultImageURL = resultURL
		r.CompletedAt = completedAt
		applied = true
		return true
	})
	if err != nil {
		log.Printf("worker: task %s: mark completed: %v", rec.TranslateID, err)
		return
	}
	if !applied {
		return
	}
	w.Archive.Append(ctx, archive.Entry{
		TranslateID:    rec.TranslateID,
		Status:         string(jobstore.StatusCompleted),
		SourceLanguage: rec.SourceLanguage,
		TargetLanguage: rec.TargetLanguage,
		CreatedAt:      rec.CreatedAt,
		CompletedAt:    completedAt,
	})
}
