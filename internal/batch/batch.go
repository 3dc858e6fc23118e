// batch.go - read-side aggregation of a batch's live children. Status is
// never stored; it is recomputed from each child's current TranslateRecord
// every time the batch is fetched.

package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/jobstore"
)

// Status is the derived, never-persisted status of a batch.
type Status string

const (
	StatusProcessing     Status = "processing"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusPartialFailure Status = "partial_failure"
)

// Entry is one child's live view inside an aggregated batch response.
type Entry struct {
	OrderIndex  int
	UploadID    string
	TranslateID string
	Status      jobstore.TranslateStatus
	ResultURL   string
	ErrorMessage string
}

// Aggregate is the full read-side view of a batch: its record plus each
// child's current state and the status derived from them.
type Aggregate struct {
	BatchID        string
	SourceLanguage string
	TargetLanguage string
	CreatedAt      string
	Status         Status
	Entries        []Entry
}

// Aggregator reads batches and recomputes their status on every call.
type Aggregator struct {
	Jobs *jobstore.JobStore
}

// New builds an Aggregator.
func New(jobs *jobstore.JobStore) *Aggregator {
	return &Aggregator{Jobs: jobs}
}

// GetBatch loads batchID's record and every child's live TranslateRecord,
// synthesizing a failed entry for any child that can no longer be found.
func (a *Aggregator) GetBatch(ctx context.Context, batchID string) (*Aggregate, error) {
	if !jobstore.ValidBatchID(batchID) {
		return nil, common.NewAPIError("INVALID_BATCH_ID", http.StatusBadRequest, "batch_id is not a valid identifier")
	}

	rec, err := a.Jobs.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			return nil, common.NewAPIError(common.CodeBatchNotFound, http.StatusNotFound, "batch not found")
		}
		return nil, fmt.Errorf("batch: load batch %s: %w", batchID, err)
	}

	entries := make([]Entry, len(rec.Children))
	for i, child := range rec.Children {
		entries[i] = a.resolveChild(ctx, child)
	}

	return &Aggregate{
		BatchID:        rec.BatchID,
		SourceLanguage: rec.SourceLanguage,
		TargetLanguage: rec.TargetLanguage,
		CreatedAt:      rec.CreatedAt,
		Status:         deriveStatus(entries),
		Entries:        entries,
	}, nil
}

func (a *Aggregator) resolveChild(ctx context.Context, child jobstore.BatchChild) Entry {
	translate, err := a.Jobs.GetTranslate(ctx, child.TranslateID)
	if err != nil {
		return Entry{
			OrderIndex:   child.OrderIndex,
			UploadID:     child.UploadID,
			TranslateID:  child.TranslateID,
			Status:       jobstore.StatusFailed,
			ErrorMessage: "translate job not found",
		}
	}
	return Entry{
		OrderIndex:   child.OrderIndex,
		UploadID:     child.UploadID,
		TranslateID:  child.TranslateID,
		Status:       translate.Status,
		ResultURL:    translate.ResultImageURL,
		ErrorMessage: translate.ErrorMessage,
	}
}

func deriveStatus(entries []Entry) Status {
	allCompleted := true
	allFailed := true
	for _, e := range entries {
		if e.Status == jobstore.StatusPending || e.Status == jobstore.StatusProcessing {
			return StatusProcessing
		}
		if e.Status != jobstore.StatusCompleted {
			allCompleted = false
		}
		if e.Status != jobstore.StatusFailed {
			allFailed = false
		}
	}
	switch {
	case allCompleted:
		return StatusCompleted
	case allFailed:
		return StatusFailed
	default:
		return StatusPartialFailure
	}
}
