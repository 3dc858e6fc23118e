// ids.go - identifier formats and generation for uploads, translate jobs and batches.

package jobstore

import (
	"regexp"

	"github.com/google/uuid"
)

const (
	uploadPrefix    = "upload_"
	translatePrefix = "tr_"
	batchPrefix     = "batch_"
)

// UploadIDPattern, TranslateIDPattern and BatchIDPattern are the strict
// formats every externally-supplied identifier of that kind must match
// before being used to build a storage key or file path.
var (
	UploadIDPattern    = regexp.MustCompile(`^upload_[0-9a-f]{8}$`)
	TranslateIDPattern = regexp.MustCompile(`^tr_[a-f0-9]{8}$`)
	BatchIDPattern     = regexp.MustCompile(`^batch_[a-f0-9]{8}$`)
)

func newID(prefix string) string {
	return prefix + uuid.New().String()[:8]
}

// GenerateUploadID returns a fresh upload_xxxxxxxx identifier.
func GenerateUploadID() string { return newID(uploadPrefix) }

// GenerateTranslateID returns a fresh tr_xxxxxxxx identifier.
func GenerateTranslateID() string { return newID(translatePrefix) }

// GenerateBatchID returns a fresh batch_xxxxxxxx identifier.
func GenerateBatchID() string { return newID(batchPrefix) }

// ValidTranslateID reports whether id matches the strict translate id format.
// Used as the path-traversal defense at the erase-service boundary.
func ValidTranslateID(id string) bool {
	return TranslateIDPattern.MatchString(id)
}

// ValidUploadID reports whether id matches the strict upload id format.
func ValidUploadID(id string) bool {
	return UploadIDPattern.MatchString(id)
}

// ValidBatchID reports whether id matches the strict batch id format.
func ValidBatchID(id string) bool {
	return BatchIDPattern.MatchString(id)
}
