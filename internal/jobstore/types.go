// types.go - typed records persisted in the keyed store.

package jobstore

// TranslateStatus is the lifecycle state of a TranslateRecord.
type TranslateStatus string

const (
	StatusPending    TranslateStatus = "pending"
	StatusProcessing TranslateStatus = "processing"
	StatusCompleted  TranslateStatus = "completed"
	StatusFailed     TranslateStatus = "failed"
)

// UploadRecord describes a previously-ingested source image.
type UploadRecord struct {
	UploadID    string `json:"upload_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Path        string `json:"path"` // relative to the object store root
	ImageURL    string `json:"image_url"`
	CreatedAt   string `json:"created_at"`
}

// TranslateRecord is the durable state of a single translation job.
type TranslateRecord struct {
	TranslateID      string          `json:"translate_id"`
	UploadID         string          `json:"upload_id"`
	Status           TranslateStatus `json:"status"`
	SourceLanguage   string          `json:"source_language"`
	TargetLanguage   string          `json:"target_language"`
	CreatedAt        string          `json:"created_at"`
	CompletedAt      string          `json:"completed_at,omitempty"`
	OriginalImageURL string          `json:"original_url,omitempty"`
	ResultImageURL   string          `json:"result_url,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
}

// BatchChild is one member of a batch, in submission order.
type BatchChild struct {
	OrderIndex  int    `json:"order_index"`
	UploadID    string `json:"upload_id"`
	TranslateID string `json:"translate_id"`
}

// BatchRecord groups N translate jobs created together. Its status is never
// persisted — it is always derived from the live status of its children.
type BatchRecord struct {
	BatchID        string       `json:"batch_id"`
	SourceLanguage string       `json:"source_language"`
	TargetLanguage string       `json:"target_language"`
	Children       []BatchChild `json:"children"`
	CreatedAt      string       `json:"created_at"`
}
