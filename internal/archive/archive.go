// archive.go - best-effort analytics archive for terminal translate jobs.
// Never read back by any core operation; a failure here is logged and
// otherwise invisible to the caller.

package archive

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entry is the trimmed record written to the archive collection.
type Entry struct {
	TranslateID    string    `bson:"translate_id"`
	Status         string    `bson:"status"`
	SourceLanguage string    `bson:"source_language"`
	TargetLanguage string    `bson:"target_language"`
	ErrorMessage   string    `bson:"error_message,omitempty"`
	CreatedAt      string    `bson:"created_at"`
	CompletedAt    string    `bson:"completed_at,omitempty"`
	ArchivedAt     time.Time `bson:"archived_at"`
}

// Writer appends terminal-state entries to a MongoDB collection. A nil
// Writer, or one constructed via Disabled, makes Append a silent no-op, so callers
// never need to branch on whether archival is configured.
type Writer struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Disabled returns a Writer whose Append is a no-op, used when
// ARCHIVE_MONGO_URI is unset.
func Disabled() *Writer { return &Writer{} }

// Connect dials MongoDB and returns a ready Writer.
func Connect(uri, database string) (*Writer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("archive: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	return &Writer{
		client:     client,
		collection: client.Database(database).Collection("translate_archive"),
	}, nil
}

// Append writes entry, logging (never returning) on failure. A Writer with
// no collection configured (Disabled) does nothing.
func (w *Writer) Append(ctx context.Context, entry Entry) {
	if w == nil || w.collection == nil {
		return
	}
	entry.ArchivedAt = time.Now().UTC()

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := w.collection.InsertOne(writeCtx, entry); err != nil {
		log.Printf("archive: failed to write entry for %s: %v", entry.TranslateID, err)
	}
}

// Close disconnects the underlying client, if any.
func (w *Writer) Close() error {
	if w == nil || w.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("archive: disconnect: %w", err)
	}
	return nil
}
