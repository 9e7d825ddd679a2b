// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"inbox_server/core/port/out"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Attachment Blob Adapter
// =============================================================================

const (
	collectionBlobs = "attachment_blobs"

	// Compression threshold - only compress if content is larger than this
	compressionThreshold = 1024 // 1KB

	blobURLPrefix = "blob://"
)

// BlobAdapter implements out.BlobStore using MongoDB.
type BlobAdapter struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewBlobAdapter creates a new MongoDB blob adapter.
func NewBlobAdapter(db *mongo.Database) *BlobAdapter {
	collection := db.Collection(collectionBlobs)
	return &BlobAdapter{
		db:         db,
		collection: collection,
	}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *BlobAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "blob_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "stored_at", Value: 1}},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Document Model
// =============================================================================

// blobDocument represents the MongoDB document structure.
type blobDocument struct {
	BlobID      string `bson:"blob_id"`
	Filename    string `bson:"filename"`
	ContentType string `bson:"content_type"`

	// Content (potentially compressed)
	Data         []byte `bson:"data"`
	IsCompressed bool   `bson:"is_compressed"`

	// Size info
	OriginalSize   int64 `bson:"original_size"`
	CompressedSize int64 `bson:"compressed_size"`

	StoredAt time.Time `bson:"stored_at"`
}

// =============================================================================
// Operations
// =============================================================================

// Put stores attachment bytes and returns an opaque blob URL.
func (a *BlobAdapter) Put(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	blobID := uuid.NewString()
	originalSize := int64(len(data))

	stored := data
	isCompressed := false
	if originalSize > compressionThreshold {
		compressed, err := compress(data)
		if err != nil {
			return "", fmt.Errorf("failed to compress blob: %w", err)
		}
		stored = compressed
		isCompressed = true
	}

	doc := &blobDocument{
		BlobID:         blobID,
		Filename:       filename,
		ContentType:    contentType,
		Data:           stored,
		IsCompressed:   isCompressed,
		OriginalSize:   originalSize,
		CompressedSize: int64(len(stored)),
		StoredAt:       time.Now(),
	}

	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	return blobURLPrefix + blobID, nil
}

// Get retrieves attachment bytes by blob URL.
func (a *BlobAdapter) Get(ctx context.Context, url string) ([]byte, error) {
	blobID, err := parseBlobURL(url)
	if err != nil {
		return nil, err
	}

	var doc blobDocument
	filter := bson.M{"blob_id": blobID}

	if err := a.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	if doc.IsCompressed {
		return decompress(doc.Data)
	}
	return doc.Data, nil
}

// Delete removes a blob by URL.
func (a *BlobAdapter) Delete(ctx context.Context, url string) error {
	blobID, err := parseBlobURL(url)
	if err != nil {
		return err
	}

	if _, err := a.collection.DeleteOne(ctx, bson.M{"blob_id": blobID}); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}

func parseBlobURL(url string) (string, error) {
	if !strings.HasPrefix(url, blobURLPrefix) {
		return "", fmt.Errorf("invalid blob url: %s", url)
	}
	return strings.TrimPrefix(url, blobURLPrefix), nil
}

// =============================================================================
// Compression Helpers
// =============================================================================

func compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// =============================================================================
// Interface Compliance
// =============================================================================

var _ out.BlobStore = (*BlobAdapter)(nil)
