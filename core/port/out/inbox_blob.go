// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"
)

// =============================================================================
// Blob Store Port (MongoDB)
// =============================================================================

// BlobStore persists original attachment bytes for audit. Best-effort:
// callers log failures and continue.
type BlobStore interface {
	Put(ctx context.Context, data []byte, filename, contentType string) (url string, err error)
	Get(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, url string) error
}
