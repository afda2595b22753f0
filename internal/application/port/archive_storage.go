package port

import "context"

// ArchiveStorage keeps an off-host copy of captured images.
type ArchiveStorage interface {
	// PutObject uploads the object and returns a URL for reading it.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}
