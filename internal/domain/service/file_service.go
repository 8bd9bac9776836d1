package service

import (
	"context"
	"io"
)

// BlobStore uploads opaque attachments and returns their public URL.
type BlobStore interface {
	UploadBlob(ctx context.Context, data io.Reader, contentType, pathPrefix string) (string, error)
	Close() error
}
