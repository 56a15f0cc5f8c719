package domain

import "context"

// FileStore abstracts raw image byte storage.
// Implementations store BLOBs in the database or objects in S3.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ImageProvider turns a text prompt into raw image bytes.
type ImageProvider interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}
