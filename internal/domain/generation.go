package domain

import (
	"context"
	"time"
)

// DefaultStyle is recorded when a generation request names no style.
const DefaultStyle = "default"

// Generation is the immutable record of one successful image generation.
type Generation struct {
	ID         string // UUID
	UserID     int64
	Prompt     string
	Style      string
	ImageRef   string // data URI, or an API path when StorageKey is set
	StorageKey string // key into the FileStore; empty for inline images
	CreatedAt  time.Time
}

// GenerationRepository handles generation record persistence.
type GenerationRepository interface {
	Create(ctx context.Context, gen *Generation) error
	// GetByIDForUser returns ErrNotFound both for unknown ids and for
	// records owned by another user.
	GetByIDForUser(ctx context.Context, id string, userID int64) (*Generation, error)
	// ListRecentByUser returns at most limit records, newest first, with
	// only ID, Prompt, ImageRef and CreatedAt populated.
	ListRecentByUser(ctx context.Context, userID int64, limit int) ([]Generation, error)
}
