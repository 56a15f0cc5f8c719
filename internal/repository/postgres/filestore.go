package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/picprompt/internal/domain"
)

// FileStore keeps image bytes in a bytea table.
type FileStore struct {
	db DBTX
}

func NewFileStore(db DBTX) *FileStore {
	return &FileStore{db: db}
}

func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO file_blobs (storage_key, data) VALUES ($1, $2)`, key, data); err != nil {
		return fmt.Errorf("save file blob: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM file_blobs WHERE storage_key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get file blob: %w", err)
	}
	return data, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_blobs WHERE storage_key = $1`, key); err != nil {
		return fmt.Errorf("delete file blob: %w", err)
	}
	return nil
}
