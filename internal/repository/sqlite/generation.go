package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/picprompt/internal/domain"
)

// generationRepo implements domain.GenerationRepository using SQLite.
type generationRepo struct {
	db *sql.DB
}

func (r *generationRepo) Create(ctx context.Context, gen *domain.Generation) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO generations (id, user_id, prompt, style, image_ref, storage_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		gen.ID, gen.UserID, gen.Prompt, gen.Style, gen.ImageRef, gen.StorageKey, now,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	gen.CreatedAt = now
	return nil
}

func (r *generationRepo) GetByIDForUser(ctx context.Context, id string, userID int64) (*domain.Generation, error) {
	gen := &domain.Generation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, prompt, style, image_ref, storage_key, created_at
		 FROM generations WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&gen.ID, &gen.UserID, &gen.Prompt, &gen.Style, &gen.ImageRef, &gen.StorageKey, &gen.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

func (r *generationRepo) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]domain.Generation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, prompt, image_ref, created_at FROM generations
		 WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	gens := []domain.Generation{}
	for rows.Next() {
		var gen domain.Generation
		if err := rows.Scan(&gen.ID, &gen.Prompt, &gen.ImageRef, &gen.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}
