package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/picprompt/internal/domain"
)

type GenerationRepository struct {
	db DBTX
}

func NewGenerationRepository(db DBTX) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, gen *domain.Generation) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO generations (id, user_id, prompt, style, image_ref, storage_key)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		gen.ID, gen.UserID, gen.Prompt, gen.Style, gen.ImageRef, gen.StorageKey,
	).Scan(&gen.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

func (r *GenerationRepository) GetByIDForUser(ctx context.Context, id string, userID int64) (*domain.Generation, error) {
	gen := &domain.Generation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, prompt, style, image_ref, storage_key, created_at
		 FROM generations WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&gen.ID, &gen.UserID, &gen.Prompt, &gen.Style, &gen.ImageRef, &gen.StorageKey, &gen.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

func (r *GenerationRepository) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]domain.Generation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, prompt, image_ref, created_at FROM generations
		 WHERE user_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2`, userID, limit)
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
