package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/msomdec/picprompt/internal/domain"
)

// AccountService covers the settings screen: balance, profile, deletion.
type AccountService struct {
	users domain.UserRepository
	files domain.FileStore
}

// NewAccountService creates a new AccountService. files may be nil when
// images are stored inline.
func NewAccountService(users domain.UserRepository, files domain.FileStore) *AccountService {
	return &AccountService{users: users, files: files}
}

// Credits returns the account with its current balance.
func (s *AccountService) Credits(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile changes the display name and avatar. Email is immutable.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, displayName, avatarURL string) (*domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	avatarURL = strings.TrimSpace(avatarURL)
	if displayName == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if avatarURL != "" {
		u, err := url.Parse(avatarURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: avatar must be an http(s) URL", domain.ErrInvalidInput)
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.DisplayName = displayName
	user.AvatarURL = avatarURL

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// Delete removes the account together with its generation records and any
// stored image bytes. The rows go in one transaction; blobs are removed
// afterwards on a best-effort basis.
func (s *AccountService) Delete(ctx context.Context, userID int64) error {
	keys, err := s.users.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if s.files != nil {
		for _, key := range keys {
			if err := s.files.Delete(context.WithoutCancel(ctx), key); err != nil {
				slog.Warn("delete stored image", "key", key, "error", err)
			}
		}
	}
	return nil
}
