package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/picprompt/internal/domain"
	"github.com/msomdec/picprompt/internal/service"
)

func TestAccountService_Credits(t *testing.T) {
	auth, db := newTestAuthService(t)
	ctx := context.Background()
	accounts := service.NewAccountService(db.Users(), nil)

	user, err := auth.Register(ctx, "credits@example.com", "Credits", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := accounts.Credits(ctx, user.ID)
	if err != nil {
		t.Fatalf("Credits: %v", err)
	}
	if got.CreditBalance != 5 {
		t.Fatalf("expected 5 credits, got %d", got.CreditBalance)
	}

	if _, err := accounts.Credits(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountService_UpdateProfile(t *testing.T) {
	auth, db := newTestAuthService(t)
	ctx := context.Background()
	accounts := service.NewAccountService(db.Users(), nil)

	user, err := auth.Register(ctx, "profile@example.com", "Before", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, err := accounts.UpdateProfile(ctx, user.ID, " After ", "https://cdn.example.com/a.png")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.DisplayName != "After" || updated.AvatarURL != "https://cdn.example.com/a.png" {
		t.Fatalf("unexpected profile: %+v", updated)
	}

	stored, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.DisplayName != "After" || stored.Email != "profile@example.com" {
		t.Fatalf("profile not persisted: %+v", stored)
	}
}

func TestAccountService_UpdateProfile_Invalid(t *testing.T) {
	auth, db := newTestAuthService(t)
	ctx := context.Background()
	accounts := service.NewAccountService(db.Users(), nil)

	user, err := auth.Register(ctx, "invalid@example.com", "Name", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name, display, avatar string
	}{
		{"empty name", "  ", ""},
		{"relative avatar", "Name", "/avatar.png"},
		{"bad scheme", "Name", "javascript:alert(1)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := accounts.UpdateProfile(ctx, user.ID, tc.display, tc.avatar)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAccountService_Delete_CascadesGenerationsAndFiles(t *testing.T) {
	auth, db := newTestAuthService(t)
	ctx := context.Background()
	files := db.FileStore()
	accounts := service.NewAccountService(db.Users(), files)

	user, err := auth.Register(ctx, "gone@example.com", "Gone", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	gens := service.NewGenerationService(db.Users(), db.Generations(), &fakeProvider{data: pngBytes}, service.WithImageStore(files))
	res, err := gens.Generate(ctx, user.ID, "a lighthouse", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := accounts.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := db.Users().GetByID(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	if _, err := db.Generations().GetByIDForUser(ctx, res.Generation.ID, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected generation gone, got %v", err)
	}
	if _, err := files.Get(ctx, res.Generation.StorageKey); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected stored image gone, got %v", err)
	}

	if err := accounts.Delete(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

type failingUserDelete struct {
	domain.UserRepository
}

func (failingUserDelete) Delete(context.Context, int64) ([]string, error) {
	return nil, errors.New("database is locked")
}

func TestAccountService_Delete_FailureKeepsStoredImages(t *testing.T) {
	auth, db := newTestAuthService(t)
	ctx := context.Background()
	files := db.FileStore()
	accounts := service.NewAccountService(failingUserDelete{db.Users()}, files)

	user, err := auth.Register(ctx, "stays@example.com", "Stays", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	gens := service.NewGenerationService(db.Users(), db.Generations(), &fakeProvider{data: pngBytes}, service.WithImageStore(files))
	res, err := gens.Generate(ctx, user.ID, "a harbor at dusk", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := accounts.Delete(ctx, user.ID); err == nil {
		t.Fatal("expected Delete to fail")
	}

	if _, err := db.Generations().GetByIDForUser(ctx, res.Generation.ID, user.ID); err != nil {
		t.Fatalf("expected generation kept, got %v", err)
	}
	if _, err := files.Get(ctx, res.Generation.StorageKey); err != nil {
		t.Fatalf("expected stored image kept, got %v", err)
	}
}
