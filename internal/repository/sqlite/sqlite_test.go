package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/msomdec/picprompt/internal/domain"
	"github.com/msomdec/picprompt/internal/repository/sqlite"
	"github.com/pressly/goose/v3"
)

// Verify that *sqlite.DB implements domain.Database at compile time.
var _ domain.Database = (*sqlite.DB)(nil)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlite.DB, email string) *domain.User {
	t.Helper()
	user := &domain.User{Email: email, DisplayName: "User " + email, PasswordHash: "hash"}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	var fkEnabled int
	if err := db.SqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("check foreign_keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkEnabled)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate (idempotent): %v", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db.SqlDB)
	if err != nil {
		t.Fatalf("GetDBVersion: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected schema version 3, got %d", version)
	}

	var applied int
	if err := db.SqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0").Scan(&applied); err != nil {
		t.Fatalf("count goose_db_version: %v", err)
	}
	if applied != 3 {
		t.Fatalf("expected 3 applied migrations, got %d", applied)
	}
}

func TestMigrateDefaultCreditBalance(t *testing.T) {
	db := newTestDB(t)

	var balance int
	err := db.SqlDB.QueryRowContext(context.Background(),
		`INSERT INTO users (email, display_name, password_hash) VALUES (?, ?, ?) RETURNING credit_balance`,
		"test@example.com", "Test User", "hash123",
	).Scan(&balance)
	if err != nil {
		t.Fatalf("insert into users: %v", err)
	}
	if balance != 5 {
		t.Fatalf("expected default credit balance 5, got %d", balance)
	}
}

func TestMigrateRejectsEmptyPrompt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "a@b.c")

	_, err := db.SqlDB.ExecContext(ctx,
		"INSERT INTO generations (id, user_id, prompt, image_ref) VALUES ('x', ?, '', 'data:')", user.ID)
	if err == nil {
		t.Fatal("expected check constraint to reject empty prompt")
	}
}
