package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mediarank/migrations"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func insertMedia(ctx context.Context, t *testing.T, q DBTX, externalID int) int64 {
	t.Helper()
	now := time.Now().UTC()
	id, err := q.ExecReturningID(ctx,
		`INSERT INTO media_items (external_id, media_type, title, title_english, cover_image, banner_image, genres, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		externalID, "ANIME", "Title", "", "", "", "[]", now, now)
	if err != nil {
		t.Fatalf("Failed to insert media item: %v", err)
	}
	return id
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"media_items", "library_items", "comparisons", "comparison_pairs", "user_stats", "user_category_stats"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Second run is a no-op
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("Re-running migrations failed: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 recorded migration, got %d", count)
	}
}

func TestExecReturningID(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	first := insertMedia(ctx, t, db, 1)
	second := insertMedia(ctx, t, db, 2)
	if first <= 0 || second != first+1 {
		t.Errorf("Expected sequential ids, got %d and %d", first, second)
	}
}

// TestWithTx tests commit and rollback through the transaction helper
func TestWithTx(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		insertMedia(ctx, t, tx, 10)
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	errBoom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *Tx) error {
		insertMedia(ctx, t, tx, 11)
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("WithTx should return the callback error, got %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("WithTx should re-panic")
			}
		}()
		_ = db.WithTx(ctx, func(tx *Tx) error {
			insertMedia(ctx, t, tx, 12)
			panic("boom")
		})
	}()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_items").Scan(&count); err != nil {
		t.Fatalf("Failed to count media items: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected only the committed row, got %d rows", count)
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()
	insertMedia(ctx, t, db, 42)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var externalID int
			err := db.QueryRowContext(ctx, "SELECT external_id FROM media_items WHERE external_id = ?", 42).Scan(&externalID)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
			}
			if externalID != 42 {
				t.Errorf("Expected external id 42, got %d", externalID)
			}
		}()
	}
	wg.Wait()
}
