package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

// openTestDB creates a migrated SQLite database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), "../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{
		"users", "classes", "class_enrollments", "recordings", "student_progress",
		"practiced_words", "word_databases", "word_database_words", "assignments",
		"assignment_words", "assignment_students", "assignment_submissions",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again is a no-op
	if err := db.RunMigrations(ctx, "../../migrations"); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 recorded migration, got %d", count)
	}
}

// TestDatabaseTransactions tests commit and rollback through WithTx
func TestDatabaseTransactions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecReturningID(ctx, "INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)",
			"testuser", "test@example.com", "hashedpass", "student")
		return err
	})
	if err != nil {
		t.Fatalf("Failed to insert in transaction: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", "testuser").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user, got %d", count)
	}

	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)",
			"testuser2", "test2@example.com", "hashedpass", "student"); err != nil {
			return err
		}
		// Duplicate username fails and rolls back the first insert
		_, err := tx.ExecContext(ctx, "INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)",
			"testuser", "other@example.com", "hashedpass", "student")
		return err
	})
	if err == nil {
		t.Fatal("Expected unique constraint error")
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", "testuser2").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 users after rollback, got %d", count)
	}
}

// TestPracticedWordUpsert bumps the same word from several goroutines
func TestPracticedWordUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.WithTx(ctx, func(tx *Tx) error {
				_, err := tx.ExecContext(ctx, tx.GetDialect().UpsertPracticedWordQuery(), "hello")
				return err
			})
			if err != nil {
				t.Errorf("Upsert failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var times int
	if err := db.QueryRowContext(ctx, "SELECT times_practiced FROM practiced_words WHERE word_text = ?", "hello").Scan(&times); err != nil {
		t.Fatalf("Failed to read practiced word: %v", err)
	}
	if times != 10 {
		t.Errorf("Expected times_practiced 10, got %d", times)
	}
}
