package database

import (
	"strings"
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO users (name, email) VALUES (?, ?)",
			expected: "INSERT INTO users (name, email) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE users SET name = ?, email = ? WHERE id = ?",
			expected: "UPDATE users SET name = ?, email = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestBoolValue(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      bool
		want    string
	}{
		{NewSQLiteDialect(), true, "1"},
		{NewSQLiteDialect(), false, "0"},
		{NewPostgresDialect(), true, "TRUE"},
		{NewMySQLDialect(), false, "FALSE"},
	}

	for _, tt := range tests {
		if got := tt.dialect.BoolValue(tt.in); got != tt.want {
			t.Errorf("%s BoolValue(%v) = %q, want %q", tt.dialect.DriverName(), tt.in, got, tt.want)
		}
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		config  DialectConfig
		want    string
	}{
		{
			name:    "SQLite adds pragmas",
			dialect: NewSQLiteDialect(),
			config:  DialectConfig{Path: "app.db"},
			want:    "app.db?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate",
		},
		{
			name:    "SQLite keeps explicit options",
			dialect: NewSQLiteDialect(),
			config:  DialectConfig{Path: "file:app.db?mode=ro"},
			want:    "file:app.db?mode=ro",
		},
		{
			name:    "MySQL adds parseTime",
			dialect: NewMySQLDialect(),
			config:  DialectConfig{URL: "user:pw@tcp(db:3306)/speakwell"},
			want:    "user:pw@tcp(db:3306)/speakwell?parseTime=true",
		},
		{
			name:    "MySQL appends to existing query",
			dialect: NewMySQLDialect(),
			config:  DialectConfig{URL: "user:pw@tcp(db:3306)/speakwell?charset=utf8mb4"},
			want:    "user:pw@tcp(db:3306)/speakwell?charset=utf8mb4&parseTime=true",
		},
		{
			name:    "PostgreSQL unchanged",
			dialect: NewPostgresDialect(),
			config:  DialectConfig{URL: "postgres://localhost/speakwell?sslmode=disable"},
			want:    "postgres://localhost/speakwell?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DSN(tt.config); got != tt.want {
				t.Errorf("DSN() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForUpdate(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{NewSQLiteDialect(), ""},
		{NewPostgresDialect(), " FOR UPDATE"},
		{NewMySQLDialect(), " FOR UPDATE"},
	}

	for _, tt := range tests {
		if got := tt.dialect.ForUpdate(); got != tt.want {
			t.Errorf("%s ForUpdate() = %q, want %q", tt.dialect.DriverName(), got, tt.want)
		}
	}
}

func TestUpsertPracticedWordQuery(t *testing.T) {
	if !strings.Contains(NewMySQLDialect().UpsertPracticedWordQuery(), "ON DUPLICATE KEY UPDATE") {
		t.Error("MySQL upsert should use ON DUPLICATE KEY UPDATE")
	}
	pg := NewPostgresDialect().RewriteQuery(NewPostgresDialect().UpsertPracticedWordQuery())
	if !strings.Contains(pg, "VALUES ($1, 1)") || !strings.Contains(pg, "ON CONFLICT (word_text)") {
		t.Errorf("unexpected PostgreSQL upsert: %s", pg)
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- comment
CREATE TABLE a (
    id INTEGER
);

CREATE INDEX idx_a ON a(id);
INSERT INTO a (id) VALUES (1)`

	stmts := SplitStatements(content)
	if len(stmts) != 3 {
		t.Fatalf("SplitStatements() returned %d statements, want 3: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE a (") || strings.HasSuffix(stmts[0], ";") {
		t.Errorf("first statement = %q", stmts[0])
	}
	if stmts[2] != "INSERT INTO a (id) VALUES (1)" {
		t.Errorf("trailing statement = %q", stmts[2])
	}
}
