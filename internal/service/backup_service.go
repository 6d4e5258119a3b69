package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"speakwell/internal/database"
)

const backupVersion = "1.0"

// backupTimeLayout is accepted as a timestamp literal by all three dialects
const backupTimeLayout = "2006-01-02 15:04:05.999999"

// backupTable lists a table's columns. Tables are exported and imported in
// this order so that foreign keys always point at rows already restored.
type backupTable struct {
	name    string
	columns []string
}

var backupTables = []backupTable{
	{"users", []string{"id", "username", "email", "password_hash", "role", "created_at"}},
	{"classes", []string{"id", "teacher_id", "class_name", "description", "created_at"}},
	{"class_enrollments", []string{"id", "class_id", "student_id", "enrolled_at"}},
	{"recordings", []string{"id", "student_id", "word_text", "audio_file_path", "automated_scores", "pronunciation_score",
		"teacher_feedback", "teacher_grade", "reviewed_by", "status", "flag_for_practice", "is_automated_feedback",
		"created_at", "reviewed_at"}},
	{"student_progress", []string{"id", "student_id", "date", "words_practiced", "total_attempts", "average_score"}},
	{"practiced_words", []string{"id", "word_text", "times_practiced", "created_at"}},
	{"word_databases", []string{"id", "name", "description", "created_at"}},
	{"word_database_words", []string{"id", "word_database_id", "word_text", "order_index"}},
	{"assignments", []string{"id", "teacher_id", "title", "description", "word_database_id", "due_date", "created_at", "updated_at"}},
	{"assignment_words", []string{"id", "assignment_id", "word_text", "order_index"}},
	{"assignment_students", []string{"id", "assignment_id", "student_id", "assigned_at", "completed_at"}},
	{"assignment_submissions", []string{"id", "assignment_id", "student_id", "word_text", "recording_id", "submitted_at"}},
}

// BackupData is the complete database in a dialect-independent form
type BackupData struct {
	Version      string                      `json:"version"`
	ExportedAt   time.Time                   `json:"exported_at"`
	DatabaseType string                      `json:"database_type"`
	Tables       map[string][]map[string]any `json:"tables"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes the backup to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	if err := s.ExportToWriter(ctx, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Import restores a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()
	return s.ImportFromReader(ctx, f)
}

// Clear deletes every row, children first
func (s *BackupService) Clear(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		for i := len(backupTables) - 1; i >= 0; i-- {
			name := backupTables[i].name
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
				return fmt.Errorf("failed to clear %s: %w", name, err)
			}
		}
		return nil
	})
}

// ExportToWriter writes every table as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Tables:       make(map[string][]map[string]any, len(backupTables)),
	}

	for _, t := range backupTables {
		rows, err := s.exportTable(ctx, t)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", t.name, err)
		}
		backup.Tables[t.name] = rows
		slog.Info("exported table", "table", t.name, "rows", len(rows))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

func (s *BackupService) exportTable(ctx context.Context, t backupTable) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(t.columns, ", "), t.name)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(t.columns))
		ptrs := make([]any, len(t.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(t.columns))
		for i, col := range t.columns {
			row[col] = exportValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// exportValue normalizes driver-specific scan results
func exportValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(backupTimeLayout)
	default:
		return x
	}
}

// ImportFromReader restores a backup into an empty, migrated database. The
// whole restore runs in one transaction.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	slog.Info("importing backup", "version", backup.Version, "exported_at", backup.ExportedAt, "source", backup.DatabaseType)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, t := range backupTables {
			rows := backup.Tables[t.name]
			if err := importTable(ctx, tx, t, rows); err != nil {
				return fmt.Errorf("failed to import %s: %w", t.name, err)
			}
			slog.Info("imported table", "table", t.name, "rows", len(rows))
		}
		if s.db.Dialect.DriverName() == "postgres" {
			return resetSequences(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("database import completed")
	return nil
}

func importTable(ctx context.Context, tx *database.Tx, t backupTable, rows []map[string]any) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(t.columns, ", "), placeholders)

	for _, row := range rows {
		args := make([]any, len(t.columns))
		for i, col := range t.columns {
			args[i] = importValue(row[col])
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

func importValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

// resetSequences moves postgres id sequences past the restored ids
func resetSequences(ctx context.Context, tx *database.Tx) error {
	for _, t := range backupTables {
		query := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
			t.name,
		)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", t.name, err)
		}
	}
	return nil
}
