package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"speakwell/internal/database"
	"speakwell/internal/models"
)

// WordRepository handles practiced words and the predefined word databases
type WordRepository struct {
	db database.DBTX
}

// NewWordRepository creates a new word repository
func NewWordRepository(db database.DBTX) *WordRepository {
	return &WordRepository{db: db}
}

// WithTx returns a repository that runs its statements inside tx
func (r *WordRepository) WithTx(tx *database.Tx) *WordRepository {
	return &WordRepository{db: tx}
}

// BumpPracticed increments the practice count of word, creating it if needed
func (r *WordRepository) BumpPracticed(ctx context.Context, word string) error {
	if _, err := r.db.ExecContext(ctx, r.db.GetDialect().UpsertPracticedWordQuery(), word); err != nil {
		return fmt.Errorf("failed to record practiced word: %w", err)
	}
	return nil
}

// TimesPracticed returns how often word was practiced, 0 if never
func (r *WordRepository) TimesPracticed(ctx context.Context, word string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT times_practiced FROM practiced_words WHERE word_text = ?", word).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get practiced word: %w", err)
	}
	return n, nil
}

// PopularWords returns the most practiced words across all students
func (r *WordRepository) PopularWords(ctx context.Context, limit int) ([]models.WordStat, error) {
	query := `
		SELECT word_text, times_practiced
		FROM practiced_words
		ORDER BY times_practiced DESC, word_text
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query practiced words: %w", err)
	}
	defer rows.Close()

	var words []models.WordStat
	for rows.Next() {
		var w models.WordStat
		if err := rows.Scan(&w.WordText, &w.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan practiced word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// CreateWordDatabase inserts a named word list with its words in order
func (r *WordRepository) CreateWordDatabase(ctx context.Context, name, description string, words []string) (*models.WordDatabase, error) {
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx,
		"INSERT INTO word_databases (name, description, created_at) VALUES (?, ?, ?)",
		name, description, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create word database: %w", err)
	}

	for i, word := range words {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO word_database_words (word_database_id, word_text, order_index) VALUES (?, ?, ?)",
			id, word, i,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to add word %q: %w", word, err)
		}
	}

	return &models.WordDatabase{
		ID:          id,
		Name:        name,
		Description: description,
		WordCount:   len(words),
		CreatedAt:   now,
	}, nil
}

const wordDatabaseQuery = `
	SELECT d.id, d.name, d.description, d.created_at,
		(SELECT COUNT(*) FROM word_database_words w WHERE w.word_database_id = d.id)
	FROM word_databases d`

func scanWordDatabase(row rowScanner) (*models.WordDatabase, error) {
	db := &models.WordDatabase{}
	err := row.Scan(&db.ID, &db.Name, &db.Description, &db.CreatedAt, &db.WordCount)
	return db, err
}

// GetWordDatabase retrieves a word database by ID
func (r *WordRepository) GetWordDatabase(ctx context.Context, id int64) (*models.WordDatabase, error) {
	return r.getWordDatabase(ctx, " WHERE d.id = ?", id)
}

// GetWordDatabaseByName retrieves a word database by its unique name
func (r *WordRepository) GetWordDatabaseByName(ctx context.Context, name string) (*models.WordDatabase, error) {
	return r.getWordDatabase(ctx, " WHERE d.name = ?", name)
}

func (r *WordRepository) getWordDatabase(ctx context.Context, where string, arg any) (*models.WordDatabase, error) {
	db, err := scanWordDatabase(r.db.QueryRowContext(ctx, wordDatabaseQuery+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word database: %w", err)
	}
	return db, nil
}

// ListWordDatabases returns all word databases ordered by name
func (r *WordRepository) ListWordDatabases(ctx context.Context) ([]models.WordDatabase, error) {
	rows, err := r.db.QueryContext(ctx, wordDatabaseQuery+" ORDER BY d.name")
	if err != nil {
		return nil, fmt.Errorf("failed to query word databases: %w", err)
	}
	defer rows.Close()

	var dbs []models.WordDatabase
	for rows.Next() {
		db, err := scanWordDatabase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan word database: %w", err)
		}
		dbs = append(dbs, *db)
	}
	return dbs, rows.Err()
}

// ListWordDatabaseWords returns a page of a word database's words in order
func (r *WordRepository) ListWordDatabaseWords(ctx context.Context, databaseID int64, offset, limit int) ([]models.WordDatabaseWord, error) {
	query := `
		SELECT id, word_database_id, word_text, order_index
		FROM word_database_words
		WHERE word_database_id = ?
		ORDER BY order_index, id
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, databaseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	var words []models.WordDatabaseWord
	for rows.Next() {
		var w models.WordDatabaseWord
		if err := rows.Scan(&w.ID, &w.WordDatabaseID, &w.WordText, &w.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}
