package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"speakwell/internal/database"
	"speakwell/internal/repository"
	"speakwell/internal/validation"
)

// WordDatabaseSeed is one word database in a seed file
type WordDatabaseSeed struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Words       []string `yaml:"words"`
}

type seedFile struct {
	Databases []WordDatabaseSeed `yaml:"databases"`
}

// WordSeeder loads word databases from YAML
type WordSeeder struct {
	db *database.DB
}

// NewWordSeeder creates a new word seeder
func NewWordSeeder(db *database.DB) *WordSeeder {
	return &WordSeeder{db: db}
}

// SeedFile seeds from a YAML file. A missing file is not an error.
func (s *WordSeeder) SeedFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		slog.Info("no word database seed file", "path", path)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return s.Seed(ctx, f)
}

// Seed creates each database that does not exist yet, by name, and returns
// how many were created. Invalid words are skipped.
func (s *WordSeeder) Seed(ctx context.Context, r io.Reader) (int, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return 0, fmt.Errorf("failed to decode seed file: %w", err)
	}

	created := 0
	for _, seed := range file.Databases {
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			return created, fmt.Errorf("seed database without a name")
		}

		err := s.db.WithTx(ctx, func(tx *database.Tx) error {
			repo := repository.NewWordRepository(tx)
			existing, err := repo.GetWordDatabaseByName(ctx, name)
			if err != nil {
				return err
			}
			if existing != nil {
				return nil
			}

			words := cleanSeedWords(seed.Words)
			if _, err := repo.CreateWordDatabase(ctx, name, seed.Description, words); err != nil {
				return err
			}
			created++
			slog.Info("seeded word database", "name", name, "words", len(words))
			return nil
		})
		if err != nil {
			return created, fmt.Errorf("failed to seed %q: %w", name, err)
		}
	}
	return created, nil
}

func cleanSeedWords(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if validation.ValidateWord(w) != nil {
			slog.Warn("skipping invalid seed word", "word", w)
			continue
		}
		w = strings.ToLower(strings.TrimSpace(w))
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
