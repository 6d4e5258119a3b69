package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".opus": true,
	".webm": true,
	".flac": true,
}

// AudioStore writes uploaded recordings under a per-student directory
type AudioStore struct {
	dir     string
	maxSize int64
	now     func() time.Time
}

// NewAudioStore creates a store rooted at dir. maxSize <= 0 disables the
// size limit.
func NewAudioStore(dir string, maxSize int64) *AudioStore {
	return &AudioStore{dir: dir, maxSize: maxSize, now: time.Now}
}

// Save copies r to <dir>/<student>/<word>_<timestamp>_<uuid><ext> and returns
// the path. The extension is taken from the uploaded filename.
func (s *AudioStore) Save(studentID int64, word, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !audioExtensions[ext] {
		return "", ErrInvalidAudio
	}

	studentDir := filepath.Join(s.dir, strconv.FormatInt(studentID, 10))
	if err := os.MkdirAll(studentDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s%s", fileSafe(word), s.now().Format("20060102_150405"), uuid.NewString(), ext)
	path := filepath.Join(studentDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to write audio file: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to write audio file: %w", closeErr)
	case s.maxSize > 0 && n > s.maxSize:
		err = ErrAudioTooLarge
	case n == 0:
		err = ErrInvalidAudio
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// Remove deletes a stored recording. A missing file is not an error.
func (s *AudioStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func fileSafe(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "word"
	}
	return b.String()
}
