package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const (
	maxRetries     = 3
	initialBackoff = 250 * time.Millisecond
)

// Service defines JSON document persistence operations
type Service interface {
	Load(result any) error
	Save(document any) error
	SaveWithRetry(document any) error
	GetFilePath() string
}

// FileService persists a single JSON document on an afero filesystem
type FileService struct {
	fs       afero.Fs
	filePath string
	backoff  time.Duration
}

func NewFileService(fs afero.Fs, filePath string) *FileService {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileService{
		fs:       fs,
		filePath: filePath,
		backoff:  initialBackoff,
	}
}

func (s *FileService) Load(result any) error {
	data, err := afero.ReadFile(s.fs, s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.filePath, err)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", s.filePath, err)
	}

	return nil
}

func (s *FileService) GetFilePath() string {
	return s.filePath
}

// Save writes the document to a temp file and renames it into place
func (s *FileService) Save(document any) error {
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.filePath, err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := afero.WriteFile(s.fs, tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := s.fs.Rename(tmpFile, s.filePath); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// SaveWithRetry saves with exponential backoff between attempts
func (s *FileService) SaveWithRetry(document any) error {
	var err error

	for i := 0; i < maxRetries; i++ {
		err = s.Save(document)
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			backoff := s.backoff * time.Duration(1<<uint(i))
			slog.Warn("⚠️ failed to persist file, retrying",
				"file", s.filePath,
				"attempt", i+1,
				"maxRetries", maxRetries,
				"backoff", backoff,
				"error", err,
			)
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("failed to persist %s after %d retries: %w", s.filePath, maxRetries, err)
}
