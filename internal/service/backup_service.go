package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"learnportal/internal/database"
	"learnportal/internal/models"
	"learnportal/internal/repository"
	"learnportal/internal/validation"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string                     `json:"version"`
	ExportedAt   time.Time                  `json:"exported_at"`
	DatabaseType string                     `json:"database_type"`
	Modules      []models.Module            `json:"modules"`
	Progress     []models.SubModuleProgress `json:"progress"`
	QuizAttempts []models.QuizAttempt       `json:"quiz_attempts"`
}

// BackupService handles database backup and restore operations.
// Imports double as the way course content is loaded.
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}
	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter writes a complete backup as indented JSON
func (s *BackupService) ExportToWriter(w io.Writer) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: "universal",
	}

	var err error
	if backup.Modules, err = repository.NewModuleRepository(s.db).ListModules(); err != nil {
		return fmt.Errorf("failed to export modules: %w", err)
	}
	if backup.Progress, err = repository.NewProgressRepository(s.db).ListProgress(); err != nil {
		return fmt.Errorf("failed to export progress: %w", err)
	}
	if backup.QuizAttempts, err = repository.NewQuizRepository(s.db).ListAttempts(); err != nil {
		return fmt.Errorf("failed to export quiz attempts: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d modules, %d progress rows, %d quiz attempts",
		len(backup.Modules), len(backup.Progress), len(backup.QuizAttempts))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a backup in a single transaction. Existing rows
// with the same keys are overwritten; duplicate quiz attempts are skipped.
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	for i := range backup.Modules {
		if err := validation.Struct(&backup.Modules[i]); err != nil {
			return fmt.Errorf("invalid module %q: %w", backup.Modules[i].ID, err)
		}
	}

	err := s.db.WithTx(func(tx *database.Tx) error {
		modules := repository.NewModuleRepository(tx)
		for i := range backup.Modules {
			if err := modules.SaveModule(&backup.Modules[i]); err != nil {
				return fmt.Errorf("failed to import modules: %w", err)
			}
		}

		progress := repository.NewProgressRepository(tx)
		for i := range backup.Progress {
			if err := progress.SaveProgress(&backup.Progress[i]); err != nil {
				return fmt.Errorf("failed to import progress: %w", err)
			}
		}

		quizzes := repository.NewQuizRepository(tx)
		for i := range backup.QuizAttempts {
			if _, err := quizzes.CreateAttempt(&backup.QuizAttempts[i]); err != nil {
				return fmt.Errorf("failed to import quiz attempts: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Database import completed: %d modules, %d progress rows, %d quiz attempts",
		len(backup.Modules), len(backup.Progress), len(backup.QuizAttempts))
	return nil
}
