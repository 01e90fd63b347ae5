package repository

import (
	"database/sql"
	"fmt"

	"learnportal/internal/database"
	"learnportal/internal/models"
)

// QuizRepository handles database operations for quiz attempts
type QuizRepository struct {
	db database.DBTX
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(db database.DBTX) *QuizRepository {
	return &QuizRepository{db: db}
}

// CreateAttempt stores an attempt. It reports false when the student
// already has an attempt for the same quiz group.
func (r *QuizRepository) CreateAttempt(attempt *models.QuizAttempt) (bool, error) {
	query := r.db.GetDialect().InsertOrIgnore("quiz_attempts",
		"id", "student_id", "quiz_group_id", "submodule_id", "score", "submitted_at")

	var subModuleID interface{}
	if attempt.SubModuleID != "" {
		subModuleID = attempt.SubModuleID
	}
	result, err := r.db.Exec(query, attempt.ID, attempt.StudentID, attempt.QuizGroupID,
		subModuleID, attempt.Score, attempt.SubmittedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to create quiz attempt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected > 0, nil
}

// GetStudentAttempts retrieves a student's attempts, oldest first
func (r *QuizRepository) GetStudentAttempts(studentID string) ([]models.QuizAttempt, error) {
	query := `
		SELECT id, student_id, quiz_group_id, submodule_id, score, submitted_at
		FROM quiz_attempts
		WHERE student_id = ?
		ORDER BY submitted_at
	`
	return r.queryAttempts(query, studentID)
}

// ListAttempts retrieves every attempt
func (r *QuizRepository) ListAttempts() ([]models.QuizAttempt, error) {
	query := `
		SELECT id, student_id, quiz_group_id, submodule_id, score, submitted_at
		FROM quiz_attempts
		ORDER BY submitted_at
	`
	return r.queryAttempts(query)
}

func (r *QuizRepository) queryAttempts(query string, args ...interface{}) ([]models.QuizAttempt, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.QuizAttempt{}
	for rows.Next() {
		var a models.QuizAttempt
		var subModuleID sql.NullString
		if err := rows.Scan(&a.ID, &a.StudentID, &a.QuizGroupID, &subModuleID, &a.Score, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz attempt: %w", err)
		}
		a.SubModuleID = subModuleID.String
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}
