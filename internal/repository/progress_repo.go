package repository

import (
	"database/sql"
	"fmt"
	"time"

	"learnportal/internal/database"
	"learnportal/internal/models"
)

// ProgressRepository handles database operations for submodule progress
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `student_id, submodule_id, watch_time_seconds, completion_percentage,
	is_completed, started_at, updated_at, completed_at`

// StartProgress creates the progress row if it does not exist yet.
// Calling it again for the same student and submodule changes nothing.
func (r *ProgressRepository) StartProgress(studentID, subModuleID string) error {
	now := time.Now().UTC()
	query := r.db.GetDialect().InsertOrIgnore("submodule_progress",
		"student_id", "submodule_id", "watch_time_seconds", "completion_percentage",
		"is_completed", "started_at", "updated_at")

	_, err := r.db.Exec(query, studentID, subModuleID, 0, 0.0, false, now, now)
	if err != nil {
		return fmt.Errorf("failed to start progress: %w", err)
	}
	return nil
}

// UpdateProgress stores a heartbeat. Watch time never decreases and a
// completed row is left untouched. It reports whether the row changed.
func (r *ProgressRepository) UpdateProgress(studentID, subModuleID string, watchTimeSeconds int, completionPercentage float64) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE submodule_progress
		SET watch_time_seconds = ?, completion_percentage = ?, updated_at = ?
		WHERE student_id = ? AND submodule_id = ?
			AND is_completed = %s
			AND watch_time_seconds <= ?
	`, r.db.GetDialect().BoolValue(false))

	result, err := r.db.Exec(query, watchTimeSeconds, completionPercentage, time.Now().UTC(),
		studentID, subModuleID, watchTimeSeconds)
	if err != nil {
		return false, fmt.Errorf("failed to update progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return affected > 0, nil
}

// CompleteProgress marks a submodule completed. The first completion time is kept.
func (r *ProgressRepository) CompleteProgress(studentID, subModuleID string) error {
	if err := r.StartProgress(studentID, subModuleID); err != nil {
		return err
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		UPDATE submodule_progress
		SET is_completed = %s, completion_percentage = 100,
			completed_at = COALESCE(completed_at, ?), updated_at = ?
		WHERE student_id = ? AND submodule_id = ?
	`, r.db.GetDialect().BoolValue(true))

	if _, err := r.db.Exec(query, now, now, studentID, subModuleID); err != nil {
		return fmt.Errorf("failed to complete progress: %w", err)
	}
	return nil
}

// GetProgress retrieves one progress row, or nil if the student never started the submodule
func (r *ProgressRepository) GetProgress(studentID, subModuleID string) (*models.SubModuleProgress, error) {
	query := "SELECT " + progressColumns + " FROM submodule_progress WHERE student_id = ? AND submodule_id = ?"

	p, err := scanProgress(r.db.QueryRow(query, studentID, subModuleID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// GetModuleCompletion lists every submodule of a module in order with the
// student's completion flag. Submodules never started count as incomplete.
func (r *ProgressRepository) GetModuleCompletion(studentID, moduleID string) ([]models.SubModuleStatus, error) {
	query := `
		SELECT s.id, s.title, p.is_completed
		FROM submodules s
		LEFT JOIN submodule_progress p ON p.submodule_id = s.id AND p.student_id = ?
		WHERE s.module_id = ?
		ORDER BY s.position
	`
	rows, err := r.db.Query(query, studentID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query module completion: %w", err)
	}
	defer rows.Close()

	statuses := []models.SubModuleStatus{}
	for rows.Next() {
		var status models.SubModuleStatus
		var completed sql.NullBool
		if err := rows.Scan(&status.SubModuleID, &status.Title, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan module completion: %w", err)
		}
		status.IsCompleted = completed.Valid && completed.Bool
		statuses = append(statuses, status)
	}

	return statuses, rows.Err()
}

// ListProgress retrieves every progress row
func (r *ProgressRepository) ListProgress() ([]models.SubModuleProgress, error) {
	rows, err := r.db.Query("SELECT " + progressColumns + " FROM submodule_progress ORDER BY student_id, submodule_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var out []models.SubModuleProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SaveProgress writes a full progress row, replacing any existing one
func (r *ProgressRepository) SaveProgress(p *models.SubModuleProgress) error {
	query := r.db.GetDialect().Upsert("submodule_progress", []string{"student_id", "submodule_id"},
		"student_id", "submodule_id", "watch_time_seconds", "completion_percentage",
		"is_completed", "started_at", "updated_at", "completed_at")

	var completedAt interface{}
	if p.CompletedAt != nil {
		completedAt = p.CompletedAt.UTC()
	}
	_, err := r.db.Exec(query, p.StudentID, p.SubModuleID, p.WatchTimeSeconds, p.CompletionPercentage,
		p.IsCompleted, p.StartedAt.UTC(), p.UpdatedAt.UTC(), completedAt)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(row rowScanner) (*models.SubModuleProgress, error) {
	p := &models.SubModuleProgress{}
	var completedAt sql.NullTime
	err := row.Scan(
		&p.StudentID,
		&p.SubModuleID,
		&p.WatchTimeSeconds,
		&p.CompletionPercentage,
		&p.IsCompleted,
		&p.StartedAt,
		&p.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	return p, nil
}
