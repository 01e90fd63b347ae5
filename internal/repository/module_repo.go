package repository

import (
	"database/sql"
	"fmt"

	"learnportal/internal/database"
	"learnportal/internal/models"
)

// ModuleRepository handles database operations for modules and submodules
type ModuleRepository struct {
	db database.DBTX
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(db database.DBTX) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// GetModule retrieves a module with its submodules in order.
// It returns nil when the module does not exist.
func (r *ModuleRepository) GetModule(moduleID string) (*models.Module, error) {
	query := "SELECT id, title, quiz_group_id, created_at FROM modules WHERE id = ?"

	module := &models.Module{}
	var quizGroupID sql.NullString
	err := r.db.QueryRow(query, moduleID).Scan(&module.ID, &module.Title, &quizGroupID, &module.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	module.QuizGroupID = quizGroupID.String

	subs, err := r.GetSubModules(moduleID)
	if err != nil {
		return nil, err
	}
	module.SubModules = subs

	return module, nil
}

// ListModules retrieves every module with its submodules
func (r *ModuleRepository) ListModules() ([]models.Module, error) {
	rows, err := r.db.Query("SELECT id FROM modules ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate modules: %w", err)
	}

	modules := make([]models.Module, 0, len(ids))
	for _, id := range ids {
		module, err := r.GetModule(id)
		if err != nil {
			return nil, err
		}
		if module != nil {
			modules = append(modules, *module)
		}
	}
	return modules, nil
}

// GetSubModules retrieves the submodules of a module ordered by position
func (r *ModuleRepository) GetSubModules(moduleID string) ([]models.SubModule, error) {
	query := `
		SELECT id, module_id, title, duration, position
		FROM submodules
		WHERE module_id = ?
		ORDER BY position
	`
	rows, err := r.db.Query(query, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submodules: %w", err)
	}
	defer rows.Close()

	subs := []models.SubModule{}
	for rows.Next() {
		var sub models.SubModule
		if err := rows.Scan(&sub.ID, &sub.ModuleID, &sub.Title, &sub.Duration, &sub.Position); err != nil {
			return nil, fmt.Errorf("failed to scan submodule: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// GetSubModule retrieves a submodule by ID, or nil when it does not exist
func (r *ModuleRepository) GetSubModule(subModuleID string) (*models.SubModule, error) {
	query := "SELECT id, module_id, title, duration, position FROM submodules WHERE id = ?"

	sub := &models.SubModule{}
	err := r.db.QueryRow(query, subModuleID).Scan(&sub.ID, &sub.ModuleID, &sub.Title, &sub.Duration, &sub.Position)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submodule: %w", err)
	}
	return sub, nil
}

// GetPreviousSubModule retrieves the submodule ordered right before sub,
// or nil when sub is the first of its module.
func (r *ModuleRepository) GetPreviousSubModule(sub *models.SubModule) (*models.SubModule, error) {
	query := `
		SELECT id, module_id, title, duration, position
		FROM submodules
		WHERE module_id = ? AND position < ?
		ORDER BY position DESC
		LIMIT 1
	`
	prev := &models.SubModule{}
	err := r.db.QueryRow(query, sub.ModuleID, sub.Position).Scan(&prev.ID, &prev.ModuleID, &prev.Title, &prev.Duration, &prev.Position)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous submodule: %w", err)
	}
	return prev, nil
}

// SaveModule inserts or updates a module and replaces its submodule list.
// Positions follow list order starting at 1; any submodule missing from the
// list is removed together with its progress.
func (r *ModuleRepository) SaveModule(module *models.Module) error {
	if db, ok := r.db.(*database.DB); ok {
		return db.WithTx(func(tx *database.Tx) error {
			return NewModuleRepository(tx).SaveModule(module)
		})
	}

	dialect := r.db.GetDialect()

	var quizGroupID interface{}
	if module.QuizGroupID != "" {
		quizGroupID = module.QuizGroupID
	}
	query := dialect.Upsert("modules", []string{"id"}, "id", "title", "quiz_group_id")
	if _, err := r.db.Exec(query, module.ID, module.Title, quizGroupID); err != nil {
		return fmt.Errorf("failed to save module %s: %w", module.ID, err)
	}

	// park existing rows on negative positions so reordering never hits UNIQUE (module_id, position)
	if _, err := r.db.Exec("UPDATE submodules SET position = -position WHERE module_id = ? AND position > 0", module.ID); err != nil {
		return fmt.Errorf("failed to reorder submodules of %s: %w", module.ID, err)
	}

	subQuery := dialect.Upsert("submodules", []string{"id"}, "id", "module_id", "title", "duration", "position")
	for i := range module.SubModules {
		sub := &module.SubModules[i]
		sub.ModuleID = module.ID
		sub.Position = i + 1
		if _, err := r.db.Exec(subQuery, sub.ID, module.ID, sub.Title, sub.Duration, sub.Position); err != nil {
			return fmt.Errorf("failed to save submodule %s: %w", sub.ID, err)
		}
	}

	if _, err := r.db.Exec("DELETE FROM submodules WHERE module_id = ? AND position < 0", module.ID); err != nil {
		return fmt.Errorf("failed to remove stale submodules of %s: %w", module.ID, err)
	}
	return nil
}

// GetModuleByQuizGroup retrieves the module a quiz group is attached to,
// or nil when no module uses it.
func (r *ModuleRepository) GetModuleByQuizGroup(quizGroupID string) (*models.Module, error) {
	var moduleID string
	err := r.db.QueryRow("SELECT id FROM modules WHERE quiz_group_id = ? ORDER BY id LIMIT 1", quizGroupID).Scan(&moduleID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find module for quiz group: %w", err)
	}
	return r.GetModule(moduleID)
}
