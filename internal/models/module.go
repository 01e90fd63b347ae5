package models

import "time"

// Module represents an ordered course module
type Module struct {
	ID          string      `json:"id" validate:"notblank,max=64"`
	Title       string      `json:"title" validate:"notblank,max=255"`
	QuizGroupID string      `json:"quizGroupId,omitempty" validate:"max=64"` // Empty when no quiz is attached
	CreatedAt   time.Time   `json:"createdAt"`
	SubModules  []SubModule `json:"subModules" validate:"dive"`
}

// HasQuiz reports whether the module ends with a quiz
func (m *Module) HasQuiz() bool {
	return m.QuizGroupID != ""
}

// SubModule represents one lesson unit within a module
type SubModule struct {
	ID       string `json:"id" validate:"notblank,max=64"`
	ModuleID string `json:"moduleId"`
	Title    string `json:"title" validate:"notblank,max=255"`
	Duration string `json:"duration" validate:"omitempty,duration"` // "mm:ss" or "hh:mm:ss"
	Position int    `json:"position" validate:"min=0"`               // assigned from list order on save
}
