package models

import "time"

// SubModuleProgress represents a student's progress on one submodule
type SubModuleProgress struct {
	StudentID            string     `json:"studentId"`
	SubModuleID          string     `json:"subModuleId"`
	WatchTimeSeconds     int        `json:"watchTimeSeconds"`
	CompletionPercentage float64    `json:"completionPercentage"`
	IsCompleted          bool       `json:"isCompleted"`
	StartedAt            time.Time  `json:"startedAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// SubModuleStatus is one entry of a module's completion map
type SubModuleStatus struct {
	SubModuleID string `json:"subModuleId"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
}

// ModuleProgress is the per-module aggregate for one student
type ModuleProgress struct {
	ModuleID            string            `json:"moduleId"`
	TotalSubModules     int               `json:"totalSubModules"`
	CompletedSubModules int               `json:"completedSubModules"`
	OverallProgress     float64           `json:"overallProgress"` // 0-100, rounded
	SubModules          []SubModuleStatus `json:"subModules"`
}

// IsComplete reports whether every submodule of the module is completed
func (m *ModuleProgress) IsComplete() bool {
	return m.TotalSubModules > 0 && m.CompletedSubModules >= m.TotalSubModules
}

// AccessDecision is the verdict on whether a submodule may be opened
type AccessDecision struct {
	CanAccess bool   `json:"canAccess"`
	Message   string `json:"message,omitempty"`
}
