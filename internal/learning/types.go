package learning

import (
	"math"
	"time"
)

// Role identifies who is viewing a module. Only students are tracked and gated.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// SubModule is one lesson unit of a module. Its position in the module's
// submodule list is its order.
type SubModule struct {
	ID       string
	Title    string
	Duration string // "mm:ss" or "hh:mm:ss"
}

// ExpectedDuration returns the expected watch time in seconds
func (s SubModule) ExpectedDuration() int {
	return ParseDuration(s.Duration)
}

// Module is an ordered list of submodules with an optional terminal quiz
type Module struct {
	ID          string
	Title       string
	QuizGroupID string // empty when the module has no quiz
	SubModules  []SubModule
}

// HasQuiz reports whether a quiz is attached to the module
func (m Module) HasQuiz() bool {
	return m.QuizGroupID != ""
}

// IndexOf returns the position of a submodule, or -1
func (m Module) IndexOf(subModuleID string) int {
	for i, sub := range m.SubModules {
		if sub.ID == subModuleID {
			return i
		}
	}
	return -1
}

// CompletionState tracks a submodule's completion, including the optimistic
// window between marking it locally and the server confirming it.
type CompletionState int

const (
	CompletionNone CompletionState = iota
	CompletionPending
	CompletionConfirmed
	CompletionFailed
)

func (c CompletionState) String() string {
	switch c {
	case CompletionPending:
		return "pending"
	case CompletionConfirmed:
		return "confirmed"
	case CompletionFailed:
		return "failed"
	default:
		return "none"
	}
}

// Progress is the progress of one student on one submodule
type Progress struct {
	SubModuleID          string
	WatchTimeSeconds     int
	CompletionPercentage float64
	Completion           CompletionState
}

// IsCompleted reports whether the submodule counts as completed locally.
// A failed completion does not count.
func (p Progress) IsCompleted() bool {
	return p.Completion == CompletionPending || p.Completion == CompletionConfirmed
}

// pinned reports whether watch time and percentage may no longer change
func (p Progress) pinned() bool {
	return p.Completion != CompletionNone
}

// SubModuleCompletion is one entry of the module completion map
type SubModuleCompletion struct {
	SubModuleID string
	IsCompleted bool
}

// ModuleProgress is the per-module aggregate computed by the backend
type ModuleProgress struct {
	ModuleID            string
	TotalSubModules     int
	CompletedSubModules int
	OverallProgress     float64
	SubModules          []SubModuleCompletion
}

// CompletionMap indexes the per-submodule completion flags by submodule ID
func (m ModuleProgress) CompletionMap() map[string]bool {
	completed := make(map[string]bool, len(m.SubModules))
	for _, sub := range m.SubModules {
		completed[sub.SubModuleID] = sub.IsCompleted
	}
	return completed
}

// AllCompleted reports whether the aggregate says every submodule is done
func (m ModuleProgress) AllCompleted() bool {
	return m.CompletedSubModules >= m.TotalSubModules
}

// markCompleted sets the flag for one submodule and recounts the aggregate
func (m *ModuleProgress) markCompleted(subModuleID string) {
	found := false
	subs := make([]SubModuleCompletion, len(m.SubModules))
	copy(subs, m.SubModules)
	for i := range subs {
		if subs[i].SubModuleID == subModuleID {
			subs[i].IsCompleted = true
			found = true
		}
	}
	if !found {
		return
	}
	completed := 0
	for _, sub := range subs {
		if sub.IsCompleted {
			completed++
		}
	}
	m.SubModules = subs
	m.CompletedSubModules = completed
	if m.TotalSubModules > 0 {
		m.OverallProgress = math.Round(100 * float64(completed) / float64(m.TotalSubModules))
	}
}

// QuizAttempt is a past quiz submission by a student
type QuizAttempt struct {
	ID          string
	StudentID   string
	QuizGroupID string
	SubModuleID string
	Score       float64
	SubmittedAt time.Time
}

// AccessDecision is the server's verdict on opening a submodule
type AccessDecision struct {
	CanAccess bool
	Message   string
}

// ProgressUpdate is one heartbeat sent to the store
type ProgressUpdate struct {
	SubModuleID          string
	WatchTimeSeconds     int
	CompletionPercentage float64
	Sequence             int64
}
