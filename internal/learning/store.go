package learning

import (
	"context"
	"log"
	"time"
)

// Store is the remote progress backend. Every call is scoped to the
// authenticated student the implementation was built for.
type Store interface {
	StartProgress(ctx context.Context, subModuleID string) error
	UpdateProgress(ctx context.Context, update ProgressUpdate) error
	CompleteProgress(ctx context.Context, subModuleID string) error
	GetModuleProgress(ctx context.Context, moduleID string) (ModuleProgress, error)
	GetSubModuleProgress(ctx context.Context, subModuleID string) (Progress, error)
	CheckAccess(ctx context.Context, subModuleID string) (AccessDecision, error)
	GetQuizAttempts(ctx context.Context, studentID string) ([]QuizAttempt, error)
	GetModuleMetadata(ctx context.Context, moduleID string) (Module, error)
}

// Alerter shows a blocking notice to the learner
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to the Alerter interface
type AlertFunc func(message string)

// Alert calls f(message)
func (f AlertFunc) Alert(message string) {
	f(message)
}

type logAlerter struct{}

func (logAlerter) Alert(message string) {
	log.Printf("ALERT: %s", message)
}

// Config holds the viewer identity and the watch time simulation cadence
type Config struct {
	StudentID string
	Role      Role

	// WarmUp delays the first tick after a submodule is opened
	WarmUp time.Duration
	// TickInterval is the real time between two ticks
	TickInterval time.Duration
	// TickSeconds is the simulated watch time added per tick
	TickSeconds int
	// HeartbeatEvery sends an update whenever watch time is a multiple of it
	HeartbeatEvery int
	// CompletionDelay postpones the completion call after the threshold is hit
	CompletionDelay time.Duration

	Alerter Alerter
}

// DefaultConfig returns the standard cadence for a student
func DefaultConfig(studentID string) Config {
	return Config{
		StudentID:       studentID,
		Role:            RoleStudent,
		WarmUp:          2 * time.Second,
		TickInterval:    5 * time.Second,
		TickSeconds:     5,
		HeartbeatEvery:  30,
		CompletionDelay: time.Second,
	}
}

func (c Config) normalized() Config {
	if c.Role == "" {
		c.Role = RoleStudent
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 5 * time.Second
	}
	if c.TickSeconds <= 0 {
		c.TickSeconds = 5
	}
	if c.HeartbeatEvery <= 0 {
		c.HeartbeatEvery = 30
	}
	if c.WarmUp < 0 {
		c.WarmUp = 0
	}
	if c.CompletionDelay < 0 {
		c.CompletionDelay = 0
	}
	if c.Alerter == nil {
		c.Alerter = logAlerter{}
	}
	return c
}

// IsStudent reports whether progress is tracked for this viewer
func (c Config) IsStudent() bool {
	return c.Role == RoleStudent
}
