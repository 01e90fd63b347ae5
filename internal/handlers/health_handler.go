package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Startup steps reported by /healthz until the server is ready
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepServices   = "Initializing services"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu      sync.RWMutex
	ready   bool
	current string
	steps   []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// NewStartupStatus creates a status with every step pending
func NewStartupStatus(steps ...string) *StartupStatus {
	s := &StartupStatus{current: "Initializing..."}
	for _, name := range steps {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
}

// CompleteStep marks a step as completed
func (s *StartupStatus) CompleteStep(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.steps {
		if s.steps[i].Name == name {
			s.steps[i].Completed = true
			break
		}
	}
	s.current = name
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = "Server ready"
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Progress returns the share of completed steps, 0-100
func (s *StartupStatus) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ready {
		return 100
	}
	if len(s.steps) == 0 {
		return 0
	}
	completed := 0
	for _, step := range s.steps {
		if step.Completed {
			completed++
		}
	}
	return (completed * 100) / len(s.steps)
}

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	db      Pinger
	startup *StartupStatus
}

// NewHealthHandler creates a health handler. startup may be nil when the
// server is ready from the start.
func NewHealthHandler(db Pinger, startup *StartupStatus) *HealthHandler {
	if startup == nil {
		startup = NewStartupStatus()
		startup.MarkReady()
	}
	return &HealthHandler{db: db, startup: startup}
}

type healthResponse struct {
	Status   string        `json:"status"`
	Progress int           `json:"progress"`
	Current  string        `json:"current,omitempty"`
	Steps    []StartupStep `json:"steps,omitempty"`
}

// Health reports 200 once startup finished and the database answers
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.startup.IsReady() {
		h.startup.mu.RLock()
		resp := healthResponse{
			Status:  "starting",
			Current: h.startup.current,
			Steps:   append([]StartupStep(nil), h.startup.steps...),
		}
		h.startup.mu.RUnlock()
		resp.Progress = h.startup.Progress()
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Database unavailable", "Health check failed", err)
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Progress: 100})
}
