package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"learnportal/internal/database"
	"learnportal/internal/handlers"
	"learnportal/internal/learning"
	"learnportal/internal/models"
	"learnportal/internal/repository"
	"learnportal/internal/security"
	"learnportal/internal/service"
)

type testBackend struct {
	srv    *httptest.Server
	tokens *security.TokenManager
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	modules := repository.NewModuleRepository(db)
	err = modules.SaveModule(&models.Module{
		ID:          "mod-1",
		Title:       "Foundations",
		QuizGroupID: "quiz-1",
		SubModules: []models.SubModule{
			{ID: "A", Title: "Intro", Duration: "01:40"},
			{ID: "B", Title: "Basics", Duration: "01:40"},
		},
	})
	if err != nil {
		t.Fatalf("Failed to seed module: %v", err)
	}

	svc := service.NewProgressService(modules, repository.NewProgressRepository(db), repository.NewQuizRepository(db), nil)
	tokens, err := security.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	router := handlers.NewRouter(handlers.NewProgressHandler(svc), handlers.NewHealthHandler(db, nil), handlers.NewMiddleware(tokens, nil))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testBackend{srv: srv, tokens: tokens}
}

func (b *testBackend) client(t *testing.T, studentID, role string) *ProgressClient {
	t.Helper()
	token, err := b.tokens.Issue(models.Identity{StudentID: studentID, Role: role})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, b.srv.Client())
	return New(ctx, b.srv.URL, studentID, token)
}

type alerts struct {
	mu       sync.Mutex
	messages []string
}

func (a *alerts) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func (a *alerts) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages)
}

func viewerConfig(studentID string, alerter learning.Alerter) learning.Config {
	return learning.Config{
		StudentID:      studentID,
		Role:           learning.RoleStudent,
		TickInterval:   time.Millisecond,
		TickSeconds:    10,
		HeartbeatEvery: 30,
		Alerter:        alerter,
	}
}

func TestViewerCompletesModuleAgainstServer(t *testing.T) {
	backend := newTestBackend(t)
	c := backend.client(t, "s-1", models.RoleStudent)
	ctx := context.Background()

	al := &alerts{}
	viewer := learning.NewViewer(c, viewerConfig("s-1", al), nil, nil)
	defer viewer.Close()

	if err := viewer.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := viewer.QuizState(); got != learning.QuizLockedIncomplete {
		t.Fatalf("expected quiz locked before watching, got %s", got)
	}

	if _, err := viewer.Open(ctx, 1); !errors.Is(err, learning.ErrSubModuleLocked) {
		t.Fatalf("expected skipping ahead to be refused, got %v", err)
	}
	if al.count() != 1 {
		t.Fatalf("expected the learner to be alerted once, got %d", al.count())
	}

	view, err := viewer.Open(ctx, 0)
	if err != nil {
		t.Fatalf("Open A: %v", err)
	}
	if view.Locked {
		t.Fatalf("expected A to be open, got %+v", view)
	}
	viewer.Wait()

	progress, err := c.GetSubModuleProgress(ctx, "A")
	if err != nil {
		t.Fatalf("GetSubModuleProgress: %v", err)
	}
	if !progress.IsCompleted() {
		t.Fatalf("expected A completed on the server, got %+v", progress)
	}

	if _, err := viewer.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	viewer.Wait()

	if got := viewer.QuizState(); got != learning.QuizUnlocked {
		t.Fatalf("expected quiz unlocked after the last submodule, got %s", got)
	}
	if err := viewer.StartQuiz(); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}

	if _, err := c.SubmitQuizAttempt(ctx, "quiz-1", "B", 85); err != nil {
		t.Fatalf("SubmitQuizAttempt: %v", err)
	}
	viewer.RefreshAttempts(ctx)
	if got := viewer.QuizState(); got != learning.QuizLockedAttempted {
		t.Fatalf("expected quiz locked after the attempt, got %s", got)
	}

	_, err = c.SubmitQuizAttempt(ctx, "quiz-1", "B", 99)
	if !IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected a second attempt to conflict, got %v", err)
	}
}

func TestNewLeavesTimeoutToContext(t *testing.T) {
	c := New(context.Background(), "http://localhost", "s-1", "token")
	if c.httpClient.Timeout != 0 {
		t.Fatalf("expected no client-wide timeout, got %s", c.httpClient.Timeout)
	}

	backend := newTestBackend(t)
	c = backend.client(t, "s-1", models.RoleStudent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GetModuleMetadata(ctx, "mod-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a cancelled context to abort the request, got %v", err)
	}
}

func TestCheckAccessReflectsServer(t *testing.T) {
	backend := newTestBackend(t)
	c := backend.client(t, "s-1", models.RoleStudent)
	ctx := context.Background()

	decision, err := c.CheckAccess(ctx, "B")
	if err != nil {
		t.Fatalf("CheckAccess: %v", err)
	}
	if decision.CanAccess || decision.Message == "" {
		t.Fatalf("expected B locked with a message, got %+v", decision)
	}

	if err := c.CompleteProgress(ctx, "A"); err != nil {
		t.Fatalf("CompleteProgress: %v", err)
	}
	mp, err := c.GetModuleProgress(ctx, "mod-1")
	if err != nil {
		t.Fatalf("GetModuleProgress: %v", err)
	}
	if mp.CompletedSubModules != 1 || !mp.CompletionMap()["A"] {
		t.Fatalf("unexpected aggregate %+v", mp)
	}

	decision, _ = c.CheckAccess(ctx, "B")
	if !decision.CanAccess {
		t.Fatalf("expected B unlocked, got %+v", decision)
	}
}

func TestAPIErrors(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	c := backend.client(t, "s-1", models.RoleStudent)
	_, err := c.GetModuleMetadata(ctx, "missing")
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404, got %v", err)
	}

	err = c.UpdateProgress(ctx, learning.ProgressUpdate{SubModuleID: "A", WatchTimeSeconds: -1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest || len(apiErr.Fields) == 0 {
		t.Fatalf("expected a 400 with field errors, got %v", err)
	}

	bad := New(context.WithValue(ctx, oauth2.HTTPClient, backend.srv.Client()), backend.srv.URL, "s-1", "not-a-token")
	_, err = bad.GetModuleMetadata(ctx, "mod-1")
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestStaffViewerSkipsGateAndWrites(t *testing.T) {
	backend := newTestBackend(t)
	c := backend.client(t, "i-1", models.RoleInstructor)
	ctx := context.Background()

	cfg := viewerConfig("i-1", &alerts{})
	cfg.Role = learning.RoleInstructor
	viewer := learning.NewViewer(c, cfg, nil, nil)
	defer viewer.Close()
	if err := viewer.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	view, err := viewer.Open(ctx, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if view.Locked {
		t.Fatalf("expected instructors to open any submodule, got %+v", view)
	}
	viewer.Wait()

	progress, err := c.GetSubModuleProgress(ctx, "B")
	if err != nil {
		t.Fatalf("GetSubModuleProgress: %v", err)
	}
	if progress.WatchTimeSeconds != 0 || progress.IsCompleted() {
		t.Fatalf("expected no progress recorded for staff, got %+v", progress)
	}
}

func TestUnreachableServerDeniesAccess(t *testing.T) {
	backend := newTestBackend(t)
	c := backend.client(t, "s-1", models.RoleStudent)
	ctx := context.Background()

	viewer := learning.NewViewer(c, viewerConfig("s-1", &alerts{}), nil, nil)
	defer viewer.Close()
	if err := viewer.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	backend.srv.Close()

	view, err := viewer.Open(ctx, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !view.Locked || view.Message == "" {
		t.Fatalf("expected an unreachable server to deny access, got %+v", view)
	}
}
