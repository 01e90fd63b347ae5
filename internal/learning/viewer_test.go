package learning

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func newTestViewer(store *fakeStore, cfg Config, source WatchTimeSource) *Viewer {
	return NewViewer(store, cfg, source, nil)
}

func TestViewerCompletesAtThreshold(t *testing.T) {
	store := newFakeStore(testModule("quiz-1"))
	v := newTestViewer(store, testConfig(nil), stepSource{step: 5, limit: 100})
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	view, err := v.Open(ctx, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if view.Locked {
		t.Fatalf("expected first submodule to be open, got %+v", view)
	}
	v.Wait()

	current := v.Tracker().Current()
	if current.Completion != CompletionConfirmed {
		t.Fatalf("expected confirmed completion, got %v", current.Completion)
	}
	if current.WatchTimeSeconds != 80 {
		t.Fatalf("expected watch time to stop at the 80s threshold, got %d", current.WatchTimeSeconds)
	}

	var beats []int
	for _, u := range store.updateLog() {
		beats = append(beats, u.WatchTimeSeconds)
	}
	sort.Ints(beats)
	if len(beats) != 2 || beats[0] != 30 || beats[1] != 60 {
		t.Fatalf("expected heartbeats at 30s and 60s, got %v", beats)
	}

	started, _, completes := store.counts()
	if started != 1 || completes != 1 {
		t.Fatalf("expected one start and one completion, got %d and %d", started, completes)
	}

	access := v.Accessibility()
	want := []bool{true, true, false, false}
	for i := range want {
		if access[i] != want[i] {
			t.Errorf("submodule %d accessible = %v, want %v", i, access[i], want[i])
		}
	}
}

func TestViewerBlocksSkippingAhead(t *testing.T) {
	store := newFakeStore(testModule(""))
	alerter := &recordingAlerter{}
	v := newTestViewer(store, testConfig(alerter), stepSource{step: 5, limit: 0})
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := v.Open(ctx, 2); !errors.Is(err, ErrSubModuleLocked) {
		t.Fatalf("expected ErrSubModuleLocked, got %v", err)
	}
	if v.Index() != -1 {
		t.Fatalf("expected navigation to be refused, index is %d", v.Index())
	}
	if msgs := alerter.messages(); len(msgs) != 1 || msgs[0] != LockedNotice {
		t.Fatalf("expected locked notice, got %v", msgs)
	}

	if _, err := v.Open(ctx, 0); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := v.Next(ctx); !errors.Is(err, ErrSubModuleLocked) {
		t.Fatalf("expected Next to be locked before completion, got %v", err)
	}
	v.Close()
}

func TestViewerFullModuleUnlocksQuiz(t *testing.T) {
	store := newFakeStore(testModule("quiz-1"))
	var states []QuizState
	v := NewViewer(store, testConfig(nil), stepSource{step: 10, limit: 100}, func(s QuizState) {
		states = append(states, s)
	})
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := v.Open(ctx, 0); err != nil {
		t.Fatalf("Open: %v", err)
	}
	v.Wait()

	for i := 1; i < 4; i++ {
		if v.QuizState() == QuizUnlocked {
			t.Fatalf("quiz unlocked before the last submodule (at %d)", i)
		}
		view, err := v.Next(ctx)
		if err != nil {
			t.Fatalf("Next to %d: %v", i, err)
		}
		if view.Locked {
			t.Fatalf("expected server to grant access to %d, got %q", i, view.Message)
		}
		v.Wait()
	}

	if v.QuizState() != QuizUnlocked {
		t.Fatalf("expected quiz to be unlocked, got %v", v.QuizState())
	}
	if err := v.StartQuiz(); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}
	mp, _ := v.Tracker().ModuleProgress()
	if mp.CompletedSubModules != 4 || mp.OverallProgress != 100 {
		t.Fatalf("expected full module progress, got %+v", mp)
	}
	if len(states) == 0 || states[len(states)-1] != QuizUnlocked {
		t.Fatalf("expected last quiz transition to be unlocked, got %v", states)
	}
}

func TestViewerQuizAlreadyAttempted(t *testing.T) {
	store := newFakeStore(testModule("quiz-1"))
	for _, id := range []string{"A", "B", "C", "D"} {
		store.setCompleted(id)
	}
	store.attempts = []QuizAttempt{{ID: "att-1", StudentID: "student-1", QuizGroupID: "quiz-1"}}
	v := newTestViewer(store, testConfig(nil), stepSource{step: 5, limit: 100})
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := v.Open(ctx, 3); err != nil {
		t.Fatalf("Open: %v", err)
	}
	v.Wait()

	if v.QuizState() != QuizLockedAttempted {
		t.Fatalf("expected locked(already-attempted), got %v", v.QuizState())
	}
	if err := v.StartQuiz(); !errors.Is(err, ErrQuizLocked) {
		t.Fatalf("expected ErrQuizLocked, got %v", err)
	}
}

func TestViewerResumesCompletedSubmodule(t *testing.T) {
	store := newFakeStore(testModule(""))
	store.setCompleted("A")
	v := newTestViewer(store, testConfig(nil), stepSource{step: 5, limit: 100})
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	view, err := v.Open(ctx, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	v.Wait()

	if !view.Progress.IsCompleted() || view.Progress.CompletionPercentage != 100 {
		t.Fatalf("expected completed progress, got %+v", view.Progress)
	}
	if _, updates, completes := store.counts(); updates != 0 || completes != 0 {
		t.Fatalf("expected no tracking for a completed submodule, got %d updates and %d completions", updates, completes)
	}
	if _, err := v.Next(ctx); err != nil {
		t.Fatalf("expected B to be open after A, got %v", err)
	}
	v.Close()
}

func TestViewerServerDeniesAccess(t *testing.T) {
	store := newFakeStore(testModule(""))
	store.denyAccess["A"] = "Enrollment required."
	v := newTestViewer(store, testConfig(nil), stepSource{step: 5, limit: 100})
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	view, err := v.Open(ctx, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !view.Locked || view.Message != "Enrollment required." {
		t.Fatalf("expected locked view with server message, got %+v", view)
	}
	if started, _, _ := store.counts(); started != 0 {
		t.Fatalf("expected no progress start for a denied submodule, got %d", started)
	}
}

func TestViewerCompletionFailureAndRetry(t *testing.T) {
	store := newFakeStore(testModule(""))
	store.failComplete = 1
	alerter := &recordingAlerter{}
	v := newTestViewer(store, testConfig(alerter), stepSource{step: 20, limit: 100})
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := v.Open(ctx, 0); err != nil {
		t.Fatalf("Open: %v", err)
	}
	v.Wait()

	if len(alerter.messages()) != 1 {
		t.Fatalf("expected one alert, got %v", alerter.messages())
	}
	if v.Accessibility()[1] {
		t.Fatal("expected B to stay locked after a failed completion")
	}

	if err := v.RetryCompletion(ctx); err != nil {
		t.Fatalf("RetryCompletion: %v", err)
	}
	if !v.Accessibility()[1] {
		t.Fatal("expected B to unlock after the retry")
	}
}

func TestViewerTeardownStopsTicks(t *testing.T) {
	module := testModule("")
	module.SubModules[0].Duration = "10:00"
	store := newFakeStore(module)
	cfg := testConfig(nil)
	cfg.HeartbeatEvery = 5
	v := newTestViewer(store, cfg, nil)
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := v.Open(ctx, 0); err != nil {
		t.Fatalf("Open: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	v.Close()
	v.Wait()
	watch := v.Tracker().Current().WatchTimeSeconds
	_, updates, _ := store.counts()

	time.Sleep(20 * time.Millisecond)
	if got := v.Tracker().Current().WatchTimeSeconds; got != watch {
		t.Fatalf("expected watch time to stop at %d after teardown, got %d", watch, got)
	}
	if _, after, _ := store.counts(); after != updates {
		t.Fatalf("expected no heartbeats after teardown, got %d more", after-updates)
	}
}

func TestViewerNonStudentNavigatesFreely(t *testing.T) {
	store := newFakeStore(testModule(""))
	cfg := testConfig(nil)
	cfg.Role = RoleInstructor
	v := newTestViewer(store, cfg, stepSource{step: 5, limit: 100})
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	view, err := v.Open(ctx, 3)
	if err != nil || view.Locked {
		t.Fatalf("expected instructor to open any submodule, got %+v, %v", view, err)
	}
	if _, err := v.Previous(ctx); err != nil {
		t.Fatalf("Previous: %v", err)
	}
	v.Wait()

	if started, updates, completes := store.counts(); started+updates+completes != 0 {
		t.Fatalf("expected no tracking for instructors, got %d/%d/%d", started, updates, completes)
	}
}

func TestViewerLoadFailure(t *testing.T) {
	store := newFakeStore(testModule(""))
	v := newTestViewer(store, testConfig(nil), nil)
	ctx := context.Background()

	if err := v.Load(ctx, "missing"); err == nil {
		t.Fatal("expected Load to fail for an unknown module")
	}
	if _, err := v.Open(ctx, 0); !errors.Is(err, ErrModuleNotLoaded) {
		t.Fatalf("expected ErrModuleNotLoaded, got %v", err)
	}
}

func TestViewerModuleSwitchDuringCompletionDelay(t *testing.T) {
	store := newFakeStore(Module{
		ID:          "mod-x",
		QuizGroupID: "quiz-x",
		SubModules:  []SubModule{{ID: "X1", Title: "Only", Duration: "01:40"}},
	})
	store.addModule(Module{
		ID:          "mod-y",
		QuizGroupID: "quiz-y",
		SubModules: []SubModule{
			{ID: "Y1", Title: "First", Duration: "01:40"},
			{ID: "Y2", Title: "Second", Duration: "01:40"},
		},
	})
	store.setCompleted("Y1")

	cfg := testConfig(nil)
	cfg.CompletionDelay = 50 * time.Millisecond
	v := newTestViewer(store, cfg, &scriptedSource{step: 5, limits: []int{100}})
	defer v.Close()
	ctx := context.Background()

	if err := v.Load(ctx, "mod-x"); err != nil {
		t.Fatalf("Load mod-x: %v", err)
	}
	if _, err := v.Open(ctx, 0); err != nil {
		t.Fatalf("Open X1: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for v.Tracker().Current().Completion != CompletionPending {
		if time.Now().After(deadline) {
			t.Fatal("X1 never reached the completion threshold")
		}
		time.Sleep(time.Millisecond)
	}

	if err := v.Load(ctx, "mod-y"); err != nil {
		t.Fatalf("Load mod-y: %v", err)
	}
	if _, err := v.Open(ctx, 1); err != nil {
		t.Fatalf("Open Y2: %v", err)
	}
	if got := v.QuizState(); got != QuizLockedIncomplete {
		t.Fatalf("expected mod-y quiz locked, got %s", got)
	}

	v.Wait()

	if got := v.QuizState(); got != QuizLockedIncomplete {
		t.Fatalf("expected the late mod-x completion to leave mod-y locked, got %s", got)
	}
	progress, _ := store.GetSubModuleProgress(ctx, "X1")
	if !progress.IsCompleted() {
		t.Fatalf("expected X1 completion to still reach the store, got %+v", progress)
	}
}

func TestViewerRefreshAfterFailedLoad(t *testing.T) {
	store := newFakeStore(testModule("quiz-1"))
	store.failProgress = true
	v := newTestViewer(store, testConfig(nil), nil)
	defer v.Close()
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := v.QuizState(); got != QuizLoading {
		t.Fatalf("expected quiz loading while progress is unavailable, got %s", got)
	}
	if err := v.Refresh(ctx); err == nil {
		t.Fatal("expected Refresh to report the progress failure")
	}

	store.setFailProgress(false)
	if err := v.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := v.QuizState(); got != QuizLockedIncomplete {
		t.Fatalf("expected quiz locked after refresh, got %s", got)
	}
}

func TestViewerQuizCallbackMayReadViewer(t *testing.T) {
	store := newFakeStore(Module{
		ID:          "mod-1",
		QuizGroupID: "quiz-1",
		SubModules:  []SubModule{{ID: "A", Title: "Only", Duration: "01:40"}},
	})

	var mu sync.Mutex
	var seen []QuizState
	var v *Viewer
	v = NewViewer(store, testConfig(nil), stepSource{step: 5, limit: 100}, func(QuizState) {
		state := v.QuizState()
		_ = v.Index()
		mu.Lock()
		seen = append(seen, state)
		mu.Unlock()
	})
	defer v.Close()
	ctx := context.Background()

	if err := v.Load(ctx, "mod-1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := v.Open(ctx, 0); err != nil {
		t.Fatalf("Open: %v", err)
	}
	v.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[len(seen)-1] != QuizUnlocked {
		t.Fatalf("expected the callback to observe the unlock, got %v", seen)
	}
}
