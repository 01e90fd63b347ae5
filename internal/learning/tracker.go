package learning

import (
	"context"
	"log"
	"math"
	"sync"
)

const (
	completionFailedNotice  = "We could not save your completion of this submodule. Please try again."
	accessCheckFailedNotice = "Unable to verify access to this submodule right now."
)

// Tracker owns the local progress of the open submodule and the cached
// module aggregate, and keeps both in sync with the Store.
// It is safe for concurrent use.
type Tracker struct {
	store    Store
	cfg      Config
	moduleID string

	mu           sync.Mutex
	current      Progress
	expected     int
	module       ModuleProgress
	moduleLoaded bool
	sequence     int64
	appliedSeq   int64

	inflight sync.WaitGroup
}

// NewTracker creates a tracker for one module
func NewTracker(store Store, moduleID string, cfg Config) *Tracker {
	return &Tracker{
		store:    store,
		cfg:      cfg.normalized(),
		moduleID: moduleID,
	}
}

// Open makes sub the current submodule with fresh local state
func (t *Tracker) Open(sub SubModule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Progress{SubModuleID: sub.ID}
	t.expected = sub.ExpectedDuration()
}

// Current returns a copy of the open submodule's progress
func (t *Tracker) Current() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// ModuleProgress returns the cached aggregate and whether it was ever loaded
func (t *Tracker) ModuleProgress() (ModuleProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.module, t.moduleLoaded
}

// CompletionMap returns the cached completion flags, with the open
// submodule marked once the server has confirmed it.
func (t *Tracker) CompletionMap() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	completed := t.module.CompletionMap()
	if t.current.Completion == CompletionConfirmed {
		completed[t.current.SubModuleID] = true
	}
	return completed
}

// Start registers that the student began a submodule. Failures are logged only.
func (t *Tracker) Start(ctx context.Context, subModuleID string) {
	if !t.cfg.IsStudent() {
		return
	}
	if err := t.store.StartProgress(ctx, subModuleID); err != nil {
		log.Printf("Error starting progress for submodule %s: %v", subModuleID, err)
	}
}

// Update sends a heartbeat and, on success, refreshes the local watch time.
// Responses older than the last applied one are discarded. Failures are logged only.
func (t *Tracker) Update(ctx context.Context, subModuleID string, watchTime int, percentage float64) {
	if !t.cfg.IsStudent() {
		return
	}

	t.mu.Lock()
	t.sequence++
	seq := t.sequence
	t.mu.Unlock()

	err := t.store.UpdateProgress(ctx, ProgressUpdate{
		SubModuleID:          subModuleID,
		WatchTimeSeconds:     watchTime,
		CompletionPercentage: percentage,
		Sequence:             seq,
	})
	if err != nil {
		log.Printf("Error updating progress for submodule %s: %v", subModuleID, err)
		return
	}

	t.applyUpdate(seq, subModuleID, watchTime, percentage)
}

// applyUpdate reports whether the acknowledged heartbeat was applied locally
func (t *Tracker) applyUpdate(seq int64, subModuleID string, watchTime int, percentage float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq < t.appliedSeq {
		return false
	}
	t.appliedSeq = seq

	if t.current.SubModuleID != subModuleID || t.current.pinned() {
		return false
	}
	if watchTime < t.current.WatchTimeSeconds {
		return false
	}
	t.current.WatchTimeSeconds = watchTime
	t.current.CompletionPercentage = math.Min(100, percentage)
	return true
}

// Advance records locally observed watch time for the open submodule.
// It returns the updated progress and false once the submodule is pinned
// or no longer open.
func (t *Tracker) Advance(subModuleID string, watchTime int) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.SubModuleID != subModuleID || t.current.pinned() {
		return t.current, false
	}
	if watchTime > t.current.WatchTimeSeconds {
		t.current.WatchTimeSeconds = watchTime
		t.current.CompletionPercentage = CompletionPercentage(watchTime, t.expected)
	}
	return t.current, true
}

// Threshold returns the completion threshold of the open submodule
func (t *Tracker) Threshold() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CompletionThreshold(t.expected)
}

// MarkPending optimistically shows the open submodule as completed
// before the server confirms it.
func (t *Tracker) MarkPending(subModuleID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.SubModuleID != subModuleID || t.current.IsCompleted() {
		return false
	}
	t.current.Completion = CompletionPending
	t.current.CompletionPercentage = 100
	return true
}

// Complete marks a submodule completed remotely. On success the local state
// is confirmed and the module aggregate refreshed; on failure the learner is
// alerted and the local state becomes CompletionFailed.
func (t *Tracker) Complete(ctx context.Context, subModuleID string) error {
	if !t.cfg.IsStudent() {
		return nil
	}

	if err := t.store.CompleteProgress(ctx, subModuleID); err != nil {
		t.mu.Lock()
		if t.current.SubModuleID == subModuleID {
			t.current.Completion = CompletionFailed
		}
		t.mu.Unlock()

		log.Printf("Error completing submodule %s: %v", subModuleID, err)
		t.cfg.Alerter.Alert(completionFailedNotice)
		return err
	}

	t.mu.Lock()
	if t.current.SubModuleID == subModuleID {
		t.current.Completion = CompletionConfirmed
		t.current.CompletionPercentage = 100
	}
	t.module.markCompleted(subModuleID)
	t.mu.Unlock()

	t.RefreshModuleProgress(ctx)
	return nil
}

// RetryComplete re-sends a completion that previously failed
func (t *Tracker) RetryComplete(ctx context.Context) error {
	t.mu.Lock()
	if t.current.Completion != CompletionFailed {
		t.mu.Unlock()
		return nil
	}
	t.current.Completion = CompletionPending
	subModuleID := t.current.SubModuleID
	t.mu.Unlock()

	return t.Complete(ctx, subModuleID)
}

// RefreshModuleProgress reloads the module aggregate. On failure the
// previous cached aggregate stays in place.
func (t *Tracker) RefreshModuleProgress(ctx context.Context) (ModuleProgress, error) {
	mp, err := t.store.GetModuleProgress(ctx, t.moduleID)
	if err != nil {
		log.Printf("Error fetching module progress for %s: %v", t.moduleID, err)
		cached, _ := t.ModuleProgress()
		return cached, err
	}

	t.mu.Lock()
	t.module = mp
	t.moduleLoaded = true
	t.mu.Unlock()
	return mp, nil
}

// LoadCurrent seeds the open submodule from the server so a partially
// watched submodule resumes instead of restarting.
func (t *Tracker) LoadCurrent(ctx context.Context, subModuleID string) Progress {
	if !t.cfg.IsStudent() {
		return t.Current()
	}

	remote, err := t.store.GetSubModuleProgress(ctx, subModuleID)
	if err != nil {
		log.Printf("Error fetching progress for submodule %s: %v", subModuleID, err)
		return t.Current()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.SubModuleID != subModuleID {
		return t.current
	}
	if remote.WatchTimeSeconds > t.current.WatchTimeSeconds {
		t.current.WatchTimeSeconds = remote.WatchTimeSeconds
	}
	if remote.CompletionPercentage > t.current.CompletionPercentage {
		t.current.CompletionPercentage = math.Min(100, remote.CompletionPercentage)
	}
	if remote.IsCompleted() {
		t.current.Completion = CompletionConfirmed
		t.current.CompletionPercentage = 100
	}
	return t.current
}

// CheckAccess asks the server whether a submodule may be opened.
// Non-students always may; an unreachable server means no access.
func (t *Tracker) CheckAccess(ctx context.Context, subModuleID string) AccessDecision {
	if !t.cfg.IsStudent() {
		return AccessDecision{CanAccess: true}
	}

	decision, err := t.store.CheckAccess(ctx, subModuleID)
	if err != nil {
		log.Printf("Error checking access to submodule %s: %v", subModuleID, err)
		return AccessDecision{CanAccess: false, Message: accessCheckFailedNotice}
	}
	return decision
}

// Go runs fn in the background and tracks it for Wait
func (t *Tracker) Go(fn func()) {
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		fn()
	}()
}

// Wait blocks until all background calls started with Go have returned
func (t *Tracker) Wait() {
	t.inflight.Wait()
}
