package learning

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrModuleNotLoaded is returned when navigating before Load succeeded
var ErrModuleNotLoaded = errors.New("module not loaded")

// View describes the submodule the host should render
type View struct {
	Index     int
	SubModule SubModule
	Locked    bool   // the server refused access; render Message instead of content
	Message   string
	Progress  Progress
}

// Viewer is the module viewing session: it opens submodules through the
// access gate, runs the watch time source for the open one, and keeps the
// quiz gateway in step with progress.
type Viewer struct {
	store  Store
	cfg    Config
	source WatchTimeSource
	gate   *AccessGate
	quiz   *QuizGateway

	mu      sync.Mutex
	module  Module
	tracker *Tracker
	retired []*Tracker // trackers of earlier modules whose background calls may still run
	index   int
	stop    context.CancelFunc
	done    chan struct{}
}

// NewViewer creates a viewer. A nil source defaults to a Simulator built
// from cfg; onQuizChange may be nil.
//
// onQuizChange runs synchronously on whichever goroutine changed the quiz
// state, including the watch loop and background completion calls. It must
// not call Open, Next, Previous, Load or Close on the same Viewer.
func NewViewer(store Store, cfg Config, source WatchTimeSource, onQuizChange func(QuizState)) *Viewer {
	cfg = cfg.normalized()
	if source == nil {
		source = NewSimulator(cfg)
	}
	return &Viewer{
		store:  store,
		cfg:    cfg,
		source: source,
		gate:   NewAccessGate(cfg.Role, cfg.Alerter),
		quiz:   NewQuizGateway(cfg.StudentID, onQuizChange),
		index:  -1,
	}
}

// Load fetches the module, its progress aggregate and the attempt history.
// Only a missing module is an error. If either of the other reads fails the
// quiz stays Loading until Refresh succeeds.
func (v *Viewer) Load(ctx context.Context, moduleID string) error {
	module, err := v.store.GetModuleMetadata(ctx, moduleID)
	if err != nil {
		return fmt.Errorf("failed to load module %s: %w", moduleID, err)
	}

	v.teardown()

	tracker := NewTracker(v.store, module.ID, v.cfg)
	v.mu.Lock()
	if v.tracker != nil {
		v.retired = append(v.retired, v.tracker)
	}
	v.module = module
	v.tracker = tracker
	v.index = -1
	v.mu.Unlock()

	v.quiz.SetModule(module)
	_ = v.Refresh(ctx)
	return nil
}

// Refresh reloads the module aggregate and the attempt history. It returns
// the first read error; whatever did load is applied.
func (v *Viewer) Refresh(ctx context.Context) error {
	tracker := v.Tracker()
	if tracker == nil {
		return ErrModuleNotLoaded
	}

	mp, progressErr := tracker.RefreshModuleProgress(ctx)
	if progressErr == nil && v.isCurrent(tracker) {
		v.quiz.SetProgress(mp)
	}
	if err := v.RefreshAttempts(ctx); err != nil && progressErr == nil {
		return err
	}
	return progressErr
}

// RefreshAttempts reloads the student's quiz attempt history
func (v *Viewer) RefreshAttempts(ctx context.Context) error {
	attempts, err := v.store.GetQuizAttempts(ctx, v.cfg.StudentID)
	if err != nil {
		log.Printf("Error fetching quiz attempts for student %s: %v", v.cfg.StudentID, err)
		return err
	}
	v.quiz.SetAttempts(attempts)
	return nil
}

func (v *Viewer) isCurrent(tracker *Tracker) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tracker == tracker
}

// Open navigates to the submodule at index from the submodule list
func (v *Viewer) Open(ctx context.Context, index int) (View, error) {
	return v.open(ctx, index, true)
}

// Next navigates to the following submodule if it is unlocked
func (v *Viewer) Next(ctx context.Context) (View, error) {
	v.mu.Lock()
	index := v.index
	v.mu.Unlock()
	return v.open(ctx, index+1, true)
}

// Previous navigates to the preceding submodule; it is never gated
func (v *Viewer) Previous(ctx context.Context) (View, error) {
	v.mu.Lock()
	index := v.index
	subs := v.module.SubModules
	v.mu.Unlock()

	prev, err := v.gate.Previous(subs, index)
	if err != nil {
		return View{}, err
	}
	return v.open(ctx, prev, false)
}

func (v *Viewer) open(ctx context.Context, index int, gated bool) (View, error) {
	v.mu.Lock()
	module := v.module
	tracker := v.tracker
	v.mu.Unlock()

	if tracker == nil {
		return View{}, ErrModuleNotLoaded
	}
	if index < 0 || index >= len(module.SubModules) {
		return View{}, ErrNoSubModule
	}
	if gated {
		if _, err := v.gate.Jump(module.SubModules, tracker.CompletionMap(), index); err != nil {
			return View{}, err
		}
	}

	v.teardown()

	sub := module.SubModules[index]
	tracker.Open(sub)
	v.mu.Lock()
	v.index = index
	v.mu.Unlock()

	view := View{Index: index, SubModule: sub}

	decision := tracker.CheckAccess(ctx, sub.ID)
	if !decision.CanAccess {
		view.Locked = true
		view.Message = decision.Message
		v.quiz.SetPosition(index, false)
		return view, nil
	}

	tracker.Start(ctx, sub.ID)
	progress := tracker.LoadCurrent(ctx, sub.ID)
	view.Progress = progress
	v.quiz.SetPosition(index, progress.IsCompleted())

	if v.cfg.IsStudent() && !progress.pinned() {
		v.run(ctx, tracker, index, sub, progress.WatchTimeSeconds)
	}
	return view, nil
}

// run starts the watch time loop for the open submodule
func (v *Viewer) run(ctx context.Context, tracker *Tracker, index int, sub SubModule, start int) {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	v.mu.Lock()
	v.stop = cancel
	v.done = done
	v.mu.Unlock()

	// heartbeats and the completion call outlive the loop
	background := context.WithoutCancel(ctx)
	threshold := CompletionThreshold(sub.ExpectedDuration())

	go func() {
		defer close(done)
		err := v.source.Watch(loopCtx, start, func(watchTime int) bool {
			if loopCtx.Err() != nil {
				return false
			}
			return v.observe(background, tracker, index, sub, threshold, watchTime)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Error watching submodule %s: %v", sub.ID, err)
		}
	}()
}

// observe applies one watch time sample and reports whether to keep watching
func (v *Viewer) observe(ctx context.Context, tracker *Tracker, index int, sub SubModule, threshold, watchTime int) bool {
	progress, ok := tracker.Advance(sub.ID, watchTime)
	if !ok {
		return false
	}

	if watchTime%v.cfg.HeartbeatEvery == 0 {
		tracker.Go(func() {
			tracker.Update(ctx, sub.ID, progress.WatchTimeSeconds, progress.CompletionPercentage)
		})
	}

	if progress.WatchTimeSeconds < threshold {
		return true
	}
	if !tracker.MarkPending(sub.ID) {
		return false
	}
	v.quiz.SetPosition(index, true)

	tracker.Go(func() {
		if v.cfg.CompletionDelay > 0 {
			time.Sleep(v.cfg.CompletionDelay)
		}
		_ = tracker.Complete(ctx, sub.ID)
		v.syncQuiz(tracker, index, sub.ID)
	})
	return false
}

// syncQuiz pushes the tracker's latest state into the quiz gateway. A tracker
// of a module the viewer has since left changes nothing.
func (v *Viewer) syncQuiz(tracker *Tracker, index int, subModuleID string) {
	v.mu.Lock()
	current := v.tracker == tracker
	same := current && v.index == index
	v.mu.Unlock()

	if !current {
		return
	}
	if mp, loaded := tracker.ModuleProgress(); loaded {
		v.quiz.SetProgress(mp)
	}

	progress := tracker.Current()
	if same && progress.SubModuleID == subModuleID {
		v.quiz.SetPosition(index, progress.IsCompleted())
	}
}

// RetryCompletion re-sends a failed completion of the open submodule
func (v *Viewer) RetryCompletion(ctx context.Context) error {
	v.mu.Lock()
	tracker := v.tracker
	index := v.index
	v.mu.Unlock()

	if tracker == nil {
		return ErrModuleNotLoaded
	}
	err := tracker.RetryComplete(ctx)
	v.syncQuiz(tracker, index, tracker.Current().SubModuleID)
	return err
}

// StartQuiz checks that the quiz may be entered
func (v *Viewer) StartQuiz() error {
	return v.quiz.Start()
}

// QuizState returns the state of the quiz control
func (v *Viewer) QuizState() QuizState {
	return v.quiz.State()
}

// Accessibility reports which submodules the learner may open
func (v *Viewer) Accessibility() []bool {
	v.mu.Lock()
	subs := v.module.SubModules
	tracker := v.tracker
	v.mu.Unlock()

	if tracker == nil {
		return nil
	}
	return v.gate.Accessibility(subs, tracker.CompletionMap())
}

// Module returns the loaded module
func (v *Viewer) Module() Module {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.module
}

// Index returns the position of the open submodule, or -1
func (v *Viewer) Index() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index
}

// Tracker returns the progress tracker of the loaded module
func (v *Viewer) Tracker() *Tracker {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tracker
}

// Close stops the watch loop. In-flight heartbeats and a scheduled
// completion still run; use Wait to block on them.
func (v *Viewer) Close() {
	v.teardown()
}

// Wait blocks until the watch loop has stopped and every background call,
// including those of previously loaded modules, has returned.
func (v *Viewer) Wait() {
	v.mu.Lock()
	done := v.done
	trackers := append([]*Tracker(nil), v.retired...)
	if v.tracker != nil {
		trackers = append(trackers, v.tracker)
	}
	v.mu.Unlock()

	if done != nil {
		<-done
	}
	for _, tracker := range trackers {
		tracker.Wait()
	}

	v.mu.Lock()
	v.retired = pruneRetired(v.retired, trackers)
	v.mu.Unlock()
}

// pruneRetired drops the trackers that were just waited on
func pruneRetired(retired, waited []*Tracker) []*Tracker {
	seen := make(map[*Tracker]bool, len(waited))
	for _, t := range waited {
		seen[t] = true
	}
	kept := retired[:0]
	for _, t := range retired {
		if !seen[t] {
			kept = append(kept, t)
		}
	}
	return kept
}

// teardown cancels the watch loop of the previous submodule and waits for it
func (v *Viewer) teardown() {
	v.mu.Lock()
	stop := v.stop
	done := v.done
	v.stop = nil
	v.done = nil
	v.mu.Unlock()

	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}
}
