package learning

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore is an in-memory Store that enforces the sequential rule like the backend
type fakeStore struct {
	mu sync.Mutex

	module    Module
	others    map[string]Module
	progress  map[string]Progress
	attempts  []QuizAttempt
	started   []string
	updates   []ProgressUpdate
	completes []string

	failComplete   int // number of CompleteProgress calls that fail
	failAccess     bool
	failProgress   bool
	denyAccess     map[string]string
	failAttempts   bool
	failModuleMeta bool
}

func newFakeStore(module Module) *fakeStore {
	return &fakeStore{
		module:     module,
		others:     make(map[string]Module),
		progress:   make(map[string]Progress),
		denyAccess: make(map[string]string),
	}
}

func (s *fakeStore) StartProgress(ctx context.Context, subModuleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, subModuleID)
	if _, ok := s.progress[subModuleID]; !ok {
		s.progress[subModuleID] = Progress{SubModuleID: subModuleID}
	}
	return nil
}

func (s *fakeStore) UpdateProgress(ctx context.Context, update ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	p := s.progress[update.SubModuleID]
	p.SubModuleID = update.SubModuleID
	if update.WatchTimeSeconds > p.WatchTimeSeconds && !p.IsCompleted() {
		p.WatchTimeSeconds = update.WatchTimeSeconds
		p.CompletionPercentage = update.CompletionPercentage
	}
	s.progress[update.SubModuleID] = p
	return nil
}

func (s *fakeStore) CompleteProgress(ctx context.Context, subModuleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completes = append(s.completes, subModuleID)
	if s.failComplete > 0 {
		s.failComplete--
		return errStoreDown
	}
	p := s.progress[subModuleID]
	p.SubModuleID = subModuleID
	p.Completion = CompletionConfirmed
	p.CompletionPercentage = 100
	s.progress[subModuleID] = p
	return nil
}

func (s *fakeStore) GetModuleProgress(ctx context.Context, moduleID string) (ModuleProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failProgress {
		return ModuleProgress{}, errStoreDown
	}
	module := s.lookup(moduleID)
	mp := ModuleProgress{ModuleID: moduleID, TotalSubModules: len(module.SubModules)}
	for _, sub := range module.SubModules {
		done := s.progress[sub.ID].IsCompleted()
		if done {
			mp.CompletedSubModules++
		}
		mp.SubModules = append(mp.SubModules, SubModuleCompletion{SubModuleID: sub.ID, IsCompleted: done})
	}
	if mp.TotalSubModules > 0 {
		mp.OverallProgress = float64(100 * mp.CompletedSubModules / mp.TotalSubModules)
	}
	return mp, nil
}

func (s *fakeStore) GetSubModuleProgress(ctx context.Context, subModuleID string) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failProgress {
		return Progress{}, errStoreDown
	}
	return s.progress[subModuleID], nil
}

func (s *fakeStore) CheckAccess(ctx context.Context, subModuleID string) (AccessDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAccess {
		return AccessDecision{}, errStoreDown
	}
	if msg, ok := s.denyAccess[subModuleID]; ok {
		return AccessDecision{CanAccess: false, Message: msg}, nil
	}
	module := s.module
	for _, other := range s.others {
		if other.IndexOf(subModuleID) >= 0 {
			module = other
		}
	}
	index := module.IndexOf(subModuleID)
	if index <= 0 {
		return AccessDecision{CanAccess: index == 0}, nil
	}
	prev := module.SubModules[index-1]
	if !s.progress[prev.ID].IsCompleted() {
		return AccessDecision{CanAccess: false, Message: "Complete " + prev.Title + " first."}, nil
	}
	return AccessDecision{CanAccess: true}, nil
}

func (s *fakeStore) GetQuizAttempts(ctx context.Context, studentID string) ([]QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAttempts {
		return nil, errStoreDown
	}
	return append([]QuizAttempt(nil), s.attempts...), nil
}

func (s *fakeStore) GetModuleMetadata(ctx context.Context, moduleID string) (Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failModuleMeta {
		return Module{}, errStoreDown
	}
	module := s.lookup(moduleID)
	if module.ID == "" {
		return Module{}, errStoreDown
	}
	return module, nil
}

// addModule makes another module available next to the primary one
func (s *fakeStore) addModule(m Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.others[m.ID] = m
}

func (s *fakeStore) lookup(moduleID string) Module {
	if moduleID == s.module.ID {
		return s.module
	}
	return s.others[moduleID]
}

func (s *fakeStore) setFailProgress(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failProgress = fail
}

func (s *fakeStore) setCompleted(subModuleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[subModuleID] = Progress{SubModuleID: subModuleID, CompletionPercentage: 100, Completion: CompletionConfirmed}
}

func (s *fakeStore) counts() (started, updates, completes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started), len(s.updates), len(s.completes)
}

func (s *fakeStore) updateLog() []ProgressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProgressUpdate(nil), s.updates...)
}

// recordingAlerter collects alerts shown to the learner
type recordingAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *recordingAlerter) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, message)
}

func (a *recordingAlerter) messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.alerts...)
}

func testModule(quizGroupID string) Module {
	return Module{
		ID:          "mod-1",
		Title:       "Foundations",
		QuizGroupID: quizGroupID,
		SubModules: []SubModule{
			{ID: "A", Title: "Intro", Duration: "01:40"},
			{ID: "B", Title: "Basics", Duration: "01:40"},
			{ID: "C", Title: "Practice", Duration: "01:40"},
			{ID: "D", Title: "Wrap-up", Duration: "01:40"},
		},
	}
}

func testConfig(alerter Alerter) Config {
	return Config{
		StudentID:      "student-1",
		Role:           RoleStudent,
		TickInterval:   time.Millisecond,
		TickSeconds:    5,
		HeartbeatEvery: 30,
		Alerter:        alerter,
	}
}

// feed returns a closed, buffered player source carrying positions
func feed(positions ...int) PlayerSource {
	ch := make(chan int, len(positions))
	for _, p := range positions {
		ch <- p
	}
	close(ch)
	return PlayerSource{Positions: ch}
}

// scriptedSource emits like stepSource, with a separate limit for each
// successive Watch call; calls beyond the script emit nothing
type scriptedSource struct {
	mu     sync.Mutex
	step   int
	limits []int
}

func (s *scriptedSource) Watch(ctx context.Context, start int, emit func(int) bool) error {
	s.mu.Lock()
	limit := 0
	if len(s.limits) > 0 {
		limit = s.limits[0]
		s.limits = s.limits[1:]
	}
	s.mu.Unlock()
	return stepSource{step: s.step, limit: limit}.Watch(ctx, start, emit)
}

// stepSource emits start+step, start+2*step, ... up to limit without waiting
type stepSource struct {
	step  int
	limit int
}

func (s stepSource) Watch(ctx context.Context, start int, emit func(int) bool) error {
	for w := start + s.step; w <= s.limit; w += s.step {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !emit(w) {
			return nil
		}
	}
	return nil
}
