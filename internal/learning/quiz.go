package learning

import (
	"errors"
	"sync"
)

// ErrQuizLocked is returned when the quiz is started while not unlocked
var ErrQuizLocked = errors.New("quiz is locked")

// QuizState is the state of the end-of-module quiz control
type QuizState int

const (
	QuizLoading QuizState = iota
	QuizLockedNoQuiz
	QuizLockedAttempted
	QuizLockedIncomplete
	QuizUnlocked
)

func (s QuizState) String() string {
	switch s {
	case QuizLoading:
		return "loading"
	case QuizLockedNoQuiz:
		return "locked(no-quiz)"
	case QuizLockedAttempted:
		return "locked(already-attempted)"
	case QuizLockedIncomplete:
		return "locked(incomplete)"
	case QuizUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// QuizInputs is everything the quiz decision depends on. Nil pointers and a
// false AttemptsLoaded mean the corresponding data is still loading.
type QuizInputs struct {
	StudentID        string
	Module           *Module
	Progress         *ModuleProgress
	Attempts         []QuizAttempt
	AttemptsLoaded   bool
	CurrentIndex     int
	CurrentCompleted bool
}

// EvaluateQuiz decides whether the learner may start the module's quiz
func EvaluateQuiz(in QuizInputs) QuizState {
	if in.Module == nil || in.Progress == nil || !in.AttemptsLoaded {
		return QuizLoading
	}
	if !in.Module.HasQuiz() {
		return QuizLockedNoQuiz
	}
	for _, attempt := range in.Attempts {
		if attempt.QuizGroupID != in.Module.QuizGroupID {
			continue
		}
		if in.StudentID != "" && attempt.StudentID != "" && attempt.StudentID != in.StudentID {
			continue
		}
		return QuizLockedAttempted
	}
	last := len(in.Module.SubModules) - 1
	if last < 0 || in.CurrentIndex != last {
		return QuizLockedIncomplete
	}
	if in.CurrentCompleted || in.Progress.AllCompleted() {
		return QuizUnlocked
	}
	return QuizLockedIncomplete
}

// QuizGateway keeps the quiz state current as its inputs arrive.
// It is safe for concurrent use.
type QuizGateway struct {
	mu       sync.Mutex
	in       QuizInputs
	state    QuizState
	onChange func(QuizState)
}

// NewQuizGateway creates a gateway in the Loading state. onChange, if not
// nil, is called after every state transition, on the goroutine that caused
// it and without any gateway lock held.
func NewQuizGateway(studentID string, onChange func(QuizState)) *QuizGateway {
	return &QuizGateway{
		in:       QuizInputs{StudentID: studentID},
		state:    QuizLoading,
		onChange: onChange,
	}
}

// State returns the current quiz state
func (g *QuizGateway) State() QuizState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// SetModule records the module metadata. Switching to another module drops
// the aggregate of the previous one.
func (g *QuizGateway) SetModule(m Module) {
	g.update(func(in *QuizInputs) {
		if in.Module == nil || in.Module.ID != m.ID {
			in.Progress = nil
		}
		in.Module = &m
	})
}

// SetProgress records the module aggregate. An aggregate for a module other
// than the current one is ignored.
func (g *QuizGateway) SetProgress(mp ModuleProgress) {
	g.update(func(in *QuizInputs) {
		if in.Module != nil && mp.ModuleID != "" && mp.ModuleID != in.Module.ID {
			return
		}
		in.Progress = &mp
	})
}

// SetAttempts records the student's attempt history
func (g *QuizGateway) SetAttempts(attempts []QuizAttempt) {
	cp := make([]QuizAttempt, len(attempts))
	copy(cp, attempts)
	g.update(func(in *QuizInputs) {
		in.Attempts = cp
		in.AttemptsLoaded = true
	})
}

// SetPosition records which submodule is open and whether it is completed
func (g *QuizGateway) SetPosition(index int, completed bool) {
	g.update(func(in *QuizInputs) {
		in.CurrentIndex = index
		in.CurrentCompleted = completed
	})
}

// Start checks that the quiz may be entered
func (g *QuizGateway) Start() error {
	if g.State() != QuizUnlocked {
		return ErrQuizLocked
	}
	return nil
}

func (g *QuizGateway) update(mutate func(*QuizInputs)) {
	g.mu.Lock()
	mutate(&g.in)
	next := EvaluateQuiz(g.in)
	changed := next != g.state
	g.state = next
	g.mu.Unlock()

	if changed && g.onChange != nil {
		g.onChange(next)
	}
}
