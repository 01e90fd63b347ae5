package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"learnportal/internal/models"
	"learnportal/internal/repository"
)

var (
	ErrModuleNotFound       = errors.New("module not found")
	ErrSubModuleNotFound    = errors.New("submodule not found")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrAccessDenied         = errors.New("access denied")
	ErrQuizAlreadyAttempted = errors.New("quiz already attempted")
	ErrModuleIncomplete     = errors.New("module not completed")
)

// CompletionNotifier is told when a student finishes every submodule of a module
type CompletionNotifier interface {
	SendModuleCompletedEmail(ctx context.Context, toEmail, toName string, module *models.Module) error
}

// ProgressService implements the progress, access and quiz attempt rules
type ProgressService struct {
	modules  *repository.ModuleRepository
	progress *repository.ProgressRepository
	quizzes  *repository.QuizRepository
	notifier CompletionNotifier
}

// NewProgressService creates a new progress service. notifier may be nil.
func NewProgressService(modules *repository.ModuleRepository, progress *repository.ProgressRepository, quizzes *repository.QuizRepository, notifier CompletionNotifier) *ProgressService {
	return &ProgressService{
		modules:  modules,
		progress: progress,
		quizzes:  quizzes,
		notifier: notifier,
	}
}

// GetModule returns a module with its ordered submodules
func (s *ProgressService) GetModule(moduleID string) (*models.Module, error) {
	module, err := s.modules.GetModule(moduleID)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, ErrModuleNotFound
	}
	return module, nil
}

func (s *ProgressService) getSubModule(subModuleID string) (*models.SubModule, error) {
	sub, err := s.modules.GetSubModule(subModuleID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubModuleNotFound
	}
	return sub, nil
}

// CheckAccess applies the sequential unlock rule: a submodule is open once
// the one ordered before it is completed. Non-students may open anything.
func (s *ProgressService) CheckAccess(identity *models.Identity, subModuleID string) (*models.AccessDecision, error) {
	sub, err := s.getSubModule(subModuleID)
	if err != nil {
		return nil, err
	}
	if !identity.IsStudent() {
		return &models.AccessDecision{CanAccess: true}, nil
	}
	return s.checkAccess(identity.StudentID, sub)
}

func (s *ProgressService) checkAccess(studentID string, sub *models.SubModule) (*models.AccessDecision, error) {
	prev, err := s.modules.GetPreviousSubModule(sub)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return &models.AccessDecision{CanAccess: true}, nil
	}

	p, err := s.progress.GetProgress(studentID, prev.ID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsCompleted {
		return &models.AccessDecision{
			CanAccess: false,
			Message:   fmt.Sprintf("Complete %q before starting this submodule.", prev.Title),
		}, nil
	}
	return &models.AccessDecision{CanAccess: true}, nil
}

// StartProgress registers that a student opened a submodule
func (s *ProgressService) StartProgress(studentID, subModuleID string) error {
	sub, err := s.getSubModule(subModuleID)
	if err != nil {
		return err
	}

	decision, err := s.checkAccess(studentID, sub)
	if err != nil {
		return err
	}
	if !decision.CanAccess {
		return ErrAccessDenied
	}

	return s.progress.StartProgress(studentID, sub.ID)
}

// UpdateProgress records a heartbeat on an accessible submodule. Older watch
// times never overwrite newer ones and completed submodules keep their
// stored values.
func (s *ProgressService) UpdateProgress(studentID string, req *models.UpdateProgressRequest) (*models.SubModuleProgress, error) {
	sub, err := s.getSubModule(req.SubModuleID)
	if err != nil {
		return nil, err
	}

	decision, err := s.checkAccess(studentID, sub)
	if err != nil {
		return nil, err
	}
	if !decision.CanAccess {
		return nil, ErrAccessDenied
	}

	if err := s.progress.StartProgress(studentID, sub.ID); err != nil {
		return nil, err
	}

	percentage := math.Max(0, math.Min(100, req.CompletionPercentage))
	if _, err := s.progress.UpdateProgress(studentID, sub.ID, req.WatchTimeSeconds, percentage); err != nil {
		return nil, err
	}

	return s.GetSubModuleProgress(studentID, sub.ID)
}

// CompleteProgress marks a submodule completed and returns the refreshed
// module aggregate. Finishing the last open submodule triggers a
// congratulation email.
func (s *ProgressService) CompleteProgress(ctx context.Context, identity *models.Identity, subModuleID string) (*models.ModuleProgress, error) {
	sub, err := s.getSubModule(subModuleID)
	if err != nil {
		return nil, err
	}

	decision, err := s.checkAccess(identity.StudentID, sub)
	if err != nil {
		return nil, err
	}
	if !decision.CanAccess {
		return nil, ErrAccessDenied
	}

	before, err := s.GetModuleProgress(identity.StudentID, sub.ModuleID)
	if err != nil {
		return nil, err
	}

	if err := s.progress.CompleteProgress(identity.StudentID, sub.ID); err != nil {
		return nil, err
	}

	after, err := s.GetModuleProgress(identity.StudentID, sub.ModuleID)
	if err != nil {
		return nil, err
	}

	if !before.IsComplete() && after.IsComplete() {
		s.notifyCompletion(ctx, identity, sub.ModuleID)
	}
	return after, nil
}

func (s *ProgressService) notifyCompletion(ctx context.Context, identity *models.Identity, moduleID string) {
	if s.notifier == nil || identity.Email == "" {
		return
	}
	module, err := s.GetModule(moduleID)
	if err != nil {
		log.Printf("Error loading module %s for completion email: %v", moduleID, err)
		return
	}
	if err := s.notifier.SendModuleCompletedEmail(ctx, identity.Email, identity.Name, module); err != nil {
		log.Printf("Error sending completion email to %s: %v", identity.Email, err)
	}
}

// GetModuleProgress computes the module aggregate for a student
func (s *ProgressService) GetModuleProgress(studentID, moduleID string) (*models.ModuleProgress, error) {
	module, err := s.modules.GetModule(moduleID)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, ErrModuleNotFound
	}

	statuses, err := s.progress.GetModuleCompletion(studentID, moduleID)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, st := range statuses {
		if st.IsCompleted {
			completed++
		}
	}

	mp := &models.ModuleProgress{
		ModuleID:            moduleID,
		TotalSubModules:     len(statuses),
		CompletedSubModules: completed,
		SubModules:          statuses,
	}
	if mp.TotalSubModules > 0 {
		mp.OverallProgress = math.Round(100 * float64(completed) / float64(mp.TotalSubModules))
	}
	return mp, nil
}

// GetSubModuleProgress returns a student's progress on one submodule.
// A submodule never started yields a zero record.
func (s *ProgressService) GetSubModuleProgress(studentID, subModuleID string) (*models.SubModuleProgress, error) {
	sub, err := s.getSubModule(subModuleID)
	if err != nil {
		return nil, err
	}

	p, err := s.progress.GetProgress(studentID, sub.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &models.SubModuleProgress{StudentID: studentID, SubModuleID: sub.ID}, nil
	}
	return p, nil
}

// GetQuizAttempts returns a student's quiz attempt history
func (s *ProgressService) GetQuizAttempts(studentID string) ([]models.QuizAttempt, error) {
	return s.quizzes.GetStudentAttempts(studentID)
}

// SubmitQuizAttempt records a quiz result. A student gets one attempt per
// quiz and only after completing every submodule of its module.
func (s *ProgressService) SubmitQuizAttempt(studentID string, req *models.SubmitQuizAttemptRequest) (*models.QuizAttempt, error) {
	module, err := s.modules.GetModuleByQuizGroup(req.QuizGroupID)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, ErrQuizNotFound
	}

	mp, err := s.GetModuleProgress(studentID, module.ID)
	if err != nil {
		return nil, err
	}
	if !mp.IsComplete() {
		return nil, ErrModuleIncomplete
	}

	attempt := &models.QuizAttempt{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		QuizGroupID: req.QuizGroupID,
		SubModuleID: req.SubModuleID,
		Score:       req.Score,
		SubmittedAt: time.Now().UTC(),
	}
	created, err := s.quizzes.CreateAttempt(attempt)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrQuizAlreadyAttempted
	}
	return attempt, nil
}
