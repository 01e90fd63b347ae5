package client

import (
	"learnportal/internal/learning"
	"learnportal/internal/models"
)

func toModule(m models.Module) learning.Module {
	subs := make([]learning.SubModule, len(m.SubModules))
	for i, s := range m.SubModules {
		subs[i] = learning.SubModule{ID: s.ID, Title: s.Title, Duration: s.Duration}
	}
	return learning.Module{
		ID:          m.ID,
		Title:       m.Title,
		QuizGroupID: m.QuizGroupID,
		SubModules:  subs,
	}
}

func toModuleProgress(mp models.ModuleProgress) learning.ModuleProgress {
	subs := make([]learning.SubModuleCompletion, len(mp.SubModules))
	for i, s := range mp.SubModules {
		subs[i] = learning.SubModuleCompletion{SubModuleID: s.SubModuleID, IsCompleted: s.IsCompleted}
	}
	return learning.ModuleProgress{
		ModuleID:            mp.ModuleID,
		TotalSubModules:     mp.TotalSubModules,
		CompletedSubModules: mp.CompletedSubModules,
		OverallProgress:     mp.OverallProgress,
		SubModules:          subs,
	}
}

func toProgress(p models.SubModuleProgress) learning.Progress {
	out := learning.Progress{
		SubModuleID:          p.SubModuleID,
		WatchTimeSeconds:     p.WatchTimeSeconds,
		CompletionPercentage: p.CompletionPercentage,
	}
	if p.IsCompleted {
		out.Completion = learning.CompletionConfirmed
	}
	return out
}

func toQuizAttempt(a models.QuizAttempt) learning.QuizAttempt {
	return learning.QuizAttempt{
		ID:          a.ID,
		StudentID:   a.StudentID,
		QuizGroupID: a.QuizGroupID,
		SubModuleID: a.SubModuleID,
		Score:       a.Score,
		SubmittedAt: a.SubmittedAt,
	}
}
