package models

import "time"

// QuizAttempt represents a submitted end-of-module quiz
type QuizAttempt struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	QuizGroupID string    `json:"quizGroupId"`
	SubModuleID string    `json:"subModuleId,omitempty"`
	Score       float64   `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}
