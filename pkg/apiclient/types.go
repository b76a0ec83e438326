package apiclient

import (
	"time"

	"assessment_backend/pkg/scoring"
)

type Mode string

const (
	ModeTest     Mode = "Test"
	ModePractice Mode = "Practice"
	ModeEndless  Mode = "Endless"
)

type Session struct {
	ID              string                   `json:"id"`
	TestID          string                   `json:"testId"`
	Mode            Mode                     `json:"mode"`
	Answers         []scoring.QuestionAnswer `json:"answers"`
	CurrentQuestion int                      `json:"currentQuestion"`
	RemainingTime   int                      `json:"remainingTime"`
	TimeBudget      int                      `json:"timeBudget"`
	Status          string                   `json:"status"`
	Version         int64                    `json:"version"`
	StartedAt       time.Time                `json:"startedAt"`
	LastSavedAt     time.Time                `json:"lastSavedAt"`
}

type StartResult struct {
	Session Session `json:"session"`
	Resumed bool    `json:"resumed"`
}

// PatchRequest carries only the fields to replace.
type PatchRequest struct {
	Answers         *[]scoring.QuestionAnswer `json:"answers,omitempty"`
	CurrentQuestion *int                      `json:"currentQuestion,omitempty"`
	RemainingTime   *int                      `json:"remainingTime,omitempty"`
	BaseVersion     *int64                    `json:"baseVersion,omitempty"`
}

type PatchResult struct {
	Session Session `json:"session"`
	Stale   bool    `json:"stale"`
}

type SourceQuestion struct {
	TestID        string `json:"testId"`
	QuestionIndex int    `json:"questionIndex"`
}

type Attempt struct {
	ID              string                 `json:"id"`
	TestID          string                 `json:"testId"`
	SessionID       *string                `json:"sessionId,omitempty"`
	Score           int                    `json:"score"`
	TotalQuestions  int                    `json:"totalQuestions"`
	Duration        int                    `json:"duration"`
	OverdueTime     int                    `json:"overdueTime"`
	Answers         []scoring.ScoredAnswer `json:"answers"`
	Mode            Mode                   `json:"mode"`
	SourceQuestions []SourceQuestion       `json:"sourceQuestions,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

type SubmitResult struct {
	Attempt    Attempt `json:"attempt"`
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage int     `json:"percentage"`
}

type RecordAttemptRequest struct {
	TestID          string                   `json:"testId,omitempty"`
	Mode            Mode                     `json:"mode"`
	Answers         []scoring.QuestionAnswer `json:"answers"`
	Duration        int                      `json:"duration"`
	OverdueTime     int                      `json:"overdueTime,omitempty"`
	SourceQuestions []SourceQuestion         `json:"sourceQuestions,omitempty"`
}

type EndlessQuestion struct {
	Key           string           `json:"key"`
	TestID        string           `json:"testId"`
	QuestionIndex int              `json:"questionIndex"`
	Question      scoring.Question `json:"question"`
}

type Test struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Questions   []scoring.Question `json:"questions"`
}
