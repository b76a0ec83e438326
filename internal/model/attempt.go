package model

import (
	"errors"

	"assessment_backend/pkg/scoring"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAttemptImmutable = errors.New("attempt records are immutable")

// SourceQuestion points an Endless answer back at the test question it came from.
type SourceQuestion struct {
	TestID        string `json:"testId"`
	QuestionIndex int    `json:"questionIndex"`
}

// Attempt is the scored, immutable result of a run. SessionID is set when the
// attempt was produced by submitting a session and is unique, so a session can
// never be scored twice.
// swagger:model Attempt
type Attempt struct {
	UUIDBase
	TestID          string                                    `gorm:"index;type:varchar(36)" json:"testId"`
	UserID          *uint                                     `gorm:"index" json:"userId,omitempty"`
	SessionID       *string                                   `gorm:"uniqueIndex;type:varchar(36)" json:"sessionId,omitempty"`
	Score           int                                       `json:"score"`
	TotalQuestions  int                                       `json:"totalQuestions"`
	Duration        int                                       `json:"duration"`
	OverdueTime     int                                       `json:"overdueTime"`
	Answers         datatypes.JSONSlice[scoring.ScoredAnswer] `json:"answers"`
	Mode            Mode                                      `gorm:"size:20;not null" json:"mode"`
	SourceQuestions datatypes.JSONSlice[SourceQuestion]       `json:"sourceQuestions,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) BeforeUpdate(tx *gorm.DB) error {
	return ErrAttemptImmutable
}

func (a *Attempt) BeforeDelete(tx *gorm.DB) error {
	return ErrAttemptImmutable
}

// Percentage 四舍五入的正确率
func (a *Attempt) Percentage() int {
	return scoring.Summary{Score: a.Score, Total: a.TotalQuestions}.Percentage()
}
