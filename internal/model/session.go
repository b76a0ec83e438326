package model

import (
	"fmt"
	"time"

	"assessment_backend/pkg/scoring"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is one in-progress attempt of a user at a test.
//
// TimeBudget is the mode budget in seconds captured at start, so a config
// reload never changes the duration of a running session.
// ActiveKey is "<userId>:<testId>" while the session is active and NULL once it
// reaches a terminal status; its unique index keeps a single active session
// per (user, test).
// swagger:model Session
type Session struct {
	UUIDBase
	UserID          uint                                        `gorm:"index:idx_sessions_owner;not null" json:"userId"`
	TestID          string                                      `gorm:"index;type:varchar(36);not null" json:"testId"`
	Mode            Mode                                        `gorm:"size:20;not null" json:"mode"`
	Answers         datatypes.JSONSlice[scoring.QuestionAnswer] `json:"answers"`
	CurrentQuestion int                                         `gorm:"default:0" json:"currentQuestion"`
	RemainingTime   int                                         `json:"remainingTime"`
	TimeBudget      int                                         `gorm:"not null" json:"timeBudget"`
	Status          SessionStatus                               `gorm:"size:20;index:idx_sessions_owner;not null" json:"status"`
	ActiveKey       *string                                     `gorm:"uniqueIndex;size:80" json:"-"`
	Version         int64                                       `gorm:"not null;default:0" json:"version"`
	StartedAt       time.Time                                   `json:"startedAt"`
	LastSavedAt     time.Time                                   `gorm:"index" json:"lastSavedAt"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) IsActive() bool {
	return s.Status == SessionActive
}

func ActiveKeyFor(userID uint, testID string) string {
	return fmt.Sprintf("%d:%s", userID, testID)
}

// Elapsed is the time spent inside the budget, clamped to [0, TimeBudget].
func (s *Session) Elapsed() int {
	d := s.TimeBudget - s.RemainingTime
	if d < 0 {
		return 0
	}
	if d > s.TimeBudget {
		return s.TimeBudget
	}
	return d
}
