package model

import (
	"assessment_backend/pkg/scoring"

	"gorm.io/datatypes"
)

// Test is the read-only view of an authored test. Questions are kept in
// their display order; the position in the slice is the question index.
// swagger:model Test
type Test struct {
	UUIDBase
	Title       string                                `gorm:"size:255;not null" json:"title"`
	Description string                                `gorm:"type:text" json:"description"`
	IsPublished bool                                  `gorm:"default:false;index" json:"isPublished"`
	Questions   datatypes.JSONSlice[scoring.Question] `json:"questions"`
}

func (Test) TableName() string {
	return "tests"
}
