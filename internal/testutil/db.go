// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"assessment_backend/internal/model"
	"assessment_backend/pkg/database"
	"assessment_backend/pkg/scoring"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// OpenDB returns a migrated in-memory sqlite database private to the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SampleQuestions covers every question variant; the correct answers are
// returned by CorrectAnswers.
func SampleQuestions() []scoring.Question {
	return []scoring.Question{
		{Index: 0, Text: "Capital of Korea?", Type: scoring.SingleChoiceType, Options: []scoring.Option{
			{Text: "Busan"}, {Text: "Seoul", IsCorrect: true}, {Text: "Incheon"},
		}},
		{Index: 1, Text: "Prime numbers", Type: scoring.MultiChoiceType, Options: []scoring.Option{
			{Text: "2", IsCorrect: true}, {Text: "4"}, {Text: "5", IsCorrect: true},
		}},
		{Index: 2, Text: "Largest ocean", Type: scoring.ShortAnswerType, AcceptedAnswers: []string{"Pacific"}},
		{Index: 3, Text: "Order the steps", Type: scoring.OrderingType, Items: []string{"a", "b", "c"}, CorrectOrder: []int{2, 0, 1}},
		{Index: 4, Text: "___ is the capital of ___", Type: scoring.FillBlankType, Blanks: []scoring.Blank{
			{AcceptedAnswers: []string{"Seoul"}}, {AcceptedAnswers: []string{"Korea", "South Korea"}},
		}},
	}
}

// CorrectAnswers returns a correct answer for each SampleQuestions entry.
func CorrectAnswers() []scoring.QuestionAnswer {
	return []scoring.QuestionAnswer{
		{QuestionIndex: 0, Answer: scoring.Answer{SelectedOptions: []int{1}}},
		{QuestionIndex: 1, Answer: scoring.Answer{SelectedOptions: []int{2, 0}}},
		{QuestionIndex: 2, Answer: scoring.Answer{TextAnswer: " pacific "}},
		{QuestionIndex: 3, Answer: scoring.Answer{OrderedItems: []int{2, 0, 1}}},
		{QuestionIndex: 4, Answer: scoring.Answer{BlankAnswers: []string{"seoul", "south korea"}}},
	}
}

// CreateTest stores a test with the sample questions.
func CreateTest(t testing.TB, db *gorm.DB, published bool) *model.Test {
	t.Helper()
	test := &model.Test{
		Title:       "Geography",
		IsPublished: published,
		Questions:   SampleQuestions(),
	}
	if err := db.Create(test).Error; err != nil {
		t.Fatalf("create test: %v", err)
	}
	return test
}
