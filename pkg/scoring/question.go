package scoring

import (
	"errors"
	"fmt"
	"sort"
)

type QuestionType string

const (
	SingleChoiceType QuestionType = "single-choice"
	MultiChoiceType  QuestionType = "multi-choice"
	ShortAnswerType  QuestionType = "short-answer"
	OrderingType     QuestionType = "ordering"
	FillBlankType    QuestionType = "fill-blank"
)

var ErrUnknownQuestionType = errors.New("unknown question type")

// Option is one choice of a single/multi-choice question.
type Option struct {
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect,omitempty"`
}

// Blank is one gap of a fill-blank question with its accepted answers.
type Blank struct {
	AcceptedAnswers []string `json:"acceptedAnswers" yaml:"acceptedAnswers"`
}

// Question is the stored shape of a question as delivered by the test lookup.
// Only the fields relevant to Type are populated.
type Question struct {
	Index           int          `json:"index" yaml:"index"`
	Text            string       `json:"text" yaml:"text"`
	Type            QuestionType `json:"type" yaml:"type"`
	Options         []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	AcceptedAnswers []string     `json:"acceptedAnswers,omitempty" yaml:"acceptedAnswers,omitempty"`
	Items           []string     `json:"items,omitempty" yaml:"items,omitempty"`
	CorrectOrder    []int        `json:"correctOrder,omitempty" yaml:"correctOrder,omitempty"`
	Blanks          []Blank      `json:"blanks,omitempty" yaml:"blanks,omitempty"`
}

// Variant is the closed set of question shapes the oracle understands.
type Variant interface {
	variant()
}

type SingleChoice struct{ Options []Option }

type MultiChoice struct{ Options []Option }

type ShortAnswer struct{ Accepted []string }

type Ordering struct{ CorrectOrder []int }

type FillBlank struct{ Blanks []Blank }

func (SingleChoice) variant() {}
func (MultiChoice) variant()  {}
func (ShortAnswer) variant()  {}
func (Ordering) variant()     {}
func (FillBlank) variant()    {}

// Variant converts the stored question into its tagged variant.
func (q Question) Variant() (Variant, error) {
	switch q.Type {
	case SingleChoiceType:
		return SingleChoice{Options: q.Options}, nil
	case MultiChoiceType:
		return MultiChoice{Options: q.Options}, nil
	case ShortAnswerType:
		return ShortAnswer{Accepted: q.AcceptedAnswers}, nil
	case OrderingType:
		return Ordering{CorrectOrder: q.CorrectOrder}, nil
	case FillBlankType:
		return FillBlank{Blanks: q.Blanks}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownQuestionType, q.Type)
}

// Answer is a user's input for one question. Unused fields stay empty.
type Answer struct {
	SelectedOptions []int    `json:"selectedOptions,omitempty"`
	TextAnswer      string   `json:"textAnswer,omitempty"`
	OrderedItems    []int    `json:"orderedItems,omitempty"`
	BlankAnswers    []string `json:"blankAnswers,omitempty"`
}

// IsEmpty reports whether no field of the answer is populated.
func (a Answer) IsEmpty() bool {
	return len(a.SelectedOptions) == 0 && a.TextAnswer == "" &&
		len(a.OrderedItems) == 0 && len(a.BlankAnswers) == 0
}

// QuestionAnswer is the array form of an answer used on the wire and in
// stored sessions: the answer fields plus the index of the question.
type QuestionAnswer struct {
	QuestionIndex int  `json:"questionIndex"`
	IsOverdue     bool `json:"isOverdue,omitempty"`
	Answer
}

// ToMap indexes answers by question index. Later entries win.
func ToMap(answers []QuestionAnswer) map[int]QuestionAnswer {
	m := make(map[int]QuestionAnswer, len(answers))
	for _, a := range answers {
		m[a.QuestionIndex] = a
	}
	return m
}

// FromMap flattens an index-keyed answer map into array form ordered by
// question index.
func FromMap(m map[int]QuestionAnswer) []QuestionAnswer {
	out := make([]QuestionAnswer, 0, len(m))
	for idx, a := range m {
		a.QuestionIndex = idx
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionIndex < out[j].QuestionIndex })
	return out
}
