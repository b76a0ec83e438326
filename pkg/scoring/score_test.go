package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleChoice() Question {
	return Question{Type: SingleChoiceType, Options: []Option{
		{Text: "A", IsCorrect: false},
		{Text: "B", IsCorrect: true},
		{Text: "C", IsCorrect: false},
	}}
}

func multiChoice(correct ...int) Question {
	q := Question{Type: MultiChoiceType, Options: make([]Option, 3)}
	for _, i := range correct {
		q.Options[i].IsCorrect = true
	}
	return q
}

func TestScore_SingleChoice(t *testing.T) {
	q := singleChoice()
	tests := []struct {
		name   string
		answer Answer
		want   bool
	}{
		{name: "correct option", answer: Answer{SelectedOptions: []int{1}}, want: true},
		{name: "wrong option", answer: Answer{SelectedOptions: []int{0}}, want: false},
		{name: "empty answer", answer: Answer{}, want: false},
		{name: "out of range", answer: Answer{SelectedOptions: []int{7}}, want: false},
		{name: "negative index", answer: Answer{SelectedOptions: []int{-1}}, want: false},
		{name: "only first selection counts", answer: Answer{SelectedOptions: []int{0, 1}}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(q, tc.answer))
		})
	}
}

func TestScore_MultiChoice(t *testing.T) {
	tests := []struct {
		name     string
		question Question
		answer   Answer
		want     bool
	}{
		{name: "same set reordered", question: multiChoice(0, 2), answer: Answer{SelectedOptions: []int{2, 0}}, want: true},
		{name: "extra selection", question: multiChoice(0, 2), answer: Answer{SelectedOptions: []int{0, 1, 2}}, want: false},
		{name: "missing selection", question: multiChoice(0, 2), answer: Answer{SelectedOptions: []int{0}}, want: false},
		{name: "duplicates ignored", question: multiChoice(0, 2), answer: Answer{SelectedOptions: []int{0, 2, 2, 0}}, want: true},
		{name: "no correct options and empty selection", question: multiChoice(), answer: Answer{SelectedOptions: []int{}}, want: true},
		{name: "no correct options and a selection", question: multiChoice(), answer: Answer{SelectedOptions: []int{1}}, want: false},
		{name: "out of range selection", question: multiChoice(0), answer: Answer{SelectedOptions: []int{0, 9}}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.question, tc.answer))
		})
	}
}

func TestScore_MultiChoicePermutationInvariant(t *testing.T) {
	q := Question{Type: MultiChoiceType, Options: []Option{
		{IsCorrect: true}, {IsCorrect: false}, {IsCorrect: true}, {IsCorrect: true},
	}}
	perms := [][]int{
		{0, 2, 3}, {0, 3, 2}, {2, 0, 3}, {2, 3, 0}, {3, 0, 2}, {3, 2, 0},
	}
	for _, p := range perms {
		assert.True(t, Score(q, Answer{SelectedOptions: p}), "permutation %v", p)
	}
}

func TestScore_ShortAnswer(t *testing.T) {
	q := Question{Type: ShortAnswerType, AcceptedAnswers: []string{"Seoul", "서울"}}
	tests := []struct {
		text string
		want bool
	}{
		{text: "  SEOUL  ", want: true},
		{text: "seoul", want: true},
		{text: "서울", want: true},
		{text: "\t서울\n", want: true},
		{text: "Busan", want: false},
		{text: "", want: false},
		{text: "   ", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(q, Answer{TextAnswer: tc.text}))
		})
	}
}

func TestScore_TrimAndCaseFoldInvariant(t *testing.T) {
	short := Question{Type: ShortAnswerType, AcceptedAnswers: []string{"Straße"}}
	blanks := Question{Type: FillBlankType, Blanks: []Blank{{AcceptedAnswers: []string{"Korea"}}}}

	variants := []string{"Straße", "STRAßE", "  straße", "straße  "}
	for _, v := range variants {
		assert.True(t, Score(short, Answer{TextAnswer: v}), "short answer %q", v)
	}
	for _, v := range []string{"korea", " KOREA ", "KoReA\t"} {
		assert.True(t, Score(blanks, Answer{BlankAnswers: []string{v}}), "blank %q", v)
	}
}

func TestScore_Ordering(t *testing.T) {
	q := Question{Type: OrderingType, Items: []string{"a", "b", "c", "d"}, CorrectOrder: []int{0, 1, 2, 3}}

	assert.True(t, Score(q, Answer{OrderedItems: []int{0, 1, 2, 3}}))
	assert.False(t, Score(q, Answer{OrderedItems: []int{3, 2, 1, 0}}))
	assert.False(t, Score(q, Answer{OrderedItems: []int{0, 1, 2}}))
	assert.False(t, Score(q, Answer{OrderedItems: []int{0, 1, 2, 3, 4}}))
	assert.False(t, Score(q, Answer{}))
}

func TestScore_FillBlank(t *testing.T) {
	q := Question{Type: FillBlankType, Blanks: []Blank{
		{AcceptedAnswers: []string{"한국", "Korea"}},
		{AcceptedAnswers: []string{"서울", "Seoul"}},
	}}

	assert.True(t, Score(q, Answer{BlankAnswers: []string{"korea", "SEOUL"}}))
	assert.True(t, Score(q, Answer{BlankAnswers: []string{"한국", "서울"}}))
	assert.False(t, Score(q, Answer{BlankAnswers: []string{"korea", "Busan"}}))
	assert.False(t, Score(q, Answer{BlankAnswers: []string{"korea"}}))
	assert.False(t, Score(q, Answer{BlankAnswers: []string{"korea", ""}}))
	assert.False(t, Score(q, Answer{}))
}

func TestScore_UnknownType(t *testing.T) {
	q := Question{Type: "essay", AcceptedAnswers: []string{"anything"}}

	_, err := q.Variant()
	require.ErrorIs(t, err, ErrUnknownQuestionType)
	assert.False(t, Score(q, Answer{TextAnswer: "anything"}))
	assert.False(t, Score(Question{}, Answer{}))
}

func TestScore_Deterministic(t *testing.T) {
	cases := []struct {
		q Question
		a Answer
	}{
		{singleChoice(), Answer{SelectedOptions: []int{1}}},
		{multiChoice(0, 2), Answer{SelectedOptions: []int{2, 0}}},
		{Question{Type: ShortAnswerType, AcceptedAnswers: []string{"x"}}, Answer{TextAnswer: "y"}},
		{Question{Type: OrderingType, CorrectOrder: []int{1, 0}}, Answer{OrderedItems: []int{1, 0}}},
	}
	for _, c := range cases {
		first := Score(c.q, c.a)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Score(c.q, c.a))
		}
	}
}

func TestScoreAll(t *testing.T) {
	questions := []Question{
		singleChoice(),
		multiChoice(),
		{Type: ShortAnswerType, AcceptedAnswers: []string{"Seoul"}},
	}
	answers := ToMap([]QuestionAnswer{
		{QuestionIndex: 0, Answer: Answer{SelectedOptions: []int{1}}},
		{QuestionIndex: 2, IsOverdue: true, Answer: Answer{TextAnswer: "busan"}},
	})

	sum := ScoreAll(questions, answers)

	assert.Equal(t, 3, sum.Total)
	// question 1 has no correct options, so the implicit empty answer is correct
	assert.Equal(t, 2, sum.Score)
	require.Len(t, sum.Answers, 3)
	assert.True(t, sum.Answers[0].IsCorrect)
	assert.True(t, sum.Answers[1].IsCorrect)
	assert.False(t, sum.Answers[2].IsCorrect)
	assert.True(t, sum.Answers[2].IsOverdue)
	assert.Equal(t, 67, sum.Percentage())
}

func TestAnswerMapRoundTrip(t *testing.T) {
	in := []QuestionAnswer{
		{QuestionIndex: 3, Answer: Answer{TextAnswer: "c"}},
		{QuestionIndex: 0, Answer: Answer{SelectedOptions: []int{1}}},
		{QuestionIndex: 3, Answer: Answer{TextAnswer: "latest"}},
	}

	m := ToMap(in)
	out := FromMap(m)

	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].QuestionIndex)
	assert.Equal(t, 3, out[1].QuestionIndex)
	assert.Equal(t, "latest", out[1].TextAnswer)
}

func TestSummaryPercentage(t *testing.T) {
	assert.Equal(t, 0, Summary{}.Percentage())
	assert.Equal(t, 50, Summary{Score: 1, Total: 2}.Percentage())
	assert.Equal(t, 33, Summary{Score: 1, Total: 3}.Percentage())
	assert.Equal(t, 100, Summary{Score: 4, Total: 4}.Percentage())
}
