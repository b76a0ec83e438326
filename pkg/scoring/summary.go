package scoring

// ScoredAnswer is one answer together with the oracle's verdict.
type ScoredAnswer struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        Answer `json:"answer"`
	IsCorrect     bool   `json:"isCorrect"`
	IsOverdue     bool   `json:"isOverdue"`
}

// Summary is the result of scoring a full answer set.
type Summary struct {
	Score   int            `json:"score"`
	Total   int            `json:"total"`
	Answers []ScoredAnswer `json:"answers"`
}

// Percentage returns the rounded share of correct answers, 0 for an empty test.
func (s Summary) Percentage() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Score*200 + s.Total) / (s.Total * 2)
}

// ScoreAll scores every question by position. A question without a recorded
// answer is scored against an empty answer.
func ScoreAll(questions []Question, answers map[int]QuestionAnswer) Summary {
	sum := Summary{
		Total:   len(questions),
		Answers: make([]ScoredAnswer, 0, len(questions)),
	}
	for i, q := range questions {
		qa := answers[i]
		ok := Score(q, qa.Answer)
		if ok {
			sum.Score++
		}
		sum.Answers = append(sum.Answers, ScoredAnswer{
			QuestionIndex: i,
			Answer:        qa.Answer,
			IsCorrect:     ok,
			IsOverdue:     qa.IsOverdue,
		})
	}
	return sum
}
