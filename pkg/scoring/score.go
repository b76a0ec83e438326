// Package scoring is the single answer-checking implementation shared by the
// server (authoritative results) and the client drivers (live feedback).
package scoring

import (
	"strings"

	"golang.org/x/text/cases"
)

// Score reports whether answer is correct for question. It never panics and
// resolves malformed or missing input to false.
func Score(question Question, answer Answer) bool {
	v, err := question.Variant()
	if err != nil {
		return false
	}
	return ScoreVariant(v, answer)
}

// ScoreVariant evaluates an answer against an already converted variant.
func ScoreVariant(v Variant, answer Answer) bool {
	switch q := v.(type) {
	case SingleChoice:
		return scoreSingle(q, answer)
	case MultiChoice:
		return scoreMulti(q, answer)
	case ShortAnswer:
		return scoreShort(q, answer)
	case Ordering:
		return scoreOrdering(q, answer)
	case FillBlank:
		return scoreFillBlank(q, answer)
	default:
		return false
	}
}

func scoreSingle(q SingleChoice, a Answer) bool {
	if len(a.SelectedOptions) == 0 {
		return false
	}
	idx := a.SelectedOptions[0]
	if idx < 0 || idx >= len(q.Options) {
		return false
	}
	return q.Options[idx].IsCorrect
}

func scoreMulti(q MultiChoice, a Answer) bool {
	correct := make(map[int]struct{})
	for i, o := range q.Options {
		if o.IsCorrect {
			correct[i] = struct{}{}
		}
	}
	selected := make(map[int]struct{}, len(a.SelectedOptions))
	for _, i := range a.SelectedOptions {
		selected[i] = struct{}{}
	}
	if len(selected) != len(correct) {
		return false
	}
	for i := range selected {
		if _, ok := correct[i]; !ok {
			return false
		}
	}
	return true
}

func scoreShort(q ShortAnswer, a Answer) bool {
	return matchesAny(a.TextAnswer, q.Accepted)
}

func scoreOrdering(q Ordering, a Answer) bool {
	if len(a.OrderedItems) != len(q.CorrectOrder) {
		return false
	}
	for i := range q.CorrectOrder {
		if a.OrderedItems[i] != q.CorrectOrder[i] {
			return false
		}
	}
	return true
}

func scoreFillBlank(q FillBlank, a Answer) bool {
	if len(a.BlankAnswers) != len(q.Blanks) {
		return false
	}
	for i, blank := range q.Blanks {
		if !matchesAny(a.BlankAnswers[i], blank.AcceptedAnswers) {
			return false
		}
	}
	return true
}

// matchesAny compares trimmed, case-folded text against each accepted value.
// Blank input never matches.
func matchesAny(text string, accepted []string) bool {
	got := Normalize(text)
	if got == "" {
		return false
	}
	for _, want := range accepted {
		if Normalize(want) == got {
			return true
		}
	}
	return false
}

// Normalize trims surrounding whitespace and applies Unicode case folding.
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
