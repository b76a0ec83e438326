package main

import (
	"fmt"
	"strconv"
	"strings"

	"assessment_backend/pkg/scoring"
)

// parseAnswer reads one line of terminal input into an answer for q.
//
//	single-choice  2
//	multi-choice   0,2
//	short-answer   free text
//	ordering       3,0,1,2
//	fill-blank     first|second
func parseAnswer(q scoring.Question, line string) (scoring.Answer, error) {
	line = strings.TrimSpace(line)
	switch q.Type {
	case scoring.SingleChoiceType:
		n, err := strconv.Atoi(line)
		if err != nil {
			return scoring.Answer{}, fmt.Errorf("expected an option number, got %q", line)
		}
		return scoring.Answer{SelectedOptions: []int{n}}, nil
	case scoring.MultiChoiceType:
		idx, err := parseInts(line)
		if err != nil {
			return scoring.Answer{}, err
		}
		return scoring.Answer{SelectedOptions: idx}, nil
	case scoring.OrderingType:
		idx, err := parseInts(line)
		if err != nil {
			return scoring.Answer{}, err
		}
		return scoring.Answer{OrderedItems: idx}, nil
	case scoring.FillBlankType:
		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return scoring.Answer{BlankAnswers: parts}, nil
	default:
		return scoring.Answer{TextAnswer: line}, nil
	}
}

func parseInts(s string) ([]int, error) {
	out := []int{}
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("expected comma separated numbers, got %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}

// render prints a question without its correctness data.
func render(i int, q scoring.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%d] (%s) %s\n", i+1, q.Type, q.Text)
	for j, o := range q.Options {
		fmt.Fprintf(&b, "   %d) %s\n", j, o.Text)
	}
	for j, item := range q.Items {
		fmt.Fprintf(&b, "   %d) %s\n", j, item)
	}
	if len(q.Blanks) > 0 {
		fmt.Fprintf(&b, "   %d blanks, separate with |\n", len(q.Blanks))
	}
	return b.String()
}
