package sessiondriver

import (
	"context"
	"sync"

	"assessment_backend/pkg/apiclient"
	"assessment_backend/pkg/scoring"
)

// fakeAPI keeps one server-side session in memory.
type fakeAPI struct {
	mu        sync.Mutex
	session   *apiclient.Session
	resumed   bool
	patches   []apiclient.PatchRequest
	submitted []int
	abandoned []string
	starts    []apiclient.Mode
	nextID    int

	patchErr  error
	submitErr error
	stale     bool
}

func (f *fakeAPI) StartSession(_ context.Context, testID string, mode apiclient.Mode) (*apiclient.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, mode)
	if f.session != nil && f.session.Status == "active" && f.session.Mode == mode {
		return &apiclient.StartResult{Session: *f.session, Resumed: true}, nil
	}
	f.nextID++
	f.session = &apiclient.Session{
		ID:            "s" + string(rune('0'+f.nextID)),
		TestID:        testID,
		Mode:          mode,
		RemainingTime: 3,
		TimeBudget:    3,
		Status:        "active",
		Version:       1,
	}
	return &apiclient.StartResult{Session: *f.session}, nil
}

func (f *fakeAPI) PatchSession(_ context.Context, id string, patch apiclient.PatchRequest) (*apiclient.PatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	f.patches = append(f.patches, patch)
	if patch.Answers != nil {
		f.session.Answers = *patch.Answers
	}
	if patch.CurrentQuestion != nil {
		f.session.CurrentQuestion = *patch.CurrentQuestion
	}
	if patch.RemainingTime != nil {
		f.session.RemainingTime = *patch.RemainingTime
	}
	f.session.Version++
	return &apiclient.PatchResult{Session: *f.session, Stale: f.stale}, nil
}

func (f *fakeAPI) SubmitSession(_ context.Context, id string, overdue int) (*apiclient.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, overdue)
	f.session.Status = "completed"
	return &apiclient.SubmitResult{
		Attempt:    apiclient.Attempt{ID: "a1", OverdueTime: overdue},
		Score:      len(f.session.Answers),
		Total:      3,
		Percentage: len(f.session.Answers) * 100 / 3,
	}, nil
}

func (f *fakeAPI) AbandonSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, id)
	f.session.Status = "abandoned"
	return nil
}

func (f *fakeAPI) lastPatch() apiclient.PatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patches[len(f.patches)-1]
}

func (f *fakeAPI) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

func questions() []scoring.Question {
	return []scoring.Question{
		{Type: scoring.SingleChoiceType, Options: []scoring.Option{{Text: "A"}, {Text: "B", IsCorrect: true}}},
		{Type: scoring.ShortAnswerType, AcceptedAnswers: []string{"Seoul"}},
		{Type: scoring.OrderingType, Items: []string{"a", "b"}, CorrectOrder: []int{0, 1}},
	}
}
