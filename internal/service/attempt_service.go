package service

import (
	"assessment_backend/internal/model"
	"assessment_backend/internal/repository"
	"assessment_backend/internal/util"
	"assessment_backend/pkg/logger"
	"assessment_backend/pkg/monitoring"
	"assessment_backend/pkg/scoring"
	"assessment_backend/pkg/tracing"
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AttemptService 处理不经过会话的提交（匿名 / Endless）以及结果查询
type AttemptService struct {
	Attempts  *repository.AttemptRepository
	Tests     *repository.TestRepository
	Archive   *ArchiveService
	listLimit int
}

func NewAttemptService(attempts *repository.AttemptRepository, tests *repository.TestRepository, archive *ArchiveService, listLimit int) *AttemptService {
	return &AttemptService{Attempts: attempts, Tests: tests, Archive: archive, listLimit: listLimit}
}

// RecordAttemptReq is a complete answer set scored without a session.
// For Endless runs answers are keyed by position in SourceQuestions.
type RecordAttemptReq struct {
	TestID          string                   `json:"testId"`
	Mode            model.Mode               `json:"mode" binding:"required"`
	Answers         []scoring.QuestionAnswer `json:"answers"`
	Duration        int                      `json:"duration"`
	OverdueTime     int                      `json:"overdueTime"`
	SourceQuestions []model.SourceQuestion   `json:"sourceQuestions"`
}

func (r RecordAttemptReq) validate() error {
	if !r.Mode.IsValid() {
		return errors.Wrap(util.ErrValidation, "mode must be Test, Practice or Endless")
	}
	if r.Duration < 0 || r.OverdueTime < 0 {
		return errors.Wrap(util.ErrValidation, "duration and overdueTime must not be negative")
	}
	if r.Mode == model.ModeEndless {
		if len(r.SourceQuestions) == 0 {
			return errors.Wrap(util.ErrValidation, "sourceQuestions is required for Endless attempts")
		}
	} else if r.TestID == "" {
		return errors.Wrap(util.ErrValidation, "testId is required")
	}
	for _, a := range r.Answers {
		if a.QuestionIndex < 0 {
			return errors.Wrap(util.ErrValidation, "questionIndex must not be negative")
		}
	}
	return nil
}

// Record scores and stores an attempt. userID is nil for anonymous callers.
func (s *AttemptService) Record(ctx context.Context, userID *uint, req RecordAttemptReq) (res *SubmitResult, err error) {
	ctx, span := tracing.Start(ctx, "AttemptService.Record", attribute.String("attempt.mode", string(req.Mode)))
	defer func() { tracing.End(span, err) }()

	if err := req.validate(); err != nil {
		return nil, err
	}

	var summary scoring.Summary
	if req.Mode == model.ModeEndless {
		summary, err = s.scoreEndless(ctx, req)
	} else {
		summary, err = s.scoreTest(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	attempt := &model.Attempt{
		TestID:          req.TestID,
		UserID:          userID,
		Score:           summary.Score,
		TotalQuestions:  summary.Total,
		Duration:        req.Duration,
		OverdueTime:     req.OverdueTime,
		Answers:         summary.Answers,
		Mode:            req.Mode,
		SourceQuestions: req.SourceQuestions,
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	s.Archive.Archive(ctx, attempt)

	monitoring.AttemptScore.WithLabelValues(string(req.Mode)).Observe(float64(summary.Percentage()))
	logger.Log.Info("Attempt recorded",
		zap.String("attemptId", attempt.ID),
		zap.String("mode", string(req.Mode)),
		zap.Bool("anonymous", userID == nil),
		zap.Int("score", summary.Score),
		zap.Int("total", summary.Total),
	)

	return &SubmitResult{
		Attempt:    attempt,
		Score:      summary.Score,
		Total:      summary.Total,
		Percentage: summary.Percentage(),
	}, nil
}

func (s *AttemptService) scoreTest(ctx context.Context, req RecordAttemptReq) (scoring.Summary, error) {
	test, err := s.Tests.FindByID(ctx, req.TestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return scoring.Summary{}, util.ErrTestNotFound
		}
		return scoring.Summary{}, err
	}
	return scoring.ScoreAll(test.Questions, scoring.ToMap(req.Answers)), nil
}

// scoreEndless resolves every source question and scores the answer given at
// the same position.
func (s *AttemptService) scoreEndless(ctx context.Context, req RecordAttemptReq) (scoring.Summary, error) {
	tests := make(map[string]*model.Test)
	questions := make([]scoring.Question, 0, len(req.SourceQuestions))
	for _, src := range req.SourceQuestions {
		test, ok := tests[src.TestID]
		if !ok {
			t, err := s.Tests.FindByID(ctx, src.TestID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return scoring.Summary{}, errors.Wrapf(util.ErrValidation, "unknown source test %s", src.TestID)
				}
				return scoring.Summary{}, err
			}
			tests[src.TestID] = t
			test = t
		}
		if src.QuestionIndex < 0 || src.QuestionIndex >= len(test.Questions) {
			return scoring.Summary{}, errors.Wrapf(util.ErrValidation, "question %d out of range for test %s", src.QuestionIndex, src.TestID)
		}
		questions = append(questions, test.Questions[src.QuestionIndex])
	}
	return scoring.ScoreAll(questions, scoring.ToMap(req.Answers)), nil
}

// Get returns an attempt. Attempts owned by a user are only visible to that
// user; anonymous attempts are visible to anyone holding the id.
func (s *AttemptService) Get(ctx context.Context, id string, userID *uint) (*model.Attempt, error) {
	attempt, err := s.Attempts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != nil && (userID == nil || *attempt.UserID != *userID) {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptService) List(ctx context.Context, userID uint) ([]model.Attempt, error) {
	return s.Attempts.ListByUser(ctx, userID, s.listLimit)
}
