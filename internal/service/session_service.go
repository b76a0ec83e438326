package service

import (
	"assessment_backend/internal/config"
	"assessment_backend/internal/model"
	"assessment_backend/internal/repository"
	"assessment_backend/internal/util"
	"assessment_backend/pkg/logger"
	"assessment_backend/pkg/monitoring"
	"assessment_backend/pkg/scoring"
	"assessment_backend/pkg/tracing"
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type SessionService struct {
	Sessions *repository.SessionRepository
	Tests    *repository.TestRepository
	Archive  *ArchiveService

	mu  sync.RWMutex
	cfg config.SessionConfig
	now func() time.Time
}

func NewSessionService(sessions *repository.SessionRepository, tests *repository.TestRepository, archive *ArchiveService, cfg config.SessionConfig) *SessionService {
	return &SessionService{
		Sessions: sessions,
		Tests:    tests,
		Archive:  archive,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetConfig 配置热更新：只影响之后创建的会话
func (s *SessionService) SetConfig(cfg config.SessionConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *SessionService) config() config.SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Budget returns the configured time budget of a mode in seconds.
func (s *SessionService) Budget(mode model.Mode) int {
	cfg := s.config()
	if mode == model.ModePractice {
		return cfg.PracticeBudgetSeconds
	}
	return cfg.TestBudgetSeconds
}

type StartSessionReq struct {
	TestID string     `json:"testId" binding:"required"`
	Mode   model.Mode `json:"mode" binding:"required"`
}

type StartSessionResult struct {
	Session *model.Session `json:"session"`
	Resumed bool           `json:"resumed"`
}

// Start returns the caller's active session for the test, or creates one.
func (s *SessionService) Start(ctx context.Context, userID uint, req StartSessionReq) (res *StartSessionResult, err error) {
	ctx, span := tracing.Start(ctx, "SessionService.Start",
		attribute.String("test.id", req.TestID), attribute.String("session.mode", string(req.Mode)))
	defer func() { tracing.End(span, err) }()

	if !req.Mode.IsSessionMode() {
		return nil, util.ErrInvalidMode
	}
	if req.TestID == "" {
		return nil, errors.Wrap(util.ErrValidation, "testId is required")
	}

	existing, err := s.Sessions.FindActive(ctx, userID, req.TestID)
	if err == nil {
		monitoring.SessionEvents.WithLabelValues("resumed", string(existing.Mode)).Inc()
		return &StartSessionResult{Session: existing, Resumed: true}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if _, err := s.Tests.FindByID(ctx, req.TestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	now := s.now()
	budget := s.Budget(req.Mode)
	key := model.ActiveKeyFor(userID, req.TestID)
	session := &model.Session{
		UserID:        userID,
		TestID:        req.TestID,
		Mode:          req.Mode,
		Answers:       []scoring.QuestionAnswer{},
		RemainingTime: budget,
		TimeBudget:    budget,
		Status:        model.SessionActive,
		ActiveKey:     &key,
		StartedAt:     now,
		LastSavedAt:   now,
	}

	if err := s.Sessions.Create(ctx, session); err != nil {
		// 并发 start 时另一请求已创建，返回胜出的会话
		winner, findErr := s.Sessions.FindActive(ctx, userID, req.TestID)
		if findErr == nil {
			monitoring.SessionEvents.WithLabelValues("resumed", string(winner.Mode)).Inc()
			return &StartSessionResult{Session: winner, Resumed: true}, nil
		}
		return nil, err
	}

	monitoring.SessionEvents.WithLabelValues("started", string(req.Mode)).Inc()
	logger.Log.Info("Session started",
		zap.String("sessionId", session.ID),
		zap.Uint("userId", userID),
		zap.String("testId", req.TestID),
		zap.String("mode", string(req.Mode)),
	)
	return &StartSessionResult{Session: session, Resumed: false}, nil
}

// PatchSessionReq 只更新传入的字段；answers 为完整答案集合，整体替换
type PatchSessionReq struct {
	Answers         *[]scoring.QuestionAnswer `json:"answers"`
	CurrentQuestion *int                      `json:"currentQuestion"`
	RemainingTime   *int                      `json:"remainingTime"`
	BaseVersion     *int64                    `json:"baseVersion"`
}

func (r PatchSessionReq) validate() error {
	if r.CurrentQuestion != nil && *r.CurrentQuestion < 0 {
		return errors.Wrap(util.ErrValidation, "currentQuestion must not be negative")
	}
	if r.RemainingTime != nil && *r.RemainingTime < 0 {
		return errors.Wrap(util.ErrValidation, "remainingTime must not be negative")
	}
	if r.Answers != nil {
		for _, a := range *r.Answers {
			if a.QuestionIndex < 0 {
				return errors.Wrap(util.ErrValidation, "questionIndex must not be negative")
			}
		}
	}
	return nil
}

type PatchSessionResult struct {
	Session *model.Session `json:"session"`
	// Stale is set when the patch was written on top of a newer version than
	// the one the client last saw; the write is still applied.
	Stale bool `json:"stale"`
}

func (s *SessionService) Patch(ctx context.Context, sessionID string, userID uint, req PatchSessionReq) (res *PatchSessionResult, err error) {
	ctx, span := tracing.Start(ctx, "SessionService.Patch", attribute.String("session.id", sessionID))
	defer func() { tracing.End(span, err) }()

	if err := req.validate(); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{}, 3)
	if req.Answers != nil {
		// 同一题多次出现时以最后一次为准
		updates["answers"] = datatypes.JSONSlice[scoring.QuestionAnswer](scoring.FromMap(scoring.ToMap(*req.Answers)))
	}
	if req.CurrentQuestion != nil {
		updates["current_question"] = *req.CurrentQuestion
	}
	if req.RemainingTime != nil {
		updates["remaining_time"] = *req.RemainingTime
	}

	session, prevVersion, err := s.Sessions.Patch(ctx, sessionID, userID, updates, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}

	stale := req.BaseVersion != nil && *req.BaseVersion < prevVersion
	if stale {
		monitoring.StalePatches.Inc()
		logger.Log.Warn("Stale session patch applied",
			zap.String("sessionId", sessionID),
			zap.Int64("baseVersion", *req.BaseVersion),
			zap.Int64("storedVersion", prevVersion),
		)
	}
	monitoring.SessionEvents.WithLabelValues("patched", string(session.Mode)).Inc()
	return &PatchSessionResult{Session: session, Stale: stale}, nil
}

type SubmitSessionReq struct {
	OverdueTime *int `json:"overdueTime"`
}

type SubmitResult struct {
	Attempt    *model.Attempt `json:"attempt"`
	Score      int            `json:"score"`
	Total      int            `json:"total"`
	Percentage int            `json:"percentage"`
}

// Submit scores the final answers of an active session, stores the attempt
// and completes the session in one transaction.
func (s *SessionService) Submit(ctx context.Context, sessionID string, userID uint, req SubmitSessionReq) (res *SubmitResult, err error) {
	ctx, span := tracing.Start(ctx, "SessionService.Submit", attribute.String("session.id", sessionID))
	defer func() { tracing.End(span, err) }()

	current, err := s.Sessions.FindOwnedActive(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}

	test, err := s.Tests.FindByID(ctx, current.TestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	overdue := 0
	if req.OverdueTime != nil && *req.OverdueTime > 0 {
		overdue = *req.OverdueTime
	}

	var summary scoring.Summary
	_, attempt, err := s.Sessions.Complete(ctx, sessionID, userID, func(final *model.Session) *model.Attempt {
		summary = scoring.ScoreAll(test.Questions, scoring.ToMap(final.Answers))
		uid := final.UserID
		sid := final.ID
		return &model.Attempt{
			TestID:         final.TestID,
			UserID:         &uid,
			SessionID:      &sid,
			Score:          summary.Score,
			TotalQuestions: summary.Total,
			Duration:       final.Elapsed(),
			OverdueTime:    overdue,
			Answers:        summary.Answers,
			Mode:           final.Mode,
		}
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrDuplicate) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}

	s.Archive.Archive(ctx, attempt)

	monitoring.SessionEvents.WithLabelValues("submitted", string(attempt.Mode)).Inc()
	monitoring.AttemptScore.WithLabelValues(string(attempt.Mode)).Observe(float64(summary.Percentage()))
	logger.Log.Info("Session submitted",
		zap.String("sessionId", sessionID),
		zap.String("attemptId", attempt.ID),
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

func (s *SessionService) Abandon(ctx context.Context, sessionID string, userID uint) (err error) {
	ctx, span := tracing.Start(ctx, "SessionService.Abandon", attribute.String("session.id", sessionID))
	defer func() { tracing.End(span, err) }()

	if err := s.Sessions.Abandon(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return util.ErrSessionNotFound
		}
		return err
	}

	monitoring.SessionEvents.WithLabelValues("abandoned", "").Inc()
	logger.Log.Info("Session abandoned", zap.String("sessionId", sessionID), zap.Uint("userId", userID))
	return nil
}

// ListActive returns the caller's active sessions, most recently saved first.
func (s *SessionService) ListActive(ctx context.Context, userID uint) ([]model.Session, error) {
	return s.Sessions.ListActive(ctx, userID, s.config().ActiveListLimit)
}

// Get returns a session of any status owned by the caller.
func (s *SessionService) Get(ctx context.Context, sessionID string, userID uint) (*model.Session, error) {
	session, err := s.Sessions.FindOwned(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// CountActive backs the active-sessions gauge.
func (s *SessionService) CountActive(ctx context.Context) (int64, error) {
	return s.Sessions.CountActive(ctx)
}
