package service

import (
	"assessment_backend/internal/config"
	"assessment_backend/internal/repository"
	"assessment_backend/internal/util"
	"assessment_backend/pkg/logger"
	"assessment_backend/pkg/monitoring"
	"assessment_backend/pkg/scoring"
	"assessment_backend/pkg/tracing"
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EndlessQuestion is one question served in Endless mode with its origin.
type EndlessQuestion struct {
	Key           string           `json:"key"`
	TestID        string           `json:"testId"`
	QuestionIndex int              `json:"questionIndex"`
	Question      scoring.Question `json:"question"`
}

func EndlessKey(testID string, index int) string {
	return fmt.Sprintf("%s:%d", testID, index)
}

type EndlessService struct {
	Tests  *repository.TestRepository
	Recent RecentWindow

	mu      sync.RWMutex
	cfg     config.EndlessConfig
	shuffle func(n int, swap func(i, j int))
}

func NewEndlessService(tests *repository.TestRepository, recent RecentWindow, cfg config.EndlessConfig) *EndlessService {
	return &EndlessService{Tests: tests, Recent: recent, cfg: cfg, shuffle: rand.Shuffle}
}

func (s *EndlessService) SetConfig(cfg config.EndlessConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *EndlessService) batchSize(requested int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if requested <= 0 {
		return s.cfg.BatchSize
	}
	if s.cfg.MaxBatchSize > 0 && requested > s.cfg.MaxBatchSize {
		return s.cfg.MaxBatchSize
	}
	return requested
}

// Batch draws up to size random questions from all published tests. Keys in
// exclude and, for a known user, the recently served keys are skipped while
// enough other questions remain.
func (s *EndlessService) Batch(ctx context.Context, userID *uint, size int, exclude []string) (batch []EndlessQuestion, err error) {
	ctx, span := tracing.Start(ctx, "EndlessService.Batch")
	defer func() { tracing.End(span, err) }()

	tests, err := s.Tests.ListPublished(ctx)
	if err != nil {
		return nil, err
	}

	var pool []EndlessQuestion
	for _, t := range tests {
		for i, q := range t.Questions {
			if _, err := q.Variant(); err != nil {
				continue
			}
			pool = append(pool, EndlessQuestion{Key: EndlessKey(t.ID, i), TestID: t.ID, QuestionIndex: i, Question: q})
		}
	}
	if len(pool) == 0 {
		return nil, util.ErrNoEndlessQuestions
	}

	clientSkip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		clientSkip[k] = true
	}
	recentSkip := make(map[string]bool)
	if userID != nil && s.Recent != nil {
		recent, err := s.Recent.Recent(ctx, *userID)
		if err != nil {
			logger.Log.Warn("Failed to read endless recent window", zap.Error(err))
		}
		for _, k := range recent {
			recentSkip[k] = true
		}
	}

	n := s.batchSize(size)
	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	// 先排除客户端和服务端的近期题目，不够时逐步放宽
	picked := make(map[string]bool, n)
	passes := []func(EndlessQuestion) bool{
		func(q EndlessQuestion) bool { return !clientSkip[q.Key] && !recentSkip[q.Key] },
		func(q EndlessQuestion) bool { return !clientSkip[q.Key] },
		func(q EndlessQuestion) bool { return true },
	}
	for _, allowed := range passes {
		for _, q := range pool {
			if len(batch) >= n {
				break
			}
			if picked[q.Key] || !allowed(q) {
				continue
			}
			picked[q.Key] = true
			batch = append(batch, q)
		}
	}

	if userID != nil && s.Recent != nil {
		keys := make([]string, len(batch))
		for i, q := range batch {
			keys[i] = q.Key
		}
		if err := s.Recent.Push(ctx, *userID, keys...); err != nil {
			logger.Log.Warn("Failed to update endless recent window", zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Int("endless.batch_size", len(batch)), attribute.Int("endless.pool_size", len(pool)))
	monitoring.EndlessBatches.Inc()
	return batch, nil
}
