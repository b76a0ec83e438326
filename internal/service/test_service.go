package service

import (
	"assessment_backend/internal/model"
	"assessment_backend/internal/repository"
	"assessment_backend/internal/util"
	"context"

	"github.com/pkg/errors"
)

// TestService 只读的试卷查询，供客户端渲染题目
type TestService struct {
	Tests *repository.TestRepository
}

func NewTestService(tests *repository.TestRepository) *TestService {
	return &TestService{Tests: tests}
}

func (s *TestService) Get(ctx context.Context, id string) (*model.Test, error) {
	test, err := s.Tests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	return test, nil
}
