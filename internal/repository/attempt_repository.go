package repository

import (
	"assessment_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// AttemptRepository 只提供创建和查询，Attempt 一经写入不可修改
type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return translate(r.DB.WithContext(ctx).Create(a).Error, "create attempt")
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find attempt")
	}
	return &a, nil
}

func (r *AttemptRepository) FindBySession(ctx context.Context, sessionID string) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.WithContext(ctx).First(&a, "session_id = ?", sessionID).Error; err != nil {
		return nil, translate(err, "find attempt by session")
	}
	return &a, nil
}

func (r *AttemptRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&attempts).Error
	return attempts, translate(err, "list attempts")
}
