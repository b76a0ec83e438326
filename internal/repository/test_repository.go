package repository

import (
	"assessment_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// TestRepository 只读的试卷查询（试卷编辑由外部系统负责）
type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) FindByID(ctx context.Context, id string) (*model.Test, error) {
	var test model.Test
	if err := r.DB.WithContext(ctx).First(&test, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find test")
	}
	return &test, nil
}

func (r *TestRepository) ListPublished(ctx context.Context) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at asc").
		Find(&tests).Error
	return tests, translate(err, "list published tests")
}

// Create is used by seeding tools and tests only.
func (r *TestRepository) Create(ctx context.Context, test *model.Test) error {
	return translate(r.DB.WithContext(ctx).Create(test).Error, "create test")
}
