package repository

import (
	"assessment_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return translate(r.DB.WithContext(ctx).Create(s).Error, "create session")
}

// FindActive returns the active session of a user for a test.
func (r *SessionRepository) FindActive(ctx context.Context, userID uint, testID string) (*model.Session, error) {
	var s model.Session
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, model.SessionActive).
		First(&s).Error
	if err != nil {
		return nil, translate(err, "find active session")
	}
	return &s, nil
}

// FindOwned returns a session of any status owned by the user.
func (r *SessionRepository) FindOwned(ctx context.Context, id string, userID uint) (*model.Session, error) {
	var s model.Session
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, translate(err, "find session")
	}
	return &s, nil
}

func (r *SessionRepository) FindOwnedActive(ctx context.Context, id string, userID uint) (*model.Session, error) {
	var s model.Session
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, model.SessionActive).
		First(&s).Error
	if err != nil {
		return nil, translate(err, "find active session")
	}
	return &s, nil
}

// Patch applies the given column updates to an active session owned by the
// user, bumps its version and returns the session together with the version
// it had before the update.
func (r *SessionRepository) Patch(ctx context.Context, id string, userID uint, updates map[string]interface{}, savedAt time.Time) (*model.Session, int64, error) {
	var (
		updated     model.Session
		prevVersion int64
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Session
		if err := tx.Select("version").
			Where("id = ? AND user_id = ? AND status = ?", id, userID, model.SessionActive).
			First(&current).Error; err != nil {
			return err
		}
		prevVersion = current.Version

		cols := make(map[string]interface{}, len(updates)+2)
		for k, v := range updates {
			cols[k] = v
		}
		cols["last_saved_at"] = savedAt
		cols["version"] = gorm.Expr("version + 1")

		res := tx.Model(&model.Session{}).
			Where("id = ? AND user_id = ? AND status = ?", id, userID, model.SessionActive).
			Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, 0, translate(err, "patch session")
	}
	return &updated, prevVersion, nil
}

// Complete atomically turns an active session into a completed one and stores
// the attempt built from its final state. build runs inside the transaction
// with the freshly loaded session.
func (r *SessionRepository) Complete(ctx context.Context, id string, userID uint, build func(*model.Session) *model.Attempt) (*model.Session, *model.Attempt, error) {
	var (
		session model.Session
		attempt *model.Attempt
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ? AND status = ?", id, userID, model.SessionActive).
			First(&session).Error; err != nil {
			return err
		}

		attempt = build(&session)

		res := tx.Model(&model.Session{}).
			Where("id = ? AND status = ?", id, model.SessionActive).
			Updates(map[string]interface{}{
				"status":     model.SessionCompleted,
				"active_key": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		session.Status = model.SessionCompleted
		session.ActiveKey = nil

		return tx.Create(attempt).Error
	})
	if err != nil {
		return nil, nil, translate(err, "complete session")
	}
	return &session, attempt, nil
}

// Abandon marks an active session owned by the user as abandoned.
func (r *SessionRepository) Abandon(ctx context.Context, id string, userID uint) error {
	res := r.DB.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, model.SessionActive).
		Updates(map[string]interface{}{
			"status":     model.SessionAbandoned,
			"active_key": nil,
		})
	if res.Error != nil {
		return translate(res.Error, "abandon session")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns the user's active sessions, most recently saved first.
func (r *SessionRepository) ListActive(ctx context.Context, userID uint, limit int) ([]model.Session, error) {
	var sessions []model.Session
	q := r.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.SessionActive).
		Order("last_saved_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&sessions).Error
	return sessions, translate(err, "list active sessions")
}

func (r *SessionRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Session{}).
		Where("status = ?", model.SessionActive).
		Count(&count).Error
	return count, translate(err, "count active sessions")
}
