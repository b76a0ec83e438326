package service

import (
	"assessment_backend/internal/model"
	"assessment_backend/internal/util"
	"assessment_backend/pkg/logger"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ArchiveService 将写入成功的 Attempt 以 JSON 形式另存一份，失败只记日志
type ArchiveService struct {
	Provider StorageProvider
	timeout  time.Duration
}

func NewArchiveService(provider StorageProvider) *ArchiveService {
	return &ArchiveService{Provider: provider, timeout: 10 * time.Second}
}

func archiveKey(a *model.Attempt) string {
	return fmt.Sprintf("attempts/%s/%s.json", a.CreatedAt.UTC().Format(util.DateFormat), a.ID)
}

// Archive stores a copy of the attempt. It never fails the caller.
func (s *ArchiveService) Archive(ctx context.Context, a *model.Attempt) {
	if s == nil || s.Provider == nil || a == nil {
		return
	}

	body, err := json.Marshal(a)
	if err != nil {
		logger.Log.Warn("Failed to encode attempt for archive", zap.String("attemptId", a.ID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	location, err := s.Provider.Upload(ctx, archiveKey(a), bytes.NewReader(body), int64(len(body)), util.MimeJSON)
	if err != nil {
		logger.Log.Warn("Failed to archive attempt", zap.String("attemptId", a.ID), zap.Error(err))
		return
	}
	logger.Log.Debug("Attempt archived", zap.String("attemptId", a.ID), zap.String("location", location))
}
