package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	appErr "github.com/xxxsen/imtahan-notifier/internal/pkg/errors"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
)

type EnqueueRequest struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// EnqueueService queues notifications for the dispatcher to pick up.
type EnqueueService struct {
	outbox   *repo.OutboxRepo
	profiles *repo.ProfileRepo
}

func NewEnqueueService(outbox *repo.OutboxRepo, profiles *repo.ProfileRepo) *EnqueueService {
	return &EnqueueService{outbox: outbox, profiles: profiles}
}

func (s *EnqueueService) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return "", appErr.ErrUserIDRequired
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if appErr.IsNotFound(err) || appErr.IsInvalid(err) {
			return "", appErr.ErrUserNotFound
		}
		return "", fmt.Errorf("load profile: %w", err)
	}
	if profile.DeviceToken == "" {
		return "", appErr.ErrNoToken
	}
	rec := &model.OutboxRecord{
		ID:          newID(),
		RecipientID: userID,
		DeviceToken: profile.DeviceToken,
		Title:       req.Title,
		Body:        req.Body,
		Data:        req.Data,
	}
	if err := s.outbox.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("create outbox record: %w", err)
	}
	logutil.GetLogger(ctx).Info("notification queued", zap.String("notification_id", rec.ID), zap.String("user_id", userID))
	return rec.ID, nil
}
