package service

import (
	"context"
	"fmt"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository"
)

// TrackingService отвечает на два вопроса: может ли пользователь в принципе
// отслеживать форум и отслеживает ли он его фактически. Решение зависит от
// сайтовых настроек, режима форума и персональных предпочтений.
type TrackingService struct {
	subscriptionRepo repository.SubscriptionRepository
	readRepo         repository.ReadRecordRepository
	config           *config.Config
}

func NewTrackingService(
	subscriptionRepo repository.SubscriptionRepository,
	readRepo repository.ReadRecordRepository,
	config *config.Config,
) *TrackingService {
	return &TrackingService{
		subscriptionRepo: subscriptionRepo,
		readRepo:         readRepo,
		config:           config,
	}
}

// IsTrackable сообщает, доступно ли пользователю отслеживание форума.
// При forum == nil вопрос ставится «хоть о каком-нибудь форуме»:
// достаточно сайтового разрешения и либо принудительного режима,
// либо персональной настройки.
func (s *TrackingService) IsTrackable(forum *models.Forum, user *models.User) bool {
	if !s.config.TrackingEnabled || user.Guest {
		return false
	}

	if forum == nil {
		return s.config.AllowForcedReading || user.TrackForums
	}

	forced := forum.TrackingMode == models.TrackingForced
	optional := forum.TrackingMode == models.TrackingOptional

	if s.config.AllowForcedReading {
		return forced || (optional && user.TrackForums)
	}

	// Без сайтового разрешения принудительный режим низводится до
	// опционального и подчиняется персональной настройке.
	return (forced || optional) && user.TrackForums
}

// IsTracked сообщает, отслеживает ли пользователь форум фактически.
// Принудительный режим при сайтовом разрешении игнорирует индивидуальные
// отключения; в остальных случаях отслеживание действует, пока пользователь
// его не выключил.
func (s *TrackingService) IsTracked(ctx context.Context, forum *models.Forum, user *models.User) (bool, error) {
	if !s.IsTrackable(forum, user) {
		return false, nil
	}

	if forum.TrackingMode == models.TrackingForced && s.config.AllowForcedReading {
		return true, nil
	}

	disabled, err := s.subscriptionRepo.HasTrackingOverride(ctx, user.ID, forum.ID)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке отключения отслеживания: %w", err)
	}

	return !disabled, nil
}

// StartTracking включает отслеживание, убирая индивидуальное отключение.
func (s *TrackingService) StartTracking(ctx context.Context, userID, forumID int64) error {
	if err := s.subscriptionRepo.RemoveTrackingOverride(ctx, userID, forumID); err != nil {
		return fmt.Errorf("ошибка при включении отслеживания: %w", err)
	}

	return nil
}

// StopTracking выключает отслеживание записью индивидуального отключения.
// Накопленные отметки о прочтении форума при этом удаляются.
func (s *TrackingService) StopTracking(ctx context.Context, userID, forumID int64) error {
	if err := s.subscriptionRepo.AddTrackingOverride(ctx, userID, forumID); err != nil {
		return fmt.Errorf("ошибка при выключении отслеживания: %w", err)
	}

	if _, err := s.readRepo.Delete(ctx, models.ReadRecordFilter{UserID: userID, ForumID: forumID}); err != nil {
		return fmt.Errorf("ошибка при удалении отметок о прочтении: %w", err)
	}

	return nil
}
