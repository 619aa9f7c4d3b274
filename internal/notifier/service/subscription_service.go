package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository"
)

// SubscriptionService управляет подписками на форумы и режимами доставки
// дайджестов. Принудительная подписка не хранится в базе: подписчиками
// считаются все записанные на курс, кроме гостей.
type SubscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	postRepo         repository.PostRepository
	core             clients.CoreClient
	config           *config.Config
	logger           *slog.Logger
}

func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	postRepo repository.PostRepository,
	core clients.CoreClient,
	config *config.Config,
	logger *slog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		postRepo:         postRepo,
		core:             core,
		config:           config,
		logger:           logger,
	}
}

func (s *SubscriptionService) Subscribe(ctx context.Context, user *models.User, forum *models.Forum) error {
	if forum.SubscriptionMode == models.SubscriptionDisallowed {
		return &customerrors.ErrSubscriptionDisallowed{ForumID: forum.ID}
	}

	if err := s.subscriptionRepo.Subscribe(ctx, user.ID, forum.ID); err != nil {
		return fmt.Errorf("ошибка при оформлении подписки: %w", err)
	}

	return nil
}

// Unsubscribe снимает подписку вместе с индивидуальным режимом дайджеста:
// новая подписка начинается с режима по умолчанию.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, user *models.User, forum *models.Forum) error {
	if err := s.subscriptionRepo.Unsubscribe(ctx, user.ID, forum.ID); err != nil {
		return fmt.Errorf("ошибка при отмене подписки: %w", err)
	}

	return nil
}

// IsSubscribed сообщает, подписан ли пользователь на форум. Принудительная
// подписка распространяется на обладателей соответствующего права; остальные
// проверяются по явным записям о подписке.
func (s *SubscriptionService) IsSubscribed(ctx context.Context, user *models.User, forum *models.Forum) (bool, error) {
	if user.Guest {
		return false, nil
	}

	if forum.SubscriptionMode == models.SubscriptionForced {
		module, err := s.core.GetCourseModule(ctx, forum.ID)
		if err != nil {
			return false, fmt.Errorf("ошибка при получении модуля форума: %w", err)
		}

		forced, err := s.core.HasCapability(ctx, user.ID, module.ContextID, CapForceSubscribe)
		if err != nil {
			return false, fmt.Errorf("ошибка при проверке права принудительной подписки: %w", err)
		}

		if forced {
			return true, nil
		}
	}

	subscribed, err := s.subscriptionRepo.IsSubscribed(ctx, user.ID, forum.ID)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке подписки: %w", err)
	}

	return subscribed, nil
}

// Subscribers возвращает получателей уведомлений форума. Принудительная
// подписка охватывает всех записанных на курс; гости исключаются всегда.
func (s *SubscriptionService) Subscribers(ctx context.Context, forum *models.Forum) ([]*models.User, error) {
	if forum.SubscriptionMode == models.SubscriptionForced {
		enrolled, err := s.core.EnrolledUsers(ctx, forum.CourseID)
		if err != nil {
			return nil, fmt.Errorf("ошибка при получении записанных на курс: %w", err)
		}

		return withoutGuests(enrolled), nil
	}

	userIDs, err := s.subscriptionRepo.SubscriberIDs(ctx, forum.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении подписчиков: %w", err)
	}

	users := make([]*models.User, 0, len(userIDs))

	for _, userID := range userIDs {
		user, err := s.core.GetUser(ctx, userID)
		if err != nil {
			s.logger.Warn("Подписчик не найден в core API",
				"error", err,
				"userID", userID,
			)

			continue
		}

		users = append(users, user)
	}

	return withoutGuests(users), nil
}

// SeedInitialSubscriptions оформляет подписки всем записанным на курс.
// Вызывается при создании форума в режиме начальной подписки; дальше
// каждый волен отписаться.
func (s *SubscriptionService) SeedInitialSubscriptions(ctx context.Context, forum *models.Forum) error {
	if forum.SubscriptionMode != models.SubscriptionInitial {
		return nil
	}

	enrolled, err := s.core.EnrolledUsers(ctx, forum.CourseID)
	if err != nil {
		return fmt.Errorf("ошибка при получении записанных на курс: %w", err)
	}

	for _, user := range withoutGuests(enrolled) {
		if err := s.subscriptionRepo.Subscribe(ctx, user.ID, forum.ID); err != nil {
			return fmt.Errorf("ошибка при начальной подписке пользователя %d: %w", user.ID, err)
		}
	}

	s.logger.Info("Оформлены начальные подписки",
		"forumID", forum.ID,
		"totalUsers", len(enrolled),
	)

	return nil
}

func (s *SubscriptionService) SetDigestPreference(ctx context.Context, userID, forumID int64, mode models.DigestMode) error {
	if !mode.Valid() {
		return &customerrors.ErrInvalidDigestMode{Mode: int(mode)}
	}

	if err := s.subscriptionRepo.SetDigestPreference(ctx, userID, forumID, mode); err != nil {
		return fmt.Errorf("ошибка при сохранении режима дайджеста: %w", err)
	}

	return nil
}

func (s *SubscriptionService) GetDigestPreference(ctx context.Context, userID, forumID int64) (models.DigestMode, error) {
	mode, err := s.subscriptionRepo.GetDigestPreference(ctx, userID, forumID)
	if err != nil {
		return models.DigestUseDefault, fmt.Errorf("ошибка при получении режима дайджеста: %w", err)
	}

	return mode, nil
}

// ResolveDigestMode возвращает действующий режим доставки подписчика:
// индивидуальная настройка форума либо настройка пользователя по умолчанию.
func (s *SubscriptionService) ResolveDigestMode(ctx context.Context, user *models.User, forumID int64) (models.DigestMode, error) {
	mode, err := s.subscriptionRepo.GetDigestPreference(ctx, user.ID, forumID)
	if err != nil {
		return models.DigestUseDefault, fmt.Errorf("ошибка при получении режима дайджеста: %w", err)
	}

	if mode == models.DigestUseDefault {
		return user.DefaultDigest, nil
	}

	return mode, nil
}

func withoutGuests(users []*models.User) []*models.User {
	result := make([]*models.User, 0, len(users))

	for _, user := range users {
		if !user.Guest {
			result = append(result, user)
		}
	}

	return result
}
