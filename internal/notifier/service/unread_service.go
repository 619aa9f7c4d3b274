package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/cache"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository"
)

// UnreadService считает непрочитанные посты с учётом устаревания,
// временных окон обсуждений и групповых ограничений модуля. Форумы,
// которые пользователь не отслеживает, всегда дают нулевой счётчик.
type UnreadService struct {
	postRepo    repository.PostRepository
	readRepo    repository.ReadRecordRepository
	tracking    *TrackingService
	core        clients.CoreClient
	unreadCache cache.UnreadCache
	config      *config.Config
	logger      *slog.Logger
}

func NewUnreadService(
	postRepo repository.PostRepository,
	readRepo repository.ReadRecordRepository,
	tracking *TrackingService,
	core clients.CoreClient,
	unreadCache cache.UnreadCache,
	config *config.Config,
	logger *slog.Logger,
) *UnreadService {
	return &UnreadService{
		postRepo:    postRepo,
		readRepo:    readRepo,
		tracking:    tracking,
		core:        core,
		unreadCache: unreadCache,
		config:      config,
		logger:      logger,
	}
}

// CountUnreadInDiscussion возвращает число непрочитанных постов обсуждения.
func (s *UnreadService) CountUnreadInDiscussion(ctx context.Context, user *models.User, discussionID int64) (int, error) {
	discussion, err := s.postRepo.FindDiscussionByID(ctx, discussionID)
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении обсуждения: %w", err)
	}

	forum, err := s.postRepo.FindForumByID(ctx, discussion.ForumID)
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении форума: %w", err)
	}

	tracked, err := s.tracking.IsTracked(ctx, forum, user)
	if err != nil {
		return 0, err
	}

	if !tracked {
		return 0, nil
	}

	now := time.Now()

	count, err := s.readRepo.CountUnreadInDiscussion(ctx, user.ID, discussionID, s.config.OldPostCutoff(now), now)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте непрочитанного в обсуждении: %w", err)
	}

	return count, nil
}

// CountUnreadInForum возвращает число непрочитанных постов форума.
// В раздельном групповом режиме учитываются только обсуждения групп
// пользователя и общие обсуждения, если у пользователя нет права видеть
// все группы.
func (s *UnreadService) CountUnreadInForum(ctx context.Context, user *models.User, forum *models.Forum) (int, error) {
	tracked, err := s.tracking.IsTracked(ctx, forum, user)
	if err != nil {
		return 0, err
	}

	if !tracked {
		return 0, nil
	}

	now := time.Now()

	groupIDs, err := s.visibleGroupIDs(ctx, user, forum)
	if err != nil {
		return 0, err
	}

	count, err := s.readRepo.CountUnreadInForum(ctx, user.ID, forum.ID, s.config.OldPostCutoff(now), now, groupIDs)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте непрочитанного в форуме: %w", err)
	}

	return count, nil
}

// UnreadMapForCourse возвращает карту «форум -> число непрочитанных» для
// всех форумов курса. Форумы в раздельном групповом режиме пересчитываются
// с групповым фильтром, остальные берутся из общего запроса.
func (s *UnreadService) UnreadMapForCourse(ctx context.Context, user *models.User, courseID int64) (map[int64]int, error) {
	if s.unreadCache != nil {
		cached, err := s.unreadCache.GetCourseMap(ctx, user.ID, courseID)
		if err != nil {
			s.logger.Warn("Ошибка при чтении кэша непрочитанного",
				"error", err,
				"userID", user.ID,
			)
		} else if cached != nil {
			return cached, nil
		}
	}

	now := time.Now()
	cutoff := s.config.OldPostCutoff(now)

	counts, err := s.readRepo.UnreadCountsByCourse(ctx, user.ID, courseID, cutoff, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка при подсчёте непрочитанного по курсу: %w", err)
	}

	for forumID := range counts {
		forum, err := s.postRepo.FindForumByID(ctx, forumID)
		if err != nil {
			return nil, fmt.Errorf("ошибка при получении форума: %w", err)
		}

		tracked, err := s.tracking.IsTracked(ctx, forum, user)
		if err != nil {
			return nil, err
		}

		if !tracked {
			delete(counts, forumID)
			continue
		}

		groupIDs, err := s.visibleGroupIDs(ctx, user, forum)
		if err != nil {
			return nil, err
		}

		if groupIDs == nil {
			continue
		}

		count, err := s.readRepo.CountUnreadInForum(ctx, user.ID, forumID, cutoff, now, groupIDs)
		if err != nil {
			return nil, fmt.Errorf("ошибка при подсчёте непрочитанного в форуме: %w", err)
		}

		counts[forumID] = count
	}

	if s.unreadCache != nil {
		if err := s.unreadCache.SetCourseMap(ctx, user.ID, courseID, counts); err != nil {
			s.logger.Warn("Ошибка при записи кэша непрочитанного",
				"error", err,
				"userID", user.ID,
			)
		}
	}

	return counts, nil
}

// visibleGroupIDs возвращает групповой фильтр для форума: nil означает
// отсутствие ограничений. Фильтр применяется только в раздельном режиме
// и только к пользователям без права видеть все группы.
func (s *UnreadService) visibleGroupIDs(ctx context.Context, user *models.User, forum *models.Forum) ([]int64, error) {
	module, err := s.core.GetCourseModule(ctx, forum.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении модуля курса: %w", err)
	}

	if module.GroupMode != models.GroupsSeparate {
		return nil, nil
	}

	allGroups, err := s.core.HasCapability(ctx, user.ID, module.ContextID, CapAccessAllGroups)
	if err != nil {
		return nil, fmt.Errorf("ошибка при проверке права на все группы: %w", err)
	}

	if allGroups {
		return nil, nil
	}

	groupIDs, err := s.core.UserGroupIDs(ctx, user.ID, forum.CourseID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении групп пользователя: %w", err)
	}

	return groupIDs, nil
}
