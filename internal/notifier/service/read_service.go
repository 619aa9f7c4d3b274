package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/common/metrics"
	"github.com/central-university-dev/go-forum-notify/internal/config"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/cache"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository"
)

type Transactor interface {
	WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error
}

// ReadService управляет отметками о прочтении. Посты старше порога устаревания
// считаются прочитанными без отметки, поэтому отметки для них не создаются.
type ReadService struct {
	postRepo    repository.PostRepository
	readRepo    repository.ReadRecordRepository
	txManager   Transactor
	unreadCache cache.UnreadCache
	config      *config.Config
	logger      *slog.Logger
}

func NewReadService(
	postRepo repository.PostRepository,
	readRepo repository.ReadRecordRepository,
	txManager Transactor,
	unreadCache cache.UnreadCache,
	config *config.Config,
	logger *slog.Logger,
) *ReadService {
	return &ReadService{
		postRepo:    postRepo,
		readRepo:    readRepo,
		txManager:   txManager,
		unreadCache: unreadCache,
		config:      config,
		logger:      logger,
	}
}

// MarkRead помечает пост прочитанным. Для устаревших постов операция
// ничего не делает и завершается успешно.
func (s *ReadService) MarkRead(ctx context.Context, user *models.User, postID int64) error {
	now := time.Now()

	post, err := s.postRepo.FindPostByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("ошибка при получении поста: %w", err)
	}

	if post.Modified.Before(s.config.OldPostCutoff(now)) {
		return nil
	}

	discussion, err := s.postRepo.FindDiscussionByID(ctx, post.DiscussionID)
	if err != nil {
		return fmt.Errorf("ошибка при получении обсуждения: %w", err)
	}

	record := &models.ReadRecord{
		UserID:       user.ID,
		PostID:       post.ID,
		DiscussionID: discussion.ID,
		ForumID:      discussion.ForumID,
		FirstRead:    now,
		LastRead:     now,
	}

	if err := s.readRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("ошибка при сохранении отметки о прочтении: %w", err)
	}

	s.invalidateCache(ctx, user.ID)

	return nil
}

// MarkManyRead помечает набор постов прочитанными пакетами. Существующие
// отметки получают обновлённое время последнего чтения, для остальных
// отметки создаются с проверкой отслеживаемости и устаревания на стороне
// хранилища.
func (s *ReadService) MarkManyRead(ctx context.Context, user *models.User, postIDs []int64) error {
	if len(postIDs) == 0 {
		return nil
	}

	now := time.Now()
	cutoff := s.config.OldPostCutoff(now)

	batchSize := s.config.DatabaseBatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	for start := 0; start < len(postIDs); start += batchSize {
		end := start + batchSize
		if end > len(postIDs) {
			end = len(postIDs)
		}

		chunk := postIDs[start:end]

		err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
			readIDs, err := s.readRepo.FindReadPostIDs(ctx, user.ID, chunk)
			if err != nil {
				return fmt.Errorf("ошибка при поиске существующих отметок: %w", err)
			}

			if len(readIDs) > 0 {
				if err := s.readRepo.TouchLastRead(ctx, user.ID, readIDs, now); err != nil {
					return fmt.Errorf("ошибка при обновлении отметок: %w", err)
				}
			}

			unreadIDs := subtractIDs(chunk, readIDs)
			if len(unreadIDs) > 0 {
				err := s.readRepo.InsertForPosts(ctx, user.ID, unreadIDs, cutoff, now,
					user.TrackForums, s.config.AllowForcedReading)
				if err != nil {
					return fmt.Errorf("ошибка при создании отметок: %w", err)
				}
			}

			return nil
		})
		if err != nil {
			return err
		}
	}

	s.invalidateCache(ctx, user.ID)

	return nil
}

// MarkDiscussionRead помечает прочитанными все непрочитанные посты обсуждения.
func (s *ReadService) MarkDiscussionRead(ctx context.Context, user *models.User, discussionID int64) error {
	cutoff := s.config.OldPostCutoff(time.Now())

	postIDs, err := s.readRepo.UnreadPostIDsInDiscussion(ctx, user.ID, discussionID, cutoff)
	if err != nil {
		return fmt.Errorf("ошибка при поиске непрочитанных постов обсуждения: %w", err)
	}

	return s.MarkManyRead(ctx, user, postIDs)
}

// MarkForumRead помечает прочитанными все непрочитанные посты форума.
// При groupID != nil охватываются только обсуждения группы и общие обсуждения.
func (s *ReadService) MarkForumRead(ctx context.Context, user *models.User, forumID int64, groupID *int64) error {
	cutoff := s.config.OldPostCutoff(time.Now())

	postIDs, err := s.readRepo.UnreadPostIDsInForum(ctx, user.ID, forumID, cutoff, groupID)
	if err != nil {
		return fmt.Errorf("ошибка при поиске непрочитанных постов форума: %w", err)
	}

	return s.MarkManyRead(ctx, user, postIDs)
}

// IsRead сообщает, прочитан ли пост пользователем. Устаревшие посты
// считаются прочитанными.
func (s *ReadService) IsRead(ctx context.Context, user *models.User, post *models.Post) (bool, error) {
	if post.Modified.Before(s.config.OldPostCutoff(time.Now())) {
		return true, nil
	}

	_, err := s.readRepo.Find(ctx, user.ID, post.ID)
	if err != nil {
		if errors.Is(err, &customerrors.ErrReadRecordNotFound{}) {
			return false, nil
		}

		return false, fmt.Errorf("ошибка при поиске отметки о прочтении: %w", err)
	}

	return true, nil
}

// DeleteReadRecords удаляет отметки по фильтру. Используется при удалении
// постов, обсуждений и форумов.
func (s *ReadService) DeleteReadRecords(ctx context.Context, filter models.ReadRecordFilter) (int64, error) {
	deleted, err := s.readRepo.Delete(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("ошибка при удалении отметок о прочтении: %w", err)
	}

	return deleted, nil
}

// PruneStale удаляет отметки постов, ушедших за порог устаревания.
// Нижняя граница диапазона берётся из самих отметок, чтобы не сканировать
// всю таблицу постов.
func (s *ReadService) PruneStale(ctx context.Context) (int64, error) {
	now := time.Now()
	cutoff := s.config.OldPostCutoff(now)

	oldest, err := s.readRepo.OldestTrackedPostModified(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка при поиске нижней границы очистки: %w", err)
	}

	if oldest.IsZero() || !oldest.Before(cutoff) {
		return 0, nil
	}

	pruned, err := s.readRepo.DeleteStale(ctx, oldest, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ошибка при очистке устаревших отметок: %w", err)
	}

	if pruned > 0 {
		metrics.RecordReadRecordsPruned(pruned)

		s.logger.Info("Очищены устаревшие отметки о прочтении",
			"pruned", pruned,
			"cutoff", cutoff,
		)
	}

	return pruned, nil
}

func (s *ReadService) invalidateCache(ctx context.Context, userID int64) {
	if s.unreadCache == nil {
		return
	}

	if err := s.unreadCache.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("Ошибка при сбросе кэша непрочитанного",
			"error", err,
			"userID", userID,
		)
	}
}

func subtractIDs(ids, exclude []int64) []int64 {
	if len(exclude) == 0 {
		return ids
	}

	excluded := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	result := make([]int64, 0, len(ids))

	for _, id := range ids {
		if _, ok := excluded[id]; !ok {
			result = append(result, id)
		}
	}

	return result
}
