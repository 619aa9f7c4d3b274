package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.uber.org/multierr"

	"github.com/central-university-dev/go-forum-notify/internal/common/metrics"
	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/notify"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/render"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository"
)

// MailService — конвейер рассылки. Каждый прогон обрабатывает окно
// неразосланных постов и раз в сутки собирает дайджесты. Посты помечаются
// разосланными до отправки писем: при сбое уведомление теряется, но
// никогда не дублируется.
type MailService struct {
	postRepo      repository.PostRepository
	digestRepo    repository.DigestQueueRepository
	subscriptions *SubscriptionService
	readService   *ReadService
	core          clients.CoreClient
	notifier      notify.MailNotifier
	config        *config.Config
	logger        *slog.Logger
}

func NewMailService(
	postRepo repository.PostRepository,
	digestRepo repository.DigestQueueRepository,
	subscriptions *SubscriptionService,
	readService *ReadService,
	core clients.CoreClient,
	notifier notify.MailNotifier,
	config *config.Config,
	logger *slog.Logger,
) *MailService {
	return &MailService{
		postRepo:      postRepo,
		digestRepo:    digestRepo,
		subscriptions: subscriptions,
		readService:   readService,
		core:          core,
		notifier:      notifier,
		config:        config,
		logger:        logger,
	}
}

// Run выполняет один прогон конвейера: рассылку постов и, если подошло
// время, сборку дайджестов.
func (s *MailService) Run(ctx context.Context, now time.Time) error {
	start := time.Now()
	defer func() {
		metrics.MailRunDuration.Observe(time.Since(start).Seconds())
	}()

	runCache := NewRunCache(s.core)

	if err := s.mailPendingPosts(ctx, now, runCache); err != nil {
		return fmt.Errorf("ошибка при рассылке постов: %w", err)
	}

	if err := s.sendDigests(ctx, now, runCache); err != nil {
		return fmt.Errorf("ошибка при сборке дайджестов: %w", err)
	}

	return nil
}

// mailPendingPosts рассылает посты из окна рассылки. Нижняя граница окна
// отсекает посты, пропущенные дольше срока хранения; верхняя даёт автору
// время на правки до отправки.
func (s *MailService) mailPendingPosts(ctx context.Context, now time.Time, runCache *RunCache) error {
	windowEnd := now.Add(-s.config.MaxEditingTime)
	windowStart := windowEnd.Add(-s.config.MailWindow)

	pending, err := s.postRepo.FindPendingPosts(ctx, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("ошибка при поиске неразосланных постов: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	postIDs := make([]int64, 0, len(pending))
	for _, post := range pending {
		postIDs = append(postIDs, post.ID)
	}

	markedIDs, err := s.postRepo.MarkPostsMailed(ctx, postIDs, models.MailSent)
	if err != nil {
		return fmt.Errorf("ошибка при пометке постов разосланными: %w", err)
	}

	marked := make(map[int64]struct{}, len(markedIDs))
	for _, id := range markedIDs {
		marked[id] = struct{}{}
	}

	s.logger.Info("Начата рассылка постов",
		"pending", len(pending),
		"marked", len(markedIDs),
	)

	for _, post := range pending {
		if _, ok := marked[post.ID]; !ok {
			// Пост перехвачен параллельным прогоном.
			continue
		}

		if err := s.mailPost(ctx, now, post, runCache); err != nil {
			s.logger.Error("Ошибка при рассылке поста",
				"error", err,
				"postID", post.ID,
			)

			metrics.RecordPostMailed("error")
		} else {
			metrics.RecordPostMailed("success")
		}
	}

	return nil
}

// postContext — окружение поста, собранное один раз на пост.
type postContext struct {
	discussion *models.Discussion
	forum      *models.Forum
	course     *models.Course
	module     *models.CourseModule
	author     *models.User
	body       *models.RenderedBody
}

func (s *MailService) mailPost(ctx context.Context, now time.Time, post *models.Post, runCache *RunCache) error {
	pctx, err := s.loadPostContext(ctx, post, runCache)
	if err != nil {
		return err
	}

	subscribers, err := s.forumSubscribers(ctx, pctx.forum, runCache)
	if err != nil {
		return err
	}

	for _, user := range subscribers {
		if !user.Mailable() {
			continue
		}

		visible, err := s.postVisibleTo(ctx, post, pctx, user, runCache)
		if err != nil {
			s.logger.Error("Ошибка при проверке видимости поста",
				"error", err,
				"postID", post.ID,
				"userID", user.ID,
			)

			continue
		}

		if !visible {
			continue
		}

		mode, err := s.subscriptions.ResolveDigestMode(ctx, user, pctx.forum.ID)
		if err != nil {
			s.logger.Error("Ошибка при определении режима доставки",
				"error", err,
				"userID", user.ID,
			)

			continue
		}

		if mode != models.DigestNone {
			entry := &models.DigestQueueEntry{
				UserID:       user.ID,
				DiscussionID: post.DiscussionID,
				PostID:       post.ID,
				PostTime:     post.Created,
			}

			if err := s.digestRepo.Enqueue(ctx, entry); err != nil {
				s.logger.Error("Ошибка при постановке поста в очередь дайджеста",
					"error", err,
					"postID", post.ID,
					"userID", user.ID,
				)

				continue
			}

			metrics.RecordDigestEnqueued()

			continue
		}

		s.sendPostMail(ctx, post, pctx, user)
	}

	return nil
}

func (s *MailService) loadPostContext(ctx context.Context, post *models.Post, runCache *RunCache) (*postContext, error) {
	discussion, err := s.postRepo.FindDiscussionByID(ctx, post.DiscussionID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении обсуждения: %w", err)
	}

	forum, err := s.postRepo.FindForumByID(ctx, discussion.ForumID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении форума: %w", err)
	}

	course, err := runCache.GetCourse(ctx, forum.CourseID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении курса: %w", err)
	}

	module, err := runCache.GetCourseModule(ctx, forum.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении модуля курса: %w", err)
	}

	author, err := runCache.GetUser(ctx, post.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении автора поста: %w", err)
	}

	body, err := s.core.RenderPost(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при отрисовке поста: %w", err)
	}

	return &postContext{
		discussion: discussion,
		forum:      forum,
		course:     course,
		module:     module,
		author:     author,
		body:       body,
	}, nil
}

func (s *MailService) forumSubscribers(ctx context.Context, forum *models.Forum, runCache *RunCache) ([]*models.User, error) {
	if users, ok := runCache.Subscribers(forum.ID); ok {
		return users, nil
	}

	users, err := s.subscriptions.Subscribers(ctx, forum)
	if err != nil {
		return nil, err
	}

	runCache.PutSubscribers(forum.ID, users)

	return users, nil
}

// postVisibleTo проверяет групповое ограничение обсуждения и правило
// форума вопросов и ответов: ответы видят только уже ответившие.
func (s *MailService) postVisibleTo(ctx context.Context, post *models.Post, pctx *postContext, user *models.User, runCache *RunCache) (bool, error) {
	if pctx.module.GroupMode == models.GroupsSeparate && pctx.discussion.GroupID > 0 {
		allGroups, err := runCache.HasCapability(ctx, user.ID, pctx.module.ContextID, CapAccessAllGroups)
		if err != nil {
			return false, fmt.Errorf("ошибка при проверке права на все группы: %w", err)
		}

		if !allGroups {
			groupIDs, err := runCache.UserGroupIDs(ctx, user.ID, pctx.forum.CourseID)
			if err != nil {
				return false, fmt.Errorf("ошибка при получении групп пользователя: %w", err)
			}

			if !containsID(groupIDs, pctx.discussion.GroupID) {
				return false, nil
			}
		}
	}

	if pctx.forum.QAndA && !post.IsRoot() {
		posted, err := s.postRepo.HasUserPosted(ctx, post.DiscussionID, user.ID)
		if err != nil {
			return false, fmt.Errorf("ошибка при проверке участия в обсуждении: %w", err)
		}

		if !posted {
			allowed, err := runCache.HasCapability(ctx, user.ID, pctx.module.ContextID, CapViewQAndA)
			if err != nil {
				return false, fmt.Errorf("ошибка при проверке права на просмотр ответов: %w", err)
			}

			if !allowed {
				return false, nil
			}
		}
	}

	return true, nil
}

// sendPostMail отправляет немедленное письмо. Сбой доставки фиксируется
// и не повторяется: пост уже помечен разосланным.
func (s *MailService) sendPostMail(ctx context.Context, post *models.Post, pctx *postContext, user *models.User) {
	item := render.PostItem{
		Post:       post,
		Body:       pctx.body,
		AuthorName: pctx.author.FullName(),
	}

	message := &models.MailMessage{
		From:     s.config.MailFrom,
		FromName: s.config.MailFromName,
		To:       user.Email,
		ToName:   user.FullName(),
		Subject:  render.PostSubject(pctx.course.ShortName, pctx.discussion.Name),
		Text:     render.PostText(pctx.course.FullName, pctx.forum.Name, pctx.discussion.Name, item),
		HTML:     render.PostHTML(pctx.course.FullName, pctx.forum.Name, pctx.discussion.Name, item),
	}

	if err := s.notifier.SendMail(ctx, message); err != nil {
		s.logger.Error("Ошибка при доставке письма",
			"error", err,
			"postID", post.ID,
			"userID", user.ID,
		)

		metrics.RecordDeliveryFailure()

		return
	}

	if !user.MarksOwnRead {
		if err := s.readService.MarkRead(ctx, user, post.ID); err != nil {
			s.logger.Warn("Ошибка при пометке отправленного поста прочитанным",
				"error", err,
				"postID", post.ID,
				"userID", user.ID,
			)
		}
	}
}

// sendDigests собирает и отправляет дайджесты раз в сутки после
// настроенного часа. Записи очереди удаляются до отправки письма.
func (s *MailService) sendDigests(ctx context.Context, now time.Time, runCache *RunCache) error {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), s.config.DigestHour, 0, 0, 0, now.Location())

	if !now.After(cutoff) {
		return nil
	}

	lastRun, err := s.digestRepo.LastDigestRun(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при получении времени последней сборки: %w", err)
	}

	if !lastRun.Before(cutoff) {
		return nil
	}

	expired, err := s.digestRepo.DeleteOlderThan(ctx, now.Add(-s.config.QueueRetention))
	if err != nil {
		return fmt.Errorf("ошибка при очистке очереди дайджестов: %w", err)
	}

	if expired > 0 {
		s.logger.Warn("Удалены просроченные записи очереди дайджестов",
			"expired", expired,
		)
	}

	userIDs, err := s.digestRepo.UserIDsWithEntries(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при получении получателей дайджестов: %w", err)
	}

	s.logger.Info("Начата сборка дайджестов",
		"totalUsers", len(userIDs),
	)

	var digestErrs error

	for _, userID := range userIDs {
		if err := s.sendUserDigest(ctx, now, userID, runCache); err != nil {
			s.logger.Error("Ошибка при отправке дайджеста",
				"error", err,
				"userID", userID,
			)

			metrics.RecordDigestSent("error")

			digestErrs = multierr.Append(digestErrs, fmt.Errorf("пользователь %d: %w", userID, err))
		}
	}

	if err := s.digestRepo.SetLastDigestRun(ctx, now); err != nil {
		return fmt.Errorf("ошибка при сохранении времени сборки: %w", err)
	}

	return digestErrs
}

func (s *MailService) sendUserDigest(ctx context.Context, now time.Time, userID int64, runCache *RunCache) error {
	user, err := runCache.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("ошибка при получении пользователя: %w", err)
	}

	entries, err := s.digestRepo.FindByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("ошибка при чтении очереди дайджеста: %w", err)
	}

	if len(entries) == 0 {
		return nil
	}

	// Очередь опустошается до отправки: дайджест либо дойдёт, либо
	// пропадёт, но не задвоится.
	if err := s.digestRepo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("ошибка при опустошении очереди дайджеста: %w", err)
	}

	if !user.Mailable() {
		return nil
	}

	sections, postIDs, err := s.buildDigestSections(ctx, user, entries, runCache)
	if err != nil {
		return err
	}

	if len(sections) == 0 {
		return nil
	}

	message := &models.MailMessage{
		From:     s.config.MailFrom,
		FromName: s.config.MailFromName,
		To:       user.Email,
		ToName:   user.FullName(),
		Subject:  render.DigestSubject(now),
		Text:     render.DigestText(sections),
		HTML:     render.DigestHTML(sections),
	}

	if err := s.notifier.SendMail(ctx, message); err != nil {
		metrics.RecordDeliveryFailure()

		return fmt.Errorf("ошибка при доставке дайджеста: %w", err)
	}

	metrics.RecordDigestSent("success")

	if !user.MarksOwnRead {
		if err := s.readService.MarkManyRead(ctx, user, postIDs); err != nil {
			s.logger.Warn("Ошибка при пометке постов дайджеста прочитанными",
				"error", err,
				"userID", user.ID,
			)
		}
	}

	return nil
}

// buildDigestSections группирует записи очереди по обсуждениям в порядке
// первого появления, посты внутри секции идут по возрастанию идентификатора.
func (s *MailService) buildDigestSections(ctx context.Context, user *models.User, entries []*models.DigestQueueEntry, runCache *RunCache) ([]render.DigestSection, []int64, error) {
	discussionOrder := make([]int64, 0)
	byDiscussion := make(map[int64][]int64)

	for _, entry := range entries {
		if _, ok := byDiscussion[entry.DiscussionID]; !ok {
			discussionOrder = append(discussionOrder, entry.DiscussionID)
		}

		byDiscussion[entry.DiscussionID] = append(byDiscussion[entry.DiscussionID], entry.PostID)
	}

	sections := make([]render.DigestSection, 0, len(discussionOrder))
	sentPostIDs := make([]int64, 0, len(entries))

	for _, discussionID := range discussionOrder {
		discussion, err := s.postRepo.FindDiscussionByID(ctx, discussionID)
		if err != nil {
			s.logger.Warn("Обсуждение из очереди дайджеста не найдено",
				"error", err,
				"discussionID", discussionID,
			)

			continue
		}

		forum, err := s.postRepo.FindForumByID(ctx, discussion.ForumID)
		if err != nil {
			s.logger.Warn("Форум из очереди дайджеста не найден",
				"error", err,
				"forumID", discussion.ForumID,
			)

			continue
		}

		course, err := runCache.GetCourse(ctx, forum.CourseID)
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка при получении курса: %w", err)
		}

		mode, err := s.subscriptions.ResolveDigestMode(ctx, user, forum.ID)
		if err != nil {
			return nil, nil, err
		}

		subjectsOnly := mode == models.DigestSubjects

		postIDs := byDiscussion[discussionID]
		sort.Slice(postIDs, func(i, j int) bool { return postIDs[i] < postIDs[j] })

		items := make([]render.PostItem, 0, len(postIDs))

		for _, postID := range postIDs {
			post, err := s.postRepo.FindPostByID(ctx, postID)
			if err != nil {
				s.logger.Warn("Пост из очереди дайджеста не найден",
					"error", err,
					"postID", postID,
				)

				continue
			}

			author, err := runCache.GetUser(ctx, post.AuthorID)
			if err != nil {
				return nil, nil, fmt.Errorf("ошибка при получении автора поста: %w", err)
			}

			var body *models.RenderedBody

			if !subjectsOnly {
				body, err = s.core.RenderPost(ctx, post.ID)
				if err != nil {
					return nil, nil, fmt.Errorf("ошибка при отрисовке поста: %w", err)
				}
			}

			items = append(items, render.PostItem{
				Post:       post,
				Body:       body,
				AuthorName: author.FullName(),
			})

			sentPostIDs = append(sentPostIDs, post.ID)
		}

		if len(items) == 0 {
			continue
		}

		sections = append(sections, render.DigestSection{
			CourseName:     course.FullName,
			ForumName:      forum.Name,
			DiscussionName: discussion.Name,
			SubjectsOnly:   subjectsOnly,
			Posts:          items,
		})
	}

	return sections, sentPostIDs, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}
