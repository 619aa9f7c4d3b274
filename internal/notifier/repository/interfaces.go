package repository

import (
	"context"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
)

type PostRepository interface {
	SaveForum(ctx context.Context, forum *models.Forum) error
	FindForumByID(ctx context.Context, id int64) (*models.Forum, error)
	FindForumIDsByCourse(ctx context.Context, courseID int64) ([]int64, error)

	SaveDiscussion(ctx context.Context, discussion *models.Discussion) error
	FindDiscussionByID(ctx context.Context, id int64) (*models.Discussion, error)
	DeleteDiscussion(ctx context.Context, id int64) error

	SavePost(ctx context.Context, post *models.Post) error
	FindPostByID(ctx context.Context, id int64) (*models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	HasUserPosted(ctx context.Context, discussionID, userID int64) (bool, error)

	// FindPendingPosts возвращает неразосланные посты, созданные в окне
	// [windowStart, windowEnd), а также посты с флагом немедленной
	// отправки, в порядке возрастания времени изменения.
	FindPendingPosts(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.Post, error)

	// MarkPostsMailed переводит посты из pending в заданный статус и
	// возвращает идентификаторы реально переведённых постов. Пост,
	// уже покинувший статус pending, повторно не переводится.
	MarkPostsMailed(ctx context.Context, postIDs []int64, status models.MailStatus) ([]int64, error)

	// RefreshDiscussionLastPost пересчитывает денормализованные поля
	// последнего поста обсуждения после добавления или удаления поста.
	RefreshDiscussionLastPost(ctx context.Context, discussionID int64) error
}

type ReadRecordRepository interface {
	Upsert(ctx context.Context, record *models.ReadRecord) error
	Find(ctx context.Context, userID, postID int64) (*models.ReadRecord, error)

	// FindReadPostIDs возвращает подмножество postIDs, для которых у
	// пользователя уже есть отметка о прочтении.
	FindReadPostIDs(ctx context.Context, userID int64, postIDs []int64) ([]int64, error)

	TouchLastRead(ctx context.Context, userID int64, postIDs []int64, readAt time.Time) error

	// InsertForPosts создаёт отметки для постов, которые новее cutoff и
	// принадлежат форумам, отслеживаемым для пользователя с учётом
	// различия принудительного и опционального режимов.
	InsertForPosts(ctx context.Context, userID int64, postIDs []int64, cutoff, readAt time.Time, trackPref, allowForced bool) error

	UnreadPostIDsInDiscussion(ctx context.Context, userID, discussionID int64, cutoff time.Time) ([]int64, error)
	UnreadPostIDsInForum(ctx context.Context, userID, forumID int64, cutoff time.Time, groupID *int64) ([]int64, error)

	CountUnreadInDiscussion(ctx context.Context, userID, discussionID int64, cutoff, now time.Time) (int, error)
	CountUnreadInForum(ctx context.Context, userID, forumID int64, cutoff, now time.Time, groupIDs []int64) (int, error)
	UnreadCountsByCourse(ctx context.Context, userID, courseID int64, cutoff, now time.Time) (map[int64]int, error)

	Delete(ctx context.Context, filter models.ReadRecordFilter) (int64, error)

	// OldestTrackedPostModified возвращает минимальное время изменения
	// поста среди существующих отметок; ограничивает диапазон очистки.
	OldestTrackedPostModified(ctx context.Context) (time.Time, error)
	DeleteStale(ctx context.Context, lowerBound, cutoff time.Time) (int64, error)
}

type SubscriptionRepository interface {
	Subscribe(ctx context.Context, userID, forumID int64) error
	Unsubscribe(ctx context.Context, userID, forumID int64) error
	IsSubscribed(ctx context.Context, userID, forumID int64) (bool, error)
	SubscriberIDs(ctx context.Context, forumID int64) ([]int64, error)

	SetDigestPreference(ctx context.Context, userID, forumID int64, mode models.DigestMode) error
	GetDigestPreference(ctx context.Context, userID, forumID int64) (models.DigestMode, error)
	DeleteDigestPreference(ctx context.Context, userID, forumID int64) error

	AddTrackingOverride(ctx context.Context, userID, forumID int64) error
	RemoveTrackingOverride(ctx context.Context, userID, forumID int64) error
	HasTrackingOverride(ctx context.Context, userID, forumID int64) (bool, error)
}

type DigestQueueRepository interface {
	Enqueue(ctx context.Context, entry *models.DigestQueueEntry) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	UserIDsWithEntries(ctx context.Context) ([]int64, error)

	// FindByUser возвращает записи пользователя в порядке постановки
	// в очередь (по возрастанию идентификатора записи).
	FindByUser(ctx context.Context, userID int64) ([]*models.DigestQueueEntry, error)
	DeleteByUser(ctx context.Context, userID int64) error

	LastDigestRun(ctx context.Context) (time.Time, error)
	SetLastDigestRun(ctx context.Context, runAt time.Time) error
}
