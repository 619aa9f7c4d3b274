package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/infrastructure/repositories/memory"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readConfig() *config.Config {
	return &config.Config{
		TrackingEnabled:    true,
		AllowForcedReading: true,
		OldPostDays:        14,
		DatabaseBatchSize:  200,
	}
}

type forumFixture struct {
	postRepo *memory.PostRepository
	readRepo *memory.ReadRecordRepository
	forum    *models.Forum
}

// newForumFixture создаёт форум с одним обсуждением и возвращает
// репозитории с идентификатором обсуждения.
func newForumFixture(t *testing.T, mode models.TrackingMode) (*forumFixture, *models.Discussion) {
	t.Helper()

	ctx := context.Background()
	postRepo := memory.NewPostRepository()
	readRepo := memory.NewReadRecordRepository(postRepo)

	forum := &models.Forum{CourseID: 10, Name: "Общий форум", TrackingMode: mode}
	require.NoError(t, postRepo.SaveForum(ctx, forum))

	discussion := &models.Discussion{ForumID: forum.ID, Name: "Вопросы по курсу", GroupID: models.GroupAll}
	require.NoError(t, postRepo.SaveDiscussion(ctx, discussion))

	return &forumFixture{postRepo: postRepo, readRepo: readRepo, forum: forum}, discussion
}

func (f *forumFixture) addPost(t *testing.T, discussionID int64, modified time.Time) *models.Post {
	t.Helper()

	post := &models.Post{
		DiscussionID: discussionID,
		AuthorID:     99,
		Subject:      "Тема поста",
		Body:         "Текст поста",
		Created:      modified,
		Modified:     modified,
	}
	require.NoError(t, f.postRepo.SavePost(context.Background(), post))

	return post
}

// noopTransactor выполняет функцию без транзакции: репозитории в памяти
// не различают транзакционный и обычный контекст.
type noopTransactor struct{}

func (noopTransactor) WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error {
	return txFunc(ctx)
}

func newReadService(f *forumFixture, cfg *config.Config) *service.ReadService {
	return service.NewReadService(f.postRepo, f.readRepo, noopTransactor{}, nil, cfg, testLogger())
}

func TestMarkRead_CreatesRecord(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingOptional)
	post := fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour))

	svc := newReadService(fixture, readConfig())
	user := &models.User{ID: 1, TrackForums: true}

	// Act
	err := svc.MarkRead(ctx, user, post.ID)

	// Assert
	require.NoError(t, err)

	read, err := svc.IsRead(ctx, user, post)
	require.NoError(t, err)
	assert.True(t, read)
}

func TestMarkRead_StalePostIsNoop(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingOptional)
	stale := fixture.addPost(t, discussion.ID, time.Now().AddDate(0, 0, -30))

	svc := newReadService(fixture, readConfig())
	user := &models.User{ID: 1, TrackForums: true}

	// Act
	err := svc.MarkRead(ctx, user, stale.ID)

	// Assert
	require.NoError(t, err)

	_, err = fixture.readRepo.Find(ctx, user.ID, stale.ID)
	assert.Error(t, err, "отметка для устаревшего поста не создаётся")

	read, err := svc.IsRead(ctx, user, stale)
	require.NoError(t, err)
	assert.True(t, read, "устаревший пост считается прочитанным")
}

func TestIsRead_UnreadPost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingOptional)
	post := fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour))

	svc := newReadService(fixture, readConfig())

	read, err := svc.IsRead(ctx, &models.User{ID: 1}, post)
	require.NoError(t, err)
	assert.False(t, read)
}

func TestMarkManyRead_MixesExistingAndNew(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingOptional)

	first := fixture.addPost(t, discussion.ID, time.Now().Add(-2*time.Hour))
	second := fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour))
	stale := fixture.addPost(t, discussion.ID, time.Now().AddDate(0, 0, -30))

	svc := newReadService(fixture, readConfig())
	user := &models.User{ID: 1, TrackForums: true}

	require.NoError(t, svc.MarkRead(ctx, user, first.ID))

	firstRecord, err := fixture.readRepo.Find(ctx, user.ID, first.ID)
	require.NoError(t, err)

	// Act
	err = svc.MarkManyRead(ctx, user, []int64{first.ID, second.ID, stale.ID})

	// Assert
	require.NoError(t, err)

	touched, err := fixture.readRepo.Find(ctx, user.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, firstRecord.FirstRead, touched.FirstRead, "первое прочтение не перезаписывается")
	assert.False(t, touched.LastRead.Before(firstRecord.LastRead))

	_, err = fixture.readRepo.Find(ctx, user.ID, second.ID)
	assert.NoError(t, err)

	_, err = fixture.readRepo.Find(ctx, user.ID, stale.ID)
	assert.Error(t, err, "отметка для устаревшего поста не создаётся")
}

func TestMarkManyRead_SkipsUntrackedForum(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingOptional)
	post := fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour))

	svc := newReadService(fixture, readConfig())
	user := &models.User{ID: 1, TrackForums: false}

	// Act
	err := svc.MarkManyRead(ctx, user, []int64{post.ID})

	// Assert
	require.NoError(t, err)

	_, err = fixture.readRepo.Find(ctx, user.ID, post.ID)
	assert.Error(t, err, "опциональный форум без персональной настройки не отслеживается")
}

func TestMarkDiscussionRead(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingForced)

	posts := []*models.Post{
		fixture.addPost(t, discussion.ID, time.Now().Add(-3*time.Hour)),
		fixture.addPost(t, discussion.ID, time.Now().Add(-2*time.Hour)),
		fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour)),
	}

	svc := newReadService(fixture, readConfig())
	user := &models.User{ID: 1}

	// Act
	err := svc.MarkDiscussionRead(ctx, user, discussion.ID)

	// Assert
	require.NoError(t, err)

	for _, post := range posts {
		read, err := svc.IsRead(ctx, user, post)
		require.NoError(t, err)
		assert.True(t, read, "пост %d должен быть прочитан", post.ID)
	}
}

func TestMarkForumRead_GroupFilter(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, general := newForumFixture(t, models.TrackingForced)

	groupDiscussion := &models.Discussion{ForumID: fixture.forum.ID, Name: "Группа A", GroupID: 5}
	require.NoError(t, fixture.postRepo.SaveDiscussion(ctx, groupDiscussion))

	otherDiscussion := &models.Discussion{ForumID: fixture.forum.ID, Name: "Группа B", GroupID: 6}
	require.NoError(t, fixture.postRepo.SaveDiscussion(ctx, otherDiscussion))

	generalPost := fixture.addPost(t, general.ID, time.Now().Add(-time.Hour))
	groupPost := fixture.addPost(t, groupDiscussion.ID, time.Now().Add(-time.Hour))
	otherPost := fixture.addPost(t, otherDiscussion.ID, time.Now().Add(-time.Hour))

	svc := newReadService(fixture, readConfig())
	user := &models.User{ID: 1}
	groupID := int64(5)

	// Act
	err := svc.MarkForumRead(ctx, user, fixture.forum.ID, &groupID)

	// Assert
	require.NoError(t, err)

	read, err := svc.IsRead(ctx, user, generalPost)
	require.NoError(t, err)
	assert.True(t, read, "общее обсуждение входит в групповой фильтр")

	read, err = svc.IsRead(ctx, user, groupPost)
	require.NoError(t, err)
	assert.True(t, read)

	read, err = svc.IsRead(ctx, user, otherPost)
	require.NoError(t, err)
	assert.False(t, read, "обсуждение чужой группы не затрагивается")
}

func TestDeleteReadRecords_RequiresFilter(t *testing.T) {
	t.Parallel()

	fixture, _ := newForumFixture(t, models.TrackingOptional)
	svc := newReadService(fixture, readConfig())

	_, err := svc.DeleteReadRecords(context.Background(), models.ReadRecordFilter{})
	assert.Error(t, err)
}

func TestPruneStale(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingForced)

	fresh := fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour))
	aging := fixture.addPost(t, discussion.ID, time.Now().AddDate(0, 0, -10))

	svc := newReadService(fixture, readConfig())
	user := &models.User{ID: 1}

	require.NoError(t, svc.MarkManyRead(ctx, user, []int64{fresh.ID, aging.ID}))

	// Пост уходит за порог устаревания уже после прочтения.
	aging.Modified = time.Now().AddDate(0, 0, -30)
	require.NoError(t, fixture.postRepo.SavePost(ctx, aging))

	// Act
	pruned, err := svc.PruneStale(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	_, err = fixture.readRepo.Find(ctx, user.ID, aging.ID)
	assert.Error(t, err)

	_, err = fixture.readRepo.Find(ctx, user.ID, fresh.ID)
	assert.NoError(t, err)
}
