package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/infrastructure/repositories/memory"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients/mocks"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUnreadService(f *forumFixture, core *mocks.CoreClient, cfg *config.Config) *service.UnreadService {
	tracking := service.NewTrackingService(memory.NewSubscriptionRepository(), f.readRepo, cfg)

	return service.NewUnreadService(f.postRepo, f.readRepo, tracking, core, nil, cfg, testLogger())
}

func TestCountUnreadInDiscussion(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingForced)

	read := fixture.addPost(t, discussion.ID, time.Now().Add(-2*time.Hour))
	fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour))
	fixture.addPost(t, discussion.ID, time.Now().AddDate(0, 0, -30))

	cfg := readConfig()
	readSvc := newReadService(fixture, cfg)
	user := &models.User{ID: 1}

	require.NoError(t, readSvc.MarkRead(ctx, user, read.ID))

	core := mocks.NewCoreClient(t)
	svc := newUnreadService(fixture, core, cfg)

	// Act
	count, err := svc.CountUnreadInDiscussion(ctx, user, discussion.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, count, "устаревший и прочитанный посты не считаются")
}

func TestCountUnreadInForum_SeparateGroups(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, general := newForumFixture(t, models.TrackingForced)

	groupDiscussion := &models.Discussion{ForumID: fixture.forum.ID, Name: "Группа A", GroupID: 5}
	require.NoError(t, fixture.postRepo.SaveDiscussion(ctx, groupDiscussion))

	otherDiscussion := &models.Discussion{ForumID: fixture.forum.ID, Name: "Группа B", GroupID: 6}
	require.NoError(t, fixture.postRepo.SaveDiscussion(ctx, otherDiscussion))

	fixture.addPost(t, general.ID, time.Now().Add(-time.Hour))
	fixture.addPost(t, groupDiscussion.ID, time.Now().Add(-time.Hour))
	fixture.addPost(t, otherDiscussion.ID, time.Now().Add(-time.Hour))

	cfg := readConfig()
	user := &models.User{ID: 1}

	core := mocks.NewCoreClient(t)
	core.On("GetCourseModule", mock.Anything, fixture.forum.ID).
		Return(&models.CourseModule{ID: 100, ForumID: fixture.forum.ID, ContextID: 200, GroupMode: models.GroupsSeparate}, nil)
	core.On("HasCapability", mock.Anything, user.ID, int64(200), service.CapAccessAllGroups).Return(false, nil)
	core.On("UserGroupIDs", mock.Anything, user.ID, fixture.forum.CourseID).Return([]int64{5}, nil)

	svc := newUnreadService(fixture, core, cfg)

	// Act
	count, err := svc.CountUnreadInForum(ctx, user, fixture.forum)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, count, "обсуждение чужой группы не видно")
}

func TestCountUnreadInForum_AccessAllGroups(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, general := newForumFixture(t, models.TrackingForced)

	groupDiscussion := &models.Discussion{ForumID: fixture.forum.ID, Name: "Группа A", GroupID: 5}
	require.NoError(t, fixture.postRepo.SaveDiscussion(ctx, groupDiscussion))

	fixture.addPost(t, general.ID, time.Now().Add(-time.Hour))
	fixture.addPost(t, groupDiscussion.ID, time.Now().Add(-time.Hour))

	user := &models.User{ID: 1}

	core := mocks.NewCoreClient(t)
	core.On("GetCourseModule", mock.Anything, fixture.forum.ID).
		Return(&models.CourseModule{ID: 100, ForumID: fixture.forum.ID, ContextID: 200, GroupMode: models.GroupsSeparate}, nil)
	core.On("HasCapability", mock.Anything, user.ID, int64(200), service.CapAccessAllGroups).Return(true, nil)

	svc := newUnreadService(fixture, core, readConfig())

	// Act
	count, err := svc.CountUnreadInForum(ctx, user, fixture.forum)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUnreadMapForCourse(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingForced)

	fixture.addPost(t, discussion.ID, time.Now().Add(-2*time.Hour))
	fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour))

	secondForum := &models.Forum{CourseID: fixture.forum.CourseID, Name: "Новости", TrackingMode: models.TrackingForced}
	require.NoError(t, fixture.postRepo.SaveForum(ctx, secondForum))

	secondDiscussion := &models.Discussion{ForumID: secondForum.ID, Name: "Объявления", GroupID: models.GroupAll}
	require.NoError(t, fixture.postRepo.SaveDiscussion(ctx, secondDiscussion))

	fixture.addPost(t, secondDiscussion.ID, time.Now().Add(-time.Hour))

	user := &models.User{ID: 1}

	core := mocks.NewCoreClient(t)
	core.On("GetCourseModule", mock.Anything, mock.Anything).
		Return(&models.CourseModule{GroupMode: models.GroupsNone}, nil)

	svc := newUnreadService(fixture, core, readConfig())

	// Act
	counts, err := svc.UnreadMapForCourse(ctx, user, fixture.forum.CourseID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, counts[fixture.forum.ID])
	assert.Equal(t, 1, counts[secondForum.ID])
}

func TestUnreadCounts_TrackingOverride(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	fixture, discussion := newForumFixture(t, models.TrackingOptional)
	fixture.addPost(t, discussion.ID, time.Now().Add(-time.Hour))

	cfg := readConfig()
	user := &models.User{ID: 1, TrackForums: true}

	core := mocks.NewCoreClient(t)
	core.On("GetCourseModule", mock.Anything, fixture.forum.ID).
		Return(&models.CourseModule{ID: 100, ForumID: fixture.forum.ID, GroupMode: models.GroupsNone}, nil).Maybe()

	subRepo := memory.NewSubscriptionRepository()
	tracking := service.NewTrackingService(subRepo, fixture.readRepo, cfg)
	svc := service.NewUnreadService(fixture.postRepo, fixture.readRepo, tracking, core, nil, cfg, testLogger())

	count, err := svc.CountUnreadInDiscussion(ctx, user, discussion.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Act
	require.NoError(t, tracking.StopTracking(ctx, user.ID, fixture.forum.ID))

	// Assert
	count, err = svc.CountUnreadInDiscussion(ctx, user, discussion.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "неотслеживаемый форум даёт нулевой счётчик")

	count, err = svc.CountUnreadInForum(ctx, user, fixture.forum)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	counts, err := svc.UnreadMapForCourse(ctx, user, fixture.forum.CourseID)
	require.NoError(t, err)
	assert.NotContains(t, counts, fixture.forum.ID, "неотслеживаемый форум не попадает в карту курса")

	require.NoError(t, tracking.StartTracking(ctx, user.ID, fixture.forum.ID))

	count, err = svc.CountUnreadInDiscussion(ctx, user, discussion.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
