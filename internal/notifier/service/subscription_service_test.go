package service_test

import (
	"context"
	"testing"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/infrastructure/repositories/memory"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients/mocks"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSubscriptionService(t *testing.T) (*service.SubscriptionService, *memory.SubscriptionRepository, *mocks.CoreClient) {
	t.Helper()

	subRepo := memory.NewSubscriptionRepository()
	postRepo := memory.NewPostRepository()
	core := mocks.NewCoreClient(t)

	svc := service.NewSubscriptionService(subRepo, postRepo, core, &config.Config{}, testLogger())

	return svc, subRepo, core
}

func TestSubscribe_Disallowed(t *testing.T) {
	t.Parallel()

	// Arrange
	svc, _, _ := newSubscriptionService(t)

	forum := &models.Forum{ID: 1, SubscriptionMode: models.SubscriptionDisallowed}
	user := &models.User{ID: 1}

	// Act
	err := svc.Subscribe(context.Background(), user, forum)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrSubscriptionDisallowed{})
}

func TestUnsubscribe_ClearsDigestPreference(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	svc, subRepo, _ := newSubscriptionService(t)

	forum := &models.Forum{ID: 1, SubscriptionMode: models.SubscriptionChoose}
	user := &models.User{ID: 1, DefaultDigest: models.DigestNone}

	require.NoError(t, svc.Subscribe(ctx, user, forum))
	require.NoError(t, svc.SetDigestPreference(ctx, user.ID, forum.ID, models.DigestFull))

	// Act
	require.NoError(t, svc.Unsubscribe(ctx, user, forum))
	require.NoError(t, svc.Subscribe(ctx, user, forum))

	// Assert
	mode, err := subRepo.GetDigestPreference(ctx, user.ID, forum.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DigestUseDefault, mode, "новая подписка начинается с режима по умолчанию")
}

func TestIsSubscribed_ForcedForum(t *testing.T) {
	t.Parallel()

	svc, _, core := newSubscriptionService(t)

	forum := &models.Forum{ID: 1, SubscriptionMode: models.SubscriptionForced}

	core.On("GetCourseModule", mock.Anything, forum.ID).
		Return(&models.CourseModule{ID: 1, ForumID: forum.ID, ContextID: 100}, nil).Maybe()
	core.On("HasCapability", mock.Anything, int64(1), int64(100), service.CapForceSubscribe).
		Return(true, nil).Once()
	core.On("HasCapability", mock.Anything, int64(3), int64(100), service.CapForceSubscribe).
		Return(false, nil).Once()

	subscribed, err := svc.IsSubscribed(context.Background(), &models.User{ID: 1}, forum)
	require.NoError(t, err)
	assert.True(t, subscribed)

	subscribed, err = svc.IsSubscribed(context.Background(), &models.User{ID: 2, Guest: true}, forum)
	require.NoError(t, err)
	assert.False(t, subscribed, "гость не подписан даже на форум с принудительной подпиской")

	subscribed, err = svc.IsSubscribed(context.Background(), &models.User{ID: 3}, forum)
	require.NoError(t, err)
	assert.False(t, subscribed, "без права принудительной подписки действуют только явные записи")
}

func TestSubscribers_ForcedForumExcludesGuests(t *testing.T) {
	t.Parallel()

	// Arrange
	svc, _, core := newSubscriptionService(t)

	forum := &models.Forum{ID: 1, CourseID: 10, SubscriptionMode: models.SubscriptionForced}

	core.On("EnrolledUsers", mock.Anything, int64(10)).Return([]*models.User{
		{ID: 1, Email: "student@example.com"},
		{ID: 2, Email: "guest@example.com", Guest: true},
		{ID: 3, Email: "teacher@example.com"},
	}, nil)

	// Act
	subscribers, err := svc.Subscribers(context.Background(), forum)

	// Assert
	require.NoError(t, err)
	require.Len(t, subscribers, 2)
	assert.Equal(t, int64(1), subscribers[0].ID)
	assert.Equal(t, int64(3), subscribers[1].ID)
}

func TestSubscribers_ChooseForum(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	svc, _, core := newSubscriptionService(t)

	forum := &models.Forum{ID: 1, CourseID: 10, SubscriptionMode: models.SubscriptionChoose}

	require.NoError(t, svc.Subscribe(ctx, &models.User{ID: 1}, forum))
	require.NoError(t, svc.Subscribe(ctx, &models.User{ID: 2}, forum))

	core.On("GetUser", mock.Anything, int64(1)).Return(&models.User{ID: 1, Email: "a@example.com"}, nil)
	core.On("GetUser", mock.Anything, int64(2)).Return(&models.User{ID: 2, Email: "b@example.com"}, nil)

	// Act
	subscribers, err := svc.Subscribers(ctx, forum)

	// Assert
	require.NoError(t, err)
	assert.Len(t, subscribers, 2)
}

func TestSeedInitialSubscriptions(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	svc, subRepo, core := newSubscriptionService(t)

	forum := &models.Forum{ID: 1, CourseID: 10, SubscriptionMode: models.SubscriptionInitial}

	core.On("EnrolledUsers", mock.Anything, int64(10)).Return([]*models.User{
		{ID: 1, Email: "a@example.com"},
		{ID: 2, Email: "guest@example.com", Guest: true},
	}, nil)

	// Act
	err := svc.SeedInitialSubscriptions(ctx, forum)

	// Assert
	require.NoError(t, err)

	subscribed, err := subRepo.IsSubscribed(ctx, 1, forum.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)

	subscribed, err = subRepo.IsSubscribed(ctx, 2, forum.ID)
	require.NoError(t, err)
	assert.False(t, subscribed, "гость не получает начальную подписку")
}

func TestSetDigestPreference_InvalidMode(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSubscriptionService(t)

	err := svc.SetDigestPreference(context.Background(), 1, 1, models.DigestMode(7))
	assert.ErrorIs(t, err, &customerrors.ErrInvalidDigestMode{})
}

func TestResolveDigestMode(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	svc, _, _ := newSubscriptionService(t)

	user := &models.User{ID: 1, DefaultDigest: models.DigestSubjects}

	// Act & Assert
	mode, err := svc.ResolveDigestMode(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, models.DigestSubjects, mode, "без индивидуальной настройки действует режим пользователя")

	require.NoError(t, svc.SetDigestPreference(ctx, user.ID, 1, models.DigestFull))

	mode, err = svc.ResolveDigestMode(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, models.DigestFull, mode)

	require.NoError(t, svc.SetDigestPreference(ctx, user.ID, 1, models.DigestUseDefault))

	mode, err = svc.ResolveDigestMode(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, models.DigestSubjects, mode)
}
