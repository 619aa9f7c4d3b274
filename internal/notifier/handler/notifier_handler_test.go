package handler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/infrastructure/repositories/memory"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients/mocks"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/handler"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type noopTransactor struct{}

func (noopTransactor) WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error {
	return txFunc(ctx)
}

type handlerFixture struct {
	server   *httptest.Server
	postRepo *memory.PostRepository
	subRepo  *memory.SubscriptionRepository
	core     *mocks.CoreClient
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	cfg := &config.Config{
		TrackingEnabled:    true,
		AllowForcedReading: true,
		OldPostDays:        14,
		DatabaseBatchSize:  200,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	postRepo := memory.NewPostRepository()
	readRepo := memory.NewReadRecordRepository(postRepo)
	subRepo := memory.NewSubscriptionRepository()
	core := mocks.NewCoreClient(t)

	subscriptions := service.NewSubscriptionService(subRepo, postRepo, core, cfg, logger)
	tracking := service.NewTrackingService(subRepo, readRepo, cfg)
	reads := service.NewReadService(postRepo, readRepo, noopTransactor{}, nil, cfg, logger)
	unread := service.NewUnreadService(postRepo, readRepo, tracking, core, nil, cfg, logger)

	h := handler.NewNotifierHandler(subscriptions, tracking, reads, unread, postRepo, core, logger)

	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)

	return &handlerFixture{
		server:   server,
		postRepo: postRepo,
		subRepo:  subRepo,
		core:     core,
	}
}

func (f *handlerFixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func TestHandler_Subscribe(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	f := newHandlerFixture(t)

	forum := &models.Forum{CourseID: 10, Name: "Общий форум", SubscriptionMode: models.SubscriptionChoose}
	require.NoError(t, f.postRepo.SaveForum(ctx, forum))

	f.core.On("GetUser", mock.Anything, int64(1)).Return(&models.User{ID: 1, Email: "a@example.com"}, nil)

	// Act
	resp := f.do(t, http.MethodPost, "/api/v1/forums/1/subscribers/1", "")

	// Assert
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	subscribed, err := f.subRepo.IsSubscribed(ctx, 1, forum.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)
}

func TestHandler_SubscribeDisallowed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newHandlerFixture(t)

	forum := &models.Forum{CourseID: 10, Name: "Новости", SubscriptionMode: models.SubscriptionDisallowed}
	require.NoError(t, f.postRepo.SaveForum(ctx, forum))

	f.core.On("GetUser", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil)

	resp := f.do(t, http.MethodPost, "/api/v1/forums/1/subscribers/1", "")

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandler_ForumNotFound(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	f.core.On("GetUser", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil)

	resp := f.do(t, http.MethodPost, "/api/v1/forums/77/subscribers/1", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_InvalidDigestMode(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodPut, "/api/v1/forums/1/subscribers/1/digest", `{"mode": 7}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_BadID(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	f.core.On("GetUser", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil).Maybe()

	resp := f.do(t, http.MethodPost, "/api/v1/forums/abc/subscribers/1", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_MarkPostReadAndUnreadCount(t *testing.T) {
	t.Parallel()

	// Arrange
	ctx := context.Background()
	f := newHandlerFixture(t)

	forum := &models.Forum{CourseID: 10, Name: "Общий форум", TrackingMode: models.TrackingForced}
	require.NoError(t, f.postRepo.SaveForum(ctx, forum))

	discussion := &models.Discussion{ForumID: forum.ID, Name: "Вопросы", GroupID: models.GroupAll}
	require.NoError(t, f.postRepo.SaveDiscussion(ctx, discussion))

	post := &models.Post{
		DiscussionID: discussion.ID,
		AuthorID:     99,
		Subject:      "Тема",
		Created:      time.Now().Add(-time.Hour),
		Modified:     time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.postRepo.SavePost(ctx, post))

	f.core.On("GetUser", mock.Anything, int64(1)).Return(&models.User{ID: 1, Email: "a@example.com"}, nil)

	// Act & Assert
	resp := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/1/unread/discussions/%d", discussion.ID), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/users/1/read/posts/%d", post.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/users/1/read/posts/404", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
