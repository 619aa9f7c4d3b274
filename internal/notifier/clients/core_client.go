package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/central-university-dev/go-forum-notify/internal/common/httputil"
	"github.com/central-university-dev/go-forum-notify/internal/config"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

// CoreClient — клиент core API хост-системы: пользователи, записи на курсы,
// группы и права. Форумный сервис не хранит эти данные у себя.
type CoreClient interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	EnrolledUsers(ctx context.Context, courseID int64) ([]*models.User, error)
	GetCourse(ctx context.Context, courseID int64) (*models.Course, error)
	GetCourseModule(ctx context.Context, forumID int64) (*models.CourseModule, error)
	UserGroupIDs(ctx context.Context, userID, courseID int64) ([]int64, error)
	HasCapability(ctx context.Context, userID, contextID int64, capability string) (bool, error)
	RenderPost(ctx context.Context, postID int64) (*models.RenderedBody, error)
}

type HTTPCoreClient struct {
	client  *resty.Client
	token   string
	baseURL string
	logger  *slog.Logger
}

func NewCoreClient(cfg *config.Config, logger *slog.Logger) CoreClient {
	client := httputil.CreateResilientHTTPClient(cfg, logger, "core")

	return &HTTPCoreClient{
		client:  client,
		token:   cfg.CoreAPIToken,
		baseURL: cfg.CoreBaseURL,
		logger:  logger,
	}
}

func (c *HTTPCoreClient) request(ctx context.Context) *resty.Request {
	request := c.client.R().SetContext(ctx)

	if c.token != "" {
		request.SetHeader("Authorization", "Bearer "+c.token)
	}

	return request
}

type userPayload struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	TrackForums   bool   `json:"track_forums"`
	DefaultDigest int    `json:"default_digest"`
	MarksOwnRead  bool   `json:"marks_own_read"`
	EmailStopped  bool   `json:"email_stopped"`
	Guest         bool   `json:"guest"`
	Deleted       bool   `json:"deleted"`
}

func (p *userPayload) toModel() *models.User {
	return &models.User{
		ID:            p.ID,
		Email:         p.Email,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		TrackForums:   p.TrackForums,
		DefaultDigest: models.DigestMode(p.DefaultDigest),
		MarksOwnRead:  p.MarksOwnRead,
		EmailStopped:  p.EmailStopped,
		Guest:         p.Guest,
		Deleted:       p.Deleted,
	}
}

func (c *HTTPCoreClient) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	url := fmt.Sprintf("%s/api/v1/users/%d", c.baseURL, userID)

	var payload userPayload

	resp, err := c.request(ctx).
		SetResult(&payload).
		Get(url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &customerrors.ErrUserNotFound{UserID: userID}
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("core API вернул статус: %d", resp.StatusCode())
	}

	return payload.toModel(), nil
}

func (c *HTTPCoreClient) EnrolledUsers(ctx context.Context, courseID int64) ([]*models.User, error) {
	url := fmt.Sprintf("%s/api/v1/courses/%d/users", c.baseURL, courseID)

	var payload struct {
		Users []userPayload `json:"users"`
	}

	resp, err := c.request(ctx).
		SetResult(&payload).
		Get(url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &customerrors.ErrCourseNotFound{CourseID: courseID}
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("core API вернул статус: %d", resp.StatusCode())
	}

	users := make([]*models.User, 0, len(payload.Users))
	for i := range payload.Users {
		users = append(users, payload.Users[i].toModel())
	}

	return users, nil
}

func (c *HTTPCoreClient) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	url := fmt.Sprintf("%s/api/v1/courses/%d", c.baseURL, courseID)

	var payload struct {
		ID        int64  `json:"id"`
		ShortName string `json:"short_name"`
		FullName  string `json:"full_name"`
	}

	resp, err := c.request(ctx).
		SetResult(&payload).
		Get(url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &customerrors.ErrCourseNotFound{CourseID: courseID}
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("core API вернул статус: %d", resp.StatusCode())
	}

	return &models.Course{
		ID:        payload.ID,
		ShortName: payload.ShortName,
		FullName:  payload.FullName,
	}, nil
}

func (c *HTTPCoreClient) GetCourseModule(ctx context.Context, forumID int64) (*models.CourseModule, error) {
	url := fmt.Sprintf("%s/api/v1/forums/%d/module", c.baseURL, forumID)

	var payload struct {
		ID        int64 `json:"id"`
		ForumID   int64 `json:"forum_id"`
		ContextID int64 `json:"context_id"`
		GroupMode int   `json:"group_mode"`
	}

	resp, err := c.request(ctx).
		SetResult(&payload).
		Get(url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &customerrors.ErrCourseModuleNotFound{ForumID: forumID}
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("core API вернул статус: %d", resp.StatusCode())
	}

	return &models.CourseModule{
		ID:        payload.ID,
		ForumID:   payload.ForumID,
		ContextID: payload.ContextID,
		GroupMode: models.GroupMode(payload.GroupMode),
	}, nil
}

func (c *HTTPCoreClient) UserGroupIDs(ctx context.Context, userID, courseID int64) ([]int64, error) {
	url := fmt.Sprintf("%s/api/v1/courses/%d/users/%d/groups", c.baseURL, courseID, userID)

	var payload struct {
		GroupIDs []int64 `json:"group_ids"`
	}

	resp, err := c.request(ctx).
		SetResult(&payload).
		Get(url)
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("core API вернул статус: %d", resp.StatusCode())
	}

	// Пустой или отсутствующий список декодируется в nil, а nil ниже по
	// стеку означает отсутствие групповых ограничений. Пользователь без
	// групп должен получить пустой фильтр, а не полный доступ.
	if payload.GroupIDs == nil {
		return []int64{}, nil
	}

	return payload.GroupIDs, nil
}

func (c *HTTPCoreClient) HasCapability(ctx context.Context, userID, contextID int64, capability string) (bool, error) {
	url := fmt.Sprintf("%s/api/v1/contexts/%d/users/%d/capabilities/%s", c.baseURL, contextID, userID, capability)

	var payload struct {
		Granted bool `json:"granted"`
	}

	resp, err := c.request(ctx).
		SetResult(&payload).
		Get(url)
	if err != nil {
		return false, err
	}

	if !resp.IsSuccess() {
		return false, fmt.Errorf("core API вернул статус: %d", resp.StatusCode())
	}

	return payload.Granted, nil
}

// RenderPost запрашивает у хост-системы преобразование тела поста в
// plain-text и HTML представления. Форматирование не дублируется локально.
func (c *HTTPCoreClient) RenderPost(ctx context.Context, postID int64) (*models.RenderedBody, error) {
	url := fmt.Sprintf("%s/api/v1/posts/%d/render", c.baseURL, postID)

	var payload struct {
		Text string `json:"text"`
		HTML string `json:"html"`
	}

	resp, err := c.request(ctx).
		SetResult(&payload).
		Get(url)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, &customerrors.ErrPostNotFound{PostID: postID}
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("core API вернул статус: %d", resp.StatusCode())
	}

	return &models.RenderedBody{
		Text: payload.Text,
		HTML: payload.HTML,
	}, nil
}
