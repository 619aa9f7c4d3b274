package service

import (
	"context"

	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients"
)

// Права core API, проверяемые сервисом.
const (
	CapAccessAllGroups = "forum:accessallgroups"
	CapViewQAndA       = "forum:viewqandawithoutposting"
	CapForceSubscribe  = "forum:allowforcesubscribe"
)

type groupKey struct {
	userID   int64
	courseID int64
}

type capabilityKey struct {
	userID     int64
	contextID  int64
	capability string
}

// RunCache мемоизирует обращения к core API в пределах одного прогона
// рассылки. Кэш живёт один прогон и не является потокобезопасным:
// прогон обрабатывает посты последовательно.
type RunCache struct {
	core clients.CoreClient

	users        map[int64]*models.User
	courses      map[int64]*models.Course
	modules      map[int64]*models.CourseModule
	groups       map[groupKey][]int64
	capabilities map[capabilityKey]bool
	subscribers  map[int64][]*models.User
}

func NewRunCache(core clients.CoreClient) *RunCache {
	return &RunCache{
		core:         core,
		users:        make(map[int64]*models.User),
		courses:      make(map[int64]*models.Course),
		modules:      make(map[int64]*models.CourseModule),
		groups:       make(map[groupKey][]int64),
		capabilities: make(map[capabilityKey]bool),
		subscribers:  make(map[int64][]*models.User),
	}
}

func (c *RunCache) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	if user, ok := c.users[userID]; ok {
		return user, nil
	}

	user, err := c.core.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.users[userID] = user

	return user, nil
}

func (c *RunCache) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	if course, ok := c.courses[courseID]; ok {
		return course, nil
	}

	course, err := c.core.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	c.courses[courseID] = course

	return course, nil
}

func (c *RunCache) GetCourseModule(ctx context.Context, forumID int64) (*models.CourseModule, error) {
	if module, ok := c.modules[forumID]; ok {
		return module, nil
	}

	module, err := c.core.GetCourseModule(ctx, forumID)
	if err != nil {
		return nil, err
	}

	c.modules[forumID] = module

	return module, nil
}

func (c *RunCache) UserGroupIDs(ctx context.Context, userID, courseID int64) ([]int64, error) {
	key := groupKey{userID: userID, courseID: courseID}

	if groups, ok := c.groups[key]; ok {
		return groups, nil
	}

	groups, err := c.core.UserGroupIDs(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	c.groups[key] = groups

	return groups, nil
}

func (c *RunCache) HasCapability(ctx context.Context, userID, contextID int64, capability string) (bool, error) {
	key := capabilityKey{userID: userID, contextID: contextID, capability: capability}

	if allowed, ok := c.capabilities[key]; ok {
		return allowed, nil
	}

	allowed, err := c.core.HasCapability(ctx, userID, contextID, capability)
	if err != nil {
		return false, err
	}

	c.capabilities[key] = allowed

	return allowed, nil
}

// Subscribers кэширует списки подписчиков форума на время прогона.
func (c *RunCache) Subscribers(forumID int64) ([]*models.User, bool) {
	users, ok := c.subscribers[forumID]
	return users, ok
}

func (c *RunCache) PutSubscribers(forumID int64, users []*models.User) {
	c.subscribers[forumID] = users
}
