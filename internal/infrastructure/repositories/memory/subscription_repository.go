package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
)

type subKey struct {
	userID  int64
	forumID int64
}

type SubscriptionRepository struct {
	subscriptions map[subKey]struct{}
	digests       map[subKey]models.DigestMode
	overrides     map[subKey]struct{}
	mu            sync.RWMutex
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{
		subscriptions: make(map[subKey]struct{}),
		digests:       make(map[subKey]models.DigestMode),
		overrides:     make(map[subKey]struct{}),
	}
}

func (r *SubscriptionRepository) Subscribe(ctx context.Context, userID, forumID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscriptions[subKey{userID: userID, forumID: forumID}] = struct{}{}

	return nil
}

// Unsubscribe удаляет подписку вместе с настройкой дайджеста:
// отписка сбрасывает индивидуальный режим доставки.
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, userID, forumID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := subKey{userID: userID, forumID: forumID}

	delete(r.subscriptions, key)
	delete(r.digests, key)

	return nil
}

func (r *SubscriptionRepository) IsSubscribed(ctx context.Context, userID, forumID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.subscriptions[subKey{userID: userID, forumID: forumID}]

	return exists, nil
}

func (r *SubscriptionRepository) SubscriberIDs(ctx context.Context, forumID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64

	for key := range r.subscriptions {
		if key.forumID == forumID {
			ids = append(ids, key.userID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (r *SubscriptionRepository) SetDigestPreference(ctx context.Context, userID, forumID int64, mode models.DigestMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := subKey{userID: userID, forumID: forumID}

	if mode == models.DigestUseDefault {
		delete(r.digests, key)
		return nil
	}

	r.digests[key] = mode

	return nil
}

func (r *SubscriptionRepository) GetDigestPreference(ctx context.Context, userID, forumID int64) (models.DigestMode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mode, exists := r.digests[subKey{userID: userID, forumID: forumID}]
	if !exists {
		return models.DigestUseDefault, nil
	}

	return mode, nil
}

func (r *SubscriptionRepository) DeleteDigestPreference(ctx context.Context, userID, forumID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.digests, subKey{userID: userID, forumID: forumID})

	return nil
}

func (r *SubscriptionRepository) AddTrackingOverride(ctx context.Context, userID, forumID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overrides[subKey{userID: userID, forumID: forumID}] = struct{}{}

	return nil
}

func (r *SubscriptionRepository) RemoveTrackingOverride(ctx context.Context, userID, forumID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.overrides, subKey{userID: userID, forumID: forumID})

	return nil
}

func (r *SubscriptionRepository) HasTrackingOverride(ctx context.Context, userID, forumID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.overrides[subKey{userID: userID, forumID: forumID}]

	return exists, nil
}
