package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
)

type DigestQueueRepository struct {
	entries       map[int64]*models.DigestQueueEntry
	nextID        int64
	lastDigestRun time.Time
	mu            sync.RWMutex
}

func NewDigestQueueRepository() *DigestQueueRepository {
	return &DigestQueueRepository{
		entries: make(map[int64]*models.DigestQueueEntry),
		nextID:  1,
	}
}

func (r *DigestQueueRepository) Enqueue(ctx context.Context, entry *models.DigestQueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++

	r.entries[entry.ID] = entry

	return nil
}

func (r *DigestQueueRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64

	for id, entry := range r.entries {
		if entry.PostTime.Before(cutoff) {
			delete(r.entries, id)

			deleted++
		}
	}

	return deleted, nil
}

func (r *DigestQueueRepository) UserIDsWithEntries(ctx context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int64]struct{})

	var ids []int64

	for _, entry := range r.entries {
		if _, exists := seen[entry.UserID]; exists {
			continue
		}

		seen[entry.UserID] = struct{}{}

		ids = append(ids, entry.UserID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (r *DigestQueueRepository) FindByUser(ctx context.Context, userID int64) ([]*models.DigestQueueEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*models.DigestQueueEntry

	for _, entry := range r.entries {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	return entries, nil
}

func (r *DigestQueueRepository) DeleteByUser(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.entries {
		if entry.UserID == userID {
			delete(r.entries, id)
		}
	}

	return nil
}

func (r *DigestQueueRepository) LastDigestRun(ctx context.Context) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastDigestRun, nil
}

func (r *DigestQueueRepository) SetLastDigestRun(ctx context.Context, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastDigestRun = t

	return nil
}
