package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
)

type readKey struct {
	userID int64
	postID int64
}

// ReadRecordRepository хранит отметки в памяти и опирается на
// PostRepository как на источник постов, обсуждений и форумов.
type ReadRecordRepository struct {
	records map[readKey]*models.ReadRecord
	posts   *PostRepository
	mu      sync.RWMutex
}

func NewReadRecordRepository(posts *PostRepository) *ReadRecordRepository {
	return &ReadRecordRepository{
		records: make(map[readKey]*models.ReadRecord),
		posts:   posts,
	}
}

func (r *ReadRecordRepository) Upsert(ctx context.Context, record *models.ReadRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := readKey{userID: record.UserID, postID: record.PostID}

	if existing, exists := r.records[key]; exists {
		existing.LastRead = record.LastRead
		return nil
	}

	r.records[key] = record

	return nil
}

func (r *ReadRecordRepository) Find(ctx context.Context, userID, postID int64) (*models.ReadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[readKey{userID: userID, postID: postID}]
	if !exists {
		return nil, &errors.ErrReadRecordNotFound{UserID: userID, PostID: postID}
	}

	return record, nil
}

func (r *ReadRecordRepository) FindReadPostIDs(ctx context.Context, userID int64, postIDs []int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64

	for _, postID := range postIDs {
		if _, exists := r.records[readKey{userID: userID, postID: postID}]; exists {
			ids = append(ids, postID)
		}
	}

	return ids, nil
}

func (r *ReadRecordRepository) TouchLastRead(ctx context.Context, userID int64, postIDs []int64, readAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, postID := range postIDs {
		if record, exists := r.records[readKey{userID: userID, postID: postID}]; exists {
			record.LastRead = readAt
		}
	}

	return nil
}

func (r *ReadRecordRepository) InsertForPosts(
	ctx context.Context,
	userID int64,
	postIDs []int64,
	cutoff, readAt time.Time,
	trackPref, allowForced bool,
) error {
	r.posts.mu.RLock()
	defer r.posts.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, postID := range postIDs {
		post, exists := r.posts.posts[postID]
		if !exists || post.Modified.Before(cutoff) {
			continue
		}

		discussion, exists := r.posts.discussions[post.DiscussionID]
		if !exists {
			continue
		}

		forum, exists := r.posts.forums[discussion.ForumID]
		if !exists {
			continue
		}

		trackable := (forum.TrackingMode == models.TrackingForced && allowForced) ||
			((forum.TrackingMode == models.TrackingForced || forum.TrackingMode == models.TrackingOptional) && trackPref)
		if !trackable {
			continue
		}

		key := readKey{userID: userID, postID: postID}

		if record, found := r.records[key]; found {
			record.LastRead = readAt
			continue
		}

		r.records[key] = &models.ReadRecord{
			UserID:       userID,
			PostID:       postID,
			DiscussionID: discussion.ID,
			ForumID:      forum.ID,
			FirstRead:    readAt,
			LastRead:     readAt,
		}
	}

	return nil
}

func (r *ReadRecordRepository) UnreadPostIDsInDiscussion(
	ctx context.Context,
	userID, discussionID int64,
	cutoff time.Time,
) ([]int64, error) {
	r.posts.mu.RLock()
	defer r.posts.mu.RUnlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64

	for _, post := range r.posts.posts {
		if post.DiscussionID != discussionID || post.Modified.Before(cutoff) {
			continue
		}

		if _, read := r.records[readKey{userID: userID, postID: post.ID}]; !read {
			ids = append(ids, post.ID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (r *ReadRecordRepository) UnreadPostIDsInForum(
	ctx context.Context,
	userID, forumID int64,
	cutoff time.Time,
	groupID *int64,
) ([]int64, error) {
	r.posts.mu.RLock()
	defer r.posts.mu.RUnlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64

	for _, post := range r.posts.posts {
		if post.Modified.Before(cutoff) {
			continue
		}

		discussion, exists := r.posts.discussions[post.DiscussionID]
		if !exists || discussion.ForumID != forumID {
			continue
		}

		if groupID != nil && discussion.GroupID != *groupID && discussion.GroupID != models.GroupAll {
			continue
		}

		if _, read := r.records[readKey{userID: userID, postID: post.ID}]; !read {
			ids = append(ids, post.ID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (r *ReadRecordRepository) CountUnreadInDiscussion(
	ctx context.Context,
	userID, discussionID int64,
	cutoff, now time.Time,
) (int, error) {
	r.posts.mu.RLock()
	defer r.posts.mu.RUnlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	discussion, exists := r.posts.discussions[discussionID]
	if !exists || !discussion.VisibleAt(now) {
		return 0, nil
	}

	count := 0

	for _, post := range r.posts.posts {
		if post.DiscussionID != discussionID || post.Modified.Before(cutoff) {
			continue
		}

		if _, read := r.records[readKey{userID: userID, postID: post.ID}]; !read {
			count++
		}
	}

	return count, nil
}

func (r *ReadRecordRepository) CountUnreadInForum(
	ctx context.Context,
	userID, forumID int64,
	cutoff, now time.Time,
	groupIDs []int64,
) (int, error) {
	r.posts.mu.RLock()
	defer r.posts.mu.RUnlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0

	for _, post := range r.posts.posts {
		if post.Modified.Before(cutoff) {
			continue
		}

		discussion, exists := r.posts.discussions[post.DiscussionID]
		if !exists || discussion.ForumID != forumID || !discussion.VisibleAt(now) {
			continue
		}

		if groupIDs != nil && !groupVisible(discussion.GroupID, groupIDs) {
			continue
		}

		if _, read := r.records[readKey{userID: userID, postID: post.ID}]; !read {
			count++
		}
	}

	return count, nil
}

func groupVisible(groupID int64, groupIDs []int64) bool {
	if groupID == models.GroupAll {
		return true
	}

	for _, id := range groupIDs {
		if id == groupID {
			return true
		}
	}

	return false
}

func (r *ReadRecordRepository) UnreadCountsByCourse(
	ctx context.Context,
	userID, courseID int64,
	cutoff, now time.Time,
) (map[int64]int, error) {
	r.posts.mu.RLock()
	defer r.posts.mu.RUnlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[int64]int)

	for _, post := range r.posts.posts {
		if post.Modified.Before(cutoff) {
			continue
		}

		discussion, exists := r.posts.discussions[post.DiscussionID]
		if !exists || !discussion.VisibleAt(now) {
			continue
		}

		forum, exists := r.posts.forums[discussion.ForumID]
		if !exists || forum.CourseID != courseID {
			continue
		}

		if _, read := r.records[readKey{userID: userID, postID: post.ID}]; !read {
			counts[forum.ID]++
		}
	}

	return counts, nil
}

func (r *ReadRecordRepository) Delete(ctx context.Context, filter models.ReadRecordFilter) (int64, error) {
	if filter.Empty() {
		return 0, &errors.ErrEmptyReadRecordFilter{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64

	for key, record := range r.records {
		if filter.UserID != 0 && record.UserID != filter.UserID {
			continue
		}

		if filter.PostID != 0 && record.PostID != filter.PostID {
			continue
		}

		if filter.DiscussionID != 0 && record.DiscussionID != filter.DiscussionID {
			continue
		}

		if filter.ForumID != 0 && record.ForumID != filter.ForumID {
			continue
		}

		delete(r.records, key)

		deleted++
	}

	return deleted, nil
}

func (r *ReadRecordRepository) OldestTrackedPostModified(ctx context.Context) (time.Time, error) {
	r.posts.mu.RLock()
	defer r.posts.mu.RUnlock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var oldest time.Time

	for key := range r.records {
		post, exists := r.posts.posts[key.postID]
		if !exists {
			continue
		}

		if oldest.IsZero() || post.Modified.Before(oldest) {
			oldest = post.Modified
		}
	}

	return oldest, nil
}

func (r *ReadRecordRepository) DeleteStale(ctx context.Context, lowerBound, cutoff time.Time) (int64, error) {
	r.posts.mu.RLock()
	defer r.posts.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64

	for key := range r.records {
		post, exists := r.posts.posts[key.postID]
		if !exists {
			continue
		}

		if !post.Modified.Before(lowerBound) && post.Modified.Before(cutoff) {
			delete(r.records, key)

			deleted++
		}
	}

	return deleted, nil
}
