package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
)

type PostRepository struct {
	forums      map[int64]*models.Forum
	discussions map[int64]*models.Discussion
	posts       map[int64]*models.Post
	nextID      int64
	mu          sync.RWMutex
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		forums:      make(map[int64]*models.Forum),
		discussions: make(map[int64]*models.Discussion),
		posts:       make(map[int64]*models.Post),
		nextID:      1,
	}
}

func (r *PostRepository) allocateID() int64 {
	id := r.nextID
	r.nextID++

	return id
}

func (r *PostRepository) SaveForum(ctx context.Context, forum *models.Forum) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if forum.ID == 0 {
		forum.ID = r.allocateID()
	} else if forum.ID >= r.nextID {
		r.nextID = forum.ID + 1
	}

	r.forums[forum.ID] = forum

	return nil
}

func (r *PostRepository) FindForumByID(ctx context.Context, id int64) (*models.Forum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	forum, exists := r.forums[id]
	if !exists {
		return nil, &errors.ErrForumNotFound{ForumID: id}
	}

	return forum, nil
}

func (r *PostRepository) FindForumIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64

	for _, forum := range r.forums {
		if forum.CourseID == courseID {
			ids = append(ids, forum.ID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (r *PostRepository) SaveDiscussion(ctx context.Context, discussion *models.Discussion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if discussion.ID == 0 {
		discussion.ID = r.allocateID()
	} else if discussion.ID >= r.nextID {
		r.nextID = discussion.ID + 1
	}

	r.discussions[discussion.ID] = discussion

	return nil
}

func (r *PostRepository) FindDiscussionByID(ctx context.Context, id int64) (*models.Discussion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	discussion, exists := r.discussions[id]
	if !exists {
		return nil, &errors.ErrDiscussionNotFound{DiscussionID: id}
	}

	return discussion, nil
}

func (r *PostRepository) DeleteDiscussion(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.discussions[id]; !exists {
		return &errors.ErrDiscussionNotFound{DiscussionID: id}
	}

	delete(r.discussions, id)

	for postID, post := range r.posts {
		if post.DiscussionID == id {
			delete(r.posts, postID)
		}
	}

	return nil
}

func (r *PostRepository) SavePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.ID == 0 {
		post.ID = r.allocateID()
	} else if post.ID >= r.nextID {
		r.nextID = post.ID + 1
	}

	r.posts[post.ID] = post

	return nil
}

func (r *PostRepository) FindPostByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, &errors.ErrPostNotFound{PostID: id}
	}

	return post, nil
}

func (r *PostRepository) DeletePost(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[id]; !exists {
		return &errors.ErrPostNotFound{PostID: id}
	}

	delete(r.posts, id)

	return nil
}

func (r *PostRepository) HasUserPosted(ctx context.Context, discussionID, userID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, post := range r.posts {
		if post.DiscussionID == discussionID && post.AuthorID == userID {
			return true, nil
		}
	}

	return false, nil
}

func (r *PostRepository) FindPendingPosts(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*models.Post

	for _, post := range r.posts {
		if post.Mailed != models.MailPending {
			continue
		}

		inWindow := !post.Created.Before(windowStart) && post.Created.Before(windowEnd)
		if inWindow || post.MailNow {
			pending = append(pending, post)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Modified.Before(pending[j].Modified)
	})

	return pending, nil
}

func (r *PostRepository) MarkPostsMailed(ctx context.Context, postIDs []int64, status models.MailStatus) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var marked []int64

	for _, id := range postIDs {
		post, exists := r.posts[id]
		if !exists || post.Mailed != models.MailPending {
			continue
		}

		post.Mailed = status
		post.MailNow = false

		marked = append(marked, id)
	}

	return marked, nil
}

func (r *PostRepository) RefreshDiscussionLastPost(ctx context.Context, discussionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	discussion, exists := r.discussions[discussionID]
	if !exists {
		return &errors.ErrDiscussionNotFound{DiscussionID: discussionID}
	}

	var last *models.Post

	for _, post := range r.posts {
		if post.DiscussionID != discussionID {
			continue
		}

		if last == nil || post.Modified.After(last.Modified) ||
			(post.Modified.Equal(last.Modified) && post.ID > last.ID) {
			last = post
		}
	}

	if last == nil {
		return nil
	}

	discussion.LastPostID = last.ID
	discussion.LastModified = last.Modified
	discussion.LastModifiedBy = last.AuthorID

	return nil
}
