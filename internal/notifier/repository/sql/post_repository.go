package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/database"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type PostRepository struct {
	db *database.PostgresDB
}

func NewPostRepository(db *database.PostgresDB) *PostRepository {
	return &PostRepository{db: db}
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}

func (r *PostRepository) SaveForum(ctx context.Context, forum *models.Forum) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if forum.ID == 0 {
		err := querier.QueryRow(ctx,
			`INSERT INTO forums (course_id, name, tracking_mode, subscription_mode, qanda)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			forum.CourseID, forum.Name, forum.TrackingMode, forum.SubscriptionMode, forum.QAndA).Scan(&forum.ID)
		if err != nil {
			return fmt.Errorf("ошибка при сохранении форума: %w", err)
		}

		return nil
	}

	_, err := querier.Exec(ctx,
		`UPDATE forums SET course_id = $1, name = $2, tracking_mode = $3, subscription_mode = $4, qanda = $5
		WHERE id = $6`,
		forum.CourseID, forum.Name, forum.TrackingMode, forum.SubscriptionMode, forum.QAndA, forum.ID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении форума: %w", err)
	}

	return nil
}

func (r *PostRepository) FindForumByID(ctx context.Context, id int64) (*models.Forum, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	forum := &models.Forum{ID: id}

	err := querier.QueryRow(ctx,
		"SELECT course_id, name, tracking_mode, subscription_mode, qanda FROM forums WHERE id = $1",
		id).Scan(&forum.CourseID, &forum.Name, &forum.TrackingMode, &forum.SubscriptionMode, &forum.QAndA)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrForumNotFound{ForumID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске форума по ID: %w", err)
	}

	return forum, nil
}

func (r *PostRepository) FindForumIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		"SELECT id FROM forums WHERE course_id = $1 ORDER BY id", courseID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе форумов курса: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании идентификатора форума: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса форумов: %w", err)
	}

	return ids, nil
}

func (r *PostRepository) SaveDiscussion(ctx context.Context, discussion *models.Discussion) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if discussion.ID == 0 {
		err := querier.QueryRow(ctx,
			`INSERT INTO discussions (forum_id, name, group_id, time_start, time_end, last_post_id, last_modified, last_modified_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			discussion.ForumID, discussion.Name, discussion.GroupID,
			nullableTime(discussion.TimeStart), nullableTime(discussion.TimeEnd),
			discussion.LastPostID, discussion.LastModified, discussion.LastModifiedBy).Scan(&discussion.ID)
		if err != nil {
			return fmt.Errorf("ошибка при сохранении обсуждения: %w", err)
		}

		return nil
	}

	_, err := querier.Exec(ctx,
		`UPDATE discussions SET forum_id = $1, name = $2, group_id = $3, time_start = $4, time_end = $5,
		last_post_id = $6, last_modified = $7, last_modified_by = $8 WHERE id = $9`,
		discussion.ForumID, discussion.Name, discussion.GroupID,
		nullableTime(discussion.TimeStart), nullableTime(discussion.TimeEnd),
		discussion.LastPostID, discussion.LastModified, discussion.LastModifiedBy, discussion.ID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении обсуждения: %w", err)
	}

	return nil
}

func (r *PostRepository) FindDiscussionByID(ctx context.Context, id int64) (*models.Discussion, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	discussion := &models.Discussion{ID: id}

	var timeStart, timeEnd *time.Time

	err := querier.QueryRow(ctx,
		`SELECT forum_id, name, group_id, time_start, time_end, last_post_id, last_modified, last_modified_by
		FROM discussions WHERE id = $1`,
		id).Scan(&discussion.ForumID, &discussion.Name, &discussion.GroupID,
		&timeStart, &timeEnd, &discussion.LastPostID, &discussion.LastModified, &discussion.LastModifiedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrDiscussionNotFound{DiscussionID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске обсуждения по ID: %w", err)
	}

	discussion.TimeStart = timeValue(timeStart)
	discussion.TimeEnd = timeValue(timeEnd)

	return discussion, nil
}

func (r *PostRepository) DeleteDiscussion(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	result, err := querier.Exec(ctx, "DELETE FROM discussions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении обсуждения: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrDiscussionNotFound{DiscussionID: id}
	}

	return nil
}

func (r *PostRepository) SavePost(ctx context.Context, post *models.Post) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if post.ID == 0 {
		err := querier.QueryRow(ctx,
			`INSERT INTO posts (discussion_id, parent_id, author_id, subject, body, body_format, created, modified, mailed, mail_now)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
			post.DiscussionID, post.ParentID, post.AuthorID, post.Subject, post.Body, post.BodyFormat,
			post.Created, post.Modified, post.Mailed, post.MailNow).Scan(&post.ID)
		if err != nil {
			return fmt.Errorf("ошибка при сохранении поста: %w", err)
		}

		return nil
	}

	_, err := querier.Exec(ctx,
		`UPDATE posts SET discussion_id = $1, parent_id = $2, author_id = $3, subject = $4, body = $5,
		body_format = $6, created = $7, modified = $8, mailed = $9, mail_now = $10 WHERE id = $11`,
		post.DiscussionID, post.ParentID, post.AuthorID, post.Subject, post.Body, post.BodyFormat,
		post.Created, post.Modified, post.Mailed, post.MailNow, post.ID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении поста: %w", err)
	}

	return nil
}

func (r *PostRepository) FindPostByID(ctx context.Context, id int64) (*models.Post, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	post := &models.Post{ID: id}

	err := querier.QueryRow(ctx,
		`SELECT discussion_id, parent_id, author_id, subject, body, body_format, created, modified, mailed, mail_now
		FROM posts WHERE id = $1`,
		id).Scan(&post.DiscussionID, &post.ParentID, &post.AuthorID, &post.Subject, &post.Body,
		&post.BodyFormat, &post.Created, &post.Modified, &post.Mailed, &post.MailNow)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrPostNotFound{PostID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске поста по ID: %w", err)
	}

	return post, nil
}

func (r *PostRepository) DeletePost(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	result, err := querier.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении поста: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrPostNotFound{PostID: id}
	}

	return nil
}

func (r *PostRepository) HasUserPosted(ctx context.Context, discussionID, userID int64) (bool, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var exists bool

	err := querier.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM posts WHERE discussion_id = $1 AND author_id = $2)",
		discussionID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке постов пользователя в обсуждении: %w", err)
	}

	return exists, nil
}

func (r *PostRepository) FindPendingPosts(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.Post, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		`SELECT id, discussion_id, parent_id, author_id, subject, body, body_format, created, modified, mailed, mail_now
		FROM posts
		WHERE mailed = $1 AND ((created >= $2 AND created < $3) OR mail_now)
		ORDER BY modified`,
		models.MailPending, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе неразосланных постов: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post

	for rows.Next() {
		post := &models.Post{}
		if err := rows.Scan(&post.ID, &post.DiscussionID, &post.ParentID, &post.AuthorID, &post.Subject,
			&post.Body, &post.BodyFormat, &post.Created, &post.Modified, &post.Mailed, &post.MailNow); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании поста: %w", err)
		}

		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса постов: %w", err)
	}

	return posts, nil
}

func (r *PostRepository) MarkPostsMailed(ctx context.Context, postIDs []int64, status models.MailStatus) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if len(postIDs) == 0 {
		return nil, nil
	}

	rows, err := querier.Query(ctx,
		"UPDATE posts SET mailed = $1, mail_now = FALSE WHERE id = ANY($2) AND mailed = $3 RETURNING id",
		status, postIDs, models.MailPending)
	if err != nil {
		return nil, fmt.Errorf("ошибка при пометке постов как разосланных: %w", err)
	}
	defer rows.Close()

	var marked []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании идентификатора поста: %w", err)
		}

		marked = append(marked, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов пометки постов: %w", err)
	}

	return marked, nil
}

func (r *PostRepository) RefreshDiscussionLastPost(ctx context.Context, discussionID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		`UPDATE discussions d SET last_post_id = COALESCE(p.id, 0),
			last_modified = COALESCE(p.modified, d.last_modified),
			last_modified_by = COALESCE(p.author_id, 0)
		FROM (
			SELECT id, modified, author_id FROM posts
			WHERE discussion_id = $1
			ORDER BY modified DESC, id DESC
			LIMIT 1
		) p
		WHERE d.id = $1`,
		discussionID)
	if err != nil {
		return fmt.Errorf("ошибка при пересчёте последнего поста обсуждения: %w", err)
	}

	return nil
}
