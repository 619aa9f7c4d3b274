package orm

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/central-university-dev/go-forum-notify/internal/database"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type PostRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewPostRepository(db *database.PostgresDB) *PostRepository {
	return &PostRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
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
		insertQuery := r.sq.Insert("forums").
			Columns("course_id", "name", "tracking_mode", "subscription_mode", "qanda").
			Values(forum.CourseID, forum.Name, forum.TrackingMode, forum.SubscriptionMode, forum.QAndA).
			Suffix("RETURNING id")

		query, args, err := insertQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "вставка форума", Cause: err}
		}

		err = querier.QueryRow(ctx, query, args...).Scan(&forum.ID)
		if err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение форума", Cause: err}
		}

		return nil
	}

	updateQuery := r.sq.Update("forums").
		Set("course_id", forum.CourseID).
		Set("name", forum.Name).
		Set("tracking_mode", forum.TrackingMode).
		Set("subscription_mode", forum.SubscriptionMode).
		Set("qanda", forum.QAndA).
		Where(sq.Eq{"id": forum.ID})

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "обновление форума", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "обновление форума", Cause: err}
	}

	return nil
}

func (r *PostRepository) FindForumByID(ctx context.Context, id int64) (*models.Forum, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("course_id", "name", "tracking_mode", "subscription_mode", "qanda").
		From("forums").
		Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск форума по ID", Cause: err}
	}

	forum := &models.Forum{ID: id}

	err = querier.QueryRow(ctx, query, args...).Scan(
		&forum.CourseID,
		&forum.Name,
		&forum.TrackingMode,
		&forum.SubscriptionMode,
		&forum.QAndA,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrForumNotFound{ForumID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск форума по ID", Cause: err}
	}

	return forum, nil
}

func (r *PostRepository) FindForumIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id").
		From("forums").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("id")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение форумов курса", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение форумов курса", Cause: err}
	}
	defer rows.Close()

	return scanIDs(rows, "идентификатор форума")
}

func (r *PostRepository) SaveDiscussion(ctx context.Context, discussion *models.Discussion) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if discussion.ID == 0 {
		insertQuery := r.sq.Insert("discussions").
			Columns("forum_id", "name", "group_id", "time_start", "time_end",
				"last_post_id", "last_modified", "last_modified_by").
			Values(discussion.ForumID, discussion.Name, discussion.GroupID,
				nullableTime(discussion.TimeStart), nullableTime(discussion.TimeEnd),
				discussion.LastPostID, discussion.LastModified, discussion.LastModifiedBy).
			Suffix("RETURNING id")

		query, args, err := insertQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "вставка обсуждения", Cause: err}
		}

		err = querier.QueryRow(ctx, query, args...).Scan(&discussion.ID)
		if err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение обсуждения", Cause: err}
		}

		return nil
	}

	updateQuery := r.sq.Update("discussions").
		Set("forum_id", discussion.ForumID).
		Set("name", discussion.Name).
		Set("group_id", discussion.GroupID).
		Set("time_start", nullableTime(discussion.TimeStart)).
		Set("time_end", nullableTime(discussion.TimeEnd)).
		Set("last_post_id", discussion.LastPostID).
		Set("last_modified", discussion.LastModified).
		Set("last_modified_by", discussion.LastModifiedBy).
		Where(sq.Eq{"id": discussion.ID})

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "обновление обсуждения", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "обновление обсуждения", Cause: err}
	}

	return nil
}

func (r *PostRepository) FindDiscussionByID(ctx context.Context, id int64) (*models.Discussion, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("forum_id", "name", "group_id", "time_start", "time_end",
		"last_post_id", "last_modified", "last_modified_by").
		From("discussions").
		Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск обсуждения по ID", Cause: err}
	}

	discussion := &models.Discussion{ID: id}

	var timeStart, timeEnd *time.Time

	err = querier.QueryRow(ctx, query, args...).Scan(
		&discussion.ForumID,
		&discussion.Name,
		&discussion.GroupID,
		&timeStart,
		&timeEnd,
		&discussion.LastPostID,
		&discussion.LastModified,
		&discussion.LastModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrDiscussionNotFound{DiscussionID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск обсуждения по ID", Cause: err}
	}

	discussion.TimeStart = timeValue(timeStart)
	discussion.TimeEnd = timeValue(timeEnd)

	return discussion, nil
}

func (r *PostRepository) DeleteDiscussion(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("discussions").Where(sq.Eq{"id": id})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление обсуждения", Cause: err}
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление обсуждения", Cause: err}
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrDiscussionNotFound{DiscussionID: id}
	}

	return nil
}

func (r *PostRepository) SavePost(ctx context.Context, post *models.Post) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if post.ID == 0 {
		insertQuery := r.sq.Insert("posts").
			Columns("discussion_id", "parent_id", "author_id", "subject", "body",
				"body_format", "created", "modified", "mailed", "mail_now").
			Values(post.DiscussionID, post.ParentID, post.AuthorID, post.Subject, post.Body,
				post.BodyFormat, post.Created, post.Modified, post.Mailed, post.MailNow).
			Suffix("RETURNING id")

		query, args, err := insertQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "вставка поста", Cause: err}
		}

		err = querier.QueryRow(ctx, query, args...).Scan(&post.ID)
		if err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение поста", Cause: err}
		}

		return nil
	}

	updateQuery := r.sq.Update("posts").
		Set("discussion_id", post.DiscussionID).
		Set("parent_id", post.ParentID).
		Set("author_id", post.AuthorID).
		Set("subject", post.Subject).
		Set("body", post.Body).
		Set("body_format", post.BodyFormat).
		Set("created", post.Created).
		Set("modified", post.Modified).
		Set("mailed", post.Mailed).
		Set("mail_now", post.MailNow).
		Where(sq.Eq{"id": post.ID})

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "обновление поста", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "обновление поста", Cause: err}
	}

	return nil
}

func (r *PostRepository) FindPostByID(ctx context.Context, id int64) (*models.Post, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("discussion_id", "parent_id", "author_id", "subject", "body",
		"body_format", "created", "modified", "mailed", "mail_now").
		From("posts").
		Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск поста по ID", Cause: err}
	}

	post := &models.Post{ID: id}

	err = querier.QueryRow(ctx, query, args...).Scan(
		&post.DiscussionID,
		&post.ParentID,
		&post.AuthorID,
		&post.Subject,
		&post.Body,
		&post.BodyFormat,
		&post.Created,
		&post.Modified,
		&post.Mailed,
		&post.MailNow,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrPostNotFound{PostID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск поста по ID", Cause: err}
	}

	return post, nil
}

func (r *PostRepository) DeletePost(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("posts").Where(sq.Eq{"id": id})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление поста", Cause: err}
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление поста", Cause: err}
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrPostNotFound{PostID: id}
	}

	return nil
}

func (r *PostRepository) HasUserPosted(ctx context.Context, discussionID, userID int64) (bool, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	existsQuery := r.sq.Select("1").
		From("posts").
		Where(sq.Eq{"discussion_id": discussionID, "author_id": userID}).
		Limit(1)

	query, args, err := existsQuery.ToSql()
	if err != nil {
		return false, &customerrors.ErrBuildSQLQuery{Operation: "проверка постов пользователя", Cause: err}
	}

	var exists bool

	err = querier.QueryRow(ctx, "SELECT EXISTS("+query+")", args...).Scan(&exists)
	if err != nil {
		return false, &customerrors.ErrSQLExecution{Operation: "проверка постов пользователя", Cause: err}
	}

	return exists, nil
}

func (r *PostRepository) FindPendingPosts(ctx context.Context, windowStart, windowEnd time.Time) ([]*models.Post, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id", "discussion_id", "parent_id", "author_id", "subject", "body",
		"body_format", "created", "modified", "mailed", "mail_now").
		From("posts").
		Where(sq.Eq{"mailed": models.MailPending}).
		Where(sq.Or{
			sq.And{
				sq.GtOrEq{"created": windowStart},
				sq.Lt{"created": windowEnd},
			},
			sq.Eq{"mail_now": true},
		}).
		OrderBy("modified")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение неразосланных постов", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение неразосланных постов", Cause: err}
	}
	defer rows.Close()

	var posts []*models.Post

	for rows.Next() {
		post := &models.Post{}

		err = rows.Scan(&post.ID, &post.DiscussionID, &post.ParentID, &post.AuthorID, &post.Subject,
			&post.Body, &post.BodyFormat, &post.Created, &post.Modified, &post.Mailed, &post.MailNow)
		if err != nil {
			return nil, &customerrors.ErrSQLExecution{Operation: "чтение поста", Cause: err}
		}

		posts = append(posts, post)
	}

	if err = rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return posts, nil
}

func (r *PostRepository) MarkPostsMailed(ctx context.Context, postIDs []int64, status models.MailStatus) ([]int64, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	updateQuery := r.sq.Update("posts").
		Set("mailed", status).
		Set("mail_now", false).
		Where(sq.Eq{"id": postIDs, "mailed": models.MailPending}).
		Suffix("RETURNING id")

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "пометка разосланных постов", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "пометка разосланных постов", Cause: err}
	}
	defer rows.Close()

	return scanIDs(rows, "идентификатор поста")
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
		return &customerrors.ErrSQLExecution{Operation: "пересчёт последнего поста обсуждения", Cause: err}
	}

	return nil
}

func scanIDs(rows pgx.Rows, what string) ([]int64, error) {
	var ids []int64

	for rows.Next() {
		var id int64

		if err := rows.Scan(&id); err != nil {
			return nil, &customerrors.ErrSQLExecution{Operation: "чтение: " + what, Cause: err}
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return ids, nil
}
