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

type ReadRecordRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewReadRecordRepository(db *database.PostgresDB) *ReadRecordRepository {
	return &ReadRecordRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ReadRecordRepository) Upsert(ctx context.Context, record *models.ReadRecord) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	insertQuery := r.sq.Insert("forum_read").
		Columns("user_id", "post_id", "discussion_id", "forum_id", "first_read", "last_read").
		Values(record.UserID, record.PostID, record.DiscussionID, record.ForumID,
			record.FirstRead, record.LastRead).
		Suffix("ON CONFLICT (user_id, post_id) DO UPDATE SET last_read = EXCLUDED.last_read")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение отметки о прочтении", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение отметки о прочтении", Cause: err}
	}

	return nil
}

func (r *ReadRecordRepository) Find(ctx context.Context, userID, postID int64) (*models.ReadRecord, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("discussion_id", "forum_id", "first_read", "last_read").
		From("forum_read").
		Where(sq.Eq{"user_id": userID, "post_id": postID})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск отметки о прочтении", Cause: err}
	}

	record := &models.ReadRecord{UserID: userID, PostID: postID}

	err = querier.QueryRow(ctx, query, args...).Scan(
		&record.DiscussionID,
		&record.ForumID,
		&record.FirstRead,
		&record.LastRead,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrReadRecordNotFound{UserID: userID, PostID: postID}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск отметки о прочтении", Cause: err}
	}

	return record, nil
}

func (r *ReadRecordRepository) FindReadPostIDs(ctx context.Context, userID int64, postIDs []int64) ([]int64, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("post_id").
		From("forum_read").
		Where(sq.Eq{"user_id": userID, "post_id": postIDs})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение существующих отметок", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение существующих отметок", Cause: err}
	}
	defer rows.Close()

	return scanIDs(rows, "идентификатор поста")
}

func (r *ReadRecordRepository) TouchLastRead(ctx context.Context, userID int64, postIDs []int64, readAt time.Time) error {
	if len(postIDs) == 0 {
		return nil
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	updateQuery := r.sq.Update("forum_read").
		Set("last_read", readAt).
		Where(sq.Eq{"user_id": userID, "post_id": postIDs})

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "обновление времени прочтения", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "обновление времени прочтения", Cause: err}
	}

	return nil
}

// InsertForPosts вставляет отметки только для постов новее cutoff и только
// для форумов, которые отслеживаемы для пользователя: принудительный режим
// проходит без учёта личной настройки лишь когда сайт разрешает
// принудительное отслеживание.
func (r *ReadRecordRepository) InsertForPosts(
	ctx context.Context,
	userID int64,
	postIDs []int64,
	cutoff, readAt time.Time,
	trackPref, allowForced bool,
) error {
	if len(postIDs) == 0 {
		return nil
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		`INSERT INTO forum_read (user_id, post_id, discussion_id, forum_id, first_read, last_read)
		SELECT $1, p.id, d.id, d.forum_id, $2, $2
		FROM posts p
		JOIN discussions d ON d.id = p.discussion_id
		JOIN forums f ON f.id = d.forum_id
		WHERE p.id = ANY($3)
			AND p.modified >= $4
			AND (
				(f.tracking_mode = $5 AND $6)
				OR (f.tracking_mode IN ($5, $7) AND $8)
			)
		ON CONFLICT (user_id, post_id) DO UPDATE SET last_read = EXCLUDED.last_read`,
		userID, readAt, postIDs, cutoff,
		models.TrackingForced, allowForced, models.TrackingOptional, trackPref)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "массовая вставка отметок о прочтении", Cause: err}
	}

	return nil
}

func (r *ReadRecordRepository) UnreadPostIDsInDiscussion(
	ctx context.Context,
	userID, discussionID int64,
	cutoff time.Time,
) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("p.id").
		From("posts p").
		LeftJoin("forum_read fr ON fr.post_id = p.id AND fr.user_id = ?", userID).
		Where(sq.Eq{"p.discussion_id": discussionID}).
		Where(sq.GtOrEq{"p.modified": cutoff}).
		Where("fr.post_id IS NULL").
		OrderBy("p.id")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение непрочитанных постов обсуждения", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение непрочитанных постов обсуждения", Cause: err}
	}
	defer rows.Close()

	return scanIDs(rows, "идентификатор поста")
}

func (r *ReadRecordRepository) UnreadPostIDsInForum(
	ctx context.Context,
	userID, forumID int64,
	cutoff time.Time,
	groupID *int64,
) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("p.id").
		From("posts p").
		Join("discussions d ON d.id = p.discussion_id").
		LeftJoin("forum_read fr ON fr.post_id = p.id AND fr.user_id = ?", userID).
		Where(sq.Eq{"d.forum_id": forumID}).
		Where(sq.GtOrEq{"p.modified": cutoff}).
		Where("fr.post_id IS NULL")

	if groupID != nil {
		selectQuery = selectQuery.Where(sq.Eq{"d.group_id": []int64{*groupID, models.GroupAll}})
	}

	selectQuery = selectQuery.OrderBy("p.id")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение непрочитанных постов форума", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение непрочитанных постов форума", Cause: err}
	}
	defer rows.Close()

	return scanIDs(rows, "идентификатор поста")
}

func (r *ReadRecordRepository) CountUnreadInDiscussion(
	ctx context.Context,
	userID, discussionID int64,
	cutoff, now time.Time,
) (int, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("COUNT(p.id)").
		From("posts p").
		Join("discussions d ON d.id = p.discussion_id").
		LeftJoin("forum_read fr ON fr.post_id = p.id AND fr.user_id = ?", userID).
		Where(sq.Eq{"p.discussion_id": discussionID}).
		Where(sq.GtOrEq{"p.modified": cutoff}).
		Where("fr.post_id IS NULL").
		Where(sq.Or{sq.Eq{"d.time_start": nil}, sq.LtOrEq{"d.time_start": now}}).
		Where(sq.Or{sq.Eq{"d.time_end": nil}, sq.Gt{"d.time_end": now}})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return 0, &customerrors.ErrBuildSQLQuery{Operation: "подсчёт непрочитанных постов обсуждения", Cause: err}
	}

	var count int

	err = querier.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "подсчёт непрочитанных постов обсуждения", Cause: err}
	}

	return count, nil
}

func (r *ReadRecordRepository) CountUnreadInForum(
	ctx context.Context,
	userID, forumID int64,
	cutoff, now time.Time,
	groupIDs []int64,
) (int, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("COUNT(p.id)").
		From("posts p").
		Join("discussions d ON d.id = p.discussion_id").
		LeftJoin("forum_read fr ON fr.post_id = p.id AND fr.user_id = ?", userID).
		Where(sq.Eq{"d.forum_id": forumID}).
		Where(sq.GtOrEq{"p.modified": cutoff}).
		Where("fr.post_id IS NULL").
		Where(sq.Or{sq.Eq{"d.time_start": nil}, sq.LtOrEq{"d.time_start": now}}).
		Where(sq.Or{sq.Eq{"d.time_end": nil}, sq.Gt{"d.time_end": now}})

	if groupIDs != nil {
		selectQuery = selectQuery.Where(sq.Or{
			sq.Eq{"d.group_id": groupIDs},
			sq.Eq{"d.group_id": models.GroupAll},
		})
	}

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return 0, &customerrors.ErrBuildSQLQuery{Operation: "подсчёт непрочитанных постов форума", Cause: err}
	}

	var count int

	err = querier.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "подсчёт непрочитанных постов форума", Cause: err}
	}

	return count, nil
}

func (r *ReadRecordRepository) UnreadCountsByCourse(
	ctx context.Context,
	userID, courseID int64,
	cutoff, now time.Time,
) (map[int64]int, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("f.id", "COUNT(p.id)").
		From("forums f").
		Join("discussions d ON d.forum_id = f.id").
		Join("posts p ON p.discussion_id = d.id").
		LeftJoin("forum_read fr ON fr.post_id = p.id AND fr.user_id = ?", userID).
		Where(sq.Eq{"f.course_id": courseID}).
		Where(sq.GtOrEq{"p.modified": cutoff}).
		Where("fr.post_id IS NULL").
		Where(sq.Or{sq.Eq{"d.time_start": nil}, sq.LtOrEq{"d.time_start": now}}).
		Where(sq.Or{sq.Eq{"d.time_end": nil}, sq.Gt{"d.time_end": now}}).
		GroupBy("f.id")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "подсчёт непрочитанных постов курса", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "подсчёт непрочитанных постов курса", Cause: err}
	}
	defer rows.Close()

	counts := make(map[int64]int)

	for rows.Next() {
		var (
			forumID int64
			count   int
		)

		err = rows.Scan(&forumID, &count)
		if err != nil {
			return nil, &customerrors.ErrSQLExecution{Operation: "чтение счётчика форума", Cause: err}
		}

		counts[forumID] = count
	}

	if err = rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return counts, nil
}

func (r *ReadRecordRepository) Delete(ctx context.Context, filter models.ReadRecordFilter) (int64, error) {
	if filter.Empty() {
		return 0, &customerrors.ErrEmptyReadRecordFilter{}
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("forum_read")

	if filter.UserID != 0 {
		deleteQuery = deleteQuery.Where(sq.Eq{"user_id": filter.UserID})
	}

	if filter.PostID != 0 {
		deleteQuery = deleteQuery.Where(sq.Eq{"post_id": filter.PostID})
	}

	if filter.DiscussionID != 0 {
		deleteQuery = deleteQuery.Where(sq.Eq{"discussion_id": filter.DiscussionID})
	}

	if filter.ForumID != 0 {
		deleteQuery = deleteQuery.Where(sq.Eq{"forum_id": filter.ForumID})
	}

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return 0, &customerrors.ErrBuildSQLQuery{Operation: "удаление отметок о прочтении", Cause: err}
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "удаление отметок о прочтении", Cause: err}
	}

	return result.RowsAffected(), nil
}

func (r *ReadRecordRepository) OldestTrackedPostModified(ctx context.Context) (time.Time, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("MIN(p.modified)").
		From("forum_read fr").
		Join("posts p ON p.id = fr.post_id")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return time.Time{}, &customerrors.ErrBuildSQLQuery{Operation: "поиск самой старой отметки", Cause: err}
	}

	var oldest *time.Time

	err = querier.QueryRow(ctx, query, args...).Scan(&oldest)
	if err != nil {
		return time.Time{}, &customerrors.ErrSQLExecution{Operation: "поиск самой старой отметки", Cause: err}
	}

	return timeValue(oldest), nil
}

func (r *ReadRecordRepository) DeleteStale(ctx context.Context, lowerBound, cutoff time.Time) (int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	result, err := querier.Exec(ctx,
		`DELETE FROM forum_read WHERE post_id IN (
			SELECT id FROM posts WHERE modified >= $1 AND modified < $2
		)`,
		lowerBound, cutoff)
	if err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "очистка устаревших отметок", Cause: err}
	}

	return result.RowsAffected(), nil
}
