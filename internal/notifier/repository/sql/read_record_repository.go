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

type ReadRecordRepository struct {
	db *database.PostgresDB
}

func NewReadRecordRepository(db *database.PostgresDB) *ReadRecordRepository {
	return &ReadRecordRepository{db: db}
}

func (r *ReadRecordRepository) Upsert(ctx context.Context, record *models.ReadRecord) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		`INSERT INTO forum_read (user_id, post_id, discussion_id, forum_id, first_read, last_read)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, post_id) DO UPDATE SET last_read = EXCLUDED.last_read`,
		record.UserID, record.PostID, record.DiscussionID, record.ForumID, record.FirstRead, record.LastRead)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении отметки о прочтении: %w", err)
	}

	return nil
}

func (r *ReadRecordRepository) Find(ctx context.Context, userID, postID int64) (*models.ReadRecord, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	record := &models.ReadRecord{UserID: userID, PostID: postID}

	err := querier.QueryRow(ctx,
		"SELECT discussion_id, forum_id, first_read, last_read FROM forum_read WHERE user_id = $1 AND post_id = $2",
		userID, postID).Scan(&record.DiscussionID, &record.ForumID, &record.FirstRead, &record.LastRead)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrReadRecordNotFound{UserID: userID, PostID: postID}
		}

		return nil, fmt.Errorf("ошибка при поиске отметки о прочтении: %w", err)
	}

	return record, nil
}

func (r *ReadRecordRepository) FindReadPostIDs(ctx context.Context, userID int64, postIDs []int64) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if len(postIDs) == 0 {
		return nil, nil
	}

	rows, err := querier.Query(ctx,
		"SELECT post_id FROM forum_read WHERE user_id = $1 AND post_id = ANY($2)",
		userID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе существующих отметок: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании идентификатора поста: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса отметок: %w", err)
	}

	return ids, nil
}

func (r *ReadRecordRepository) TouchLastRead(ctx context.Context, userID int64, postIDs []int64, readAt time.Time) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if len(postIDs) == 0 {
		return nil
	}

	_, err := querier.Exec(ctx,
		"UPDATE forum_read SET last_read = $1 WHERE user_id = $2 AND post_id = ANY($3)",
		readAt, userID, postIDs)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении времени прочтения: %w", err)
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
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if len(postIDs) == 0 {
		return nil
	}

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
		return fmt.Errorf("ошибка при массовой вставке отметок о прочтении: %w", err)
	}

	return nil
}

func (r *ReadRecordRepository) UnreadPostIDsInDiscussion(
	ctx context.Context,
	userID, discussionID int64,
	cutoff time.Time,
) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		`SELECT p.id FROM posts p
		LEFT JOIN forum_read fr ON fr.post_id = p.id AND fr.user_id = $1
		WHERE p.discussion_id = $2 AND p.modified >= $3 AND fr.post_id IS NULL
		ORDER BY p.id`,
		userID, discussionID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе непрочитанных постов обсуждения: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *ReadRecordRepository) UnreadPostIDsInForum(
	ctx context.Context,
	userID, forumID int64,
	cutoff time.Time,
	groupID *int64,
) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query := `SELECT p.id FROM posts p
		JOIN discussions d ON d.id = p.discussion_id
		LEFT JOIN forum_read fr ON fr.post_id = p.id AND fr.user_id = $1
		WHERE d.forum_id = $2 AND p.modified >= $3 AND fr.post_id IS NULL`
	args := []any{userID, forumID, cutoff}

	if groupID != nil {
		query += " AND d.group_id IN ($4, $5)"
		args = append(args, *groupID, models.GroupAll)
	}

	query += " ORDER BY p.id"

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе непрочитанных постов форума: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании идентификатора: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса: %w", err)
	}

	return ids, nil
}

func (r *ReadRecordRepository) CountUnreadInDiscussion(
	ctx context.Context,
	userID, discussionID int64,
	cutoff, now time.Time,
) (int, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var count int

	err := querier.QueryRow(ctx,
		`SELECT COUNT(p.id) FROM posts p
		JOIN discussions d ON d.id = p.discussion_id
		LEFT JOIN forum_read fr ON fr.post_id = p.id AND fr.user_id = $1
		WHERE p.discussion_id = $2 AND p.modified >= $3 AND fr.post_id IS NULL
			AND (d.time_start IS NULL OR d.time_start <= $4)
			AND (d.time_end IS NULL OR d.time_end > $4)`,
		userID, discussionID, cutoff, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте непрочитанных постов обсуждения: %w", err)
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

	query := `SELECT COUNT(p.id) FROM posts p
		JOIN discussions d ON d.id = p.discussion_id
		LEFT JOIN forum_read fr ON fr.post_id = p.id AND fr.user_id = $1
		WHERE d.forum_id = $2 AND p.modified >= $3 AND fr.post_id IS NULL
			AND (d.time_start IS NULL OR d.time_start <= $4)
			AND (d.time_end IS NULL OR d.time_end > $4)`
	args := []any{userID, forumID, cutoff, now}

	if groupIDs != nil {
		query += " AND (d.group_id = ANY($5) OR d.group_id = $6)"
		args = append(args, groupIDs, models.GroupAll)
	}

	var count int

	err := querier.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте непрочитанных постов форума: %w", err)
	}

	return count, nil
}

func (r *ReadRecordRepository) UnreadCountsByCourse(
	ctx context.Context,
	userID, courseID int64,
	cutoff, now time.Time,
) (map[int64]int, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		`SELECT f.id, COUNT(p.id) FROM forums f
		JOIN discussions d ON d.forum_id = f.id
		JOIN posts p ON p.discussion_id = d.id
		LEFT JOIN forum_read fr ON fr.post_id = p.id AND fr.user_id = $1
		WHERE f.course_id = $2 AND p.modified >= $3 AND fr.post_id IS NULL
			AND (d.time_start IS NULL OR d.time_start <= $4)
			AND (d.time_end IS NULL OR d.time_end > $4)
		GROUP BY f.id`,
		userID, courseID, cutoff, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка при подсчёте непрочитанных постов курса: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)

	for rows.Next() {
		var (
			forumID int64
			count   int
		)

		if err := rows.Scan(&forumID, &count); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании счётчика форума: %w", err)
		}

		counts[forumID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов подсчёта: %w", err)
	}

	return counts, nil
}

func (r *ReadRecordRepository) Delete(ctx context.Context, filter models.ReadRecordFilter) (int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if filter.Empty() {
		return 0, &customerrors.ErrEmptyReadRecordFilter{}
	}

	query := "DELETE FROM forum_read WHERE 1=1"

	var args []any

	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	if filter.PostID != 0 {
		args = append(args, filter.PostID)
		query += fmt.Sprintf(" AND post_id = $%d", len(args))
	}

	if filter.DiscussionID != 0 {
		args = append(args, filter.DiscussionID)
		query += fmt.Sprintf(" AND discussion_id = $%d", len(args))
	}

	if filter.ForumID != 0 {
		args = append(args, filter.ForumID)
		query += fmt.Sprintf(" AND forum_id = $%d", len(args))
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка при удалении отметок о прочтении: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *ReadRecordRepository) OldestTrackedPostModified(ctx context.Context) (time.Time, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var oldest *time.Time

	err := querier.QueryRow(ctx,
		"SELECT MIN(p.modified) FROM forum_read fr JOIN posts p ON p.id = fr.post_id").Scan(&oldest)
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка при поиске самой старой отметки: %w", err)
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
		return 0, fmt.Errorf("ошибка при очистке устаревших отметок: %w", err)
	}

	return result.RowsAffected(), nil
}
