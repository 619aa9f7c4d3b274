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

const lastDigestRunKey = "last_digest_run"

type DigestQueueRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewDigestQueueRepository(db *database.PostgresDB) *DigestQueueRepository {
	return &DigestQueueRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *DigestQueueRepository) Enqueue(ctx context.Context, entry *models.DigestQueueEntry) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	insertQuery := r.sq.Insert("forum_queue").
		Columns("user_id", "discussion_id", "post_id", "post_time").
		Values(entry.UserID, entry.DiscussionID, entry.PostID, entry.PostTime).
		Suffix("RETURNING id")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "добавление записи в очередь дайджестов", Cause: err}
	}

	err = querier.QueryRow(ctx, query, args...).Scan(&entry.ID)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "добавление записи в очередь дайджестов", Cause: err}
	}

	return nil
}

func (r *DigestQueueRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("forum_queue").
		Where(sq.Lt{"post_time": cutoff})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return 0, &customerrors.ErrBuildSQLQuery{Operation: "очистка очереди дайджестов", Cause: err}
	}

	result, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "очистка очереди дайджестов", Cause: err}
	}

	return result.RowsAffected(), nil
}

func (r *DigestQueueRepository) UserIDsWithEntries(ctx context.Context) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("DISTINCT user_id").
		From("forum_queue").
		OrderBy("user_id")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение пользователей с дайджестами", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение пользователей с дайджестами", Cause: err}
	}
	defer rows.Close()

	return scanIDs(rows, "идентификатор пользователя")
}

func (r *DigestQueueRepository) FindByUser(ctx context.Context, userID int64) ([]*models.DigestQueueEntry, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("id", "user_id", "discussion_id", "post_id", "post_time").
		From("forum_queue").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение очереди дайджестов", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение очереди дайджестов", Cause: err}
	}
	defer rows.Close()

	var entries []*models.DigestQueueEntry

	for rows.Next() {
		entry := &models.DigestQueueEntry{}

		err = rows.Scan(&entry.ID, &entry.UserID, &entry.DiscussionID, &entry.PostID, &entry.PostTime)
		if err != nil {
			return nil, &customerrors.ErrSQLExecution{Operation: "чтение записи очереди дайджестов", Cause: err}
		}

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов", Cause: err}
	}

	return entries, nil
}

func (r *DigestQueueRepository) DeleteByUser(ctx context.Context, userID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("forum_queue").
		Where(sq.Eq{"user_id": userID})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление очереди дайджестов пользователя", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление очереди дайджестов пользователя", Cause: err}
	}

	return nil
}

func (r *DigestQueueRepository) LastDigestRun(ctx context.Context) (time.Time, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("value").
		From("notifier_state").
		Where(sq.Eq{"key": lastDigestRunKey})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return time.Time{}, &customerrors.ErrBuildSQLQuery{Operation: "чтение времени последней рассылки", Cause: err}
	}

	var value string

	err = querier.QueryRow(ctx, query, args...).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}

		return time.Time{}, &customerrors.ErrSQLExecution{Operation: "чтение времени последней рассылки", Cause: err}
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &customerrors.ErrSQLExecution{Operation: "разбор времени последней рассылки", Cause: err}
	}

	return t, nil
}

func (r *DigestQueueRepository) SetLastDigestRun(ctx context.Context, t time.Time) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	insertQuery := r.sq.Insert("notifier_state").
		Columns("key", "value").
		Values(lastDigestRunKey, t.Format(time.RFC3339)).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение времени последней рассылки", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение времени последней рассылки", Cause: err}
	}

	return nil
}
