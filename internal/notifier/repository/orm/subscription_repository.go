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

type SubscriptionRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewSubscriptionRepository(db *database.PostgresDB) *SubscriptionRepository {
	return &SubscriptionRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *SubscriptionRepository) Subscribe(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	insertQuery := r.sq.Insert("forum_subscriptions").
		Columns("user_id", "forum_id", "created_at").
		Values(userID, forumID, time.Now()).
		Suffix("ON CONFLICT DO NOTHING")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "создание подписки", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "создание подписки", Cause: err}
	}

	return nil
}

// Unsubscribe удаляет подписку вместе с настройкой дайджеста:
// отписка сбрасывает индивидуальный режим доставки.
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteSub := r.sq.Delete("forum_subscriptions").
		Where(sq.Eq{"user_id": userID, "forum_id": forumID})

	query, args, err := deleteSub.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление подписки", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление подписки", Cause: err}
	}

	deleteDigest := r.sq.Delete("forum_digests").
		Where(sq.Eq{"user_id": userID, "forum_id": forumID})

	query, args, err = deleteDigest.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сброс настройки дайджеста", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сброс настройки дайджеста", Cause: err}
	}

	return nil
}

func (r *SubscriptionRepository) IsSubscribed(ctx context.Context, userID, forumID int64) (bool, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	existsQuery := r.sq.Select("1").
		From("forum_subscriptions").
		Where(sq.Eq{"user_id": userID, "forum_id": forumID}).
		Limit(1)

	query, args, err := existsQuery.ToSql()
	if err != nil {
		return false, &customerrors.ErrBuildSQLQuery{Operation: "проверка подписки", Cause: err}
	}

	var exists bool

	err = querier.QueryRow(ctx, "SELECT EXISTS("+query+")", args...).Scan(&exists)
	if err != nil {
		return false, &customerrors.ErrSQLExecution{Operation: "проверка подписки", Cause: err}
	}

	return exists, nil
}

func (r *SubscriptionRepository) SubscriberIDs(ctx context.Context, forumID int64) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("user_id").
		From("forum_subscriptions").
		Where(sq.Eq{"forum_id": forumID}).
		OrderBy("user_id")

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение подписчиков форума", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "получение подписчиков форума", Cause: err}
	}
	defer rows.Close()

	return scanIDs(rows, "идентификатор пользователя")
}

func (r *SubscriptionRepository) SetDigestPreference(ctx context.Context, userID, forumID int64, mode models.DigestMode) error {
	if mode == models.DigestUseDefault {
		return r.DeleteDigestPreference(ctx, userID, forumID)
	}

	querier := txs.GetQuerier(ctx, r.db.Pool)

	insertQuery := r.sq.Insert("forum_digests").
		Columns("user_id", "forum_id", "mode").
		Values(userID, forumID, mode).
		Suffix("ON CONFLICT (user_id, forum_id) DO UPDATE SET mode = EXCLUDED.mode")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение настройки дайджеста", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение настройки дайджеста", Cause: err}
	}

	return nil
}

func (r *SubscriptionRepository) GetDigestPreference(ctx context.Context, userID, forumID int64) (models.DigestMode, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("mode").
		From("forum_digests").
		Where(sq.Eq{"user_id": userID, "forum_id": forumID})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return models.DigestUseDefault, &customerrors.ErrBuildSQLQuery{Operation: "чтение настройки дайджеста", Cause: err}
	}

	var mode models.DigestMode

	err = querier.QueryRow(ctx, query, args...).Scan(&mode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DigestUseDefault, nil
		}

		return models.DigestUseDefault, &customerrors.ErrSQLExecution{Operation: "чтение настройки дайджеста", Cause: err}
	}

	return mode, nil
}

func (r *SubscriptionRepository) DeleteDigestPreference(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("forum_digests").
		Where(sq.Eq{"user_id": userID, "forum_id": forumID})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление настройки дайджеста", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление настройки дайджеста", Cause: err}
	}

	return nil
}

func (r *SubscriptionRepository) AddTrackingOverride(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	insertQuery := r.sq.Insert("forum_track_prefs").
		Columns("user_id", "forum_id").
		Values(userID, forumID).
		Suffix("ON CONFLICT DO NOTHING")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "отключение отслеживания форума", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "отключение отслеживания форума", Cause: err}
	}

	return nil
}

func (r *SubscriptionRepository) RemoveTrackingOverride(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("forum_track_prefs").
		Where(sq.Eq{"user_id": userID, "forum_id": forumID})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "включение отслеживания форума", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "включение отслеживания форума", Cause: err}
	}

	return nil
}

func (r *SubscriptionRepository) HasTrackingOverride(ctx context.Context, userID, forumID int64) (bool, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	existsQuery := r.sq.Select("1").
		From("forum_track_prefs").
		Where(sq.Eq{"user_id": userID, "forum_id": forumID}).
		Limit(1)

	query, args, err := existsQuery.ToSql()
	if err != nil {
		return false, &customerrors.ErrBuildSQLQuery{Operation: "проверка отключения отслеживания", Cause: err}
	}

	var exists bool

	err = querier.QueryRow(ctx, "SELECT EXISTS("+query+")", args...).Scan(&exists)
	if err != nil {
		return false, &customerrors.ErrSQLExecution{Operation: "проверка отключения отслеживания", Cause: err}
	}

	return exists, nil
}
