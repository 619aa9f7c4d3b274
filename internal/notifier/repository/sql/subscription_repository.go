package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/database"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/pkg/txs"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository struct {
	db *database.PostgresDB
}

func NewSubscriptionRepository(db *database.PostgresDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Subscribe(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		`INSERT INTO forum_subscriptions (user_id, forum_id, created_at)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, forumID, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка при создании подписки: %w", err)
	}

	return nil
}

// Unsubscribe удаляет подписку вместе с настройкой дайджеста:
// отписка сбрасывает индивидуальный режим доставки.
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, userID, forumID int64) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		"DELETE FROM forum_subscriptions WHERE user_id = $1 AND forum_id = $2",
		userID, forumID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении подписки: %w", err)
	}

	_, err = tx.Exec(ctx,
		"DELETE FROM forum_digests WHERE user_id = $1 AND forum_id = $2",
		userID, forumID)
	if err != nil {
		return fmt.Errorf("ошибка при сбросе настройки дайджеста: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) IsSubscribed(ctx context.Context, userID, forumID int64) (bool, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var exists bool

	err := querier.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM forum_subscriptions WHERE user_id = $1 AND forum_id = $2)",
		userID, forumID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке подписки: %w", err)
	}

	return exists, nil
}

func (r *SubscriptionRepository) SubscriberIDs(ctx context.Context, forumID int64) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		"SELECT user_id FROM forum_subscriptions WHERE forum_id = $1 ORDER BY user_id",
		forumID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе подписчиков форума: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *SubscriptionRepository) SetDigestPreference(ctx context.Context, userID, forumID int64, mode models.DigestMode) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	if mode == models.DigestUseDefault {
		return r.DeleteDigestPreference(ctx, userID, forumID)
	}

	_, err := querier.Exec(ctx,
		`INSERT INTO forum_digests (user_id, forum_id, mode) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, forum_id) DO UPDATE SET mode = EXCLUDED.mode`,
		userID, forumID, mode)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении настройки дайджеста: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) GetDigestPreference(ctx context.Context, userID, forumID int64) (models.DigestMode, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var mode models.DigestMode

	err := querier.QueryRow(ctx,
		"SELECT mode FROM forum_digests WHERE user_id = $1 AND forum_id = $2",
		userID, forumID).Scan(&mode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DigestUseDefault, nil
		}

		return models.DigestUseDefault, fmt.Errorf("ошибка при чтении настройки дайджеста: %w", err)
	}

	return mode, nil
}

func (r *SubscriptionRepository) DeleteDigestPreference(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		"DELETE FROM forum_digests WHERE user_id = $1 AND forum_id = $2",
		userID, forumID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении настройки дайджеста: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) AddTrackingOverride(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		"INSERT INTO forum_track_prefs (user_id, forum_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, forumID)
	if err != nil {
		return fmt.Errorf("ошибка при отключении отслеживания форума: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) RemoveTrackingOverride(ctx context.Context, userID, forumID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		"DELETE FROM forum_track_prefs WHERE user_id = $1 AND forum_id = $2",
		userID, forumID)
	if err != nil {
		return fmt.Errorf("ошибка при включении отслеживания форума: %w", err)
	}

	return nil
}

func (r *SubscriptionRepository) HasTrackingOverride(ctx context.Context, userID, forumID int64) (bool, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var exists bool

	err := querier.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM forum_track_prefs WHERE user_id = $1 AND forum_id = $2)",
		userID, forumID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке отключения отслеживания: %w", err)
	}

	return exists, nil
}
