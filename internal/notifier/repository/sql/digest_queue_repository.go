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

const lastDigestRunKey = "last_digest_run"

type DigestQueueRepository struct {
	db *database.PostgresDB
}

func NewDigestQueueRepository(db *database.PostgresDB) *DigestQueueRepository {
	return &DigestQueueRepository{db: db}
}

func (r *DigestQueueRepository) Enqueue(ctx context.Context, entry *models.DigestQueueEntry) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	err := querier.QueryRow(ctx,
		`INSERT INTO forum_queue (user_id, discussion_id, post_id, post_time)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		entry.UserID, entry.DiscussionID, entry.PostID, entry.PostTime).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("ошибка при добавлении записи в очередь дайджестов: %w", err)
	}

	return nil
}

func (r *DigestQueueRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	tag, err := querier.Exec(ctx,
		"DELETE FROM forum_queue WHERE post_time < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("ошибка при очистке очереди дайджестов: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *DigestQueueRepository) UserIDsWithEntries(ctx context.Context) ([]int64, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		"SELECT DISTINCT user_id FROM forum_queue ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе пользователей с дайджестами: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *DigestQueueRepository) FindByUser(ctx context.Context, userID int64) ([]*models.DigestQueueEntry, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	rows, err := querier.Query(ctx,
		`SELECT id, user_id, discussion_id, post_id, post_time
		FROM forum_queue WHERE user_id = $1 ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе очереди дайджестов: %w", err)
	}
	defer rows.Close()

	var entries []*models.DigestQueueEntry

	for rows.Next() {
		entry := &models.DigestQueueEntry{}

		err := rows.Scan(&entry.ID, &entry.UserID, &entry.DiscussionID, &entry.PostID, &entry.PostTime)
		if err != nil {
			return nil, fmt.Errorf("ошибка при чтении записи очереди дайджестов: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обходе очереди дайджестов: %w", err)
	}

	return entries, nil
}

func (r *DigestQueueRepository) DeleteByUser(ctx context.Context, userID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		"DELETE FROM forum_queue WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении очереди дайджестов пользователя: %w", err)
	}

	return nil
}

func (r *DigestQueueRepository) LastDigestRun(ctx context.Context) (time.Time, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	var value string

	err := querier.QueryRow(ctx,
		"SELECT value FROM notifier_state WHERE key = $1", lastDigestRunKey).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}

		return time.Time{}, fmt.Errorf("ошибка при чтении времени последней рассылки: %w", err)
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка при разборе времени последней рассылки: %w", err)
	}

	return t, nil
}

func (r *DigestQueueRepository) SetLastDigestRun(ctx context.Context, t time.Time) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	_, err := querier.Exec(ctx,
		`INSERT INTO notifier_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		lastDigestRunKey, t.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ошибка при сохранении времени последней рассылки: %w", err)
	}

	return nil
}
