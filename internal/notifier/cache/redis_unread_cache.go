package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// UnreadCache кэширует карты непрочитанного по курсу и сбрасывается при
// любой записи отметок пользователя.
type UnreadCache interface {
	GetCourseMap(ctx context.Context, userID, courseID int64) (map[int64]int, error)
	SetCourseMap(ctx context.Context, userID, courseID int64, counts map[int64]int) error
	InvalidateUser(ctx context.Context, userID int64) error
}

type RedisUnreadCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisUnreadCache(redisURL, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisUnreadCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ошибка при подключении к Redis: %w", err)
	}

	logger.Info("Соединение с Redis успешно установлено")

	return &RedisUnreadCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func courseMapKey(userID, courseID int64) string {
	return fmt.Sprintf("unread:%d:%d", userID, courseID)
}

func (c *RedisUnreadCache) GetCourseMap(ctx context.Context, userID, courseID int64) (map[int64]int, error) {
	key := courseMapKey(userID, courseID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.logger.Debug("Кэш не найден",
				"userID", userID,
				"courseID", courseID,
			)

			return nil, nil
		}

		c.logger.Error("Ошибка при получении данных из Redis",
			"error", err,
			"userID", userID,
		)

		return nil, fmt.Errorf("ошибка при получении данных из Redis: %w", err)
	}

	var counts map[int64]int
	if err := json.Unmarshal(data, &counts); err != nil {
		c.logger.Error("Ошибка при десериализации данных из Redis",
			"error", err,
			"userID", userID,
		)

		return nil, fmt.Errorf("ошибка при десериализации данных из Redis: %w", err)
	}

	return counts, nil
}

func (c *RedisUnreadCache) SetCourseMap(ctx context.Context, userID, courseID int64, counts map[int64]int) error {
	key := courseMapKey(userID, courseID)

	data, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации данных для Redis: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Ошибка при сохранении данных в Redis",
			"error", err,
			"userID", userID,
		)

		return fmt.Errorf("ошибка при сохранении данных в Redis: %w", err)
	}

	return nil
}

// InvalidateUser удаляет все карты непрочитанного пользователя. Вызывается
// после каждой записи отметок, чтобы счётчики не отставали.
func (c *RedisUnreadCache) InvalidateUser(ctx context.Context, userID int64) error {
	pattern := fmt.Sprintf("unread:%d:*", userID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Error("Ошибка при удалении данных из Redis",
				"error", err,
				"key", iter.Val(),
			)

			return fmt.Errorf("ошибка при удалении данных из Redis: %w", err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("ошибка при обходе ключей Redis: %w", err)
	}

	return nil
}
