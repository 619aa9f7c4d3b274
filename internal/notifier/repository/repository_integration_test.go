package repository_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/database"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository"
	"github.com/central-university-dev/go-forum-notify/pkg/txs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testDB *database.PostgresDB
	logger *slog.Logger
)

func setupTestDatabase(ctx context.Context) (*database.PostgresDB, func(), error) {
	dbName := "testdb"
	dbUser := "testuser"
	dbPassword := "testpassword"

	container, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(10*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось запустить контейнер postgres: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось получить хост контейнера: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось получить порт контейнера: %w", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, host, port.Port(), dbName)

	migrationsPath, _ := filepath.Abs("../../../migrations")
	migrateURL := fmt.Sprintf("file://%s", migrationsPath)

	m, err := migrate.New(migrateURL, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось создать экземпляр migrate: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, nil, fmt.Errorf("не удалось применить миграции: %w", err)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return nil, nil, fmt.Errorf("ошибка закрытия источника миграций: %w", sourceErr)
	}

	if dbErr != nil {
		return nil, nil, fmt.Errorf("ошибка закрытия подключения БД миграций: %w", dbErr)
	}

	logger.Info("Миграции успешно применены к тестовой БД")

	testCfg := &config.Config{
		DatabaseURL:     dsn,
		DatabaseMaxConn: 5,
	}

	db, err := database.NewPostgresDB(ctx, testCfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось подключиться к тестовой БД: %w", err)
	}

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			logger.Error("Не удалось остановить контейнер postgres", "error", err)
		}
	}

	return db, cleanup, nil
}

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	exitCode := func() int {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var cleanup func()

		var err error

		testDB, cleanup, err = setupTestDatabase(ctx)
		if err != nil {
			logger.Error("Ошибка при настройке тестовой БД", "error", err)
			return 1
		}

		code := m.Run()

		cleanup()

		return code
	}()

	os.Exit(exitCode)
}

func clearTables(ctx context.Context, t *testing.T) {
	t.Helper()

	tables := []string{
		"forum_queue",
		"forum_read",
		"forum_subscriptions",
		"forum_digests",
		"forum_track_prefs",
		"posts",
		"discussions",
		"forums",
		"notifier_state",
	}
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		_, err := testDB.Pool.Exec(ctx, query)

		require.NoErrorf(t, err, "Failed to clear table %s", table)
	}
}

func seedForum(ctx context.Context, t *testing.T, postRepo repository.PostRepository, trackingMode models.TrackingMode) (*models.Forum, *models.Discussion) {
	t.Helper()

	forum := &models.Forum{
		CourseID:         10,
		Name:             "Общий форум",
		TrackingMode:     trackingMode,
		SubscriptionMode: models.SubscriptionChoose,
	}
	require.NoError(t, postRepo.SaveForum(ctx, forum))
	require.NotZero(t, forum.ID)

	discussion := &models.Discussion{
		ForumID:      forum.ID,
		Name:         "Вопросы по курсу",
		GroupID:      models.GroupAll,
		LastModified: time.Now(),
	}
	require.NoError(t, postRepo.SaveDiscussion(ctx, discussion))
	require.NotZero(t, discussion.ID)

	return forum, discussion
}

func seedPost(ctx context.Context, t *testing.T, postRepo repository.PostRepository, discussionID int64, created time.Time) *models.Post {
	t.Helper()

	post := &models.Post{
		DiscussionID: discussionID,
		AuthorID:     99,
		Subject:      "Тема поста",
		Body:         "Текст поста",
		BodyFormat:   "html",
		Created:      created,
		Modified:     created,
	}
	require.NoError(t, postRepo.SavePost(ctx, post))
	require.NotZero(t, post.ID)

	return post
}

func runTestsForConfig(t *testing.T, accessType config.AccessType) {
	t.Helper()

	ctx := context.Background()
	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testCfg := &config.Config{
		DatabaseAccessType: accessType,
	}

	factory := repository.NewFactory(testDB, testCfg, testLogger)

	postRepo, err := factory.CreatePostRepository()
	require.NoError(t, err, "Ошибка создания PostRepository для %s", accessType)

	readRepo, err := factory.CreateReadRecordRepository()
	require.NoError(t, err, "Ошибка создания ReadRecordRepository для %s", accessType)

	subRepo, err := factory.CreateSubscriptionRepository()
	require.NoError(t, err, "Ошибка создания SubscriptionRepository для %s", accessType)

	queueRepo, err := factory.CreateDigestQueueRepository()
	require.NoError(t, err, "Ошибка создания DigestQueueRepository для %s", accessType)

	t.Run("PostRepository pending window and at-most-once marking", func(t *testing.T) {
		clearTables(ctx, t)

		now := time.Now().Truncate(time.Microsecond)
		_, discussion := seedForum(ctx, t, postRepo, models.TrackingOptional)

		inWindow := seedPost(ctx, t, postRepo, discussion.ID, now.Add(-2*time.Hour))
		tooFresh := seedPost(ctx, t, postRepo, discussion.ID, now.Add(-time.Minute))
		seedPost(ctx, t, postRepo, discussion.ID, now.Add(-100*time.Hour))

		pending, err := postRepo.FindPendingPosts(ctx, now.Add(-48*time.Hour), now.Add(-30*time.Minute))
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, inWindow.ID, pending[0].ID)

		tooFresh.MailNow = true
		require.NoError(t, postRepo.SavePost(ctx, tooFresh))

		pending, err = postRepo.FindPendingPosts(ctx, now.Add(-48*time.Hour), now.Add(-30*time.Minute))
		require.NoError(t, err)
		assert.Len(t, pending, 2, "флаг немедленной отправки обходит окно")

		marked, err := postRepo.MarkPostsMailed(ctx, []int64{inWindow.ID}, models.MailSent)
		require.NoError(t, err)
		assert.Equal(t, []int64{inWindow.ID}, marked)

		marked, err = postRepo.MarkPostsMailed(ctx, []int64{inWindow.ID}, models.MailSent)
		require.NoError(t, err)
		assert.Empty(t, marked, "повторная пометка не переводит пост второй раз")
	})

	t.Run("PostRepository not found", func(t *testing.T) {
		clearTables(ctx, t)

		_, err := postRepo.FindPostByID(ctx, -1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, &customerrors.ErrPostNotFound{}), "Error should be ErrPostNotFound for %s", accessType)
	})

	t.Run("ReadRecordRepository insert honors tracking mode", func(t *testing.T) {
		clearTables(ctx, t)

		now := time.Now().Truncate(time.Microsecond)
		cutoff := now.AddDate(0, 0, -14)

		_, optionalDiscussion := seedForum(ctx, t, postRepo, models.TrackingOptional)
		optionalPost := seedPost(ctx, t, postRepo, optionalDiscussion.ID, now.Add(-time.Hour))

		// Пользователь без персональной настройки отслеживания.
		err := readRepo.InsertForPosts(ctx, 1, []int64{optionalPost.ID}, cutoff, now, false, true)
		require.NoError(t, err)

		readIDs, err := readRepo.FindReadPostIDs(ctx, 1, []int64{optionalPost.ID})
		require.NoError(t, err)
		assert.Empty(t, readIDs, "опциональный форум без настройки не отслеживается")

		err = readRepo.InsertForPosts(ctx, 1, []int64{optionalPost.ID}, cutoff, now, true, true)
		require.NoError(t, err)

		readIDs, err = readRepo.FindReadPostIDs(ctx, 1, []int64{optionalPost.ID})
		require.NoError(t, err)
		assert.Equal(t, []int64{optionalPost.ID}, readIDs)
	})

	t.Run("ReadRecordRepository rollback inside transaction", func(t *testing.T) {
		clearTables(ctx, t)

		now := time.Now().Truncate(time.Microsecond)
		_, discussion := seedForum(ctx, t, postRepo, models.TrackingForced)
		post := seedPost(ctx, t, postRepo, discussion.ID, now.Add(-time.Hour))

		txManager := txs.NewTxManager(testDB.Pool, testLogger)

		abort := errors.New("прерывание")
		err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
			if err := readRepo.InsertForPosts(ctx, 1, []int64{post.ID}, now.AddDate(0, 0, -14), now, true, true); err != nil {
				return err
			}

			return abort
		})
		require.ErrorIs(t, err, abort)

		readIDs, err := readRepo.FindReadPostIDs(ctx, 1, []int64{post.ID})
		require.NoError(t, err)
		assert.Empty(t, readIDs, "вставка в отменённой транзакции не сохраняется")
	})

	t.Run("ReadRecordRepository unread counting", func(t *testing.T) {
		clearTables(ctx, t)

		now := time.Now().Truncate(time.Microsecond)
		cutoff := now.AddDate(0, 0, -14)

		_, discussion := seedForum(ctx, t, postRepo, models.TrackingForced)

		read := seedPost(ctx, t, postRepo, discussion.ID, now.Add(-2*time.Hour))
		seedPost(ctx, t, postRepo, discussion.ID, now.Add(-time.Hour))
		seedPost(ctx, t, postRepo, discussion.ID, now.AddDate(0, 0, -30))

		record := &models.ReadRecord{
			UserID:       1,
			PostID:       read.ID,
			DiscussionID: discussion.ID,
			ForumID:      discussion.ForumID,
			FirstRead:    now,
			LastRead:     now,
		}
		require.NoError(t, readRepo.Upsert(ctx, record))

		count, err := readRepo.CountUnreadInDiscussion(ctx, 1, discussion.ID, cutoff, now)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "прочитанный и устаревший посты не считаются")

		counts, err := readRepo.UnreadCountsByCourse(ctx, 1, 10, cutoff, now)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[discussion.ForumID])
	})

	t.Run("ReadRecordRepository delete requires filter", func(t *testing.T) {
		clearTables(ctx, t)

		_, err := readRepo.Delete(ctx, models.ReadRecordFilter{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, &customerrors.ErrEmptyReadRecordFilter{}))
	})

	t.Run("SubscriptionRepository unsubscribe clears digest preference", func(t *testing.T) {
		clearTables(ctx, t)

		forum, _ := seedForum(ctx, t, postRepo, models.TrackingOptional)

		require.NoError(t, subRepo.Subscribe(ctx, 1, forum.ID))

		subscribed, err := subRepo.IsSubscribed(ctx, 1, forum.ID)
		require.NoError(t, err)
		assert.True(t, subscribed)

		require.NoError(t, subRepo.SetDigestPreference(ctx, 1, forum.ID, models.DigestFull))

		mode, err := subRepo.GetDigestPreference(ctx, 1, forum.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DigestFull, mode)

		require.NoError(t, subRepo.Unsubscribe(ctx, 1, forum.ID))

		mode, err = subRepo.GetDigestPreference(ctx, 1, forum.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DigestUseDefault, mode, "отписка сбрасывает индивидуальный режим")
	})

	t.Run("SubscriptionRepository tracking override", func(t *testing.T) {
		clearTables(ctx, t)

		forum, _ := seedForum(ctx, t, postRepo, models.TrackingOptional)

		disabled, err := subRepo.HasTrackingOverride(ctx, 1, forum.ID)
		require.NoError(t, err)
		assert.False(t, disabled)

		require.NoError(t, subRepo.AddTrackingOverride(ctx, 1, forum.ID))

		disabled, err = subRepo.HasTrackingOverride(ctx, 1, forum.ID)
		require.NoError(t, err)
		assert.True(t, disabled)

		require.NoError(t, subRepo.RemoveTrackingOverride(ctx, 1, forum.ID))

		disabled, err = subRepo.HasTrackingOverride(ctx, 1, forum.ID)
		require.NoError(t, err)
		assert.False(t, disabled)
	})

	t.Run("DigestQueueRepository queue lifecycle", func(t *testing.T) {
		clearTables(ctx, t)

		now := time.Now().Truncate(time.Microsecond)
		_, discussion := seedForum(ctx, t, postRepo, models.TrackingOptional)

		fresh := seedPost(ctx, t, postRepo, discussion.ID, now.Add(-time.Hour))
		old := seedPost(ctx, t, postRepo, discussion.ID, now.AddDate(0, 0, -10))

		require.NoError(t, queueRepo.Enqueue(ctx, &models.DigestQueueEntry{
			UserID:       1,
			DiscussionID: discussion.ID,
			PostID:       fresh.ID,
			PostTime:     fresh.Created,
		}))
		require.NoError(t, queueRepo.Enqueue(ctx, &models.DigestQueueEntry{
			UserID:       1,
			DiscussionID: discussion.ID,
			PostID:       old.ID,
			PostTime:     old.Created,
		}))

		expired, err := queueRepo.DeleteOlderThan(ctx, now.AddDate(0, 0, -7))
		require.NoError(t, err)
		assert.Equal(t, int64(1), expired)

		userIDs, err := queueRepo.UserIDsWithEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, userIDs)

		entries, err := queueRepo.FindByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, fresh.ID, entries[0].PostID)

		require.NoError(t, queueRepo.DeleteByUser(ctx, 1))

		entries, err = queueRepo.FindByUser(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("DigestQueueRepository last run state", func(t *testing.T) {
		clearTables(ctx, t)

		lastRun, err := queueRepo.LastDigestRun(ctx)
		require.NoError(t, err)
		assert.True(t, lastRun.IsZero())

		runAt := time.Now().Truncate(time.Second)
		require.NoError(t, queueRepo.SetLastDigestRun(ctx, runAt))

		lastRun, err = queueRepo.LastDigestRun(ctx)
		require.NoError(t, err)
		assert.WithinDuration(t, runAt, lastRun, time.Second)
	})
}

func TestRepositoriesWithSQLAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропуск интеграционного теста (используйте -short=false)")
	}

	runTestsForConfig(t, config.SQLAccess)
}

func TestRepositoriesWithSquirrelAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропуск интеграционного теста (используйте -short=false)")
	}

	runTestsForConfig(t, config.SquirrelAccess)
}
