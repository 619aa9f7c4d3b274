package repository

import (
	"log/slog"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/database"
	"github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository/orm"
	sqlrepo "github.com/central-university-dev/go-forum-notify/internal/notifier/repository/sql"
)

type Factory struct {
	db     *database.PostgresDB
	config *config.Config
	logger *slog.Logger
}

func NewFactory(db *database.PostgresDB, config *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		db:     db,
		config: config,
		logger: logger,
	}
}

func (f *Factory) CreatePostRepository() (PostRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория постов")
		return orm.NewPostRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория постов")
		return sqlrepo.NewPostRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateReadRecordRepository() (ReadRecordRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория отметок о прочтении")
		return orm.NewReadRecordRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория отметок о прочтении")
		return sqlrepo.NewReadRecordRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateSubscriptionRepository() (SubscriptionRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория подписок")
		return orm.NewSubscriptionRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория подписок")
		return sqlrepo.NewSubscriptionRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateDigestQueueRepository() (DigestQueueRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория очереди дайджестов")
		return orm.NewDigestQueueRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория очереди дайджестов")
		return sqlrepo.NewDigestQueueRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}
