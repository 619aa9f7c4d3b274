package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/central-university-dev/go-forum-notify/internal/config"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
)

// MailNotifier — транспорт исходящих писем.
type MailNotifier interface {
	SendMail(ctx context.Context, message *models.MailMessage) error
}

type NotifierType string

const (
	HTTPNotifier  NotifierType = "HTTP"
	KafkaNotifier NotifierType = "KAFKA"
)

type NotifierFactory struct {
	config *config.Config
	logger *slog.Logger
}

func NewNotifierFactory(config *config.Config, logger *slog.Logger) *NotifierFactory {
	return &NotifierFactory{
		config: config,
		logger: logger,
	}
}

// CreateNotifier собирает почтовый транспорт по конфигурации. При включённом
// фолбэке основной транспорт оборачивается резервным: HTTP подстраховывает
// Kafka и наоборот.
func (f *NotifierFactory) CreateNotifier() (MailNotifier, error) {
	notifierType := NotifierType(strings.ToUpper(f.config.MailTransport))

	f.logger.Info("Создание почтового транспорта",
		"type", notifierType,
	)

	httpNotifier := NewHTTPMailNotifier(f.config, f.logger)

	brokers := strings.Split(f.config.KafkaBrokers, ",")
	kafkaNotifier := NewKafkaMailNotifier(brokers, f.config.TopicOutboundMail, f.config.TopicDeadLetterQueue, f.logger)

	switch notifierType {
	case HTTPNotifier:
		if f.config.FallbackEnabled {
			return NewFallbackMailNotifier(httpNotifier, kafkaNotifier, f.logger), nil
		}

		return httpNotifier, nil
	case KafkaNotifier:
		if f.config.FallbackEnabled {
			return NewFallbackMailNotifier(kafkaNotifier, httpNotifier, f.logger), nil
		}

		return kafkaNotifier, nil
	default:
		return nil, &customerrors.ErrUnknownMailTransport{Transport: f.config.MailTransport}
	}
}
