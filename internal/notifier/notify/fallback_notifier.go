package notify

import (
	"context"
	"log/slog"

	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
)

type FallbackMailNotifier struct {
	primary   MailNotifier
	secondary MailNotifier
	logger    *slog.Logger
}

func NewFallbackMailNotifier(primary, secondary MailNotifier, logger *slog.Logger) *FallbackMailNotifier {
	return &FallbackMailNotifier{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (n *FallbackMailNotifier) SendMail(ctx context.Context, message *models.MailMessage) error {
	err := n.primary.SendMail(ctx, message)
	if err == nil {
		return nil
	}

	n.logger.Warn("Основной транспорт недоступен, переключаемся на резервный",
		"primaryError", err,
		"to", message.To,
	)

	fallbackErr := n.secondary.SendMail(ctx, message)
	if fallbackErr != nil {
		return err
	}

	n.logger.Info("Письмо успешно отправлено через резервный транспорт",
		"to", message.To,
	)

	return nil
}
