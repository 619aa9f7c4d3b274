package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/central-university-dev/go-forum-notify/internal/common/httputil"
	"github.com/central-university-dev/go-forum-notify/internal/config"
	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

type HTTPMailNotifier struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

func NewHTTPMailNotifier(cfg *config.Config, logger *slog.Logger) *HTTPMailNotifier {
	client := httputil.CreateResilientHTTPClient(cfg, logger, "mail_gateway")

	return &HTTPMailNotifier{
		client:  client,
		baseURL: cfg.MailGatewayURL,
		logger:  logger,
	}
}

type mailPayload struct {
	From     string            `json:"from"`
	FromName string            `json:"from_name,omitempty"`
	To       string            `json:"to"`
	ToName   string            `json:"to_name,omitempty"`
	Subject  string            `json:"subject"`
	Text     string            `json:"text"`
	HTML     string            `json:"html,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

func (n *HTTPMailNotifier) SendMail(ctx context.Context, message *models.MailMessage) error {
	n.logger.Info("Отправка письма через почтовый шлюз",
		"to", message.To,
		"subject", message.Subject,
	)

	payload := mailPayload{
		From:     message.From,
		FromName: message.FromName,
		To:       message.To,
		ToName:   message.ToName,
		Subject:  message.Subject,
		Text:     message.Text,
		HTML:     message.HTML,
		Headers:  message.Headers,
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.baseURL + "/api/v1/mail")
	if err != nil {
		n.logger.Error("Ошибка при отправке письма через шлюз",
			"error", err,
		)

		return &customerrors.ErrDeliveryFailure{Recipient: message.To, Cause: err}
	}

	if !resp.IsSuccess() {
		err := fmt.Errorf("почтовый шлюз вернул статус: %d", resp.StatusCode())

		n.logger.Error("Ошибка при отправке письма через шлюз",
			"error", err,
		)

		return &customerrors.ErrDeliveryFailure{Recipient: message.To, Cause: err}
	}

	n.logger.Info("Письмо успешно отправлено")

	return nil
}
