package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	customerrors "github.com/central-university-dev/go-forum-notify/internal/domain/errors"
	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/segmentio/kafka-go"
)

type KafkaMailNotifier struct {
	producer    *kafka.Writer
	dlqProducer *kafka.Writer
	logger      *slog.Logger
	mailTopic   string
	dlqTopic    string
}

func NewKafkaMailNotifier(brokers []string, mailTopic, dlqTopic string, logger *slog.Logger) *KafkaMailNotifier {
	producer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        mailTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	dlqProducer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        dlqTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(logger.Debug),
		ErrorLogger:  kafka.LoggerFunc(logger.Error),
	}

	return &KafkaMailNotifier{
		producer:    producer,
		dlqProducer: dlqProducer,
		logger:      logger,
		mailTopic:   mailTopic,
		dlqTopic:    dlqTopic,
	}
}

func (n *KafkaMailNotifier) SendMail(ctx context.Context, message *models.MailMessage) error {
	n.logger.Info("Отправка письма в Kafka",
		"to", message.To,
		"subject", message.Subject,
		"topic", n.mailTopic,
	)

	value, err := json.Marshal(message)
	if err != nil {
		n.logger.Error("Ошибка при сериализации письма",
			"error", err,
		)

		return fmt.Errorf("ошибка при сериализации письма: %w", err)
	}

	err = n.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(message.To),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		n.logger.Error("Ошибка при отправке письма в Kafka",
			"error", err,
		)

		if dlqErr := n.SendToDLQ(ctx, value, err.Error()); dlqErr != nil {
			n.logger.Error("Ошибка при отправке письма в DLQ",
				"error", dlqErr,
			)
		}

		return &customerrors.ErrDeliveryFailure{Recipient: message.To, Cause: err}
	}

	n.logger.Info("Письмо успешно отправлено в Kafka")

	return nil
}

func (n *KafkaMailNotifier) SendToDLQ(ctx context.Context, message []byte, errMsg string) error {
	n.logger.Info("Отправка сообщения в DLQ",
		"error", errMsg,
		"topic", n.dlqTopic,
	)

	err := n.dlqProducer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("error"),
		Value: message,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(errMsg)},
			{Key: "timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
		},
		Time: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("ошибка при отправке сообщения в DLQ: %w", err)
	}

	return nil
}

func (n *KafkaMailNotifier) Close() error {
	if err := n.producer.Close(); err != nil {
		return err
	}

	return n.dlqProducer.Close()
}
