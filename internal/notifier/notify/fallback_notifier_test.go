package notify_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/notify"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/notify/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFallbackMailNotifier_PrimarySuccess(t *testing.T) {
	// Arrange
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	primaryMock := mocks.NewMailNotifier(t)
	secondaryMock := mocks.NewMailNotifier(t)

	fallbackNotifier := notify.NewFallbackMailNotifier(primaryMock, secondaryMock, logger)

	message := &models.MailMessage{
		From:    "noreply@forum.local",
		To:      "student@example.com",
		Subject: "Новый пост",
		Text:    "Текст поста",
	}

	primaryMock.On("SendMail", mock.Anything, message).Return(nil)

	// Act
	err := fallbackNotifier.SendMail(context.Background(), message)

	// Assert
	require.NoError(t, err)
	primaryMock.AssertExpectations(t)
	secondaryMock.AssertNotCalled(t, "SendMail")
}

func TestFallbackMailNotifier_PrimaryFailsSecondarySuccess(t *testing.T) {
	// Arrange
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	primaryMock := mocks.NewMailNotifier(t)
	secondaryMock := mocks.NewMailNotifier(t)

	fallbackNotifier := notify.NewFallbackMailNotifier(primaryMock, secondaryMock, logger)

	message := &models.MailMessage{
		From:    "noreply@forum.local",
		To:      "student@example.com",
		Subject: "Новый пост",
		Text:    "Текст поста",
	}

	primaryError := errors.New("primary transport failed")

	primaryMock.On("SendMail", mock.Anything, message).Return(primaryError)
	secondaryMock.On("SendMail", mock.Anything, message).Return(nil)

	// Act
	err := fallbackNotifier.SendMail(context.Background(), message)

	// Assert
	require.NoError(t, err)
	primaryMock.AssertExpectations(t)
	secondaryMock.AssertExpectations(t)
}

func TestFallbackMailNotifier_BothFail(t *testing.T) {
	// Arrange
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	primaryMock := mocks.NewMailNotifier(t)
	secondaryMock := mocks.NewMailNotifier(t)

	fallbackNotifier := notify.NewFallbackMailNotifier(primaryMock, secondaryMock, logger)

	message := &models.MailMessage{
		From:    "noreply@forum.local",
		To:      "student@example.com",
		Subject: "Новый пост",
		Text:    "Текст поста",
	}

	primaryError := errors.New("primary transport failed")
	secondaryError := errors.New("secondary transport failed")

	primaryMock.On("SendMail", mock.Anything, message).Return(primaryError)
	secondaryMock.On("SendMail", mock.Anything, message).Return(secondaryError)

	// Act
	err := fallbackNotifier.SendMail(context.Background(), message)

	// Assert
	require.Error(t, err)
	assert.Equal(t, primaryError, err)
	primaryMock.AssertExpectations(t)
	secondaryMock.AssertExpectations(t)
}
