package scheduler_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/scheduler"
	"github.com/central-university-dev/go-forum-notify/internal/scheduler/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestScheduler_Start(t *testing.T) {
	mailRunner := new(mocks.MailRunner)
	pruner := new(mocks.ReadRecordPruner)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	interval := 100 * time.Millisecond
	//nolint //тест
	mailRunner.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		return true
	}), mock.AnythingOfType("time.Time")).Return(nil)
	pruner.On("PruneStale", mock.Anything).Return(int64(0), nil).Maybe()

	scheduler := scheduler.NewScheduler(mailRunner, pruner, interval, time.Hour, logger)
	scheduler.Start()

	time.Sleep(150 * time.Millisecond)
	scheduler.Stop()

	mailRunner.AssertExpectations(t)
}

func TestScheduler_Stop(t *testing.T) {
	mailRunner := new(mocks.MailRunner)
	pruner := new(mocks.ReadRecordPruner)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	scheduler := scheduler.NewScheduler(mailRunner, pruner, time.Second, time.Hour, logger)

	scheduler.Start()
	scheduler.Stop()

	mailRunner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestScheduler_RunWithError(t *testing.T) {
	mailRunner := new(mocks.MailRunner)
	pruner := new(mocks.ReadRecordPruner)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	interval := 100 * time.Millisecond
	//nolint //тест
	mailRunner.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		return true
	}), mock.AnythingOfType("time.Time")).Return(assert.AnError)
	pruner.On("PruneStale", mock.Anything).Return(int64(0), nil).Maybe()

	scheduler := scheduler.NewScheduler(mailRunner, pruner, interval, time.Hour, logger)
	scheduler.Start()

	time.Sleep(150 * time.Millisecond)
	scheduler.Stop()

	mailRunner.AssertExpectations(t)
}
