package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

type MailRunner interface {
	Run(ctx context.Context, now time.Time) error
}

type ReadRecordPruner interface {
	PruneStale(ctx context.Context) (int64, error)
}

// Scheduler запускает прогоны рассылки и периодическую очистку устаревших
// отметок о прочтении.
type Scheduler struct {
	scheduler     *gocron.Scheduler
	mailRunner    MailRunner
	pruner        ReadRecordPruner
	logger        *slog.Logger
	mailInterval  time.Duration
	pruneInterval time.Duration
}

func NewScheduler(
	mailRunner MailRunner,
	pruner ReadRecordPruner,
	mailInterval time.Duration,
	pruneInterval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	return &Scheduler{
		scheduler:     scheduler,
		mailRunner:    mailRunner,
		pruner:        pruner,
		logger:        logger,
		mailInterval:  mailInterval,
		pruneInterval: pruneInterval,
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("Запуск планировщика",
		"mailInterval", s.mailInterval.String(),
		"pruneInterval", s.pruneInterval.String(),
	)

	_, err := s.scheduler.Every(s.mailInterval).Do(func() {
		s.logger.Info("Запуск прогона рассылки")

		ctx := context.Background()
		if err := s.mailRunner.Run(ctx, time.Now()); err != nil {
			s.logger.Error("Ошибка при прогоне рассылки",
				"error", err,
			)
		}
	})

	if err != nil {
		s.logger.Error("Ошибка при настройке прогона рассылки",
			"error", err,
		)

		return
	}

	_, err = s.scheduler.Every(s.pruneInterval).Do(func() {
		ctx := context.Background()

		pruned, err := s.pruner.PruneStale(ctx)
		if err != nil {
			s.logger.Error("Ошибка при очистке отметок о прочтении",
				"error", err,
			)

			return
		}

		if pruned > 0 {
			s.logger.Info("Завершена очистка отметок о прочтении",
				"pruned", pruned,
			)
		}
	})

	if err != nil {
		s.logger.Error("Ошибка при настройке очистки отметок",
			"error", err,
		)

		return
	}

	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.logger.Info("Остановка планировщика")
	s.scheduler.Stop()
}
