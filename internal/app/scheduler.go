package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReminderSender рассылает напоминания о ближайших собеседованиях
type ReminderSender interface {
	SendDueReminders(ctx context.Context, now time.Time) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron      *cron.Cron
	reminders ReminderSender
	schedule  string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewScheduler создаёт планировщик. schedule в формате cron или "@every 15m".
func NewScheduler(reminders ReminderSender, schedule string, location *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(location)),
		reminders: reminders,
		schedule:  schedule,
		timeout:   time.Minute,
		logger:    logger,
	}
}

// Start регистрирует задачи и запускает cron
func (s *Scheduler) Start() error {
	// SkipIfStillRunning: медленный прогон не накладывается на следующий
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(s.sendReminders))

	if _, err := s.cron.AddJob(s.schedule, job); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Background scheduler started", zap.String("reminders", s.schedule))
	return nil
}

// Stop останавливает cron и ждёт завершения текущих задач
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sendReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.reminders.SendDueReminders(ctx, time.Now()); err != nil {
		s.logger.Error("Failed to send reminders", zap.Error(err))
	}
}
