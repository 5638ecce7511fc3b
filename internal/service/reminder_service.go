package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"go.uber.org/zap"
)

// ReminderService напоминает участникам о подтверждённых собеседованиях
type ReminderService struct {
	store      Store
	dispatcher EffectDispatcher
	leadTime   time.Duration
	location   *time.Location
	logger     *zap.Logger
}

func NewReminderService(store Store, dispatcher EffectDispatcher, leadTime time.Duration, location *time.Location, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		store:      store,
		dispatcher: dispatcher,
		leadTime:   leadTime,
		location:   location,
		logger:     logger,
	}
}

// SendDueReminders отправляет напоминания о собеседованиях, начинающихся в ближайшие leadTime.
// Каждое напоминание отправляется один раз: отметка ставится до отправки.
func (s *ReminderService) SendDueReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.Reservations().ListDueReminders(ctx, now, now.Add(s.leadTime))
	if err != nil {
		return 0, fmt.Errorf("send reminders: %w", err)
	}

	sent := 0
	for _, res := range due {
		marked, err := s.store.Reservations().MarkReminded(ctx, res.ID, now)
		if err != nil {
			s.logger.Warn("Failed to mark reminder",
				zap.Error(err),
				zap.Int64("reservation_id", res.ID),
			)
			continue
		}
		// Отметил другой экземпляр сервиса
		if !marked {
			continue
		}

		s.dispatcher.Dispatch(ctx, interview.ReminderEffects(res, s.location))
		sent++
	}

	if sent > 0 {
		s.logger.Info("Interview reminders sent", zap.Int("count", sent))
	}

	return sent, nil
}
