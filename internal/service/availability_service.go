package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"go.uber.org/zap"
)

// Ограничения пакетного создания слотов
const (
	MinSlotMinutes  = 5
	MaxSlotMinutes  = 480
	MaxSlotsPerDay  = 24
	MaxBulkWeeks    = 12
	MaxSlotsPerBulk = 500
	dateLayout      = "2006-01-02"
)

// OpenSlotsQuery фильтр публичного списка свободных слотов
type OpenSlotsQuery struct {
	TeacherID *int64
	Date      string // YYYY-MM-DD в часовом поясе сервиса, пусто = все даты
}

// BulkSlotsRequest серия слотов: Count окон подряд длиной DurationMinutes,
// начиная со времени FirstStart, в каждый из Weekdays на протяжении Weeks недель
type BulkSlotsRequest struct {
	FirstStart      time.Time      `json:"firstStart"`
	DurationMinutes int            `json:"durationMinutes"`
	Count           int            `json:"count"`
	Weekdays        []time.Weekday `json:"weekdays"`
	Weeks           int            `json:"weeks"`
}

type AvailabilityService struct {
	store    Store
	location *time.Location
	logger   *zap.Logger
}

func NewAvailabilityService(store Store, location *time.Location, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		store:    store,
		location: location,
		logger:   logger,
	}
}

// ListOpenSlots свободные слоты с профилем учителя в порядке start_time, teacher_id, id
func (s *AvailabilityService) ListOpenSlots(ctx context.Context, query OpenSlotsQuery) ([]*model.Slot, error) {
	filter := model.SlotFilter{TeacherID: query.TeacherID}

	if query.Date != "" {
		day, err := time.ParseInLocation(dateLayout, query.Date, s.location)
		if err != nil {
			return nil, interview.BadRequest("date must be in YYYY-MM-DD format")
		}
		next := day.AddDate(0, 0, 1)
		filter.From = &day
		filter.To = &next
	}

	slots, err := s.store.Slots().FindOpen(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}

	return slots, nil
}

// CreateSlot создаёт слот учителя
func (s *AvailabilityService) CreateSlot(ctx context.Context, actor model.Actor, startTime, endTime time.Time) (*model.Slot, error) {
	if !actor.IsTeacher() {
		return nil, interview.ErrForbidden
	}

	slot := &model.Slot{
		TeacherID: actor.ID,
		StartTime: startTime,
		EndTime:   endTime,
	}
	if err := slot.Validate(); err != nil {
		return nil, interview.BadRequest(err.Error())
	}

	if err := s.store.Slots().Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("teacher_id", actor.ID),
		zap.Time("start_time", startTime),
	)

	return slot, nil
}

// CreateSlotsBulk разворачивает серию слотов и создаёт их в одной транзакции
func (s *AvailabilityService) CreateSlotsBulk(ctx context.Context, actor model.Actor, req BulkSlotsRequest) ([]*model.Slot, error) {
	if !actor.IsTeacher() {
		return nil, interview.ErrForbidden
	}

	slots, err := ExpandBulkSlots(actor.ID, req, s.location)
	if err != nil {
		return nil, err
	}

	err = s.store.Atomic(ctx, func(q repository.Queries) error {
		for _, slot := range slots {
			if err := q.Slots().Create(ctx, slot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create slots: %w", err)
	}

	s.logger.Info("Slots created in bulk",
		zap.Int64("teacher_id", actor.ID),
		zap.Int("count", len(slots)),
		zap.Int("weeks", req.Weeks),
	)

	return slots, nil
}

// ExpandBulkSlots разворачивает серию в список слотов. Дни перебираются
// с даты FirstStart в часовом поясе location, время начала берётся из FirstStart.
func ExpandBulkSlots(teacherID int64, req BulkSlotsRequest, location *time.Location) ([]*model.Slot, error) {
	if req.FirstStart.IsZero() {
		return nil, interview.BadRequest("first start is required")
	}
	if req.DurationMinutes < MinSlotMinutes || req.DurationMinutes > MaxSlotMinutes {
		return nil, interview.BadRequest(fmt.Sprintf("duration must be between %d and %d minutes", MinSlotMinutes, MaxSlotMinutes))
	}
	if req.Count < 1 || req.Count > MaxSlotsPerDay {
		return nil, interview.BadRequest(fmt.Sprintf("count must be between 1 and %d", MaxSlotsPerDay))
	}
	if req.Weeks < 1 || req.Weeks > MaxBulkWeeks {
		return nil, interview.BadRequest(fmt.Sprintf("weeks must be between 1 and %d", MaxBulkWeeks))
	}

	first := req.FirstStart.In(location)
	duration := time.Duration(req.DurationMinutes) * time.Minute

	// Серия не должна переходить через полночь
	dayEnd := time.Date(first.Year(), first.Month(), first.Day()+1, 0, 0, 0, 0, location)
	if first.Add(duration * time.Duration(req.Count)).After(dayEnd) {
		return nil, interview.BadRequest("slots must end before midnight")
	}

	weekdays := make(map[time.Weekday]bool)
	for _, wd := range req.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, interview.BadRequest("weekday must be between 0 (Sunday) and 6 (Saturday)")
		}
		weekdays[wd] = true
	}
	if len(weekdays) == 0 {
		weekdays[first.Weekday()] = true
	}

	if len(weekdays)*req.Weeks*req.Count > MaxSlotsPerBulk {
		return nil, interview.BadRequest(fmt.Sprintf("at most %d slots can be created at once", MaxSlotsPerBulk))
	}

	var slots []*model.Slot
	for i := 0; i < req.Weeks*7; i++ {
		date := first.AddDate(0, 0, i)
		if !weekdays[date.Weekday()] {
			continue
		}

		start := time.Date(date.Year(), date.Month(), date.Day(), first.Hour(), first.Minute(), 0, 0, location)
		for n := 0; n < req.Count; n++ {
			slotStart := start.Add(duration * time.Duration(n))
			slots = append(slots, &model.Slot{
				TeacherID: teacherID,
				StartTime: slotStart,
				EndTime:   slotStart.Add(duration),
			})
		}
	}

	return slots, nil
}

// DeleteSlot удаляет слот владельца. Слот с неотменёнными бронированиями удалить нельзя.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, actor model.Actor, slotID int64) error {
	err := s.store.Atomic(ctx, func(q repository.Queries) error {
		slot, err := q.Slots().LockByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return interview.ErrSlotNotFound
		}
		if slot.TeacherID != actor.ID {
			return interview.ErrForbidden
		}

		live, err := q.Slots().CountLiveReservations(ctx, slotID)
		if err != nil {
			return err
		}
		if live > 0 {
			return interview.ErrSlotOccupied
		}

		deleted, err := q.Slots().Delete(ctx, slotID)
		if err != nil {
			return err
		}
		if !deleted {
			return interview.ErrSlotNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("teacher_id", actor.ID),
	)

	return nil
}
