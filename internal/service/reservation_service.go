package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"go.uber.org/zap"
)

// Allocation результат записи на собеседование
type Allocation struct {
	Reservation *model.Reservation   `json:"reservation"`
	Teacher     *model.PublicProfile `json:"teacher"`
}

type ReservationService struct {
	store      Store
	dispatcher EffectDispatcher
	location   *time.Location
	logger     *zap.Logger
}

func NewReservationService(store Store, dispatcher EffectDispatcher, location *time.Location, logger *zap.Logger) *ReservationService {
	return &ReservationService{
		store:      store,
		dispatcher: dispatcher,
		location:   location,
		logger:     logger,
	}
}

// RequestReservation записывает кандидата на свободный слот, покрывающий requestedAt,
// у наименее загруженного учителя. При равной нагрузке берётся первый слот
// в порядке start_time, teacher_id, id.
func (s *ReservationService) RequestReservation(ctx context.Context, actor model.Actor, requestedAt time.Time) (*Allocation, error) {
	if !actor.IsCandidate() {
		return nil, interview.ErrForbidden
	}
	if requestedAt.IsZero() {
		return nil, interview.BadRequest("requested timestamp is required")
	}

	var (
		reservation *model.Reservation
		slot        *model.Slot
	)

	err := s.store.Atomic(ctx, func(q repository.Queries) error {
		// Блокируем кандидата: конкурентные запросы одного кандидата выполняются по очереди
		candidate, err := q.Users().LockByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if candidate == nil {
			return interview.ErrUnauthorized
		}

		history, err := q.Reservations().CandidateHistory(ctx, actor.ID)
		if err != nil {
			return err
		}
		if history.HasCompleted {
			return interview.ErrAlreadyCompleted
		}
		if history.HasActive {
			return interview.ErrActiveReservationExists
		}

		at := requestedAt
		open, err := q.Slots().FindOpen(ctx, model.SlotFilter{At: &at})
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return interview.ErrNoSlotAvailable
		}

		// Нагрузка считается один раз на учителя
		loads := make(map[int64]int)
		options := make([]interview.SlotOption, 0, len(open))
		for _, candidateSlot := range open {
			load, ok := loads[candidateSlot.TeacherID]
			if !ok {
				load, err = q.Reservations().CountActiveForTeacher(ctx, candidateSlot.TeacherID)
				if err != nil {
					return err
				}
				loads[candidateSlot.TeacherID] = load
			}
			options = append(options, interview.SlotOption{Slot: candidateSlot, TeacherLoad: load})
		}

		chosen, _ := interview.PickLeastLoaded(options)

		// Блокировка слота упорядочивает запись с удалением слота. Удалённый
		// за это время слот возвращается как nil.
		locked, err := q.Slots().LockByID(ctx, chosen.Slot.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return interview.ErrSlotTaken
		}
		slot = chosen.Slot

		reservation = &model.Reservation{
			CandidateID: actor.ID,
			SlotID:      slot.ID,
			Status:      model.ReservationStatusPending,
			Result:      model.InterviewResultUnset,
		}
		if err := q.Reservations().Create(ctx, reservation); err != nil {
			return mapReservationConflict(err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("request reservation: %w", err)
	}

	reservation.Slot = slot

	s.logger.Info("Reservation created",
		zap.Int64("reservation_id", reservation.ID),
		zap.Int64("candidate_id", actor.ID),
		zap.Int64("slot_id", slot.ID),
		zap.Int64("teacher_id", slot.TeacherID),
	)

	s.dispatcher.Dispatch(ctx, interview.ReservationCreatedEffects(reservation, slot, s.location))

	return &Allocation{Reservation: reservation, Teacher: slot.Teacher}, nil
}

// mapReservationConflict переводит нарушение частичного уникального индекса
// или ссылку на исчезнувший слот в доменную ошибку
func mapReservationConflict(err error) error {
	if base.IsForeignKeyViolation(err) {
		return interview.ErrSlotTaken
	}
	if !base.IsUniqueViolation(err) {
		return err
	}

	switch base.ConstraintName(err) {
	case repository.ConstraintCandidateActive:
		return interview.ErrActiveReservationExists
	case repository.ConstraintSlotLive:
		return interview.ErrSlotTaken
	}
	return interview.ErrConflict
}

// UpdateReservation применяет команду к бронированию от имени actor
func (s *ReservationService) UpdateReservation(ctx context.Context, actor model.Actor, reservationID int64, cmd interview.Command) (*model.Reservation, error) {
	var decision interview.Decision

	err := s.store.Atomic(ctx, func(q repository.Queries) error {
		current, err := q.Reservations().LockByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if current == nil {
			return interview.ErrReservationNotFound
		}

		decision, err = interview.Decide(interview.Input{
			Reservation: current,
			Actor:       actor,
			Command:     cmd,
			Location:    s.location,
		})
		if err != nil {
			return err
		}

		if decision.Changed {
			ok, err := q.Reservations().UpdateState(ctx, &decision.Next, current.Status)
			if err != nil {
				return err
			}
			if !ok {
				return interview.ErrStaleReservation
			}
		}

		if decision.PromoteCandidate {
			promoted, err := q.Users().PromoteCandidate(ctx, current.CandidateID)
			if err != nil {
				return err
			}
			if promoted {
				s.logger.Info("Candidate promoted to student",
					zap.Int64("user_id", current.CandidateID),
					zap.Int64("reservation_id", current.ID),
				)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update reservation: %w", err)
	}

	if decision.Changed {
		s.logger.Info("Reservation updated",
			zap.Int64("reservation_id", reservationID),
			zap.Int64("actor_id", actor.ID),
			zap.String("status", string(decision.Next.Status)),
			zap.String("result", string(decision.Next.Result)),
		)
	}

	s.dispatcher.Dispatch(ctx, decision.Effects)

	next := decision.Next
	return &next, nil
}

// GetReservation бронирование, доступное только его участникам
func (s *ReservationService) GetReservation(ctx context.Context, actor model.Actor, reservationID int64) (*model.Reservation, error) {
	res, err := s.store.Reservations().GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if res == nil {
		return nil, interview.ErrReservationNotFound
	}
	if actor.ID != res.CandidateID && actor.ID != res.TeacherID() {
		return nil, interview.ErrForbidden
	}

	return res, nil
}

// ListMine бронирования кандидата (новые первыми) или бронирования на слотах учителя
func (s *ReservationService) ListMine(ctx context.Context, actor model.Actor) ([]*model.Reservation, error) {
	var (
		list []*model.Reservation
		err  error
	)

	switch {
	case actor.IsTeacher():
		list, err = s.store.Reservations().ListByTeacher(ctx, actor.ID)
	default:
		list, err = s.store.Reservations().ListByCandidate(ctx, actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	return list, nil
}

// ListCandidateReservations бронирования кандидата, новые первыми
func (s *ReservationService) ListCandidateReservations(ctx context.Context, actor model.Actor) ([]*model.Reservation, error) {
	if actor.IsTeacher() {
		return nil, interview.ErrForbidden
	}

	list, err := s.store.Reservations().ListByCandidate(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list candidate reservations: %w", err)
	}

	return list, nil
}
