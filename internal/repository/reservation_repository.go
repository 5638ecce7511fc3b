package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

// Индексы, на которые опираются инварианты бронирования
const (
	ConstraintSlotLive        = "reservations_slot_live_idx"
	ConstraintCandidateActive = "reservations_candidate_active_idx"
)

const reservationSelect = `
	SELECT r.id, r.candidate_id, r.slot_id, r.status, r.result, r.meeting_link,
	       r.reminder_sent_at, r.created_at, r.updated_at,
	       s.id, s.teacher_id, s.start_time, s.end_time, s.created_at,
	       t.first_name, t.last_name,
	       c.first_name, c.last_name
	FROM reservations r
	JOIN slots s ON s.id = r.slot_id
	JOIN users t ON t.id = s.teacher_id
	JOIN users c ON c.id = r.candidate_id
`

type ReservationRepository struct {
	db base.Querier
}

func NewReservationRepository(db base.Querier) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	slot := &model.Slot{}
	teacher := &model.PublicProfile{}
	candidate := &model.PublicProfile{}

	err := row.Scan(
		&res.ID,
		&res.CandidateID,
		&res.SlotID,
		&res.Status,
		&res.Result,
		&res.MeetingLink,
		&res.ReminderSentAt,
		&res.CreatedAt,
		&res.UpdatedAt,
		&slot.ID,
		&slot.TeacherID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.CreatedAt,
		&teacher.FirstName,
		&teacher.LastName,
		&candidate.FirstName,
		&candidate.LastName,
	)
	if err != nil {
		return nil, err
	}

	teacher.ID = slot.TeacherID
	candidate.ID = res.CandidateID
	slot.Teacher = teacher
	res.Slot = slot
	res.Candidate = candidate

	return &res, nil
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]*model.Reservation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}

// Create создаёт новое бронирование. Нарушение частичных уникальных индексов
// возвращается как есть, его разбирает сервис.
func (r *ReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	query := `
		INSERT INTO reservations (candidate_id, slot_id, status, result)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		res.CandidateID,
		res.SlotID,
		res.Status,
		res.Result,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}

	return nil
}

// GetByID получает бронирование со слотом и профилями участников
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, reservationSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}

	return res, nil
}

// LockByID как GetByID, но блокирует строку бронирования до конца транзакции
func (r *ReservationRepository) LockByID(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, reservationSelect+` WHERE r.id = $1 FOR UPDATE OF r`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock reservation: %w", err)
	}

	return res, nil
}

// UpdateState записывает статус, результат и ссылку, если статус в базе всё ещё prev.
// false означает, что бронирование изменили параллельно.
func (r *ReservationRepository) UpdateState(ctx context.Context, res *model.Reservation, prev model.ReservationStatus) (bool, error) {
	query := `
		UPDATE reservations
		SET status = $2, result = $3, meeting_link = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query, res.ID, res.Status, res.Result, res.MeetingLink, prev).Scan(&res.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("update reservation state: %w", err)
	}

	return true, nil
}

// CountActiveForTeacher количество pending и confirmed бронирований на слотах учителя
func (r *ReservationRepository) CountActiveForTeacher(ctx context.Context, teacherID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations r
		JOIN slots s ON s.id = r.slot_id
		WHERE s.teacher_id = $1 AND r.status IN ('pending', 'confirmed')
	`

	var count int
	if err := r.db.QueryRow(ctx, query, teacherID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active reservations for teacher: %w", err)
	}

	return count, nil
}

// CandidateHistory есть ли у кандидата активное или завершённое бронирование
func (r *ReservationRepository) CandidateHistory(ctx context.Context, candidateID int64) (model.CandidateHistory, error) {
	query := `
		SELECT
			COALESCE(bool_or(status IN ('pending', 'confirmed')), FALSE),
			COALESCE(bool_or(status = 'completed'), FALSE)
		FROM reservations
		WHERE candidate_id = $1
	`

	var history model.CandidateHistory
	if err := r.db.QueryRow(ctx, query, candidateID).Scan(&history.HasActive, &history.HasCompleted); err != nil {
		return model.CandidateHistory{}, fmt.Errorf("candidate history: %w", err)
	}

	return history, nil
}

// ListByCandidate бронирования кандидата, новые первыми
func (r *ReservationRepository) ListByCandidate(ctx context.Context, candidateID int64) ([]*model.Reservation, error) {
	reservations, err := r.list(ctx, reservationSelect+`
		WHERE r.candidate_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get reservations by candidate: %w", err)
	}

	return reservations, nil
}

// ListByTeacher бронирования на слотах учителя в порядке начала собеседования
func (r *ReservationRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Reservation, error) {
	reservations, err := r.list(ctx, reservationSelect+`
		WHERE s.teacher_id = $1
		ORDER BY s.start_time, r.id
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get reservations by teacher: %w", err)
	}

	return reservations, nil
}

// ListDueReminders подтверждённые собеседования, начинающиеся в [from, until), без отправленного напоминания
func (r *ReservationRepository) ListDueReminders(ctx context.Context, from, until time.Time) ([]*model.Reservation, error) {
	reservations, err := r.list(ctx, reservationSelect+`
		WHERE r.status = 'confirmed'
		  AND r.reminder_sent_at IS NULL
		  AND s.start_time >= $1 AND s.start_time < $2
		ORDER BY s.start_time, r.id
	`, from, until)
	if err != nil {
		return nil, fmt.Errorf("get due reminders: %w", err)
	}

	return reservations, nil
}

// MarkReminded отмечает отправку напоминания. false если его уже отметил другой процесс.
func (r *ReservationRepository) MarkReminded(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE reservations
		SET reminder_sent_at = $2
		WHERE id = $1 AND reminder_sent_at IS NULL AND status = 'confirmed'
	`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("mark reminded: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
