package model

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"   // Ожидает подтверждения учителя
	ReservationStatusConfirmed ReservationStatus = "confirmed" // Подтверждено, есть ссылка на встречу
	ReservationStatusCancelled ReservationStatus = "cancelled" // Отменено кандидатом
	ReservationStatusCompleted ReservationStatus = "completed" // Собеседование проведено
)

type InterviewResult string

const (
	InterviewResultUnset    InterviewResult = "unset"
	InterviewResultAccepted InterviewResult = "accepted"
	InterviewResultRejected InterviewResult = "rejected"
)

type Reservation struct {
	ID             int64             `json:"id"`
	CandidateID    int64             `json:"candidate_id"`
	SlotID         int64             `json:"slot_id"`
	Status         ReservationStatus `json:"status"`
	Result         InterviewResult   `json:"result"`
	MeetingLink    string            `json:"meeting_link,omitempty"`
	ReminderSentAt *time.Time        `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`

	// Слот и кандидат подгружаются вместе с бронированием (не колонки reservations)
	Slot      *Slot          `json:"slot,omitempty"`
	Candidate *PublicProfile `json:"candidate,omitempty"`
}

// IsActive активное бронирование занимает кандидата и учитывается в нагрузке учителя
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusPending || r.Status == ReservationStatusConfirmed
}

// IsTerminal из завершённого или отменённого состояния выхода нет
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationStatusCompleted || r.Status == ReservationStatusCancelled
}

// TeacherID возвращает владельца слота, 0 если слот не загружен
func (r *Reservation) TeacherID() int64 {
	if r.Slot == nil {
		return 0
	}
	return r.Slot.TeacherID
}

// CandidateHistory сводка по бронированиям кандидата для проверок при записи
type CandidateHistory struct {
	HasActive    bool
	HasCompleted bool
}
