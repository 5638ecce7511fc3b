package model

import (
	"errors"
	"time"
)

// Slot временное окно, опубликованное учителем для собеседований
type Slot struct {
	ID        int64     `json:"id"`
	TeacherID int64     `json:"teacher_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`

	// Заполняется при выборке открытых слотов (не колонка slots)
	Teacher *PublicProfile `json:"teacher,omitempty"`
}

// Contains проверяет попадание момента t в полуинтервал [StartTime, EndTime)
func (s *Slot) Contains(t time.Time) bool {
	return !t.Before(s.StartTime) && t.Before(s.EndTime)
}

func (s *Slot) Validate() error {
	if s.StartTime.IsZero() {
		return errors.New("start time is required")
	}
	if s.EndTime.IsZero() {
		return errors.New("end time is required")
	}
	if !s.StartTime.Before(s.EndTime) {
		return errors.New("start time must be before end time")
	}
	return nil
}

// SlotFilter условия выборки открытых слотов. Пустые поля не ограничивают выборку.
type SlotFilter struct {
	TeacherID *int64
	From      *time.Time // start_time >= From
	To        *time.Time // start_time < To
	At        *time.Time // start_time <= At < end_time
}
