package interview

import "errors"

// Kind класс ошибки, определяет HTTP-статус на границе запроса
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindNotFound
	KindConflict
)

// Error доменная ошибка с кодом и сообщением для пользователя
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Общие ошибки
var (
	ErrUnauthorized = newError(KindUnauthorized, "unauthorized", "authentication required")
	ErrForbidden    = newError(KindForbidden, "forbidden", "not allowed")
	ErrBadRequest   = newError(KindBadRequest, "bad_request", "invalid request")
	ErrNotFound     = newError(KindNotFound, "not_found", "not found")
	ErrConflict     = newError(KindConflict, "conflict", "conflict")
)

// Ошибки записи на собеседование и жизненного цикла бронирования
var (
	ErrNoSlotAvailable         = newError(KindBadRequest, "no_slot_available", "no slot available at requested time")
	ErrActiveReservationExists = newError(KindConflict, "active_reservation_exists", "candidate already has an active reservation")
	ErrAlreadyCompleted        = newError(KindConflict, "already_completed", "candidate already completed an interview")
	ErrInvalidTransition       = newError(KindConflict, "invalid_transition", "invalid status transition")
	ErrResultRequired          = newError(KindBadRequest, "result_required", "result required")
	ErrResultNotAccepted       = newError(KindBadRequest, "result_not_accepted", "result not accepted by teacher")
	ErrMeetingLinkRequired     = newError(KindBadRequest, "meeting_link_required", "meeting link required")
	ErrStaleReservation        = newError(KindConflict, "stale_reservation", "reservation was modified concurrently")
	ErrSlotOccupied            = newError(KindConflict, "slot_occupied", "slot has active reservations")
	ErrSlotTaken               = newError(KindConflict, "slot_taken", "slot was taken by another reservation")
	ErrReservationNotFound     = newError(KindNotFound, "reservation_not_found", "reservation not found")
	ErrSlotNotFound            = newError(KindNotFound, "slot_not_found", "slot not found")
)

// BadRequest создаёт ошибку валидации с произвольным сообщением
func BadRequest(message string) *Error {
	return newError(KindBadRequest, ErrBadRequest.Code, message)
}

// KindOf возвращает класс ошибки, KindInternal для инфраструктурных ошибок
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
