package interview

import (
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

// Command запрошенное изменение бронирования (тело PATCH /reservations/{id})
type Command struct {
	Status      model.ReservationStatus `json:"status"`
	Result      model.InterviewResult   `json:"result,omitempty"`
	MeetingLink string                  `json:"meetingLink,omitempty"`
}

// Input текущее состояние бронирования и запрос на его изменение
type Input struct {
	Reservation *model.Reservation // Slot должен быть загружен
	Actor       model.Actor
	Command     Command
	Location    *time.Location // для текстов уведомлений, nil = UTC
}

// Decision результат перехода. Next пишется в хранилище только при Changed.
type Decision struct {
	Next             model.Reservation
	Changed          bool
	PromoteCandidate bool
	Effects          []Effect
}

// Decide проверяет переход по роли и текущему состоянию и вычисляет новое состояние
// и побочные эффекты. Функция чистая: ничего не пишет и никуда не отправляет.
//
//	pending/confirmed --teacher confirm+link--> confirmed
//	pending/confirmed --teacher complete+result--> completed
//	completed(accepted) --candidate accept--> completed, кандидат становится студентом
//	pending/confirmed --candidate cancel--> cancelled
func Decide(in Input) (Decision, error) {
	res := in.Reservation
	isCandidate := in.Actor.ID == res.CandidateID
	isTeacher := in.Actor.Role == model.RoleTeacher && in.Actor.ID == res.TeacherID()

	if !isCandidate && !isTeacher {
		return Decision{}, ErrForbidden
	}

	next := *res

	switch in.Command.Status {
	case model.ReservationStatusConfirmed:
		if !isTeacher {
			return Decision{}, ErrForbidden
		}
		if res.IsTerminal() {
			return Decision{}, ErrInvalidTransition
		}

		link := strings.TrimSpace(in.Command.MeetingLink)
		if link == "" {
			return Decision{}, ErrMeetingLinkRequired
		}

		// Повторное подтверждение с той же ссылкой ничего не меняет
		if res.Status == model.ReservationStatusConfirmed && res.MeetingLink == link {
			return Decision{Next: next}, nil
		}

		next.Status = model.ReservationStatusConfirmed
		next.MeetingLink = link
		return Decision{Next: next, Changed: true, Effects: confirmedEffects(&next, in.Location)}, nil

	case model.ReservationStatusCompleted:
		if isTeacher {
			if res.IsTerminal() {
				return Decision{}, ErrInvalidTransition
			}
			if in.Command.Result != model.InterviewResultAccepted && in.Command.Result != model.InterviewResultRejected {
				return Decision{}, ErrResultRequired
			}

			next.Status = model.ReservationStatusCompleted
			next.Result = in.Command.Result
			return Decision{Next: next, Changed: true, Effects: completedEffects(&next, in.Location)}, nil
		}

		return acceptResult(res, in.Command)

	case model.ReservationStatusCancelled:
		if !isCandidate {
			return Decision{}, ErrForbidden
		}
		if res.IsTerminal() {
			return Decision{}, ErrInvalidTransition
		}

		next.Status = model.ReservationStatusCancelled
		return Decision{Next: next, Changed: true, Effects: cancelledEffects(&next, in.Location)}, nil
	}

	return Decision{}, ErrInvalidTransition
}

// acceptResult кандидат подтверждает положительный результат; статус не меняется
func acceptResult(res *model.Reservation, cmd Command) (Decision, error) {
	// Завершить собеседование может только учитель
	if res.Status != model.ReservationStatusCompleted {
		return Decision{}, ErrForbidden
	}
	if cmd.Result != "" && cmd.Result != model.InterviewResultAccepted {
		return Decision{}, BadRequest("candidate can only accept the result")
	}
	if res.Result != model.InterviewResultAccepted {
		return Decision{}, ErrResultNotAccepted
	}

	return Decision{Next: *res, PromoteCandidate: true}, nil
}
