package interview

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
)

type EffectKind string

const (
	EffectNotify EffectKind = "notify" // Уведомление в приложении (+ Telegram, WebSocket)
	EffectEmail  EffectKind = "email"
)

// Effect побочный эффект перехода. Выполняется диспетчером после коммита,
// ошибки выполнения не влияют на результат операции.
type Effect struct {
	Kind    EffectKind
	UserID  int64
	Type    model.NotificationType
	Subject string // только для email
	Message string
	Link    string
}

func notify(userID int64, typ model.NotificationType, message, link string) Effect {
	return Effect{Kind: EffectNotify, UserID: userID, Type: typ, Message: message, Link: link}
}

func email(userID int64, typ model.NotificationType, subject, body, link string) Effect {
	return Effect{Kind: EffectEmail, UserID: userID, Type: typ, Subject: subject, Message: body, Link: link}
}

// ReservationLink относительная ссылка на бронирование для уведомлений
func ReservationLink(reservationID int64) string {
	return fmt.Sprintf("/reservations/%d", reservationID)
}

// formatWindow форматирует окно слота: 01.03.2024 10:00-11:00
func formatWindow(slot *model.Slot, loc *time.Location) string {
	if slot == nil {
		return "?"
	}
	if loc == nil {
		loc = time.UTC
	}
	start := slot.StartTime.In(loc)
	end := slot.EndTime.In(loc)
	return fmt.Sprintf("%s %s-%s", start.Format("02.01.2006"), start.Format("15:04"), end.Format("15:04"))
}

// ReservationCreatedEffects уведомления учителю и кандидату + письмо учителю
func ReservationCreatedEffects(res *model.Reservation, slot *model.Slot, loc *time.Location) []Effect {
	window := formatWindow(slot, loc)
	link := ReservationLink(res.ID)

	return []Effect{
		notify(slot.TeacherID, model.NotificationReservationCreated,
			fmt.Sprintf("📝 Новая запись на собеседование %s", window), link),
		notify(res.CandidateID, model.NotificationReservationCreated,
			fmt.Sprintf("⏳ Вы записаны на собеседование %s. Ожидайте подтверждения.", window), link),
		email(slot.TeacherID, model.NotificationReservationCreated,
			"Новая запись на собеседование",
			fmt.Sprintf("Кандидат записался на собеседование %s.\nПодтвердите запись и укажите ссылку на встречу.", window),
			link),
	}
}

func confirmedEffects(res *model.Reservation, loc *time.Location) []Effect {
	window := formatWindow(res.Slot, loc)
	link := ReservationLink(res.ID)
	subject := "Собеседование подтверждено"
	candidateText := fmt.Sprintf("✅ Собеседование %s подтверждено.\nСсылка на встречу: %s", window, res.MeetingLink)
	teacherText := fmt.Sprintf("✅ Вы подтвердили собеседование %s.\nСсылка на встречу: %s", window, res.MeetingLink)

	return []Effect{
		notify(res.CandidateID, model.NotificationReservationConfirmed, candidateText, link),
		notify(res.TeacherID(), model.NotificationReservationConfirmed, teacherText, link),
		email(res.CandidateID, model.NotificationReservationConfirmed, subject, candidateText, link),
		email(res.TeacherID(), model.NotificationReservationConfirmed, subject, teacherText, link),
	}
}

func completedEffects(res *model.Reservation, loc *time.Location) []Effect {
	text := "❌ По итогам собеседования %s вы не приняты."
	if res.Result == model.InterviewResultAccepted {
		text = "🎉 По итогам собеседования %s вы приняты! Подтвердите результат в личном кабинете."
	}

	return []Effect{
		notify(res.CandidateID, model.NotificationInterviewCompleted,
			fmt.Sprintf(text, formatWindow(res.Slot, loc)), ReservationLink(res.ID)),
	}
}

func cancelledEffects(res *model.Reservation, loc *time.Location) []Effect {
	window := formatWindow(res.Slot, loc)
	link := ReservationLink(res.ID)

	return []Effect{
		notify(res.TeacherID(), model.NotificationReservationCancelled,
			fmt.Sprintf("❌ Кандидат отменил собеседование %s", window), link),
		notify(res.CandidateID, model.NotificationReservationCancelled,
			fmt.Sprintf("❌ Вы отменили собеседование %s", window), link),
	}
}

// ReminderEffects напоминание обеим сторонам о подтверждённом собеседовании
func ReminderEffects(res *model.Reservation, loc *time.Location) []Effect {
	text := fmt.Sprintf("⏰ Напоминание: собеседование %s.\nСсылка на встречу: %s", formatWindow(res.Slot, loc), res.MeetingLink)
	link := ReservationLink(res.ID)

	return []Effect{
		notify(res.CandidateID, model.NotificationInterviewReminder, text, link),
		notify(res.TeacherID(), model.NotificationInterviewReminder, text, link),
	}
}
