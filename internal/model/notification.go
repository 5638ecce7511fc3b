package model

import "time"

type NotificationType string

const (
	NotificationReservationCreated   NotificationType = "reservation_created"
	NotificationReservationConfirmed NotificationType = "reservation_confirmed"
	NotificationReservationCancelled NotificationType = "reservation_cancelled"
	NotificationInterviewCompleted   NotificationType = "interview_completed"
	NotificationInterviewReminder    NotificationType = "interview_reminder"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Link      string           `json:"link"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
