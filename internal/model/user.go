package model

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTeacher   Role = "teacher"
	RoleCandidate Role = "candidate"
	RoleStudent   Role = "student" // Кандидат, принявший положительный результат собеседования
)

// Valid проверяет что роль известна
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleCandidate, RoleStudent:
		return true
	}
	return false
}

type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Role           Role      `json:"role"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"` // nil - Telegram не привязан
	CreatedAt      time.Time `json:"created_at"`
}

// PublicProfile публичные данные пользователя (без контактов и служебных полей)
type PublicProfile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName возвращает имя и фамилию через пробел
func (p *PublicProfile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Actor аутентифицированный пользователь, от имени которого выполняется операция
type Actor struct {
	ID   int64
	Role Role
}

func (a Actor) IsTeacher() bool   { return a.Role == RoleTeacher }
func (a Actor) IsCandidate() bool { return a.Role == RoleCandidate }
