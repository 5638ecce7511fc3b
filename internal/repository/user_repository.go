package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, telegram_chat_id, created_at`

type UserRepository struct {
	db base.Querier
}

func NewUserRepository(db base.Querier) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.TelegramChatID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// GetByEmail получает пользователя по email (без учёта регистра)
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

// LockByID блокирует строку пользователя до конца транзакции.
// Последовательно обрабатывает конкурентные записи одного кандидата.
func (r *UserRepository) LockByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}

	return user, nil
}

// PromoteCandidate переводит кандидата в студенты. Повторный вызов ничего не меняет.
func (r *UserRepository) PromoteCandidate(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE users
		SET role = $2
		WHERE id = $1 AND role = $3
	`

	tag, err := r.db.Exec(ctx, query, id, model.RoleStudent, model.RoleCandidate)
	if err != nil {
		return false, fmt.Errorf("promote candidate: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetTelegramChatID привязывает Telegram-чат к пользователю.
// Чат, привязанный к другому пользователю, отвязывается.
func (r *UserRepository) SetTelegramChatID(ctx context.Context, id, chatID int64) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET telegram_chat_id = NULL WHERE telegram_chat_id = $1 AND id <> $2`, chatID, id); err != nil {
		return fmt.Errorf("unlink telegram chat: %w", err)
	}

	tag, err := r.db.Exec(ctx, `UPDATE users SET telegram_chat_id = $2 WHERE id = $1`, id, chatID)
	if err != nil {
		return fmt.Errorf("set telegram chat id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set telegram chat id: user %d not found", id)
	}

	return nil
}
