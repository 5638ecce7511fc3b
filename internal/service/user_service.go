package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/auth"
	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LinkCodeTTL время жизни одноразового кода привязки Telegram
const LinkCodeTTL = 15 * time.Minute

// TokenIssuer выпускает токены доступа
type TokenIssuer interface {
	Generate(userID int64, role model.Role) (string, time.Time, error)
}

// LinkCodeStore хранилище одноразовых кодов привязки Telegram
type LinkCodeStore interface {
	SaveLinkCode(ctx context.Context, code string, userID int64, ttl time.Duration) error
	ConsumeLinkCode(ctx context.Context, code string) (int64, error)
}

// Session выданный токен доступа
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// TelegramLink ссылка на бота с кодом привязки
type TelegramLink struct {
	URL       string    `json:"url"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserService struct {
	store   Store
	tokens  TokenIssuer
	codes   LinkCodeStore // nil когда Redis не настроен
	botName string
	logger  *zap.Logger
}

func NewUserService(store Store, tokens TokenIssuer, codes LinkCodeStore, botName string, logger *zap.Logger) *UserService {
	return &UserService{
		store:   store,
		tokens:  tokens,
		codes:   codes,
		botName: botName,
		logger:  logger,
	}
}

// RegisterUser создаёт пользователя с указанной ролью
func (s *UserService) RegisterUser(ctx context.Context, email, password, firstName, lastName string, role model.Role) (*model.User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, interview.BadRequest("invalid email")
	}
	if !role.Valid() {
		return nil, interview.BadRequest("invalid role")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, interview.BadRequest(err.Error())
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         role,
	}

	err = s.store.Users().Create(ctx, user)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return nil, &interview.Error{Kind: interview.KindConflict, Code: "email_taken", Message: "email already registered"}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(role)),
	)

	return user, nil
}

// Login проверяет пароль и выдаёт токен доступа
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	// Одинаковый ответ для неизвестного email и неверного пароля
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, &interview.Error{Kind: interview.KindUnauthorized, Code: "invalid_credentials", Message: "invalid email or password"}
	}

	token, expiresAt, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser текущий пользователь
func (s *UserService) GetUser(ctx context.Context, actor model.Actor) (*model.User, error) {
	user, err := s.store.Users().GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, interview.ErrUnauthorized
	}
	return user, nil
}

// CreateTelegramLink выдаёт одноразовую ссылку на бота для привязки чата
func (s *UserService) CreateTelegramLink(ctx context.Context, actor model.Actor) (*TelegramLink, error) {
	if s.codes == nil || s.botName == "" {
		return nil, &interview.Error{Kind: interview.KindNotFound, Code: "telegram_disabled", Message: "telegram notifications are not configured"}
	}

	code := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := s.codes.SaveLinkCode(ctx, code, actor.ID, LinkCodeTTL); err != nil {
		return nil, fmt.Errorf("create telegram link: %w", err)
	}

	return &TelegramLink{
		URL:       fmt.Sprintf("https://t.me/%s?start=%s", s.botName, code),
		Code:      code,
		ExpiresAt: time.Now().Add(LinkCodeTTL),
	}, nil
}

// LinkTelegramChat привязывает чат по коду из /start. nil пользователь означает
// неизвестный или истёкший код.
func (s *UserService) LinkTelegramChat(ctx context.Context, code string, chatID int64) (*model.User, error) {
	if s.codes == nil || code == "" {
		return nil, nil
	}

	userID, err := s.codes.ConsumeLinkCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("link telegram chat: %w", err)
	}
	if userID == 0 {
		return nil, nil
	}

	if err := s.store.Users().SetTelegramChatID(ctx, userID, chatID); err != nil {
		return nil, fmt.Errorf("link telegram chat: %w", err)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("link telegram chat: %w", err)
	}

	s.logger.Info("Telegram chat linked",
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", chatID),
	)

	return user, nil
}
