package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

const dispatchTimeout = 15 * time.Second

// NotificationWriter сохраняет уведомления в приложении
type NotificationWriter interface {
	Create(ctx context.Context, n *model.Notification) error
}

// UserGetter получает адресата уведомления
type UserGetter interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Pusher доставляет сообщение в открытые подключения пользователя
type Pusher interface {
	SendToUser(userID int64, message []byte) int
}

// Dispatcher выполняет эффекты переходов: уведомление в приложении,
// WebSocket, Telegram и email. Ошибки доставки логируются и не возвращаются.
type Dispatcher struct {
	notifications NotificationWriter
	users         UserGetter
	pusher        Pusher
	telegram      MessageSender // nil когда бот не настроен
	mailer        Mailer
	baseURL       string
	logger        *zap.Logger

	inflight sync.WaitGroup
}

func NewDispatcher(
	notifications NotificationWriter,
	users UserGetter,
	pusher Pusher,
	telegram MessageSender,
	mailer Mailer,
	baseURL string,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		pusher:        pusher,
		telegram:      telegram,
		mailer:        mailer,
		baseURL:       baseURL,
		logger:        logger,
	}
}

// Dispatch запускает доставку эффектов в фоне и сразу возвращает управление.
// Эффекты одного вызова выполняются по порядку, отмена контекста запроса
// доставку не прерывает.
func (d *Dispatcher) Dispatch(ctx context.Context, effects []interview.Effect) {
	if len(effects) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.deliver(ctx, effects)
	}()
}

// Wait дожидается завершения запущенных доставок
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, effects []interview.Effect) {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	users := make(map[int64]*model.User)
	lookup := func(id int64) *model.User {
		if u, ok := users[id]; ok {
			return u
		}
		u, err := d.users.GetByID(ctx, id)
		if err != nil {
			d.logger.Warn("Failed to load notification recipient", zap.Error(err), zap.Int64("user_id", id))
		}
		users[id] = u
		return u
	}

	for _, effect := range effects {
		switch effect.Kind {
		case interview.EffectNotify:
			d.notify(ctx, effect, lookup)
		case interview.EffectEmail:
			d.email(ctx, effect, lookup)
		default:
			d.logger.Warn("Unknown effect kind", zap.String("kind", string(effect.Kind)))
		}
	}
}

func (d *Dispatcher) absoluteURL(link string) string {
	if link == "" || d.baseURL == "" {
		return ""
	}
	return d.baseURL + link
}

func (d *Dispatcher) notify(ctx context.Context, effect interview.Effect, lookup func(int64) *model.User) {
	n := &model.Notification{
		UserID:    effect.UserID,
		Type:      effect.Type,
		Message:   effect.Message,
		Link:      effect.Link,
		CreatedAt: time.Now(),
	}

	if err := d.notifications.Create(ctx, n); err != nil {
		d.logger.Error("Failed to save notification",
			zap.Error(err),
			zap.Int64("user_id", effect.UserID),
			zap.String("type", string(effect.Type)),
		)
	}

	if payload, err := json.Marshal(n); err == nil {
		d.pusher.SendToUser(effect.UserID, payload)
	}

	if d.telegram == nil {
		return
	}

	user := lookup(effect.UserID)
	if user == nil || user.TelegramChatID == nil {
		return
	}

	_, err := d.telegram.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramChatID,
		Text:   telegramText(effect.Message, d.absoluteURL(effect.Link)),
	})
	if err != nil {
		d.logger.Warn("Failed to send telegram notification",
			zap.Error(err),
			zap.Int64("user_id", effect.UserID),
		)
	}
}

func (d *Dispatcher) email(ctx context.Context, effect interview.Effect, lookup func(int64) *model.User) {
	user := lookup(effect.UserID)
	if user == nil || user.Email == "" {
		return
	}

	body := effect.Message
	if url := d.absoluteURL(effect.Link); url != "" {
		body += "\n\n" + url
	}

	if err := d.mailer.Send(ctx, user.Email, effect.Subject, body); err != nil {
		d.logger.Warn("Failed to send email",
			zap.Error(err),
			zap.Int64("user_id", effect.UserID),
			zap.String("type", string(effect.Type)),
		)
	}
}
