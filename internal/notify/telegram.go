package notify

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender отправка сообщений в Telegram, реализуется *bot.Bot
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

func telegramText(message, url string) string {
	if url == "" {
		return message
	}
	return message + "\n\n🔗 " + url
}
