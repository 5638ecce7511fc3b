package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/notify"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ChatLinker привязывает Telegram-чат к пользователю по одноразовому коду
type ChatLinker interface {
	LinkTelegramChat(ctx context.Context, code string, chatID int64) (*model.User, error)
}

// BotController бот уведомлений: принимает /start с кодом привязки и /help
type BotController struct {
	bot    *bot.Bot
	linker ChatLinker
	logger *zap.Logger
}

func NewBotController(botInstance *bot.Bot, linker ChatLinker, logger *zap.Logger) *BotController {
	return &BotController{
		bot:    botInstance,
		linker: linker,
		logger: logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// /start приходит как "/start <code>" из ссылки t.me/<bot>?start=<code>
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Подключить уведомления"},
		{Command: "help", Description: "❓ Как привязать аккаунт"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает long polling, блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}

func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.reply(ctx, b, update.Message.Chat.ID, c.startReply(ctx, update.Message.Text, update.Message.Chat.ID))
}

func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.reply(ctx, b, update.Message.Chat.ID, helpText)
}

func (c *BotController) reply(ctx context.Context, sender notify.MessageSender, chatID int64, text string) {
	_, err := sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		c.logger.Warn("Failed to send bot reply", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

const helpText = "ℹ️ Этот бот присылает уведомления о собеседованиях.\n\n" +
	"Чтобы подключить уведомления:\n" +
	"1. Откройте личный кабинет на сайте\n" +
	"2. Нажмите «Подключить Telegram»\n" +
	"3. Перейдите по ссылке, бот привяжет этот чат автоматически\n\n" +
	"Ссылка действует 15 минут."

// startReply привязывает чат по коду из команды и возвращает текст ответа
func (c *BotController) startReply(ctx context.Context, text string, chatID int64) string {
	code := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
	if code == "" {
		return "👋 Привет!\n\n" + helpText
	}

	user, err := c.linker.LinkTelegramChat(ctx, code, chatID)
	if err != nil {
		c.logger.Error("Failed to link telegram chat", zap.Error(err), zap.Int64("chat_id", chatID))
		return "❌ Произошла ошибка при подключении. Попробуйте позже."
	}
	if user == nil {
		return "⚠️ Ссылка недействительна или устарела. Получите новую в личном кабинете."
	}

	return fmt.Sprintf("✅ %s, уведомления о собеседованиях подключены!", user.FirstName)
}
