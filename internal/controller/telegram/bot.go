// Package telegram Telegram интерфейс переговоров: команды, inline кнопки и диалог ввода слотов.
package telegram

import (
	"context"

	"github.com/Freeeeeet/mentor_match/internal/auth"
	"github.com/Freeeeeet/mentor_match/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot          *bot.Bot
	users        *service.UserService
	negotiation  *service.NegotiationService
	meetings     *service.MeetingService
	tokens       *auth.Tokens
	stateManager *StateManager
	frontendURL  string
	logger       *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	userService *service.UserService,
	negotiationService *service.NegotiationService,
	meetingService *service.MeetingService,
	tokens *auth.Tokens,
	frontendURL string,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:          botInstance,
		users:        userService,
		negotiation:  negotiationService,
		meetings:     meetingService,
		tokens:       tokens,
		stateManager: NewStateManager(),
		frontendURL:  frontendURL,
		logger:       logger.Named("telegram"),
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// /start может прийти с токеном привязки: "/start <token>"
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/requests", bot.MatchTypeExact, c.HandleRequests)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/proposals", bot.MatchTypeExact, c.HandleProposals)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/meetings", bot.MatchTypeExact, c.HandleMeetings)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.HandleCancel)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "requests", Description: "📩 Мои заявки"},
		{Command: "proposals", Description: "🗓 Согласование времени"},
		{Command: "meetings", Description: "📅 Мои встречи"},
		{Command: "cancel", Description: "❌ Отменить ввод"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает long polling и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
