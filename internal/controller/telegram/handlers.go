package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentor_match/internal/auth"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"/requests - Заявки (менторы принимают и отклоняют их здесь)\n" +
	"/proposals - Согласование времени встречи\n" +
	"/meetings - Подтверждённые встречи\n" +
	"/cancel - Отменить ввод слотов\n" +
	"/help - Показать эту справку\n\n" +
	"Уведомления о новых заявках и слотах приходят сюда автоматически."

// HandleStart обрабатывает /start и /start <token> для привязки аккаунта
func (c *BotController) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID

	fields := strings.Fields(update.Message.Text)
	if fields[0] != "/start" {
		return
	}

	if len(fields) > 1 {
		c.linkAccount(ctx, b, chatID, telegramID, fields[1])
		return
	}

	user, err := c.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	if user == nil {
		c.sendMessage(ctx, b, chatID, fmt.Sprintf(
			"👋 Привет!\n\n"+
				"Чтобы получать уведомления о заявках и встречах, привяжите Telegram в профиле:\n%s/profile",
			strings.TrimRight(c.frontendURL, "/"),
		))
		return
	}

	c.sendMessage(ctx, b, chatID, fmt.Sprintf("👋 Привет, %s!\n\n%s", user.DisplayName(), helpText))
}

func (c *BotController) linkAccount(ctx context.Context, b *bot.Bot, chatID, telegramID int64, token string) {
	userID, err := c.tokens.VerifyLinkToken(token)
	if err != nil {
		text := "❌ Ссылка недействительна. Получите новую в профиле."
		if errors.Is(err, auth.ErrExpiredToken) {
			text = "⌛ Ссылка устарела. Получите новую в профиле."
		}
		c.sendError(ctx, b, chatID, text)
		return
	}

	user, err := c.users.LinkTelegram(ctx, userID, telegramID)
	if err != nil {
		c.logger.Error("Failed to link telegram", zap.Int64("user_id", userID), zap.Error(err))
		c.sendError(ctx, b, chatID, ErrorText(err))
		return
	}

	c.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Telegram привязан к аккаунту %s.\n\n%s", user.Email, helpText))
}

// HandleHelp обрабатывает команду /help
func (c *BotController) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleRequests показывает заявки пользователя
func (c *BotController) HandleRequests(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := c.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	requests, err := c.negotiation.ListRequests(ctx, negotiation.ActorOf(user))
	if err != nil {
		c.logger.Error("Failed to list requests", zap.Int64("user_id", user.ID), zap.Error(err))
		c.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	if len(requests) == 0 {
		c.sendMessage(ctx, b, chatID, "📭 Заявок пока нет.")
		return
	}

	for _, req := range requests {
		c.sendWithKeyboard(ctx, b, chatID, FormatRequest(req, user.ID), requestKeyboard(req, user.ID))
	}
}

// HandleProposals показывает открытые предложения
func (c *BotController) HandleProposals(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := c.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	proposals, err := c.negotiation.ListProposals(ctx, negotiation.ActorOf(user))
	if err != nil {
		c.logger.Error("Failed to list proposals", zap.Int64("user_id", user.ID), zap.Error(err))
		c.sendError(ctx, b, chatID, ErrorText(err))
		return
	}

	shown := 0
	for _, p := range proposals {
		if !p.IsOpen() {
			continue
		}
		c.sendWithKeyboard(ctx, b, chatID, FormatProposal(p), proposalKeyboard(p, user.ID))
		shown++
	}
	if shown == 0 {
		c.sendMessage(ctx, b, chatID, "📭 Нет открытых согласований.")
	}
}

// HandleMeetings показывает встречи пользователя
func (c *BotController) HandleMeetings(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := c.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	meetings, err := c.meetings.List(ctx, negotiation.ActorOf(user))
	if err != nil {
		c.logger.Error("Failed to list meetings", zap.Int64("user_id", user.ID), zap.Error(err))
		c.sendError(ctx, b, chatID, ErrorText(err))
		return
	}
	if len(meetings) == 0 {
		c.sendMessage(ctx, b, chatID, "📭 Встреч пока нет.")
		return
	}

	for _, m := range meetings {
		kb := NewBuilder()
		if btn, ok := URLButton("🎥 Присоединиться", m.MeetLink); ok && !m.IsFinished() {
			kb.Row(btn)
		}
		c.sendWithKeyboard(ctx, b, chatID, FormatMeeting(m), kb)
	}
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (c *BotController) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if c.stateManager.GetState(telegramID) == StateNone {
		c.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	c.stateManager.ClearState(telegramID)
	c.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.")
}

// HandleTextMessage обрабатывает текстовые сообщения в зависимости от состояния пользователя
func (c *BotController) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	// Команды обрабатываются другими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	switch c.stateManager.GetState(update.Message.From.ID) {
	case StateProposingSlots:
		c.handleProposeSlotsInput(ctx, b, update)
	default:
		c.sendMessage(ctx, b, update.Message.Chat.ID, "Не понимаю сообщение. Используйте /help.")
	}
}

// requireUser проверяет, что Telegram аккаунт привязан
func (c *BotController) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, false
	}
	return c.userByTelegramID(ctx, b, update.Message.From.ID, update.Message.Chat.ID)
}

func (c *BotController) userByTelegramID(ctx context.Context, b *bot.Bot, telegramID, chatID int64) (*model.User, bool) {
	user, err := c.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.sendError(ctx, b, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return nil, false
	}

	if user == nil {
		c.sendError(ctx, b, chatID, "❌ Аккаунт не привязан. Используйте /start.")
		return nil, false
	}

	return user, true
}

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (c *BotController) sendError(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		c.logger.Error("Failed to send error message",
			zap.Int64("chat_id", chatID),
			zap.String("text", text),
			zap.Error(err),
		)
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (c *BotController) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	c.sendWithKeyboard(ctx, b, chatID, text, nil)
}

func (c *BotController) sendWithKeyboard(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *Builder) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if kb != nil && !kb.Empty() {
		params.ReplyMarkup = kb.Build()
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		c.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
