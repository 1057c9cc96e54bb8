package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/Freeeeeet/mentor_match/internal/notify"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleCallbackQuery распределяет нажатия inline кнопок по обработчикам
func (c *BotController) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}
	data := callback.Data

	c.logger.Info("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID),
		zap.String("user_name", callback.From.FirstName))

	user, ok := c.userByTelegramID(ctx, b, callback.From.ID, callback.From.ID)
	if !ok {
		answerCallback(ctx, b, callback.ID, "")
		return
	}
	actor := negotiation.ActorOf(user)

	switch {
	case strings.HasPrefix(data, notify.ActionAcceptRequest):
		c.handleAcceptRequest(ctx, b, callback, actor)
	case strings.HasPrefix(data, notify.ActionRejectRequest):
		c.handleRejectRequest(ctx, b, callback, actor)
	case strings.HasPrefix(data, notify.ActionProposeSlots):
		c.handleProposeSlots(ctx, b, callback, actor)
	case strings.HasPrefix(data, notify.ActionSelectSlot):
		c.handleSelectSlot(ctx, b, callback, actor)
	case strings.HasPrefix(data, notify.ActionConfirmProposal):
		c.handleConfirmProposal(ctx, b, callback, actor)
	case strings.HasPrefix(data, notify.ActionCancelProposal):
		c.handleCancelProposal(ctx, b, callback, actor)
	default:
		c.logger.Warn("Unknown callback data", zap.String("data", data))
		answerCallback(ctx, b, callback.ID, "")
	}
}

func (c *BotController) handleAcceptRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, actor negotiation.Actor) {
	requestID, err := parseIDFromCallback(callback.Data)
	if err != nil {
		answerCallbackAlert(ctx, b, callback.ID, "❌ Некорректные данные")
		return
	}

	// Без слотов в запросе пробуем подобрать их по доступности
	_, proposal, err := c.negotiation.AcceptRequest(ctx, actor, requestID, nil, true)
	if err != nil {
		c.failCallback(ctx, b, callback, "accept request", err)
		return
	}

	answerCallback(ctx, b, callback.ID, "✅ Заявка принята")
	removeKeyboard(ctx, b, callback)

	text := "✅ Заявка принята."
	if proposal.IsAwaitingMentor() {
		text += " Общих слотов не нашлось, предложите время вручную."
	} else {
		text += " Студенту отправлены слоты по вашей доступности."
	}
	c.sendWithKeyboard(ctx, b, callback.From.ID, text+"\n\n"+FormatProposal(proposal), proposalKeyboard(proposal, actor.UserID))
}

func (c *BotController) handleRejectRequest(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, actor negotiation.Actor) {
	requestID, err := parseIDFromCallback(callback.Data)
	if err != nil {
		answerCallbackAlert(ctx, b, callback.ID, "❌ Некорректные данные")
		return
	}

	if _, err := c.negotiation.RejectRequest(ctx, actor, requestID); err != nil {
		c.failCallback(ctx, b, callback, "reject request", err)
		return
	}

	answerCallback(ctx, b, callback.ID, "Заявка отклонена")
	removeKeyboard(ctx, b, callback)
}

// handleProposeSlots начинает диалог ввода слотов
func (c *BotController) handleProposeSlots(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, actor negotiation.Actor) {
	proposalID, err := parseIDFromCallback(callback.Data)
	if err != nil {
		answerCallbackAlert(ctx, b, callback.ID, "❌ Некорректные данные")
		return
	}

	proposal, err := c.negotiation.GetProposal(ctx, actor, proposalID)
	if err != nil {
		c.failCallback(ctx, b, callback, "get proposal", err)
		return
	}
	if proposal.MentorID != actor.UserID {
		answerCallbackAlert(ctx, b, callback.ID, ErrorText(apperr.Forbidden("only the mentor proposes slots")))
		return
	}
	if !proposal.IsAwaitingMentor() && !proposal.IsPending() {
		answerCallbackAlert(ctx, b, callback.ID, ErrorText(apperr.InvalidTransition("proposal is %s", proposal.Status)))
		return
	}

	c.stateManager.Begin(callback.From.ID, StateProposingSlots, map[string]interface{}{
		dataProposalID: proposalID,
	})

	answerCallback(ctx, b, callback.ID, "")
	c.sendMessage(ctx, b, callback.From.ID, slotsPrompt)
}

func (c *BotController) handleSelectSlot(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, actor negotiation.Actor) {
	proposalID, slot, err := parseSelectSlot(callback.Data)
	if err != nil {
		answerCallbackAlert(ctx, b, callback.ID, "❌ Некорректные данные")
		return
	}

	// Кнопка от старого набора слотов даст SlotNotOffered
	updated, err := c.negotiation.SelectSlot(ctx, actor, proposalID, slot)
	if err != nil {
		c.failCallback(ctx, b, callback, "select slot", err)
		return
	}

	answerCallback(ctx, b, callback.ID, "👆 Слот выбран")
	removeKeyboard(ctx, b, callback)
	c.sendMessage(ctx, b, callback.From.ID, fmt.Sprintf(
		"👆 Вы выбрали %s.\nЖдём подтверждения ментора.", notify.FormatSlot(*updated.ChosenSlot)))
}

func (c *BotController) handleConfirmProposal(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, actor negotiation.Actor) {
	proposalID, err := parseIDFromCallback(callback.Data)
	if err != nil {
		answerCallbackAlert(ctx, b, callback.ID, "❌ Некорректные данные")
		return
	}

	_, meeting, err := c.negotiation.ConfirmProposal(ctx, actor, proposalID)
	if err != nil {
		c.failCallback(ctx, b, callback, "confirm proposal", err)
		return
	}

	answerCallback(ctx, b, callback.ID, "🎉 Встреча подтверждена")
	removeKeyboard(ctx, b, callback)
	c.sendMessage(ctx, b, callback.From.ID, FormatMeeting(meeting))
}

func (c *BotController) handleCancelProposal(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, actor negotiation.Actor) {
	proposalID, err := parseIDFromCallback(callback.Data)
	if err != nil {
		answerCallbackAlert(ctx, b, callback.ID, "❌ Некорректные данные")
		return
	}

	if _, err := c.negotiation.CancelProposal(ctx, actor, proposalID); err != nil {
		c.failCallback(ctx, b, callback, "cancel proposal", err)
		return
	}

	answerCallback(ctx, b, callback.ID, "🚫 Согласование отменено")
	removeKeyboard(ctx, b, callback)
}

// failCallback показывает ошибку во всплывающем окне
func (c *BotController) failCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, op string, err error) {
	if apperr.KindOf(err) == "" {
		c.logger.Error("Callback failed",
			zap.String("op", op),
			zap.Int64("telegram_id", callback.From.ID),
			zap.Error(err))
	}
	answerCallbackAlert(ctx, b, callback.ID, ErrorText(err))
}

// removeKeyboard убирает кнопки у сообщения, чтобы их не нажали повторно
func removeKeyboard(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	msg := callback.Message.Message
	if msg == nil {
		return
	}
	b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}},
	})
}

// answerCallback отвечает на callback query (без alert)
func answerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       false,
	})
}

// answerCallbackAlert отвечает на callback query с alert (всплывающее окно)
func answerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// parseIDFromCallback извлекает ID из callback data
// Например: "accept_request:123" -> 123
func parseIDFromCallback(data string) (int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid callback data format")
	}
	return strconv.ParseInt(parts[1], 10, 64)
}

// parseSelectSlot разбирает "select_slot:proposal_id:start_unix:end_unix"
func parseSelectSlot(data string) (int64, availability.Interval, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 {
		return 0, availability.Interval{}, fmt.Errorf("invalid callback data format")
	}

	var nums [3]int64
	for i, part := range parts[1:] {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, availability.Interval{}, err
		}
		nums[i] = n
	}

	slot := availability.New(time.Unix(nums[1], 0), time.Unix(nums[2], 0))
	if err := slot.Validate(); err != nil {
		return 0, availability.Interval{}, err
	}
	return nums[0], slot, nil
}
