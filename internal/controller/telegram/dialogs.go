package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const slotsPrompt = "🗓 Отправьте слоты, по одному на строку (время в UTC):\n\n" +
	"2025-01-15 10:00 11:00\n" +
	"2025-01-15T14:00:00Z 2025-01-15T15:00:00Z\n\n" +
	"/cancel - отменить"

// handleProposeSlotsInput обрабатывает список слотов от ментора
func (c *BotController) handleProposeSlotsInput(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	proposalID, ok := c.stateManager.GetInt64(telegramID, dataProposalID)
	if !ok {
		c.stateManager.ClearState(telegramID)
		c.sendError(ctx, b, chatID, "❌ Сессия истекла. Начните заново через /proposals.")
		return
	}

	slots, err := parseSlotLines(update.Message.Text)
	if err != nil {
		// Состояние сохраняем, ментор может исправить ввод
		c.sendError(ctx, b, chatID, fmt.Sprintf("❌ %s\n\n%s", err.Error(), slotsPrompt))
		return
	}

	user, ok := c.requireUser(ctx, b, update)
	if !ok {
		return
	}

	proposal, err := c.negotiation.ProposeSlots(ctx, negotiation.ActorOf(user), proposalID, slots)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindMalformedSlot {
			c.sendError(ctx, b, chatID, ErrorText(err))
			return
		}
		c.stateManager.ClearState(telegramID)
		c.logger.Warn("Failed to propose slots",
			zap.Int64("proposal_id", proposalID),
			zap.Int64("user_id", user.ID),
			zap.Error(err))
		c.sendError(ctx, b, chatID, ErrorText(err))
		return
	}

	c.stateManager.ClearState(telegramID)
	c.sendMessage(ctx, b, chatID, "✅ Слоты отправлены студенту.\n\n"+FormatProposal(proposal))
}

// parseSlotLines разбирает слоты по строкам. Поддерживаются форматы
// "YYYY-MM-DD HH:MM HH:MM" и "<начало> <конец>" в ISO-8601.
func parseSlotLines(text string) ([]availability.Interval, error) {
	var slots []availability.Interval

	for i, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		var (
			slot availability.Interval
			err  error
		)
		switch len(fields) {
		case 2:
			slot, err = availability.RawInterval{Start: fields[0], End: fields[1]}.Parse()
		case 3:
			slot, err = parseDayRange(fields[0], fields[1], fields[2])
		default:
			err = apperr.MalformedSlot("expected start and end")
		}
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", i+1, err)
		}
		slots = append(slots, slot)
	}

	if len(slots) == 0 {
		return nil, apperr.MalformedSlot("no slots given")
	}
	return slots, nil
}

func parseDayRange(day, from, to string) (availability.Interval, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", day+" "+from, time.UTC)
	if err != nil {
		return availability.Interval{}, apperr.MalformedTimestamp("cannot parse %s %s", day, from)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", day+" "+to, time.UTC)
	if err != nil {
		return availability.Interval{}, apperr.MalformedTimestamp("cannot parse %s %s", day, to)
	}

	slot := availability.New(start, end)
	if err := slot.Validate(); err != nil {
		return availability.Interval{}, err
	}
	return slot, nil
}
