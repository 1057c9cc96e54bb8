package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender часть API бота, нужная для уведомлений (*bot.Bot)
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier отправляет уведомления в личные сообщения бота
type TelegramNotifier struct {
	sender MessageSender
}

func NewTelegramNotifier(sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

func (n *TelegramNotifier) Name() string {
	return "telegram"
}

// Send пропускает пользователей без привязанного Telegram
func (n *TelegramNotifier) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.TelegramID == 0 {
		return nil
	}

	params := &bot.SendMessageParams{
		ChatID: to.TelegramID,
		Text:   fmt.Sprintf("%s\n\n%s", msg.Subject, renderBody(msg)),
	}
	if kb := keyboard(msg.Actions); kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send telegram message to %d: %w", to.TelegramID, err)
	}
	return nil
}

// keyboard строит inline клавиатуру из callback-кнопок, по одной в ряд.
// Ссылки идут текстом: Telegram отвергает кнопки с локальными URL.
func keyboard(actions []Action) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for _, a := range actions {
		if a.Data == "" {
			continue
		}
		rows = append(rows, []models.InlineKeyboardButton{{Text: a.Text, CallbackData: a.Data}})
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
