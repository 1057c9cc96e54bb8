package telegram

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/notify"
	"github.com/go-telegram/bot/models"
)

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

func NewBuilder() *Builder {
	return &Builder{
		rows: make([][]models.InlineKeyboardButton, 0),
	}
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Empty проверяет, что в клавиатуре нет кнопок
func (b *Builder) Empty() bool {
	return len(b.rows) == 0
}

// Build создаёт финальную клавиатуру
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: b.rows,
	}
}

// Button создаёт кнопку
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton создаёт кнопку с URL. Telegram принимает только публичные https ссылки.
func URLButton(text, url string) (models.InlineKeyboardButton, bool) {
	if !strings.HasPrefix(url, "https://") {
		return models.InlineKeyboardButton{}, false
	}
	return models.InlineKeyboardButton{Text: text, URL: url}, true
}

func callback(prefix string, id int64) string {
	return fmt.Sprintf("%s%d", prefix, id)
}

// requestKeyboard кнопки заявки для ментора
func requestKeyboard(req *model.Request, viewerID int64) *Builder {
	kb := NewBuilder()
	if req.IsPending() && req.MentorID == viewerID {
		kb.Row(
			Button("✅ Принять", callback(notify.ActionAcceptRequest, req.ID)),
			Button("❌ Отклонить", callback(notify.ActionRejectRequest, req.ID)),
		)
	}
	return kb
}

// proposalKeyboard кнопки предложения в зависимости от роли и статуса
func proposalKeyboard(p *model.Proposal, viewerID int64) *Builder {
	kb := NewBuilder()
	isMentor := p.MentorID == viewerID

	switch {
	case isMentor && (p.IsAwaitingMentor() || p.IsPending()):
		kb.Row(Button("🗓 Предложить слоты", callback(notify.ActionProposeSlots, p.ID)))
	case isMentor && p.IsStudentChosen():
		kb.Row(Button("✅ Подтвердить", callback(notify.ActionConfirmProposal, p.ID)))
	case !isMentor && p.IsPending():
		for _, s := range p.Slots {
			kb.Row(Button(notify.FormatSlot(s), notify.SelectSlotData(p.ID, s)))
		}
	}

	if p.IsOpen() {
		kb.Row(Button("🚫 Отменить", callback(notify.ActionCancelProposal, p.ID)))
	}
	return kb
}
