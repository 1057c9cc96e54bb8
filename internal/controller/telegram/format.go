package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/notify"
)

var requestStatusText = map[model.RequestStatus]string{
	model.RequestStatusPending:  "⏳ Ожидает ответа",
	model.RequestStatusAccepted: "✅ Принята",
	model.RequestStatusRejected: "❌ Отклонена",
}

var proposalStatusText = map[model.ProposalStatus]string{
	model.ProposalStatusAwaitingMentor: "⏳ Ментор подбирает время",
	model.ProposalStatusPending:        "🗓 Ожидает выбора студента",
	model.ProposalStatusStudentChosen:  "👆 Ожидает подтверждения ментора",
	model.ProposalStatusConfirmed:      "🎉 Подтверждено",
	model.ProposalStatusCancelled:      "🚫 Отменено",
}

// FormatRequest форматирует заявку для списка
func FormatRequest(req *model.Request, viewerID int64) string {
	var sb strings.Builder
	if req.MentorID == viewerID {
		fmt.Fprintf(&sb, "📩 Заявка #%d от студента #%d\n", req.ID, req.StudentID)
	} else {
		fmt.Fprintf(&sb, "📤 Заявка #%d ментору #%d\n", req.ID, req.MentorID)
	}
	fmt.Fprintf(&sb, "📊 Статус: %s", requestStatusText[req.Status])
	if req.Message != "" {
		fmt.Fprintf(&sb, "\n💬 %s", req.Message)
	}
	return sb.String()
}

// FormatProposal форматирует предложение со списком слотов
func FormatProposal(p *model.Proposal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 Предложение #%d\n📊 Статус: %s", p.ID, proposalStatusText[p.Status])

	if len(p.Slots) > 0 {
		sb.WriteString("\n\nСлоты:")
		for i, s := range p.Slots {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, notify.FormatSlot(s))
		}
	}
	if p.ChosenSlot != nil {
		fmt.Fprintf(&sb, "\n\n👆 Выбран: %s", notify.FormatSlot(*p.ChosenSlot))
	}
	return sb.String()
}

// FormatMeeting форматирует встречу
func FormatMeeting(m *model.Meeting) string {
	return fmt.Sprintf("📅 Встреча #%d\n🕐 %s\n📊 %s\n🔗 %s",
		m.ID,
		notify.FormatSlot(availability.Interval{Start: m.Start, End: m.End}),
		notify.MeetingStatusText(m.Status),
		m.MeetLink,
	)
}

// ErrorText переводит ошибку сервиса в сообщение пользователю
func ErrorText(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return "❌ Произошла ошибка. Попробуйте позже."
	}

	switch appErr.Kind {
	case apperr.KindForbidden:
		return "⛔ Это действие вам недоступно."
	case apperr.KindInvalidStateTransition:
		return "⚠️ Статус уже изменился. Обновите список."
	case apperr.KindSlotNotOffered:
		return "❌ Этот слот не предлагался."
	case apperr.KindMalformedTimestamp, apperr.KindMalformedSlot:
		return "❌ Неверный формат времени: " + appErr.Message
	case apperr.KindDuplicateRequest:
		return "⚠️ Заявка этому ментору уже отправлена."
	case apperr.KindNotFound:
		return "❌ Не найдено."
	case apperr.KindExternalCollaboratorFailure:
		return "⚠️ Внешний сервис недоступен. Попробуйте позже."
	default:
		return "❌ " + appErr.Message
	}
}
