package notify

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
)

// Префиксы callback data для кнопок в Telegram. Их же разбирает бот.
const (
	ActionAcceptRequest   = "accept_request:"   // accept_request:request_id
	ActionRejectRequest   = "reject_request:"   // reject_request:request_id
	ActionProposeSlots    = "propose_slots:"    // propose_slots:proposal_id
	ActionSelectSlot      = "select_slot:"      // select_slot:proposal_id:start_unix:end_unix
	ActionConfirmProposal = "confirm_proposal:" // confirm_proposal:proposal_id
	ActionCancelProposal  = "cancel_proposal:"  // cancel_proposal:proposal_id
)

// Имена событий real-time канала
const (
	TopicNewRequest               = "new_request"
	TopicRequestAccepted          = "request_accepted"
	TopicRequestAcceptedNeedSlots = "request_accepted_need_slots"
	TopicRequestRejected          = "request_rejected"
	TopicMentorProposedSlots      = "mentor_proposed_slots"
	TopicStudentChosenSlot        = "student_chosen_slot"
	TopicProposalConfirmed        = "proposal_confirmed"
	TopicProposalCancelled        = "proposal_cancelled"
	TopicMeetingStatusChanged     = "meeting_status_changed"
)

// Delivery то, что нужно доставить одному пользователю по одному событию
type Delivery struct {
	UserID  int64
	Topic   string
	Payload map[string]any
	// Message nil означает только real-time уведомление
	Message *Message
}

// Composer превращает события переговоров в доставки
type Composer struct {
	frontendURL string
}

func NewComposer(frontendURL string) *Composer {
	return &Composer{frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (c *Composer) link(format string, args ...any) string {
	if c.frontendURL == "" {
		return ""
	}
	return c.frontendURL + fmt.Sprintf(format, args...)
}

func urlAction(text, url string) []Action {
	if url == "" {
		return nil
	}
	return []Action{{Text: text, URL: url}}
}

// Compose строит доставки для события. users содержит участников события по ID.
func (c *Composer) Compose(ev negotiation.Event, users map[int64]*model.User) []Delivery {
	switch e := ev.(type) {
	case negotiation.RequestCreated:
		return c.newRequest(e.Request, users, false)
	case negotiation.RequestReopened:
		return c.newRequest(e.Request, users, true)
	case negotiation.RequestAccepted:
		return c.requestAccepted(e, users)
	case negotiation.RequestRejected:
		return c.requestRejected(e, users)
	case negotiation.SlotsProposed:
		return c.slotsProposed(e, users)
	case negotiation.SlotChosen:
		return c.slotChosen(e, users)
	case negotiation.ProposalConfirmed:
		return c.proposalConfirmed(e, users)
	case negotiation.ProposalCancelled:
		return c.proposalCancelled(e, users)
	case negotiation.MeetingStatusChanged:
		return c.meetingStatusChanged(e, users)
	}
	return nil
}

func nameOf(users map[int64]*model.User, id int64) string {
	if u, ok := users[id]; ok && u != nil {
		return u.DisplayName()
	}
	return fmt.Sprintf("пользователь #%d", id)
}

func (c *Composer) newRequest(req *model.Request, users map[int64]*model.User, reopened bool) []Delivery {
	student := nameOf(users, req.StudentID)
	subject := "📩 Новая заявка"
	if reopened {
		subject = "📩 Повторная заявка"
	}

	body := fmt.Sprintf("%s хочет заниматься с вами.", student)
	if req.Message != "" {
		body += "\n\nСообщение:\n" + req.Message
	}

	actions := []Action{
		{Text: "✅ Принять", Data: fmt.Sprintf("%s%d", ActionAcceptRequest, req.ID)},
		{Text: "❌ Отклонить", Data: fmt.Sprintf("%s%d", ActionRejectRequest, req.ID)},
	}
	actions = append(actions, urlAction("Открыть заявку", c.link("/mentor/requests/%d", req.ID))...)

	return []Delivery{{
		UserID: req.MentorID,
		Topic:  TopicNewRequest,
		Payload: map[string]any{
			"request_id": req.ID,
			"student_id": req.StudentID,
			"message":    req.Message,
		},
		Message: &Message{Subject: subject, Body: body, Actions: actions},
	}}
}

func (c *Composer) requestAccepted(e negotiation.RequestAccepted, users map[int64]*model.User) []Delivery {
	req, p := e.Request, e.Proposal
	payload := map[string]any{
		"request_id":  req.ID,
		"proposal_id": p.ID,
		"status":      p.Status,
	}

	deliveries := make([]Delivery, 0, 2)

	if p.IsAwaitingMentor() {
		deliveries = append(deliveries, Delivery{
			UserID:  req.MentorID,
			Topic:   TopicRequestAcceptedNeedSlots,
			Payload: payload,
			Message: &Message{
				Subject: "🗓 Предложите время",
				Body:    fmt.Sprintf("Вы приняли заявку от %s. Предложите слоты для встречи.", nameOf(users, req.StudentID)),
				Actions: append([]Action{{Text: "🗓 Предложить слоты", Data: fmt.Sprintf("%s%d", ActionProposeSlots, p.ID)}},
					urlAction("Открыть предложение", c.link("/mentor/proposals/%d", p.ID))...),
			},
		})
		deliveries = append(deliveries, Delivery{
			UserID:  req.StudentID,
			Topic:   TopicRequestAccepted,
			Payload: payload,
			Message: &Message{
				Subject: "✅ Заявка принята",
				Body:    fmt.Sprintf("%s принял(а) вашу заявку и скоро предложит время.", nameOf(users, req.MentorID)),
			},
		})
		return deliveries
	}

	deliveries = append(deliveries, Delivery{UserID: req.MentorID, Topic: TopicRequestAccepted, Payload: payload})
	return append(deliveries, c.slotsProposed(negotiation.SlotsProposed{Proposal: p}, users)...)
}

func (c *Composer) requestRejected(e negotiation.RequestRejected, users map[int64]*model.User) []Delivery {
	req := e.Request
	return []Delivery{{
		UserID:  req.StudentID,
		Topic:   TopicRequestRejected,
		Payload: map[string]any{"request_id": req.ID},
		Message: &Message{
			Subject: "❌ Заявка отклонена",
			Body:    fmt.Sprintf("%s отклонил(а) вашу заявку.", nameOf(users, req.MentorID)),
		},
	}}
}

func (c *Composer) slotsProposed(e negotiation.SlotsProposed, users map[int64]*model.User) []Delivery {
	p := e.Proposal

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s предлагает время встречи:\n", nameOf(users, p.MentorID))
	actions := make([]Action, 0, len(p.Slots)+1)
	for i, s := range p.Slots {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, FormatSlot(s))
		actions = append(actions, Action{
			Text: FormatSlot(s),
			Data: SelectSlotData(p.ID, s),
		})
	}
	actions = append(actions, urlAction("Выбрать на сайте", c.link("/proposals/%d", p.ID))...)

	return []Delivery{{
		UserID: p.StudentID,
		Topic:  TopicMentorProposedSlots,
		Payload: map[string]any{
			"proposal_id": p.ID,
			"slots":       p.Slots,
		},
		Message: &Message{Subject: "🗓 Предложены слоты", Body: sb.String(), Actions: actions},
	}}
}

func (c *Composer) slotChosen(e negotiation.SlotChosen, users map[int64]*model.User) []Delivery {
	p := e.Proposal
	chosen := ""
	if p.ChosenSlot != nil {
		chosen = FormatSlot(*p.ChosenSlot)
	}

	return []Delivery{{
		UserID: p.MentorID,
		Topic:  TopicStudentChosenSlot,
		Payload: map[string]any{
			"proposal_id": p.ID,
			"chosen_slot": p.ChosenSlot,
		},
		Message: &Message{
			Subject: "👆 Слот выбран",
			Body:    fmt.Sprintf("%s выбрал(а) время: %s", nameOf(users, p.StudentID), chosen),
			Actions: append([]Action{{Text: "✅ Подтвердить", Data: fmt.Sprintf("%s%d", ActionConfirmProposal, p.ID)}},
				urlAction("Открыть предложение", c.link("/mentor/proposals/%d", p.ID))...),
		},
	}}
}

func (c *Composer) proposalConfirmed(e negotiation.ProposalConfirmed, users map[int64]*model.User) []Delivery {
	m := e.Meeting
	payload := map[string]any{
		"proposal_id": e.Proposal.ID,
		"meeting_id":  m.ID,
		"meet_link":   m.MeetLink,
		"start":       availability.FormatTimestamp(m.Start),
		"end":         availability.FormatTimestamp(m.End),
	}
	when := FormatSlot(availability.Interval{Start: m.Start, End: m.End})

	build := func(userID, otherID int64) Delivery {
		return Delivery{
			UserID:  userID,
			Topic:   TopicProposalConfirmed,
			Payload: payload,
			Message: &Message{
				Subject: "🎉 Встреча подтверждена",
				Body:    fmt.Sprintf("Встреча с %s: %s\nСсылка: %s", nameOf(users, otherID), when, m.MeetLink),
				Actions: urlAction("Присоединиться", m.MeetLink),
			},
		}
	}

	return []Delivery{
		build(m.StudentID, m.MentorID),
		build(m.MentorID, m.StudentID),
	}
}

func (c *Composer) proposalCancelled(e negotiation.ProposalCancelled, users map[int64]*model.User) []Delivery {
	p := e.Proposal
	target := p.StudentID
	if e.ByUserID == p.StudentID {
		target = p.MentorID
	}

	return []Delivery{{
		UserID:  target,
		Topic:   TopicProposalCancelled,
		Payload: map[string]any{"proposal_id": p.ID},
		Message: &Message{
			Subject: "🚫 Предложение отменено",
			Body:    fmt.Sprintf("%s отменил(а) согласование встречи.", nameOf(users, e.ByUserID)),
		},
	}}
}

func (c *Composer) meetingStatusChanged(e negotiation.MeetingStatusChanged, users map[int64]*model.User) []Delivery {
	m := e.Meeting
	target := m.StudentID
	if e.ByUserID == m.StudentID {
		target = m.MentorID
	}

	return []Delivery{{
		UserID: target,
		Topic:  TopicMeetingStatusChanged,
		Payload: map[string]any{
			"meeting_id": m.ID,
			"status":     m.Status,
			"previous":   e.From,
		},
		Message: &Message{
			Subject: "ℹ️ Статус встречи изменён",
			Body: fmt.Sprintf("Встреча %s: %s",
				FormatSlot(availability.Interval{Start: m.Start, End: m.End}), MeetingStatusText(m.Status)),
		},
	}}
}

// SelectSlotData callback data кнопки выбора слота. Слот кодируется значением,
// а не индексом: после повторного предложения старая кнопка не совпадёт ни с одним слотом.
func SelectSlotData(proposalID int64, s availability.Interval) string {
	return fmt.Sprintf("%s%d:%d:%d", ActionSelectSlot, proposalID, s.Start.Unix(), s.End.Unix())
}

// FormatSlot форматирует слот для сообщений
func FormatSlot(s availability.Interval) string {
	start, end := s.Start.UTC(), s.End.UTC()
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		return fmt.Sprintf("%s %s-%s UTC", start.Format("02.01.2006"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s UTC", start.Format("02.01.2006 15:04"), end.Format("02.01.2006 15:04"))
}

// MeetingStatusText возвращает статус встречи на русском
func MeetingStatusText(status model.MeetingStatus) string {
	switch status {
	case model.MeetingStatusScheduled:
		return "📅 Запланирована"
	case model.MeetingStatusConfirmed:
		return "✅ Подтверждена"
	case model.MeetingStatusCancelled:
		return "🚫 Отменена"
	case model.MeetingStatusCompleted:
		return "🏁 Завершена"
	default:
		return string(status)
	}
}
