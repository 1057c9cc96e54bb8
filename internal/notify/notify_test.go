package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	mentor  = &model.User{ID: 1, FirstName: "Ann", Role: model.RoleMentor, Email: "ann@example.com"}
	student = &model.User{ID: 2, Username: "bob", Role: model.RoleStudent, Email: "bob@example.com"}
	users   = map[int64]*model.User{mentor.ID: mentor, student.ID: student}
)

func slot(hour int) availability.Interval {
	start := time.Date(2025, 1, 2, hour, 0, 0, 0, time.UTC)
	return availability.Interval{Start: start, End: start.Add(time.Hour)}
}

func TestComposeNewRequest(t *testing.T) {
	c := NewComposer("https://app.example.com/")
	req := &model.Request{ID: 5, StudentID: student.ID, MentorID: mentor.ID, Message: "hi"}

	deliveries := c.Compose(negotiation.RequestCreated{Request: req}, users)

	require.Len(t, deliveries, 1)
	d := deliveries[0]
	assert.Equal(t, mentor.ID, d.UserID)
	assert.Equal(t, TopicNewRequest, d.Topic)
	assert.Equal(t, int64(5), d.Payload["request_id"])
	require.NotNil(t, d.Message)
	assert.Contains(t, d.Message.Body, "bob")
	assert.Contains(t, d.Message.Body, "hi")
	assert.Equal(t, "accept_request:5", d.Message.Actions[0].Data)
	assert.Equal(t, "https://app.example.com/mentor/requests/5", d.Message.Actions[2].URL)
}

func TestComposeAcceptedAdHocAsksMentorForSlots(t *testing.T) {
	c := NewComposer("")
	req := &model.Request{ID: 5, StudentID: student.ID, MentorID: mentor.ID, Status: model.RequestStatusAccepted}
	p := &model.Proposal{ID: 9, MentorID: mentor.ID, StudentID: student.ID, Status: model.ProposalStatusAwaitingMentor}

	deliveries := c.Compose(negotiation.RequestAccepted{Request: req, Proposal: p}, users)

	require.Len(t, deliveries, 2)
	assert.Equal(t, mentor.ID, deliveries[0].UserID)
	assert.Equal(t, TopicRequestAcceptedNeedSlots, deliveries[0].Topic)
	assert.Equal(t, "propose_slots:9", deliveries[0].Message.Actions[0].Data)
	assert.Len(t, deliveries[0].Message.Actions, 1, "no frontend url configured")
	assert.Equal(t, student.ID, deliveries[1].UserID)
}

func TestComposeAcceptedWithSlotsOffersThemToStudent(t *testing.T) {
	c := NewComposer("")
	req := &model.Request{ID: 5, StudentID: student.ID, MentorID: mentor.ID}
	p := &model.Proposal{ID: 9, MentorID: mentor.ID, StudentID: student.ID, Status: model.ProposalStatusPending,
		Slots: []availability.Interval{slot(10), slot(11)}}

	deliveries := c.Compose(negotiation.RequestAccepted{Request: req, Proposal: p}, users)

	require.Len(t, deliveries, 2)
	offer := deliveries[1]
	assert.Equal(t, TopicMentorProposedSlots, offer.Topic)
	assert.Equal(t, student.ID, offer.UserID)
	assert.Equal(t, "select_slot:9:1735815600:1735819200", offer.Message.Actions[1].Data)
	assert.Contains(t, offer.Message.Body, "02.01.2025 10:00-11:00 UTC")
}

func TestComposeConfirmedNotifiesBoth(t *testing.T) {
	c := NewComposer("")
	p := &model.Proposal{ID: 9, MentorID: mentor.ID, StudentID: student.ID}
	s := slot(10)
	m := &model.Meeting{ID: 3, MentorID: mentor.ID, StudentID: student.ID, Start: s.Start, End: s.End, MeetLink: "https://meet.example.com/x"}

	deliveries := c.Compose(negotiation.ProposalConfirmed{Proposal: p, Meeting: m}, users)

	require.Len(t, deliveries, 2)
	assert.ElementsMatch(t, []int64{mentor.ID, student.ID}, []int64{deliveries[0].UserID, deliveries[1].UserID})
	assert.Equal(t, "2025-01-02T10:00:00Z", deliveries[0].Payload["start"])
	assert.Contains(t, deliveries[0].Message.Body, "https://meet.example.com/x")
}

func TestComposeCancelNotifiesOtherParty(t *testing.T) {
	c := NewComposer("")
	p := &model.Proposal{ID: 9, MentorID: mentor.ID, StudentID: student.ID}

	deliveries := c.Compose(negotiation.ProposalCancelled{Proposal: p, ByUserID: student.ID}, users)

	require.Len(t, deliveries, 1)
	assert.Equal(t, mentor.ID, deliveries[0].UserID)
}

type recordingNotifier struct {
	mu   sync.Mutex
	name string
	err  error
	sent []Recipient
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Send(ctx context.Context, to Recipient, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to)
	return n.err
}

func TestMultiContinuesAfterFailure(t *testing.T) {
	failing := &recordingNotifier{name: "email", err: errors.New("smtp down")}
	ok := &recordingNotifier{name: "telegram"}
	m := NewMulti(time.Second, zap.NewNop(), failing, ok)

	err := m.Send(context.Background(), Recipient{UserID: 1}, Message{Subject: "s"})

	assert.True(t, errors.Is(err, apperr.ErrExternalCollaboratorFailure))
	assert.Len(t, failing.sent, 1)
	assert.Len(t, ok.sent, 1)
}

type fakeSender struct {
	params *bot.SendMessageParams
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.params = params
	return &models.Message{}, nil
}

func TestTelegramNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramNotifier(sender)

	require.NoError(t, n.Send(context.Background(), Recipient{}, Message{Subject: "skip"}))
	assert.Nil(t, sender.params)

	msg := Message{
		Subject: "📩 Новая заявка",
		Body:    "body",
		Actions: []Action{
			{Text: "✅ Принять", Data: "accept_request:5"},
			{Text: "Открыть", URL: "http://localhost:5173/mentor/requests/5"},
		},
	}
	require.NoError(t, n.Send(context.Background(), Recipient{TelegramID: 42}, msg))

	require.NotNil(t, sender.params)
	assert.Equal(t, int64(42), sender.params.ChatID)
	assert.Contains(t, sender.params.Text, "Открыть: http://localhost:5173/mentor/requests/5")
	kb, ok := sender.params.ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "accept_request:5", kb.InlineKeyboard[0][0].CallbackData)
}
