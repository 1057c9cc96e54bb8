package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/Freeeeeet/mentor_match/internal/notify"
	"github.com/Freeeeeet/mentor_match/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type published struct {
	userID int64
	event  string
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, userID int64, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{userID: userID, event: event})
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type fakeNotifier struct {
	mu  sync.Mutex
	to  []notify.Recipient
	err error
}

func (n *fakeNotifier) Name() string { return "fake" }

func (n *fakeNotifier) Send(ctx context.Context, to notify.Recipient, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.to = append(n.to, to)
	return n.err
}

func seedUsers(t *testing.T, st *memory.Store) (*model.User, *model.User) {
	t.Helper()
	ctx := context.Background()
	tg := int64(100)
	mentor := &model.User{Email: "mentor@example.com", Role: model.RoleMentor, TelegramID: &tg}
	student := &model.User{Email: "student@example.com", Role: model.RoleStudent}
	require.NoError(t, st.Repos().Users.Create(ctx, mentor))
	require.NoError(t, st.Repos().Users.Create(ctx, student))
	return mentor, student
}

func TestDispatcherDeliversToParticipants(t *testing.T) {
	st := memory.New()
	mentor, student := seedUsers(t, st)
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}

	d := NewDispatcher(st.Repos().Users, notify.NewComposer("http://localhost:5173"), notifier, publisher, DispatcherOptions{}, zap.NewNop())

	req := &model.Request{ID: 1, StudentID: student.ID, MentorID: mentor.ID, Status: model.RequestStatusPending}
	d.Handle(context.Background(), negotiation.RequestCreated{Request: req})

	require.Len(t, publisher.sent, 1)
	assert.Equal(t, published{userID: mentor.ID, event: notify.TopicNewRequest}, publisher.sent[0])

	require.Len(t, notifier.to, 1)
	assert.Equal(t, mentor.ID, notifier.to[0].UserID)
	assert.Equal(t, int64(100), notifier.to[0].TelegramID)
	assert.Equal(t, "mentor@example.com", notifier.to[0].Email)
}

func TestDispatcherFailuresAreLoggedOnly(t *testing.T) {
	st := memory.New()
	mentor, student := seedUsers(t, st)
	core, logs := observer.New(zapcore.WarnLevel)

	publisher := &fakePublisher{err: errors.New("redis down")}
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	d := NewDispatcher(st.Repos().Users, notify.NewComposer(""), notifier, publisher, DispatcherOptions{}, zap.New(core))

	req := &model.Request{ID: 1, StudentID: student.ID, MentorID: mentor.ID, Status: model.RequestStatusRejected}
	d.Handle(context.Background(), negotiation.RequestRejected{Request: req})

	assert.Equal(t, 1, publisher.count())
	assert.Len(t, notifier.to, 1)
	assert.Equal(t, 1, logs.FilterMessage("Notification not delivered").Len())
	assert.GreaterOrEqual(t, logs.Len(), 2)
}

func TestDispatcherPublishNeverBlocks(t *testing.T) {
	st := memory.New()
	core, logs := observer.New(zapcore.WarnLevel)
	d := NewDispatcher(st.Repos().Users, notify.NewComposer(""), nil, nil, DispatcherOptions{QueueSize: 1}, zap.New(core))

	req := &model.Request{ID: 1, StudentID: 1, MentorID: 2}
	done := make(chan struct{})
	go func() {
		d.Publish(negotiation.RequestCreated{Request: req}, negotiation.RequestCreated{Request: req})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	assert.Equal(t, 1, logs.FilterMessage("Dispatch queue is full, event dropped").Len())
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	st := memory.New()
	mentor, student := seedUsers(t, st)
	publisher := &fakePublisher{}
	d := NewDispatcher(st.Repos().Users, notify.NewComposer(""), nil, publisher, DispatcherOptions{Workers: 2}, zap.NewNop())

	req := &model.Request{ID: 1, StudentID: student.ID, MentorID: mentor.ID}
	for i := 0; i < 5; i++ {
		d.Publish(negotiation.RequestCreated{Request: req})
	}

	d.Start(context.Background())
	d.Stop()

	assert.Equal(t, 5, publisher.count())
}
