package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPairIsUnique(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	first := &model.Request{StudentID: 1, MentorID: 2, Status: model.RequestStatusPending}
	require.NoError(t, repos.Requests.Create(ctx, first))
	assert.Equal(t, int64(1), first.ID)

	err := repos.Requests.Create(ctx, &model.Request{StudentID: 1, MentorID: 2, Status: model.RequestStatusPending})
	assert.True(t, errors.Is(err, apperr.ErrDuplicateRequest))
}

func TestRequestUpdateIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	req := &model.Request{StudentID: 1, MentorID: 2, Status: model.RequestStatusPending}
	require.NoError(t, repos.Requests.Create(ctx, req))

	accepted := *req
	accepted.Status = model.RequestStatusAccepted
	require.NoError(t, repos.Requests.Update(ctx, &accepted, model.RequestStatusPending))

	rejected := *req
	rejected.Status = model.RequestStatusRejected
	err := repos.Requests.Update(ctx, &rejected, model.RequestStatusPending)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))

	stored, err := repos.Requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, stored.Status)
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		require.NoError(t, repos.Requests.Create(ctx, &model.Request{StudentID: 1, MentorID: 2}))
		require.NoError(t, repos.Meetings.Create(ctx, &model.Meeting{MentorID: 2, StudentID: 1}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	requests, err := s.Repos().Requests.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, requests)

	meetings, err := s.Repos().Meetings.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestReturnedProposalsAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	p := &model.Proposal{
		MentorID:  2,
		StudentID: 1,
		Status:    model.ProposalStatusPending,
		Slots:     []availability.Interval{{Start: start, End: start.Add(time.Hour)}},
	}
	require.NoError(t, repos.Proposals.Create(ctx, p))

	got, err := repos.Proposals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Slots[0].Start = start.Add(-time.Hour)

	again, err := repos.Proposals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, start, again.Slots[0].Start)
}

func TestMeetingLinkSetOnce(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	m := &model.Meeting{MentorID: 2, StudentID: 1, Status: model.MeetingStatusScheduled}
	require.NoError(t, repos.Meetings.Create(ctx, m))

	link, err := repos.Meetings.SetLinkIfEmpty(ctx, m.ID, "https://meet.example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example.com/a", link)

	link, err = repos.Meetings.SetLinkIfEmpty(ctx, m.ID, "https://meet.example.com/b")
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example.com/a", link)
}

func TestTelegramLinkMovesBetweenUsers(t *testing.T) {
	ctx := context.Background()
	repos := New().Repos()

	a := &model.User{Email: "a@example.com", Role: model.RoleStudent}
	b := &model.User{Email: "b@example.com", Role: model.RoleMentor}
	require.NoError(t, repos.Users.Create(ctx, a))
	require.NoError(t, repos.Users.Create(ctx, b))

	require.NoError(t, repos.Users.SetTelegramID(ctx, a.ID, 777))
	require.NoError(t, repos.Users.SetTelegramID(ctx, b.ID, 777))

	found, err := repos.Users.GetByTelegramID(ctx, 777)
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	err = repos.Users.Create(ctx, &model.User{Email: "A@example.com"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
