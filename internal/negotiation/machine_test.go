package negotiation

import (
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now     = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	mentor  = &model.User{ID: 1, Role: model.RoleMentor, Email: "m@example.com"}
	student = &model.User{ID: 2, Role: model.RoleStudent, Email: "s@example.com"}
	other   = &model.User{ID: 3, Role: model.RoleStudent}

	mentorActor  = ActorOf(mentor)
	studentActor = ActorOf(student)
	otherActor   = ActorOf(other)
)

func slot(startHour, startMin, endHour, endMin int) availability.Interval {
	return availability.Interval{
		Start: time.Date(2025, 1, 2, startHour, startMin, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 2, endHour, endMin, 0, 0, time.UTC),
	}
}

func pendingRequest() *model.Request {
	return &model.Request{ID: 10, StudentID: student.ID, MentorID: mentor.ID, Status: model.RequestStatusPending}
}

func proposalWithSlots(slots ...availability.Interval) *model.Proposal {
	requestID := int64(10)
	return &model.Proposal{
		ID:        20,
		RequestID: &requestID,
		MentorID:  mentor.ID,
		StudentID: student.ID,
		Slots:     slots,
		Status:    model.ProposalStatusPending,
	}
}

func TestCreateRequest(t *testing.T) {
	req, ev, err := CreateRequest(studentActor, mentor, nil, "  help with Go  ", false, now)

	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Equal(t, "help with Go", req.Message)
	assert.Equal(t, EventRequestCreated, ev.EventName())
	assert.ElementsMatch(t, []int64{student.ID, mentor.ID}, ev.Participants())
}

func TestCreateRequestRules(t *testing.T) {
	_, _, err := CreateRequest(mentorActor, mentor, nil, "", false, now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, _, err = CreateRequest(studentActor, other, nil, "", false, now)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, _, err = CreateRequest(studentActor, mentor, pendingRequest(), "", true, now)
	assert.True(t, errors.Is(err, apperr.ErrDuplicateRequest))
}

func TestCreateRequestReopensRejected(t *testing.T) {
	existing := pendingRequest()
	existing.Status = model.RequestStatusRejected

	_, _, err := CreateRequest(studentActor, mentor, existing, "again", false, now)
	assert.True(t, errors.Is(err, apperr.ErrDuplicateRequest))

	req, ev, err := CreateRequest(studentActor, mentor, existing, "again", true, now)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, req.ID)
	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Equal(t, EventRequestReopened, ev.EventName())
	assert.Equal(t, model.RequestStatusRejected, existing.Status)
}

func TestAcceptAdHoc(t *testing.T) {
	req := pendingRequest()

	accepted, proposal, ev, err := AcceptRequest(mentorActor, req, nil, now)

	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, accepted.Status)
	assert.Equal(t, model.ProposalStatusAwaitingMentor, proposal.Status)
	assert.Empty(t, proposal.Slots)
	require.NotNil(t, proposal.RequestID)
	assert.Equal(t, req.ID, *proposal.RequestID)
	assert.Same(t, proposal, ev.Proposal)
	assert.Equal(t, model.RequestStatusPending, req.Status, "input must not change")
}

func TestAcceptWithDerivedSlots(t *testing.T) {
	_, proposal, _, err := AcceptRequest(mentorActor, pendingRequest(), []availability.Interval{slot(10, 30, 11, 30), slot(10, 0, 11, 0)}, now)

	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusPending, proposal.Status)
	require.Len(t, proposal.Slots, 2)
	assert.True(t, proposal.Slots[0].Equal(slot(10, 0, 11, 0)))
}

func TestAcceptByStudentForbidden(t *testing.T) {
	req := pendingRequest()

	_, _, _, err := AcceptRequest(studentActor, req, nil, now)

	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	assert.Equal(t, model.RequestStatusPending, req.Status)
}

func TestRejectThenAcceptFails(t *testing.T) {
	rejected, ev, err := RejectRequest(mentorActor, pendingRequest(), now)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, rejected.Status)
	assert.Equal(t, EventRequestRejected, ev.EventName())

	_, _, _, err = AcceptRequest(mentorActor, rejected, nil, now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))

	_, _, err = RejectRequest(mentorActor, rejected, now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))
}

func TestSelectBeforeSlotsExist(t *testing.T) {
	_, proposal, _, err := AcceptRequest(mentorActor, pendingRequest(), nil, now)
	require.NoError(t, err)

	_, _, err = SelectSlot(studentActor, proposal, slot(10, 0, 11, 0), now)

	assert.True(t, errors.Is(err, apperr.ErrSlotNotOffered))
	assert.Equal(t, model.ProposalStatusAwaitingMentor, proposal.Status)
}

func TestProposeSlots(t *testing.T) {
	_, proposal, _, err := AcceptRequest(mentorActor, pendingRequest(), nil, now)
	require.NoError(t, err)

	_, _, err = ProposeSlots(studentActor, proposal, []availability.Interval{slot(10, 0, 11, 0)}, now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, _, err = ProposeSlots(mentorActor, proposal, nil, now)
	assert.True(t, errors.Is(err, apperr.ErrMalformedSlot))

	_, _, err = ProposeSlots(mentorActor, proposal, []availability.Interval{slot(11, 0, 10, 0)}, now)
	assert.True(t, errors.Is(err, apperr.ErrMalformedSlot))

	updated, ev, err := ProposeSlots(mentorActor, proposal, []availability.Interval{slot(10, 0, 11, 0), slot(10, 0, 11, 0)}, now)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusPending, updated.Status)
	assert.Len(t, updated.Slots, 1)
	assert.Equal(t, EventSlotsProposed, ev.EventName())
	assert.Empty(t, proposal.Slots)
}

func TestSelectSlot(t *testing.T) {
	p := proposalWithSlots(slot(10, 0, 11, 0), slot(10, 30, 11, 30))

	_, _, err := SelectSlot(studentActor, p, slot(12, 0, 13, 0), now)
	assert.True(t, errors.Is(err, apperr.ErrSlotNotOffered))

	_, _, err = SelectSlot(mentorActor, p, slot(10, 0, 11, 0), now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, _, err = SelectSlot(otherActor, p, slot(10, 0, 11, 0), now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	chosen, ev, err := SelectSlot(studentActor, p, slot(10, 30, 11, 30), now)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusStudentChosen, chosen.Status)
	require.NotNil(t, chosen.ChosenSlot)
	assert.True(t, chosen.ChosenSlot.Equal(slot(10, 30, 11, 30)))
	assert.Equal(t, EventSlotChosen, ev.EventName())
	assert.Nil(t, p.ChosenSlot)

	_, _, err = SelectSlot(studentActor, chosen, slot(10, 0, 11, 0), now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))
}

func TestConfirmProposal(t *testing.T) {
	p := proposalWithSlots(slot(10, 0, 11, 0))

	_, _, _, err := ConfirmProposal(mentorActor, p, "https://meet.example.com/x", now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))

	chosen, _, err := SelectSlot(studentActor, p, slot(10, 0, 11, 0), now)
	require.NoError(t, err)

	_, _, _, err = ConfirmProposal(studentActor, chosen, "x", now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	confirmed, meeting, ev, err := ConfirmProposal(mentorActor, chosen, "https://meet.example.com/x", now)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusConfirmed, confirmed.Status)
	assert.Equal(t, model.MeetingStatusScheduled, meeting.Status)
	assert.Equal(t, chosen.ChosenSlot.Start, meeting.Start)
	assert.Equal(t, chosen.ChosenSlot.End, meeting.End)
	assert.Equal(t, "https://meet.example.com/x", meeting.MeetLink)
	require.NotNil(t, meeting.ProposalID)
	assert.Equal(t, p.ID, *meeting.ProposalID)
	assert.Same(t, meeting, ev.Meeting)

	_, _, _, err = ConfirmProposal(mentorActor, confirmed, "x", now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))
}

func TestCancelProposal(t *testing.T) {
	p := proposalWithSlots(slot(10, 0, 11, 0))

	_, _, err := CancelProposal(otherActor, p, now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	cancelled, ev, err := CancelProposal(studentActor, p, now)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusCancelled, cancelled.Status)
	assert.Equal(t, student.ID, ev.ByUserID)

	_, _, err = SelectSlot(studentActor, cancelled, slot(10, 0, 11, 0), now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))
}

func TestOpenProposal(t *testing.T) {
	p, ev, err := OpenProposal(mentorActor, student, []availability.Interval{slot(9, 0, 10, 0)}, now)
	require.NoError(t, err)
	assert.Nil(t, p.RequestID)
	assert.Equal(t, model.ProposalStatusPending, p.Status)
	assert.Equal(t, EventSlotsProposed, ev.EventName())

	_, _, err = OpenProposal(studentActor, other, []availability.Interval{slot(9, 0, 10, 0)}, now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, _, err = OpenProposal(mentorActor, mentor, []availability.Interval{slot(9, 0, 10, 0)}, now)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestChangeMeetingStatus(t *testing.T) {
	m := &model.Meeting{ID: 30, MentorID: mentor.ID, StudentID: student.ID, Status: model.MeetingStatusScheduled}

	_, _, err := ChangeMeetingStatus(studentActor, m, model.MeetingStatusConfirmed, now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, _, err = ChangeMeetingStatus(otherActor, m, model.MeetingStatusCancelled, now)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, _, err = ChangeMeetingStatus(mentorActor, m, model.MeetingStatusScheduled, now)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	confirmed, ev, err := ChangeMeetingStatus(mentorActor, m, model.MeetingStatusConfirmed, now)
	require.NoError(t, err)
	assert.Equal(t, model.MeetingStatusConfirmed, confirmed.Status)
	assert.Equal(t, model.MeetingStatusScheduled, ev.From)

	cancelled, _, err := ChangeMeetingStatus(studentActor, confirmed, model.MeetingStatusCancelled, now)
	require.NoError(t, err)

	_, _, err = ChangeMeetingStatus(mentorActor, cancelled, model.MeetingStatusCompleted, now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))
}
